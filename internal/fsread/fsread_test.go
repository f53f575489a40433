package fsread

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func newTestReader(t *testing.T) (*Reader, string) {
	t.Helper()
	r := NewReader(zap.NewNop())
	r.tempDir = t.TempDir()
	return r, r.tempDir
}

func TestExpandPathEnvVars(t *testing.T) {
	t.Setenv("DESKPILOT_TEST_DIR", "/data")

	assert.Equal(t, "/data/file.txt", ExpandPath("%DESKPILOT_TEST_DIR%/file.txt"))
	assert.Equal(t, "/data/file.txt", ExpandPath("$DESKPILOT_TEST_DIR/file.txt"))

	// Unset variables stay verbatim.
	assert.Equal(t, "%NO_SUCH_VAR_12345%/x", ExpandPath("%NO_SUCH_VAR_12345%/x"))
	assert.Equal(t, "$NO_SUCH_VAR_12345/x", ExpandPath("$NO_SUCH_VAR_12345/x"))
}

func TestExpandPathCollapsesDoubledBackslashes(t *testing.T) {
	assert.Equal(t, `C:\temp\out.txt`, ExpandPath(`C:\\temp\\out.txt`))
}

func TestReadUTF8(t *testing.T) {
	r, dir := newTestReader(t)
	p := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(p, []byte("héllo wörld"), 0o644))

	content, resolved, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "héllo wörld", content)
	assert.Equal(t, p, resolved)
}

func TestReadUTF8BOMStripped(t *testing.T) {
	r, dir := newTestReader(t)
	p := filepath.Join(dir, "bom.txt")
	require.NoError(t, os.WriteFile(p, append([]byte{0xEF, 0xBB, 0xBF}, "content"...), 0o644))

	content, _, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "content", content)
}

func TestReadUTF16WithBOM(t *testing.T) {
	r, dir := newTestReader(t)
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	raw, err := enc.Bytes([]byte("Betriebssystem: Windows"))
	require.NoError(t, err)

	p := filepath.Join(dir, "utf16.txt")
	require.NoError(t, os.WriteFile(p, raw, 0o644))

	content, _, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "Betriebssystem: Windows", content)
}

func TestReadUTF16WithoutBOM(t *testing.T) {
	r, dir := newTestReader(t)
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	raw, err := enc.Bytes([]byte("systeminfo output here"))
	require.NoError(t, err)

	p := filepath.Join(dir, "utf16le.txt")
	require.NoError(t, os.WriteFile(p, raw, 0o644))

	content, _, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "systeminfo output here", content)
}

func TestReadWindows1252(t *testing.T) {
	r, dir := newTestReader(t)
	enc := charmap.Windows1252.NewEncoder()
	raw, err := enc.Bytes([]byte("Größe: 10 µm"))
	require.NoError(t, err)

	p := filepath.Join(dir, "cp1252.txt")
	require.NoError(t, os.WriteFile(p, raw, 0o644))

	content, _, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "Größe: 10 µm", content)
}

func TestReadBinaryRejected(t *testing.T) {
	r, dir := newTestReader(t)
	p := filepath.Join(dir, "blob.bin")
	raw := append([]byte{0xFF, 0xFE}, make([]byte, 64)...)
	raw = append(raw, 0x01, 0x02, 0x03)
	require.NoError(t, os.WriteFile(p, raw, 0o644))

	_, _, err := r.Read(p)
	assert.ErrorContains(t, err, "binary")
}

func TestReadFallsBackToTempBasename(t *testing.T) {
	r, dir := newTestReader(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.txt"), []byte("fallback hit"), 0o644))

	content, resolved, err := r.Read(`C:\does\not\exist\out.txt`)
	require.NoError(t, err)
	assert.Equal(t, "fallback hit", content)
	assert.Equal(t, filepath.Join(dir, "out.txt"), resolved)
}

func TestReadFallsBackToSysinfo(t *testing.T) {
	r, dir := newTestReader(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sysinfo.txt"), []byte("OS info"), 0o644))

	content, resolved, err := r.Read("/nowhere/missing.log")
	require.NoError(t, err)
	assert.Equal(t, "OS info", content)
	assert.Equal(t, filepath.Join(dir, "sysinfo.txt"), resolved)
}

func TestReadMissingEverywhere(t *testing.T) {
	r, _ := newTestReader(t)
	_, _, err := r.Read("/nowhere/at/all.txt")
	assert.ErrorContains(t, err, "not found")
}

func TestReadEmptyFile(t *testing.T) {
	r, dir := newTestReader(t)
	p := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(p, nil, 0o644))

	content, _, err := r.Read(p)
	require.NoError(t, err)
	assert.Empty(t, content)
}

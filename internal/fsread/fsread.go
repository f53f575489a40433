// Package fsread reads text files the way a user on a mixed Windows/Unix
// setup expects: environment variables in paths are expanded, doubled
// backslashes from JSON transport are collapsed, a missing file is probed in
// the temp directory, and the bytes are decoded through a cascade of the
// encodings Windows tools actually emit.
package fsread

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var winVarRe = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%`)

// ExpandPath expands %VAR% and $VAR references and collapses the doubled
// backslashes JSON transport produces. Unset variables are left untouched so
// the resulting error names what the model actually wrote.
func ExpandPath(path string) string {
	p := strings.ReplaceAll(path, `\\`, `\`)
	p = winVarRe.ReplaceAllStringFunc(p, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return m
	})
	p = os.Expand(p, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "$" + name
	})
	return p
}

// Reader implements the file-reading effector.
type Reader struct {
	logger *zap.Logger
	// tempDir is the fallback probe location, os.TempDir unless overridden.
	tempDir string
}

func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger.Named("fsread"), tempDir: os.TempDir()}
}

// Read loads a text file. When the expanded path does not exist, the temp
// directory is probed for the same basename and finally for sysinfo.txt,
// since shell output redirected by earlier steps usually lands there.
func (r *Reader) Read(path string) (string, string, error) {
	resolved := ExpandPath(path)

	candidates := []string{resolved}
	if base := baseName(resolved); base != "" {
		candidates = append(candidates, filepath.Join(r.tempDir, base))
	}
	candidates = append(candidates, filepath.Join(r.tempDir, "sysinfo.txt"))

	var chosen string
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			chosen = c
			break
		}
	}
	if chosen == "" {
		return "", "", fmt.Errorf("file not found, tried %s", strings.Join(candidates, ", "))
	}

	raw, err := os.ReadFile(chosen)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", chosen, err)
	}

	content, err := decode(raw)
	if err != nil {
		return "", "", fmt.Errorf("decoding %s: %w", chosen, err)
	}
	r.logger.Debug("file read",
		zap.String("path", chosen),
		zap.Int("chars", len(content)),
	)
	return content, chosen, nil
}

// decode turns raw bytes into text, trying UTF-8 and UTF-16 before the
// legacy single-byte codepages. A NUL in the decoded head means the file is
// binary, not text in yet another encoding.
func decode(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var text string
	switch {
	case hasUTF16BOM(raw):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("decoding UTF-16: %w", err)
		}
		text = string(out)
	case utf8.Valid(raw):
		text = string(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))
	case looksUTF16LE(raw):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("decoding UTF-16LE: %w", err)
		}
		text = string(out)
	default:
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			out, err = charmap.ISO8859_1.NewDecoder().Bytes(raw)
			if err != nil {
				return "", fmt.Errorf("no decoder accepted the file: %w", err)
			}
		}
		text = string(out)
	}

	head := text
	if len(head) > 100 {
		head = head[:100]
	}
	if strings.ContainsRune(head, 0) {
		return "", fmt.Errorf("file appears to be binary")
	}
	return text, nil
}

// baseName extracts the last path segment regardless of separator style, so
// a Windows path still probes correctly on a Unix host.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		p = p[i+1:]
	}
	if p == "." || p == "" {
		return ""
	}
	return p
}

func hasUTF16BOM(raw []byte) bool {
	return len(raw) >= 2 &&
		((raw[0] == 0xFF && raw[1] == 0xFE) || (raw[0] == 0xFE && raw[1] == 0xFF))
}

// looksUTF16LE detects BOM-less UTF-16 output by the NUL density typical of
// Latin text stored two bytes per character.
func looksUTF16LE(raw []byte) bool {
	if len(raw) < 4 {
		return false
	}
	sample := raw
	if len(sample) > 512 {
		sample = sample[:512]
	}
	nuls := bytes.Count(sample, []byte{0})
	return nuls*3 > len(sample)
}

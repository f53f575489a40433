package office

import (
	"archive/zip"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"deskpilot/internal/action"
)

func newTestWriter() *Writer {
	return NewWriter(zap.NewNop())
}

func readZipPart(t *testing.T, path, part string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name == part {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			raw, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(raw)
		}
	}
	t.Fatalf("part %s not found in %s", part, path)
	return ""
}

func zipPartNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestCreateXlsxRoundTrip(t *testing.T) {
	w := newTestWriter()
	p := filepath.Join(t.TempDir(), "report.xlsx")

	msg, err := w.CreateXlsx(p, "Results", [][]any{
		{"Name", "Count"},
		{"alpha", 3},
		{"beta", 7},
	})
	require.NoError(t, err)
	assert.Contains(t, msg, "3 rows")

	f, err := excelize.OpenFile(p)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Count"}, rows[0])
	assert.Equal(t, []string{"beta", "7"}, rows[2])

	// The whole header row is bold, the data rows are not.
	for _, cell := range []string{"A1", "B1"} {
		styleID, err := f.GetCellStyle("Results", cell)
		require.NoError(t, err)
		style, err := f.GetStyle(styleID)
		require.NoError(t, err)
		require.NotNil(t, style.Font, "cell %s has no font", cell)
		assert.True(t, style.Font.Bold, "cell %s not bold", cell)
	}
	styleID, err := f.GetCellStyle("Results", "A2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.True(t, style.Font == nil || !style.Font.Bold)
}

func TestCreateXlsxDefaultSheet(t *testing.T) {
	w := newTestWriter()
	p := filepath.Join(t.TempDir(), "empty.xlsx")

	_, err := w.CreateXlsx(p, "", nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(p)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "Sheet1", f.GetSheetName(0))
}

func TestCreateXlsxMakesParentDirs(t *testing.T) {
	w := newTestWriter()
	p := filepath.Join(t.TempDir(), "nested", "deep", "out.xlsx")

	_, err := w.CreateXlsx(p, "", [][]any{{"x"}})
	require.NoError(t, err)
	assert.FileExists(t, p)
}

func TestCreateDocxStructure(t *testing.T) {
	w := newTestWriter()
	p := filepath.Join(t.TempDir(), "note.docx")

	msg, err := w.CreateDocx(p, "Weekly Report", "First paragraph.\n\nSecond paragraph\nwith a soft break.")
	require.NoError(t, err)
	assert.Contains(t, msg, "2 paragraphs")

	doc := readZipPart(t, p, "word/document.xml")
	assert.Contains(t, doc, "Weekly Report")
	assert.Contains(t, doc, "First paragraph.")
	assert.Contains(t, doc, "<w:br/>")
	assert.Contains(t, readZipPart(t, p, "[Content_Types].xml"), "wordprocessingml")
}

func TestCreateDocxEscapesMarkup(t *testing.T) {
	w := newTestWriter()
	p := filepath.Join(t.TempDir(), "escaped.docx")

	_, err := w.CreateDocx(p, "A & B", "5 < 10 > 2")
	require.NoError(t, err)

	doc := readZipPart(t, p, "word/document.xml")
	assert.Contains(t, doc, "A &amp; B")
	assert.Contains(t, doc, "5 &lt; 10 &gt; 2")
	assert.NotContains(t, doc, "5 < 10")
}

func TestCreatePptxStructure(t *testing.T) {
	w := newTestWriter()
	p := filepath.Join(t.TempDir(), "deck.pptx")

	msg, err := w.CreatePptx(p, "Quarterly Review", []action.Slide{
		{Title: "Numbers", Content: "Revenue up\nCosts down"},
		{Title: "Outlook", Content: "Steady"},
	})
	require.NoError(t, err)
	assert.Contains(t, msg, "3 slides")

	names := zipPartNames(t, p)
	assert.Contains(t, names, "ppt/slides/slide1.xml")
	assert.Contains(t, names, "ppt/slides/slide3.xml")
	assert.Contains(t, names, "ppt/slideMasters/slideMaster1.xml")
	assert.Contains(t, names, "ppt/theme/theme1.xml")

	cover := readZipPart(t, p, "ppt/slides/slide1.xml")
	assert.Contains(t, cover, "Quarterly Review")
	assert.Contains(t, cover, `sz="4400"`)

	second := readZipPart(t, p, "ppt/slides/slide2.xml")
	assert.Contains(t, second, "Numbers")
	assert.Contains(t, second, "Revenue up")
	assert.Contains(t, second, `sz="3200"`)

	pres := readZipPart(t, p, "ppt/presentation.xml")
	assert.Equal(t, 3, strings.Count(pres, "<p:sldId "))
}

func TestCreatePptxWithoutTitle(t *testing.T) {
	w := newTestWriter()
	p := filepath.Join(t.TempDir(), "plain.pptx")

	msg, err := w.CreatePptx(p, "", []action.Slide{{Title: "Only Slide"}})
	require.NoError(t, err)
	assert.Contains(t, msg, "1 slides")
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"a", "b\nc"}, paragraphs("a\n\nb\nc"))
	assert.Equal(t, []string{"x"}, paragraphs("\n\nx\n\n"))
	assert.Empty(t, paragraphs("  \n\n  "))
	assert.Equal(t, []string{"a", "b"}, paragraphs("a\r\n\r\nb"))
}

func TestAvailable(t *testing.T) {
	docx, xlsx, pptx := newTestWriter().Available()
	assert.True(t, docx && xlsx && pptx)
}

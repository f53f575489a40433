// Package office produces the three document formats the model can request.
// Spreadsheets go through excelize; Word and PowerPoint files are written as
// minimal OOXML packages directly, which covers the plain title-plus-text
// documents produced here without pulling in a heavyweight dependency.
package office

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"deskpilot/internal/fsread"
)

// Writer implements the document effector.
type Writer struct {
	logger *zap.Logger
}

func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{logger: logger.Named("office")}
}

// Available reports which formats can be produced. All three are built in,
// so the answer is static; the loop advertises them to the model.
func (w *Writer) Available() (docx, xlsx, pptx bool) {
	return true, true, true
}

// resolvePath expands environment variables, normalizes separators and makes
// sure the parent directory exists.
func resolvePath(path string) (string, error) {
	p := fsread.ExpandPath(path)
	if dir := filepath.Dir(p); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return p, nil
}

// zipEntry is one file inside an OOXML package.
type zipEntry struct {
	name string
	body string
}

func writePackage(path string, entries []zipEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	zw := zip.NewWriter(f)
	for _, e := range entries {
		fw, err := zw.Create(e.name)
		if err != nil {
			zw.Close()
			f.Close()
			return fmt.Errorf("adding %s: %w", e.name, err)
		}
		if _, err := fw.Write([]byte(e.body)); err != nil {
			zw.Close()
			f.Close()
			return fmt.Errorf("writing %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return f.Close()
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func esc(s string) string {
	return xmlEscaper.Replace(s)
}

// paragraphs splits free text on blank lines; single newlines stay inside
// one paragraph as line breaks.
func paragraphs(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(content, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

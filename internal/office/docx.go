package office

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// CreateDocx writes a Word document with a heading followed by body
// paragraphs. Blank lines in content separate paragraphs; single newlines
// become soft line breaks.
func (w *Writer) CreateDocx(path, title, content string) (string, error) {
	p, err := resolvePath(path)
	if err != nil {
		return "", err
	}

	var body strings.Builder
	if title != "" {
		fmt.Fprintf(&body,
			`<w:p><w:pPr><w:rPr><w:b/><w:sz w:val="48"/></w:rPr></w:pPr>`+
				`<w:r><w:rPr><w:b/><w:sz w:val="48"/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
			esc(title))
	}
	paras := paragraphs(content)
	for _, para := range paras {
		body.WriteString("<w:p><w:r>")
		for i, line := range strings.Split(para, "\n") {
			if i > 0 {
				body.WriteString("<w:br/>")
			}
			fmt.Fprintf(&body, `<w:t xml:space="preserve">%s</w:t>`, esc(line))
		}
		body.WriteString("</w:r></w:p>")
	}

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body.String() + `</w:body>
</w:document>`

	err = writePackage(p, []zipEntry{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", document},
	})
	if err != nil {
		return "", err
	}

	w.logger.Info("document written",
		zap.String("path", p),
		zap.Int("paragraphs", len(paras)),
	)
	return fmt.Sprintf("DOCX created: %s (%d paragraphs)", p, len(paras)), nil
}

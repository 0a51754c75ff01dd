// Package importer builds the block tree from contract files. Text
// content and block identity only; formatting fidelity is a non-goal.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"

	"contract-review/internal/doctree"
)

// Import reads a contract file and returns its document tree. The format
// is chosen by extension.
func Import(filePath string) (*doctree.Document, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".docx":
		return importDOCX(filePath)
	case ".pdf":
		return importPDF(filePath)
	case ".md":
		return importMarkdown(filePath)
	case ".txt":
		return importText(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func importDOCX(filePath string) (*doctree.Document, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	d := doctree.NewDocument()
	// one <w:p> element per block, one <w:t> element per text run, so the
	// imported tree keeps the original run boundaries
	for _, para := range strings.Split(content, "</w:p>") {
		runs := extractRuns(para, "<w:t")
		if len(runs) == 0 {
			continue
		}
		d.Root().Append(doctree.NewParagraph(runs...))
	}
	log.Debug().Str("file", filePath).Int("blocks", len(d.Blocks())).Msg("imported docx")
	return d, nil
}

// extractRuns pulls the text of every <w:t ...>...</w:t> element. Empty
// runs are dropped.
func extractRuns(xmlContent, openTag string) []*doctree.Node {
	var runs []*doctree.Node
	parts := strings.Split(xmlContent, openTag)
	for i, part := range parts {
		if i == 0 {
			continue
		}
		// the open tag may carry attributes (xml:space), skip to its '>'
		gt := strings.Index(part, ">")
		if gt < 0 {
			continue
		}
		rest := part[gt+1:]
		end := strings.Index(rest, "</w:t>")
		if end < 0 {
			continue
		}
		if text := rest[:end]; text != "" {
			runs = append(runs, doctree.NewRun(text))
		}
	}
	return runs
}

func importPDF(filePath string) (*doctree.Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	d := doctree.NewDocument()
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		section := doctree.NewSection()
		for _, para := range splitParagraphs(pageText) {
			section.Append(doctree.NewParagraph(doctree.NewRun(para)))
		}
		if len(section.Children) > 0 {
			d.Root().Append(section)
		}
	}
	log.Debug().Str("file", filePath).Int("blocks", len(d.Blocks())).Msg("imported pdf")
	return d, nil
}

func importText(filePath string) (*doctree.Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	d := doctree.NewDocument()
	for _, para := range splitParagraphs(string(data)) {
		d.Root().Append(doctree.NewParagraph(doctree.NewRun(para)))
	}
	log.Debug().Str("file", filePath).Int("blocks", len(d.Blocks())).Msg("imported text")
	return d, nil
}

// splitParagraphs cuts plain text into blocks on blank lines.
func splitParagraphs(text string) []string {
	var out []string
	for _, chunk := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

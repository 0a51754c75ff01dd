package importer

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"contract-review/internal/doctree"
)

func importMarkdown(filePath string) (*doctree.Document, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(src))

	d := doctree.NewDocument()
	section := doctree.NewSection()
	flush := func() {
		if len(section.Children) > 0 {
			d.Root().Append(section)
		}
		section = doctree.NewSection()
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch v := n.(type) {
		case *ast.Heading:
			flush()
			if t := string(v.Text(src)); t != "" {
				section.Append(doctree.NewParagraph(doctree.NewRun(t)))
			}
		case *ast.List:
			for li := v.FirstChild(); li != nil; li = li.NextSibling() {
				if t := string(li.Text(src)); t != "" {
					section.Append(doctree.NewParagraph(doctree.NewRun(t)))
				}
			}
		default:
			if t := string(n.Text(src)); t != "" {
				section.Append(doctree.NewParagraph(doctree.NewRun(t)))
			}
		}
	}
	flush()

	log.Debug().Str("file", filePath).Int("blocks", len(d.Blocks())).Msg("imported markdown")
	return d, nil
}

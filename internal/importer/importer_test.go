package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-review/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportText(t *testing.T) {
	path := writeFile(t, "contract.txt", `1. TERM
This agreement runs for one year.

2. LIABILITY
Liability is unlimited.`)

	doc, err := Import(path)
	require.NoError(t, err)

	blocks := doc.Blocks()
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[0].Text, "This agreement runs for one year.")
	assert.Contains(t, blocks[1].Text, "Liability is unlimited.")
	for _, b := range blocks {
		assert.NotEmpty(t, b.ID)
		assert.Equal(t, models.StatusOriginal, b.Status)
	}
}

func TestImportMarkdown(t *testing.T) {
	path := writeFile(t, "contract.md", `# Terms of Service

This agreement is binding.

## Liability

Liability is unlimited.

- Supplier may terminate at will.
- Customer pays all fees.
`)

	doc, err := Import(path)
	require.NoError(t, err)

	blocks := doc.Blocks()
	var texts []string
	for _, b := range blocks {
		texts = append(texts, b.Text)
	}
	assert.Contains(t, texts, "Terms of Service")
	assert.Contains(t, texts, "This agreement is binding.")
	assert.Contains(t, texts, "Liability is unlimited.")
	assert.Contains(t, texts, "Supplier may terminate at will.")
}

func TestImportUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "contract.rtf", "whatever")
	_, err := Import(path)
	assert.Error(t, err)
}

func TestImportMissingFile(t *testing.T) {
	_, err := Import("/does/not/exist.txt")
	assert.Error(t, err)
}

func TestExtractRuns(t *testing.T) {
	xml := `<w:p><w:r><w:t>Liability is </w:t></w:r><w:r><w:t xml:space="preserve">unlimited.</w:t></w:r></w:p>`
	runs := extractRuns(xml, "<w:t")
	require.Len(t, runs, 2)
	assert.Equal(t, "Liability is ", runs[0].Text)
	assert.Equal(t, "unlimited.", runs[1].Text)
}

func TestSplitParagraphs(t *testing.T) {
	out := splitParagraphs("a\r\n\r\nb\n\n\n\nc")
	assert.Equal(t, []string{"a", "b", "c"}, out)
}

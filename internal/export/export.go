// Package export writes a review run's findings to a spreadsheet report.
package export

import (
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"contract-review/internal/models"
)

const sheetName = "Findings"

var headers = []string{"Block ID", "Risk", "Original Text", "Proposed Text", "Reasoning", "Recovered"}

// WriteFindings saves the findings to an .xlsx workbook. Recovered
// records stay visibly flagged so reviewers do not trust them blindly.
func WriteFindings(path string, findings []models.Finding) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for r, fd := range findings {
		row := []interface{}{fd.TargetID, fd.Risk, fd.OriginalText, fd.ProposedText, fd.Reasoning, fd.Recovered}
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}
	log.Info().Str("path", path).Int("findings", len(findings)).Msg("writing findings report")
	return f.SaveAs(path)
}

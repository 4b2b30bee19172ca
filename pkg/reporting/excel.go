package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/OldHunter0/Trend-Autostop/internal/state"
)

// WriteOperationsXLSX exports the operation log to an Excel workbook.
func WriteOperationsXLSX(ops []state.OperationRecord, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const sheet = "Operations"
	fx.SetSheetName(fx.GetSheetName(0), sheet)

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F5496"},
			Pattern: 1,
		},
	})
	if err != nil {
		return err
	}

	headers := []string{"Time", "Position", "Symbol", "Action", "Message", "Old Stop", "New Stop", "Success", "Error"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
	}
	endCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
	fx.SetCellStyle(sheet, "A1", endCell, headerStyle)

	for row, op := range ops {
		values := []interface{}{
			op.Time.Format("2006-01-02 15:04:05"),
			op.PositionID,
			op.Symbol,
			op.Action,
			op.Message,
			optFloat(op.OldValue),
			optFloat(op.NewValue),
			op.Success,
			op.Error,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			fx.SetCellValue(sheet, cell, v)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "E", "E", 50)

	return fx.SaveAs(path)
}

func optFloat(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

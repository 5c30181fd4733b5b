package services

import (
	"fmt"
	"time"

	"justice_flow_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// XLSXContentType is the MIME type of generated workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetOccupancy = "Occupancy"
	sheetCases     = "Cases"
)

func writeHeaderRow(f *excelize.File, sheet string, headers []string) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// BuildOccupancyWorkbook renders the prison occupancy report as an xlsx file
func BuildOccupancyWorkbook(rows []PrisonOccupancyRow, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetOccupancy); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	headers := []string{"Prison", "City", "Capacity", "Preventive", "Convicted", "Total", "Occupancy rate"}
	if err := writeHeaderRow(f, sheetOccupancy, headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	percentStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 10})
	overStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 10, Font: &excelize.Font{Bold: true, Color: "#C00000"}})

	var preventive, convicted, total int64
	for i, r := range rows {
		line := i + 2
		if err := writeRow(f, sheetOccupancy, line, r.PrisonName, r.City, r.Capacity, r.Preventive, r.Convicted, r.Total, r.Rate); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
		style := percentStyle
		if r.Rate > 1 {
			style = overStyle
		}
		rateCell := fmt.Sprintf("G%d", line)
		f.SetCellStyle(sheetOccupancy, rateCell, rateCell, style)
		preventive += r.Preventive
		convicted += r.Convicted
		total += r.Total
	}

	totalLine := len(rows) + 2
	if err := writeRow(f, sheetOccupancy, totalLine, "Total", "", "", preventive, convicted, total); err != nil {
		return nil, fmt.Errorf("failed to write totals: %w", err)
	}
	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheetOccupancy, fmt.Sprintf("A%d", totalLine), fmt.Sprintf("F%d", totalLine), boldStyle)
	f.SetCellValue(sheetOccupancy, fmt.Sprintf("A%d", totalLine+2), "Generated "+generatedAt.Format("2006-01-02 15:04"))
	f.SetColWidth(sheetOccupancy, "A", "B", 28)
	f.SetColWidth(sheetOccupancy, "C", "G", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// MaxExportRows caps the size of a case export
const MaxExportRows = 5000

// ExportCases loads the cases visible to the actor, with complaint and court, for a spreadsheet export
func ExportCases(db *gorm.DB, actor Actor, filter CaseFilter) ([]models.Case, error) {
	if actor.Role == models.RoleCitizen {
		return nil, Forbidden("citizens cannot export cases")
	}
	query := ScopeCases(db.Model(&models.Case{}), actor).Preload("Complaint").Preload("Court")
	if filter.Status != "" {
		query = query.Where("status = ?", models.NormalizeStatus(filter.Status))
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", models.NormalizeStatus(filter.Stage))
	}
	if filter.CourtID != "" {
		query = query.Where("court_id = ?", filter.CourtID)
	}
	var cases []models.Case
	if err := query.Order("opened_at DESC").Limit(MaxExportRows).Find(&cases).Error; err != nil {
		return nil, Internal("failed to export cases", err)
	}
	return cases, nil
}

// BuildCaseExportWorkbook renders a case listing as an xlsx file
func BuildCaseExportWorkbook(cases []models.Case) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetCases); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	headers := []string{"Reference", "Tracking code", "Offence", "Court", "Stage", "Status", "Priority", "Opened", "Closed"}
	if err := writeHeaderRow(f, sheetCases, headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for i, c := range cases {
		var tracking, court, closed string
		if c.Complaint != nil {
			tracking = c.Complaint.TrackingCode
		}
		if c.Court != nil {
			court = c.Court.Name
		}
		if c.ClosedAt != nil {
			closed = c.ClosedAt.Format("2006-01-02")
		}
		err := writeRow(f, sheetCases, i+2,
			c.Reference, tracking, c.Type, court, c.Stage, c.Status, c.Priority,
			c.OpenedAt.Format("2006-01-02"), closed)
		if err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}
	f.SetColWidth(sheetCases, "A", "I", 18)
	f.SetPanes(sheetCases, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf.Bytes(), nil
}

package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/performance"
)

// Column is one exported field: header text, column width and cell value.
type Column[T any] struct {
	Header string
	Width  float64
	Value  func(T) interface{}
}

const (
	TeamsSheet        = "CMT Performance"
	CaseManagersSheet = "Case Manager Performance"
)

var TeamColumns = []Column[performance.TeamRollup]{
	{"CMT", 24, func(r performance.TeamRollup) interface{} { return r.Team }},
	{"State", 16, func(r performance.TeamRollup) interface{} { return r.State }},
	{"Facility", 28, func(r performance.TeamRollup) interface{} { return r.FacilityName }},
	{"Case Managers", 14, func(r performance.TeamRollup) interface{} { return r.CaseManagers }},
	{"TX_CURR", 10, func(r performance.TeamRollup) interface{} { return r.TxCur }},
	{"IIT", 8, func(r performance.TeamRollup) interface{} { return r.IIT }},
	{"Transferred Out", 15, func(r performance.TeamRollup) interface{} { return r.TransferredOut }},
	{"Dead", 8, func(r performance.TeamRollup) interface{} { return r.Dead }},
	{"Discontinued", 13, func(r performance.TeamRollup) interface{} { return r.Discontinued }},
	{"Appointments Scheduled", 22, func(r performance.TeamRollup) interface{} { return r.Appointments.Scheduled }},
	{"Appointments Completed", 22, func(r performance.TeamRollup) interface{} { return r.Appointments.Completed }},
	{"Completion Rate (%)", 18, func(r performance.TeamRollup) interface{} { return r.Appointments.CompletionRate }},
	{"VL Eligible", 11, func(r performance.TeamRollup) interface{} { return r.ViralLoad.Eligible }},
	{"FY VL Eligible", 14, func(r performance.TeamRollup) interface{} { return r.ViralLoad.FYEligible }},
	{"VL Samples", 11, func(r performance.TeamRollup) interface{} { return r.ViralLoad.Samples }},
	{"VL Results", 11, func(r performance.TeamRollup) interface{} { return r.ViralLoad.Results }},
	{"VL Suppressed", 13, func(r performance.TeamRollup) interface{} { return r.ViralLoad.Suppressed }},
	{"Suppression Rate (%)", 19, func(r performance.TeamRollup) interface{} { return r.ViralLoad.SuppressionRate }},
	{"Average Score", 13, func(r performance.TeamRollup) interface{} { return r.AverageScore }},
}

var CaseManagerColumns = []Column[carerecord.ScoredCaseManager]{
	{"Case Manager ID", 16, func(r carerecord.ScoredCaseManager) interface{} { return r.CaseManager.ID }},
	{"Name", 24, func(r carerecord.ScoredCaseManager) interface{} { return r.CaseManager.FullName }},
	{"CMT", 24, func(r carerecord.ScoredCaseManager) interface{} { return r.CaseManager.Team }},
	{"State", 16, func(r carerecord.ScoredCaseManager) interface{} { return r.CaseManager.State }},
	{"Facility", 28, func(r carerecord.ScoredCaseManager) interface{} { return r.CaseManager.Facility }},
	{"TX_CURR", 10, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.TxCur }},
	{"IIT", 8, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.IIT }},
	{"Transferred Out", 15, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.TransferredOut }},
	{"Dead", 8, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.Dead }},
	{"Discontinued", 13, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.Discontinued }},
	{"Appointments Scheduled", 22, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.AppointmentsScheduled }},
	{"Appointments Completed", 22, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.AppointmentsCompleted }},
	{"VL Eligible", 11, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.ViralLoadEligible }},
	{"FY VL Eligible", 14, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.FYViralLoadEligible }},
	{"VL Samples", 11, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.ViralLoadSamples }},
	{"VL Results", 11, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.ViralLoadResults }},
	{"VL Suppressed", 13, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.ViralLoadSuppressed }},
	{"Final Score", 11, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.FinalScore }},
	{"Updated", 20, func(r carerecord.ScoredCaseManager) interface{} { return r.Record.UpdatedAt }},
}

// Workbook writes rows to a single-sheet workbook with a styled, frozen
// header row. The caller closes the returned file.
func Workbook[T any](sheet string, cols []Column[T], rows []T) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fill(f, sheet, cols, rows); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fill[T any](f *excelize.File, sheet string, cols []Column[T], rows []T) error {
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("delete default sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F4E78"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, col := range cols {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column %d: %w", i+1, err)
		}
		if err := f.SetColWidth(sheet, name, name, col.Width); err != nil {
			return fmt.Errorf("set width of %s: %w", name, err)
		}
	}

	header := make([]interface{}, len(cols))
	for i, col := range cols {
		header[i] = col.Header
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	for r, row := range rows {
		values := make([]interface{}, len(cols))
		for i, col := range cols {
			values[i] = col.Value(row)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", r+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	return nil
}

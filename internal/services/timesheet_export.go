package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/yukikurage/timesheet-management-api/internal/utils"
)

const exportSheet = "Timesheets"

var exportHeader = []any{"Work Date", "Employee", "Project", "Task", "Hours Worked"}

// Export renders every timesheet matching query as an XLSX workbook. Hours use
// the display transform and the last row holds their total.
func (s *TimesheetService) Export(actor Actor, query TimesheetQuery) (*bytes.Buffer, error) {
	filter, err := s.filterFor(actor, query)
	if err != nil {
		return nil, err
	}

	rows, err := s.timesheetRepo.ListAll(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheets: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	hours := make([]float64, len(rows))
	for i, ts := range rows {
		hours[i] = ts.HoursWorked
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{
			utils.FormatDateLocal(ts.WorkDate),
			ts.User.Name,
			ts.Project.ProjectName,
			ts.Task,
			utils.AdjustHours(ts.HoursWorked),
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	totalRow := len(rows) + 2
	total := []any{"Total", nil, nil, nil, TotalAdjustedHours(hours)}
	if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", totalRow), &total); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(exportSheet, totalRow, totalRow, bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "A", "E", 18); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

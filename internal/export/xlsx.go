// Package export renders recap reports as spreadsheets.
package export

import (
	"io"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recap"
)

// Sheet names for the two recap partitions.
const (
	SheetMale   = "Male"
	SheetFemale = "Female"
)

var cellLabels = map[string]string{
	string(database.StatusPresent): "Present",
	string(database.StatusLate1):   "Late 1",
	string(database.StatusLate2):   "Late 2",
	string(database.StatusLate3):   "Late 3",
	recap.CellLeave:                "Leave",
	recap.CellAbsent:               "Absent",
}

// CellLabel returns the display text for a recap cell value.
func CellLabel(value string) string {
	if label, ok := cellLabels[value]; ok {
		return label
	}
	return value
}

// WriteRecapXLSX writes the report as a workbook with one sheet per partition.
// periodLabels maps period names to display labels; missing names are shown as-is.
func WriteRecapXLSX(w io.Writer, report *recap.Report, periodLabels map[string]string) error {
	f := xlsx.NewFile()

	for _, part := range []struct {
		name string
		rows []recap.Row
	}{
		{SheetMale, report.GroupA},
		{SheetFemale, report.GroupB},
	} {
		sheet, err := f.AddSheet(part.name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %s", part.name)
		}
		writeSheet(sheet, report.Columns, part.rows, periodLabels)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

func writeSheet(sheet *xlsx.Sheet, columns []recap.Column, rows []recap.Row, periodLabels map[string]string) {
	header := sheet.AddRow()
	addStrings(header, "External ID", "Name")
	for _, c := range columns {
		label := c.Period
		if l, ok := periodLabels[c.Period]; ok {
			label = l
		}
		addStrings(header, database.FormatDate(c.Date)+" "+label)
	}
	addStrings(header, "Present", "Late", "Leave", "Absent")

	for _, r := range rows {
		row := sheet.AddRow()
		addStrings(row, r.Identity.ExternalID, r.Identity.Name)
		for _, cell := range r.Cells {
			addStrings(row, CellLabel(cell))
		}
		late := r.Counts[string(database.StatusLate1)] + r.Counts[string(database.StatusLate2)] + r.Counts[string(database.StatusLate3)]
		for _, n := range []int{r.Counts[string(database.StatusPresent)], late, r.Counts[recap.CellLeave], r.Counts[recap.CellAbsent]} {
			row.AddCell().SetInt(n)
		}
	}
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// FileName returns the download name for a recap workbook.
func FileName(report *recap.Report) string {
	name := "recap_" + database.FormatDate(report.Start) + "_" + database.FormatDate(report.End)
	if report.ClassFilter != "" {
		name += "_" + strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
				return r
			}
			return '_'
		}, report.ClassFilter)
	}
	return name + ".xlsx"
}

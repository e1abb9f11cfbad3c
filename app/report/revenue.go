package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	SheetDaily    = "Daily"
	SheetTopItems = "Top items"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type DayRow struct {
	Day     time.Time
	Count   int64
	Gross   int64
	Average string
}

type ItemRow struct {
	ItemType string
	ItemID   uint64
	Count    int64
	Gross    int64
}

type RevenueReport struct {
	From     time.Time
	To       time.Time
	Currency string
	Days     []DayRow
	Count    int64
	Gross    int64
	Average  string
	TopItems []ItemRow
}

func (r *RevenueReport) FileName() string {
	return fmt.Sprintf("revenue_%s_%s.xlsx", r.From.Format("20060102"), r.To.Format("20060102"))
}

// BuildRevenueWorkbook renders the report as an XLSX workbook with one sheet of daily
// rows closed by a totals row, and one sheet of top selling items.
func BuildRevenueWorkbook(r *RevenueReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetDaily); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetTopItems); err != nil {
		return nil, err
	}

	daily := [][]interface{}{{"Date", "Orders", "Gross (" + r.Currency + ")", "Average order value"}}
	for _, day := range r.Days {
		daily = append(daily, []interface{}{day.Day.Format("2006-01-02"), day.Count, day.Gross, day.Average})
	}
	daily = append(daily, []interface{}{"Total", r.Count, r.Gross, r.Average})
	if err := writeRows(f, SheetDaily, daily); err != nil {
		return nil, err
	}

	top := [][]interface{}{{"Item type", "Item id", "Orders", "Gross (" + r.Currency + ")"}}
	for _, item := range r.TopItems {
		top = append(top, []interface{}{item.ItemType, item.ItemID, item.Count, item.Gross})
	}
	if err := writeRows(f, SheetTopItems, top); err != nil {
		return nil, err
	}

	for _, sheet := range []string{SheetDaily, SheetTopItems} {
		if err := f.SetColWidth(sheet, "A", "D", 20); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// Package export writes reports and tier tables as XLSX workbooks.
package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/report"
	"github.com/warp/wage-engine/variance"
)

// Sheet names of a report workbook.
const (
	SheetDaily      = "Daily"
	SheetVariance   = "Variance"
	SheetAllocation = "Allocation"
	SheetSummary    = "Summary"
	SheetByDate     = "By date"
	SheetScores     = "Scores"
)

// Exporter renders reports. Money cells are written as numbers with a
// thousands format; the decimal values are converted only here.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

type sheetWriter struct {
	f     *excelize.File
	name  string
	row   int
	money int
	err   error
}

func newSheet(f *excelize.File, name string, first bool, header []string, headerStyle, moneyStyle int) *sheetWriter {
	w := &sheetWriter{f: f, name: name, money: moneyStyle}
	if first {
		w.err = f.SetSheetName("Sheet1", name)
	} else {
		_, w.err = f.NewSheet(name)
	}
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	w.write(cells...)
	if w.err == nil {
		w.err = f.SetRowStyle(name, 1, 1, headerStyle)
	}
	return w
}

// write appends one row. Amount and decimal cells become numbers.
func (w *sheetWriter) write(cells ...any) {
	if w.err != nil {
		return
	}
	w.row++
	for i, c := range cells {
		axis, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			w.err = err
			return
		}
		var v any
		money := false
		switch x := c.(type) {
		case generic.Amount:
			v, money = x.Float64(), true
		case decimal.Decimal:
			v = x.InexactFloat64()
		case *decimal.Decimal:
			v = ""
			if x != nil {
				v = x.InexactFloat64()
			}
		case fmt.Stringer:
			v = x.String()
		default:
			v = c
		}
		if err := w.f.SetCellValue(w.name, axis, v); err != nil {
			w.err = err
			return
		}
		if money {
			if err := w.f.SetCellStyle(w.name, axis, axis, w.money); err != nil {
				w.err = err
				return
			}
		}
	}
}

// Workbook renders rep with one sheet per output table.
func (e *Exporter) Workbook(rep *report.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	fmtMoney := "#,##0"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &fmtMoney})
	if err != nil {
		f.Close()
		return nil, err
	}

	daily := newSheet(f, SheetDaily, true, []string{
		"Brand", "Store", "Profit center", "Date", "TC actual", "TC forecast", "Tier",
		"Computed wage", "Actual wage", "Difference",
		"Scheduled hours", "Actual hours", "Marketplace hours", "Total hours",
		"Baseline actual", "Baseline forecast", "Over cap",
	}, headerStyle, moneyStyle)
	for _, r := range rep.DailyVariance {
		daily.write(r.Brand, string(r.Store), string(r.CostCenter), r.Date.String(), r.TCActual, r.TCForecast, r.Tier.String(),
			r.Computed, r.Actual, r.Difference,
			r.HoursScheduled, r.HoursActual, r.HoursMarketplace, r.TotalHours,
			r.BaselineHoursActual, r.BaselineHoursForecast, r.Flags.Any())
	}

	vs := newSheet(f, SheetVariance, false, []string{
		"Profit center", "Month", "Granularity", "Computed wage", "Actual wage", "Difference", "Surplus",
	}, headerStyle, moneyStyle)
	for _, v := range rep.Variances {
		vs.write(string(v.CostCenter), v.Month.Label(), string(v.Granularity),
			v.TotalComputed, v.TotalActual, v.Difference, v.Surplus)
	}
	for _, u := range rep.Unallocated {
		vs.write(string(u.CostCenter), u.Month.Label(), "unallocated", "", "", "", u.Surplus, u.Reason)
	}

	as := newSheet(f, SheetAllocation, false, []string{
		"Month", "Profit center", "Employee", "Name", "Title", "Category", "Weight",
		"Hours", "Weighted hours", "Ratio", "Bonus",
	}, headerStyle, moneyStyle)
	for _, a := range rep.Allocations {
		as.write(a.Month.Label(), string(a.CostCenter), string(a.EmployeeID), a.Name, a.Title, a.Category, a.CategoryWeight,
			a.Hours, a.WeightedHours, a.Ratio, a.Bonus.Round(rep.Places))
	}

	ss := newSheet(f, SheetSummary, false, []string{
		"Brand", "Store", "Aggregation", "Days", "TC actual", "TC forecast",
		"Computed wage", "Actual wage", "Difference", "Total hours", "Hours vs baseline (%)", "Marketplace share (%)",
	}, headerStyle, moneyStyle)
	for _, s := range rep.Summaries {
		for _, agg := range []struct {
			label string
			a     variance.Aggregate
		}{{"Sum Total", s.Sum}, {"Average Total", s.Average}} {
			ss.write(s.Brand, string(s.Store), agg.label, s.Days, agg.a.TCActual, agg.a.TCForecast,
				agg.a.Computed, agg.a.Actual, agg.a.Difference, agg.a.TotalHours,
				agg.a.HoursVsBaselinePct, agg.a.MarketplaceSharePct)
		}
	}
	ss.write()
	ss.write("Total computed", "", "", "", "", "", rep.Totals.Computed)
	ss.write("Total actual", "", "", "", "", "", rep.Totals.Actual)
	ss.write("Total surplus", "", "", "", "", "", rep.Totals.Surplus)
	ss.write("Total allocated", "", "", "", "", "", rep.Totals.Allocated)
	ss.write("Total unallocated", "", "", "", "", "", rep.Totals.Unallocated)
	for _, fl := range rep.Failures {
		ss.write("Failed", fl.Unit, fl.Err.Error())
	}

	bd := newSheet(f, SheetByDate, false, []string{
		"Date", "Stores", "TC actual", "TC forecast", "Computed wage", "Actual wage", "Difference",
		"Floor", "Abs difference", "Actual hours", "Marketplace hours", "Total hours",
		"Baseline actual", "Baseline forecast",
	}, headerStyle, moneyStyle)
	for _, d := range rep.ByDate {
		bd.write(d.Date.String(), d.Stores, d.TCActual, d.TCForecast, d.Computed, d.Actual, d.Difference,
			d.Floor, d.AbsDifference, d.HoursActual, d.HoursMarketplace, d.TotalHours,
			d.BaselineHoursActual, d.BaselineHoursForecast)
	}

	sc := newSheet(f, SheetScores, false, []string{
		"Candidate", "Name", "Segment", "Week", "Shifts", "Weighted score", "Weight", "Hours", "Average",
	}, headerStyle, moneyStyle)
	for _, c := range rep.Scores {
		sc.write(c.ID, c.Name, c.Segment, "All", c.Shifts, c.WeightedScore, c.Weight, c.Hours, c.Average)
	}
	for _, c := range rep.WeeklyScores {
		sc.write(c.ID, c.Name, c.Segment, c.Week, c.Shifts, c.WeightedScore, c.Weight, c.Hours, c.Average)
	}

	for _, w := range []*sheetWriter{daily, vs, as, ss, bd, sc} {
		if w.err != nil {
			f.Close()
			return nil, fmt.Errorf("write sheet %s: %w", w.name, w.err)
		}
	}
	_ = f.SetColWidth(SheetDaily, "A", "C", 14)
	_ = f.SetColWidth(SheetAllocation, "D", "E", 24)
	f.SetActiveSheet(0)
	return f, nil
}

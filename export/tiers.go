package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/tier"
)

// SheetTiers is the sheet name of a tier table workbook.
const SheetTiers = "Tiers"

// TierHeader is the header row payroll's tier sheet uses; factory's sheet
// reader accepts it back.
var TierHeader = []string{
	"Brand", "Profit center", "Store", "Level",
	"TC/day from", "TC/day to", "TC/month from", "TC/month to",
	"Tier0 base/day", "Tier0 base/month", "Rate/TC",
}

// TierWorkbook renders tier rows with their monthly bounds materialized.
// Rows of stores whose schedule does not validate are written as stored,
// without derived values.
func (e *Exporter) TierWorkbook(rows []generic.TierRow, activityDays int64) (*excelize.File, error) {
	f := excelize.NewFile()
	fmtMoney := "#,##0"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &fmtMoney})
	if err != nil {
		f.Close()
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	w := newSheet(f, SheetTiers, true, TierHeader, headerStyle, moneyStyle)

	sorted := append([]generic.TierRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Store != sorted[j].Store {
			return sorted[i].Store < sorted[j].Store
		}
		return sorted[i].Level < sorted[j].Level
	})

	resolver := tier.NewResolver(sorted, activityDays)
	for _, r := range sorted {
		var monthLower, monthUpper, baseMonthly any = optional(r.MonthlyLower), optional(r.MonthlyUpper), ""
		var base any = ""
		if s, err := resolver.Schedule(r.Store); err == nil {
			for _, row := range s.Rows {
				if row.Level == r.Level {
					monthLower, monthUpper = row.Monthly.Lower, optional(row.Monthly.Upper)
				}
			}
			if r.Level == 0 {
				base, baseMonthly = s.BaseDaily, s.BaseMonthly
			}
		} else if r.Level == 0 {
			base = r.BaseWageTier0Daily
		}
		w.write(r.Brand, string(r.CostCenter), string(r.Store), r.Level.String(),
			r.DailyLower, optional(r.DailyUpper), monthLower, monthUpper,
			base, baseMonthly, r.MarginalRate)
	}
	if w.err != nil {
		f.Close()
		return nil, fmt.Errorf("write sheet %s: %w", SheetTiers, w.err)
	}
	return f, nil
}

func optional(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}

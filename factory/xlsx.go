package factory

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/tier"
)

// =============================================================================
// XLSX TIER SHEET
// =============================================================================

// Tier sheet columns. Headers are matched case-insensitively against every
// alias; the Vietnamese labels are the ones on payroll's sheet.
const (
	colBrand      = "brand"
	colCostCenter = "cost_center"
	colStore      = "store"
	colLevel      = "level"
	colDailyFrom  = "tc_day_from"
	colDailyTo    = "tc_day_to"
	colMonthFrom  = "tc_month_from"
	colMonthTo    = "tc_month_to"
	colBase       = "base_daily"
	colRate       = "rate"
)

var headerAliases = map[string][]string{
	colBrand:      {"brand"},
	colCostCenter: {"profit center", "cost center", "pc", "cost_center", "profit_center"},
	colStore:      {"store", "storevt", "store_vt"},
	colLevel:      {"level", "level_report", "tier"},
	colDailyFrom:  {"tc/day from", "tc/ngày từ", "tc_from_daily"},
	colDailyTo:    {"tc/day to", "tc/ngày đến", "tc", "tc_to_daily"},
	colMonthFrom:  {"tc/month from", "tc/tháng từ", "tier_from"},
	colMonthTo:    {"tc/month to", "tc/tháng đến", "tier_monthly"},
	colBase:       {"tier0 base/day", "lương cơ bản tại tier0/ngày", "luong_tt_tier0"},
	colRate:       {"rate/tc", "x-đơn giá tiền lương/tc", "bonus_per_tc_over"},
}

var requiredColumns = []string{colStore, colLevel, colDailyFrom, colDailyTo, colRate}

// TierSheetReader reads the tier reference sheet of a workbook.
type TierSheetReader struct {
	// Sheet is the sheet name; empty selects the first sheet.
	Sheet        string
	ActivityDays int64
}

// ReadTierSheet reads rows from an XLSX stream and validates every store.
func (r *TierSheetReader) ReadTierSheet(in io.Reader) ([]generic.TierRow, error) {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return r.ReadFile(f)
}

// ReadFile reads rows from an open workbook.
func (r *TierSheetReader) ReadFile(f *excelize.File) ([]generic.TierRow, error) {
	sheet := r.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheet)
	}

	cols := mapHeaders(rows[0])
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("sheet %q: missing column %q", sheet, headerAliases[c][0])
		}
	}

	var out []generic.TierRow
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		cell := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if cell(colStore) == "" {
			continue
		}

		tr, err := parseTierRow(cell)
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d: %w", sheet, i+1, err)
		}
		out = append(out, tr)
	}

	days := r.ActivityDays
	if days <= 0 {
		days = tier.DefaultActivityDays
	}
	resolver := tier.NewResolver(out, days)
	if invalid := resolver.Invalid(); len(invalid) > 0 {
		return nil, invalid[0].Err
	}
	return out, nil
}

func mapHeaders(header []string) map[string]int {
	lookup := make(map[string]string)
	for col, aliases := range headerAliases {
		for _, a := range aliases {
			lookup[a] = col
		}
	}
	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if col, ok := lookup[key]; ok {
			if _, dup := cols[col]; !dup {
				cols[col] = i
			}
		}
	}
	return cols
}

func parseTierRow(cell func(string) string) (generic.TierRow, error) {
	level, err := generic.ParseLevel(cell(colLevel))
	if err != nil {
		return generic.TierRow{}, err
	}
	tr := generic.TierRow{
		Brand:      cell(colBrand),
		CostCenter: generic.CostCenterID(cell(colCostCenter)),
		Store:      generic.StoreID(cell(colStore)),
		Level:      level,
	}

	if tr.DailyLower, err = parseCount(cell(colDailyFrom)); err != nil {
		return tr, fmt.Errorf("tc/day from: %w", err)
	}
	if tr.DailyUpper, err = parseOptionalCount(cell(colDailyTo)); err != nil {
		return tr, fmt.Errorf("tc/day to: %w", err)
	}
	if tr.MonthlyLower, err = parseOptionalCount(cell(colMonthFrom)); err != nil {
		return tr, fmt.Errorf("tc/month from: %w", err)
	}
	if tr.MonthlyUpper, err = parseOptionalCount(cell(colMonthTo)); err != nil {
		return tr, fmt.Errorf("tc/month to: %w", err)
	}
	// Payroll's sheet shows 0 as the tier0 monthly lower bound; treat only
	// non-tier0 monthly lowers as overrides.
	if level == 0 {
		tr.MonthlyLower = nil
	}

	rate, err := parseMoney(cell(colRate))
	if err != nil {
		return tr, fmt.Errorf("rate: %w", err)
	}
	tr.MarginalRate = generic.NewMoney(rate)

	if level == 0 {
		base, err := parseMoney(cell(colBase))
		if err != nil {
			return tr, fmt.Errorf("tier0 base: %w", err)
		}
		tr.BaseWageTier0Daily = generic.NewMoney(base)
	}
	return tr, nil
}

// Sheet numbers come formatted ("1,800,000"); separators are dropped.
func cleanNumber(s string) string {
	return strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(s)
}

func parseCount(s string) (int64, error) {
	s = cleanNumber(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("invalid tc count %q", s)
	}
	return d.IntPart(), nil
}

func parseOptionalCount(s string) (*int64, error) {
	if cleanNumber(s) == "" {
		return nil, nil
	}
	n, err := parseCount(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = cleanNumber(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

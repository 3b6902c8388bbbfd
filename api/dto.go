/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Request bodies accept amounts and hours as JSON numbers or strings; they
  are decoded straight into decimal.Decimal. Responses carry amounts as
  numbers (VND has no minor unit) and ratios as numbers or null.

TYPES:
  Reference data:
    ActivityRequest, EmployeeHoursRequest, ShiftScoreRequest,
    factory.ScheduleJSON

  Tiers:
    ScheduleDTO, TierBandDTO

  Wages:
    ComputeWageRequest, ComputedDTO

  Reports:
    QueryRequest, ReportDTO (+ row DTOs), RunDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/schedule.go: ScheduleJSON type
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/wage-engine/allocation"
	"github.com/warp/wage-engine/generic"
	"github.com/warp/wage-engine/report"
	"github.com/warp/wage-engine/score"
	"github.com/warp/wage-engine/tier"
	"github.com/warp/wage-engine/variance"
	"github.com/warp/wage-engine/wage"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ActivityRequest is one store-day of activity.
type ActivityRequest struct {
	Brand                 string          `json:"brand"`
	Store                 string          `json:"store"`
	CostCenter            string          `json:"cost_center"`
	Date                  string          `json:"date"`
	TCActual              int64           `json:"tc_actual"`
	TCForecast            int64           `json:"tc_forecast"`
	ActualWagePaid        decimal.Decimal `json:"actual_wage_paid"`
	HoursScheduled        decimal.Decimal `json:"hours_scheduled"`
	HoursActual           decimal.Decimal `json:"hours_actual"`
	HoursMarketplace      decimal.Decimal `json:"hours_marketplace"`
	BaselineHoursActual   decimal.Decimal `json:"baseline_hours_actual"`
	BaselineHoursForecast decimal.Decimal `json:"baseline_hours_forecast"`
}

// EmployeeHoursRequest is one employee's month in one cost center.
type EmployeeHoursRequest struct {
	EmployeeID string          `json:"employee_id"`
	Name       string          `json:"name"`
	Title      string          `json:"title"`
	CostCenter string          `json:"cost_center"`
	Store      string          `json:"store"`
	Month      string          `json:"month"` // YYYY-MM
	Category   string          `json:"category"`
	Hours      decimal.Decimal `json:"hours"`
}

// ShiftScoreRequest is one rated marketplace shift.
type ShiftScoreRequest struct {
	CandidateID   string          `json:"candidate_id"`
	Name          string          `json:"name"`
	Segment       string          `json:"segment"`
	Store         string          `json:"store"`
	Date          string          `json:"date"`
	WeightedScore decimal.Decimal `json:"weighted_score"`
	Weight        decimal.Decimal `json:"weight"`
	Hours         decimal.Decimal `json:"hours"`
}

// ComputeWageRequest evaluates the wage formula for one store and TC.
type ComputeWageRequest struct {
	Store       string `json:"store"`
	TC          int64  `json:"tc"`
	Granularity string `json:"granularity"`
}

// QueryRequest selects a report window.
type QueryRequest struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Stores      []string `json:"stores,omitempty"`
	CostCenters []string `json:"cost_centers,omitempty"`
	// Weekdays by name ("mon", "tuesday") or number (0 = Sunday).
	Weekdays    []string `json:"weekdays,omitempty"`
	Basis       string   `json:"basis,omitempty"`
	Granularity string   `json:"granularity,omitempty"`
}

// CloseMonthRequest triggers a month close by hand.
type CloseMonthRequest struct {
	Month string `json:"month"` // YYYY-MM
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TierBandDTO is one tier with both bound sets materialized.
type TierBandDTO struct {
	Level       string  `json:"level"`
	TCDayFrom   int64   `json:"tc_day_from"`
	TCDayTo     *int64  `json:"tc_day_to"`
	TCMonthFrom int64   `json:"tc_month_from"`
	TCMonthTo   *int64  `json:"tc_month_to"`
	Rate        float64 `json:"rate"`
}

// ScheduleDTO is one store's validated schedule.
type ScheduleDTO struct {
	Store        string        `json:"store"`
	Brand        string        `json:"brand"`
	CostCenter   string        `json:"cost_center"`
	ActivityDays int64         `json:"activity_days"`
	BaseDaily    float64       `json:"base_daily"`
	BaseMonthly  float64       `json:"base_monthly"`
	Tiers        []TierBandDTO `json:"tiers"`
	// Warning is set when the wage drops at a band boundary.
	Warning string `json:"warning,omitempty"`
}

// ComputedDTO is one computed wage.
type ComputedDTO struct {
	Brand       string  `json:"brand,omitempty"`
	Store       string  `json:"store"`
	CostCenter  string  `json:"cost_center,omitempty"`
	Date        string  `json:"date,omitempty"`
	Month       string  `json:"month,omitempty"`
	Granularity string  `json:"granularity"`
	TC          int64   `json:"tc"`
	Days        int     `json:"days,omitempty"`
	Tier        string  `json:"tier"`
	TierLower   int64   `json:"tier_lower"`
	Rate        float64 `json:"rate"`
	Base        float64 `json:"base"`
	Marginal    float64 `json:"marginal"`
	Total       float64 `json:"total"`
}

// DailyVarianceDTO is one store-day of signed reconciliation.
type DailyVarianceDTO struct {
	Brand                 string  `json:"brand"`
	Store                 string  `json:"store"`
	CostCenter            string  `json:"cost_center"`
	Date                  string  `json:"date"`
	TCActual              int64   `json:"tc_actual"`
	TCForecast            int64   `json:"tc_forecast"`
	Tier                  string  `json:"tier"`
	Computed              float64 `json:"computed"`
	Actual                float64 `json:"actual"`
	Difference            float64 `json:"difference"`
	Floor                 float64 `json:"floor"`
	AbsDifference         float64 `json:"abs_difference"`
	HoursScheduled        float64 `json:"hours_scheduled"`
	HoursActual           float64 `json:"hours_actual"`
	HoursMarketplace      float64 `json:"hours_marketplace"`
	TotalHours            float64 `json:"total_hours"`
	BaselineHoursActual   float64 `json:"baseline_hours_actual"`
	BaselineHoursForecast float64 `json:"baseline_hours_forecast"`
	ScheduledOverCap      bool    `json:"scheduled_over_cap"`
	ActualOverScheduled   bool    `json:"actual_over_scheduled"`
	MarketplaceOverCap    bool    `json:"marketplace_over_cap"`
}

// AggregateDTO is a sum or mean over a store's days.
type AggregateDTO struct {
	TCActual                 float64  `json:"tc_actual"`
	TCForecast               float64  `json:"tc_forecast"`
	Computed                 float64  `json:"computed"`
	Actual                   float64  `json:"actual"`
	Difference               float64  `json:"difference"`
	TotalHours               float64  `json:"total_hours"`
	HoursVsBaselinePct       *float64 `json:"hours_vs_baseline_pct"`
	MarketplaceSharePct      *float64 `json:"marketplace_share_pct"`
	MarketplaceVsBaselinePct *float64 `json:"marketplace_vs_baseline_pct"`
}

// SummaryDTO is one store's window.
type SummaryDTO struct {
	Brand       string       `json:"brand"`
	Store       string       `json:"store"`
	CostCenter  string       `json:"cost_center"`
	Days        int          `json:"days"`
	FlaggedDays int          `json:"flagged_days"`
	Sum         AggregateDTO `json:"sum"`
	Average     AggregateDTO `json:"average"`
}

// DateRowDTO is one day summed over every store.
type DateRowDTO struct {
	Date                  string  `json:"date"`
	Stores                int     `json:"stores"`
	TCActual              int64   `json:"tc_actual"`
	TCForecast            int64   `json:"tc_forecast"`
	Computed              float64 `json:"computed"`
	Actual                float64 `json:"actual"`
	Difference            float64 `json:"difference"`
	Floor                 float64 `json:"floor"`
	AbsDifference         float64 `json:"abs_difference"`
	HoursActual           float64 `json:"hours_actual"`
	HoursMarketplace      float64 `json:"hours_marketplace"`
	TotalHours            float64 `json:"total_hours"`
	BaselineHoursActual   float64 `json:"baseline_hours_actual"`
	BaselineHoursForecast float64 `json:"baseline_hours_forecast"`
}

// CandidateScoreDTO is a candidate's weighted rating average.
type CandidateScoreDTO struct {
	CandidateID   string   `json:"candidate_id"`
	Name          string   `json:"name"`
	Segment       string   `json:"segment"`
	Week          string   `json:"week,omitempty"`
	Shifts        int      `json:"shifts"`
	WeightedScore float64  `json:"weighted_score"`
	Weight        float64  `json:"weight"`
	Hours         float64  `json:"hours"`
	Average       *float64 `json:"average"`
}

// VarianceDTO is one cost-center-month.
type VarianceDTO struct {
	CostCenter    string   `json:"cost_center"`
	Month         string   `json:"month"`
	Granularity   string   `json:"granularity"`
	TotalComputed float64  `json:"total_computed"`
	TotalActual   float64  `json:"total_actual"`
	Difference    float64  `json:"difference"`
	Surplus       float64  `json:"surplus"`
	Stores        []string `json:"stores"`
}

// AllocationDTO is one employee's bonus.
type AllocationDTO struct {
	EmployeeID     string  `json:"employee_id"`
	Name           string  `json:"name,omitempty"`
	Title          string  `json:"title,omitempty"`
	CostCenter     string  `json:"cost_center"`
	Store          string  `json:"store,omitempty"`
	Month          string  `json:"month"`
	Category       string  `json:"category"`
	CategoryWeight float64 `json:"category_weight"`
	Hours          float64 `json:"hours"`
	WeightedHours  float64 `json:"weighted_hours"`
	Ratio          float64 `json:"ratio"`
	Bonus          float64 `json:"bonus"`
}

// UnallocatedDTO is surplus left undistributed.
type UnallocatedDTO struct {
	CostCenter string  `json:"cost_center"`
	Month      string  `json:"month"`
	Surplus    float64 `json:"surplus"`
	Reason     string  `json:"reason"`
}

// FailureDTO is one failed unit.
type FailureDTO struct {
	Unit  string `json:"unit"`
	Error string `json:"error"`
}

// TotalsDTO is the report headline.
type TotalsDTO struct {
	Computed    float64 `json:"computed"`
	Actual      float64 `json:"actual"`
	Difference  float64 `json:"difference"`
	Surplus     float64 `json:"surplus"`
	Allocated   float64 `json:"allocated"`
	Unallocated float64 `json:"unallocated"`
}

// ReportDTO is a full report.
type ReportDTO struct {
	From          string              `json:"from"`
	To            string              `json:"to"`
	Basis         string              `json:"basis"`
	Granularity   string              `json:"granularity"`
	Daily         []ComputedDTO       `json:"daily"`
	Monthly       []ComputedDTO       `json:"monthly"`
	DailyVariance []DailyVarianceDTO  `json:"daily_variance"`
	Summaries     []SummaryDTO        `json:"summaries"`
	ByDate        []DateRowDTO        `json:"by_date"`
	Variances     []VarianceDTO       `json:"variances"`
	Allocations   []AllocationDTO     `json:"allocations"`
	Unallocated   []UnallocatedDTO    `json:"unallocated"`
	Scores        []CandidateScoreDTO `json:"scores"`
	WeeklyScores  []CandidateScoreDTO `json:"weekly_scores"`
	Failures      []FailureDTO        `json:"failures"`
	Totals        TotalsDTO           `json:"totals"`
	GeneratedAt   string              `json:"generated_at"`
}

// RunDTO is one month-close run.
type RunDTO struct {
	ID               string  `json:"id"`
	Month            string  `json:"month"`
	Status           string  `json:"status"`
	TotalComputed    float64 `json:"total_computed"`
	TotalActual      float64 `json:"total_actual"`
	TotalSurplus     float64 `json:"total_surplus"`
	TotalAllocated   float64 `json:"total_allocated"`
	TotalUnallocated float64 `json:"total_unallocated"`
	FailureCount     int     `json:"failure_count"`
	Error            string  `json:"error,omitempty"`
	StartedAt        string  `json:"started_at"`
	CompletedAt      string  `json:"completed_at,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// REQUEST CONVERSION
// =============================================================================

func (a ActivityRequest) toRecord() (generic.ActivityRecord, error) {
	if a.Store == "" {
		return generic.ActivityRecord{}, fmt.Errorf("%w: store is required", generic.ErrInvalidInput)
	}
	date, err := generic.ParseDate(a.Date)
	if err != nil {
		return generic.ActivityRecord{}, fmt.Errorf("%w: %v", generic.ErrInvalidInput, err)
	}
	if a.TCActual < 0 || a.TCForecast < 0 {
		return generic.ActivityRecord{}, fmt.Errorf("%s %s: %w", a.Store, a.Date, generic.ErrNegativeTC)
	}
	return generic.ActivityRecord{
		Brand:                 a.Brand,
		Store:                 generic.StoreID(a.Store),
		CostCenter:            generic.CostCenterID(a.CostCenter),
		Date:                  date,
		TCActual:              a.TCActual,
		TCForecast:            a.TCForecast,
		ActualWagePaid:        generic.NewMoney(a.ActualWagePaid),
		HoursScheduled:        a.HoursScheduled,
		HoursActual:           a.HoursActual,
		HoursMarketplace:      a.HoursMarketplace,
		BaselineHoursActual:   a.BaselineHoursActual,
		BaselineHoursForecast: a.BaselineHoursForecast,
	}, nil
}

func (e EmployeeHoursRequest) toRecord() (generic.EmployeeHours, error) {
	if e.EmployeeID == "" || e.CostCenter == "" {
		return generic.EmployeeHours{}, fmt.Errorf("%w: employee_id and cost_center are required", generic.ErrInvalidInput)
	}
	month, err := generic.ParseMonth(e.Month)
	if err != nil {
		return generic.EmployeeHours{}, fmt.Errorf("%w: %v", generic.ErrInvalidInput, err)
	}
	if e.Hours.IsNegative() {
		return generic.EmployeeHours{}, fmt.Errorf("%s: %w", e.EmployeeID, generic.ErrNegativeHours)
	}
	return generic.EmployeeHours{
		EmployeeID: generic.EmployeeID(e.EmployeeID),
		Name:       e.Name,
		Title:      e.Title,
		CostCenter: generic.CostCenterID(e.CostCenter),
		Store:      generic.StoreID(e.Store),
		Month:      month,
		Category:   e.Category,
		Hours:      e.Hours,
	}, nil
}

func (s ShiftScoreRequest) toRecord() (generic.ShiftScore, error) {
	date, err := generic.ParseDate(s.Date)
	if err != nil {
		return generic.ShiftScore{}, fmt.Errorf("%w: %v", generic.ErrInvalidInput, err)
	}
	rec := generic.ShiftScore{
		CandidateID:   strings.TrimSpace(s.CandidateID),
		Name:          s.Name,
		Segment:       s.Segment,
		Store:         generic.StoreID(s.Store),
		Date:          date,
		WeightedScore: s.WeightedScore,
		Weight:        s.Weight,
		Hours:         s.Hours,
	}
	return rec, score.Validate(rec)
}

func (q QueryRequest) toQuery() (report.Query, error) {
	var out report.Query
	var err error
	if out.From, err = generic.ParseDate(q.From); err != nil {
		return out, fmt.Errorf("%w: from: %v", generic.ErrInvalidPeriod, err)
	}
	if out.To, err = generic.ParseDate(q.To); err != nil {
		return out, fmt.Errorf("%w: to: %v", generic.ErrInvalidPeriod, err)
	}
	for _, s := range q.Stores {
		out.Stores = append(out.Stores, generic.StoreID(s))
	}
	for _, c := range q.CostCenters {
		out.CostCenters = append(out.CostCenters, generic.CostCenterID(c))
	}
	for _, d := range q.Weekdays {
		wd, err := parseWeekday(d)
		if err != nil {
			return out, err
		}
		out.Weekdays = append(out.Weekdays, wd)
	}
	out.Basis = wage.TCBasis(strings.ToLower(strings.TrimSpace(q.Basis)))
	out.Granularity = generic.Granularity(strings.ToLower(strings.TrimSpace(q.Granularity)))
	return out, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) == 1 && v[0] >= '0' && v[0] <= '6' {
		return time.Weekday(v[0] - '0'), nil
	}
	if len(v) >= 3 {
		if wd, ok := weekdayNames[v[:3]]; ok {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", generic.ErrInvalidInput, s)
}

// =============================================================================
// RESPONSE CONVERSION
// =============================================================================

func toFloat(d decimal.Decimal) float64 { return d.InexactFloat64() }

func toFloatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func toScheduleDTO(s *tier.Schedule) ScheduleDTO {
	dto := ScheduleDTO{
		Store:        string(s.Store),
		Brand:        s.Brand,
		CostCenter:   string(s.CostCenter),
		ActivityDays: s.ActivityDays,
		BaseDaily:    s.BaseDaily.Float64(),
		BaseMonthly:  s.BaseMonthly.Float64(),
		Tiers:        make([]TierBandDTO, 0, len(s.Rows)),
	}
	for _, r := range s.Rows {
		dto.Tiers = append(dto.Tiers, TierBandDTO{
			Level:       r.Level.String(),
			TCDayFrom:   r.Daily.Lower,
			TCDayTo:     r.Daily.Upper,
			TCMonthFrom: r.Monthly.Lower,
			TCMonthTo:   r.Monthly.Upper,
			Rate:        r.Rate.Float64(),
		})
	}
	if err := s.CheckMonotone(generic.GranularityDaily); err != nil {
		dto.Warning = err.Error()
	}
	return dto
}

func toComputedDTO(c wage.Computed) ComputedDTO {
	dto := ComputedDTO{
		Brand:       c.Brand,
		Store:       string(c.Store),
		CostCenter:  string(c.CostCenter),
		Granularity: string(c.Granularity),
		TC:          c.TC,
		Days:        c.Days,
		Tier:        c.Tier.String(),
		TierLower:   c.TierLower,
		Rate:        c.Rate.Float64(),
		Base:        c.Base.Float64(),
		Marginal:    c.Marginal.Float64(),
		Total:       c.Total.Float64(),
	}
	if !c.Date.IsZero() {
		dto.Date = c.Date.String()
	}
	if !c.Month.IsZero() {
		dto.Month = c.Month.String()
	}
	return dto
}

func toComputedDTOs(rows []wage.Computed) []ComputedDTO {
	out := make([]ComputedDTO, len(rows))
	for i, c := range rows {
		out[i] = toComputedDTO(c)
	}
	return out
}

func toAggregateDTO(a variance.Aggregate) AggregateDTO {
	return AggregateDTO{
		TCActual:                 toFloat(a.TCActual),
		TCForecast:               toFloat(a.TCForecast),
		Computed:                 a.Computed.Float64(),
		Actual:                   a.Actual.Float64(),
		Difference:               a.Difference.Float64(),
		TotalHours:               toFloat(a.TotalHours),
		HoursVsBaselinePct:       toFloatPtr(a.HoursVsBaselinePct),
		MarketplaceSharePct:      toFloatPtr(a.MarketplaceSharePct),
		MarketplaceVsBaselinePct: toFloatPtr(a.MarketplaceVsBaselinePct),
	}
}

func toAllocationDTO(a allocation.Allocation, places int32) AllocationDTO {
	return AllocationDTO{
		EmployeeID:     string(a.EmployeeID),
		Name:           a.Name,
		Title:          a.Title,
		CostCenter:     string(a.CostCenter),
		Store:          string(a.Store),
		Month:          a.Month.String(),
		Category:       a.Category,
		CategoryWeight: toFloat(a.CategoryWeight),
		Hours:          toFloat(a.Hours),
		WeightedHours:  toFloat(a.WeightedHours),
		Ratio:          toFloat(a.Ratio),
		Bonus:          a.Bonus.Round(places).Float64(),
	}
}

func toCandidateScoreDTOs(cs []score.Candidate) []CandidateScoreDTO {
	out := make([]CandidateScoreDTO, len(cs))
	for i, c := range cs {
		out[i] = CandidateScoreDTO{
			CandidateID:   c.ID,
			Name:          c.Name,
			Segment:       c.Segment,
			Week:          c.Week,
			Shifts:        c.Shifts,
			WeightedScore: toFloat(c.WeightedScore),
			Weight:        toFloat(c.Weight),
			Hours:         toFloat(c.Hours),
			Average:       toFloatPtr(c.Average),
		}
	}
	return out
}

func toReportDTO(rep *report.Report) ReportDTO {
	dto := ReportDTO{
		From:          rep.Query.From.String(),
		To:            rep.Query.To.String(),
		Basis:         string(rep.Query.Basis),
		Granularity:   string(rep.Query.Granularity),
		Daily:         toComputedDTOs(rep.Daily),
		Monthly:       toComputedDTOs(rep.Monthly),
		DailyVariance: make([]DailyVarianceDTO, 0, len(rep.DailyVariance)),
		Summaries:     make([]SummaryDTO, 0, len(rep.Summaries)),
		ByDate:        make([]DateRowDTO, 0, len(rep.ByDate)),
		Variances:     make([]VarianceDTO, 0, len(rep.Variances)),
		Allocations:   make([]AllocationDTO, 0, len(rep.Allocations)),
		Unallocated:   make([]UnallocatedDTO, 0, len(rep.Unallocated)),
		Scores:        toCandidateScoreDTOs(rep.Scores),
		WeeklyScores:  toCandidateScoreDTOs(rep.WeeklyScores),
		Failures:      make([]FailureDTO, 0, len(rep.Failures)),
		Totals: TotalsDTO{
			Computed:    rep.Totals.Computed.Float64(),
			Actual:      rep.Totals.Actual.Float64(),
			Difference:  rep.Totals.Difference.Float64(),
			Surplus:     rep.Totals.Surplus.Float64(),
			Allocated:   rep.Totals.Allocated.Float64(),
			Unallocated: rep.Totals.Unallocated.Float64(),
		},
		GeneratedAt: rep.GeneratedAt.UTC().Format(time.RFC3339),
	}
	for _, r := range rep.DailyVariance {
		dto.DailyVariance = append(dto.DailyVariance, DailyVarianceDTO{
			Brand:                 r.Brand,
			Store:                 string(r.Store),
			CostCenter:            string(r.CostCenter),
			Date:                  r.Date.String(),
			TCActual:              r.TCActual,
			TCForecast:            r.TCForecast,
			Tier:                  r.Tier.String(),
			Computed:              r.Computed.Float64(),
			Actual:                r.Actual.Float64(),
			Difference:            r.Difference.Float64(),
			Floor:                 r.Floor.Float64(),
			AbsDifference:         r.AbsDifference.Float64(),
			HoursScheduled:        toFloat(r.HoursScheduled),
			HoursActual:           toFloat(r.HoursActual),
			HoursMarketplace:      toFloat(r.HoursMarketplace),
			TotalHours:            toFloat(r.TotalHours),
			BaselineHoursActual:   toFloat(r.BaselineHoursActual),
			BaselineHoursForecast: toFloat(r.BaselineHoursForecast),
			ScheduledOverCap:      r.Flags.ScheduledOverCap,
			ActualOverScheduled:   r.Flags.ActualOverScheduled,
			MarketplaceOverCap:    r.Flags.MarketplaceOverCap,
		})
	}
	for _, s := range rep.Summaries {
		dto.Summaries = append(dto.Summaries, SummaryDTO{
			Brand:       s.Brand,
			Store:       string(s.Store),
			CostCenter:  string(s.CostCenter),
			Days:        s.Days,
			FlaggedDays: s.FlaggedDays,
			Sum:         toAggregateDTO(s.Sum),
			Average:     toAggregateDTO(s.Average),
		})
	}
	for _, d := range rep.ByDate {
		dto.ByDate = append(dto.ByDate, DateRowDTO{
			Date:                  d.Date.String(),
			Stores:                d.Stores,
			TCActual:              d.TCActual,
			TCForecast:            d.TCForecast,
			Computed:              d.Computed.Float64(),
			Actual:                d.Actual.Float64(),
			Difference:            d.Difference.Float64(),
			Floor:                 d.Floor.Float64(),
			AbsDifference:         d.AbsDifference.Float64(),
			HoursActual:           toFloat(d.HoursActual),
			HoursMarketplace:      toFloat(d.HoursMarketplace),
			TotalHours:            toFloat(d.TotalHours),
			BaselineHoursActual:   toFloat(d.BaselineHoursActual),
			BaselineHoursForecast: toFloat(d.BaselineHoursForecast),
		})
	}
	for _, v := range rep.Variances {
		stores := make([]string, len(v.Stores))
		for i, s := range v.Stores {
			stores[i] = string(s)
		}
		dto.Variances = append(dto.Variances, VarianceDTO{
			CostCenter:    string(v.CostCenter),
			Month:         v.Month.String(),
			Granularity:   string(v.Granularity),
			TotalComputed: v.TotalComputed.Float64(),
			TotalActual:   v.TotalActual.Float64(),
			Difference:    v.Difference.Float64(),
			Surplus:       v.Surplus.Float64(),
			Stores:        stores,
		})
	}
	for _, a := range rep.Allocations {
		dto.Allocations = append(dto.Allocations, toAllocationDTO(a, rep.Places))
	}
	for _, u := range rep.Unallocated {
		dto.Unallocated = append(dto.Unallocated, UnallocatedDTO{
			CostCenter: string(u.CostCenter),
			Month:      u.Month.String(),
			Surplus:    u.Surplus.Float64(),
			Reason:     u.Reason,
		})
	}
	for _, f := range rep.Failures {
		dto.Failures = append(dto.Failures, FailureDTO{Unit: f.Unit, Error: f.Err.Error()})
	}
	return dto
}

func toRunDTO(r generic.ReportRun) RunDTO {
	dto := RunDTO{
		ID:               r.ID,
		Month:            r.Month.String(),
		Status:           r.Status,
		TotalComputed:    r.TotalComputed.Float64(),
		TotalActual:      r.TotalActual.Float64(),
		TotalSurplus:     r.TotalSurplus.Float64(),
		TotalAllocated:   r.TotalAllocated.Float64(),
		TotalUnallocated: r.TotalUnallocated.Float64(),
		FailureCount:     r.FailureCount,
		Error:            r.Error,
		StartedAt:        r.StartedAt.UTC().Format(time.RFC3339),
	}
	if !r.CompletedAt.IsZero() {
		dto.CompletedAt = r.CompletedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

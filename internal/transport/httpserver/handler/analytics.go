package handler

import (
	"net/http"
	"time"

	analyticsdomain "household-ledger/internal/domain/analytics"
	"household-ledger/internal/transport/httpserver/middleware"
)

type totalsResponse struct {
	Count int64  `json:"count"`
	Total string `json:"total"`
}

type userRowResponse struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Count    int64  `json:"count"`
	Total    string `json:"total"`
}

type productRowResponse struct {
	ProductName string `json:"product_name"`
	Count       int64  `json:"count"`
	Total       string `json:"total"`
}

type monthRowResponse struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Count int64  `json:"count"`
	Total string `json:"total"`
}

type gapResponse struct {
	UserTotal     string `json:"user_total"`
	HomeTotal     string `json:"home_total"`
	Average       string `json:"average"`
	AmountToReach string `json:"amount_to_reach"`
	IsAbove       bool   `json:"is_above"`
	MemberCount   int64  `json:"member_count"`
}

type dashboardResponse struct {
	Username          string                 `json:"username"`
	ContributionCount int64                  `json:"contribution_count"`
	Balance           string                 `json:"balance"`
	SentTransfers     int64                  `json:"sent_transfers"`
	ReceivedTransfers int64                  `json:"received_transfers"`
	Recent            []contributionResponse `json:"recent"`
	Gap               gapResponse            `json:"gap"`
}

type homeReportResponse struct {
	HomeID      string               `json:"home_id"`
	Totals      totalsResponse       `json:"totals"`
	MemberCount int64                `json:"member_count"`
	Average     string               `json:"average"`
	ByUser      []userRowResponse    `json:"by_user"`
	ByProduct   []productRowResponse `json:"by_product"`
	ByMonth     []monthRowResponse   `json:"by_month"`
}

type monthlySummaryResponse struct {
	Year      int                  `json:"year"`
	Month     int                  `json:"month"`
	Totals    totalsResponse       `json:"totals"`
	ByUser    []userRowResponse    `json:"by_user"`
	ByProduct []productRowResponse `json:"by_product"`
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	stats, err := h.Analytics.UserStatistics(r.Context(), user.Username)
	if err != nil {
		h.fail(w, r, "analytics.dashboard: statistics failed", err, "username", user.Username)
		return
	}

	recent := make([]contributionResponse, 0, len(stats.Recent))
	for _, item := range stats.Recent {
		recent = append(recent, toContributionResponse(item, user.FullName))
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Username:          stats.Username,
		ContributionCount: stats.ContributionCount,
		Balance:           stats.Balance.StringFixed(2),
		SentTransfers:     stats.SentTransfers,
		ReceivedTransfers: stats.ReceivedTransfers,
		Recent:            recent,
		Gap:               toGapResponse(stats.Gap),
	})
}

func (h *Handlers) HomeAnalytics(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	homeID, err := homeIDOf(user)
	if err != nil {
		h.fail(w, r, "analytics.home: user has no home", err, "username", user.Username)
		return
	}

	report, err := h.Analytics.HomeReport(r.Context(), homeID)
	if err != nil {
		h.fail(w, r, "analytics.home: report failed", err, "home_id", homeID)
		return
	}

	writeJSON(w, http.StatusOK, homeReportResponse{
		HomeID:      report.HomeID,
		Totals:      toTotalsResponse(report.Totals),
		MemberCount: report.MemberCount,
		Average:     report.Average.StringFixed(2),
		ByUser:      toUserRows(report.ByUser),
		ByProduct:   toProductRows(report.ByProduct),
		ByMonth:     toMonthRows(report.ByMonth),
	})
}

// MonthlyAnalytics groups the home's contributions by month. Without filters
// it covers the current month; year alone covers that whole year.
func (h *Handlers) MonthlyAnalytics(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	homeID, err := homeIDOf(user)
	if err != nil {
		h.fail(w, r, "analytics.monthly: user has no home", err, "username", user.Username)
		return
	}
	year, err := parseOptionalInt(r.URL.Query().Get("year"))
	if err != nil {
		h.fail(w, r, "analytics.monthly: invalid year", analyticsdomain.ErrInvalidPeriod)
		return
	}
	month, err := parseOptionalInt(r.URL.Query().Get("month"))
	if err != nil {
		h.fail(w, r, "analytics.monthly: invalid month", analyticsdomain.ErrInvalidPeriod)
		return
	}

	rows, err := h.Analytics.MonthlyRollup(r.Context(), homeID, analyticsdomain.MonthlyFilter{Year: year, Month: month})
	if err != nil {
		h.fail(w, r, "analytics.monthly: rollup failed", err, "home_id", homeID)
		return
	}

	writeJSON(w, http.StatusOK, toMonthRows(rows))
}

func (h *Handlers) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	homeID, err := homeIDOf(user)
	if err != nil {
		h.fail(w, r, "analytics.monthly_summary: user has no home", err, "username", user.Username)
		return
	}
	period, err := monthFromQuery(r.URL.Query().Get("year"), r.URL.Query().Get("month"))
	if err != nil {
		h.fail(w, r, "analytics.monthly_summary: invalid period", err, "home_id", homeID)
		return
	}
	from := time.Now().UTC()
	if period != nil {
		from = period.From
	}

	summary, err := h.Analytics.MonthlySummary(r.Context(), homeID, from.Year(), int(from.Month()))
	if err != nil {
		h.fail(w, r, "analytics.monthly_summary: summary failed", err, "home_id", homeID)
		return
	}

	writeJSON(w, http.StatusOK, monthlySummaryResponse{
		Year:      summary.Year,
		Month:     summary.Month,
		Totals:    toTotalsResponse(summary.Totals),
		ByUser:    toUserRows(summary.ByUser),
		ByProduct: toProductRows(summary.ByProduct),
	})
}

func toGapResponse(gap analyticsdomain.Gap) gapResponse {
	return gapResponse{
		UserTotal:     gap.UserTotal.StringFixed(2),
		HomeTotal:     gap.HomeTotal.StringFixed(2),
		Average:       gap.Average.StringFixed(2),
		AmountToReach: gap.AmountToReach.StringFixed(2),
		IsAbove:       gap.IsAbove,
		MemberCount:   gap.MemberCount,
	}
}

func toTotalsResponse(totals analyticsdomain.Totals) totalsResponse {
	return totalsResponse{Count: totals.Count, Total: totals.Total.StringFixed(2)}
}

func toUserRows(rows []analyticsdomain.UserRow) []userRowResponse {
	result := make([]userRowResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, userRowResponse{
			Username: row.Username,
			FullName: row.FullName,
			Count:    row.Count,
			Total:    row.Total.StringFixed(2),
		})
	}
	return result
}

func toProductRows(rows []analyticsdomain.ProductRow) []productRowResponse {
	result := make([]productRowResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, productRowResponse{
			ProductName: row.ProductName,
			Count:       row.Count,
			Total:       row.Total.StringFixed(2),
		})
	}
	return result
}

func toMonthRows(rows []analyticsdomain.MonthRow) []monthRowResponse {
	result := make([]monthRowResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, monthRowResponse{
			Year:  row.Year,
			Month: row.Month,
			Count: row.Count,
			Total: row.Total.StringFixed(2),
		})
	}
	return result
}

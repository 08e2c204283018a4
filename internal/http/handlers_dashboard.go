package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"salesbook/internal/ledger"
	"salesbook/internal/log"
)

type periodOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type periodsResponse struct {
	Granularity ledger.Granularity `json:"granularity"`
	Periods     []periodOption     `json:"periods"`
	// Selected is the requested period while it still exists, else the
	// most recent one.
	Selected        string          `json:"selected"`
	SelectedSummary *ledger.Summary `json:"selectedSummary,omitempty"`
	Period1         string          `json:"period1"`
	Period2         string          `json:"period2"`
}

type compareResponse struct {
	Comparison *ledger.Comparison `json:"comparison"`
	// Reason explains a nil comparison.
	Reason string `json:"reason,omitempty"`
}

// handleDashboard serves the window dashboard: ?period=thisMonth|lastMonth|thisYear.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	raw := q.Get("period")
	if raw == "" {
		raw = q.Get("window")
	}
	window, err := ledger.ParseWindow(raw)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	txs, err := s.ledger.List(ctx, owner)
	if err != nil {
		serviceError(ctx, log.OpRead, err).Write(w)
		return
	}
	NewJSONResponse().Data(ledger.BuildDashboard(txs, window, s.now())).Write(w)
}

// handlePeriods lists the periods present in the ledger for the period
// filter, with the selected period's summary and default comparison pair.
func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	g, err := ledger.ParseGranularity(q.Get("granularity"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	txs, err := s.ledger.List(ctx, owner)
	if err != nil {
		serviceError(ctx, log.OpRead, err).Write(w)
		return
	}

	keys := ledger.ExtractPeriods(txs, g)
	resp := periodsResponse{
		Granularity: g,
		Periods:     make([]periodOption, len(keys)),
		Selected:    ledger.SelectPeriod(keys, strings.TrimSpace(q.Get("current"))),
	}
	for i, k := range keys {
		resp.Periods[i] = periodOption{Key: k, Label: ledger.FormatPeriodLabel(k, g)}
	}
	if resp.Selected != "" {
		summary := ledger.Summarize(ledger.FilterByPeriod(txs, resp.Selected))
		resp.SelectedSummary = &summary
	}
	resp.Period1, resp.Period2 = ledger.DefaultComparisonPeriods(keys)
	NewJSONResponse().Data(resp).Write(w)
}

// handleCompare compares ?period1 against ?period2, defaulting to the two
// most recent periods of ?granularity. Periods without data yield a null
// comparison with a reason rather than zeros.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	g, err := ledger.ParseGranularity(q.Get("granularity"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	txs, err := s.ledger.List(ctx, owner)
	if err != nil {
		serviceError(ctx, log.OpRead, err).Write(w)
		return
	}

	p1 := strings.TrimSpace(q.Get("period1"))
	p2 := strings.TrimSpace(q.Get("period2"))
	var resp compareResponse
	resp.Comparison, err = ledger.ResolveComparison(txs, p1, p2, g)
	switch {
	case errors.Is(err, ledger.ErrInvalidPeriodKey):
		BadRequestError(err.Error()).Write(w)
		return
	case errors.Is(err, ledger.ErrNotEnoughPeriods):
		resp.Reason = "비교하려면 기간이 2개 이상 필요합니다"
	case errors.Is(err, ledger.ErrPeriodNotFound):
		resp.Reason = "선택한 기간에 데이터가 없습니다"
	}
	NewJSONResponse().Data(resp).Write(w)
}

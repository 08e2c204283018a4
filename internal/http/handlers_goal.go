package http

import (
	"context"
	"net/http"
	"strings"

	"salesbook/internal/core"
	"salesbook/internal/ledger"
	"salesbook/internal/log"
	"salesbook/internal/services"
)

type saveGoalRequest struct {
	GoalType   core.GoalType `json:"goalType"`
	Year       int           `json:"year"`
	Month      int           `json:"month"`
	IncomeGoal int64         `json:"incomeGoal"`
	ProfitGoal int64         `json:"profitGoal"`
}

type goalProgressResponse struct {
	// Progress is nil when no goal is set for the slot.
	Progress *ledger.GoalProgress `json:"progress"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	goals, err := s.goals.List(ctx, owner)
	if err != nil {
		serviceError(ctx, log.OpList, err).Write(w)
		return
	}
	if goals == nil {
		goals = []core.Goal{}
	}
	NewJSONResponse().Data(goals).Write(w)
}

// handleSaveGoal upserts the goal for its (type, year, month) slot.
func (s *Server) handleSaveGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	var req saveGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	saved, err := s.goals.Save(ctx, owner, core.Goal{
		GoalType:   core.GoalType(strings.ToLower(string(req.GoalType))),
		Year:       req.Year,
		Month:      req.Month,
		IncomeGoal: req.IncomeGoal,
		ProfitGoal: req.ProfitGoal,
	})
	if err != nil {
		serviceError(ctx, log.OpUpdate, err).Write(w)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Goal saved",
		log.FieldOwnerID, owner, log.FieldGoalType, saved.GoalType, "year", saved.Year, "month", saved.Month)
	NewJSONResponse().Data(saved).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	id := sanitizeInput(r.URL.Query().Get("id"))
	if id == "" {
		BadRequestError("삭제할 목표의 id가 필요합니다").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	if err := s.goals.Delete(ctx, owner, id); err != nil {
		serviceError(ctx, log.OpDelete, err).Write(w)
		return
	}
	NewJSONResponse().Data(map[string]string{"deleted": id}).Write(w)
}

// handleGoalProgress evaluates ?goalType for ?year/?month (defaulting to the
// current month). A yearly goal counts the months up to ?month, or up to
// ?asOfMonth when given.
func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	goalType := core.GoalType(strings.ToLower(strings.TrimSpace(q.Get("goalType"))))
	if goalType == "" {
		goalType = core.Monthly
	}
	if !goalType.IsValid() {
		BadRequestError(core.ErrInvalidGoalType.Error()).Write(w)
		return
	}
	params, err := ParseMonthParams(q, s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	asOf, err := queryInt(q, "asOfMonth", 0)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	query := services.ProgressQuery{GoalType: goalType, Year: params.Year, Month: params.Month, AsOfMonth: asOf}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	progress, found, err := s.goals.Progress(ctx, owner, query)
	if err != nil {
		serviceError(ctx, log.OpRead, err).Write(w)
		return
	}
	resp := goalProgressResponse{}
	if found {
		resp.Progress = &progress
	}
	NewJSONResponse().Data(resp).Write(w)
}

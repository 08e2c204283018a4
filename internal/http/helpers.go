package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"salesbook/internal/core"
	"salesbook/internal/ledger"
	"salesbook/internal/log"
	"salesbook/internal/services"
)

const (
	// storeTimeout bounds every store round trip made by a handler.
	storeTimeout = 7 * time.Second

	// HeaderOwnerID carries the authenticated owner, set by the identity
	// proxy in front of the service.
	HeaderOwnerID = "X-Owner-ID"

	maxOwnerIDLen = 128
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// owner resolves the request owner: the X-Owner-ID header, else the
// configured development owner when the header is absent. Empty means
// unauthenticated; a malformed header never falls back.
func (s *Server) owner(r *http.Request) string {
	id := sanitizeInput(r.Header.Get(HeaderOwnerID))
	switch {
	case id == "":
		return s.devOwner
	case len(id) > maxOwnerIDLen || strings.ContainsAny(id, "\r\n\t"):
		return ""
	}
	return id
}

// requireOwner writes a 401 and returns false when no owner is resolved.
func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := s.owner(r)
	if owner == "" {
		UnauthorizedError().Write(w)
		return "", false
	}
	return owner, true
}

// serviceError maps service and store errors onto a response.
func serviceError(ctx context.Context, op string, err error) *ResponseBuilder {
	var dup *services.DuplicateError
	var rep *services.ReplaceError

	switch {
	case errors.As(err, &dup):
		return ErrorResponse(http.StatusConflict, CodeDuplicate,
			"이미 동일한 내역이 있습니다. 그래도 저장하려면 confirmDuplicates를 true로 보내주세요").
			Details(dup.Duplicates)
	case errors.As(err, &rep):
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Entry replace failed", err,
			log.ComponentLedger, op, log.LogFields{"restored": rep.Restored})
		msg := "수정에 실패했습니다. 기존 내역은 복구되었습니다"
		if !rep.Restored {
			msg = "수정에 실패했고 기존 내역을 복구하지 못했습니다"
		}
		return ErrorResponse(http.StatusInternalServerError, CodeReplaceIncomplete, msg).
			Details(map[string]bool{"restored": rep.Restored})
	case errors.Is(err, core.ErrEmptyOwner):
		return UnauthorizedError()
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("대상을 찾을 수 없습니다")
	case isValidationError(err):
		return BadRequestError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		log.FromContext(ctx).WarnContext(ctx, "Store call timed out", log.FieldOperation, op, log.FieldError, err)
		return ErrorResponse(http.StatusGatewayTimeout, CodeTimeout, "저장소 응답이 지연되고 있습니다")
	default:
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Store call failed", err, log.ComponentStorage, op, nil)
		return InternalServerError("저장소 오류가 발생했습니다")
	}
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidType,
	core.ErrInvalidPaymentMethod,
	core.ErrInvalidAmount,
	core.ErrEmptyEntry,
	core.ErrInvalidGoalType,
	core.ErrInvalidYear,
	core.ErrInvalidMonth,
	core.ErrProfitExceedsIncome,
	services.ErrInvalidPeriod,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// logLedgerChange records a committed mutation on the request logger.
func logLedgerChange(ctx context.Context, op, owner string, typ core.TxType, rows []core.Transaction) {
	periods := ledger.ExtractPeriods(rows, ledger.Month)
	log.NewStructuredLogger(log.FromContext(ctx)).LogLedgerChange(ctx, op, owner, string(typ), len(rows), periods)
}

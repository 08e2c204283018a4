package analysis

import (
	"context"
	"errors"
	"log/slog"
)

// ErrMalformedReply is returned by analyzers whose backend answered with a
// body that does not decode into Result.
var ErrMalformedReply = errors.New("malformed analysis reply")

// Analyzer produces an analysis for a validated request.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
	// Mode is ModeMock or ModeReal.
	Mode() string
}

// Run validates body, calls a and checks the reply shape. Every failure is
// returned as an *Error carrying its HTTP status.
func Run(ctx context.Context, a Analyzer, body []byte) (*Result, *Error) {
	req, verr := ParseRequest(body)
	if verr != nil {
		return nil, verr
	}

	res, err := a.Analyze(ctx, req)
	if errors.Is(err, ErrMalformedReply) {
		slog.ErrorContext(ctx, "Analysis reply failed shape validation", "component", "analysis", "mode", a.Mode(), "error", err)
		return nil, ErrSchemaValidation
	}
	if err != nil {
		slog.ErrorContext(ctx, "Analysis failed", "component", "analysis", "mode", a.Mode(), "error", err)
		return nil, ErrInternal
	}
	if !ValidateResult(res) {
		slog.ErrorContext(ctx, "Analysis reply failed shape validation", "component", "analysis", "mode", a.Mode())
		return nil, ErrSchemaValidation
	}
	return res, nil
}

package http

import (
	"errors"
	"io"
	"net/http"

	"salesbook/internal/analysis"
	"salesbook/internal/log"
)

// maxAnalysisBody caps conversation uploads.
const maxAnalysisBody = 256 << 10

// handleAnalyze runs the conversation analysis. Success bodies are the
// result itself and failures are {error, field?, code}; neither uses the
// ledger envelope. X-AI-Mode is set on every response.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(analysis.ModeHeader, s.analyzer.Mode())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAnalysisBody))
	if err != nil {
		var maxErr *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		NewJSONResponse().Status(status).Raw(analysis.ErrParse).Write(w)
		return
	}

	res, aerr := analysis.Run(r.Context(), s.analyzer, body)
	if aerr != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Analysis request rejected",
			log.FieldOperation, log.OpAnalyze, "code", aerr.Code, "field", aerr.Field)
		NewJSONResponse().Status(aerr.Status).Raw(aerr).Write(w)
		return
	}
	NewJSONResponse().Raw(res).Write(w)
}

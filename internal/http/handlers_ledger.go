package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"salesbook/internal/core"
	"salesbook/internal/importer"
	"salesbook/internal/ledger"
	"salesbook/internal/log"
)

type addEntriesRequest struct {
	Type              string       `json:"type"`
	Entries           []core.Entry `json:"entries"`
	ConfirmDuplicates bool         `json:"confirmDuplicates"`
}

type replaceEntryRequest struct {
	Type  string     `json:"type"`
	IDs   []string   `json:"ids"`
	Entry core.Entry `json:"entry"`
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

type transactionsResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
}

type entriesResponse struct {
	Entries []core.Entry `json:"entries"`
	Count   int          `json:"count"`
}

type mutationResponse struct {
	Rows    []core.Transaction `json:"rows"`
	Entries []core.Entry       `json:"entries"`
}

// handleListTransactions returns raw rows, optionally narrowed by type and
// period (YYYY or YYYY-MM).
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	typ, err := parseTxType(q.Get("type"), true)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	txs, err := s.ledger.List(ctx, owner)
	if err != nil {
		serviceError(ctx, log.OpList, err).Write(w)
		return
	}

	if period := strings.TrimSpace(q.Get("period")); period != "" {
		txs = ledger.FilterByPeriod(txs, period)
	}
	if typ != "" {
		filtered := txs[:0:0]
		for _, t := range txs {
			if t.Type == typ {
				filtered = append(filtered, t)
			}
		}
		txs = filtered
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Data(transactionsResponse{Transactions: txs, Count: len(txs)}).Write(w)
}

// handleListEntries returns grouped entries of one type.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	typ, err := parseTxType(q.Get("type"), false)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	entries, err := s.ledger.Entries(ctx, owner, typ)
	if err != nil {
		serviceError(ctx, log.OpList, err).Write(w)
		return
	}
	entries = entriesInPeriod(entries, strings.TrimSpace(q.Get("period")))
	NewJSONResponse().Data(entriesResponse{Entries: entries, Count: len(entries)}).Write(w)
}

// handleAddEntries stores new entries. Duplicates come back as a 409 the
// client can confirm by resending with confirmDuplicates.
func (s *Server) handleAddEntries(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	var req addEntriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	typ, err := parseTxType(req.Type, false)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sanitizeEntries(req.Entries)

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	stored, err := s.ledger.AddEntries(ctx, owner, typ, req.Entries, req.ConfirmDuplicates)
	if err != nil {
		serviceError(ctx, log.OpCreate, err).Write(w)
		return
	}
	logLedgerChange(ctx, log.OpCreate, owner, typ, stored)
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(mutationResponse{Rows: stored, Entries: ledger.GroupEntries(stored)}).
		Write(w)
}

// handleReplaceEntry swaps the rows of one entry for a new version.
func (s *Server) handleReplaceEntry(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	var req replaceEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	typ, err := parseTxType(req.Type, false)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if len(req.IDs) == 0 {
		req.IDs = req.Entry.AllIDs
	}
	if len(req.IDs) == 0 {
		BadRequestError("수정할 내역의 ids가 필요합니다").Write(w)
		return
	}
	entries := []core.Entry{req.Entry}
	sanitizeEntries(entries)

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	stored, err := s.ledger.ReplaceEntry(ctx, owner, typ, req.IDs, entries[0])
	if err != nil {
		serviceError(ctx, log.OpReplace, err).Write(w)
		return
	}
	logLedgerChange(ctx, log.OpReplace, owner, typ, stored)
	NewJSONResponse().Data(mutationResponse{Rows: stored, Entries: ledger.GroupEntries(stored)}).Write(w)
}

// handleDeleteTransactions deletes by ?period= (with optional ?type=), by
// ?ids=a,b or by a JSON body {"ids": [...]}.
func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if period := strings.TrimSpace(q.Get("period")); period != "" {
		typ, err := parseTxType(q.Get("type"), true)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		n, err := s.ledger.DeletePeriod(ctx, owner, typ, period)
		if err != nil {
			serviceError(ctx, log.OpDelete, err).Write(w)
			return
		}
		log.NewStructuredLogger(log.FromContext(ctx)).LogLedgerChange(ctx, log.OpDelete, owner, string(typ), n, []string{period})
		NewJSONResponse().Data(map[string]int{"deleted": n}).Write(w)
		return
	}

	ids := splitIDs(q.Get("ids"))
	if len(ids) == 0 && r.ContentLength != 0 {
		var req deleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		for _, id := range req.IDs {
			if id = sanitizeInput(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		BadRequestError("삭제할 ids 또는 period가 필요합니다").Write(w)
		return
	}

	n, err := s.ledger.Delete(ctx, owner, ids)
	if err != nil {
		serviceError(ctx, log.OpDelete, err).Write(w)
		return
	}
	log.NewStructuredLogger(log.FromContext(ctx)).LogLedgerChange(ctx, log.OpDelete, owner, "", n, nil)
	NewJSONResponse().Data(map[string]int{"deleted": n}).Write(w)
}

// handleImport takes a multipart upload with fields file, type and dryRun.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			ErrorResponse(http.StatusRequestEntityTooLarge, CodeImport,
				fmt.Sprintf("파일이 너무 큽니다 (최대 %dMB)", s.maxUpload>>20)).Write(w)
			return
		}
		BadRequestError("multipart 요청을 읽을 수 없습니다").Write(w)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	typ, err := parseTxType(r.FormValue("type"), false)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("file 필드가 필요합니다").Write(w)
		return
	}
	defer file.Close()

	entries, err := importer.Parse(header.Filename, file)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Import parse failed",
			log.FieldOperation, log.OpParse, log.FieldError, err, "filename", header.Filename)
		msg := "파일을 읽을 수 없습니다"
		switch {
		case errors.Is(err, importer.ErrNoData):
			msg = importer.ErrNoData.Error()
		case errors.Is(err, importer.ErrUnsupportedFormat):
			msg = "지원하지 않는 파일 형식입니다 (.csv, .xlsx)"
		}
		ErrorResponse(http.StatusBadRequest, CodeImport, msg).Write(w)
		return
	}
	sanitizeEntries(entries)

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	res, err := s.ledger.Import(ctx, owner, typ, entries, parseBool(r.FormValue("dryRun")))
	if err != nil {
		serviceError(ctx, log.OpImport, err).Write(w)
		return
	}
	if !res.DryRun && res.Imported > 0 {
		var periods []string
		if res.LatestMonth != "" {
			periods = []string{res.LatestMonth}
		}
		log.NewStructuredLogger(log.FromContext(ctx)).LogLedgerChange(ctx, log.OpImport, owner, string(typ), res.Imported, periods)
	}
	NewJSONResponse().Data(res).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	withBOM := true
	if v := r.URL.Query().Get("bom"); v != "" {
		withBOM = parseBool(v)
	}
	s.export(w, r, "csv", "text/csv; charset=utf-8", func(out io.Writer, entries []core.Entry) error {
		return importer.WriteCSV(out, entries, withBOM)
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", importer.WriteXLSX)
}

// export renders one type's entries, optionally limited to ?month=YYYY-MM,
// as a download. The file is built in memory so failures still get a JSON
// error.
func (s *Server) export(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(io.Writer, []core.Entry) error) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	typ, err := parseTxType(q.Get("type"), false)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	month := strings.TrimSpace(q.Get("month"))
	if month != "" {
		if _, err := time.Parse("2006-01", month); err != nil || len(month) != 7 {
			BadRequestError("month는 YYYY-MM 형식이어야 합니다").Write(w)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	entries, err := s.ledger.Entries(ctx, owner, typ)
	if err != nil {
		serviceError(ctx, log.OpExport, err).Write(w)
		return
	}
	entries = entriesInPeriod(entries, month)

	var buf bytes.Buffer
	if err := write(&buf, entries); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
		InternalServerError("내보내기에 실패했습니다").Write(w)
		return
	}

	filename := importer.ExportFilename(typ, month, ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// entriesInPeriod keeps entries whose date starts with period (YYYY or
// YYYY-MM). Empty keeps everything.
func entriesInPeriod(entries []core.Entry, period string) []core.Entry {
	if entries == nil {
		return []core.Entry{}
	}
	if period == "" {
		return entries
	}
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Date, period) {
			out = append(out, e)
		}
	}
	return out
}

func sanitizeEntries(entries []core.Entry) {
	for i := range entries {
		e := &entries[i]
		e.Date = sanitizeInput(e.Date)
		e.Category = sanitizeInput(e.Category)
		e.Vendor = sanitizeInput(e.Vendor)
		e.Description = sanitizeInput(e.Description)
		e.Memo = sanitizeInput(e.Memo)
	}
}

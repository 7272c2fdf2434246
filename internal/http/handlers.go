package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"despesas/internal/core"
	"despesas/internal/invoice"
	"despesas/internal/ledger"
	applog "despesas/internal/log"
	"despesas/internal/services"
)

// recordPayload is the request body for creating and updating records.
type recordPayload struct {
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

func (p recordPayload) toRaw() core.RawRecord {
	return core.RawRecord{
		Kind:        sanitizeInput(p.Kind),
		Amount:      sanitizeInput(p.Amount),
		Category:    sanitizeInput(p.Category),
		Date:        sanitizeInput(p.Date),
		Description: sanitizeInput(p.Description),
	}
}

// recordResponse is the wire form of a ledger record.
type recordResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

func toRecordResponse(r core.LedgerRecord) recordResponse {
	return recordResponse{
		ID:          r.ID,
		Kind:        string(r.Kind),
		Amount:      r.Amount.String(),
		Category:    r.Category,
		Date:        r.Date.String(),
		Description: r.Description,
	}
}

// budgetPayload is the request body for upserting a monthly budget.
type budgetPayload struct {
	Amount string `json:"amount"`
}

type budgetResponse struct {
	MonthKey string `json:"month_key"`
	Amount   string `json:"amount"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		MonthKey: string(b.MonthKey),
		Amount:   b.Amount.String(),
	}
}

type sliceResponse struct {
	Category string `json:"category"`
	Value    string `json:"value"`
	Percent  string `json:"percent"`
}

type summaryResponse struct {
	Status              string          `json:"status"`
	TotalBalance        string          `json:"total_balance"`
	MonthlyExpenseTotal string          `json:"monthly_expense_total"`
	RemainingBudget     string          `json:"remaining_budget"`
	TotalIncome         string          `json:"total_income"`
	Excluded            int             `json:"excluded_records"`
	Distribution        []sliceResponse `json:"distribution"`
	Diagnostic          string          `json:"diagnostic,omitempty"`
}

func toSummaryResponse(snap services.Snapshot) summaryResponse {
	resp := summaryResponse{
		Status:              string(snap.Status),
		TotalBalance:        snap.Summary.TotalBalance.String(),
		MonthlyExpenseTotal: snap.Summary.MonthlyExpenseTotal.String(),
		RemainingBudget:     snap.Summary.RemainingBudget.String(),
		TotalIncome:         snap.Summary.TotalIncome.String(),
		Excluded:            snap.Summary.Excluded,
		Distribution:        make([]sliceResponse, 0, len(snap.Summary.Distribution)),
		Diagnostic:          snap.Diagnostic,
	}
	for _, slice := range snap.Summary.Distribution {
		resp.Distribution = append(resp.Distribution, sliceResponse{
			Category: slice.Category,
			Value:    slice.Value.String(),
			Percent:  slice.Percent.StringFixed(2),
		})
	}
	return resp
}

// storeErrorStatus maps store sentinel errors onto HTTP statuses.
func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrStoreUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidMonth):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleSummary serves the current financial summary snapshot.
// Without an identity the response is the idle zero summary, not an error.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	id := userID(r)
	if id == "" {
		writeJSON(w, http.StatusOK, toSummaryResponse(services.Snapshot{
			Status:  services.StatusIdle,
			Summary: core.ZeroSummary(),
		}))
		return
	}

	coord, err := s.coordinatorFor(r.Context(), id)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Summary coordinator error", applog.FieldError, err)
		writeError(w, storeErrorStatus(err), "could not load financial data")
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(coord.Snapshot()))
}

// handleSummaryRefresh forces a recomputation of the caller's summary.
func (s *Server) handleSummaryRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	id, ok := requireUserID(w, r)
	if !ok {
		return
	}

	coord, err := s.coordinatorFor(r.Context(), id)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Summary coordinator error", applog.FieldError, err)
		writeError(w, storeErrorStatus(err), "could not load financial data")
		return
	}

	if err := coord.Refresh(r.Context()); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Summary refresh failed", applog.FieldError, err, applog.FieldUserID, id)
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(coord.Snapshot()))
}

// handleRecords lists and creates ledger records.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRecords(w, r)
	case http.MethodPost:
		s.createRecord(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUserID(w, r)
	if !ok {
		return
	}

	records, found := s.recordsCache.Get(id)
	if !found {
		raw, err := s.store.FetchRecords(r.Context(), id)
		if err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Fetch records failed", applog.FieldError, err, applog.FieldUserID, id)
			writeError(w, storeErrorStatus(err), "could not load records")
			return
		}
		var malformed int
		records, malformed = core.ParseRecords(raw)
		core.SortByDateDesc(records)
		if malformed > 0 {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Malformed records excluded", applog.FieldUserID, id, "count", malformed)
		}
		s.recordsCache.Set(id, records)
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	raw := payload.toRaw()
	if _, err := raw.Parse(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	recordID, err := s.ledgerSvc.CreateRecord(r.Context(), id, raw)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Create record failed", applog.FieldError, err, applog.FieldUserID, id)
		writeError(w, storeErrorStatus(err), "could not save record")
		return
	}

	s.invalidateUser(r.Context(), id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": recordID})
}

// handleRecordByID updates or deletes a single record addressed by path.
func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	recordID := strings.TrimPrefix(r.URL.Path, "/api/records/")
	if recordID == "" || strings.Contains(recordID, "/") {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}

	id, ok := requireUserID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var payload recordPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		raw := payload.toRaw()
		if _, err := raw.Parse(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := s.ledgerSvc.UpdateRecord(r.Context(), id, recordID, raw); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Update record failed", applog.FieldError, err, applog.FieldUserID, id, applog.FieldRecordID, recordID)
			writeError(w, storeErrorStatus(err), "could not update record")
			return
		}
		s.invalidateUser(r.Context(), id)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if err := s.ledgerSvc.DeleteRecord(r.Context(), id, recordID); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Delete record failed", applog.FieldError, err, applog.FieldUserID, id, applog.FieldRecordID, recordID)
			writeError(w, storeErrorStatus(err), "could not delete record")
			return
		}
		s.invalidateUser(r.Context(), id)
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

// handleBudgets lists the caller's monthly budgets.
func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	id, ok := requireUserID(w, r)
	if !ok {
		return
	}

	budgets, found := s.budgetsCache.Get(id)
	if !found {
		var err error
		budgets, err = s.store.FetchBudgets(r.Context(), id)
		if err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Fetch budgets failed", applog.FieldError, err, applog.FieldUserID, id)
			writeError(w, storeErrorStatus(err), "could not load budgets")
			return
		}
		s.budgetsCache.Set(id, budgets)
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleBudgetByMonth upserts the budget for the month in the path.
func (s *Server) handleBudgetByMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}

	id, ok := requireUserID(w, r)
	if !ok {
		return
	}

	rawKey := strings.TrimPrefix(r.URL.Path, "/api/budgets/")
	monthKey, err := core.ParseMonthKey(rawKey)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var payload budgetPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(sanitizeInput(payload.Amount))
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusUnprocessableEntity, "invalid budget amount")
		return
	}

	if err := s.ledgerSvc.UpsertBudget(r.Context(), id, monthKey, amount); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Upsert budget failed", applog.FieldError, err, applog.FieldUserID, id, applog.FieldMonthKey, string(monthKey))
		writeError(w, storeErrorStatus(err), "could not save budget")
		return
	}

	s.invalidateUser(r.Context(), id)
	writeJSON(w, http.StatusOK, budgetResponse{MonthKey: string(monthKey), Amount: amount.String()})
}

// handleInvoiceAnalyze accepts an uploaded invoice and returns a record
// draft proposed by the extraction service.
func (s *Server) handleInvoiceAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if _, ok := requireUserID(w, r); !ok {
		return
	}

	if s.extractor == nil {
		writeError(w, http.StatusNotImplemented, "invoice analysis is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, invoice.MaxFileSize)
	if err := r.ParseMultipartForm(invoice.MaxFileSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "invoice file exceeds size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file upload")
		return
	}

	draft, err := s.extractor.Extract(r.Context(), header.Filename, content)
	if err != nil {
		switch {
		case errors.Is(err, invoice.ErrFileTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "invoice file exceeds size limit")
		case errors.Is(err, invoice.ErrEmptyFile):
			writeError(w, http.StatusBadRequest, "invoice file is empty")
		default:
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Invoice extraction failed", applog.FieldError, err, "filename", header.Filename)
			writeError(w, http.StatusBadGateway, "invoice extraction failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, draft)
}

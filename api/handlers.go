/*
handlers.go - HTTP API handlers for the timesheet ledger

PURPOSE:
  Exposes the timesheet ledger via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Timesheets:
    POST   /api/timesheets                     Submit/resubmit a day's interval
    GET    /api/timesheets/{id}                Get entry
    POST   /api/timesheets/{id}/approve        Approve (fires cost propagation)
    POST   /api/timesheets/{id}/reject         Reject
    POST   /api/timesheets/{id}/reopen         Reopen an approved entry

  Employees:
    GET    /api/employees/{id}/timesheets      List entries in a range
    GET    /api/employees/{id}/payroll         Payroll period summary

  Accruals (admin):
    GET    /api/accruals/pending               Unapplied cost transitions
    POST   /api/accruals/replay                Re-attempt delivery now

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator tags + RFC 3339 parsing)
  3. Authorize against the AccessControl interface
  4. Call domain logic (ledger, propagator)
  5. Serialize response
  6. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Caller lacks the permission for the action
  - 404: Entry not found
  - 409: Conflict (approved entry, lost CAS race)
  - 502: A dependency (project store, transition log) failed
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - timesheet/ledger.go: Domain logic these delegate to
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/timesheet-engine/engine"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *timesheet.Ledger
	Access timesheet.AccessControl
}

// NewHandler creates a new handler around the ledger. A nil access
// control defaults to AllowAll.
func NewHandler(ledger *timesheet.Ledger, access timesheet.AccessControl) *Handler {
	if access == nil {
		access = timesheet.AllowAll{}
	}
	return &Handler{Ledger: ledger, Access: access}
}

// authorize verifies the caller and checks the action's permission.
// Writes the error response itself; returns false when the request must
// not proceed.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action timesheet.Action) bool {
	caller, err := h.Access.VerifyCaller(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unverified caller", err)
		return false
	}
	if !h.Access.HasPermission(caller, action) {
		writeError(w, http.StatusForbidden, "Missing permission "+string(action), nil)
		return false
	}
	return true
}

// =============================================================================
// TIMESHEET HANDLERS
// =============================================================================

// SubmitTimesheet creates or resubmits the caller's entry for a day.
func (h *Handler) SubmitTimesheet(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, timesheet.ActionSubmit) {
		return
	}

	var req SubmitTimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := toSubmitInput(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entry, err := h.Ledger.Submit(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimesheetDTO(entry))
}

// GetTimesheet returns a single entry.
func (h *Handler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, timesheet.ActionSubmit) {
		return
	}

	id := engine.EntryID(chi.URLParam(r, "id"))
	entry, err := h.Ledger.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(entry))
}

// ListTimesheets returns an employee's entries inside ?from=&to=.
func (h *Handler) ListTimesheets(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, timesheet.ActionSubmit) {
		return
	}

	period, err := periodFromQuery(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	entries, err := h.Ledger.List(r.Context(), employeeID, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTOs(entries))
}

// ApproveTimesheet flips PENDING -> APPROVED and propagates labor cost.
func (h *Handler) ApproveTimesheet(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, timesheet.ActionApprove) {
		return
	}

	id := engine.EntryID(chi.URLParam(r, "id"))
	entry, err := h.Ledger.Approve(r.Context(), id)
	if errors.Is(err, engine.ErrAccrualPending) {
		// The approval itself is durable; delivery is queued for replay.
		writeJSON(w, http.StatusAccepted, toTimesheetDTO(entry))
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(entry))
}

// RejectTimesheet flips PENDING -> REJECTED.
func (h *Handler) RejectTimesheet(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, timesheet.ActionReject) {
		return
	}

	id := engine.EntryID(chi.URLParam(r, "id"))
	entry, err := h.Ledger.Reject(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(entry))
}

// ReopenTimesheet flips APPROVED -> PENDING so a correction can land.
func (h *Handler) ReopenTimesheet(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, timesheet.ActionReopen) {
		return
	}

	id := engine.EntryID(chi.URLParam(r, "id"))
	entry, err := h.Ledger.Reopen(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimesheetDTO(entry))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// GetPayrollSummary returns the approved-hours rollup for ?from=&to=.
// Omitting both bounds selects the current calendar month.
func (h *Handler) GetPayrollSummary(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, timesheet.ActionPayroll) {
		return
	}

	period, err := payrollPeriod(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	summary, err := h.Ledger.Summary(r.Context(), employeeID, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollSummaryDTO(summary))
}

// =============================================================================
// ACCRUAL HANDLERS
// =============================================================================

// ListPendingAccruals returns cost transitions still awaiting delivery.
func (h *Handler) ListPendingAccruals(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, timesheet.ActionAdmin) {
		return
	}

	pending, err := h.Ledger.Propagator().Pending(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]CostTransitionDTO, len(pending))
	for i, tr := range pending {
		dtos[i] = toCostTransitionDTO(tr)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReplayAccruals re-attempts every unapplied cost transition now.
func (h *Handler) ReplayAccruals(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, timesheet.ActionAdmin) {
		return
	}

	applied, err := h.Ledger.Propagator().ReplayPending(r.Context())
	result := ReplayResultDTO{Applied: applied}
	if err != nil {
		result.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// HELPERS
// =============================================================================

// payrollPeriod resolves the payroll range: an explicit ?from=&to= pair,
// or the current calendar month when neither bound is given.
func payrollPeriod(r *http.Request) (engine.Period, error) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		return engine.MonthOf(time.Now().UTC()), nil
	}
	return periodFromQuery(r)
}

// periodFromQuery parses the inclusive ?from=&to= date range.
func periodFromQuery(r *http.Request) (engine.Period, error) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		return engine.Period{}, &engine.ValidationError{Field: "from", Reason: "must be YYYY-MM-DD"}
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		return engine.Period{}, &engine.ValidationError{Field: "to", Reason: "must be YYYY-MM-DD"}
	}
	return engine.NewPeriod(from.UTC(), to.UTC())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var depErr *engine.DependencyError
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Entry not found", err)
	case engine.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflicting entry state", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case errors.As(err, &depErr):
		writeError(w, http.StatusBadGateway, "Dependency failure", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

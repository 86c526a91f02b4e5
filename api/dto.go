/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  the shared validator instance before touching domain logic, so a
  malformed body never reaches the ledger.

SEE ALSO:
  - handlers.go: Uses these types
  - timesheet/ledger.go: Domain types these map to
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/warp/timesheet-engine/engine"
	"github.com/warp/timesheet-engine/timesheet"
)

// validate is the shared validator instance for request bodies.
var validate = validator.New()

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitTimesheetRequest is the request to submit (or resubmit) a day's
// work interval. Timestamps are RFC 3339; the entry date is derived from
// clock_in.
type SubmitTimesheetRequest struct {
	EmployeeID   string  `json:"employee_id" validate:"required"`
	ClockIn      string  `json:"clock_in" validate:"required"`
	ClockOut     *string `json:"clock_out"`
	BreakMinutes int     `json:"break_minutes" validate:"gte=0"`
	AssignmentID *string `json:"assignment_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TimesheetDTO represents a ledger entry in API responses.
type TimesheetDTO struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employee_id"`
	CompanyID    string  `json:"company_id"`
	Date         string  `json:"date"`
	ClockIn      string  `json:"clock_in"`
	ClockOut     string  `json:"clock_out"`
	BreakMinutes int     `json:"break_minutes"`
	NormalHours  string  `json:"normal_hours"`
	EveningHours string  `json:"evening_hours"`
	NightHours   string  `json:"night_hours"`
	TotalHours   string  `json:"total_hours"`
	HourlyRate   string  `json:"hourly_rate"`
	BasePay      string  `json:"base_pay"`
	OvertimePay  string  `json:"overtime_pay"`
	TotalPay     string  `json:"total_pay"`
	AssignmentID *string `json:"assignment_id,omitempty"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at,omitempty"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
}

// PayrollSummaryDTO is the period rollup for one employee.
type PayrollSummaryDTO struct {
	EmployeeID   string `json:"employee_id"`
	PeriodStart  string `json:"period_start"`
	PeriodEnd    string `json:"period_end"`
	PeriodDays   int    `json:"period_days"`
	NormalHours  string `json:"normal_hours"`
	EveningHours string `json:"evening_hours"`
	NightHours   string `json:"night_hours"`
	TotalHours   string `json:"total_hours"`
	BasePay      string `json:"base_pay"`
	OvertimePay  string `json:"overtime_pay"`
	TotalPay     string `json:"total_pay"`
	EntryCount   int    `json:"entry_count"`
}

// CostTransitionDTO represents a recorded cost accrual awaiting delivery.
type CostTransitionDTO struct {
	ID           string `json:"id"`
	EntryID      string `json:"entry_id"`
	AssignmentID string `json:"assignment_id"`
	Delta        string `json:"delta"`
	Applied      bool   `json:"applied"`
	CreatedAt    string `json:"created_at"`
	AppliedAt    string `json:"applied_at,omitempty"`
}

// ReplayResultDTO reports one replay sweep.
type ReplayResultDTO struct {
	Applied int    `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the error envelope for all non-2xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTimesheetDTO(e *timesheet.Entry) TimesheetDTO {
	dto := TimesheetDTO{
		ID:           string(e.ID),
		EmployeeID:   string(e.EmployeeID),
		CompanyID:    e.CompanyID,
		Date:         e.Date.Format("2006-01-02"),
		ClockIn:      e.ClockIn.Format(time.RFC3339),
		ClockOut:     e.ClockOut.Format(time.RFC3339),
		BreakMinutes: e.BreakMinutes,
		NormalHours:  e.NormalHours.String(),
		EveningHours: e.EveningHours.String(),
		NightHours:   e.NightHours.String(),
		TotalHours:   e.TotalHours.String(),
		HourlyRate:   e.HourlyRate.String(),
		BasePay:      e.BasePay.String(),
		OvertimePay:  e.OvertimePay.String(),
		TotalPay:     e.Pay().String(),
		Status:       string(e.Status),
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    e.UpdatedAt.Format(time.RFC3339),
	}
	if e.AssignmentID != nil {
		s := string(*e.AssignmentID)
		dto.AssignmentID = &s
	}
	return dto
}

func toTimesheetDTOs(entries []*timesheet.Entry) []TimesheetDTO {
	dtos := make([]TimesheetDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toTimesheetDTO(e)
	}
	return dtos
}

func toPayrollSummaryDTO(s timesheet.PeriodSummary) PayrollSummaryDTO {
	return PayrollSummaryDTO{
		EmployeeID:   string(s.EmployeeID),
		PeriodStart:  s.Period.Start.Format("2006-01-02"),
		PeriodEnd:    s.Period.End.Format("2006-01-02"),
		PeriodDays:   len(s.Period.Days()),
		NormalHours:  s.NormalHours.String(),
		EveningHours: s.EveningHours.String(),
		NightHours:   s.NightHours.String(),
		TotalHours:   s.TotalHours.String(),
		BasePay:      s.BasePay.String(),
		OvertimePay:  s.OvertimePay.String(),
		TotalPay:     s.TotalPay.String(),
		EntryCount:   s.EntryCount,
	}
}

func toCostTransitionDTO(tr timesheet.CostTransition) CostTransitionDTO {
	dto := CostTransitionDTO{
		ID:           tr.ID,
		EntryID:      string(tr.EntryID),
		AssignmentID: string(tr.AssignmentID),
		Delta:        tr.Delta.String(),
		Applied:      tr.Applied,
		CreatedAt:    tr.CreatedAt.Format(time.RFC3339),
	}
	if tr.AppliedAt != nil {
		dto.AppliedAt = tr.AppliedAt.Format(time.RFC3339)
	}
	return dto
}

func toSubmitInput(req SubmitTimesheetRequest) (timesheet.SubmitInput, error) {
	clockIn, err := time.Parse(time.RFC3339, req.ClockIn)
	if err != nil {
		return timesheet.SubmitInput{}, &engine.ValidationError{Field: "clock_in", Reason: "must be RFC 3339"}
	}

	in := timesheet.SubmitInput{
		EmployeeID:   engine.EmployeeID(req.EmployeeID),
		Date:         clockIn.UTC(),
		ClockIn:      clockIn.UTC(),
		BreakMinutes: req.BreakMinutes,
	}
	if req.ClockOut != nil {
		clockOut, err := time.Parse(time.RFC3339, *req.ClockOut)
		if err != nil {
			return timesheet.SubmitInput{}, &engine.ValidationError{Field: "clock_out", Reason: "must be RFC 3339"}
		}
		out := clockOut.UTC()
		in.ClockOut = &out
	}
	if req.AssignmentID != nil && *req.AssignmentID != "" {
		a := engine.AssignmentID(*req.AssignmentID)
		in.AssignmentID = &a
	}
	return in, nil
}

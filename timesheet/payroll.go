/*
payroll.go - Payroll period aggregation

PURPOSE:
  Rolls up APPROVED ledger entries for one employee across an inclusive
  date range into the periodic payroll figures the statutory payroll
  module consumes. PENDING and REJECTED entries are never included - a
  payroll run must never pay unapproved hours. A range matching nothing
  yields all-zero totals, not an error.
*/
package timesheet

import (
	"context"

	"github.com/warp/timesheet-engine/engine"
)

// PeriodSummary is the derived payroll rollup. It is computed on demand
// and never persisted by this core.
type PeriodSummary struct {
	EmployeeID engine.EmployeeID
	Period     engine.Period

	NormalHours  engine.Hours
	EveningHours engine.Hours
	NightHours   engine.Hours
	TotalHours   engine.Hours

	BasePay     engine.Money
	OvertimePay engine.Money
	TotalPay    engine.Money // the payable wage figure

	EntryCount int
}

// Summary aggregates the employee's approved entries inside the period.
func (l *Ledger) Summary(ctx context.Context, employeeID engine.EmployeeID, period engine.Period) (PeriodSummary, error) {
	s := PeriodSummary{
		EmployeeID:   employeeID,
		Period:       period,
		NormalHours:  engine.ZeroHours(),
		EveningHours: engine.ZeroHours(),
		NightHours:   engine.ZeroHours(),
		TotalHours:   engine.ZeroHours(),
		BasePay:      engine.ZeroMoney(),
		OvertimePay:  engine.ZeroMoney(),
		TotalPay:     engine.ZeroMoney(),
	}

	entries, err := l.store.ListApprovedInRange(ctx, employeeID, period)
	if err != nil {
		return PeriodSummary{}, err
	}

	for _, e := range entries {
		s.NormalHours = s.NormalHours.Add(e.NormalHours)
		s.EveningHours = s.EveningHours.Add(e.EveningHours)
		s.NightHours = s.NightHours.Add(e.NightHours)
		s.TotalHours = s.TotalHours.Add(e.TotalHours)
		s.BasePay = s.BasePay.Add(e.BasePay)
		s.OvertimePay = s.OvertimePay.Add(e.OvertimePay)
		s.TotalPay = s.TotalPay.Add(e.Pay())
		s.EntryCount++
	}
	return s, nil
}

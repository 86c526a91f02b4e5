/*
Package sqlite provides a SQLite-backed implementation of timesheet.Store.

PURPOSE:
  Production persistence for the timesheet ledger. The same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  timesheet_entries: one row per (employee_id, work_date)
  cost_transitions:  durable outbox of approval transitions awaiting
                     (or having completed) cost accrual delivery

INVARIANT ENFORCEMENT:
  - UNIQUE(employee_id, work_date) backs the one-entry-per-day rule at
    the database level.
  - Upsert runs a read-modify-write inside a SQL transaction and rejects
    the write when the existing row is approved.
  - TransitionStatus is a single guarded UPDATE (status in the WHERE
    clause); RowsAffected tells the caller whether its compare-and-swap
    won. Two concurrent approvals therefore resolve to exactly one
    winner inside the database.

VALUES:
  Hours and money are stored as decimal TEXT, never floats. Timestamps
  are RFC3339, dates are 2006-01-02.

WAL MODE:
  Opened with WAL and foreign keys on, matching how the engine expects
  to run embedded next to the API process.

SEE ALSO:
  - timesheet/store.go: interface contracts
  - store/memory/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/timesheet-engine/engine"
	"github.com/warp/timesheet-engine/timesheet"
)

const dateFormat = "2006-01-02"

// Store implements timesheet.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var _ timesheet.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS timesheet_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		work_date TEXT NOT NULL,
		clock_in TEXT NOT NULL,
		clock_out TEXT NOT NULL,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		normal_hours TEXT NOT NULL,
		evening_hours TEXT NOT NULL,
		night_hours TEXT NOT NULL,
		total_hours TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		base_pay TEXT NOT NULL,
		overtime_pay TEXT NOT NULL,
		assignment_id TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: at most one entry per employee per calendar date
	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_employee_date
		ON timesheet_entries(employee_id, work_date);

	-- Payroll aggregation hot path
	CREATE INDEX IF NOT EXISTS idx_entries_employee_status_date
		ON timesheet_entries(employee_id, status, work_date);

	CREATE TABLE IF NOT EXISTS cost_transitions (
		id TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL,
		assignment_id TEXT NOT NULL,
		project_id TEXT,
		delta TEXT NOT NULL,
		applied INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		applied_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transitions_unapplied
		ON cost_transitions(applied, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTRY STORE (timesheet.EntryStore interface)
// =============================================================================

const entryColumns = `id, employee_id, company_id, work_date, clock_in, clock_out,
	break_minutes, normal_hours, evening_hours, night_hours, total_hours,
	hourly_rate, base_pay, overtime_pay, assignment_id, status, created_at, updated_at`

// Upsert performs the status-guarded read-modify-write inside a SQL
// transaction. The store mutex serializes same-key writers; the unique
// index is the backstop against writers outside this process.
func (s *Store) Upsert(ctx context.Context, entry *timesheet.Entry) (*timesheet.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID, existingStatus, existingCreatedAt string
	err = tx.QueryRowContext(ctx,
		`SELECT id, status, created_at FROM timesheet_entries WHERE employee_id = ? AND work_date = ?`,
		entry.EmployeeID, entry.Date.Format(dateFormat),
	).Scan(&existingID, &existingStatus, &existingCreatedAt)

	switch {
	case err == sql.ErrNoRows:
		if err := insertEntry(ctx, tx, entry); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load existing entry: %w", err)
	case timesheet.Status(existingStatus) == timesheet.StatusApproved:
		return nil, engine.ErrEntryApproved
	default:
		// Overwrite the submitted fields, keep row identity, reset to pending.
		entry.ID = engine.EntryID(existingID)
		entry.CreatedAt, _ = time.Parse(time.RFC3339, existingCreatedAt)
		entry.Status = timesheet.StatusPending
		if err := updateEntry(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}
	out := *entry
	return &out, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e *timesheet.Entry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO timesheet_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EmployeeID, e.CompanyID,
		e.Date.Format(dateFormat),
		e.ClockIn.UTC().Format(time.RFC3339),
		e.ClockOut.UTC().Format(time.RFC3339),
		e.BreakMinutes,
		e.NormalHours.String(), e.EveningHours.String(), e.NightHours.String(), e.TotalHours.String(),
		e.HourlyRate.String(), e.BasePay.String(), e.OvertimePay.String(),
		nullAssignment(e.AssignmentID),
		e.Status,
		e.CreatedAt.UTC().Format(time.RFC3339),
		e.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("concurrent insert for entry key: %w", err)
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func updateEntry(ctx context.Context, tx *sql.Tx, e *timesheet.Entry) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE timesheet_entries SET
			company_id = ?, clock_in = ?, clock_out = ?, break_minutes = ?,
			normal_hours = ?, evening_hours = ?, night_hours = ?, total_hours = ?,
			hourly_rate = ?, base_pay = ?, overtime_pay = ?, assignment_id = ?,
			status = ?, updated_at = ?
		WHERE id = ?`,
		e.CompanyID,
		e.ClockIn.UTC().Format(time.RFC3339),
		e.ClockOut.UTC().Format(time.RFC3339),
		e.BreakMinutes,
		e.NormalHours.String(), e.EveningHours.String(), e.NightHours.String(), e.TotalHours.String(),
		e.HourlyRate.String(), e.BasePay.String(), e.OvertimePay.String(),
		nullAssignment(e.AssignmentID),
		e.Status,
		e.UpdatedAt.UTC().Format(time.RFC3339),
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id engine.EntryID) (*timesheet.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM timesheet_entries WHERE id = ?`, id)
	return scanEntryRow(row)
}

func (s *Store) GetByEmployeeDate(ctx context.Context, employeeID engine.EmployeeID, date time.Time) (*timesheet.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM timesheet_entries WHERE employee_id = ? AND work_date = ?`,
		employeeID, engine.DateOnly(date).Format(dateFormat))
	return scanEntryRow(row)
}

// TransitionStatus is the compare-and-swap: the expected status sits in
// the WHERE clause and RowsAffected reports whether this caller won.
func (s *Store) TransitionStatus(ctx context.Context, id engine.EntryID, from, to timesheet.Status) (*timesheet.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE timesheet_entries SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC().Format(time.RFC3339), id, from)
	if err != nil {
		return nil, false, fmt.Errorf("failed to transition status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	entry, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return entry, affected == 1, nil
}

// Approve runs the pending->approved swap and the cost transition insert
// in one SQL transaction. Either both become durable or neither does; a
// crash between them cannot leave an approved entry whose accrual the
// replayer can no longer find.
func (s *Store) Approve(ctx context.Context, id engine.EntryID, transitionID string) (*timesheet.Entry, *timesheet.CostTransition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE timesheet_entries SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		timesheet.StatusApproved, now.Format(time.RFC3339), id, timesheet.StatusPending)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to transition status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, nil, false, err
	}

	entry, err := scanEntryRow(tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM timesheet_entries WHERE id = ?`, id))
	if err != nil {
		return nil, nil, false, err
	}

	if affected == 0 {
		// Lost the swap; nothing was written, the rollback is a no-op.
		return entry, nil, false, nil
	}

	var tr *timesheet.CostTransition
	if entry.AssignmentID != nil {
		t := timesheet.CostTransition{
			ID:           transitionID,
			EntryID:      entry.ID,
			AssignmentID: *entry.AssignmentID,
			Delta:        entry.CostDelta(),
			CreatedAt:    now,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cost_transitions (id, entry_id, assignment_id, project_id, delta, applied, created_at, applied_at)
			VALUES (?, ?, ?, ?, ?, 0, ?, NULL)`,
			t.ID, t.EntryID, t.AssignmentID, sql.NullString{},
			t.Delta.String(), t.CreatedAt.Format(time.RFC3339),
		); err != nil {
			return nil, nil, false, fmt.Errorf("failed to record cost transition: %w", err)
		}
		tr = &t
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, fmt.Errorf("failed to commit approval: %w", err)
	}
	return entry, tr, true, nil
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID engine.EmployeeID, period engine.Period) ([]*timesheet.Entry, error) {
	return s.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM timesheet_entries
		WHERE employee_id = ? AND work_date >= ? AND work_date <= ?
		ORDER BY work_date ASC`,
		employeeID, period.Start.Format(dateFormat), period.End.Format(dateFormat))
}

func (s *Store) ListApprovedInRange(ctx context.Context, employeeID engine.EmployeeID, period engine.Period) ([]*timesheet.Entry, error) {
	return s.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM timesheet_entries
		WHERE employee_id = ? AND status = ? AND work_date >= ? AND work_date <= ?
		ORDER BY work_date ASC`,
		employeeID, timesheet.StatusApproved,
		period.Start.Format(dateFormat), period.End.Format(dateFormat))
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]*timesheet.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*timesheet.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// TRANSITION LOG (timesheet.TransitionLog interface)
// =============================================================================

func (s *Store) Record(ctx context.Context, tr timesheet.CostTransition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cost_transitions (id, entry_id, assignment_id, project_id, delta, applied, created_at, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.EntryID, tr.AssignmentID, nullString(string(tr.ProjectID)),
		tr.Delta.String(), boolToInt(tr.Applied),
		tr.CreatedAt.UTC().Format(time.RFC3339),
		nullTime(tr.AppliedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record cost transition: %w", err)
	}
	return nil
}

func (s *Store) ListUnapplied(ctx context.Context) ([]timesheet.CostTransition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, assignment_id, project_id, delta, applied, created_at, applied_at
		FROM cost_transitions WHERE applied = 0 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost transitions: %w", err)
	}
	defer rows.Close()

	var result []timesheet.CostTransition
	for rows.Next() {
		var (
			tr        timesheet.CostTransition
			projectID sql.NullString
			delta     string
			applied   int
			createdAt string
			appliedAt sql.NullString
		)
		if err := rows.Scan(&tr.ID, &tr.EntryID, &tr.AssignmentID, &projectID,
			&delta, &applied, &createdAt, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cost transition: %w", err)
		}
		tr.ProjectID = engine.ProjectID(projectID.String)
		if tr.Delta, err = engine.ParseMoney(delta); err != nil {
			return nil, fmt.Errorf("corrupt transition row %s: %w", tr.ID, err)
		}
		tr.Applied = applied == 1
		if tr.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("corrupt transition row %s: %w", tr.ID, err)
		}
		if appliedAt.Valid {
			at, err := time.Parse(time.RFC3339, appliedAt.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt transition row %s: %w", tr.ID, err)
			}
			tr.AppliedAt = &at
		}
		result = append(result, tr)
	}
	return result, rows.Err()
}

func (s *Store) MarkApplied(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cost_transitions SET applied = 1, applied_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to mark transition applied: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrEntryNotFound
	}
	return nil
}

// =============================================================================
// SCANNING HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntryRow(row *sql.Row) (*timesheet.Entry, error) {
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrEntryNotFound
	}
	return e, err
}

func scanEntry(r rowScanner) (*timesheet.Entry, error) {
	var (
		e            timesheet.Entry
		workDate     string
		clockIn      string
		clockOut     string
		normalH      string
		eveningH     string
		nightH       string
		totalH       string
		rate         string
		basePay      string
		overtimePay  string
		assignmentID sql.NullString
		createdAt    string
		updatedAt    string
	)

	err := r.Scan(
		&e.ID, &e.EmployeeID, &e.CompanyID, &workDate, &clockIn, &clockOut,
		&e.BreakMinutes, &normalH, &eveningH, &nightH, &totalH,
		&rate, &basePay, &overtimePay, &assignmentID, &e.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	// A row that fails to parse is corrupt; surface the error rather than
	// silently zeroing pay fields into the payroll sums.
	if e.Date, err = time.Parse(dateFormat, workDate); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if e.ClockIn, err = time.Parse(time.RFC3339, clockIn); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if e.ClockOut, err = time.Parse(time.RFC3339, clockOut); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if e.NormalHours, err = engine.ParseHours(normalH); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if e.EveningHours, err = engine.ParseHours(eveningH); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if e.NightHours, err = engine.ParseHours(nightH); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if e.TotalHours, err = engine.ParseHours(totalH); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if e.HourlyRate, err = engine.ParseMoney(rate); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if e.BasePay, err = engine.ParseMoney(basePay); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if e.OvertimePay, err = engine.ParseMoney(overtimePay); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if assignmentID.Valid && assignmentID.String != "" {
		a := engine.AssignmentID(assignmentID.String)
		e.AssignmentID = &a
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("corrupt entry row %s: %w", e.ID, err)
	}
	return &e, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullAssignment(a *engine.AssignmentID) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*a), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

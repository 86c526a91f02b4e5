// Package memory provides an in-memory timesheet.Store for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/timesheet-engine/engine"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu          sync.RWMutex
	byKey       map[key]*timesheet.Entry
	byID        map[engine.EntryID]*timesheet.Entry
	transitions map[string]timesheet.CostTransition
}

type key struct {
	EmployeeID engine.EmployeeID
	Date       time.Time
}

func New() *Store {
	return &Store{
		byKey:       make(map[key]*timesheet.Entry),
		byID:        make(map[engine.EntryID]*timesheet.Entry),
		transitions: make(map[string]timesheet.CostTransition),
	}
}

var _ timesheet.Store = (*Store)(nil)

// =============================================================================
// ENTRY STORE
// =============================================================================

// Upsert writes the entry keyed on (employee, date). All writers for the
// same key serialize on the store mutex, which is the per-key lock the
// read-modify-write cycle requires.
func (s *Store) Upsert(_ context.Context, entry *timesheet.Entry) (*timesheet.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{EmployeeID: entry.EmployeeID, Date: engine.DateOnly(entry.Date)}
	if existing, ok := s.byKey[k]; ok {
		if existing.Status == timesheet.StatusApproved {
			return nil, engine.ErrEntryApproved
		}
		// Keep the row identity; replace the submitted fields.
		updated := *entry
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		updated.Status = timesheet.StatusPending
		s.byKey[k] = &updated
		s.byID[updated.ID] = &updated
		return copyEntry(&updated), nil
	}

	stored := *entry
	s.byKey[k] = &stored
	s.byID[stored.ID] = &stored
	return copyEntry(&stored), nil
}

func (s *Store) GetByID(_ context.Context, id engine.EntryID) (*timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, engine.ErrEntryNotFound
	}
	return copyEntry(e), nil
}

func (s *Store) GetByEmployeeDate(_ context.Context, employeeID engine.EmployeeID, date time.Time) (*timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byKey[key{EmployeeID: employeeID, Date: engine.DateOnly(date)}]
	if !ok {
		return nil, engine.ErrEntryNotFound
	}
	return copyEntry(e), nil
}

// TransitionStatus performs the compare-and-swap under the write lock, so
// exactly one of two concurrent approvals observes the pending status.
func (s *Store) TransitionStatus(_ context.Context, id engine.EntryID, from, to timesheet.Status) (*timesheet.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, false, engine.ErrEntryNotFound
	}
	if e.Status != from {
		return copyEntry(e), false, nil
	}

	e.Status = to
	e.UpdatedAt = time.Now().UTC()
	return copyEntry(e), true, nil
}

// Approve performs the pending->approved swap and writes the cost
// transition record under the same lock hold, so an approved entry with
// an assignment can never exist without its outbox record.
func (s *Store) Approve(_ context.Context, id engine.EntryID, transitionID string) (*timesheet.Entry, *timesheet.CostTransition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, nil, false, engine.ErrEntryNotFound
	}
	if e.Status != timesheet.StatusPending {
		return copyEntry(e), nil, false, nil
	}

	e.Status = timesheet.StatusApproved
	e.UpdatedAt = time.Now().UTC()

	var tr *timesheet.CostTransition
	if e.AssignmentID != nil {
		t := timesheet.CostTransition{
			ID:           transitionID,
			EntryID:      e.ID,
			AssignmentID: *e.AssignmentID,
			Delta:        e.CostDelta(),
			CreatedAt:    e.UpdatedAt,
		}
		s.transitions[t.ID] = t
		tr = &t
	}
	return copyEntry(e), tr, true, nil
}

func (s *Store) ListByEmployee(_ context.Context, employeeID engine.EmployeeID, period engine.Period) ([]*timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(employeeID, period, ""), nil
}

func (s *Store) ListApprovedInRange(_ context.Context, employeeID engine.EmployeeID, period engine.Period) ([]*timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(employeeID, period, timesheet.StatusApproved), nil
}

func (s *Store) listLocked(employeeID engine.EmployeeID, period engine.Period, status timesheet.Status) []*timesheet.Entry {
	var result []*timesheet.Entry
	for k, e := range s.byKey {
		if k.EmployeeID != employeeID || !period.Contains(k.Date) {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		result = append(result, copyEntry(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

// =============================================================================
// TRANSITION LOG
// =============================================================================

func (s *Store) Record(_ context.Context, tr timesheet.CostTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions[tr.ID] = tr
	return nil
}

func (s *Store) ListUnapplied(_ context.Context) ([]timesheet.CostTransition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []timesheet.CostTransition
	for _, tr := range s.transitions {
		if !tr.Applied {
			result = append(result, tr)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) MarkApplied(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.transitions[id]
	if !ok {
		return engine.ErrEntryNotFound
	}
	tr.Applied = true
	tr.AppliedAt = &at
	s.transitions[id] = tr
	return nil
}

func copyEntry(e *timesheet.Entry) *timesheet.Entry {
	c := *e
	return &c
}

/*
directory.go - External collaborator interfaces

PURPOSE:
  The engine treats identity, employee master data and project records
  as external services reached through these interfaces. The core never
  persists employee data and never decides who may submit or approve;
  it only consumes these read/write operations.

  Static in-memory implementations ship for development and tests.
*/
package timesheet

import (
	"context"
	"net/http"
	"sync"

	"github.com/warp/timesheet-engine/engine"
)

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

// EmployeeDirectory exposes the employee master data this core reads.
type EmployeeDirectory interface {
	HourlyRate(ctx context.Context, employeeID engine.EmployeeID) (engine.Money, error)
	CompanyID(ctx context.Context, employeeID engine.EmployeeID) (string, error)
}

// =============================================================================
// PROJECT DIRECTORY
// =============================================================================

// ProjectDirectory resolves project assignments and receives additive cost
// updates. AddActualCost must be atomic on the remote side; this core never
// decrements a project's accrued cost.
type ProjectDirectory interface {
	ProjectForAssignment(ctx context.Context, assignmentID engine.AssignmentID) (engine.ProjectID, error)
	AddActualCost(ctx context.Context, projectID engine.ProjectID, amount engine.Money) error
}

// =============================================================================
// ACCESS CONTROL
// =============================================================================

// Action names a permission-checked operation.
type Action string

const (
	ActionSubmit  Action = "timesheet:submit"
	ActionApprove Action = "timesheet:approve"
	ActionReject  Action = "timesheet:reject"
	ActionReopen  Action = "timesheet:reopen"
	ActionPayroll Action = "payroll:read"
	ActionAdmin   Action = "admin"
)

// Caller is the verified identity attached to a request.
type Caller struct {
	EmployeeID engine.EmployeeID
	CompanyID  string
}

// AccessControl is the identity/access collaborator. Session issuance and
// role storage live elsewhere; the engine only asks two questions.
type AccessControl interface {
	VerifyCaller(r *http.Request) (Caller, error)
	HasPermission(caller Caller, action Action) bool
}

// =============================================================================
// STATIC IMPLEMENTATIONS - For development and tests
// =============================================================================

// StaticDirectory is a fixed-rate employee directory.
type StaticDirectory struct {
	mu    sync.RWMutex
	rates map[engine.EmployeeID]engine.Money
	comps map[engine.EmployeeID]string
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		rates: make(map[engine.EmployeeID]engine.Money),
		comps: make(map[engine.EmployeeID]string),
	}
}

func (d *StaticDirectory) SetEmployee(id engine.EmployeeID, companyID string, rate engine.Money) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rates[id] = rate
	d.comps[id] = companyID
}

func (d *StaticDirectory) HourlyRate(_ context.Context, id engine.EmployeeID) (engine.Money, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rate, ok := d.rates[id]
	if !ok {
		return engine.ZeroMoney(), &engine.DependencyError{Dependency: "employee directory", Cause: errUnknownEmployee(id)}
	}
	return rate, nil
}

func (d *StaticDirectory) CompanyID(_ context.Context, id engine.EmployeeID) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	comp, ok := d.comps[id]
	if !ok {
		return "", &engine.DependencyError{Dependency: "employee directory", Cause: errUnknownEmployee(id)}
	}
	return comp, nil
}

type errUnknownEmployee engine.EmployeeID

func (e errUnknownEmployee) Error() string { return "unknown employee " + string(e) }

// StaticProjects is an in-memory project directory that accumulates cost
// locally. Useful for dev runs and for asserting accrual counts in tests.
type StaticProjects struct {
	mu          sync.Mutex
	assignments map[engine.AssignmentID]engine.ProjectID
	actualCost  map[engine.ProjectID]engine.Money
}

func NewStaticProjects() *StaticProjects {
	return &StaticProjects{
		assignments: make(map[engine.AssignmentID]engine.ProjectID),
		actualCost:  make(map[engine.ProjectID]engine.Money),
	}
}

func (p *StaticProjects) SetAssignment(a engine.AssignmentID, proj engine.ProjectID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assignments[a] = proj
}

func (p *StaticProjects) ProjectForAssignment(_ context.Context, a engine.AssignmentID) (engine.ProjectID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proj, ok := p.assignments[a]
	if !ok {
		return "", &engine.DependencyError{Dependency: "project store", Cause: errUnknownAssignment(a)}
	}
	return proj, nil
}

func (p *StaticProjects) AddActualCost(_ context.Context, proj engine.ProjectID, amount engine.Money) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actualCost[proj] = p.actualCost[proj].Add(amount)
	return nil
}

// ActualCost returns the accumulated cost for a project.
func (p *StaticProjects) ActualCost(proj engine.ProjectID) engine.Money {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.actualCost[proj]
}

type errUnknownAssignment engine.AssignmentID

func (e errUnknownAssignment) Error() string { return "unknown assignment " + string(e) }

// AllowAll is an access-control stub that trusts a header-supplied identity
// and permits every action. Production deployments plug in the real
// identity service instead.
type AllowAll struct{}

func (AllowAll) VerifyCaller(r *http.Request) (Caller, error) {
	return Caller{
		EmployeeID: engine.EmployeeID(r.Header.Get("X-Employee-ID")),
		CompanyID:  r.Header.Get("X-Company-ID"),
	}, nil
}

func (AllowAll) HasPermission(Caller, Action) bool { return true }

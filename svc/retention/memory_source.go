package retention

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemSource is a Source backed by a process-local map. Useful in tests
// and single-tenant deployments without a billing system.
type InMemSource struct {
	mu          sync.RWMutex
	defaultPlan Plan
	assignments map[uuid.UUID]Plan
}

// NewInMemSource returns an in-memory Source that answers defaultPlan for
// unassigned accounts. Panics on an invalid default so a misconfigured
// deployment fails at startup.
func NewInMemSource(defaultPlan Plan) *InMemSource {
	if err := defaultPlan.Validate(); err != nil {
		panic(err)
	}
	return &InMemSource{
		defaultPlan: defaultPlan,
		assignments: make(map[uuid.UUID]Plan),
	}
}

// Assign binds an account to a plan, replacing any previous assignment.
func (s *InMemSource) Assign(accountID uuid.UUID, plan Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[accountID] = plan
	return nil
}

func (s *InMemSource) Plan(ctx context.Context, accountID uuid.UUID) (Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if plan, ok := s.assignments[accountID]; ok {
		return plan, nil
	}
	return s.defaultPlan, nil
}

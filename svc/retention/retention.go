package retention

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Plan carries the storage-related limits of a subscription plan. Plan
// computation (billing, upgrades, trials) happens outside this module; the
// storage core only consumes the resulting numbers.
type Plan struct {
	ID   string
	Name string
	// StorageKeepVersions is how many versions of each project file to
	// retain when old versions are purged.
	StorageKeepVersions int
}

// Validate rejects plans that the purge engine could not honor safely.
func (p Plan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: empty plan id", ErrInvalidPlan)
	}
	if p.StorageKeepVersions < 1 {
		return fmt.Errorf("%w: plan %q keeps %d versions, must keep at least one",
			ErrInvalidPlan, p.ID, p.StorageKeepVersions)
	}
	return nil
}

// Default plans mirroring the hosted offering.
var (
	CommunityPlan = Plan{ID: "community", Name: "Community", StorageKeepVersions: 3}
	ProPlan       = Plan{ID: "pro", Name: "Pro", StorageKeepVersions: 10}
)

// Source resolves the active plan for an account. Implementations typically
// wrap subscription data owned by the billing system.
type Source interface {
	// Plan returns the active plan for the given account.
	Plan(ctx context.Context, accountID uuid.UUID) (Plan, error)
}

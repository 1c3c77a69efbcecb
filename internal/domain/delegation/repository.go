package delegation

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, d *Delegation) error
	GetByDelegationID(ctx context.Context, tenantID, delegationID string) (*Delegation, error)
	// FindActiveFor returns every delegation where user is the delegator and
	// asOf falls inside the grant window.
	FindActiveFor(ctx context.Context, tenantID, userID string, asOf time.Time) ([]Delegation, error)
	// FindActiveToward returns every delegation where user is the delegate and
	// asOf falls inside the grant window.
	FindActiveToward(ctx context.Context, tenantID, userID string, asOf time.Time) ([]Delegation, error)
	List(ctx context.Context, tenantID, delegatorID string) ([]Delegation, error)
	// Delete hard-deletes the grant.
	Delete(ctx context.Context, tenantID, delegationID string) error
}

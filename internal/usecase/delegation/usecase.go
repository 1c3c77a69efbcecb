package delegation

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "approvalflow/internal/domain/delegation"
	"approvalflow/pkg/id"

	"gorm.io/gorm"
)

type Usecase struct{ repo domain.Repository }

func NewUsecase(r domain.Repository) *Usecase { return &Usecase{repo: r} }

func toDTO(d *domain.Delegation) *DelegationDTO {
	return &DelegationDTO{
		DelegationID: d.DelegationID,
		DelegatorID:  d.DelegatorID,
		DelegateID:   d.DelegateID,
		StartDate:    d.StartDate,
		EndDate:      d.EndDate,
		Reason:       d.Reason,
		Scope:        d.ScopeList(),
		CreatedAt:    d.CreatedAt,
	}
}

// Create registers a new grant. Overlapping grants to different delegates are
// permitted on purpose: resolution accepts any grant active at the time.
func (u *Usecase) Create(ctx context.Context, in CreateInput) (*DelegationDTO, error) {
	if in.DelegatorID == in.DelegateID {
		return nil, domain.ErrSelfDelegation
	}
	// an inverted window would never be active for any instant
	if in.EndDate.Before(in.StartDate) {
		return nil, domain.ErrInvalidWindow
	}

	d := &domain.Delegation{
		DelegationID: id.NewID32(),
		TenantID:     in.TenantID,
		DelegatorID:  in.DelegatorID,
		DelegateID:   in.DelegateID,
		StartDate:    in.StartDate.UTC(),
		EndDate:      in.EndDate.UTC(),
		Reason:       in.Reason,
		Scope:        strings.Join(in.Scope, ","),
	}
	if err := u.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return toDTO(d), nil
}

// FindActiveFor lists the grants where user is the delegator and asOf falls
// inside the window.
func (u *Usecase) FindActiveFor(ctx context.Context, tenantID, userID string, asOf time.Time) ([]DelegationDTO, error) {
	ds, err := u.repo.FindActiveFor(ctx, tenantID, userID, asOf.UTC())
	if err != nil {
		return nil, err
	}
	out := make([]DelegationDTO, 0, len(ds))
	for i := range ds {
		out = append(out, *toDTO(&ds[i]))
	}
	return out, nil
}

func (u *Usecase) List(ctx context.Context, tenantID, delegatorID string) ([]DelegationDTO, error) {
	ds, err := u.repo.List(ctx, tenantID, delegatorID)
	if err != nil {
		return nil, err
	}
	out := make([]DelegationDTO, 0, len(ds))
	for i := range ds {
		out = append(out, *toDTO(&ds[i]))
	}
	return out, nil
}

// Revoke hard-deletes the grant and reports ErrNotFound when it never
// existed. Callers that want revoke-if-present semantics handle that
// themselves.
func (u *Usecase) Revoke(ctx context.Context, tenantID, delegationID string) error {
	err := u.repo.Delete(ctx, tenantID, delegationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

package uowmock

import (
	"context"
	"errors"

	"approvalflow/internal/domain/uow"
	"approvalflow/internal/domain/workflow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn         func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinInstanceTxFn func(ctx context.Context, tenantID, instanceID string, fn func(r uow.Repos, i *workflow.Instance) error) error
}

func New() *UoW { return &UoW{} }

// Passthrough wires both tx methods straight to the given repos with no
// transactionality, resolving the instance for WithinInstanceTx through the
// instance repository's locking getter.
func Passthrough(r uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(ctx context.Context, fn func(uow.Repos) error) error {
			return fn(r)
		},
		WithinInstanceTxFn: func(ctx context.Context, tenantID, instanceID string, fn func(uow.Repos, *workflow.Instance) error) error {
			i, err := r.Instances.GetByInstanceIDForUpdate(ctx, tenantID, instanceID)
			if err != nil {
				return err
			}
			return fn(r, i)
		},
	}
}

func (m *UoW) Reset() { *m = UoW{} }

// Methods implementing UnitOfWork
func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinInstanceTx(ctx context.Context, tenantID, instanceID string, fn func(r uow.Repos, i *workflow.Instance) error) error {
	if m.WithinInstanceTxFn != nil {
		return m.WithinInstanceTxFn(ctx, tenantID, instanceID, fn)
	}
	return errUnimplemented
}

package uow

import (
	"context"

	"approvalflow/internal/domain/delegation"
	"approvalflow/internal/domain/workflow"
)

type Repos struct {
	Templates   workflow.TemplateRepository
	Instances   workflow.InstanceRepository
	Delegations delegation.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the instance row first, then pass it in
	WithinInstanceTx(ctx context.Context, tenantID, instanceID string, fn func(r Repos, i *workflow.Instance) error) error
}

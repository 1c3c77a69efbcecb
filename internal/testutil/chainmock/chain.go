package chainmock

import (
	"context"

	"approvalflow/internal/domain/workflow"
)

var _ workflow.ReportingChain = (*Chain)(nil)

// Chain is a function-backed mock of the reporting-chain lookup. Unfilled, it
// reports no relationship.
type Chain struct {
	IsManagerOfFn func(ctx context.Context, tenantID, managerID, subordinateID string) (bool, error)
}

func (m *Chain) IsManagerOf(ctx context.Context, tenantID, managerID, subordinateID string) (bool, error) {
	if m.IsManagerOfFn != nil {
		return m.IsManagerOfFn(ctx, tenantID, managerID, subordinateID)
	}
	return false, nil
}

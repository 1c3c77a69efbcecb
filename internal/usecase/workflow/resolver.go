package workflow

import (
	"context"
	"time"

	delegationDomain "approvalflow/internal/domain/delegation"
	workflowDomain "approvalflow/internal/domain/workflow"
)

// elevatedRoles may resolve MANAGER steps when the reporting chain cannot
// confirm a direct relationship. This is deliberately permissive: reporting
// data is often incomplete, and stranding a workflow is worse than letting an
// HR admin act. Tenants that want strict manager gating must keep their
// reporting chain complete.
var elevatedRoles = map[string]bool{
	"MANAGER":       true,
	"HR_ADMIN":      true,
	"COMPANY_ADMIN": true,
}

// Resolver decides whether an acting user may resolve a step, including
// acting as a delegate for someone who could.
type Resolver struct {
	delegations delegationDomain.Repository
	chain       workflowDomain.ReportingChain
	now         func() time.Time
}

func NewResolver(d delegationDomain.Repository, chain workflowDomain.ReportingChain) *Resolver {
	return &Resolver{
		delegations: d,
		chain:       chain,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CanResolve reports whether the acting user may resolve the step, either
// directly or through an active delegation from a user who could. Delegation
// is substitution: the delegate stands in the delegator's place, it is not a
// fourth approver type.
func (r *Resolver) CanResolve(ctx context.Context, step *workflowDomain.Step, inst *workflowDomain.Instance, actingUserID, actingRole string) (bool, error) {
	if ok := r.matches(ctx, step, inst, actingUserID, actingRole); ok {
		return true, nil
	}
	if r.delegations == nil {
		return false, nil
	}

	grants, err := r.delegations.FindActiveToward(ctx, inst.TenantID, actingUserID, r.now())
	if err != nil {
		return false, err
	}
	for i := range grants {
		g := &grants[i]
		if !g.Covers(inst.EntityType) {
			continue
		}
		// Substitute the delegator's identity. Their role is unknown here, so
		// ROLE steps cannot be satisfied via delegation; identity-based checks
		// (USER, MANAGER) can.
		if ok := r.matches(ctx, step, inst, g.DelegatorID, ""); ok {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) matches(ctx context.Context, step *workflowDomain.Step, inst *workflowDomain.Instance, userID, role string) bool {
	switch step.ApproverType {
	case workflowDomain.ApproverUser:
		return step.ApproverValue == userID
	case workflowDomain.ApproverRole:
		return role != "" && step.ApproverValue == role
	case workflowDomain.ApproverManager:
		if r.chain != nil {
			ok, err := r.chain.IsManagerOf(ctx, inst.TenantID, userID, inst.InitiatorID)
			if err == nil && ok {
				return true
			}
			// lookup failed or said no: fall through to the elevated-role set
		}
		return elevatedRoles[role]
	default:
		// unknown approver type resolves nobody
		return false
	}
}

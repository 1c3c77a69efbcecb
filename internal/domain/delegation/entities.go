package delegation

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("delegation not found")
	ErrSelfDelegation = errors.New("cannot delegate approval authority to yourself")
	ErrInvalidWindow  = errors.New("delegation end date precedes its start date")
)

// Delegation is a time-bounded grant of one user's approval authority to
// another. It is consulted during approver resolution, never mutated by the
// workflow engine. Scope is a comma-separated set of entity types; empty
// means the grant covers all entity types.
type Delegation struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	DelegationID string    `gorm:"column:delegation_id;size:32;uniqueIndex:ux_delegations_delegation_id"`
	TenantID     string    `gorm:"column:tenant_id;size:32;index:idx_delegations_tenant_delegator"`
	DelegatorID  string    `gorm:"column:delegator_id;size:32;index:idx_delegations_tenant_delegator"`
	DelegateID   string    `gorm:"column:delegate_id;size:32;index"`
	StartDate    time.Time `gorm:"column:start_date;not null"`
	EndDate      time.Time `gorm:"column:end_date;not null"`
	Reason       string    `gorm:"column:reason;type:text"`
	Scope        string    `gorm:"column:scope;size:512"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Delegation) TableName() string { return "approval_delegations" }

// ActiveAt reports whether the grant window covers ts (inclusive bounds).
func (d *Delegation) ActiveAt(ts time.Time) bool {
	return !ts.Before(d.StartDate) && !ts.After(d.EndDate)
}

// Covers reports whether the grant applies to entityType. An empty scope
// covers everything.
func (d *Delegation) Covers(entityType string) bool {
	if d.Scope == "" {
		return true
	}
	for _, s := range strings.Split(d.Scope, ",") {
		if strings.TrimSpace(s) == entityType {
			return true
		}
	}
	return false
}

// ScopeList splits the stored scope back into entity types.
func (d *Delegation) ScopeList() []string {
	if d.Scope == "" {
		return nil
	}
	parts := strings.Split(d.Scope, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

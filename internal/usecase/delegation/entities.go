package delegation

import "time"

type CreateInput struct {
	TenantID    string
	DelegatorID string
	DelegateID  string
	StartDate   time.Time
	EndDate     time.Time
	Reason      string
	// Scope lists the entity types the grant covers; empty means all.
	Scope []string
}

type DelegationDTO struct {
	DelegationID string    `json:"delegation_id"`
	DelegatorID  string    `json:"delegator_id"`
	DelegateID   string    `json:"delegate_id"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Reason       string    `json:"reason,omitempty"`
	Scope        []string  `json:"scope,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

package types

import (
	"github.com/google/uuid"
)

// Actor is the user performing an operation and the tenant they act for.
// It is passed explicitly to every state-changing call and stamped on the rows it writes.
type Actor struct {
	UserID   uuid.UUID `json:"user_id" validate:"required"`
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`
}

// IsZero reports whether neither id is set.
func (a Actor) IsZero() bool {
	return a.UserID == uuid.Nil && a.TenantID == uuid.Nil
}

// ActsFor reports whether the actor operates on behalf of tenantID.
func (a Actor) ActsFor(tenantID uuid.UUID) bool {
	return tenantID != uuid.Nil && a.TenantID == tenantID
}

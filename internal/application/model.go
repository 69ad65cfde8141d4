package application

import "time"

// Application is a tenant's application to rent a property.
type Application struct {
	ID         string    `json:"id"`
	PropertyID int64     `json:"property_id"`
	TenantID   string    `json:"tenant_id"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StatusEvent is one recorded status change.
type StatusEvent struct {
	ID            int64     `json:"id"`
	ApplicationID string    `json:"application_id"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	Actor         string    `json:"actor"`
	CreatedAt     time.Time `json:"created_at"`
}

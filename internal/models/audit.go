// internal/models/audit.go
package models

import "github.com/google/uuid"

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:255;not null"`
	ResourceType string     `json:"resource_type" gorm:"size:50;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"size:500"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
}

// Notification is a fire-and-forget record for a status-change event. A
// delivery worker outside this repository drains pending rows to the push
// provider.
type Notification struct {
	BaseModel
	UserID  uuid.UUID          `json:"user_id" gorm:"type:uuid;not null;index"`
	OrderID *uuid.UUID         `json:"order_id" gorm:"type:uuid;index"`
	Type    string             `json:"type" gorm:"size:50;not null"`
	Title   string             `json:"title" gorm:"size:255;not null"`
	Message string             `json:"message" gorm:"type:text"`
	Data    JSONB              `json:"data" gorm:"type:jsonb"`
	Status  NotificationStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
}

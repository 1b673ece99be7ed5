// internal/models/establishment.go
package models

import "time"

// Establishment is a seller on the marketplace with its own gateway account.
// Token columns hold AES-GCM output; only the credential service touches them.
type Establishment struct {
	BaseModel
	Name                  string     `json:"name" gorm:"size:255;not null"`
	Slug                  string     `json:"slug" gorm:"uniqueIndex;size:100;not null"`
	CollectorID           int64      `json:"collector_id" gorm:"index"`
	EncryptedAccessToken  string     `json:"-" gorm:"type:text"`
	EncryptedRefreshToken string     `json:"-" gorm:"type:text"`
	TokenExpiresAt        *time.Time `json:"-"`
	OAuthState            string     `json:"-" gorm:"size:128"`
	Connected             bool       `json:"connected" gorm:"default:false;index"`
	FeePercent            float64    `json:"fee_percent" gorm:"type:decimal(5,2);not null"`

	// Relationships
	Orders []Order `json:"orders,omitempty" gorm:"foreignKey:EstablishmentID"`
}

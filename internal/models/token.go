package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Token abilities form a fixed vocabulary. Every token carries AbilityRead,
// whether or not the caller asked for it.
const (
	AbilityCreate = "create"
	AbilityRead   = "read"
	AbilityUpdate = "update"
	AbilityDelete = "delete"
)

// TokenAbilities is the full ability vocabulary.
var TokenAbilities = []string{AbilityCreate, AbilityRead, AbilityUpdate, AbilityDelete}

// AccessToken is a personal access token. Only the SHA-256 digest of the
// random component is stored; the plaintext is shown to the caller once.
type AccessToken struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	TokenHash  string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Abilities  string     `gorm:"size:255;not null;default:'[\"read\"]'" json:"abilities"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (t *AccessToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// NormalizeAbilities constrains requested abilities to the fixed vocabulary,
// forces read, and defaults to [read] when nothing valid was requested.
func NormalizeAbilities(requested []string) []string {
	out := []string{AbilityRead}
	for _, a := range requested {
		if a == AbilityRead {
			continue
		}
		for _, known := range TokenAbilities {
			if a == known {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

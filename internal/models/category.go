package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

type Category struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Code        string     `json:"code"`
	Description string     `json:"description,omitempty"`
	IsDeleted   bool       `json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	DeletedBy   *uuid.UUID `json:"deleted_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CategoryCode is the first two letters of the upper-cased name.
func CategoryCode(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
			if b.Len() == 2 {
				break
			}
		}
	}
	return b.String()
}

func (c *Category) MarkDeleted(actor uuid.UUID, at time.Time) {
	c.IsDeleted = true
	c.DeletedAt = &at
	c.DeletedBy = &actor
}

func (c *Category) ClearDeleted() {
	c.IsDeleted = false
	c.DeletedAt = nil
	c.DeletedBy = nil
}

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Shape is an entry of the tenant's shape master list.
type Shape struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Name       string    `json:"name"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

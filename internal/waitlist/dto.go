package waitlist

import (
	"time"

	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
)

// JoinRequest is a pre-launch signup.
type JoinRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   string  `json:"email" validate:"required,email"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Role    *string `json:"role,omitempty" validate:"omitempty,max=100"`
}

type EntryDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   *string   `json:"company,omitempty"`
	Role      *string   `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListResponse wraps the entries the way the signup dashboard reads them.
type ListResponse struct {
	Entries []EntryDTO `json:"entries"`
}

func FromModel(e *models.WaitlistEntry) EntryDTO {
	return EntryDTO{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		Company:   e.Company,
		Role:      e.Role,
		CreatedAt: e.CreatedAt,
	}
}

package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shuleos/shule/core"
	"github.com/shuleos/shule/core/user"
)

type Establishment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Classroom struct {
	ID              string    `json:"id"`
	EstablishmentID string    `json:"establishment_id"`
	Name            string    `json:"name"`
	Level           string    `json:"level"`
	Capacity        int       `json:"capacity"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// Commission is a named member group with an admin contact. The embedded
// admin user is a sensitive entity: its name comes back decrypted from the
// repository like any other user read.
type Commission struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	AdminID     string     `json:"admin_id"`
	Admin       *user.User `json:"admin,omitempty"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

type NewEstablishment struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (ne *NewEstablishment) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.Email = core.CleanString(ne.Email, true /* lower */)
	return validate.Struct(ne)
}

type NewClassroom struct {
	EstablishmentID string `json:"establishment_id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Level           string `json:"level"`
	Capacity        int    `json:"capacity" validate:"omitempty,gt=0"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type NewCommission struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	AdminID     string `json:"admin_id" validate:"required"`
}

func (nc *NewCommission) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

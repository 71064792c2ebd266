package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
)

// User - участник площадки: владелец машины, специалист или администратор.
type User struct {
	ID                uuid.UUID
	Email             string
	FirstName         string
	LastName          string
	UserType          valueobject.UserType
	IsVerified        bool
	VerificationToken *string
	Reviews           []Review
	CreatedAt         time.Time
}

func (u *User) IsSpecialist() bool {
	return u.UserType == valueobject.UserTypeSpecialist
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the aggregate root for the account domain.
// Person, Address and ProfileImage are owned by the user and share its lifecycle.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"size:128;not null;uniqueIndex"`
	Role         Role      `gorm:"size:32;not null"`
	PasswordHash []byte    `gorm:"not null"`
	PasswordSalt []byte    `gorm:"not null"`
	PersonID     uuid.UUID `gorm:"type:uuid;not null"`
	Person       Person    `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Person struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey"`
	FirstName      string       `gorm:"size:128"`
	LastName       string       `gorm:"size:128"`
	PersonalCode   *string      `gorm:"size:64;uniqueIndex"`
	PhoneNumber    string       `gorm:"size:32"`
	Email          string       `gorm:"size:255"`
	AddressID      uuid.UUID    `gorm:"type:uuid;not null"`
	Address        Address      `gorm:"constraint:OnDelete:CASCADE"`
	ProfileImageID uuid.UUID    `gorm:"type:uuid;not null"`
	ProfileImage   ProfileImage `gorm:"constraint:OnDelete:CASCADE"`
}

// All address fields are optional.
type Address struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	City        string    `gorm:"size:128"`
	Street      string    `gorm:"size:128"`
	HouseNumber string    `gorm:"size:32"`
	FlatNumber  string    `gorm:"size:32"`
}

type ProfileImage struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:255;not null"`
	ImageBytes  []byte    `gorm:"not null"`
	ContentType string    `gorm:"size:128;not null"`
}

// PersonalCodeValue returns the personal code or "" when unset.
func (p *Person) PersonalCodeValue() string {
	if p.PersonalCode == nil {
		return ""
	}
	return *p.PersonalCode
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
)

// PersonInfo carries the person and address fields written together by "add information".
type PersonInfo struct {
	FirstName    string
	LastName     string
	PersonalCode string
	PhoneNumber  string
	Email        string
	City         string
	Street       string
	HouseNumber  string
	FlatNumber   string
}

// UserRepository defines the persistence operations over the user graph.
// Lookups return (nil, nil) when nothing matches.
type UserRepository interface {
	// Create inserts the user with its person, address and profile image as one unit.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByPersonalCode(ctx context.Context, code string) (*entity.User, error)
	UpdateInformation(ctx context.Context, userID uuid.UUID, info PersonInfo) error
	// UpdateField writes a single person or address field and returns the stored value.
	UpdateField(ctx context.Context, userID uuid.UUID, field entity.Field, value string) (string, error)
	ReplaceImage(ctx context.Context, userID uuid.UUID, img entity.ProfileImage) (*entity.ProfileImage, error)
	// Delete removes the user and its owned records atomically; false when the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// ErrDuplicate is wrapped into errors caused by a unique constraint violation.
var ErrDuplicate = errors.New("duplicate key")

package application

import (
	"github.com/google/uuid"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
)

// Profile is the outward view of a user. Password material is never part of it.
type Profile struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Role         string     `json:"role"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	PersonalCode string     `json:"personalCode"`
	PhoneNumber  string     `json:"phoneNumber"`
	Email        string     `json:"email"`
	City         string     `json:"city"`
	Street       string     `json:"street"`
	HouseNumber  string     `json:"houseNumber"`
	FlatNumber   string     `json:"flatNumber"`
	ProfileImage *ImageInfo `json:"profileImage,omitempty"`
}

type ImageInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
}

func NewProfile(u *entity.User) *Profile {
	p := u.Person
	return &Profile{
		ID:           u.ID,
		Username:     u.Username,
		Role:         u.Role.String(),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PersonalCode: p.PersonalCodeValue(),
		PhoneNumber:  p.PhoneNumber,
		Email:        p.Email,
		City:         p.Address.City,
		Street:       p.Address.Street,
		HouseNumber:  p.Address.HouseNumber,
		FlatNumber:   p.Address.FlatNumber,
		ProfileImage: newImageInfo(&p.ProfileImage),
	}
}

func newImageInfo(img *entity.ProfileImage) *ImageInfo {
	if img == nil || img.ID == uuid.Nil {
		return nil
	}
	return &ImageInfo{ID: img.ID, Name: img.Name, ContentType: img.ContentType}
}

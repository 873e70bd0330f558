package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
	"github.com/oksasatya/user-management-api/internal/domain/repository"
	"github.com/oksasatya/user-management-api/pkg/apperror"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// persistErr classifies a write failure. Unique violations keep ErrDuplicate in the chain.
func persistErr(msg string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w: %w", msg, repository.ErrDuplicate, err)
	}
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperror.Wrap(apperror.KindPersistence, msg, err)
}

func errUserNotFound(id uuid.UUID) error {
	return apperror.New(apperror.KindNotFound, "user not found: "+id.String())
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u.Person.ProfileImage).Error; err != nil {
			return err
		}
		if err := tx.Create(&u.Person.Address).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&u.Person).Error; err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(u).Error
	})
	if err != nil {
		return persistErr("Error adding user to database", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var u entity.User
	err := r.db.WithContext(ctx).
		Preload("Person.Address").
		Preload("Person.ProfileImage").
		Where("id = ?", id).
		First(&u).Error
	return found(&u, err)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var u entity.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	return found(&u, err)
}

func (r *UserRepository) GetByPersonalCode(ctx context.Context, code string) (*entity.User, error) {
	var u entity.User
	persons := r.db.Model(&entity.Person{}).Select("id").Where("personal_code = ?", code)
	err := r.db.WithContext(ctx).Preload("Person").Where("person_id IN (?)", persons).First(&u).Error
	return found(&u, err)
}

// nullable maps an empty string to NULL so unique columns tolerate unset values.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func found(u *entity.User, err error) (*entity.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.KindPersistence, "query user", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateInformation(ctx context.Context, userID uuid.UUID, info repository.PersonInfo) error {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return errUserNotFound(userID)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		person := map[string]any{
			entity.FieldFirstName.Column():    info.FirstName,
			entity.FieldLastName.Column():     info.LastName,
			entity.FieldPersonalCode.Column(): nullable(info.PersonalCode),
			entity.FieldPhoneNumber.Column():  info.PhoneNumber,
			entity.FieldEmail.Column():        info.Email,
		}
		if err := tx.Model(&entity.Person{}).Where("id = ?", u.PersonID).Updates(person).Error; err != nil {
			return err
		}
		address := map[string]any{
			entity.FieldCity.Column():        info.City,
			entity.FieldStreet.Column():      info.Street,
			entity.FieldHouseNumber.Column(): info.HouseNumber,
			entity.FieldFlatNumber.Column():  info.FlatNumber,
		}
		return tx.Model(&entity.Address{}).Where("id = ?", u.Person.AddressID).Updates(address).Error
	})
	if err != nil {
		return persistErr("Error adding person in database", err)
	}
	return nil
}

// UpdateField applies one field through the entity setter, then persists only that column.
func (r *UserRepository) UpdateField(ctx context.Context, userID uuid.UUID, field entity.Field, value string) (string, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", errUserNotFound(userID)
	}

	var model any
	var id uuid.UUID
	switch field.Owner() {
	case entity.OwnerPerson:
		err = u.Person.SetField(field, value)
		model, id = &entity.Person{}, u.PersonID
	case entity.OwnerAddress:
		err = u.Person.Address.SetField(field, value)
		model, id = &entity.Address{}, u.Person.AddressID
	default:
		err = &entity.UnknownFieldError{Name: string(field)}
	}
	if err != nil {
		return "", apperror.Wrap(apperror.KindUnknownField, err.Error(), err)
	}

	var stored any = value
	if field == entity.FieldPersonalCode {
		stored = nullable(value)
	}
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Update(field.Column(), stored).Error; err != nil {
		return "", persistErr(fmt.Sprintf("Error updating %s in database", field), err)
	}
	return value, nil
}

// ReplaceImage overwrites the stored image row in place; the row keeps its id.
func (r *UserRepository) ReplaceImage(ctx context.Context, userID uuid.UUID, img entity.ProfileImage) (*entity.ProfileImage, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errUserNotFound(userID)
	}

	stored := u.Person.ProfileImage
	stored.Name = img.Name
	stored.ImageBytes = img.ImageBytes
	stored.ContentType = img.ContentType

	err = r.db.WithContext(ctx).Model(&entity.ProfileImage{}).Where("id = ?", u.Person.ProfileImageID).
		Updates(map[string]any{
			"name":         stored.Name,
			"image_bytes":  stored.ImageBytes,
			"content_type": stored.ContentType,
		}).Error
	if err != nil {
		return nil, persistErr("Error updating image in database", err)
	}
	return &stored, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u entity.User
		err := tx.Preload("Person").Where("id = ?", id).First(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&entity.User{}, "id = ?", u.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.Person{}, "id = ?", u.PersonID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.Address{}, "id = ?", u.Person.AddressID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.ProfileImage{}, "id = ?", u.Person.ProfileImageID).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, persistErr("Error deleting user with id: "+id.String(), err)
	}
	return deleted, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)

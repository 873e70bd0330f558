package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
	repo "github.com/oksasatya/user-management-api/internal/domain/repository"
	"github.com/oksasatya/user-management-api/pkg/apperror"
	"github.com/oksasatya/user-management-api/pkg/helpers"
	"github.com/oksasatya/user-management-api/pkg/mailer"
	mailtpl "github.com/oksasatya/user-management-api/pkg/mailer/templates"
)

var (
	ErrDuplicateUsername     = apperror.New(apperror.KindDuplicate, "Username already exist")
	ErrDuplicatePersonalCode = apperror.New(apperror.KindDuplicate, "User with personal code already exist")
	ErrInvalidCredentials    = apperror.New(apperror.KindInvalidCredentials, "Invalid username or password.")
	ErrAdminOnly             = apperror.New(apperror.KindForbidden, "Only user with Admin role can delete users")
)

// TokenIssuer signs bearer tokens for an authenticated user.
type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
}

// ImageProcessor turns an upload into a stored profile image.
type ImageProcessor interface {
	Process(raw []byte, contentType, fileName string) (entity.ProfileImage, error)
}

// ProfileCache caches rendered profiles by user id. Delete bumps the key's generation;
// SetIfGeneration refuses to write once the generation moved past gen.
type ProfileCache interface {
	Get(ctx context.Context, key string) (*Profile, bool, error)
	Generation(ctx context.Context, key string) (int64, error)
	SetIfGeneration(ctx context.Context, key string, p *Profile, gen int64) (bool, error)
	Delete(ctx context.Context, key string) error
}

// ProfileIndexer keeps the search index in step with the store.
type ProfileIndexer interface {
	IndexUser(ctx context.Context, u *entity.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error)
}

// ImageMirror copies profile images to object storage.
type ImageMirror interface {
	Mirror(ctx context.Context, userID uuid.UUID, img entity.ProfileImage) (string, error)
	Purge(ctx context.Context, userID uuid.UUID) error
}

// Publisher puts notification jobs on the queue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type Service struct {
	Repo    repo.UserRepository
	Tokens  TokenIssuer
	Images  ImageProcessor
	Logger  *logrus.Logger
	AppName string

	// Optional collaborators; nil disables the side effect.
	Cache     ProfileCache
	Index     ProfileIndexer
	Mirror    ImageMirror
	Publisher Publisher
}

func NewService(repo repo.UserRepository, tokens TokenIssuer, images ImageProcessor, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		Repo:   repo,
		Tokens: tokens,
		Images: images,
		Logger: logger,
	}
}

// Principal is the authenticated caller, extracted from a validated token at the HTTP boundary.
type Principal struct {
	UserID uuid.UUID
	Role   entity.Role
}

func (p Principal) IsAdmin() bool { return p.Role == entity.RoleAdmin }

type SignUpInput struct {
	Username    string
	Password    string
	Image       []byte
	ImageName   string
	ContentType string
}

type SignUpResult struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SignUp creates a regular account.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	return s.CreateAccount(ctx, in, entity.RoleUser)
}

// CreateAccount inserts the user graph with the given role as one unit.
func (s *Service) CreateAccount(ctx context.Context, in SignUpInput, role entity.Role) (*SignUpResult, error) {
	existing, err := s.Repo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateUsername
	}

	hash, salt, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "hash password", err)
	}
	img, err := s.Images.Process(in.Image, in.ContentType, in.ImageName)
	if err != nil {
		return nil, err
	}

	userID, personID, addressID := uuid.New(), uuid.New(), uuid.New()
	u := &entity.User{
		ID:           userID,
		Username:     in.Username,
		Role:         role,
		PasswordHash: hash,
		PasswordSalt: salt,
		PersonID:     personID,
		Person: entity.Person{
			ID:             personID,
			AddressID:      addressID,
			Address:        entity.Address{ID: addressID},
			ProfileImageID: img.ID,
			ProfileImage:   img,
		},
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{"user_id": userID, "username": u.Username, "role": role}).Info("account created")
	s.indexUser(ctx, u)
	s.mirrorImage(ctx, userID, img)
	return &SignUpResult{UserID: userID, Username: u.Username}, nil
}

// Login fails with the same error whether the user is missing or the password is wrong.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !helpers.VerifyPassword(password, u.PasswordHash, u.PasswordSalt) {
		return nil, ErrInvalidCredentials
	}
	token, exp, err := s.Tokens.Issue(u.ID.String(), u.Role.String())
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "issue token", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp}, nil
}

// AddInformation writes all person and address fields and returns the merged profile.
func (s *Service) AddInformation(ctx context.Context, userID uuid.UUID, info repo.PersonInfo) (*Profile, error) {
	if err := s.checkPersonalCode(ctx, userID, info.PersonalCode); err != nil {
		return nil, err
	}
	prevEmail, err := s.currentEmail(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateInformation(ctx, userID, info); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicatePersonalCode
		}
		return nil, err
	}

	u, err := s.afterUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if info.Email != "" {
		s.notifyProfileUpdated(ctx, u, prevEmail, map[string]string{
			entity.FieldFirstName.String():    info.FirstName,
			entity.FieldLastName.String():     info.LastName,
			entity.FieldPhoneNumber.String():  info.PhoneNumber,
			entity.FieldEmail.String():        info.Email,
			entity.FieldCity.String():         info.City,
			entity.FieldStreet.String():       info.Street,
			entity.FieldHouseNumber.String():  info.HouseNumber,
			entity.FieldFlatNumber.String():   info.FlatNumber,
			entity.FieldPersonalCode.String(): info.PersonalCode,
		})
	}
	return NewProfile(u), nil
}

// UpdatePerson sets one person field addressed by name.
func (s *Service) UpdatePerson(ctx context.Context, userID uuid.UUID, fieldName, value string) (string, error) {
	return s.updateField(ctx, userID, entity.OwnerPerson, fieldName, value)
}

// UpdateAddress sets one address field addressed by name.
func (s *Service) UpdateAddress(ctx context.Context, userID uuid.UUID, fieldName, value string) (string, error) {
	return s.updateField(ctx, userID, entity.OwnerAddress, fieldName, value)
}

func (s *Service) updateField(ctx context.Context, userID uuid.UUID, owner entity.Owner, fieldName, value string) (string, error) {
	field, err := entity.ParseField(fieldName)
	if err == nil && field.Owner() != owner {
		err = &entity.UnknownFieldError{Name: fieldName, Owner: owner}
	}
	if err != nil {
		return "", apperror.Wrap(apperror.KindUnknownField, err.Error(), err)
	}

	if field == entity.FieldPersonalCode {
		if err := s.checkPersonalCode(ctx, userID, value); err != nil {
			return "", err
		}
	}

	var prevEmail string
	if field == entity.FieldEmail {
		if prevEmail, err = s.currentEmail(ctx, userID); err != nil {
			return "", err
		}
	}

	stored, err := s.Repo.UpdateField(ctx, userID, field, value)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return "", ErrDuplicatePersonalCode
		}
		return "", err
	}

	u, err := s.afterUpdate(ctx, userID)
	if err != nil {
		return "", err
	}
	if field == entity.FieldEmail && stored != "" {
		s.notifyProfileUpdated(ctx, u, prevEmail, map[string]string{field.String(): stored})
	}
	return stored, nil
}

// checkPersonalCode rejects a code held by a different user. Re-setting one's own code is allowed.
func (s *Service) checkPersonalCode(ctx context.Context, userID uuid.UUID, code string) error {
	if code == "" {
		return nil
	}
	holder, err := s.Repo.GetByPersonalCode(ctx, code)
	if err != nil {
		return err
	}
	if holder != nil && holder.ID != userID {
		return ErrDuplicatePersonalCode
	}
	return nil
}

// UpdateImage replaces the stored profile image with the processed upload.
func (s *Service) UpdateImage(ctx context.Context, userID uuid.UUID, raw []byte, contentType, fileName string) (*ImageInfo, error) {
	img, err := s.Images.Process(raw, contentType, fileName)
	if err != nil {
		return nil, err
	}
	stored, err := s.Repo.ReplaceImage(ctx, userID, img)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	s.mirrorImage(ctx, userID, *stored)
	return newImageInfo(stored), nil
}

// GetProfile returns the caller's profile, served from cache when possible.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	key := userID.String()
	var gen int64
	cacheable := false
	if s.Cache != nil {
		p, ok, err := s.Cache.Get(ctx, key)
		if err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("profile cache read failed")
		}
		if ok {
			return p, nil
		}
		// the generation is read before the store so an update landing in between voids the write below
		if gen, err = s.Cache.Generation(ctx, key); err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("profile cache generation read failed")
		} else {
			cacheable = true
		}
	}

	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.New(apperror.KindNotFound, "user not found")
	}
	p := NewProfile(u)
	if cacheable {
		stored, err := s.Cache.SetIfGeneration(ctx, key, p, gen)
		if err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("profile cache write failed")
		} else if !stored {
			s.Logger.WithField("user_id", userID).Debug("profile changed during load; not cached")
		}
	}
	return p, nil
}

// GetImage returns the stored profile image.
func (s *Service) GetImage(ctx context.Context, userID uuid.UUID) (*entity.ProfileImage, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.New(apperror.KindNotFound, "user not found")
	}
	img := u.Person.ProfileImage
	return &img, nil
}

// DeleteUser removes the user's owned graph. Only admins may call it; false means no such user.
func (s *Service) DeleteUser(ctx context.Context, caller Principal, id uuid.UUID) (bool, error) {
	if !caller.IsAdmin() {
		return false, ErrAdminOnly
	}
	deleted, err := s.Repo.Delete(ctx, id)
	if err != nil || !deleted {
		return false, err
	}

	log := s.Logger.WithFields(logrus.Fields{"user_id": id, "deleted_by": caller.UserID})
	log.Info("account deleted")
	s.invalidate(ctx, id)
	if s.Index != nil {
		if err := s.Index.DeleteUser(ctx, id); err != nil {
			log.WithError(err).Warn("es delete failed")
		}
	}
	if s.Mirror != nil {
		if err := s.Mirror.Purge(ctx, id); err != nil {
			log.WithError(err).Warn("image mirror purge failed")
		}
	}
	return true, nil
}

// SearchUsers queries the profile index. Admin only.
func (s *Service) SearchUsers(ctx context.Context, caller Principal, q string, size int) ([]map[string]any, error) {
	if !caller.IsAdmin() {
		return nil, apperror.New(apperror.KindForbidden, "Only user with Admin role can search users")
	}
	if s.Index == nil {
		return []map[string]any{}, nil
	}
	hits, err := s.Index.SearchUsers(ctx, q, size)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "search users", err)
	}
	return hits, nil
}

// afterUpdate drops the cached profile and reindexes the fresh record.
func (s *Service) afterUpdate(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	s.invalidate(ctx, userID)
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.New(apperror.KindNotFound, "user not found")
	}
	s.indexUser(ctx, u)
	return u, nil
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, userID.String()); err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("profile cache invalidation failed")
	}
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexUser(ctx, u); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}

func (s *Service) mirrorImage(ctx context.Context, userID uuid.UUID, img entity.ProfileImage) {
	if s.Mirror == nil {
		return
	}
	url, err := s.Mirror.Mirror(ctx, userID, img)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("image mirror upload failed")
		return
	}
	if url != "" {
		s.Logger.WithFields(logrus.Fields{"user_id": userID, "url": url}).Debug("profile image mirrored")
	}
}

func (s *Service) currentEmail(ctx context.Context, userID uuid.UUID) (string, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", apperror.New(apperror.KindNotFound, "user not found")
	}
	return u.Person.Email, nil
}

// notifyProfileUpdated mails the account owner. The first address ever set gets the welcome mail instead,
// since sign-up has no address to send it to.
func (s *Service) notifyProfileUpdated(ctx context.Context, u *entity.User, prevEmail string, changes map[string]string) {
	if s.Publisher == nil || u.Person.Email == "" {
		return
	}
	template := mailtpl.ProfileUpdated
	if prevEmail == "" {
		template = mailtpl.AccountCreated
	}
	data := mailtpl.NewEmailData(u.Person.FirstName, u.Username, u.Person.Email,
		mailtpl.WithAppName(s.AppName),
		mailtpl.WithTime(time.Now()),
		mailtpl.WithChanges(changes),
	)
	job := mailer.EmailJob{To: u.Person.Email, Template: template, Data: mailtpl.ToMap(data)}
	if err := s.Publisher.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("publish profile notification failed")
	}
}

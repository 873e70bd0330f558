package application

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
	repo "github.com/oksasatya/user-management-api/internal/domain/repository"
	"github.com/oksasatya/user-management-api/internal/infrastructure/postgres"
	"github.com/oksasatya/user-management-api/pkg/apperror"
	"github.com/oksasatya/user-management-api/pkg/helpers"
	"github.com/oksasatya/user-management-api/pkg/mailer"
	mailtpl "github.com/oksasatya/user-management-api/pkg/mailer/templates"
)

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[uuid.UUID]*entity.User
	deleted []uuid.UUID
}

func (f *fakeIndex) IndexUser(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = map[uuid.UUID]*entity.User{}
	}
	f.indexed[u.ID] = u
	return nil
}

func (f *fakeIndex) DeleteUser(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) SearchUsers(_ context.Context, q string, _ int) ([]map[string]any, error) {
	return []map[string]any{{"username": q}}, nil
}

type fakePublisher struct {
	jobs []mailer.EmailJob
}

func (f *fakePublisher) PublishJSON(_ context.Context, body any) error {
	f.jobs = append(f.jobs, body.(mailer.EmailJob))
	return nil
}

type mapCache struct {
	items map[string]*Profile
	gens  map[string]int64
}

func newMapCache() *mapCache {
	return &mapCache{items: map[string]*Profile{}, gens: map[string]int64{}}
}

func (m *mapCache) Get(_ context.Context, k string) (*Profile, bool, error) {
	p, ok := m.items[k]
	return p, ok, nil
}

func (m *mapCache) Generation(_ context.Context, k string) (int64, error) {
	return m.gens[k], nil
}

func (m *mapCache) SetIfGeneration(_ context.Context, k string, p *Profile, gen int64) (bool, error) {
	if m.gens[k] != gen {
		return false, nil
	}
	m.items[k] = p
	return true, nil
}

func (m *mapCache) Delete(_ context.Context, k string) error {
	m.gens[k]++
	delete(m.items, k)
	return nil
}

type fixture struct {
	svc   *Service
	index *fakeIndex
	pub   *fakePublisher
	cache *mapCache
	hook  *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), postgres.GormConfig(nil))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, postgres.AutoMigrate(db))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	svc := NewService(
		postgres.NewUserRepository(db),
		helpers.NewJWTManager("test-secret", "user-api", "user-api-clients", time.Hour),
		helpers.NewImageProcessor(200),
		logger,
	)
	f := &fixture{svc: svc, index: &fakeIndex{}, pub: &fakePublisher{}, cache: newMapCache(), hook: hook}
	svc.Index = f.index
	svc.Publisher = f.pub
	svc.Cache = f.cache
	return f
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (f *fixture) signUp(t *testing.T, username string) *SignUpResult {
	t.Helper()
	res, err := f.svc.SignUp(context.Background(), SignUpInput{
		Username: username, Password: "Aa1!aaaa", Image: pngBytes(t), ImageName: "me.png", ContentType: "image/png",
	})
	require.NoError(t, err)
	return res
}

func TestSignUpReturnsTheStoredID(t *testing.T) {
	f := newFixture(t)
	res := f.signUp(t, "alice1")
	assert.Equal(t, "alice1", res.Username)

	u, err := f.svc.Repo.GetByID(context.Background(), res.UserID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, entity.RoleUser, u.Role)
	assert.Equal(t, "me.png", u.Person.ProfileImage.Name)
	assert.Contains(t, f.index.indexed, res.UserID)
	require.NotNil(t, f.hook.LastEntry())
	assert.Equal(t, "account created", f.hook.LastEntry().Message)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(u.Person.ProfileImage.ImageBytes))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
}

func TestSignUpDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "alice1")

	_, err := f.svc.SignUp(context.Background(), SignUpInput{Username: "alice1", Password: "Aa1!aaaa", Image: pngBytes(t), ImageName: "x.png"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	assert.Equal(t, "Username already exist", apperror.As(err).Message)
}

func TestSignUpInvalidImage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SignUp(context.Background(), SignUpInput{Username: "bobby01", Password: "Aa1!aaaa", Image: []byte("nope"), ImageName: "x.png"})
	assert.Equal(t, apperror.KindInvalidImage, apperror.KindOf(err))

	u, err := f.svc.Repo.GetByUsername(context.Background(), "bobby01")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	res := f.signUp(t, "alice1")
	ctx := context.Background()

	out, err := f.svc.Login(ctx, "alice1", "Aa1!aaaa")
	require.NoError(t, err)
	claims, err := helpers.DefaultJWT().Parse(out.Token)
	require.NoError(t, err)
	assert.Equal(t, res.UserID.String(), claims.UserID())
	assert.Equal(t, "User", claims.Role)

	_, wrongPwd := f.svc.Login(ctx, "alice1", "Aa1!aaab")
	_, noUser := f.svc.Login(ctx, "nobody1", "Aa1!aaaa")
	assert.ErrorIs(t, wrongPwd, ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPwd.Error(), noUser.Error())
}

func TestAddInformationNotifiesAndIndexes(t *testing.T) {
	f := newFixture(t)
	res := f.signUp(t, "dave001")

	p, err := f.svc.AddInformation(context.Background(), res.UserID, repo.PersonInfo{
		FirstName: "Dave", LastName: "Jones", PersonalCode: "39001010000", PhoneNumber: "+37060000000",
		Email: "dave@example.com", City: "Riga", Street: "Brivibas", HouseNumber: "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "dave001", p.Username)
	assert.Equal(t, "Riga", p.City)
	assert.Equal(t, "39001010000", p.PersonalCode)

	require.Len(t, f.pub.jobs, 1)
	assert.Equal(t, "dave@example.com", f.pub.jobs[0].To)
	assert.Equal(t, mailtpl.AccountCreated, f.pub.jobs[0].Template, "first address gets the welcome mail")
	assert.Equal(t, "Dave", f.index.indexed[res.UserID].Person.FirstName)
}

func TestAddInformationDuplicatePersonalCode(t *testing.T) {
	f := newFixture(t)
	a, b := f.signUp(t, "first01"), f.signUp(t, "second1")
	ctx := context.Background()
	info := repo.PersonInfo{FirstName: "A", PersonalCode: "33333333333"}

	_, err := f.svc.AddInformation(ctx, a.UserID, info)
	require.NoError(t, err)
	_, err = f.svc.AddInformation(ctx, a.UserID, info)
	require.NoError(t, err, "own code may be re-set")

	_, err = f.svc.AddInformation(ctx, b.UserID, info)
	assert.ErrorIs(t, err, ErrDuplicatePersonalCode)
}

func TestUpdatePersonPersonalCodeRejectedBeforeMutation(t *testing.T) {
	f := newFixture(t)
	a, b := f.signUp(t, "first01"), f.signUp(t, "second1")
	ctx := context.Background()

	_, err := f.svc.UpdatePerson(ctx, a.UserID, "PersonalCode", "33333333333")
	require.NoError(t, err)

	_, err = f.svc.UpdatePerson(ctx, b.UserID, "PersonalCode", "33333333333")
	assert.ErrorIs(t, err, ErrDuplicatePersonalCode)

	u, err := f.svc.Repo.GetByID(ctx, b.UserID)
	require.NoError(t, err)
	assert.Empty(t, u.Person.PersonalCodeValue())
}

func TestUpdateFieldsByName(t *testing.T) {
	f := newFixture(t)
	res := f.signUp(t, "tommy01")
	ctx := context.Background()

	v, err := f.svc.UpdatePerson(ctx, res.UserID, "FirstName", "Tom")
	require.NoError(t, err)
	assert.Equal(t, "Tom", v)

	v, err = f.svc.UpdateAddress(ctx, res.UserID, "FlatNumber", "12")
	require.NoError(t, err)
	assert.Equal(t, "12", v)

	p, err := f.svc.GetProfile(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Tom", p.FirstName)
	assert.Equal(t, "12", p.FlatNumber)

	_, err = f.svc.UpdatePerson(ctx, res.UserID, "NotAField", "x")
	assert.Equal(t, apperror.KindUnknownField, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "NotAField")

	_, err = f.svc.UpdatePerson(ctx, res.UserID, "City", "Kaunas")
	assert.Equal(t, apperror.KindUnknownField, apperror.KindOf(err))

	_, err = f.svc.UpdatePerson(ctx, res.UserID, "Email", "tom@example.com")
	require.NoError(t, err)
	require.Len(t, f.pub.jobs, 1)
	assert.Equal(t, mailtpl.AccountCreated, f.pub.jobs[0].Template)

	_, err = f.svc.UpdatePerson(ctx, res.UserID, "Email", "thomas@example.com")
	require.NoError(t, err)
	require.Len(t, f.pub.jobs, 2)
	assert.Equal(t, mailtpl.ProfileUpdated, f.pub.jobs[1].Template)
	assert.Equal(t, "thomas@example.com", f.pub.jobs[1].To)
	assert.Equal(t, map[string]any{"Email": "thomas@example.com"}, f.pub.jobs[1].Data["Changes"])
}

func TestGetProfileCaching(t *testing.T) {
	f := newFixture(t)
	res := f.signUp(t, "carol01")
	ctx := context.Background()

	p, err := f.svc.GetProfile(ctx, res.UserID)
	require.NoError(t, err)
	assert.Contains(t, f.cache.items, res.UserID.String())
	assert.Equal(t, "me.png", p.ProfileImage.Name)

	_, err = f.svc.UpdatePerson(ctx, res.UserID, "LastName", "Smith")
	require.NoError(t, err)
	assert.NotContains(t, f.cache.items, res.UserID.String())

	p, err = f.svc.GetProfile(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Smith", p.LastName)

	_, err = f.svc.GetProfile(ctx, uuid.New())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestUpdateImage(t *testing.T) {
	f := newFixture(t)
	res := f.signUp(t, "erin001")
	ctx := context.Background()
	before, err := f.svc.GetImage(ctx, res.UserID)
	require.NoError(t, err)

	info, err := f.svc.UpdateImage(ctx, res.UserID, pngBytes(t), "image/png", "new.png")
	require.NoError(t, err)
	assert.Equal(t, "new.png", info.Name)
	assert.Equal(t, before.ID, info.ID)

	_, err = f.svc.UpdateImage(ctx, res.UserID, []byte("junk"), "image/png", "bad.png")
	assert.Equal(t, apperror.KindInvalidImage, apperror.KindOf(err))
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	target := f.signUp(t, "frank01")
	ctx := context.Background()
	admin := Principal{UserID: uuid.New(), Role: entity.RoleAdmin}

	_, err := f.svc.DeleteUser(ctx, Principal{UserID: target.UserID, Role: entity.RoleUser}, target.UserID)
	assert.ErrorIs(t, err, ErrAdminOnly)
	assert.Equal(t, "Only user with Admin role can delete users", err.Error())

	ok, err := f.svc.DeleteUser(ctx, admin, target.UserID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []uuid.UUID{target.UserID}, f.index.deleted)

	ok, err = f.svc.DeleteUser(ctx, admin, target.UserID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchUsersAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SearchUsers(ctx, Principal{Role: entity.RoleUser}, "ali", 5)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	hits, err := f.svc.SearchUsers(ctx, Principal{Role: entity.RoleAdmin}, "ali", 5)
	require.NoError(t, err)
	assert.Equal(t, "ali", hits[0]["username"])
}

// staleLookups hides existing rows from the uniqueness lookups, as when a concurrent writer commits between
// the pre-check and the write. The write itself still hits the unique index.
type staleLookups struct {
	repo.UserRepository
}

func (staleLookups) GetByUsername(context.Context, string) (*entity.User, error)     { return nil, nil }
func (staleLookups) GetByPersonalCode(context.Context, string) (*entity.User, error) { return nil, nil }

func TestSignUpConstraintViolationMapsToDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "alice1")
	f.svc.Repo = staleLookups{UserRepository: f.svc.Repo}

	_, err := f.svc.SignUp(context.Background(), SignUpInput{Username: "alice1", Password: "Aa1!aaaa", Image: pngBytes(t), ImageName: "x.png"})
	require.ErrorIs(t, err, ErrDuplicateUsername)
	assert.Equal(t, apperror.KindDuplicate, apperror.KindOf(err))
	assert.Equal(t, 400, apperror.KindOf(err).HTTPStatus())
}

func TestPersonalCodeConstraintViolationMapsToDuplicate(t *testing.T) {
	f := newFixture(t)
	a, b := f.signUp(t, "first01"), f.signUp(t, "second1")
	ctx := context.Background()

	_, err := f.svc.UpdatePerson(ctx, a.UserID, "PersonalCode", "33333333333")
	require.NoError(t, err)
	f.svc.Repo = staleLookups{UserRepository: f.svc.Repo}

	_, err = f.svc.UpdatePerson(ctx, b.UserID, "PersonalCode", "33333333333")
	require.ErrorIs(t, err, ErrDuplicatePersonalCode)
	assert.Equal(t, 400, apperror.KindOf(err).HTTPStatus())

	_, err = f.svc.AddInformation(ctx, b.UserID, repo.PersonInfo{FirstName: "B", PersonalCode: "33333333333"})
	require.ErrorIs(t, err, ErrDuplicatePersonalCode)

	u, err := f.svc.Repo.GetByID(ctx, b.UserID)
	require.NoError(t, err)
	assert.Empty(t, u.Person.PersonalCodeValue())
	assert.Empty(t, u.Person.FirstName)
}

// updateDuringLoad runs update once, right after the store returned the user, to interleave a writer with a reader.
type updateDuringLoad struct {
	repo.UserRepository
	update func()
}

func (r *updateDuringLoad) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	u, err := r.UserRepository.GetByID(ctx, id)
	if r.update != nil {
		update := r.update
		r.update = nil
		update()
	}
	return u, err
}

func TestGetProfileDoesNotCacheSnapshotOvertakenByUpdate(t *testing.T) {
	f := newFixture(t)
	res := f.signUp(t, "erin001")
	ctx := context.Background()

	writer := *f.svc
	interleaved := &updateDuringLoad{UserRepository: f.svc.Repo}
	interleaved.update = func() {
		_, err := writer.UpdatePerson(ctx, res.UserID, "LastName", "Newer")
		require.NoError(t, err)
	}
	f.svc.Repo = interleaved

	p, err := f.svc.GetProfile(ctx, res.UserID)
	require.NoError(t, err)
	assert.Empty(t, p.LastName, "reader returns what it loaded")
	assert.NotContains(t, f.cache.items, res.UserID.String())

	p, err = f.svc.GetProfile(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Newer", p.LastName)
	assert.Equal(t, "Newer", f.cache.items[res.UserID.String()].LastName)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/config"
	appuser "github.com/oksasatya/user-management-api/internal/application"
	"github.com/oksasatya/user-management-api/internal/domain/entity"
	pginfra "github.com/oksasatya/user-management-api/internal/infrastructure/postgres"
	"github.com/oksasatya/user-management-api/pkg/helpers"
	"github.com/oksasatya/user-management-api/pkg/validation"
)

// Seeds the Admin account. Re-running is a no-op once the username exists.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	if cfg.SeedAdminPassword == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is required")
	}
	validation.Init()
	if details := validation.Var("password", cfg.SeedAdminPassword, "strongpwd"); details != nil {
		log.Fatalf("SEED_ADMIN_PASSWORD rejected: %v", details["password"])
	}
	if details := validation.Var("username", cfg.SeedAdminUsername, "username"); details != nil {
		log.Fatalf("SEED_ADMIN_USERNAME rejected: %v", details["username"])
	}

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	db, err := pginfra.OpenGorm(pool, logger)
	if err != nil {
		log.Fatalf("failed to open gorm: %v", err)
	}

	svc := appuser.NewService(
		pginfra.NewUserRepository(db),
		helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL),
		helpers.NewImageProcessor(cfg.ImageSize),
		logger,
	)

	avatar, err := placeholderAvatar(cfg.ImageSize)
	if err != nil {
		log.Fatalf("failed to render avatar: %v", err)
	}

	res, err := svc.CreateAccount(ctx, appuser.SignUpInput{
		Username:    cfg.SeedAdminUsername,
		Password:    cfg.SeedAdminPassword,
		Image:       avatar,
		ImageName:   "admin.png",
		ContentType: "image/png",
	}, entity.RoleAdmin)
	switch {
	case errors.Is(err, appuser.ErrDuplicateUsername):
		logger.WithField("username", cfg.SeedAdminUsername).Info("admin already exists")
	case err != nil:
		log.Fatalf("failed to seed admin: %v", err)
	default:
		logger.WithFields(logrus.Fields{"user_id": res.UserID, "username": res.Username}).Info("admin seeded")
	}
}

func placeholderAvatar(size int) ([]byte, error) {
	if size <= 0 {
		size = 200
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	fill := color.RGBA{R: 0x4a, G: 0x6f, B: 0xa5, A: 0xff}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package router

import (
	appuser "github.com/oksasatya/user-management-api/internal/application"
	"github.com/oksasatya/user-management-api/internal/container"
	repouser "github.com/oksasatya/user-management-api/internal/domain/repository"
	"github.com/oksasatya/user-management-api/internal/infrastructure/cache"
	pginfra "github.com/oksasatya/user-management-api/internal/infrastructure/postgres"
	"github.com/oksasatya/user-management-api/internal/infrastructure/search"
	"github.com/oksasatya/user-management-api/internal/infrastructure/storage"
	handlers "github.com/oksasatya/user-management-api/internal/interface/http"
	"github.com/oksasatya/user-management-api/internal/router/modules"
	"github.com/oksasatya/user-management-api/pkg/helpers"
)

type UserModuleDeps struct {
	Repo    repouser.UserRepository
	Service *appuser.Service
	Handler *handlers.UserHandler
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	repo := pginfra.NewUserRepository(container.GetGorm())

	service := appuser.NewService(
		repo,
		container.GetJWT(),
		helpers.NewImageProcessor(cfg.ImageSize),
		container.GetLogger(),
	)
	service.AppName = cfg.AppName
	if rdb := container.GetRedis(); rdb != nil {
		service.Cache = cache.NewJSONCache[appuser.Profile](rdb, "user:profile:", cfg.ProfileCacheTTL)
	}
	if es := container.GetES(); es != nil {
		service.Index = search.NewUserIndex(es, cfg.ESUsersIndex)
	}
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		service.Mirror = storage.NewImageMirror(gcs, cfg.GCSBucket)
	}
	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		service.Publisher = pub
	}

	handler := handlers.NewUserHandler(service, container.GetLogger(), cfg.ImageMaxBytes)

	return UserModuleDeps{
		Repo:    repo,
		Service: service,
		Handler: handler,
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	userDeps := buildUserDeps()
	r.Add(modules.NewUserModule(userDeps.Handler, container.GetJWT(), container.GetRedis()))
	var db pginfra.Pinger
	if pool := container.GetPGPool(); pool != nil {
		db = pool
	}
	r.Add(modules.NewHealthModule(db))
	if container.GetConfig().MetricsEnabled {
		r.Add(modules.NewMetricsModule(container.GetRedis()))
	}
}

package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
	handlers "github.com/oksasatya/user-management-api/internal/interface/http"
	"github.com/oksasatya/user-management-api/internal/interface/middleware"
)

// UserModule wires the account routes under /user.
// Public: POST /user/signup, POST /user/login
// Protected: everything else; DELETE /user/:userId and GET /user/search are admin-only.
type UserModule struct {
	Handler *handlers.UserHandler
	Tokens  middleware.TokenParser
	Redis   *redis.Client
}

func NewUserModule(h *handlers.UserHandler, tokens middleware.TokenParser, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Tokens: tokens, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	user := rg.Group("/user")

	// Public with rate limiting
	signupLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIP(), nil)
	user.POST("/signup", signupLimiter, m.Handler.SignUp)
	user.POST("/login", loginLimiter, m.Handler.Login)

	// Protected
	auth := user.Group("")
	auth.Use(
		middleware.Auth(m.Tokens, m.Handler.Logger),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("", m.Handler.GetProfile)
		auth.POST("/addInformation", m.Handler.AddInformation)
		auth.GET("/image", m.Handler.GetImage)
		auth.PUT("/image", m.Handler.UpdateImage)
		for _, fr := range handlers.FieldRoutes() {
			auth.PUT("/"+fr.Key, m.Handler.UpdateField(fr))
		}
		// the admin check for delete lives in the service so the caller gets its message
		auth.DELETE("/:userId", m.Handler.Delete)
		auth.GET("/search", middleware.RequireRole(entity.RoleAdmin.String(), "Only user with Admin role can search users"), m.Handler.Search)
	}
}

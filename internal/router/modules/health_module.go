package modules

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	pginfra "github.com/oksasatya/user-management-api/internal/infrastructure/postgres"
	"github.com/oksasatya/user-management-api/pkg/response"
)

type HealthModule struct {
	DB pginfra.Pinger
}

func NewHealthModule(db pginfra.Pinger) *HealthModule { return &HealthModule{DB: db} }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.health)
}

func (m *HealthModule) health(c *gin.Context) {
	if m.DB == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "database not configured", nil)
		return
	}
	if err := pginfra.Ping(c.Request.Context(), m.DB, 2*time.Second); err != nil {
		response.Error[any](c, http.StatusServiceUnavailable, "database unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"database": "up"}, "ok", nil)
}

package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/user-management-api/internal/interface/middleware"
)

type MetricsModule struct {
	Redis *redis.Client
}

func NewMetricsModule(rdb *redis.Client) *MetricsModule { return &MetricsModule{Redis: rdb} }

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	// Prometheus scrape endpoint; internal scrapers bypass the per-IP limit
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/metrics", rl, gin.WrapH(promhttp.Handler()))
}

package router

import "github.com/gin-gonic/gin"

// Module is a feature slice (user, health, metrics) that registers its own routes.
type Module interface {
	Register(rg *gin.RouterGroup)
}

package router

import "github.com/gin-gonic/gin"

// Registry collects feature modules and mounts them on one API group.
type Registry struct {
	Engine  *gin.Engine
	API     *gin.RouterGroup
	modules []Module
}

// NewRegistry mounts modules under basePath; an empty basePath serves them from the root.
func NewRegistry(engine *gin.Engine, basePath string) *Registry {
	return &Registry{Engine: engine, API: engine.Group(basePath)}
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

func (r *Registry) RegisterAll() {
	for _, m := range r.modules {
		m.Register(r.API)
	}
}

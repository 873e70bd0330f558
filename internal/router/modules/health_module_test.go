package modules

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func healthStatus(t *testing.T, m *HealthModule) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	m.Register(r.Group(""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	return w.Code
}

func TestHealth(t *testing.T) {
	assert.Equal(t, http.StatusOK, healthStatus(t, NewHealthModule(fakePinger{})))
	assert.Equal(t, http.StatusServiceUnavailable, healthStatus(t, NewHealthModule(fakePinger{err: errors.New("down")})))
	assert.Equal(t, http.StatusServiceUnavailable, healthStatus(t, NewHealthModule(nil)))
}

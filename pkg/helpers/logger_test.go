package helpers

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerStampsServiceFields(t *testing.T) {
	logger := NewLogger("user-api", "production")
	logger.SetOutput(io.Discard)
	hook := test.NewLocal(logger)

	logger.WithField("user_id", "42").Warn("profile cache invalidation failed")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "user-api", entry.Data["app"])
	assert.Equal(t, "production", entry.Data["env"])
	assert.Equal(t, "42", entry.Data["user_id"])
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNewLoggerKeepsExplicitFields(t *testing.T) {
	logger := NewLogger("user-api", "development")
	logger.SetOutput(io.Discard)
	hook := test.NewLocal(logger)

	logger.WithField("app", "seed").Debug("x")

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "seed", hook.LastEntry().Data["app"])
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

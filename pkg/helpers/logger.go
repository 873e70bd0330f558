package helpers

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the process logger. Development gets debug level and text output; other envs log JSON at info.
func NewLogger(appName, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.AddHook(&serviceHook{fields: logrus.Fields{"app": appName, "env": env}})
	logger.Info("logger initialized")
	return logger
}

// serviceHook stamps every entry with the service identity unless the caller set the key already.
type serviceHook struct {
	fields logrus.Fields
}

func (h *serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *serviceHook) Fire(e *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := e.Data[k]; !ok {
			e.Data[k] = v
		}
	}
	return nil
}

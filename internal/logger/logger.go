package logger

import (
	"go.uber.org/zap"
)

// NewNamed builds a named zap logger for the given environment. Production
// uses JSON output at info level, everything else the development config.
func NewNamed(appEnv, name string) (*zap.Logger, error) {
	var cfg zap.Config
	if appEnv == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Named(name), nil
}

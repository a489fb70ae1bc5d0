package logging

import (
    "go.uber.org/zap"
)

// New builds the process logger: human console output in development,
// JSON in anything else.
func New(env string) (*zap.Logger, error) {
    if env == "development" {
        return zap.NewDevelopment()
    }
    cfg := zap.NewProductionConfig()
    cfg.DisableStacktrace = true
    return cfg.Build()
}

// Package logging builds the process-wide structured logger.
package logging

import (
	"go.uber.org/zap"
)

// New returns a console-encoded sugared logger. Verbose enables debug-level
// output with development-style formatting; the default keeps scans quiet so
// report output stays readable.
func New(verbose bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

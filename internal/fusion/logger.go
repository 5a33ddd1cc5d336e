package fusion

import (
	"go.uber.org/zap"
)

// Logger encapsulates the logger the fusion pass reports progress to.
type Logger struct {
	*zap.SugaredLogger
}

// NopLogger returns a logger that discards everything.
func NopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// NewLogger returns a production logger that also writes to files.
// A file named "-" is standard error.
func NewLogger(files ...string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.OutputPaths = append(cfg.OutputPaths[:0], outputPaths(files)...)
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: l.Sugar()}, nil
}

// NewDevelopmentLogger returns a human readable logger on standard error.
func NewDevelopmentLogger() (*Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: l.Sugar()}, nil
}

func outputPaths(files []string) []string {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		if f == "-" {
			f = "stderr"
		}
		paths = append(paths, f)
	}
	if len(paths) == 0 {
		paths = append(paths, "stderr")
	}
	return paths
}

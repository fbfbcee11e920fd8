package testutil

import (
	"testing"

	"github.com/theforge/forge/pkg/logger"
)

// NewLogger returns a logger writing into a per-test temp directory.
func NewLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithOutputDir(t.TempDir()))
	if err != nil {
		t.Fatalf("test logger: %v", err)
	}
	t.Cleanup(log.Close)
	return log
}

package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCacheDirChecker_Writable(t *testing.T) {
	checker := NewCacheDirChecker(t.TempDir())
	result := checker.Check(context.Background())

	if result.Status != StatusHealthy {
		t.Fatalf("status = %v (%s), want healthy", result.Status, result.Message)
	}
	if result.Details["dir"] == nil {
		t.Error("details should include the directory")
	}
}

func TestCacheDirChecker_Missing(t *testing.T) {
	checker := NewCacheDirChecker(filepath.Join(t.TempDir(), "does-not-exist"))
	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Fatalf("status = %v, want unhealthy", result.Status)
	}
	if !errors.Is(result.Error, ErrCacheDirUnwritable) {
		t.Errorf("error = %v, want ErrCacheDirUnwritable", result.Error)
	}
}

func TestCacheDirChecker_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	checker := NewCacheDirChecker(file)
	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", result.Status)
	}
}

func TestCacheDirChecker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checker := NewCacheDirChecker(t.TempDir())
	result := checker.Check(ctx)
	if result.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", result.Status)
	}
}

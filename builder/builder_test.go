package builder

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"siteimg/batch"
)

func generated(n int64) RunFunc {
	return func(context.Context) (*batch.Summary, error) {
		return &batch.Summary{Webp: batch.Counts{Generated: n}}, nil
	}
}

func TestBuildRunsCommandAfterGeneration(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	b := NewSiteBuilder(generated(3), []string{"sh", "-c", "echo built > out.txt"}, dir)

	if err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("build command did not run: %v", err)
	}
	if string(data) != "built\n" {
		t.Errorf("Expected 'built', got %q", data)
	}
}

func TestBuildStopsWhenGenerationFails(t *testing.T) {
	dir := t.TempDir()
	failing := func(context.Context) (*batch.Summary, error) {
		return nil, errors.New("corrupt source")
	}
	b := NewSiteBuilder(failing, []string{"sh", "-c", "touch out.txt"}, dir)

	if err := b.Build(context.Background()); err == nil {
		t.Fatal("Expected error when generation fails")
	}
	if _, err := os.Stat(filepath.Join(dir, "out.txt")); !os.IsNotExist(err) {
		t.Error("build command should not run after failed generation")
	}
}

func TestBuildCommandFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	b := NewSiteBuilder(generated(0), []string{"sh", "-c", "echo broken >&2; exit 2"}, t.TempDir())

	err := b.Build(context.Background())
	if err == nil {
		t.Fatal("Expected error from failing build command")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 2 {
		t.Errorf("Expected exit code 2, got %v", err)
	}
}

func TestBuildWithoutCommand(t *testing.T) {
	b := NewSiteBuilder(generated(1), nil, "")
	if err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
}

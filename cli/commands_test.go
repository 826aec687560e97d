package cli

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSite writes a minimal site and its config file, returning the config path.
func newSite(t *testing.T) (cfgPath, root string) {
	t.Helper()
	root = t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 64, 48))))
	for _, src := range []string{"assets/logo.png", "assets/c.png"} {
		path := filepath.Join(root, "public", src)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	}

	record := filepath.Join(root, "src", "content", "editions", "2024.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(record), 0755))
	require.NoError(t, os.WriteFile(record, []byte(`{"heroImage":"/assets/c.png"}`), 0644))

	cfgPath = filepath.Join(root, "siteimg.yaml")
	cfg := "paths:\n  root: " + root + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	return cfgPath, root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateDefaultCommand(t *testing.T) {
	cfgPath, root := newSite(t)

	_, err := run(t, "--config", cfgPath, "-q")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "public", "_generated", "img"))
	require.NoError(t, err)
	// logo + hero-1x + hero-2x
	assert.Len(t, entries, 3)
}

func TestResolveCommand(t *testing.T) {
	cfgPath, _ := newSite(t)

	out, err := run(t, "resolve", "--config", cfgPath, "/assets/c.png", "hero-2x")
	require.NoError(t, err)
	assert.Regexp(t, `^/_generated/img/[0-9a-f]{16}-hero-2x\.webp$`, strings.TrimSpace(out))

	out, err = run(t, "resolve", "--config", cfgPath, "https://cdn.example.com/x.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/x.png", strings.TrimSpace(out))

	out, err = run(t, "resolve", "--config", cfgPath, "--gallery", "/assets/c.png")
	require.NoError(t, err)
	assert.Contains(t, out, `"sm":"/_generated/photos/`)
}

func TestUsageErrors(t *testing.T) {
	cfgPath, _ := newSite(t)

	_, err := run(t, "resolve", "--config", cfgPath, "/assets/c.png", "poster")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCodeForError(err))

	_, err = run(t, "--no-such-flag")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCodeForError(err))

	_, err = run(t, "resolve")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCodeForError(err))
}

func TestBuildCommand(t *testing.T) {
	cfgPath, root := newSite(t)

	_, err := run(t, "build", "--config", cfgPath, "--", "sh", "-c", "echo ok > built.txt")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "built.txt"))
	assert.NoError(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitError, ExitCodeForError(err))
}

// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/infergraph/internal/app"
	"github.com/specialistvlad/infergraph/internal/hcl_adapter"
	"github.com/specialistvlad/infergraph/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteFiles writes files, keyed by slash separated relative path, under a
// new temporary directory and returns it.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// HarnessResult holds the outcomes of an app run.
type HarnessResult struct {
	Output string
	Err    error
	App    *app.App
}

// RunApp writes files to a temporary directory and runs the app on it.
// Files under "model/" form the model path and files under "kernels/" the
// kernel manifests. Fields of cfg left empty get test defaults. Startup
// panics are recovered into Err.
func RunApp(t *testing.T, files map[string]string, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()
	dir := WriteFiles(t, files)

	cfg.ModelPath = filepath.Join(dir, "model")
	for name := range files {
		if strings.HasPrefix(name, "kernels/") {
			cfg.KernelsPath = filepath.Join(dir, "kernels")
			break
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(out, appConfig, hcl_adapter.NewLoader(), modules...)
	}()
	if panicErr != nil {
		return &HarnessResult{
			Output: out.String(),
			Err:    fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(context.Background())
	if os.Getenv("INFERGRAPH_TEST_LOGS") == "true" {
		t.Logf("--- Full Output for %s ---\n%s", t.Name(), out.String())
	}
	return &HarnessResult{
		Output: out.String(),
		Err:    runErr,
		App:    testApp,
	}
}

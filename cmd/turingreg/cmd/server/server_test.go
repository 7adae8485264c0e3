package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcoe/turingreg/pkg/devapi"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

// freePort reserves and releases a local port for the server under test.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func waitReady(t *testing.T, url string) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRunWithDefaults(t *testing.T) {
	port := freePort(t)
	logger := logging.NewTestLogger()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
			Host:       "127.0.0.1",
			Port:       port,
			Logger:     logger,
			Version:    "test",
			DevAPI:     devapi.Config{},
		})
	}()

	base := "http://127.0.0.1:" + strconv.Itoa(port)
	waitReady(t, base+"/ready")

	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	var sawWarning, sawBackend bool
	for _, line := range logger.Lines() {
		if strings.Contains(line, "DO NOT USE IN PRODUCTION") {
			sawWarning = true
		}
		if strings.Contains(line, "Development backend started") {
			sawBackend = true
		}
	}
	assert.True(t, sawWarning)
	assert.True(t, sawBackend)
}

func TestRunWithConfigFile(t *testing.T) {
	port := freePort(t)
	path := filepath.Join(t.TempDir(), "turingreg.yaml")
	content := `
service:
  name: "File Event"
server:
  host: "127.0.0.1"
  port: ` + strconv.Itoa(port) + `
backend:
  api_url: "` + testBackendURL + `"
captcha:
  disabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	logger := logging.NewTestLogger()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		// Host and port flags were not set, so the file's values win.
		done <- Run(ctx, Config{
			ConfigPath: path,
			Host:       "0.0.0.0",
			Port:       1,
			Logger:     logger,
		})
	}()

	base := "http://127.0.0.1:" + strconv.Itoa(port)
	waitReady(t, base+"/ready")

	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	for _, line := range logger.Lines() {
		assert.NotContains(t, line, "Development backend started")
	}
}

func TestRunWithInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turingreg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("captcha:\n  disabled: true\n"), 0644))

	err := Run(context.Background(), Config{
		ConfigPath: path,
		Host:       "127.0.0.1",
		Port:       freePort(t),
		Logger:     logging.NewTestLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service name is required")
}

func TestRunPortInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	err = Run(context.Background(), Config{
		Host:    "127.0.0.1",
		Port:    l.Addr().(*net.TCPAddr).Port,
		HostSet: true,
		PortSet: true,
		Logger:  logging.NewTestLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}

func TestResolveServerConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turingreg.yaml")
	content := `
service:
  name: "Test"
server:
  host: "10.0.0.1"
  port: 9000
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	logger := logging.NewTestLogger()

	tests := []struct {
		name       string
		cfg        Config
		configPath string
		want       ResolvedConfig
	}{
		{
			name: "no file uses flags",
			cfg:  Config{Host: "0.0.0.0", Port: 4180},
			want: ResolvedConfig{Host: "0.0.0.0", Port: 4180},
		},
		{
			name:       "file wins over unset flags",
			cfg:        Config{Host: "0.0.0.0", Port: 4180},
			configPath: path,
			want:       ResolvedConfig{Host: "10.0.0.1", Port: 9000, Development: true},
		},
		{
			name:       "explicit flags win over file",
			cfg:        Config{Host: "127.0.0.1", Port: 8080, HostSet: true, PortSet: true},
			configPath: path,
			want:       ResolvedConfig{Host: "127.0.0.1", Port: 8080, Development: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveServerConfig(tt.cfg, tt.configPath, logger)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

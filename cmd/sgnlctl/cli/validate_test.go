package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateConfigReportsRedactedSummary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_url":"sgnlapis.cloud","api_token":"super-secret"}`), 0o600))

	configPath = path
	t.Cleanup(func() { configPath = "" })

	cmd := newValidateConfigCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "sgnlapis.cloud")
	require.NotContains(t, out.String(), "super-secret")
}

func TestValidateConfigReportsLoadError(t *testing.T) {
	configPath = "/nonexistent/config.json"
	t.Cleanup(func() { configPath = "" })

	cmd := newValidateConfigCmd()
	cmd.SetOut(&bytes.Buffer{})

	require.Error(t, cmd.Execute())
}

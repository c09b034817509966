package sgnllog

import (
	"bytes"
	"context"
	"log/slog"
	"log/syslog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigFromLevelStringDebugOverride(t *testing.T) {
	cfg := ConfigFromLevelString("warning", true)
	require.Equal(t, LevelDebug, cfg.MinLevel)
}

func TestConfigFromLevelStringRespectsConfiguredLevel(t *testing.T) {
	cfg := ConfigFromLevelString("error", false)
	require.Equal(t, LevelError, cfg.MinLevel)
}

func TestConfigFromLevelStringUnknownDefaultsToInfo(t *testing.T) {
	cfg := ConfigFromLevelString("bogus", false)
	require.Equal(t, LevelInfo, cfg.MinLevel)
}

func TestSetupWritesTextByDefault(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	logger := Setup(cfg)

	logger.Info("hello")

	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "pid=")
}

func TestSetupWritesJSONWhenStructured(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.Structured = true
	logger := Setup(cfg)

	logger.Info("hello")

	require.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestSetupOmitsTimestampWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.Structured = true
	cfg.IncludeTimestamp = false
	logger := Setup(cfg)

	logger.Info("hello")

	require.NotContains(t, buf.String(), `"time"`)
}

func TestGetFallsBackToProcessLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	Setup(cfg)

	got := Get(context.Background())
	got.Info("via fallback")

	require.Contains(t, buf.String(), "via fallback")
}

func TestWithLoggerOverridesContext(t *testing.T) {
	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), custom)

	Get(ctx).Info("scoped")

	require.Contains(t, buf.String(), "scoped")
}

func TestContextWithOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c := Context{Component: "sudopolicy"}

	c.With(logger).Info("checked")

	require.Contains(t, buf.String(), "component=sudopolicy")
	require.NotContains(t, buf.String(), "request_id=")
}

func TestContextWithIncludesAllSetFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c := Context{
		Component:   "sudopolicy",
		Function:    "check",
		RequestID:   "req-1",
		PrincipalID: "alice",
		AssetID:     "host1",
		Action:      "sudo",
	}

	c.With(logger).Info("checked")

	out := buf.String()
	require.Contains(t, out, "function=check")
	require.Contains(t, out, "request_id=req-1")
	require.Contains(t, out, "principal_id=alice")
	require.Contains(t, out, "asset_id=host1")
	require.Contains(t, out, "action=sudo")
}

func TestSecureDebugfNoopAboveDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.MinLevel = LevelInfo
	logger := Setup(cfg)

	SecureDebugf(Context{Component: "authzclient"}, logger, "token is %s", "secret-value")

	require.Empty(t, buf.String())
}

func TestSyslogFacilityMapsKnownNames(t *testing.T) {
	require.Equal(t, syslog.LOG_AUTHPRIV, syslogFacility("authpriv"))
	require.Equal(t, syslog.LOG_DAEMON, syslogFacility("daemon"))
	require.Equal(t, syslog.LOG_LOCAL1, syslogFacility("local1"))
}

func TestSyslogFacilityFallsBackToLocal0(t *testing.T) {
	require.Equal(t, syslog.LOG_LOCAL0, syslogFacility("local0"))
	require.Equal(t, syslog.LOG_LOCAL0, syslogFacility("nonsense"))
}

func TestSecureDebugfEmitsAtDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	cfg.MinLevel = LevelDebug
	logger := Setup(cfg)

	SecureDebugf(Context{Component: "authzclient"}, logger, "probing endpoint")

	require.Contains(t, buf.String(), "probing endpoint")
}

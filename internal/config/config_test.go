package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("VMS_API_URL", "http://backend.test/api")
	t.Setenv("TERMINAL_ID", "3")
	t.Setenv("TERMINAL_EMAIL", "kiosk@example.com")
	t.Setenv("TERMINAL_PASSWORD", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, 3, cfg.API.TerminalID)
	assert.Equal(t, 15, cfg.Kiosk.CountdownSeconds)
	assert.Equal(t, 2*time.Second, cfg.Scanner.DebounceWindow)
	assert.Equal(t, 3*time.Second, cfg.Scanner.SimulatedScanDelay)
	assert.Nil(t, cfg.Scanner.Devices)
}

func TestLoadScannerDevices(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SCANNER_DEVICES", "back=http://127.0.0.1:8081/stream, front=http://127.0.0.1:8082/stream")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Scanner.Devices, 2)
	assert.Equal(t, "http://127.0.0.1:8081/stream", cfg.Scanner.Devices["back"])
	assert.Equal(t, "http://127.0.0.1:8082/stream", cfg.Scanner.Devices["front"])
}

func TestLoadMissingTerminalCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TERMINAL_EMAIL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TERMINAL_EMAIL")
}

func TestValidateCountdownMustBePositive(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONFIRMATION_COUNTDOWN_SECONDS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIRMATION_COUNTDOWN_SECONDS")
}

func TestValidateProductionRequiresAdminPIN(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_PIN_HASH")
}

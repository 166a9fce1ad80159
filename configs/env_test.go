package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClient(t *testing.T) {
	userID := uuid.New()
	deviceID := uuid.New()

	tests := []struct {
		name      string
		env       map[string]string
		shouldErr bool
		check     func(t *testing.T, cfg *Client)
	}{
		{
			name: "Defaults",
			env: map[string]string{
				"USER_ID":     userID.String(),
				"SIGNING_KEY": "00ff",
			},
			check: func(t *testing.T, cfg *Client) {
				assert.Equal(t, userID, cfg.UserID)
				assert.Equal(t, userID.String(), cfg.DisplayName)
				assert.Equal(t, ServerAddress, cfg.ServerAddress)
				assert.Equal(t, []byte{0x00, 0xff}, cfg.SigningKey)
				assert.Equal(t, DeliveryTimeout, cfg.DeliveryTimeout)
				assert.Nil(t, cfg.DeviceID)
			},
		},
		{
			name: "All fields",
			env: map[string]string{
				"USER_ID":          userID.String(),
				"SIGNING_KEY":      "01",
				"DISPLAY_NAME":     "Alice",
				"SERVER_ADDRESS":   "example.org:9000",
				"DEVICE_ID":        deviceID.String(),
				"DELIVERY_TIMEOUT": "3s",
			},
			check: func(t *testing.T, cfg *Client) {
				assert.Equal(t, "Alice", cfg.DisplayName)
				assert.Equal(t, "example.org:9000", cfg.ServerAddress)
				require.NotNil(t, cfg.DeviceID)
				assert.Equal(t, deviceID, *cfg.DeviceID)
				assert.Equal(t, 3*time.Second, cfg.DeliveryTimeout)
			},
		},
		{
			name:      "Missing user",
			env:       map[string]string{"SIGNING_KEY": "01"},
			shouldErr: true,
		},
		{
			name:      "Missing signing key",
			env:       map[string]string{"USER_ID": userID.String()},
			shouldErr: true,
		},
		{
			name: "Bad timeout",
			env: map[string]string{
				"USER_ID":          userID.String(),
				"SIGNING_KEY":      "01",
				"DELIVERY_TIMEOUT": "soon",
			},
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"USER_ID", "SIGNING_KEY", "DISPLAY_NAME", "SERVER_ADDRESS", "DEVICE_ID", "DELIVERY_TIMEOUT"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadClient()
			if tt.shouldErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadServerFromDotenv(t *testing.T) {
	t.Setenv("LISTEN_ADDRESS", "")
	t.Setenv("REDIS_ADDRESS", "")
	os.Unsetenv("LISTEN_ADDRESS")
	os.Unsetenv("REDIS_ADDRESS")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REDIS_ADDRESS=redis:6380\n"), 0o600))

	cfg := LoadServer(path, filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, "redis:6380", cfg.RedisAddress)
	assert.Equal(t, ServerAddress, cfg.ListenAddress)
}

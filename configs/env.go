package configs

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

var (
	ErrMissingEnv = errors.New("missing environment variable")
)

// Client holds the runtime settings of a client binary.
type Client struct {
	ServerAddress   string
	UserID          uuid.UUID
	DisplayName     string
	DeviceID        *uuid.UUID
	SigningKey      []byte
	DeliveryTimeout time.Duration
}

// Server holds the runtime settings of the directory server.
type Server struct {
	ListenAddress string
	RedisAddress  string
}

// LoadClient reads the client settings from the environment, after loading
// the given dotenv files (missing files are ignored).
func LoadClient(files ...string) (*Client, error) {
	loadDotenv(files...)

	userID, err := uuid.Parse(os.Getenv("USER_ID"))
	if err != nil {
		return nil, fmt.Errorf("USER_ID: %w", err)
	}

	rawKey := os.Getenv("SIGNING_KEY")
	if rawKey == "" {
		return nil, fmt.Errorf("%w: SIGNING_KEY", ErrMissingEnv)
	}
	signingKey, err := hex.DecodeString(rawKey)
	if err != nil {
		return nil, fmt.Errorf("SIGNING_KEY: %w", err)
	}

	cfg := &Client{
		ServerAddress:   getEnv("SERVER_ADDRESS", ServerAddress),
		UserID:          userID,
		DisplayName:     getEnv("DISPLAY_NAME", userID.String()),
		SigningKey:      signingKey,
		DeliveryTimeout: DeliveryTimeout,
	}

	if raw := os.Getenv("DEVICE_ID"); raw != "" {
		deviceID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("DEVICE_ID: %w", err)
		}
		cfg.DeviceID = &deviceID
	}

	if raw := os.Getenv("DELIVERY_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("DELIVERY_TIMEOUT: %w", err)
		}
		cfg.DeliveryTimeout = timeout
	}

	return cfg, nil
}

// LoadServer reads the server settings from the environment.
func LoadServer(files ...string) *Server {
	loadDotenv(files...)
	return &Server{
		ListenAddress: getEnv("LISTEN_ADDRESS", ServerAddress),
		RedisAddress:  getEnv("REDIS_ADDRESS", RedisAddress),
	}
}

func loadDotenv(files ...string) {
	for _, f := range files {
		// A missing dotenv file just means the environment is already set
		_ = godotenv.Load(f)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

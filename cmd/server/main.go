package main

import (
	"context"
	"net/http"

	"secure-courier/configs"
	"secure-courier/server"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	logger = logrus.New()
)

// Main function to start the server
func main() {
	cfg := configs.LoadServer(".env")

	s, err := server.NewServer(
		context.Background(),
		redis.NewClient(&redis.Options{Addr: cfg.RedisAddress}),
		logger,
	)
	if err != nil {
		logger.Fatalf("Error creating server: %v", err)
	}
	defer s.Close()

	logger.Infof("Directory and push server running on %s", cfg.ListenAddress)
	if err := http.ListenAndServe(cfg.ListenAddress, s.Router()); err != nil {
		logger.Fatalf("Error starting server: %v", err)
	}

	logger.Info("Closing server...")
}

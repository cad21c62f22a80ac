package main

import (
	"log/slog"
	"os"

	"go-multi-auth/internal/app"
	"go-multi-auth/internal/logger"
)

func main() {
	level := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	slog.SetDefault(slog.New(logger.New(os.Stdout, os.Getenv("LOG_FORMAT"), level)))

	a, err := app.New()
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	if err := a.Run(); err != nil {
		slog.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"log"
	"log/slog"

	"github.com/relayworks/jirabot/internal/auth/app"
)

func main() {
	app.LoadEnv(slog.Default())

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

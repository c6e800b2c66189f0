package main

import (
	"context"
	"log"

	"github.com/adb/usermgmt/internal/server"
	"github.com/adb/usermgmt/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {

	// Optional .env overlay for local development.
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}

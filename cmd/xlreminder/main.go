package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/ridhan354/xlreminder/app"
	"github.com/ridhan354/xlreminder/core/cmd"
)

func main() {
	// Local development convenience; absent .env files are fine.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(cfg cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return app.Bootstrap(cfg.(*app.Config))
		},
	})
	if err != nil {
		log.Fatalf("xlreminder: %v", err)
	}
}

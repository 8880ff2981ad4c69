package main

import (
	"context"
	"log"

	"chat-relay-be/internal/bootstrap"
	"chat-relay-be/internal/config"
	"chat-relay-be/internal/server"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Panicf("Unable to bootstrap application: %v", err)
	}
	defer container.Logger.Sync()

	// 3. Start Background Services
	go func() {
		log.Println("Background: Starting Naming Service...")
		if err := container.NamingService.Consume(context.Background()); err != nil {
			log.Printf("Background Naming Error: %v", err)
		}
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}

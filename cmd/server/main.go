package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nexza/filevault/internal/config"
	"github.com/nexza/filevault/internal/infrastructure/server"
)

func main() {
	configFile := flag.String("config", "", "Optional YAML config file overlaying the environment")
	baseDir := flag.String("base-dir", "", "Override the store base directory")
	port := flag.String("port", "", "Override the server port")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *configFile != "" {
		if err := cfg.ApplyFile(*configFile); err != nil {
			log.Fatalf("Failed to apply config file: %v", err)
		}
	}
	if *baseDir != "" {
		cfg.Store.BaseDir = *baseDir
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		// Flush what we can before exiting.
		if cerr := srv.Close(); cerr != nil {
			log.Printf("Error during shutdown: %v", cerr)
		}
		log.Fatalf("Server error: %v", err)
	}
}

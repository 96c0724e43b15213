package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FreePeak/golang-ipc-sdk/pkg/server"
	"github.com/FreePeak/golang-ipc-sdk/pkg/types"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	path := flag.String("path", "/ws", "websocket upgrade path")
	interval := flag.Duration("interval", 5*time.Second, "fan-out ping interval")
	flag.Parse()

	srv := server.NewServer(server.Config{
		Addr:        *addr,
		Path:        *path,
		Development: true,
	})

	// Clients can ask the server for the time.
	if err := srv.Route("time", func(_ context.Context, _ map[string]any) (any, error) {
		return time.Now().Format(time.RFC3339), nil
	}); err != nil {
		log.Fatalf("Failed to register route: %v", err)
	}

	events := srv.Subscribe(types.EventClientIdentified, types.EventClientDisconnected)
	go func() {
		for ev := range events {
			fmt.Printf("event: %s %s\n", ev.Topic, ev.Identifier)
		}
	}()

	// Periodically ping everybody and print the aggregate.
	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for range ticker.C {
			results := srv.RequestAll(context.Background(), "ping", nil)
			for identifier, result := range results {
				if result.Err != nil {
					fmt.Printf("%s: error: %v\n", identifier, result.Err)
					continue
				}
				fmt.Printf("%s: %s\n", identifier, result.Value)
			}
		}
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
}

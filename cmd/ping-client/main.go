package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/FreePeak/golang-ipc-sdk/pkg/client"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "server websocket URL")
	identifier := flag.String("identifier", "", "client identifier (server-assigned when empty)")
	overrideKey := flag.String("override-key", "", "override key for reclaiming the identifier")
	flag.Parse()

	c := client.NewClient(client.Config{
		URL:         *url,
		Identifier:  *identifier,
		OverrideKey: *overrideKey,
		Development: true,
	})

	// The server pings us periodically; answer with our identifier.
	if err := c.Route("ping", func(_ context.Context, _ map[string]any) (any, error) {
		return fmt.Sprintf("pong %s", c.Identifier()), nil
	}); err != nil {
		log.Fatalf("Failed to register route: %v", err)
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	fmt.Printf("connected as %q\n", c.Identifier())

	// Ask the server for the time once, then sit answering pings.
	now, err := c.Request(ctx, "time", nil)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	fmt.Printf("server time: %s\n", now)

	c.Wait()
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/lobby-relay/modules/api"
	"github.com/example/lobby-relay/modules/auth"
	"github.com/example/lobby-relay/modules/broadcast"
	"github.com/example/lobby-relay/modules/lobby"
	"github.com/example/lobby-relay/modules/session"
	"github.com/example/lobby-relay/modules/stats"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Lobby Relay - room matchmaking over WebSocket ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	lobbyModule := lobby.NewModule()
	authModule := auth.NewModule()
	statsModule := stats.NewModule()
	broadcastModule := broadcast.NewModule()
	sessionModule := session.NewModule()
	apiModule := api.NewModule()

	// The store, hub and dispatcher are in-process objects, not services, so they are wired by hand.
	broadcastModule.SetStore(lobbyModule.Store())
	sessionModule.SetDependencies(lobbyModule, broadcastModule.GetRouter())
	apiModule.SetHub(broadcastModule.GetHub(), broadcastModule.SendBuffer())
	apiModule.SetSessions(sessionModule)

	// Order: independent modules first, then modules with dependencies
	// - lobby: Room Store + Connection Registry (services + lifecycle events)
	// - auth: credential store (services)
	// - stats: lifecycle event consumer (services)
	// - broadcast: WebSocket hub + Broadcast Router
	// - session: event dispatcher, needs lobby and broadcast
	// - api: Fiber HTTP/WebSocket server, depends on lobby, auth, stats
	app.Register(lobbyModule)
	app.Register(authModule)
	app.Register(statsModule)
	app.Register(broadcastModule)
	app.Register(sessionModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                  - Health check")
	log.Println("  GET    /api/v1/rooms            - Room list snapshot")
	log.Println("  GET    /api/v1/rooms/:name      - Room details and members")
	log.Println("  GET    /api/v1/stats            - Room lifecycle counters")
	log.Println("  POST   /api/v1/auth/register    - Create an account")
	log.Println("  POST   /api/v1/auth/login       - Obtain a session token")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Connect with ?nickname=, ?token= or ?username=&password=")
	log.Println("  Frames: {\"event\": \"<name>\", \"data\": {...}}")
	log.Println("  Events: createRoom, joinRoom, leaveRoom, move, message, sendMessage, deleteRoom, listRooms")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

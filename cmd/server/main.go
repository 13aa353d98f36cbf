package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/timedeposit-backend/internal/adapter/grpc"
	"github.com/simaogato/timedeposit-backend/internal/app"
	"github.com/simaogato/timedeposit-backend/internal/config"
	"github.com/simaogato/timedeposit-backend/internal/usecase/seeder"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML or JSON config file")
	seedPath := flag.String("seed", os.Getenv("SEED_FILE"), "optional YAML file of accounts imported at startup")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Add 2-second delay to ensure Postgres is up (Simple retry)
	if cfg.Store.Driver == config.DriverPostgres {
		time.Sleep(2 * time.Second)
	}

	// 2. Open the store and wire services
	ctx := context.Background()
	deps, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer deps.Close()

	// 3. Optional seed import, then the initial load and rate fetch
	if *seedPath != "" {
		file, err := seeder.LoadSeedFile(*seedPath)
		if err != nil {
			log.Fatalf("Failed to read seed file: %v", err)
		}
		result, err := seeder.NewAccountSeeder(deps.Repo).Seed(ctx, file)
		if err != nil {
			log.Fatalf("Failed to seed accounts: %v", err)
		}
		log.Printf("Seeded accounts: %d created, %d existing, %d history records", result.Created, result.Existing, result.Records)
	}

	if _, err := deps.Ledger.LoadAll(ctx); err != nil {
		// The ledger stays empty; clients can retry through LoadDeposits
		log.Printf("Initial deposit load failed: %v", err)
	}
	if _, err := deps.Rates.Refresh(ctx); err == nil {
		log.Println("Exchange rates fetched successfully")
	}

	// 4. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(),
			grpcadapter.AuthInterceptor(cfg.Server.APIToken),
		),
		grpclib.StreamInterceptor(grpcadapter.StreamAuthInterceptor(cfg.Server.APIToken)),
	)

	grpcAdapter := grpcadapter.NewServer(deps.Ledger, deps.Rates, deps.Events, deps.Dashboard)
	grpcadapter.RegisterDepositServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.Server.Addr, err)
	}

	// Start server in a goroutine
	go func() {
		log.Printf("gRPC server listening on %s", cfg.Server.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC server: %v", err)
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal: %v. Shutting down gracefully...", sig)

	// Watch streams only end with their clients, so graceful stop is bounded
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		log.Println("Graceful stop timed out, closing open streams")
		grpcServer.Stop()
	}
	log.Println("gRPC server stopped")
}

package main

import (
	"context"
	"flag"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/rondafi/ronda/coordinator"
	"github.com/rondafi/ronda/oracle"
	"github.com/rondafi/ronda/service"
	"github.com/rondafi/ronda/storage"
	"github.com/rondafi/ronda/token"
	"github.com/rondafi/ronda/util"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := flag.String("dataDir", filepath.Join(home, ".ronda"), "data directory")
	host := flag.String("host", "0.0.0.0", "API host")
	port := flag.Int("port", 8080, "API port")
	logLevel := flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	minContribution := flag.Int64("minContribution", 1, "minimum contribution per cycle, in the token's smallest unit")
	requestTimeout := flag.Duration("oracleTimeout", coordinator.DefaultRequestTimeout, "deadline before a randomness request is re-issued")
	retryInterval := flag.Duration("retryInterval", time.Minute, "how often stalled randomness requests are checked")
	oracleDelay := flag.Duration("oracleDelay", 2*time.Second, "simulated oracle fulfillment delay")
	flag.Parse()

	log.Init(*logLevel, "stdout", nil)

	database, err := metadb.New(db.TypePebble, filepath.Join(*dataDir, "db"))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	store := storage.New(database)

	// This binary runs in simulation mode: an in-memory token ledger and a
	// deterministic oracle. Real token and oracle backends are host
	// integrations wired in place of these.
	ledger := token.NewMemLedger()
	source := oracle.NewSimSource(util.RandomBytes(32), *oracleDelay)

	coord, err := coordinator.New(coordinator.Config{
		MinContribution: big.NewInt(*minContribution),
		Oracle: oracle.RequestConfig{
			KeyHash:              util.Random32(),
			SubscriptionID:       1,
			MinimumConfirmations: 3,
			CallbackGasLimit:     200000,
			WordCount:            1,
		},
		RequestTimeout: *requestTimeout,
	}, ledger, source, store)
	if err != nil {
		log.Fatalf("failed to create coordinator: %v", err)
	}

	ctx := context.Background()
	coordSvc := service.NewCoordinator(coord, source, *retryInterval)
	if err := coordSvc.Start(ctx); err != nil {
		log.Fatalf("failed to start coordinator service: %v", err)
	}
	apiSvc := service.NewAPI(coord, *host, *port)
	if err := apiSvc.Start(ctx); err != nil {
		log.Fatalf("failed to start API service: %v", err)
	}
	log.Infow("rondad started", "dataDir", *dataDir, "host", *host, "port", *port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	apiSvc.Stop()
	coordSvc.Stop()
	source.Close()
	store.Close()
}

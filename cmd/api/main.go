package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/notify-dapp/internal/application/delivery"
	"github.com/notify-dapp/internal/application/draft"
	"github.com/notify-dapp/internal/config"
	"github.com/notify-dapp/internal/infrastructure/chain"
	"github.com/notify-dapp/internal/infrastructure/dynamo"
	"github.com/notify-dapp/internal/infrastructure/ipfs"
	jwtinfra "github.com/notify-dapp/internal/infrastructure/jwt"
	s3infra "github.com/notify-dapp/internal/infrastructure/s3"
	"github.com/notify-dapp/internal/infrastructure/sns"
	"github.com/notify-dapp/internal/infrastructure/status"
	"github.com/notify-dapp/internal/pkg/cryptohelper"
	"github.com/notify-dapp/internal/pkg/validate"
	transporthttp "github.com/notify-dapp/internal/transport/http"
	"github.com/notify-dapp/internal/transport/http/handler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Chain collaborators: the core contract for reads, one communicator per network.
	if !validate.Address(cfg.Chain.CoreAddress) {
		log.Fatalf("CORE_ADDRESS must be set to the core contract address")
	}
	channelKey, err := chain.ParsePrivateKey(cfg.Chain.ChannelPrivateKey)
	if err != nil {
		log.Fatalf("CHANNEL_PRIVATE_KEY: %v", err)
	}
	ethClient, err := chain.Dial(ctx, cfg.Chain.EthRPCURL)
	if err != nil || ethClient == nil {
		log.Fatalf("ethereum rpc: %v", err)
	}
	defer ethClient.Close()
	reader := chain.NewReader(common.HexToAddress(cfg.Chain.CoreAddress), ethClient, ethClient, cfg.Chain.LogScanFromBlock)

	networks := delivery.Networks{CommunicatorChainID: cfg.Chain.CommunicatorChainID}
	if validate.Address(cfg.Chain.EthCommAddress) {
		networks.Communicator = chain.NewCommunicator(ethClient, common.HexToAddress(cfg.Chain.EthCommAddress),
			channelKey, cfg.Chain.CommunicatorChainID)
	}
	if validate.Address(cfg.Chain.PolygonCommAddress) {
		polyClient, err := chain.Dial(ctx, cfg.Chain.PolygonRPCURL)
		switch {
		case err != nil:
			log.Printf("WARN: polygon rpc not available: %v", err)
		case polyClient == nil:
			log.Printf("WARN: POLYGON_COMM_ADDRESS set without POLYGON_RPC_URL")
		default:
			defer polyClient.Close()
			networks.Fallback = chain.NewCommunicator(polyClient, common.HexToAddress(cfg.Chain.PolygonCommAddress),
				channelKey, cfg.Chain.PolygonChainID)
		}
	}

	publisher, payloads, err := newPublisher(ctx, cfg)
	if err != nil {
		log.Fatalf("content store: %v", err)
	}
	board, err := newBoard(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("status board: %v", err)
	}

	// Without signing keys the routes stay open.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available, routes are unauthenticated: %v", err)
	}

	drafts := draft.NewStore()
	deliverySvc := delivery.NewService(delivery.ServiceDeps{
		Drafts:        drafts,
		Channels:      reader,
		Keys:          reader,
		Crypto:        cryptohelper.New(),
		Publisher:     publisher,
		Networks:      networks,
		ActiveChainID: cfg.Chain.ActiveChainID,
		Board:         board,
		Logger:        logger,
	})

	deps := &transporthttp.Deps{
		Drafts:      drafts,
		Delivery:    deliverySvc,
		Attempts:    board,
		Channels:    reader,
		Keys:        reader,
		Payloads:    payloads,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, chain=%d)", cfg.AppPort, cfg.AppEnv, cfg.Chain.ActiveChainID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newPublisher returns the configured content store, which also serves
// payload reads.
func newPublisher(ctx context.Context, cfg *config.Config) (delivery.Publisher, handler.PayloadFetcher, error) {
	switch cfg.ContentStore {
	case "s3":
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		p := s3infra.NewPublisher(client, cfg.S3BucketName)
		return p, p, nil
	case "ipfs", "":
		p := ipfs.NewPublisher(cfg.IPFSAPIURL, cfg.IPFSTimeout)
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("unknown CONTENT_STORE %q", cfg.ContentStore)
	}
}

// newBoard returns the attempt status board, mirrored to SNS when a topic is set.
func newBoard(ctx context.Context, cfg *config.Config, logger *slog.Logger) (status.Board, error) {
	var primary status.Board
	switch cfg.StatusStore {
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		primary = dynamo.NewStatusBoard(client, cfg.DynamoTables.Attempts, cfg.AttemptTTL)
	case "memory", "":
		primary = status.NewMemoryBoard()
	default:
		return nil, fmt.Errorf("unknown STATUS_STORE %q", cfg.StatusStore)
	}

	if cfg.SNSTopicARN == "" {
		return primary, nil
	}
	client, err := sns.NewClient(ctx, cfg)
	if err != nil {
		log.Printf("WARN: SNS status notifier not available: %v", err)
		return primary, nil
	}
	return status.NewFanOut(primary, logger, sns.NewStatusNotifier(client, cfg.SNSTopicARN)), nil
}

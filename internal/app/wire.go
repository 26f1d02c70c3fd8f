package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/openmint/marketd/internal/blob/s3"
	"github.com/openmint/marketd/internal/cache/redis"
	"github.com/openmint/marketd/internal/chain"
	"github.com/openmint/marketd/internal/config"
	"github.com/openmint/marketd/internal/domain"
	"github.com/openmint/marketd/internal/ledger"
	"github.com/openmint/marketd/internal/platform/backend"
	"github.com/openmint/marketd/internal/service"
	"github.com/openmint/marketd/internal/session"
	"github.com/openmint/marketd/internal/store/postgres"
	"github.com/openmint/marketd/internal/wallet"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Chain
	Wallet   wallet.Provider
	Mints    *service.MintService
	Listings *service.ListingService
	Auctions *service.AuctionService

	// Ledger
	LedgerStore domain.LedgerStore
	Coordinator *ledger.Coordinator

	// Caches
	SnapshotCache domain.SnapshotCache
	LockManager   domain.LockManager

	// Blob storage
	BlobWriter domain.BlobWriter

	// Catalog backend
	Sessions domain.SessionStore
	Backend  *backend.Client
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Wallet ---
	w, err := wallet.New(wallet.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	}, cfg.Chain.ChainID)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}
	deps.Wallet = w

	// --- Chain backend and contracts ---
	eth, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: chain dial: %w", err)
	}
	closers = append(closers, eth.Close)

	nft, err := chain.Bind(cfg.Chain.NFTAddress, chain.NFTABI, eth)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: nft contract: %w", err)
	}
	marketplace, err := chain.Bind(cfg.Chain.MarketplaceAddress, chain.MarketplaceABI, eth)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: marketplace contract: %w", err)
	}
	house, err := chain.Bind(cfg.Chain.AuctionHouseAddress, chain.AuctionHouseABI, eth)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: auction house contract: %w", err)
	}

	margin := cfg.Chain.GasMarginPercent
	deps.Mints = service.NewMintService(nft, margin, logger)
	deps.Listings = service.NewListingService(marketplace, margin, logger)
	deps.Auctions = service.NewAuctionService(house, eth, margin, logger)

	// --- PostgreSQL bid ledger ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.LedgerStore = postgres.NewLedgerStore(pgClient.Pool())

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	snapshotTTL := time.Duration(cfg.Redis.SnapshotTTL) * time.Second
	deps.SnapshotCache = redis.NewSnapshotCache(redisClient, snapshotTTL)
	deps.LockManager = redis.NewLockManager(redisClient)

	deps.Coordinator = ledger.New(deps.LedgerStore, deps.LockManager, logger)

	// --- S3 blob storage ---
	s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		UseSSL:         cfg.S3.UseSSL,
		ForcePathStyle: cfg.S3.ForcePathStyle,
		PublicBaseURL:  cfg.S3.PublicBaseURL,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: s3: %w", err)
	}
	closers = append(closers, func() { _ = s3Client.Close() })
	deps.BlobWriter = s3blob.NewWriter(s3Client)

	// --- Catalog backend ---
	deps.Sessions = session.NewFileStore(cfg.Session.Path)
	deps.Backend = backend.NewClient(cfg.Backend.BaseURL, deps.Sessions)

	return deps, cleanup, nil
}

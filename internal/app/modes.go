package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openmint/marketd/internal/server"
	"github.com/openmint/marketd/internal/server/handler"
	"github.com/openmint/marketd/internal/server/ws"
)

// shutdownGrace is how long in-flight HTTP requests get to finish after the
// run context is cancelled.
const shutdownGrace = 10 * time.Second

// ServeMode runs the HTTP + WebSocket API until the context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode",
		slog.Int("port", a.cfg.Server.Port),
		slog.String("wallet", deps.Wallet.Address()),
	)

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Tokens:      handler.NewTokenHandler(deps.Mints, deps.BlobWriter, hub, deps.Wallet, a.logger),
		Listings:    handler.NewListingHandler(deps.Listings, hub, deps.Wallet, a.logger),
		Auctions:    handler.NewAuctionHandler(deps.Auctions, deps.SnapshotCache, deps.Coordinator, hub, deps.Wallet, a.logger),
		Withdrawals: handler.NewWithdrawalHandler(deps.Auctions, deps.Coordinator, deps.Coordinator, hub, deps.Wallet, a.logger),
		Catalog:     handler.NewCatalogHandler(deps.Backend, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		APIKey:      a.cfg.Server.APIKey,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ReconcileMode performs a one-shot scan of the bid ledger against live
// chain state, logs every auction where the wallet holds a reclaimable
// deposit, and exits. Intended for cron-driven refund sweeps.
func (a *App) ReconcileMode(ctx context.Context, deps *Dependencies) error {
	account := deps.Wallet.Address()
	a.logger.InfoContext(ctx, "starting reconcile mode",
		slog.String("account", account),
	)

	snaps, err := deps.Coordinator.FindWithdrawable(ctx, deps.Auctions, account)
	if err != nil {
		return err
	}

	for _, snap := range snaps {
		a.logger.InfoContext(ctx, "withdrawable refund found",
			slog.String("auction_id", snap.AuctionID),
			slog.String("highest_bid", snap.HighestBid),
			slog.String("highest_bidder", snap.HighestBidder),
			slog.Int64("end_time", snap.EndTime),
		)
	}

	a.logger.InfoContext(ctx, "reconcile complete",
		slog.Int("withdrawable", len(snaps)),
	)
	return nil
}

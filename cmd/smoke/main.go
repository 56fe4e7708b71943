// Command smoke wires the full wallet stack and drives one courier through
// a complete booking lifecycle: recharge through the gateway, deduct for a
// shipment, hold and release a COD reserve, then a partial refund. It exits
// non-zero on the first unexpected outcome, so it doubles as a deployment
// check against a real PostgreSQL and Redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"courier-wallet/config"
	"courier-wallet/internal/adapter/gateway"
	memStorage "courier-wallet/internal/adapter/storage/memory"
	pgStorage "courier-wallet/internal/adapter/storage/postgres"
	redisStorage "courier-wallet/internal/adapter/storage/redis"
	"courier-wallet/internal/core/domain"
	"courier-wallet/internal/core/ports"
	"courier-wallet/internal/service"
	"courier-wallet/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file")
		accountID  = flag.String("account", "courier_smoke_001", "ledger account to exercise")
		usePG      = flag.Bool("postgres", false, "run against PostgreSQL and Redis instead of in-memory")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	ctx := context.Background()

	var (
		store ports.LedgerStore
		cache ports.EntryCache
	)
	if *usePG {
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()

		pgStore := pgStorage.NewLedgerStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure ledger schema")
		}
		store = pgStore
		log.Info().Msg("PostgreSQL connected")

		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		cache = redisStorage.NewEntryCache(rdb)
		log.Info().Msg("Redis connected")

		checkers := []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
		}
		for _, hc := range checkers {
			if err := hc.Ping(ctx); err != nil {
				log.Fatal().Err(err).Str("dependency", hc.Name()).Msg("Dependency health check failed")
			}
			log.Info().Str("dependency", hc.Name()).Msg("Dependency healthy")
		}
	} else {
		store = memStorage.NewLedgerStore()
		log.Info().Msg("Using in-memory ledger store")
	}

	engine := service.NewBalanceEngine()
	validator := service.NewTransactionValidator(store, engine, cfg.Wallet.MinRechargeAmount, cfg.Wallet.MinBalanceRequired)
	wallet := service.NewWalletService(store, cache, validator, engine, log)
	receipts := service.NewReceiptService(cfg.Tax.GSTPercent)
	gw := gateway.NewMockGateway(cfg.Gateway.DeclineAbove, log)
	recharge := service.NewRechargeService(gw, wallet, receipts, log)

	if err := run(ctx, *accountID, cfg, wallet, recharge); err != nil {
		log.Fatal().Err(err).Msg("smoke run failed")
	}
	log.Info().Msg("smoke run completed")
}

func run(ctx context.Context, accountID string, cfg *config.Config, wallet *service.WalletService, recharge *service.RechargeService) error {
	customer := domain.Customer{Name: "Smoke Courier", Email: "smoke@example.com"}

	res, err := recharge.Recharge(ctx, accountID, cfg.Wallet.MinRechargeAmount, domain.PaymentMethodUPI, customer)
	if err != nil {
		return fmt.Errorf("recharge: %w", err)
	}
	fmt.Printf("recharged %d paise, entry %s", res.Entry.Amount, res.Entry.ID)
	if res.Receipt != nil {
		fmt.Printf(", receipt %s (tax %d)", res.Receipt.Number, res.Receipt.TaxAmount)
	}
	fmt.Println()

	deduction := res.Entry.Amount / 4
	if _, err := wallet.DeductFunds(ctx, accountID, deduction, "shp_smoke_001", "shipment booking"); err != nil {
		return fmt.Errorf("deduct: %w", err)
	}

	hold, err := wallet.HoldFunds(ctx, accountID, deduction/2, "shp_smoke_002", "cod reserve")
	if err != nil {
		return fmt.Errorf("hold: %w", err)
	}
	if _, err := wallet.ReleaseFunds(ctx, accountID, hold.ID, "cod collected"); err != nil {
		return fmt.Errorf("release: %w", err)
	}

	if _, err := wallet.ProcessRefund(ctx, accountID, deduction/2, "shp_smoke_001", "partial cancellation"); err != nil {
		return fmt.Errorf("refund: %w", err)
	}

	summary, err := wallet.Balance(ctx, accountID)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	fmt.Printf("balance=%d held=%d available=%d\n", summary.Balance, summary.Held, summary.Available)

	statement, err := wallet.Statement(ctx, accountID)
	if err != nil {
		return fmt.Errorf("statement: %w", err)
	}
	for _, line := range statement {
		fmt.Printf("  #%d %-10s %8d -> %d\n", line.Entry.Sequence, line.Entry.Kind, line.Entry.Amount, line.BalanceAfter)
	}
	return nil
}

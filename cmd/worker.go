package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/sawmill/services/mill/config"
	"example.com/sawmill/services/mill/internal/cache"
	"example.com/sawmill/services/mill/internal/database"
	"example.com/sawmill/services/mill/internal/messaging"
	"example.com/sawmill/services/mill/internal/metrics"
	"example.com/sawmill/services/mill/internal/pricing"
	"example.com/sawmill/services/mill/internal/repositories"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that refreshes market pricing and watches spare part stock levels`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	dbs, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer dbs.Close()

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	publisher, err := messaging.NewServiceBusClient(cfg.Azure, "mill-worker")
	if err != nil {
		return err
	}
	defer publisher.Close()

	metricsCollector := metrics.NewMetrics()
	inventoryRepo := repositories.NewInventoryRepository(dbs.Write, dbs.ReadOnly)
	feed := pricing.NewHTTPFeed(cfg.PriceFeed)

	// Periodic market price refresh keeps the quote cache warm so API
	// requests rarely block on the upstream feed.
	g.Go(func() error {
		log.Info().
			Dur("interval", cfg.Worker.PriceRefreshInterval).
			Msg("Starting market price refresh job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.PriceRefreshInterval),
			gocron.NewTask(func() {
				price, err := feed.FetchMarketPrice(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Failed to refresh market price")
					metricsCollector.RecordError("worker.price_refresh")
					return
				}
				if err := redisCache.Set(ctx, cache.MarketPriceCacheKey, price, cfg.PriceFeed.CacheTTL); err != nil {
					log.Warn().Err(err).Msg("Failed to cache market price")
				}
				metricsCollector.SetGauge("pricing.market_price_cents", int64(price.MarketPrice*100))
				metricsCollector.RecordSuccess("worker.price_refresh")
				log.Info().Float64("market_price", price.MarketPrice).Msg("Refreshed market price")
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	// Low stock scan publishes an event per item so purchasing can react
	// before spare parts run out mid-maintenance.
	g.Go(func() error {
		log.Info().
			Dur("interval", cfg.Worker.LowStockInterval).
			Int("threshold", cfg.Worker.LowStockThreshold).
			Msg("Starting low stock scan job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.LowStockInterval),
			gocron.NewTask(func() {
				scanStart := time.Now()
				items, err := inventoryRepo.ListBelow(ctx, cfg.Worker.LowStockThreshold)
				if err != nil {
					log.Error().Err(err).Msg("Failed to scan for low stock items")
					metricsCollector.RecordError("worker.low_stock_scan")
					return
				}
				for _, item := range items {
					event := messaging.LowStockEvent{
						ItemID:    item.ID.String(),
						Name:      item.Name,
						Quantity:  item.Quantity,
						Threshold: cfg.Worker.LowStockThreshold,
					}
					if err := publisher.SendMessage(ctx, event); err != nil {
						log.Error().Err(err).
							Str("item_id", event.ItemID).
							Msg("Failed to publish low stock event")
					}
				}
				metricsCollector.SetGauge("inventory.low_stock_items", int64(len(items)))
				metricsCollector.RecordTimer("worker.low_stock_scan", time.Since(scanStart).Milliseconds())
				metricsCollector.RecordSuccess("worker.low_stock_scan")
				if len(items) > 0 {
					log.Info().Int("count", len(items)).Msg("Published low stock events")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/sawmill/services/mill/config"
	"example.com/sawmill/services/mill/internal/api"
	"example.com/sawmill/services/mill/internal/cache"
	"example.com/sawmill/services/mill/internal/database"
	"example.com/sawmill/services/mill/internal/messaging"
	"example.com/sawmill/services/mill/internal/metrics"
	"example.com/sawmill/services/mill/internal/pricing"
	"example.com/sawmill/services/mill/internal/repositories"
	"example.com/sawmill/services/mill/internal/scheduling"
	"example.com/sawmill/services/mill/internal/search"
	"example.com/sawmill/services/mill/internal/services"
	"example.com/sawmill/services/mill/internal/stock"
	"example.com/sawmill/services/mill/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for sawmill operations`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
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

	dbs, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer dbs.Close()

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	publisher, err := messaging.NewServiceBusClient(cfg.Azure, "mill-api")
	if err != nil {
		return err
	}
	defer publisher.Close()

	metricsCollector := metrics.NewMetrics()
	metricsCollector.SetHealth("database", true)

	inventoryRepo := repositories.NewInventoryRepository(dbs.Write, dbs.ReadOnly)
	shiftRepo := repositories.NewShiftRepository(dbs.Write, dbs.ReadOnly)
	maintenanceRepo := repositories.NewMaintenanceRepository(dbs.Write, dbs.ReadOnly)
	orderRepo := repositories.NewOrderRepository(dbs.Write, dbs.ReadOnly)
	calculationRepo := repositories.NewCalculationRepository(dbs.Write, dbs.ReadOnly)

	ledger := stock.NewLedger(dbs.Write)
	builder := scheduling.NewBuilder(shiftRepo, maintenanceRepo)
	feed := pricing.NewHTTPFeed(cfg.PriceFeed)

	svcs := api.Services{
		Inventory:   services.NewInventoryService(inventoryRepo, inventoryRepo, publisher, metricsCollector),
		Orders:      services.NewOrderService(dbs.Write, orderRepo, ledger, elasticClient, publisher, metricsCollector),
		Schedules:   services.NewScheduleService(builder, shiftRepo, metricsCollector),
		Maintenance: services.NewMaintenanceService(maintenanceRepo, ledger, publisher, metricsCollector),
		Calculator: services.NewCalculatorService(
			calculationRepo, redisCache, feed, elasticClient,
			metricsCollector, cfg.PriceFeed.CacheTTL,
		),
	}

	server := api.NewServer(cfg, svcs, metricsCollector, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	tracer.Close()
	log.Info().Msg("Shutting down API server")
	return nil
}

package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/wealthflow-analytics/internal/adapter/grpc"
	"github.com/simaogato/wealthflow-analytics/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-analytics/internal/adapter/repository/postgres"
	"github.com/simaogato/wealthflow-analytics/internal/adapter/repository/ratecache"
	"github.com/simaogato/wealthflow-analytics/internal/common"
	"github.com/simaogato/wealthflow-analytics/internal/domain"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/chart"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/currency"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/portfolio"
	"github.com/simaogato/wealthflow-analytics/internal/usecase/seeder"
)

type sources struct {
	portfolios domain.PortfolioSource
	positions  domain.PositionSource
	prices     domain.PriceSource
	rates      domain.ExchangeRateSource
	close      func() error
}

func main() {
	// 1. Load configuration
	var paths []string
	if configPaths := os.Getenv("WEALTHFLOW_CONFIG"); configPaths != "" {
		paths = strings.Split(configPaths, ",")
	}

	config, err := common.LoadConfig(paths...)
	if err != nil {
		common.NewLogger("info").Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := common.NewLogger(config.Logging.Level)

	// 2. Initialize sources
	ctx := context.Background()
	src, err := openSources(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("storage", config.Storage.Kind).Msg("Failed to initialize sources")
	}
	defer src.close()

	rates := ratecache.NewRateSource(src.rates, config.Cache.GetRateTTL(), config.Cache.GetCleanupInterval(), logger)

	// 3. Initialize Services (Use Cases)
	converter := currency.NewConverter(rates, config.DefaultCurrency)
	portfolioService := portfolio.NewPortfolioService(src.portfolios, src.positions, src.prices, converter, logger, config.Portfolio.Workers)
	chartService := chart.NewChartService(portfolioService, logger)

	// 4. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.CallInterceptor(logger)),
	)

	grpcadapter.RegisterAnalyticsServiceServer(grpcServer, grpcadapter.NewServer(converter, portfolioService, chartService))

	if !config.IsProduction() {
		reflection.Register(grpcServer)
	}

	address := config.Server.Address()
	lis, err := net.Listen("tcp", address)
	if err != nil {
		logger.Fatal().Err(err).Str("address", address).Msg("Failed to listen")
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("address", address).
			Str("default_currency", config.DefaultCurrency).
			Str("storage", config.Storage.Kind).
			Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, logger)
}

// openSources connects the configured storage backend
func openSources(ctx context.Context, config *common.Config, logger *common.Logger) (*sources, error) {
	if config.Storage.Kind == "memory" {
		store := memory.NewStore()
		if config.Storage.SeedFile == "" {
			logger.Warn().Msg("Using in-memory storage without a seed file; every source starts empty")
		} else {
			if err := seeder.NewFixtureSeeder(store, store.Portfolios()).SeedFile(ctx, config.Storage.SeedFile); err != nil {
				return nil, err
			}
			logger.Info().Str("seed_file", config.Storage.SeedFile).Msg("In-memory storage seeded")
		}
		return &sources{
			portfolios: store.Portfolios(),
			positions:  store.Positions(),
			prices:     store.Prices(),
			rates:      store.Rates(),
			close:      func() error { return nil },
		}, nil
	}

	db, err := postgres.NewDB(ctx, config.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	return &sources{
		portfolios: postgres.NewPortfolioRepository(db),
		positions:  postgres.NewPositionRepository(db),
		prices:     postgres.NewPriceRepository(db),
		rates:      postgres.NewExchangeRateRepository(db),
		close:      db.Close,
	}, nil
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, logger *common.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	grpcServer.GracefulStop()
	logger.Info().Msg("gRPC server stopped")
}

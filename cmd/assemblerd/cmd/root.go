/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/atlas-assembler/internal/adapter/postgres"
	"github.com/atlas-assembler/internal/adapter/types"
	"github.com/atlas-assembler/internal/config"
	"github.com/atlas-assembler/internal/datastore"
	"github.com/atlas-assembler/internal/edm"
	"github.com/atlas-assembler/internal/indexing"
	"github.com/atlas-assembler/internal/kvstore"
	"github.com/atlas-assembler/internal/logging"
	"github.com/atlas-assembler/internal/search"
)

var (
	configPath  string
	metricsAddr string
	verbose     bool
)

// rootCmd runs the background expiration/indexing daemon.
var rootCmd = &cobra.Command{
	Use:   "assemblerd",
	Short: "Background expiration and indexing daemon",
	Long: `assemblerd runs the background services of the organization assembly
platform: expired data deletion per entity set policy, dirty entity
reindexing into the search index, and the distributed lock scavenger
that lets concurrent nodes share the work.

Example:
  assemblerd --config /etc/assembler/config.yaml`,
	RunE: runDaemon,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Address for the Prometheus metrics endpoint")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.Init(level)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := kvstore.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	indexer, err := search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, logger)
	if err != nil {
		return err
	}

	production, err := connectProduction(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer production.Close()

	pool, err := production.Pool()
	if err != nil {
		return err
	}
	registry, err := edm.NewPostgresRegistry(pool)
	if err != nil {
		return err
	}
	dataStore, err := datastore.NewStore(pool)
	if err != nil {
		return err
	}

	locks := indexing.NewExpirationLocks(store, cfg.Indexer.LockDuration, logger)
	service, err := indexing.NewService(cfg.Indexer, dataStore, registry, indexer, locks, logger)
	if err != nil {
		return err
	}
	if err := service.Start(); err != nil {
		return err
	}
	defer service.Stop()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			logger.Error("metrics endpoint failed", "error", err)
		}
	}()

	logger.Info("assemblerd started", "metricsAddr", metricsAddr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	return nil
}

func connectProduction(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*postgres.Adapter, error) {
	endpoint, err := types.ParseDatabaseURL(cfg.Assembler.ProductionURL)
	if err != nil {
		return nil, err
	}

	adapter := postgres.NewAdapter(types.ConnectionConfig{
		Host:            endpoint.Host,
		Port:            int32(endpoint.Port),
		Database:        endpoint.Database,
		Username:        cfg.Assembler.ProductionUsername,
		Password:        cfg.Assembler.ProductionPassword,
		ApplicationName: "assemblerd",
	}).WithLogger(logger)
	if err := adapter.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to production: %w", err)
	}
	return adapter, nil
}

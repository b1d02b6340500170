package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kristianakila/restbek2/auth"
	"github.com/kristianakila/restbek2/config"
	coreredis "github.com/kristianakila/restbek2/db/redis"
	"github.com/kristianakila/restbek2/events/kafka"
	"github.com/kristianakila/restbek2/httpclient"
	"github.com/kristianakila/restbek2/logging"
	"github.com/kristianakila/restbek2/pkg/feed"
	"github.com/kristianakila/restbek2/pkg/providers"
	"github.com/kristianakila/restbek2/provider"
	"github.com/kristianakila/restbek2/server"
	"github.com/kristianakila/restbek2/wheel"
)

var configDir string

func main() {
	rootCmd := &cobra.Command{
		Use:   "wheelserver",
		Short: "Multi-tenant reward wheel service",
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding config.<env>.yaml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(seedTenantCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the wheel HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadByEnv(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := logging.New(cfg.Logging)

			redisClient, err := coreredis.New(cfg.Redis)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer redisClient.Close() //nolint:errcheck

			txOpts := providers.TxOptions{
				MaxRetries: cfg.Engine.TxMaxRetries,
				Backoff:    cfg.Engine.TxBackoff,
				Timeout:    cfg.Engine.TxTimeout,
			}
			userStore := provider.NewUserStore(redisClient, txOpts, logger)
			tenantStore := provider.NewTenantStore(redisClient, logger)
			tenantCache := wheel.NewTenantConfigCache(tenantStore, cfg.Engine.TenantCacheTTL, nil, logger)

			tgClient := httpclient.New(httpclient.Config{
				BaseURL: cfg.Telegram.APIBaseURL,
				Timeout: cfg.Telegram.Timeout,
				Logger:  logger,
			})
			notifier := provider.NewTelegramNotifier(tgClient, logger)
			subChecker := provider.NewTelegramSubscriptionChecker(tgClient, logger)

			feedService := feed.NewService(feed.ServiceConfig{Logger: logger})

			var producer *kafka.Producer
			if len(cfg.Kafka.Brokers) > 0 {
				producer, err = kafka.NewProducerWithConfig(kafka.ProducerConfig{
					Brokers: cfg.Kafka.Brokers,
					Logger:  logger,
				})
				if err != nil {
					return fmt.Errorf("connect kafka: %w", err)
				}
			}
			observer := server.NewSpinFanout(producer, cfg.Kafka.SpinTopic, feedService, logger)

			engine := wheel.NewEngine(wheel.EngineOptions{
				UserStore:           userStore,
				TenantCache:         tenantCache,
				Notifier:            notifier,
				SubscriptionChecker: subChecker,
				Observer:            observer,
				Logger:              logger,
				NotifyTimeout:       cfg.Engine.NotifyTimeout,
			})

			app := server.New(server.Options{
				Config: cfg,
				Logger: logger,
				Engine: engine,
				Feed:   feedService,
			})
			app.UseCommonMiddlewares()
			app.RegisterHealthCheck()
			app.RegisterMetrics()
			app.RegisterWheelRoutes()

			// Mirror wins from other instances into the local feed.
			if len(cfg.Kafka.Brokers) > 0 {
				consumer := kafka.NewConsumer(kafka.ConsumerConfig{
					Brokers:       cfg.Kafka.Brokers,
					Topic:         cfg.Kafka.SpinTopic,
					ConsumerGroup: cfg.Kafka.ConsumerGroup,
					Logger:        logger,
				}, server.FeedSpinEvent(feedService))
				if err := consumer.Start(); err != nil {
					return fmt.Errorf("start kafka consumer: %w", err)
				}
				app.OnShutdown(func() { consumer.Stop() }) //nolint:errcheck
			}
			if producer != nil {
				app.OnShutdown(func() { producer.Close() }) //nolint:errcheck
			}

			return app.Run()
		},
	}
}

func tokenCmd() *cobra.Command {
	var userID, tenantID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a JWT for testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadByEnv(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			token, err := auth.GenerateToken(cfg.JWT.Secret, userID, tenantID, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed in the token")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant scope (empty = any tenant)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.MarkFlagRequired("user") //nolint:errcheck
	return cmd
}

func seedTenantCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-tenant",
		Short: "Load a tenant config JSON file into Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadByEnv(configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var tenant wheel.TenantConfig
			if err := json.Unmarshal(data, &tenant); err != nil {
				return fmt.Errorf("parse tenant config: %w", err)
			}
			if tenant.TenantID == "" {
				return fmt.Errorf("tenant config is missing tenantId")
			}

			redisClient, err := coreredis.New(cfg.Redis)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer redisClient.Close() //nolint:errcheck

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			key := fmt.Sprintf("wheel:tenant:%s", tenant.TenantID)
			if err := redisClient.SetJSON(ctx, key, tenant, 0); err != nil {
				return fmt.Errorf("store tenant config: %w", err)
			}

			fmt.Printf("tenant %q stored at %s\n", tenant.TenantID, key)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to tenant config JSON")
	cmd.MarkFlagRequired("file") //nolint:errcheck
	return cmd
}

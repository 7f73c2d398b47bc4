package main

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/api/option"

	"geotrack.dev/geotrack/internal/api"
	"geotrack.dev/geotrack/internal/identity"
	"geotrack.dev/geotrack/internal/ingest"
	"geotrack.dev/geotrack/internal/store"
	"geotrack.dev/geotrack/internal/tracking"
	"geotrack.dev/geotrack/pkg/metrics"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the API server",
	Long: `Run the HTTP API server that:
- Serves user, device, position, geofence and notification endpoints
- Persists all data to the hosted document store
- Optionally consumes position reports and device announcements from RabbitMQ
- Exposes Prometheus metrics`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().Int("http-port", 8080, "HTTP server port")
	serverCmd.Flags().String("database-url", "", "Document store database URL")
	serverCmd.Flags().String("credentials-file", "", "Service account credentials file")
	serverCmd.Flags().String("api-key", "", "Identity provider web API key")
	serverCmd.Flags().String("rabbitmq-url", "", "RabbitMQ connection URL (consumers disabled when empty)")
	serverCmd.Flags().String("report-queue", "position-reports", "Queue for position reports")
	serverCmd.Flags().String("device-queue", "device-announcements", "Queue for device announcements")
	serverCmd.Flags().Bool("metrics", true, "Enable Prometheus metrics")

	// Bind flags to viper
	_ = viper.BindPFlag("server.http.port", serverCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("server.database.url", serverCmd.Flags().Lookup("database-url"))
	_ = viper.BindPFlag("server.database.credentials", serverCmd.Flags().Lookup("credentials-file"))
	_ = viper.BindPFlag("server.identity.apikey", serverCmd.Flags().Lookup("api-key"))
	_ = viper.BindPFlag("server.rabbitmq.url", serverCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("server.rabbitmq.reportqueue", serverCmd.Flags().Lookup("report-queue"))
	_ = viper.BindPFlag("server.rabbitmq.devicequeue", serverCmd.Flags().Lookup("device-queue"))
	_ = viper.BindPFlag("server.metrics.enabled", serverCmd.Flags().Lookup("metrics"))
}

func runServer(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting geotrack server")

	ctx := context.Background()

	// Initialize the document store and identity provider
	opts := []option.ClientOption{}
	if credentials := viper.GetString("server.database.credentials"); credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		DatabaseURL: viper.GetString("server.database.url"),
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	dbClient, err := app.Database(ctx)
	if err != nil {
		return fmt.Errorf("failed to create database client: %w", err)
	}

	documentStore, err := store.NewFirebase(dbClient)
	if err != nil {
		return fmt.Errorf("failed to create document store: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("failed to create auth client: %w", err)
	}

	identityProvider, err := identity.NewFirebase(&identity.FirebaseConfig{
		Logger: logger,
		Client: authClient,
		APIKey: viper.GetString("server.identity.apikey"),
	})
	if err != nil {
		return fmt.Errorf("failed to create identity provider: %w", err)
	}

	// Optional metrics
	var apiMetrics *metrics.APIMetrics
	var consumerMetrics *metrics.ConsumerMetrics
	if viper.GetBool("server.metrics.enabled") {
		apiMetrics = metrics.NewAPIMetrics("geotrack")
		consumerMetrics = metrics.NewConsumerMetrics("geotrack")
	}

	service, err := tracking.New(&tracking.Config{
		Logger:   logger,
		Store:    documentStore,
		Identity: identityProvider,
		Metrics:  apiMetrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracking service: %w", err)
	}

	// Optional RabbitMQ consumers
	if rabbitURL := viper.GetString("server.rabbitmq.url"); rabbitURL != "" {
		consumer, err := ingest.NewConsumer(&ingest.ConsumerConfig{
			Logger:      logger,
			Service:     service,
			RabbitMQURL: rabbitURL,
			QueueName:   viper.GetString("server.rabbitmq.reportqueue"),
			Metrics:     consumerMetrics,
		})
		if err != nil {
			return fmt.Errorf("failed to create report consumer: %w", err)
		}
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start report consumer: %w", err)
		}
		defer func() { _ = consumer.Close() }()

		deviceConsumer, err := ingest.NewDeviceConsumer(&ingest.DeviceConsumerConfig{
			Logger:      logger,
			Service:     service,
			RabbitMQURL: rabbitURL,
			QueueName:   viper.GetString("server.rabbitmq.devicequeue"),
		})
		if err != nil {
			return fmt.Errorf("failed to create device consumer: %w", err)
		}
		if err := deviceConsumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start device consumer: %w", err)
		}
		defer func() { _ = deviceConsumer.Close() }()
	}

	server, err := api.NewServer(&api.ServerConfig{
		Logger:   logger,
		Service:  service,
		HTTPPort: viper.GetInt("server.http.port"),
		Metrics:  apiMetrics,
	})
	if err != nil {
		logger.Error("failed to create API server", "error", err)
		return err
	}

	logger.Info("server configuration",
		"http_port", viper.GetInt("server.http.port"),
		"database_url", viper.GetString("server.database.url"),
		"rabbitmq_enabled", viper.GetString("server.rabbitmq.url") != "",
	)

	if err := server.Run(ctx); err != nil {
		logger.Error("API server error", "error", err)
		return err
	}

	logger.Info("geotrack server stopped")
	return nil
}

// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/canonical/schema-tenancy/internal/config"
	"github.com/canonical/schema-tenancy/internal/db"
	"github.com/canonical/schema-tenancy/internal/logging"
	"github.com/canonical/schema-tenancy/internal/monitoring/prometheus"
	"github.com/canonical/schema-tenancy/internal/password"
	"github.com/canonical/schema-tenancy/internal/storage"
	"github.com/canonical/schema-tenancy/internal/tracing"
	"github.com/canonical/schema-tenancy/pkg/authentication"
	"github.com/canonical/schema-tenancy/pkg/status"
	"github.com/canonical/schema-tenancy/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the web server",
	Long:  `Launch the web application, list of environment variables is available in the readme`,
	Run: func(cmd *cobra.Command, args []string) {
		main()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		panic(fmt.Errorf("issues with environment sourcing: %s", err))
	}

	logger := logging.NewLogger(specs.LogLevel)
	logger.Debugf("http port %v, grpc port %v, tracing enabled %v", specs.Port, specs.GRPCPort, specs.TracingEnabled)
	defer logger.Sync()

	monitor := prometheus.NewMonitor("schema-tenancy", logger)
	tracer := tracing.NewTracer(tracing.NewConfig(specs.TracingEnabled, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, logger))

	dbConfig := db.Config{
		DSN:             specs.DSN,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
		TracingEnabled:  specs.TracingEnabled,
	}
	dbClient, err := db.NewDBClient(dbConfig, tracer, monitor, logger)
	if err != nil {
		return fmt.Errorf("failed to create database client: %v", err)
	}
	defer dbClient.Close()
	s := storage.NewStorage(dbClient, tracer, monitor, logger)

	tokens, err := authentication.NewJWTManager(specs.TokenSecret, specs.TokenLifetime, tracer, monitor, logger)
	if err != nil {
		return fmt.Errorf("failed to create token manager: %v", err)
	}
	cookies := authentication.NewCookieManager(tokens.Lifetime(), specs.CookieSecure)
	if !specs.CookieSecure {
		logger.Warn("session cookies are sent without the Secure attribute")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	probe := status.NewHealthProbe(dbClient, 0, monitor, logger)
	go probe.Run(ctx)

	lis, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%v", specs.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	healthpb.RegisterHealthServer(grpcServer, probe.Server())

	go func() {
		logger.Infof("Starting gRPC server on port %v", specs.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Errorf("gRPC server stopped: %v", err)
		}
	}()

	router := web.NewRouter(
		web.Config{
			CORSAllowedOrigins:   specs.CORSAllowedOrigins,
			ProvisionMaxAttempts: specs.ProvisionMaxAttempts,
		},
		s,
		dbClient,
		tokens,
		cookies,
		password.NewBcryptHasher(specs.BcryptCost),
		tracer,
		monitor,
		logger,
	)
	logger.Infof("Starting HTTP server on port %v", specs.Port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%v", specs.Port),
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	var serverError error
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Security().SystemStartup()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError = fmt.Errorf("server error: %w", err)
			c <- os.Interrupt
		}
	}()

	<-c

	// report NOT_SERVING before draining so balancers stop routing here
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Security().SystemShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serverError = fmt.Errorf("server shutdown error: %w", err)
	}
	grpcServer.GracefulStop()

	return serverError
}

func main() {
	if err := serve(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

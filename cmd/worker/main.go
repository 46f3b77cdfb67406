package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/septivank/device-activity-log/internal/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const lifecycleTimeout = 30 * time.Second

func main() {
	loadDotEnv()

	app := fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			ProvideBlobStore,
			ProvideActivityLog,
			ProvideValidator,
			ProvideMQConnection,
			ProvidePublisher,
			ProvideProcessorService,
		),
		fx.Invoke(registerListeners, startWorker),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), lifecycleTimeout)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		if errors.Is(startCtx.Err(), context.DeadlineExceeded) {
			fmt.Fprintf(os.Stderr, "application did not start within %s; check store and RabbitMQ connectivity\n", lifecycleTimeout)
		}
		fmt.Fprintln(os.Stderr, "failed to start:", err)
		os.Exit(1)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), lifecycleTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintln(os.Stderr, "error stopping app:", err)
	}
}

// loadDotEnv loads the first .env found in the working directory or up to two parents
func loadDotEnv() {
	candidates := []string{".env"}
	if workDir, err := os.Getwd(); err == nil {
		parent := filepath.Dir(workDir)
		candidates = append(candidates,
			filepath.Join(parent, ".env"),
			filepath.Join(filepath.Dir(parent), ".env"),
		)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			absPath, _ := filepath.Abs(path)
			fmt.Printf("Loaded environment from: %s\n", absPath)
			return
		}
	}
	fmt.Println("No .env file found, using system environment variables")
}

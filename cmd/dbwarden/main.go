package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/semmidev/dbwarden/internal/adapter/compressor"
	"github.com/semmidev/dbwarden/internal/adapter/encryptor"
	"github.com/semmidev/dbwarden/internal/app"
	"github.com/semmidev/dbwarden/internal/config"
	"github.com/semmidev/dbwarden/internal/infrastructure/logger"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	once := flag.Bool("once", false, "run a single backup cycle and exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	restore := flag.String("restore", "", "decrypt and decompress a backup artifact, then exit")
	restoreDir := flag.String("restore-dir", ".", "directory that receives the restored dump; must not be DUMP_DIR")
	passphraseEnv := flag.String("passphrase-env", "ENCRYPTION_PASSPHRASE", "environment variable holding the passphrase for -restore")
	driveAuth := flag.String("gdrive-auth", "", "serve the Google Drive consent flow on this address, then exit on signal")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *restore != "" {
		opts := app.RestoreOptions{OutputDir: *restoreDir, Passphrase: os.Getenv(*passphraseEnv)}
		if cfg, err := config.Load(); err == nil {
			opts.DumpDir = cfg.DumpDir
		}
		out, err := app.Restore(*restore, opts, compressor.NewGzip(), encryptor.NewAES())
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		fmt.Println(out)
		return nil
	}

	if *driveAuth != "" {
		return runDriveAuth(ctx, *driveAuth)
	}

	cfg, err := config.Load()
	if err != nil {
		if config.IsConfigError(err) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(ctx, cfg, app.Options{Once: *once, Version: version})
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer application.Shutdown()

	return application.Run(ctx)
}

func runDriveAuth(ctx context.Context, addr string) error {
	secret := os.Getenv("GDRIVE_CLIENT_SECRET_FILE")
	if secret == "" {
		return fmt.Errorf("GDRIVE_CLIENT_SECRET_FILE must point to an OAuth client secret")
	}

	l, err := logger.New(logger.Options{})
	if err != nil {
		return err
	}
	defer l.Close()

	srv, err := app.NewDriveAuthServer(l, secret)
	if err != nil {
		return fmt.Errorf("initialize oauth: %w", err)
	}
	return srv.Run(ctx, addr)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ryabkov82/hospital-bulk-server/internal/batch"
	"github.com/ryabkov82/hospital-bulk-server/internal/client"
	"github.com/ryabkov82/hospital-bulk-server/internal/config"
	"github.com/ryabkov82/hospital-bulk-server/internal/httpapi"
	"github.com/ryabkov82/hospital-bulk-server/internal/logging"
	"github.com/ryabkov82/hospital-bulk-server/internal/version"
)

func main() {
	configFile := flag.String("config", "", "JSON config file (default $HBS_CONFIG)")
	envFile := flag.String("env-file", config.DefaultEnvFile, "dotenv file merged into the environment when present")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(config.LoadOptions{File: *configFile, EnvFile: *envFile}); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", version.Name, err)
		os.Exit(1)
	}
}

func run(opts config.LoadOptions) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	closer, err := logging.Setup(cfg.Log.Options())
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer closer.Close()

	directory := client.New(cfg.Remote.BaseURL,
		client.WithBatchTimeout(cfg.Remote.BatchTimeout),
		client.WithProxyTimeout(cfg.Remote.ProxyTimeout),
	)

	log.WithFields(log.Fields{
		"version":    version.Version,
		"git_commit": version.GitCommit,
		"remote":     directory.BaseURL(),
		"max_rows":   cfg.Server.MaxRows,
	}).Info("Starting " + version.String())

	orchestrator := batch.NewOrchestrator(directory)
	handler := httpapi.NewHandler(orchestrator, directory, cfg.Server.MaxRows)
	e := httpapi.NewServer(httpapi.ServerOptions{
		Debug:          cfg.Server.Debug,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, handler)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		log.Infof("Server starting on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Infof("Received %s, shutting down...", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// In-flight bulk uploads finish within the shutdown window
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}

	log.Info("Server stopped")
	return nil
}

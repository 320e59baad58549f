package main

import (
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/Tyrowin/framechat/internal/account"
	"github.com/Tyrowin/framechat/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store := account.NewStore(cfg.AccountsPath)
	store.Load()
	logger.Info("loaded account store", "path", cfg.AccountsPath, "records", store.Len())

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Error("failed to bind listening socket", "addr", cfg.Addr, "error", err)
		os.Exit(1)
	}
	logger.Info("server listening", "addr", cfg.Addr)

	hub := server.NewHub(cfg, store, logger)
	go hub.Run()
	go hub.Serve(ln)

	var gateway *server.Gateway
	if cfg.GatewayAddr != "" {
		gateway = server.NewGateway(cfg, hub, logger)
		go func() {
			if err := gateway.Start(); err != nil {
				logger.Error("gateway failed", "error", err)
			}
		}()
	}

	console := server.NewConsole(hub, os.Stdin, logger)
	consoleErr := make(chan error, 1)
	go func() {
		consoleErr <- console.Run()
	}()

	select {
	case <-hub.Done():
	case err := <-consoleErr:
		if err != nil {
			logger.Error("operator console failed", "error", err)
			os.Exit(1)
		}
		<-hub.Done()
	}

	if gateway != nil {
		if err := gateway.Shutdown(5 * time.Second); err != nil {
			logger.Warn("gateway shutdown incomplete", "error", err)
		}
	}
	if err := hub.Shutdown(5 * time.Second); err != nil {
		logger.Warn("some connection goroutines did not finish", "error", err)
	}

	if err := hub.Err(); err != nil {
		logger.Error("shutdown finished with persist failure", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

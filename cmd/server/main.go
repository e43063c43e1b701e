package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"login-guard/internal/config"
	"login-guard/internal/factory"
	"login-guard/internal/handler"
	"login-guard/internal/secrets"
	"login-guard/internal/util"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		util.Fatal("Invalid configuration", util.ErrorField(err))
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	defer util.Sync()
	logger := util.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if cfg.KMS.Enabled {
		resolver, err := secrets.NewKMSResolver(ctx, cfg.KMS, logger)
		if err != nil {
			util.Fatal("Failed to initialize KMS", util.ErrorField(err))
		}
		if err := resolver.RevealConfig(ctx, cfg); err != nil {
			util.Fatal("Failed to decrypt secrets", util.ErrorField(err))
		}
	}

	f, err := factory.NewFactory(cfg, logger)
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	router := handler.NewRouter(f.EventHandler(), f, handler.RouterOptions{
		RequireTLS: cfg.Server.EnableTLS,
	}, logger)

	servers := startServers(f, cfg, router)

	consumerDone := make(chan struct{})
	if c := f.Consumer(); c != nil {
		go func() {
			defer close(consumerDone)
			util.Info("Starting Kafka consumer",
				util.String("topic", cfg.Kafka.EventsTopic),
				util.Int("workers", cfg.Pipeline.Workers))
			if err := c.Run(ctx); err != nil {
				util.Error("Kafka consumer stopped", util.ErrorField(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	<-ctx.Done()
	util.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			util.Error("Failed to shutdown server gracefully", util.ErrorField(err))
		} else {
			util.Info("Server shutdown completed", util.String("address", srv.Addr))
		}
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		util.Warn("Kafka consumer did not drain before shutdown deadline")
	}
}

// startServers launches the API listener and, with ACME enabled, the plain
// HTTP listener that answers challenges.
func startServers(f *factory.Factory, cfg *config.Config, router http.Handler) []*http.Server {
	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	servers := []*http.Server{server}

	if !cfg.Server.EnableTLS {
		util.Warn("Starting HTTP server - TLS is disabled",
			util.String("environment", cfg.Environment),
			util.Int("port", cfg.Server.Port))
		go serve(server, server.ListenAndServe)
		return servers
	}

	tlsManager := f.TLSManager()
	server.Addr = fmt.Sprintf(":%d", cfg.Server.TLSPort)
	server.TLSConfig = tlsManager.TLSConfig()

	if acme := tlsManager.AutocertManager(); acme != nil {
		challenge := &http.Server{
			Addr:              cfg.GetServerAddress(),
			Handler:           acme.HTTPHandler(nil),
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, challenge)
		go serve(challenge, challenge.ListenAndServe)
	}

	util.Info("Starting HTTPS server",
		util.String("environment", cfg.Environment),
		util.Int("port", cfg.Server.TLSPort),
		util.Bool("auto_cert", cfg.Server.AutoCert))
	go serve(server, func() error { return server.ListenAndServeTLS("", "") })

	return servers
}

func serve(srv *http.Server, listen func() error) {
	if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		util.Fatal("Server failed to start", util.ErrorField(err), util.String("address", srv.Addr))
	}
}

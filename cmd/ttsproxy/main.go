package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/DaanHessen/basis-tower/internal/synth"
	"github.com/DaanHessen/basis-tower/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := util.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	flag.StringVar(&cfg.ProxyAddr, "addr", cfg.ProxyAddr, "Listen address")
	flag.StringVar(&cfg.UpstreamURL, "upstream", cfg.UpstreamURL, "Speech provider URL")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Debug logging")
	flag.Parse()

	logger, err := zap.NewProduction()
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.UpstreamAPIKey == "" {
		logger.Warn("TTS_API_KEY not set; upstream may reject requests")
	}
	upstream := synth.NewUpstream(cfg.UpstreamURL, cfg.UpstreamAPIKey)

	srv := &http.Server{
		Addr:              cfg.ProxyAddr,
		Handler:           synth.NewRouter(upstream, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("tts proxy listening", zap.String("addr", srv.Addr), zap.String("upstream", upstream.URL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

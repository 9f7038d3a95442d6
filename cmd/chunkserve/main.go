// Command chunkserve is a reference receiver for chunked transfers:
// it buffers envelopes, reassembles them and answers with a summary of
// what the terminal handler received. It exists so senders can be
// exercised end to end without the production front door.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v5"

	"github.com/voxlane/chunkstream/reassembly"
)

type config struct {
	Host       string        `envconfig:"CHUNKSERVE_HOST" default:"0.0.0.0"`
	Port       int           `envconfig:"CHUNKSERVE_PORT" default:"8080"`
	DBPath     string        `envconfig:"CHUNKSERVE_DB_PATH"`
	BufferTTL  time.Duration `envconfig:"CHUNKSERVE_BUFFER_TTL" default:"10m"`
	PruneEvery time.Duration `envconfig:"CHUNKSERVE_PRUNE_EVERY" default:"1m"`
}

func main() {
	logger := log.NewLogger()

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Errorf("load config: %s", err)
		os.Exit(1)
	}

	store, closeStore, err := newStore(cfg)
	if err != nil {
		logger.Errorf("open chunk store: %s", err)
		os.Exit(1)
	}
	defer closeStore()

	go pruneLoop(context.Background(), store, cfg, logger)

	e := echo.New()
	e.Use(reassembly.Middleware(store, logger))
	e.POST("/api/:destination", handleInspect(logger))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.Infof("chunkserve listening on %s", addr)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("server: %s", err)
		os.Exit(1)
	}
}

func newStore(cfg config) (reassembly.Store, func(), error) {
	if cfg.DBPath == "" {
		return reassembly.NewMemoryStore(), func() {}, nil
	}
	store, err := reassembly.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func pruneLoop(ctx context.Context, store reassembly.Store, cfg config, logger log.Logger) {
	ticker := time.NewTicker(cfg.PruneEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped, err := store.PruneStale(ctx, cfg.BufferTTL)
			if err != nil {
				logger.Warnf("prune stale transfers: %s", err)
				continue
			}
			if dropped > 0 {
				logger.Infof("Dropped %d stale partial transfers", dropped)
			}
		}
	}
}

// handleInspect stands in for the real business endpoint: it reports
// what arrived after reassembly so senders can verify payload
// integrity.
func handleInspect(logger log.Logger) echo.HandlerFunc {
	return func(c *echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "read request body")
		}

		destination := c.Param("destination")
		sum := sha256.Sum256(body)
		logger.Infof("%s: received %d bytes", destination, len(body))

		return c.JSON(http.StatusOK, map[string]interface{}{
			"destination": destination,
			"bytes":       len(body),
			"sha256":      hex.EncodeToString(sum[:]),
			"contentType": c.Request().Header.Get(echo.HeaderContentType),
		})
	}
}

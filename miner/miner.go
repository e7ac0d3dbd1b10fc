// Package miner wires a mining session together with its pool client, ledger and metrics endpoint.
package miner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ore-hq/pool-miner/config"
	"github.com/ore-hq/pool-miner/history"
	"github.com/ore-hq/pool-miner/logging"
	"github.com/ore-hq/pool-miner/pool"
	"github.com/ore-hq/pool-miner/search"
	"github.com/ore-hq/pool-miner/session"
	"github.com/ore-hq/pool-miner/signing"
)

type Miner struct {
	cfg      config.Config
	identity *signing.Identity
	history  *history.DB
	session  *session.Session

	metricsListener net.Listener
}

// NewClient loads the operator's identity and returns a pool client acting on its behalf.
func NewClient(ctx context.Context, cfg config.Config) (*pool.Client, *signing.Identity, error) {
	identity, err := signing.ResolveKeypair(cfg.Keypair)
	if err != nil {
		return nil, nil, fmt.Errorf("loading keypair: %w", err)
	}
	client, err := pool.NewClient(cfg.Pool, identity, pool.WithLogger(logging.FromContext(ctx).Named("pool")))
	if err != nil {
		return nil, nil, fmt.Errorf("creating pool client: %w", err)
	}
	return client, identity, nil
}

func New(ctx context.Context, cfg config.Config) (*Miner, error) {
	client, identity, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, err
	}
	db, err := history.Open(cfg.HistoryDir())
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s, err := session.New(
		client,
		identity,
		session.WithConfig(cfg.Mining),
		session.WithStore(db),
		session.WithBackoff(cfg.Pool.Backoff),
	)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating mining session: %w", err), db.Close())
	}

	m := &Miner{
		cfg:      cfg,
		identity: identity,
		history:  db,
		session:  s,
	}

	if cfg.MetricsPort != nil {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", *cfg.MetricsPort))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to listen: %w", err), db.Close())
		}
		m.metricsListener = l
	}

	logging.FromContext(ctx).Info("miner ready",
		zap.String("address", identity.Address()),
		zap.Stringer("session_id", client.SessionID()),
	)
	return m, nil
}

// MetricsAddr returns the address of the metrics endpoint, nil if disabled.
func (m *Miner) MetricsAddr() net.Addr {
	if m.metricsListener == nil {
		return nil
	}
	return m.metricsListener.Addr()
}

// Close releases the history database and the metrics listener, which Start
// may already have closed.
func (m *Miner) Close() error {
	var err error
	if m.metricsListener != nil {
		if lerr := m.metricsListener.Close(); lerr != nil && !errors.Is(lerr, net.ErrClosed) {
			err = fmt.Errorf("closing metrics listener: %w", lerr)
		}
	}
	return errors.Join(err, m.history.Close())
}

// Start mines until ctx is cancelled. The metrics endpoint, if enabled,
// is served for as long as the session runs.
func (m *Miner) Start(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	group, ctx := errgroup.WithContext(ctx)

	logger := logging.FromContext(ctx)

	if m.cfg.Nice != 0 {
		if err := search.SetNiceness(m.cfg.Nice); err != nil {
			logger.Warn("failed to set process priority", zap.Int("nice", m.cfg.Nice), zap.Error(err))
		}
	}

	group.Go(func() error {
		// The metrics server only lives as long as the session.
		defer stop()
		return m.session.Run(ctx)
	})

	if m.metricsListener != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Handler: mux, ReadHeaderTimeout: time.Second * 5}

		group.Go(func() error {
			logger.Sugar().Infof("metrics server listening on %s", m.metricsListener.Addr())
			err := server.Serve(m.metricsListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Sugar().Errorf("failed to shutdown metrics server: %s", err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("mining: %w", err)
	}
	return nil
}

package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/migui/internal/broker"
)

// Resolver dials the broker on first use and reuses the connection until
// it drops.
type Resolver struct {
	url  string
	opts Options

	mu   sync.Mutex
	conn *Conn
}

// NewResolver creates a lazy resolver for the broker at url.
func NewResolver(url string, opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{url: url, opts: opts}
}

// Resolve implements broker.Resolver.
func (r *Resolver) Resolve(ctx context.Context, ref broker.Reference) (broker.Proxy, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Resolve(ctx, ref)
}

func (r *Resolver) connection(ctx context.Context) (*Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		select {
		case <-r.conn.Done():
			r.opts.Logger.Info("broker connection lost, redialing", "url", r.url)
			r.conn = nil
		default:
			return r.conn, nil
		}
	}

	conn, err := Dial(ctx, r.url, r.opts)
	if err != nil {
		return nil, err
	}
	r.opts.Logger.Debug("connected to broker", "url", r.url, "session", conn.Session())
	r.conn = conn
	return conn, nil
}

// Close closes the current connection, if any.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

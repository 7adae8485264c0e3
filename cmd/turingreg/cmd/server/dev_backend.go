package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mlcoe/turingreg/pkg/devapi"
	"github.com/mlcoe/turingreg/pkg/shared/kvs"
	"github.com/mlcoe/turingreg/pkg/shared/logging"
)

// DevBackend runs the development registration backend on a local port.
type DevBackend struct {
	server   *http.Server
	listener net.Listener
	store    kvs.Store
	api      *devapi.Server
	logger   logging.Logger
	done     chan struct{}
}

// StartDevBackend starts the development backend on addr. An empty addr picks
// a free port on 127.0.0.1.
func StartDevBackend(addr string, cfg devapi.Config, logger logging.Logger) (*DevBackend, error) {
	if logger == nil {
		logger = logging.NewSimpleLogger("devapi", logging.LevelInfo, true)
	}
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	cfg.SetDefaults()

	store, err := kvs.New(cfg.KVS)
	if err != nil {
		return nil, fmt.Errorf("failed to create devapi KVS: %w", err)
	}

	api, err := devapi.New(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	d := &DevBackend{
		server:   &http.Server{Handler: api, ReadHeaderTimeout: 10 * time.Second},
		listener: listener,
		store:    store,
		api:      api,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(d.done)
		if err := d.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Warn("Development backend error", "error", err)
		}
	}()

	logger.Info("Development backend started", "addr", d.URL(), "sender", cfg.Email.SenderType, "kvs", cfg.KVS.Type)
	return d, nil
}

// URL returns the backend's base URL.
func (d *DevBackend) URL() string {
	return "http://" + d.listener.Addr().String()
}

// APIURL returns the base URL of the student endpoints' parent.
func (d *DevBackend) APIURL() string {
	return d.URL() + "/api/v1"
}

// Done is closed once the backend stops serving.
func (d *DevBackend) Done() <-chan struct{} {
	return d.done
}

// Stop shuts the backend down and closes its store.
func (d *DevBackend) Stop() {
	if d == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		d.logger.Warn("Development backend shutdown error", "error", err)
	}
	<-d.done
	_ = d.store.Close()
	d.logger.Info("Development backend stopped")
}

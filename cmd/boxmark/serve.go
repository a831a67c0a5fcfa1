package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/example/boxmark/internal/config"
	"github.com/example/boxmark/internal/store"
)

// serveCmd runs the storage service.
type serveCmd struct {
	command
	listen string
	db     string

	ready func(addr string)
}

func parseServeCmd(args []string, r *root) (*serveCmd, error) {
	c := &serveCmd{command: newCommand(r, "serve")}
	c.fs.Usage = usageFunc(c)
	c.fs.StringVar(&c.listen, "listen", r.config.Listen, "address to listen on (default "+store.DefaultAddr+")")
	c.fs.StringVar(&c.db, "db", r.config.DB, "sqlite database path (default "+config.DefaultDBPath()+")")
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	if c.fs.NArg() > 0 {
		return nil, &UsageError{of: c}
	}
	if c.listen == "" {
		c.listen = store.DefaultAddr
	}
	if c.db == "" {
		c.db = config.DefaultDBPath()
	}
	return c, nil
}

func (c *serveCmd) Run() error {
	if dir := filepath.Dir(c.db); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := store.OpenDB(c.db)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	hub := store.NewHub(c.logger)
	go hub.Run(ctx)

	ln, err := net.Listen("tcp", c.listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", c.listen, err)
	}
	srv := &http.Server{
		Handler:           store.NewServer(store.NewSQLStore(db), hub, c.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("shutdown", "err", err)
		}
	}()

	c.logger.Info("serving", "addr", ln.Addr().String(), "db", c.db)
	if c.ready != nil {
		c.ready(ln.Addr().String())
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

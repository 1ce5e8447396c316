package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/tokensale/internal/config"
	"github.com/roach88/tokensale/internal/engine"
	"github.com/roach88/tokensale/internal/store"
)

// openStore opens an existing database. Unlike store.Open it never creates
// a new file; only init does that.
func openStore(path string) (*store.Store, error) {
	if path != store.MemoryPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		} else if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// loadConfig reads the deployment configuration written by init.
func loadConfig(ctx context.Context, st *store.Store) (config.Config, engine.Params, error) {
	body, err := st.ReadConfig(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return config.Config{}, engine.Params{}, NewExitError(ExitCommandError, "database is not initialized (run tokensale init)")
	}
	if err != nil {
		return config.Config{}, engine.Params{}, WrapExitError(ExitCommandError, "failed to read config", err)
	}
	cfg, err := config.Unmarshal(body)
	if err != nil {
		return config.Config{}, engine.Params{}, WrapExitError(ExitCommandError, "stored config is invalid", err)
	}
	params, err := cfg.Params()
	if err != nil {
		return config.Config{}, engine.Params{}, WrapExitError(ExitCommandError, "stored config is invalid", err)
	}
	return cfg, params, nil
}

// session is an engine rebuilt from a store's event log. Commits made
// through it are written back to the same store by the engine's Run loop.
type session struct {
	store  *store.Store
	config config.Config
	engine *engine.Engine
	done   chan error
}

func openSession(ctx context.Context, path string) (*session, error) {
	st, err := openStore(path)
	if err != nil {
		return nil, err
	}
	cfg, params, err := loadConfig(ctx, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	eng, err := engine.Replay(ctx, params, st, engine.WithWriter(st))
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to replay event log (run tokensale verify)", err)
	}

	s := &session{store: st, config: cfg, engine: eng, done: make(chan error, 1)}
	go func() {
		s.done <- eng.Run(context.WithoutCancel(ctx))
	}()
	return s, nil
}

// Close stops the engine, waits until every queued commit is written and
// closes the store.
func (s *session) Close() error {
	s.engine.Stop()
	err := <-s.done
	if err == nil {
		err = s.engine.LastError()
	}
	closeErr := s.store.Close()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to persist commit", err)
	}
	if closeErr != nil {
		return WrapExitError(ExitCommandError, "failed to close database", closeErr)
	}
	return nil
}

// commandContext returns the command's context, falling back to
// Background for commands executed without one.
func commandContext(cmd interface{ Context() context.Context }) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

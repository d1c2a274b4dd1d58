package locks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// PostgresAdvisoryLock maps names to session-level advisory locks. The
// connection holding a lock stays pinned until Release, so Postgres frees
// the lock if the process dies.
type PostgresAdvisoryLock struct {
	db *sql.DB

	mu    sync.Mutex
	conns map[string]*sql.Conn
}

func NewPostgresAdvisoryLock(db *sql.DB) *PostgresAdvisoryLock {
	return &PostgresAdvisoryLock{db: db, conns: make(map[string]*sql.Conn)}
}

func (l *PostgresAdvisoryLock) Acquire(ctx context.Context, name string, timeout time.Duration) (bool, error) {
	if l.db == nil {
		return false, errors.New("acquire advisory lock: DB is nil")
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire advisory lock %q: get conn: %w", name, err)
	}

	ok, err := pollUntil(ctx, timeout, func(ctx context.Context) (bool, error) {
		var got bool
		if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1));`, name).Scan(&got); err != nil {
			return false, fmt.Errorf("acquire advisory lock %q: %w", name, err)
		}
		return got, nil
	})
	if !ok || err != nil {
		conn.Close()
		return false, err
	}

	l.mu.Lock()
	l.conns[name] = conn
	l.mu.Unlock()
	return true, nil
}

func (l *PostgresAdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn, ok := l.conns[name]
	delete(l.conns, name)
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("release advisory lock %q: not held", name)
	}
	defer conn.Close()

	var released bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock(hashtext($1));`, name).Scan(&released); err != nil {
		return fmt.Errorf("release advisory lock %q: %w", name, err)
	}
	if !released {
		return fmt.Errorf("release advisory lock %q: not held by session", name)
	}
	return nil
}

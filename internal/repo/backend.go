package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/collab-board/internal/config"
)

// Backend groups the repositories of one storage driver.
type Backend struct {
	Tasks   TaskRepository
	Actions ActionRepository
	Users   UserRepository

	ping  func(context.Context) error
	close func()
}

func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open подключается к хранилищу, выбранному в конфиге, и применяет схему.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL) // Создаем новое соединение к БД
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return NewPostgresBackend(pool), nil

	case config.StoreSQLite:
		db, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Tasks:   NewSQLiteTaskRepo(db),
			Actions: NewSQLiteActionRepo(db),
			Users:   NewSQLiteUserRepo(db),
			ping:    db.PingContext,
			close:   func() { db.Close() },
		}, nil

	case config.StoreMemory:
		return NewMemoryBackend(NewMemory()), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func NewPostgresBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{
		Tasks:   NewTaskRepo(pool),
		Actions: NewActionRepo(pool),
		Users:   NewUserRepo(pool),
		ping:    pool.Ping,
		close:   pool.Close,
	}
}

func NewMemoryBackend(m *Memory) *Backend {
	return &Backend{
		Tasks:   m.Tasks(),
		Actions: m.Actions(),
		Users:   m.Users(),
	}
}

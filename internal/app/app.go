// Package app builds the stock engine and its document services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/lock"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/tx"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/catalogs/article"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/inventory"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/purchase"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/registers/stock"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/config"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/filelock"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/migration"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/postgres"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/postgres/catalog_repo"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/postgres/document_repo"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/postgres/register_repo"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/sqlite"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// App holds the wired services of one store.
type App struct {
	Config *config.Config

	Articles    *article.Service
	Stock       *stock.Service
	Inventories *inventory.Service
	Purchases   *purchase.Service

	Locker lock.Locker

	migrator func() (*migration.Migrator, error)
	closers  []func() error
}

// repositories is the storage surface one backend provides.
type repositories struct {
	txm       tx.Manager
	stock     stock.Repository
	articles  article.Repository
	inventory inventory.Repository
	purchases purchase.Repository
}

// New opens the configured store and wires every service on it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		Locker: filelock.New(cfg.LockPath(), cfg.Lock.Timeout),
	}

	var (
		repos repositories
		err   error
	)
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		repos, err = a.openSQLite(ctx)
	case config.DriverPostgres:
		repos, err = a.openPostgres(ctx)
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Articles = article.NewService(repos.articles, repos.txm)
	a.Stock = stock.NewService(repos.stock, repos.txm, a.Locker, stock.Options{
		StrictRevertOrder: cfg.Stock.StrictRevertOrder,
	})
	a.Inventories = inventory.NewService(repos.inventory, a.Stock, repos.txm)
	a.Purchases = purchase.NewService(repos.purchases, a.Stock, a.Articles, repos.txm)

	logger.Info(ctx, "stock engine ready",
		"driver", cfg.Storage.Driver,
		"lock", a.Locker.Path(),
		"strict_revert_order", cfg.Stock.StrictRevertOrder,
	)
	return a, nil
}

func (a *App) openSQLite(ctx context.Context) (repositories, error) {
	sqlCfg := sqlite.DefaultConfig(a.Config.Storage.Path)
	sqlCfg.BusyTimeout = a.Config.Storage.BusyTimeout

	db, err := sqlite.Open(ctx, sqlCfg)
	if err != nil {
		return repositories{}, err
	}
	a.closers = append(a.closers, db.Close)
	a.migrator = func() (*migration.Migrator, error) {
		return migration.NewSQLite(sqlite.DSN(sqlCfg), logger.FromContext(ctx))
	}

	txm := sqlite.NewTxManager(db)
	return repositories{
		txm:       txm,
		stock:     sqlite.NewStockRepo(txm),
		articles:  sqlite.NewArticleRepo(txm),
		inventory: sqlite.NewInventoryRepo(txm),
		purchases: sqlite.NewPurchaseRepo(txm),
	}, nil
}

func (a *App) openPostgres(ctx context.Context) (repositories, error) {
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(a.Config.Storage.DSN))
	if err != nil {
		return repositories{}, err
	}
	a.closers = append(a.closers, func() error {
		postgres.LogPoolStats(ctx, pool)
		pool.Close()
		return nil
	})
	a.migrator = func() (*migration.Migrator, error) {
		return migration.NewPostgres(a.Config.Storage.DSN, logger.FromContext(ctx))
	}

	opts := postgres.DefaultTxOptions()
	opts.LockTimeout = a.Config.Storage.BusyTimeout
	txm := postgres.NewTxManager(pool, opts)
	return repositories{
		txm:       txm,
		stock:     register_repo.NewStockRepo(txm),
		articles:  catalog_repo.NewArticleRepo(txm),
		inventory: document_repo.NewInventoryRepo(txm),
		purchases: document_repo.NewPurchaseRepo(txm),
	}, nil
}

// Migrate applies pending schema migrations under the maintenance lock.
func (a *App) Migrate(ctx context.Context) error {
	return a.withMigrator(ctx, func(m *migration.Migrator) error {
		return m.Up()
	})
}

// MigrateDown rolls every migration back under the maintenance lock.
func (a *App) MigrateDown(ctx context.Context) error {
	return a.withMigrator(ctx, func(m *migration.Migrator) error {
		return m.Down()
	})
}

// MigrateSteps applies n migrations, rolling back when n is negative.
func (a *App) MigrateSteps(ctx context.Context, n int) error {
	return a.withMigrator(ctx, func(m *migration.Migrator) error {
		return m.Steps(n)
	})
}

// ForceSchemaVersion records version as applied and clears the dirty flag
// without running any migration.
func (a *App) ForceSchemaVersion(ctx context.Context, version int) error {
	return a.withMigrator(ctx, func(m *migration.Migrator) error {
		return m.Force(version)
	})
}

// SchemaVersion reports the applied migration version.
func (a *App) SchemaVersion(ctx context.Context) (version uint, dirty bool, err error) {
	err = a.withMigrator(ctx, func(m *migration.Migrator) error {
		version, dirty, err = m.Version()
		return err
	})
	return version, dirty, err
}

func (a *App) withMigrator(ctx context.Context, fn func(m *migration.Migrator) error) error {
	if a.migrator == nil {
		return errors.New("no store opened")
	}
	return lock.With(ctx, a.Locker, func(ctx context.Context) error {
		m, err := a.migrator()
		if err != nil {
			return err
		}
		defer func() {
			if cerr := m.Close(); cerr != nil {
				logger.Warn(ctx, "close migrator", "error", cerr)
			}
		}()
		return fn(m)
	})
}

// Close releases the store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

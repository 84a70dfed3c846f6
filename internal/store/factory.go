package store

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-management-api/internal/config"
	"github.com/iliyamo/cinema-management-api/internal/database"
)

// New opens the backend named by cfg.StoreBackend.
//
// Supported backends:
//
//	"mongo"    - MongoDB at MONGO_URL, database MONGO_DB (default)
//	"mysql"    - documents table in MySQL
//	"postgres" - documents table in PostgreSQL via pgx
//	"sqlite"   - documents table in a SQLite file at SQLITE_PATH
//	"memory"   - in-memory (ephemeral, for tests and local runs)
func New(ctx context.Context, cfg config.Config, logger echo.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case "mongo", "":
		client, err := database.ConnectMongo(ctx, cfg.MongoURL)
		if err != nil {
			return nil, err
		}
		logger.Infof("store: mongo database %s", cfg.MongoDB)
		return NewMongoStore(client, cfg.MongoDB), nil
	case "mysql":
		db, err := database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		logger.Infof("store: mysql %s@%s:%s/%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)
		return NewMySQLStore(ctx, db)
	case "postgres":
		db, err := database.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("store: postgres")
		return NewPostgresStore(ctx, db)
	case "sqlite":
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Infof("store: sqlite %s", cfg.SQLitePath)
		return NewSQLiteStore(ctx, db)
	case "memory":
		logger.Warn("store: in-memory backend, data is lost on restart")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: mongo, mysql, postgres, sqlite, memory)", cfg.StoreBackend)
	}
}

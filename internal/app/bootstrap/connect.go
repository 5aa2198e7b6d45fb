// internal/app/bootstrap/connect.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ConnectDB opens the Mongo client and pings it, so the listener never
// starts against an unreachable database. The logger also becomes zap's
// global logger, which the index reconciler uses.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	zap.ReplaceGlobals(logger)

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, wafflemongo.PoolConfig{
		MaxPoolSize:            appCfg.MongoMaxPoolSize,
		MinPoolSize:            appCfg.MongoMinPoolSize,
		ConnectTimeout:         coreCfg.DBConnectTimeout,
		ServerSelectionTimeout: coreCfg.DBConnectTimeout,
	})
	if err != nil {
		logger.Error("MongoDB connect failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize),
		zap.Uint64("min_pool", appCfg.MongoMinPoolSize))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

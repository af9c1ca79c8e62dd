package cmd

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"eventmanager/config"
	"eventmanager/db"
	"eventmanager/models"
)

type stores struct {
	sql    *sql.DB
	mongo  *mongo.Client
	redis  *redis.Client
	users  models.UserRepository
	events models.EventRepository
	regs   models.RegistrationRepository
}

// openStores connects Postgres and MongoDB, and Redis when withRedis is set.
// Redis failures are logged and leave the cache disabled.
func openStores(ctx context.Context, cfg config.Config, logger zerolog.Logger, withRedis bool) (*stores, error) {
	sqldb, err := db.OpenPostgres(ctx, db.PostgresOptions{
		DSN:          cfg.Postgres.DSN,
		MaxOpenConns: cfg.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Postgres.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	mg, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	eventsCol := mg.Database(cfg.Mongo.Database).Collection(db.EventsCollection)
	if err := db.EnsureEventIndexes(ctx, eventsCol); err != nil {
		_ = mg.Disconnect(context.Background())
		_ = sqldb.Close()
		return nil, err
	}

	s := &stores{
		sql:    sqldb,
		mongo:  mg,
		users:  models.NewSQLUserRepository(sqldb),
		events: models.NewMongoEventRepository(eventsCol),
		regs:   models.NewSQLRegistrationRepository(sqldb),
	}

	if withRedis {
		rdb, err := db.OpenRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, response cache and quota disabled")
		}
		s.redis = rdb
	}
	return s, nil
}

func (s *stores) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	_ = s.mongo.Disconnect(context.Background())
	_ = s.sql.Close()
}

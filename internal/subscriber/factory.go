package subscriber

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"callrouter/internal/config"
	"callrouter/internal/constants"
	"callrouter/internal/logger"
	"callrouter/internal/trace"
	"callrouter/pkg/circuitbreaker"
)

// Stores holds the database clients a connector may need. Unused clients
// may be nil.
type Stores struct {
	Postgres *sql.DB
	Redis    *redis.Client
	Mongo    *mongo.Client
}

// NewConnector builds the connector selected by cfg.Subscriber.Type, wrapped
// with a circuit breaker when enabled and always instrumented.
func NewConnector(cfg *config.Config, stores Stores, sink trace.Sink, log logger.Logger) (Connector, error) {
	sub := cfg.Subscriber

	var connector Connector
	switch sub.Type {
	case constants.ConnectorNone, "":
		return NoneConnector{}, nil

	case constants.ConnectorHTTP:
		connector = NewHTTPConnector(sub.HTTP, log)

	case constants.ConnectorPostgres:
		if stores.Postgres == nil {
			return nil, fmt.Errorf("postgres connector requires a database connection")
		}
		connector = NewPostgresConnector(stores.Postgres)

	case constants.ConnectorRedis:
		if stores.Redis == nil {
			return nil, fmt.Errorf("redis connector requires a redis client")
		}
		connector = NewRedisConnector(stores.Redis, sub.KeyPrefix)

	case constants.ConnectorMongoDB:
		if stores.Mongo == nil {
			return nil, fmt.Errorf("mongodb connector requires a mongodb client")
		}
		collection := stores.Mongo.Database(cfg.Database.MongoDB.Database).Collection(sub.Collection)
		connector = NewMongoConnector(collection)

	default:
		return nil, fmt.Errorf("unknown subscriber connector: %s", sub.Type)
	}

	if cfg.CircuitBreaker.Enabled {
		cb := cfg.CircuitBreaker
		connector = WrapWithCircuitBreaker(connector, "subscriber-"+sub.Type, circuitbreaker.FromSettings(
			"subscriber-"+sub.Type,
			cb.MaxRequests,
			cb.Interval,
			cb.Timeout,
			cb.FailureRatio,
			cb.MinRequests,
		))
	}

	log.Infow("Using subscriber connector", "type", sub.Type)
	return Instrument(connector, sub.Type, sink, log), nil
}

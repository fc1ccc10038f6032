package repository

import (
	"fmt"
	"strings"

	"resource-booking/pkg/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

type Repository struct {
	Booking IntervalStore
}

// Backends groups the connections a store may be built on; only the one matching the
// selected backend needs to be set.
type Backends struct {
	Postgres database.PgxIface
	Mongo    *mongo.Database
}

func NewRepository(backend string, conns Backends, log *zap.Logger) (*Repository, error) {
	var store IntervalStore

	switch strings.ToLower(backend) {
	case BackendPostgres:
		if conns.Postgres == nil {
			return nil, fmt.Errorf("postgres backend selected without a connection")
		}
		store = NewPostgresStore(conns.Postgres, log)
	case BackendMongo:
		if conns.Mongo == nil {
			return nil, fmt.Errorf("mongo backend selected without a database")
		}
		store = NewMongoStore(conns.Mongo, log)
	case BackendMemory, "":
		store = NewMemoryStore(log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}

	return &Repository{Booking: store}, nil
}

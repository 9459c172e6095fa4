package pgx

import (
	"context"
	"sync"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// TopicDBStore implements the TopicStore interface using PostgreSQL with
// pgvector for vector similarity search. Writes are serialized with a mutex.
type TopicDBStore struct {
	conn   pgxIConn
	dbLock sync.Mutex
}

// NewTopicDBStoreWithConnection creates a new TopicDBStore using an existing
// database connection or pool. The connection must have pgvector types
// registered.
func NewTopicDBStoreWithConnection(conn pgxIConn) *TopicDBStore {
	return &TopicDBStore{
		conn:   conn,
		dbLock: sync.Mutex{},
	}
}

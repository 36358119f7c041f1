package db

import (
	"context"
)

// Database is a pooled SQL handle that can also run transactions.
type Database interface {
	Querier
	Transactor

	// Ping verifies a connection to the database is still alive
	Ping(ctx context.Context) error

	// Close closes the pool
	Close() error
}

// Transactor runs fn inside a transaction. The transaction commits when fn returns nil
// and rolls back otherwise.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx Transaction) error) error
}

// Transaction is a Querier bound to an open transaction.
type Transaction interface {
	Querier
	Commit() error
	Rollback() error
}

// Rows is the result of a query
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is the result of QueryRow
type Row interface {
	Scanner
}

// Scanner is satisfied by both Row and Rows.
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Result summarizes an executed statement
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

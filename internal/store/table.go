// Package store provides the single-table item store the repositories are
// built on: primary addresses, one secondary index, conditional writes and
// bounded all-or-nothing transactions, with Redis and Postgres backends.
package store

import (
	"context"
	"errors"
	"fmt"
)

// MaxTransactionWrites bounds one TransactWrite call.
const MaxTransactionWrites = 100

// MaxQueryLimit bounds the items returned by one Query call.
const MaxQueryLimit = 200

var (
	ErrNotFound        = errors.New("item not found")
	ErrConditionFailed = errors.New("condition check failed")
	ErrInvalidItem     = errors.New("invalid item")
	ErrInvalidQuery    = errors.New("invalid query")
	ErrTooManyWrites   = errors.New("too many writes in transaction")
	ErrDuplicateWrite  = errors.New("transaction touches the same key twice")
	ErrContention      = errors.New("transaction aborted by concurrent writers")
	ErrInvalidCursor   = errors.New("invalid cursor")
)

// TxCanceledError reports which write of a transaction failed its condition.
// It matches ErrConditionFailed under errors.Is.
type TxCanceledError struct {
	Index int
	Key   Key
}

func (e *TxCanceledError) Error() string {
	return fmt.Sprintf("transaction canceled: condition failed on write %d (%s)", e.Index, e.Key)
}

func (e *TxCanceledError) Unwrap() error {
	return ErrConditionFailed
}

// Query reads one partition of the primary address space or of the secondary
// index, ordered by sort key.
type Query struct {
	Index      string // "" for the primary address space, IndexGSI1 otherwise
	Partition  string
	SortPrefix string
	Descending bool
	Limit      int
	Cursor     string
}

// Page is one bounded read. Cursor is empty when nothing remains.
type Page struct {
	Items  []Item
	Cursor string
}

// Table is the single-table store.
type Table interface {
	// Get returns ErrNotFound when no item is stored at key.
	Get(ctx context.Context, key Key) (Item, error)
	Put(ctx context.Context, item Item, cond *Condition) error
	// Update sets and removes attributes and returns the resulting item.
	// Without a condition a missing item is created.
	Update(ctx context.Context, key Key, set Item, remove []string, cond *Condition) (Item, error)
	Delete(ctx context.Context, key Key, cond *Condition) error
	Query(ctx context.Context, q Query) (Page, error)
	// TransactWrite applies all writes or none. A failed condition yields
	// *TxCanceledError.
	TransactWrite(ctx context.Context, writes []Write) error
	Ping(ctx context.Context) error
	Close() error
}

func (q Query) validate() error {
	if q.Partition == "" {
		return fmt.Errorf("%w: empty partition", ErrInvalidQuery)
	}
	if q.Index != "" && q.Index != IndexGSI1 {
		return fmt.Errorf("%w: unknown index %q", ErrInvalidQuery, q.Index)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}

func (q Query) limit() int {
	if q.Limit <= 0 || q.Limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return q.Limit
}

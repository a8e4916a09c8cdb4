package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PostgresTable keeps every item in one table with a partial index standing
// in for GSI1. Existing rows are locked FOR UPDATE while conditions are
// checked; absent rows guarded by a condition are created with a plain INSERT
// so concurrent creators collide on the primary key.
type PostgresTable struct {
	db *sql.DB
}

func NewPostgresTable(db *sql.DB) *PostgresTable {
	return &PostgresTable{db: db}
}

func (t *PostgresTable) DB() *sql.DB {
	return t.db
}

func (t *PostgresTable) Get(ctx context.Context, key Key) (Item, error) {
	var raw []byte
	err := t.db.QueryRowContext(ctx, `SELECT attrs FROM items WHERE pk=$1 AND sk=$2`, key.PK, key.SK).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", key, err)
	}
	return decodeItem(raw)
}

func (t *PostgresTable) Put(ctx context.Context, item Item, cond *Condition) error {
	_, err := t.write(ctx, []Write{PutWrite(item, cond)})
	return singleWriteError(err)
}

func (t *PostgresTable) Update(ctx context.Context, key Key, set Item, remove []string, cond *Condition) (Item, error) {
	results, err := t.write(ctx, []Write{UpdateWrite(key, set, remove, cond)})
	if err != nil {
		return nil, singleWriteError(err)
	}
	return results[0], nil
}

func (t *PostgresTable) Delete(ctx context.Context, key Key, cond *Condition) error {
	_, err := t.write(ctx, []Write{DeleteWrite(key, cond)})
	return singleWriteError(err)
}

func (t *PostgresTable) TransactWrite(ctx context.Context, writes []Write) error {
	_, err := t.write(ctx, writes)
	return err
}

func (t *PostgresTable) write(ctx context.Context, writes []Write) ([]Item, error) {
	if err := validateWrites(writes); err != nil {
		return nil, err
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	results := make([]Item, len(writes))
	for i, w := range writes {
		current, err := lockItem(ctx, tx, w.Key)
		if err != nil {
			return nil, err
		}
		next, err := w.apply(current)
		if errors.Is(err, ErrConditionFailed) {
			return nil, &TxCanceledError{Index: i, Key: w.Key}
		}
		if err != nil {
			return nil, err
		}
		results[i] = next

		switch {
		case w.Kind == WriteCheck:
		case next == nil && current == nil:
		case next == nil:
			if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE pk=$1 AND sk=$2`, w.Key.PK, w.Key.SK); err != nil {
				return nil, fmt.Errorf("delete item %s: %w", w.Key, err)
			}
		case current == nil:
			if err := insertItem(ctx, tx, w.Key, next, w.Condition == nil); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
					return nil, &TxCanceledError{Index: i, Key: w.Key}
				}
				return nil, err
			}
		default:
			if err := updateItem(ctx, tx, w.Key, next); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit write: %w", err)
	}
	return results, nil
}

func lockItem(ctx context.Context, tx *sql.Tx, key Key) (Item, error) {
	var raw []byte
	err := tx.QueryRowContext(ctx, `SELECT attrs FROM items WHERE pk=$1 AND sk=$2 FOR UPDATE`, key.PK, key.SK).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock item %s: %w", key, err)
	}
	return decodeItem(raw)
}

func indexColumns(item Item) (sql.NullString, sql.NullString) {
	pk, sk, ok := item.IndexKey()
	if !ok {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: pk, Valid: true}, sql.NullString{String: sk, Valid: true}
}

func insertItem(ctx context.Context, tx *sql.Tx, key Key, item Item, upsert bool) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item %s: %w", key, err)
	}
	gpk, gsk := indexColumns(item)
	query := `INSERT INTO items (pk, sk, gsi1pk, gsi1sk, attrs) VALUES ($1, $2, $3, $4, $5::jsonb)`
	if upsert {
		query += ` ON CONFLICT (pk, sk) DO UPDATE SET gsi1pk=EXCLUDED.gsi1pk, gsi1sk=EXCLUDED.gsi1sk, attrs=EXCLUDED.attrs, updated_at=NOW()`
	}
	if _, err := tx.ExecContext(ctx, query, key.PK, key.SK, gpk, gsk, string(raw)); err != nil {
		return fmt.Errorf("insert item %s: %w", key, err)
	}
	return nil
}

func updateItem(ctx context.Context, tx *sql.Tx, key Key, item Item) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item %s: %w", key, err)
	}
	gpk, gsk := indexColumns(item)
	_, err = tx.ExecContext(ctx, `
		UPDATE items
		SET gsi1pk=$3, gsi1sk=$4, attrs=$5::jsonb, updated_at=NOW()
		WHERE pk=$1 AND sk=$2
	`, key.PK, key.SK, gpk, gsk, string(raw))
	if err != nil {
		return fmt.Errorf("update item %s: %w", key, err)
	}
	return nil
}

func (t *PostgresTable) Query(ctx context.Context, q Query) (Page, error) {
	if err := q.validate(); err != nil {
		return Page{}, err
	}

	partitionCol := "pk"
	sortCols := []string{"sk"}
	if q.Index == IndexGSI1 {
		partitionCol = "gsi1pk"
		sortCols = []string{"gsi1sk", "pk", "sk"}
	}

	var sb strings.Builder
	args := []any{q.Partition}
	fmt.Fprintf(&sb, `SELECT attrs, %s FROM items WHERE %s = $1`, strings.Join(sortCols, ", "), partitionCol)
	if q.SortPrefix != "" {
		args = append(args, q.SortPrefix)
		fmt.Fprintf(&sb, ` AND starts_with(%s, $%d)`, sortCols[0], len(args))
	}
	if q.Cursor != "" {
		after, err := decodePostgresCursor(q.Cursor, len(sortCols))
		if err != nil {
			return Page{}, err
		}
		placeholders := make([]string, len(after))
		for i, v := range after {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		op := ">"
		if q.Descending {
			op = "<"
		}
		fmt.Fprintf(&sb, ` AND (%s) %s (%s)`, strings.Join(sortCols, ", "), op, strings.Join(placeholders, ", "))
	}
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}
	order := make([]string, len(sortCols))
	for i, col := range sortCols {
		order[i] = col + " " + direction
	}
	limit := q.limit()
	args = append(args, limit+1)
	fmt.Fprintf(&sb, ` ORDER BY %s LIMIT $%d`, strings.Join(order, ", "), len(args))

	rows, err := t.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return Page{}, fmt.Errorf("query %s: %w", q.Partition, err)
	}
	defer rows.Close()

	page := Page{Items: []Item{}}
	var positions [][]string
	for rows.Next() {
		var raw []byte
		sortValues := make([]string, len(sortCols))
		dest := []any{&raw}
		for i := range sortValues {
			dest = append(dest, &sortValues[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return Page{}, fmt.Errorf("scan item: %w", err)
		}
		item, err := decodeItem(raw)
		if err != nil {
			return Page{}, err
		}
		page.Items = append(page.Items, item)
		positions = append(positions, sortValues)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate items: %w", err)
	}

	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		page.Cursor = encodePostgresCursor(positions[limit-1])
	}
	return page, nil
}

func encodePostgresCursor(values []string) string {
	raw, _ := json.Marshal(values)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodePostgresCursor(cursor string, want int) ([]string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil || len(values) != want {
		return nil, ErrInvalidCursor
	}
	return values, nil
}

func (t *PostgresTable) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

func (t *PostgresTable) Close() error {
	return t.db.Close()
}

package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTxAttempts = 8

// RedisTable stores items as JSON strings. Each partition is a sorted set of
// sort keys and the secondary index is a sorted set per GSI1 partition, both
// at score 0 so lexicographic range reads give sort-key order. Writes run
// under WATCH/MULTI so conditions are evaluated against the committed state.
type RedisTable struct {
	client     *redis.Client
	prefix     string
	txAttempts int
}

// OpenRedis connects to redisURL and verifies the connection.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisTable namespaces all keys under table.
func NewRedisTable(client *redis.Client, table string) *RedisTable {
	return &RedisTable{
		client:     client,
		prefix:     table,
		txAttempts: defaultTxAttempts,
	}
}

func (t *RedisTable) itemKey(k Key) string {
	return t.prefix + ":item:" + k.PK + "|" + k.SK
}

func (t *RedisTable) partitionKey(pk string) string {
	return t.prefix + ":pk:" + pk
}

func (t *RedisTable) indexKey(pk string) string {
	return t.prefix + ":gsi1:" + pk
}

// indexMember orders by the index sort key first; NUL sorts below every
// printable byte so the primary key only breaks exact ties.
func indexMember(indexSK string, k Key) string {
	return indexSK + "\x00" + k.PK + "\x00" + k.SK
}

func splitIndexMember(member string) (Key, bool) {
	parts := strings.Split(member, "\x00")
	if len(parts) != 3 {
		return Key{}, false
	}
	return Key{PK: parts[1], SK: parts[2]}, true
}

func decodeItem(raw []byte) (Item, error) {
	item := Item{}
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return item, nil
}

func (t *RedisTable) Get(ctx context.Context, key Key) (Item, error) {
	raw, err := t.client.Get(ctx, t.itemKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", key, err)
	}
	return decodeItem(raw)
}

func (t *RedisTable) Put(ctx context.Context, item Item, cond *Condition) error {
	_, err := t.write(ctx, []Write{PutWrite(item, cond)})
	return singleWriteError(err)
}

func (t *RedisTable) Update(ctx context.Context, key Key, set Item, remove []string, cond *Condition) (Item, error) {
	results, err := t.write(ctx, []Write{UpdateWrite(key, set, remove, cond)})
	if err != nil {
		return nil, singleWriteError(err)
	}
	return results[0], nil
}

func (t *RedisTable) Delete(ctx context.Context, key Key, cond *Condition) error {
	_, err := t.write(ctx, []Write{DeleteWrite(key, cond)})
	return singleWriteError(err)
}

func (t *RedisTable) TransactWrite(ctx context.Context, writes []Write) error {
	_, err := t.write(ctx, writes)
	return err
}

func (t *RedisTable) write(ctx context.Context, writes []Write) ([]Item, error) {
	if err := validateWrites(writes); err != nil {
		return nil, err
	}

	watched := make([]string, len(writes))
	for i, w := range writes {
		watched[i] = t.itemKey(w.Key)
	}

	var results []Item
	txf := func(tx *redis.Tx) error {
		current := make([]Item, len(writes))
		for i := range writes {
			raw, err := tx.Get(ctx, watched[i]).Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", writes[i].Key, err)
			}
			if current[i], err = decodeItem(raw); err != nil {
				return err
			}
		}

		next := make([]Item, len(writes))
		for i, w := range writes {
			item, err := w.apply(current[i])
			if errors.Is(err, ErrConditionFailed) {
				return &TxCanceledError{Index: i, Key: w.Key}
			}
			if err != nil {
				return err
			}
			next[i] = item
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, w := range writes {
				if w.Kind == WriteCheck {
					continue
				}
				if err := t.stage(ctx, pipe, w.Key, current[i], next[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		results = next
		return nil
	}

	for attempt := 0; attempt < t.txAttempts; attempt++ {
		err := t.client.Watch(ctx, txf, watched...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return results, nil
	}
	return nil, ErrContention
}

func (t *RedisTable) stage(ctx context.Context, pipe redis.Pipeliner, key Key, prev, next Item) error {
	if prevPK, prevSK, ok := prev.IndexKey(); ok {
		nextPK, nextSK, nextOK := next.IndexKey()
		if !nextOK || nextPK != prevPK || nextSK != prevSK {
			pipe.ZRem(ctx, t.indexKey(prevPK), indexMember(prevSK, key))
		}
	}

	if next == nil {
		pipe.Del(ctx, t.itemKey(key))
		pipe.ZRem(ctx, t.partitionKey(key.PK), key.SK)
		return nil
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode item %s: %w", key, err)
	}
	pipe.Set(ctx, t.itemKey(key), raw, 0)
	pipe.ZAdd(ctx, t.partitionKey(key.PK), redis.Z{Score: 0, Member: key.SK})
	if pk, sk, ok := next.IndexKey(); ok {
		pipe.ZAdd(ctx, t.indexKey(pk), redis.Z{Score: 0, Member: indexMember(sk, key)})
	}
	return nil
}

func (t *RedisTable) Query(ctx context.Context, q Query) (Page, error) {
	if err := q.validate(); err != nil {
		return Page{}, err
	}

	setKey := t.partitionKey(q.Partition)
	if q.Index == IndexGSI1 {
		setKey = t.indexKey(q.Partition)
	}

	lo, hi := "-", "+"
	if q.SortPrefix != "" {
		lo = "[" + q.SortPrefix
		hi = "(" + q.SortPrefix + "\xff"
	}
	if q.Cursor != "" {
		after, err := decodeRedisCursor(q.Cursor)
		if err != nil {
			return Page{}, err
		}
		if q.Descending {
			hi = "(" + after
		} else {
			lo = "(" + after
		}
	}

	limit := q.limit()
	by := &redis.ZRangeBy{Min: lo, Max: hi, Offset: 0, Count: int64(limit + 1)}
	var (
		members []string
		err     error
	)
	if q.Descending {
		members, err = t.client.ZRevRangeByLex(ctx, setKey, by).Result()
	} else {
		members, err = t.client.ZRangeByLex(ctx, setKey, by).Result()
	}
	if err != nil {
		return Page{}, fmt.Errorf("query %s: %w", q.Partition, err)
	}

	page := Page{Items: []Item{}}
	if len(members) > limit {
		members = members[:limit]
		page.Cursor = encodeRedisCursor(members[limit-1])
	}
	if len(members) == 0 {
		return page, nil
	}

	itemKeys := make([]string, len(members))
	for i, member := range members {
		key := Key{PK: q.Partition, SK: member}
		if q.Index == IndexGSI1 {
			var ok bool
			if key, ok = splitIndexMember(member); !ok {
				return Page{}, fmt.Errorf("%w: malformed index member", ErrInvalidItem)
			}
		}
		itemKeys[i] = t.itemKey(key)
	}

	values, err := t.client.MGet(ctx, itemKeys...).Result()
	if err != nil {
		return Page{}, fmt.Errorf("query %s: %w", q.Partition, err)
	}
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry outlived its item; skip it
			continue
		}
		item, err := decodeItem([]byte(raw))
		if err != nil {
			return Page{}, err
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

func encodeRedisCursor(member string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(member))
}

func decodeRedisCursor(cursor string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(raw) == 0 {
		return "", ErrInvalidCursor
	}
	return string(raw), nil
}

func (t *RedisTable) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *RedisTable) Close() error {
	return t.client.Close()
}

// singleWriteError reports a failed condition on a one-write call as
// ErrConditionFailed rather than a transaction cancellation.
func singleWriteError(err error) error {
	if errors.Is(err, ErrConditionFailed) {
		return ErrConditionFailed
	}
	return err
}

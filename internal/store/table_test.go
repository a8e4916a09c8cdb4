package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func testItem(pk, sk string, attrs map[string]any) Item {
	item := Item{}.WithKey(Key{PK: pk, SK: sk})
	for name, value := range attrs {
		extra, _ := MarshalItem(map[string]any{name: value})
		item[name] = extra[name]
	}
	return item
}

func indexedItem(id, createdAt string) Item {
	return testItem("RFP#"+id, "PROFILE", map[string]any{
		AttrGSI1PK: "RFP",
		AttrGSI1SK: createdAt + "#" + id,
		"id":       id,
	})
}

func mustPut(t *testing.T, table Table, item Item, cond *Condition) {
	t.Helper()
	if err := table.Put(context.Background(), item, cond); err != nil {
		t.Fatalf("Put(%v) error = %v", item, err)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

// runTableSuite exercises the behaviour every backend must share.
func runTableSuite(t *testing.T, newTable func(t *testing.T) Table) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		table := newTable(t)
		_, err := table.Get(ctx, Key{PK: "USER#nobody", SK: "PROFILE"})
		wantErr(t, err, ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		table := newTable(t)
		mustPut(t, table, testItem("USER#u1", "PROFILE", map[string]any{"name": "Avery", "tags": []string{"a", "b"}}), nil)

		got, err := table.Get(ctx, Key{PK: "USER#u1", SK: "PROFILE"})
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if name, _ := got.StringAttr("name"); name != "Avery" {
			t.Errorf("name = %q, want Avery", name)
		}
		var tags []string
		if err := json.Unmarshal(got["tags"], &tags); err != nil {
			t.Fatalf("decode tags: %v", err)
		}
		if !reflect.DeepEqual(tags, []string{"a", "b"}) {
			t.Errorf("tags = %v", tags)
		}
	})

	t.Run("put not exists guard", func(t *testing.T) {
		table := newTable(t)
		mustPut(t, table, testItem("USERNAME#alice", "RESERVATION", map[string]any{"userId": "u1"}), ItemNotExists())

		err := table.Put(ctx, testItem("USERNAME#alice", "RESERVATION", map[string]any{"userId": "u2"}), ItemNotExists())
		wantErr(t, err, ErrConditionFailed)

		got, err := table.Get(ctx, Key{PK: "USERNAME#alice", SK: "RESERVATION"})
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if owner, _ := got.StringAttr("userId"); owner != "u1" {
			t.Errorf("reservation owner = %q, want u1", owner)
		}
	})

	t.Run("update sets and removes attributes", func(t *testing.T) {
		table := newTable(t)
		key := Key{PK: "RESET#h", SK: "TOKEN"}
		mustPut(t, table, testItem(key.PK, key.SK, map[string]any{"expiresAt": "2026-01-01T00:00:00.000Z", "note": "x"}), nil)

		set := Item{}
		set.SetString("usedAt", "2025-12-31T00:00:00.000Z")
		got, err := table.Update(ctx, key, set, []string{"note"}, ItemExists().AttrNotExists("usedAt"))
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if used, ok := got.StringAttr("usedAt"); !ok || used != "2025-12-31T00:00:00.000Z" {
			t.Errorf("usedAt = %q, %v", used, ok)
		}
		if _, hasNote := got["note"]; hasNote {
			t.Error("note should have been removed")
		}

		_, err = table.Update(ctx, key, set, nil, ItemExists().AttrNotExists("usedAt"))
		wantErr(t, err, ErrConditionFailed)
	})

	t.Run("update requires existing item", func(t *testing.T) {
		table := newTable(t)
		_, err := table.Update(ctx, Key{PK: "USER#ghost", SK: "PROFILE"}, Item{}, nil, ItemExists())
		wantErr(t, err, ErrConditionFailed)
		_, err = table.Get(ctx, Key{PK: "USER#ghost", SK: "PROFILE"})
		wantErr(t, err, ErrNotFound)
	})

	t.Run("transaction is all or nothing", func(t *testing.T) {
		table := newTable(t)
		mustPut(t, table, testItem("EMAIL#a@x.com", "RESERVATION", map[string]any{"userId": "u0"}), nil)

		err := table.TransactWrite(ctx, []Write{
			PutWrite(testItem("USERNAME#bob", "RESERVATION", map[string]any{"userId": "u1"}), ItemNotExists()),
			PutWrite(testItem("EMAIL#a@x.com", "RESERVATION", map[string]any{"userId": "u1"}), ItemNotExists()),
			PutWrite(testItem("USER#u1", "PROFILE", nil), ItemNotExists()),
		})
		var canceled *TxCanceledError
		if !errors.As(err, &canceled) {
			t.Fatalf("TransactWrite() error = %v, want *TxCanceledError", err)
		}
		if canceled.Index != 1 {
			t.Errorf("canceled index = %d, want 1", canceled.Index)
		}
		wantErr(t, err, ErrConditionFailed)

		_, err = table.Get(ctx, Key{PK: "USERNAME#bob", SK: "RESERVATION"})
		wantErr(t, err, ErrNotFound)
		_, err = table.Get(ctx, Key{PK: "USER#u1", SK: "PROFILE"})
		wantErr(t, err, ErrNotFound)
	})

	t.Run("transaction rejects duplicate keys", func(t *testing.T) {
		table := newTable(t)
		item := testItem("USER#u1", "PROFILE", nil)
		err := table.TransactWrite(ctx, []Write{PutWrite(item, nil), DeleteWrite(Key{PK: "USER#u1", SK: "PROFILE"}, nil)})
		wantErr(t, err, ErrDuplicateWrite)
	})

	t.Run("delete with condition", func(t *testing.T) {
		table := newTable(t)
		key := Key{PK: "PROPOSAL#p1", SK: "PROFILE"}
		wantErr(t, table.Delete(ctx, key, ItemExists()), ErrConditionFailed)
		if err := table.Delete(ctx, key, nil); err != nil {
			t.Fatalf("unconditional Delete() of missing item error = %v", err)
		}

		mustPut(t, table, testItem(key.PK, key.SK, nil), nil)
		if err := table.Delete(ctx, key, ItemExists()); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		_, err := table.Get(ctx, key)
		wantErr(t, err, ErrNotFound)
	})

	t.Run("query partition by prefix", func(t *testing.T) {
		table := newTable(t)
		for _, sk := range []string{"ATTACHMENT#a", "ATTACHMENT#b", "PROPOSAL#p1", "PROFILE"} {
			mustPut(t, table, testItem("RFP#r1", sk, nil), nil)
		}

		page, err := table.Query(ctx, Query{Partition: "RFP#r1", SortPrefix: "ATTACHMENT#"})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(page.Items) != 2 {
			t.Fatalf("got %d attachments, want 2", len(page.Items))
		}
		if first, _ := page.Items[0].Key(); first.SK != "ATTACHMENT#a" {
			t.Errorf("first SK = %q", first.SK)
		}
		if page.Cursor != "" {
			t.Errorf("cursor = %q, want empty", page.Cursor)
		}

		page, err = table.Query(ctx, Query{Partition: "RFP#r1", SortPrefix: "PROPOSAL#"})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(page.Items) != 1 {
			t.Errorf("got %d proposals, want 1", len(page.Items))
		}
	})

	t.Run("query index newest first with cursor", func(t *testing.T) {
		table := newTable(t)
		for i := 0; i < 5; i++ {
			ts := fmt.Sprintf("2026-01-0%dT00:00:00.000Z", i+1)
			mustPut(t, table, indexedItem(fmt.Sprintf("r%d", i), ts), nil)
		}

		var ids []string
		cursor := ""
		for {
			page, err := table.Query(ctx, Query{Index: IndexGSI1, Partition: "RFP", Descending: true, Limit: 2, Cursor: cursor})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			for _, item := range page.Items {
				id, _ := item.StringAttr("id")
				ids = append(ids, id)
			}
			if page.Cursor == "" {
				break
			}
			cursor = page.Cursor
		}
		if want := []string{"r4", "r3", "r2", "r1", "r0"}; !reflect.DeepEqual(ids, want) {
			t.Errorf("ids = %v, want %v", ids, want)
		}
	})

	t.Run("index follows updates and deletes", func(t *testing.T) {
		table := newTable(t)
		mustPut(t, table, indexedItem("a", "2026-01-01T00:00:00.000Z"), nil)
		mustPut(t, table, indexedItem("b", "2026-01-02T00:00:00.000Z"), nil)

		if err := table.Delete(ctx, Key{PK: "RFP#b", SK: "PROFILE"}, nil); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		set := Item{}
		set.SetString("title", "renamed")
		if _, err := table.Update(ctx, Key{PK: "RFP#a", SK: "PROFILE"}, set, nil, ItemExists()); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		page, err := table.Query(ctx, Query{Index: IndexGSI1, Partition: "RFP", Descending: true})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(page.Items) != 1 {
			t.Fatalf("got %d indexed items, want 1", len(page.Items))
		}
		if title, _ := page.Items[0].StringAttr("title"); title != "renamed" {
			t.Errorf("title = %q, want renamed", title)
		}
	})

	t.Run("concurrent guarded creates admit exactly one", func(t *testing.T) {
		table := newTable(t)
		const writers = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			success  int
			conflict int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := table.TransactWrite(ctx, []Write{
					PutWrite(testItem("USERNAME#carol", "RESERVATION", map[string]any{"userId": fmt.Sprint(i)}), ItemNotExists()),
					PutWrite(testItem(fmt.Sprintf("USER#u%d", i), "PROFILE", nil), ItemNotExists()),
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					success++
				case errors.Is(err, ErrConditionFailed):
					conflict++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()
		if success != 1 || conflict != writers-1 {
			t.Errorf("success=%d conflict=%d, want 1 and %d", success, conflict, writers-1)
		}
	})
}

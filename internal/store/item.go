package store

import (
	"encoding/json"
	"fmt"
)

// Storage-only attribute names. Every item carries PK and SK; items listed by
// type also carry the GSI1 pair.
const (
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrGSI1PK     = "GSI1PK"
	AttrGSI1SK     = "GSI1SK"
	AttrEntityType = "entityType"
)

// IndexGSI1 names the single secondary index.
const IndexGSI1 = "GSI1"

// Key is the primary address of an item.
type Key struct {
	PK string
	SK string
}

func (k Key) String() string {
	return k.PK + "|" + k.SK
}

// Item is one stored record: attribute name to JSON-encoded value.
type Item map[string]json.RawMessage

// MarshalItem encodes v (a struct with json tags) into an attribute map.
func MarshalItem(v any) (Item, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	item := Item{}
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	return item, nil
}

// UnmarshalItem decodes the attribute map into v. Attributes without a
// matching field are ignored.
func UnmarshalItem(item Item, v any) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

func (it Item) StringAttr(name string) (string, bool) {
	raw, ok := it[name]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

func (it Item) SetString(name, value string) {
	raw, _ := json.Marshal(value)
	it[name] = raw
}

// Key returns the primary address stored in the item.
func (it Item) Key() (Key, error) {
	pk, ok := it.StringAttr(AttrPK)
	if !ok || pk == "" {
		return Key{}, fmt.Errorf("%w: missing %s", ErrInvalidItem, AttrPK)
	}
	sk, ok := it.StringAttr(AttrSK)
	if !ok || sk == "" {
		return Key{}, fmt.Errorf("%w: missing %s", ErrInvalidItem, AttrSK)
	}
	return Key{PK: pk, SK: sk}, nil
}

// IndexKey returns the GSI1 address, or ok=false when the item is not indexed.
func (it Item) IndexKey() (pk, sk string, ok bool) {
	pk, hasPK := it.StringAttr(AttrGSI1PK)
	sk, hasSK := it.StringAttr(AttrGSI1SK)
	if !hasPK || !hasSK || pk == "" || sk == "" {
		return "", "", false
	}
	return pk, sk, true
}

// WithKey sets the primary address attributes.
func (it Item) WithKey(k Key) Item {
	it.SetString(AttrPK, k.PK)
	it.SetString(AttrSK, k.SK)
	return it
}

// Clone returns a shallow copy; raw values are never mutated in place.
func (it Item) Clone() Item {
	if it == nil {
		return nil
	}
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

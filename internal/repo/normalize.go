package repo

import (
	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/store"
)

var storageAttrs = []string{
	store.AttrPK,
	store.AttrSK,
	store.AttrGSI1PK,
	store.AttrGSI1SK,
	store.AttrEntityType,
}

// Entity types of items that are not a keys.Kind profile.
const (
	entityReservation = "RESERVATION"
	entityResetToken  = "RESET_TOKEN"
	entityLink        = "PROPOSAL_LINK"
)

type indexAddr struct {
	partition string
	sort      string
}

// listedBy puts an item into the type listing of kind, newest first by ts.
func listedBy(kind keys.Kind, ts, id string) *indexAddr {
	return &indexAddr{partition: keys.IndexPartition(kind), sort: keys.IndexSort(ts, id)}
}

// encode turns a public entity into a stored item.
func encode(v any, key store.Key, entityType string, index *indexAddr) (store.Item, error) {
	item, err := store.MarshalItem(v)
	if err != nil {
		return nil, err
	}
	for _, attr := range storageAttrs {
		delete(item, attr)
	}
	item.WithKey(key)
	item.SetString(store.AttrEntityType, entityType)
	if index != nil {
		item.SetString(store.AttrGSI1PK, index.partition)
		item.SetString(store.AttrGSI1SK, index.sort)
	}
	return item, nil
}

// decode strips storage-only attributes and fills v.
func decode(item store.Item, v any) error {
	public := item.Clone()
	for _, attr := range storageAttrs {
		delete(public, attr)
	}
	return store.UnmarshalItem(public, v)
}

func decodeAs[T any](item store.Item) (T, error) {
	var v T
	err := decode(item, &v)
	return v, err
}

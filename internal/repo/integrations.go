package repo

import (
	"context"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
)

// Integrations stores connection, mapping, asset-link and cache records for
// external design tools under their owner's partition. Cache records past
// expiresAt read as absent until purged.
type Integrations struct {
	*deps
}

func ownerKind(kind string) (keys.Kind, error) {
	switch k := keys.Kind(kind); k {
	case keys.User, keys.RFP, keys.Proposal, keys.Template, keys.Company:
		return k, nil
	}
	return "", apperr.Validation("unsupported integration owner kind")
}

func (r *Integrations) Put(ctx context.Context, rec model.IntegrationRecord) (*model.IntegrationRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	owner, err := ownerKind(rec.OwnerKind)
	if err != nil {
		return nil, err
	}
	key, err := keys.IntegrationKey(owner, rec.OwnerID, rec.Provider, string(rec.Kind), rec.Name)
	if err != nil {
		return nil, storageErr("put integration", err)
	}
	rec.UpdatedAt = r.now()
	item, err := encode(rec, key, string(keys.Integration), nil)
	if err != nil {
		return nil, storageErr("put integration", err)
	}
	if err := r.table.Put(ctx, item, nil); err != nil {
		return nil, storageErr("put integration", err)
	}
	return &rec, nil
}

func (r *Integrations) Get(ctx context.Context, kind, ownerID, provider string, recordKind model.IntegrationKind, name string) (*model.IntegrationRecord, error) {
	owner, err := ownerKind(kind)
	if err != nil {
		return nil, err
	}
	key, err := keys.IntegrationKey(owner, ownerID, provider, string(recordKind), name)
	if err != nil {
		return nil, storageErr("get integration", err)
	}
	item, err := r.getItem(ctx, "get integration", key)
	if err != nil || item == nil {
		return nil, err
	}
	rec, err := decodeAs[model.IntegrationRecord](item)
	if err != nil {
		return nil, storageErr("get integration", err)
	}
	if rec.Expired(r.now()) {
		return nil, nil
	}
	return &rec, nil
}

// List returns the owner's records for provider. An empty recordKind lists
// every kind.
func (r *Integrations) List(ctx context.Context, kind, ownerID, provider string, recordKind model.IntegrationKind) ([]model.IntegrationRecord, error) {
	items, err := r.scan(ctx, kind, ownerID, provider, recordKind)
	if err != nil {
		return nil, err
	}
	now := r.now()
	out := make([]model.IntegrationRecord, 0, len(items))
	for _, item := range items {
		rec, err := decodeAs[model.IntegrationRecord](item)
		if err != nil {
			return nil, storageErr("list integrations", err)
		}
		if rec.Expired(now) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Integrations) scan(ctx context.Context, kind, ownerID, provider string, recordKind model.IntegrationKind) ([]store.Item, error) {
	owner, err := ownerKind(kind)
	if err != nil {
		return nil, err
	}
	if recordKind != "" && !recordKind.Valid() {
		return nil, apperr.Validation("unknown integration kind")
	}
	partition, prefix, err := keys.IntegrationPrefix(owner, ownerID, provider, string(recordKind))
	if err != nil {
		return nil, storageErr("list integrations", err)
	}
	return r.queryAll(ctx, "list integrations", store.Query{Partition: partition, SortPrefix: prefix})
}

func (r *Integrations) Delete(ctx context.Context, kind, ownerID, provider string, recordKind model.IntegrationKind, name string) error {
	owner, err := ownerKind(kind)
	if err != nil {
		return err
	}
	key, err := keys.IntegrationKey(owner, ownerID, provider, string(recordKind), name)
	if err != nil {
		return storageErr("delete integration", err)
	}
	return storageErr("delete integration", r.table.Delete(ctx, key, nil))
}

// PurgeCache deletes every cache record of the owner for provider, expired
// or not, and returns how many were removed.
func (r *Integrations) PurgeCache(ctx context.Context, kind, ownerID, provider string) (int, error) {
	items, err := r.scan(ctx, kind, ownerID, provider, model.IntegrationCache)
	if err != nil {
		return 0, err
	}
	doomed := make([]store.Key, 0, len(items))
	for _, item := range items {
		key, err := item.Key()
		if err != nil {
			continue
		}
		doomed = append(doomed, key)
	}
	if err := r.deleteAll(ctx, "purge integration cache", doomed); err != nil {
		return 0, err
	}
	return len(doomed), nil
}

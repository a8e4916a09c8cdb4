package repo

import (
	"context"
	"errors"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
)

// Templates are versioned: every update bumps Version, guarded on the
// version that was read.
type Templates struct {
	*deps
}

func (r *Templates) encode(t model.Template) (store.Item, error) {
	key, err := keys.Primary(keys.Template, t.ID)
	if err != nil {
		return nil, err
	}
	return encode(t, key, string(keys.Template), listedBy(keys.Template, t.CreatedAt, t.ID))
}

func (r *Templates) Create(ctx context.Context, in model.Template) (*model.Template, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := r.now()
	t := in
	t.ID = r.newID("template")
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Sections == nil {
		t.Sections = []model.TemplateSection{}
	}
	item, err := r.encode(t)
	if err != nil {
		return nil, storageErr("create template", err)
	}
	if err := r.table.Put(ctx, item, store.ItemNotExists()); err != nil {
		return nil, storageErr("create template", err)
	}
	return &t, nil
}

func (r *Templates) Get(ctx context.Context, id string) (*model.Template, error) {
	if err := requireID("template id", id); err != nil {
		return nil, err
	}
	key, err := keys.Primary(keys.Template, id)
	if err != nil {
		return nil, storageErr("get template", err)
	}
	item, err := r.getItem(ctx, "get template", key)
	if err != nil || item == nil {
		return nil, err
	}
	t, err := decodeAs[model.Template](item)
	if err != nil {
		return nil, storageErr("get template", err)
	}
	return &t, nil
}

// List returns templates newest first by creation time.
func (r *Templates) List(ctx context.Context, req PageRequest) (Page[model.Template], error) {
	return paginate(ctx, r.deps, keys.Template, req, decodeAs[model.Template])
}

// Update applies patch as the next version. expectedVersion 0 accepts
// whatever version is current; any other value must match it.
func (r *Templates) Update(ctx context.Context, id string, expectedVersion int, patch model.TemplatePatch) (*model.Template, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("template not found")
	}
	if expectedVersion != 0 && expectedVersion != t.Version {
		return nil, apperr.VersionConflict("template was changed by someone else")
	}
	read := t.Version
	patch.Apply(t)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.Version = read + 1
	t.UpdatedAt = r.now()

	item, err := r.encode(*t)
	if err != nil {
		return nil, storageErr("update template", err)
	}
	err = r.table.Put(ctx, item, store.ItemExists().AttrEquals("version", read))
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, apperr.VersionConflict("template was changed by someone else")
	}
	if err != nil {
		return nil, storageErr("update template", err)
	}
	return t, nil
}

func (r *Templates) Delete(ctx context.Context, id string) error {
	if err := requireID("template id", id); err != nil {
		return err
	}
	key, err := keys.Primary(keys.Template, id)
	if err != nil {
		return storageErr("delete template", err)
	}
	return storageErr("delete template", r.table.Delete(ctx, key, nil))
}

package repo

import (
	"context"
	"errors"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
)

// RFPs returns every record through the scorer; derived fields are never
// written.
type RFPs struct {
	*deps
}

func (r *RFPs) view(rfp model.RFP) model.RFPView {
	return model.RFPView{RFP: rfp, RFPDerived: r.scorer.Score(rfp)}
}

func normalizeRFPLists(rfp *model.RFP) {
	for _, list := range []*[]string{&rfp.Requirements, &rfp.Deliverables, &rfp.RequiredCertifications, &rfp.EvaluationCriteria} {
		if *list == nil {
			*list = []string{}
		}
	}
}

func (r *RFPs) put(ctx context.Context, op string, rfp model.RFP, cond *store.Condition) error {
	key, err := keys.Primary(keys.RFP, rfp.ID)
	if err != nil {
		return storageErr(op, err)
	}
	item, err := encode(rfp, key, string(keys.RFP), listedBy(keys.RFP, rfp.CreatedAt, rfp.ID))
	if err != nil {
		return storageErr(op, err)
	}
	return r.table.Put(ctx, item, cond)
}

func (r *RFPs) Create(ctx context.Context, in model.RFP) (*model.RFPView, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := r.now()
	rfp := in
	rfp.ID = r.newID("rfp")
	rfp.CreatedAt = now
	rfp.UpdatedAt = now
	normalizeRFPLists(&rfp)

	if err := r.put(ctx, "create rfp", rfp, store.ItemNotExists()); err != nil {
		return nil, storageErr("create rfp", err)
	}
	v := r.view(rfp)
	return &v, nil
}

func (r *RFPs) load(ctx context.Context, id string) (*model.RFP, error) {
	if err := requireID("rfp id", id); err != nil {
		return nil, err
	}
	key, err := keys.Primary(keys.RFP, id)
	if err != nil {
		return nil, storageErr("get rfp", err)
	}
	item, err := r.getItem(ctx, "get rfp", key)
	if err != nil || item == nil {
		return nil, err
	}
	rfp, err := decodeAs[model.RFP](item)
	if err != nil {
		return nil, storageErr("get rfp", err)
	}
	return &rfp, nil
}

func (r *RFPs) Get(ctx context.Context, id string) (*model.RFPView, error) {
	rfp, err := r.load(ctx, id)
	if err != nil || rfp == nil {
		return nil, err
	}
	v := r.view(*rfp)
	return &v, nil
}

func (r *RFPs) List(ctx context.Context, req PageRequest) (Page[model.RFPView], error) {
	return paginate(ctx, r.deps, keys.RFP, req, func(item store.Item) (model.RFPView, error) {
		rfp, err := decodeAs[model.RFP](item)
		if err != nil {
			return model.RFPView{}, err
		}
		return r.view(rfp), nil
	})
}

// Update applies patch to the stored record. Concurrent updates are
// last-writer-wins; a deleted RFP is not recreated.
func (r *RFPs) Update(ctx context.Context, id string, patch model.RFPPatch) (*model.RFPView, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	rfp, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rfp == nil {
		return nil, apperr.NotFound("rfp not found")
	}
	patch.Apply(rfp)
	rfp.UpdatedAt = r.now()
	normalizeRFPLists(rfp)

	err = r.put(ctx, "update rfp", *rfp, store.ItemExists())
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, apperr.NotFound("rfp not found")
	}
	if err != nil {
		return nil, storageErr("update rfp", err)
	}
	v := r.view(*rfp)
	return &v, nil
}

// Delete removes the RFP, then its attachment metadata and proposal links.
// The child cleanup is best-effort; proposals themselves are kept.
func (r *RFPs) Delete(ctx context.Context, id string) error {
	if err := requireID("rfp id", id); err != nil {
		return err
	}
	key, err := keys.Primary(keys.RFP, id)
	if err != nil {
		return storageErr("delete rfp", err)
	}
	if err := r.table.Delete(ctx, key, nil); err != nil {
		return storageErr("delete rfp", err)
	}

	children, err := r.queryAll(ctx, "list rfp children", store.Query{Partition: key.PK})
	if err != nil {
		r.log.Warnw("rfp child cleanup failed", "rfp_id", id, "error", err)
		return nil
	}
	var doomed []store.Key
	for _, item := range children {
		k, err := item.Key()
		if err != nil || k.SK == keys.ProfileSK {
			continue
		}
		if t, _ := item.StringAttr(store.AttrEntityType); t == string(keys.Attachment) && r.objects != nil {
			if objectKey, ok := item.StringAttr("objectKey"); ok && objectKey != "" {
				if err := r.objects.Remove(ctx, objectKey); err != nil {
					r.log.Warnw("attachment object removal failed", "rfp_id", id, "object_key", objectKey, "error", err)
				}
			}
		}
		doomed = append(doomed, k)
	}
	if err := r.deleteAll(ctx, "delete rfp children", doomed); err != nil {
		r.log.Warnw("rfp child cleanup failed", "rfp_id", id, "error", err)
	}
	return nil
}

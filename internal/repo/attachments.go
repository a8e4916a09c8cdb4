package repo

import (
	"context"
	"errors"
	"path"
	"sort"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
)

// Attachments keeps file metadata under the owning RFP. Content lives in the
// object store when one is configured.
type Attachments struct {
	*deps
}

type AttachmentUpload struct {
	Attachment model.Attachment `json:"attachment"`
	// UploadURL is empty without an object store.
	UploadURL string `json:"uploadUrl,omitempty"`
}

func attachmentKey(rfpID, id string) (store.Key, error) {
	return keys.Child(keys.RFP, rfpID, keys.Attachment, id)
}

func (r *Attachments) Create(ctx context.Context, in model.Attachment) (*AttachmentUpload, error) {
	if err := requireID("rfp id", in.RFPID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a := in
	a.ID = r.newID("attachment")
	a.UploadedAt = r.now()
	a.ObjectKey = path.Join("rfps", a.RFPID, a.ID, path.Base(a.FileName))

	key, err := attachmentKey(a.RFPID, a.ID)
	if err != nil {
		return nil, storageErr("create attachment", err)
	}
	rfpKey, err := keys.Primary(keys.RFP, a.RFPID)
	if err != nil {
		return nil, storageErr("create attachment", err)
	}
	item, err := encode(a, key, string(keys.Attachment), nil)
	if err != nil {
		return nil, storageErr("create attachment", err)
	}
	err = r.table.TransactWrite(ctx, []store.Write{
		store.PutWrite(item, store.ItemNotExists()),
		store.CheckWrite(rfpKey, store.ItemExists()),
	})
	var canceled *store.TxCanceledError
	if errors.As(err, &canceled) && canceled.Index == 1 {
		return nil, apperr.NotFound("rfp not found")
	}
	if err != nil {
		return nil, storageErr("create attachment", err)
	}

	out := &AttachmentUpload{Attachment: a}
	if r.objects != nil {
		if out.UploadURL, err = r.objects.PresignUpload(ctx, a.ObjectKey); err != nil {
			return nil, storageErr("presign attachment upload", err)
		}
	}
	return out, nil
}

func (r *Attachments) Get(ctx context.Context, rfpID, id string) (*model.Attachment, error) {
	if err := requireID("rfp id", rfpID); err != nil {
		return nil, err
	}
	if err := requireID("attachment id", id); err != nil {
		return nil, err
	}
	key, err := attachmentKey(rfpID, id)
	if err != nil {
		return nil, storageErr("get attachment", err)
	}
	item, err := r.getItem(ctx, "get attachment", key)
	if err != nil || item == nil {
		return nil, err
	}
	a, err := decodeAs[model.Attachment](item)
	if err != nil {
		return nil, storageErr("get attachment", err)
	}
	return &a, nil
}

// ListForRFP returns the newest upload first.
func (r *Attachments) ListForRFP(ctx context.Context, rfpID string) ([]model.Attachment, error) {
	if err := requireID("rfp id", rfpID); err != nil {
		return nil, err
	}
	partition, prefix, err := keys.ChildPrefix(keys.RFP, rfpID, keys.Attachment)
	if err != nil {
		return nil, storageErr("list attachments", err)
	}
	items, err := r.queryAll(ctx, "list attachments", store.Query{Partition: partition, SortPrefix: prefix})
	if err != nil {
		return nil, err
	}
	out := make([]model.Attachment, 0, len(items))
	for _, item := range items {
		a, err := decodeAs[model.Attachment](item)
		if err != nil {
			return nil, storageErr("list attachments", err)
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UploadedAt != out[j].UploadedAt {
			return out[i].UploadedAt > out[j].UploadedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *Attachments) DownloadURL(ctx context.Context, rfpID, id string) (string, error) {
	a, err := r.Get(ctx, rfpID, id)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", apperr.NotFound("attachment not found")
	}
	if r.objects == nil {
		return "", apperr.Validation("object storage is not configured")
	}
	u, err := r.objects.PresignDownload(ctx, a.ObjectKey, a.FileName)
	if err != nil {
		return "", storageErr("presign attachment download", err)
	}
	return u, nil
}

// Delete removes the metadata, then the content best-effort.
func (r *Attachments) Delete(ctx context.Context, rfpID, id string) error {
	a, err := r.Get(ctx, rfpID, id)
	if err != nil || a == nil {
		return err
	}
	key, err := attachmentKey(rfpID, id)
	if err != nil {
		return storageErr("delete attachment", err)
	}
	if err := r.table.Delete(ctx, key, nil); err != nil {
		return storageErr("delete attachment", err)
	}
	if r.objects != nil {
		if err := r.objects.Remove(ctx, a.ObjectKey); err != nil {
			r.log.Warnw("attachment object removal failed", "rfp_id", rfpID, "attachment_id", id, "error", err)
		}
	}
	return nil
}

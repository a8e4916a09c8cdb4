package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
)

func TestEncodeAddsStorageAttributes(t *testing.T) {
	key, err := keys.Primary(keys.RFP, "rfp_1")
	require.NoError(t, err)
	item, err := encode(model.RFP{ID: "rfp_1", Title: "T"}, key, string(keys.RFP), listedBy(keys.RFP, "2026-01-01T00:00:00.000Z", "rfp_1"))
	require.NoError(t, err)

	gotKey, err := item.Key()
	require.NoError(t, err)
	assert.Equal(t, key, gotKey)
	pk, sk, ok := item.IndexKey()
	require.True(t, ok)
	assert.Equal(t, "RFP", pk)
	assert.Equal(t, "2026-01-01T00:00:00.000Z#rfp_1", sk)
	entity, _ := item.StringAttr(store.AttrEntityType)
	assert.Equal(t, "RFP", entity)
}

func TestDecodeStripsStorageAttributes(t *testing.T) {
	key := store.Key{PK: "COMPANY#company_1", SK: "PROFILE"}
	item, err := encode(model.Company{Meta: model.Meta{ID: "company_1"}, Name: "Acme"}, key, string(keys.Company), nil)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, decode(item, &generic))
	for _, attr := range storageAttrs {
		assert.NotContains(t, generic, attr)
	}
	assert.Equal(t, "company_1", generic["id"])

	c, err := decodeAs[model.Company](item)
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Name)

	_, stillThere := item[store.AttrPK]
	assert.True(t, stillThere)
}

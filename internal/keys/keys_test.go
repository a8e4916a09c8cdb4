package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfpdesk/api/internal/store"
)

func TestPrimary(t *testing.T) {
	key, err := Primary(RFP, "rfp_123")
	require.NoError(t, err)
	assert.Equal(t, store.Key{PK: "RFP#rfp_123", SK: "PROFILE"}, key)

	again, _ := Primary(RFP, "rfp_123")
	assert.Equal(t, key, again)

	_, err = Primary(RFP, "")
	assert.ErrorIs(t, err, ErrInvalidKeyPart)
	_, err = Primary("", "x")
	assert.ErrorIs(t, err, ErrInvalidKeyPart)
}

func TestChildAndPrefix(t *testing.T) {
	key, err := Child(RFP, "r1", Proposal, "p1")
	require.NoError(t, err)
	assert.Equal(t, store.Key{PK: "RFP#r1", SK: "PROPOSAL#p1"}, key)

	partition, prefix, err := ChildPrefix(RFP, "r1", Proposal)
	require.NoError(t, err)
	assert.Equal(t, key.PK, partition)
	assert.Contains(t, key.SK, prefix)

	_, _, err = ChildPrefix(RFP, " ", Proposal)
	assert.ErrorIs(t, err, ErrInvalidKeyPart)
}

func TestAttachmentPrefixDoesNotMatchProposals(t *testing.T) {
	_, prefix, err := ChildPrefix(RFP, "r1", Attachment)
	require.NoError(t, err)
	link, _ := Child(RFP, "r1", Proposal, "p1")
	assert.NotContains(t, link.SK, prefix)
}

func TestIndexSort(t *testing.T) {
	assert.Equal(t, "RFP", IndexPartition(RFP))
	a := IndexSort("2026-01-01T00:00:00.000Z", "rfp_a")
	b := IndexSort("2026-01-01T00:00:00.000Z", "rfp_b")
	c := IndexSort("2026-01-02T00:00:00.000Z", "rfp_a")
	assert.Equal(t, "2026-01-01T00:00:00.000Z#rfp_a", a)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestReservationAndToken(t *testing.T) {
	key, err := Reservation(Username, "alice")
	require.NoError(t, err)
	assert.Equal(t, store.Key{PK: "USERNAME#alice", SK: "RESERVATION"}, key)

	key, err = Reservation(Email, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "EMAIL#a@x.com", key.PK)

	key, err = ResetToken("abc")
	require.NoError(t, err)
	assert.Equal(t, store.Key{PK: "RESET#abc", SK: "TOKEN"}, key)
}

func TestIntegrationKeys(t *testing.T) {
	key, err := IntegrationKey(User, "u1", "canva", "cache", "designs")
	require.NoError(t, err)
	assert.Equal(t, store.Key{PK: "USER#u1", SK: "INTEGRATION#canva#cache#designs"}, key)

	partition, prefix, err := IntegrationPrefix(User, "u1", "canva", "cache")
	require.NoError(t, err)
	assert.Equal(t, "USER#u1", partition)
	assert.Equal(t, "INTEGRATION#canva#cache#", prefix)

	_, prefix, err = IntegrationPrefix(User, "u1", "canva", "")
	require.NoError(t, err)
	assert.Equal(t, "INTEGRATION#canva#", prefix)
}

func TestSeparatorInsidePartIsRejected(t *testing.T) {
	_, err := Primary(RFP, "rfp#1")
	assert.ErrorIs(t, err, ErrInvalidKeyPart)
	_, err = Child(RFP, "r1", Proposal, "p#1")
	assert.ErrorIs(t, err, ErrInvalidKeyPart)
	_, err = Reservation(Email, "a#b@x.com")
	assert.ErrorIs(t, err, ErrInvalidKeyPart)
	_, err = IntegrationKey(User, "u1", "canva#cache", "connection", "main")
	assert.ErrorIs(t, err, ErrInvalidKeyPart)
	_, _, err = IntegrationPrefix(User, "u1", "canva#cache", "")
	assert.ErrorIs(t, err, ErrInvalidKeyPart)
	_, _, err = IntegrationPrefix(User, "u1", "canva", "cache#x")
	assert.ErrorIs(t, err, ErrInvalidKeyPart)
}

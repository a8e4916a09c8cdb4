package blob

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MinioStore {
	t.Helper()
	s, err := NewMinioStore(Config{
		Endpoint:   "localhost:9000",
		AccessKey:  "minio",
		SecretKey:  "minio-secret",
		Bucket:     "attachments",
		Region:     "us-east-1",
		PresignTTL: 5 * time.Minute,
	})
	require.NoError(t, err)
	return s
}

func TestPresignUploadIsOffline(t *testing.T) {
	s := newTestStore(t)
	raw, err := s.PresignUpload(context.Background(), "rfp/rfp_1/attachment_1")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasSuffix(u.Path, "/attachments/rfp/rfp_1/attachment_1"))
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignDownloadSetsFileName(t *testing.T) {
	s := newTestStore(t)
	raw, err := s.PresignDownload(context.Background(), "rfp/rfp_1/attachment_1", "scope.pdf")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, `attachment; filename="scope.pdf"`, u.Query().Get("response-content-disposition"))
}

func TestDefaultPresignTTL(t *testing.T) {
	s, err := NewMinioStore(Config{Endpoint: "localhost:9000", Bucket: "b", Region: "us-east-1"})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, s.ttl)
}

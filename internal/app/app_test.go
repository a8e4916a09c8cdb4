package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfpdesk/api/internal/authpw"
	"rfpdesk/api/internal/config"
	"rfpdesk/api/internal/logger"
	"rfpdesk/api/internal/model"
)

func testConfig(redisURL string) config.Config {
	return config.Config{
		Backend:    config.BackendRedis,
		Table:      "apptest",
		RedisURL:   redisURL,
		JWTSecret:  "secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		ResetTTL:   time.Hour,
		BcryptCost: 4,
		AppURL:     "http://localhost",
	}
}

func TestNewRedisBackend(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	a, err := New(ctx, testConfig("redis://"+s.Addr()), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.Objects)
	require.NoError(t, a.Ping(ctx))

	applied, err := a.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	tokens, err := a.Auth.SignUp(ctx, authpw.SignUpRequest{Username: "alice", Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)

	user, err := a.Repos.Users.Get(ctx, tokens.UserID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)

	rfp, err := a.Repos.RFPs.Create(ctx, model.RFP{Title: "Bridge inspection", CreatedBy: user.ID})
	require.NoError(t, err)
	keys := s.Keys()
	assert.Contains(t, keys, "apptest:item:RFP#"+rfp.ID+"|PROFILE")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("redis://127.0.0.1:1")
	cfg.Backend = "dynamo"
	_, err := New(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}

func TestNewFailsWithoutRedis(t *testing.T) {
	_, err := New(context.Background(), testConfig("redis://127.0.0.1:1"), logger.Nop())
	assert.Error(t, err)
}

package repo

import (
	"context"
	"errors"
	"time"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
	"rfpdesk/api/internal/util"
)

// ResetTokens stores password-reset tokens. A token is Issued until it is
// redeemed (Used) or its expiresAt passes (Expired); nothing deletes it.
type ResetTokens struct {
	*deps
}

func (r *ResetTokens) Issue(ctx context.Context, userID, secretHash string, ttl time.Duration) (*model.PasswordResetToken, error) {
	if err := requireID("user id", userID); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, apperr.Validation("token lifetime must be positive")
	}
	key, err := keys.ResetToken(secretHash)
	if err != nil {
		return nil, storageErr("issue reset token", err)
	}
	now := r.clock()
	tok := model.PasswordResetToken{
		TokenHash: secretHash,
		UserID:    userID,
		ExpiresAt: util.Timestamp(now.Add(ttl)),
		CreatedAt: util.Timestamp(now),
	}
	item, err := encode(tok, key, entityResetToken, nil)
	if err != nil {
		return nil, storageErr("issue reset token", err)
	}
	err = r.table.Put(ctx, item, store.ItemNotExists())
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, apperr.Invariant("reset token hash collision")
	}
	if err != nil {
		return nil, storageErr("issue reset token", err)
	}
	return &tok, nil
}

// Lookup returns nil when no token has the hash.
func (r *ResetTokens) Lookup(ctx context.Context, secretHash string) (*model.PasswordResetToken, error) {
	if err := requireID("token", secretHash); err != nil {
		return nil, err
	}
	key, err := keys.ResetToken(secretHash)
	if err != nil {
		return nil, storageErr("lookup reset token", err)
	}
	item, err := r.getItem(ctx, "lookup reset token", key)
	if err != nil || item == nil {
		return nil, err
	}
	tok, err := decodeAs[model.PasswordResetToken](item)
	if err != nil {
		return nil, storageErr("lookup reset token", err)
	}
	return &tok, nil
}

// Redeem marks the token used and replaces the owner's password hash in one
// transaction. Missing, expired and used tokens all fail with invalid_token.
// It returns the owner's id.
func (r *ResetTokens) Redeem(ctx context.Context, secretHash, newPasswordHash string) (string, error) {
	if secretHash == "" {
		return "", apperr.InvalidToken()
	}
	if newPasswordHash == "" {
		return "", apperr.Validation("password hash is required")
	}
	tok, err := r.Lookup(ctx, secretHash)
	if err != nil {
		return "", err
	}
	now := r.now()
	if tok == nil || !tok.Usable(now) {
		return "", apperr.InvalidToken()
	}

	tokenKey, err := keys.ResetToken(secretHash)
	if err != nil {
		return "", apperr.InvalidToken()
	}
	userKey, err := keys.Primary(keys.User, tok.UserID)
	if err != nil {
		return "", apperr.InvalidToken()
	}

	used := store.Item{}
	used.SetString("usedAt", now)
	rotated := store.Item{}
	rotated.SetString("passwordHash", newPasswordHash)
	rotated.SetString("updatedAt", now)

	err = r.table.TransactWrite(ctx, []store.Write{
		store.UpdateWrite(tokenKey, used, nil,
			store.ItemExists().AttrNotExists("usedAt").AttrGreaterThan("expiresAt", now)),
		store.UpdateWrite(userKey, rotated, nil, store.ItemExists()),
	})
	if errors.Is(err, store.ErrConditionFailed) {
		return "", apperr.InvalidToken()
	}
	if err != nil {
		return "", storageErr("redeem reset token", err)
	}
	return tok.UserID, nil
}

package repo

import (
	"context"
	"encoding/json"
	"errors"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
)

type Users struct {
	*deps
}

// Registration carries already normalized and validated signup input.
type Registration struct {
	Username     string
	Email        string
	PasswordHash string
	Role         string
}

// Register creates the user together with its username and email
// reservations in one transaction. Any taken value fails the whole
// registration with the same conflict error.
func (r *Users) Register(ctx context.Context, reg Registration) (*model.User, error) {
	if err := requireID("username", reg.Username); err != nil {
		return nil, err
	}
	if err := requireID("email", reg.Email); err != nil {
		return nil, err
	}
	if reg.PasswordHash == "" {
		return nil, apperr.Validation("password hash is required")
	}

	now := r.now()
	user := model.User{
		ID:           r.newID("user"),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: reg.PasswordHash,
		Role:         reg.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	userKey, err := keys.Primary(keys.User, user.ID)
	if err != nil {
		return nil, storageErr("register", err)
	}
	userItem, err := encode(user, userKey, string(keys.User), listedBy(keys.User, now, user.ID))
	if err != nil {
		return nil, storageErr("register", err)
	}
	writes := []store.Write{}
	for _, res := range []struct {
		field keys.ReservationField
		value string
	}{
		{keys.Username, user.Username},
		{keys.Email, user.Email},
	} {
		key, err := keys.Reservation(res.field, res.value)
		if err != nil {
			return nil, storageErr("register", err)
		}
		item, err := encode(model.Reservation{Value: res.value, UserID: user.ID}, key, entityReservation, nil)
		if err != nil {
			return nil, storageErr("register", err)
		}
		writes = append(writes, store.PutWrite(item, store.ItemNotExists()))
	}
	writes = append(writes, store.PutWrite(userItem, store.ItemNotExists()))

	err = r.table.TransactWrite(ctx, writes)
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, apperr.Conflict("identity already exists")
	}
	if err != nil {
		return nil, storageErr("register", err)
	}
	return &user, nil
}

func (r *Users) Get(ctx context.Context, id string) (*model.User, error) {
	if err := requireID("user id", id); err != nil {
		return nil, err
	}
	key, err := keys.Primary(keys.User, id)
	if err != nil {
		return nil, storageErr("get user", err)
	}
	item, err := r.getItem(ctx, "get user", key)
	if err != nil || item == nil {
		return nil, err
	}
	user, err := decodeAs[model.User](item)
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return &user, nil
}

func (r *Users) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.byReservation(ctx, keys.Username, model.NormalizeIdentity(username))
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.byReservation(ctx, keys.Email, model.NormalizeIdentity(email))
}

func (r *Users) byReservation(ctx context.Context, field keys.ReservationField, value string) (*model.User, error) {
	if err := requireID(string(field), value); err != nil {
		return nil, err
	}
	key, err := keys.Reservation(field, value)
	if err != nil {
		return nil, storageErr("get reservation", err)
	}
	item, err := r.getItem(ctx, "get reservation", key)
	if err != nil || item == nil {
		return nil, err
	}
	res, err := decodeAs[model.Reservation](item)
	if err != nil {
		return nil, storageErr("get reservation", err)
	}
	user, err := r.Get(ctx, res.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.Invariant("reservation " + key.PK + " has no user " + res.UserID)
	}
	return user, nil
}

// List returns users newest first without credential hashes.
func (r *Users) List(ctx context.Context, req PageRequest) (Page[model.User], error) {
	return paginate(ctx, r.deps, keys.User, req, func(item store.Item) (model.User, error) {
		u, err := decodeAs[model.User](item)
		return u.Public(), err
	})
}

// TouchLogin records a successful sign-in. Failures are logged, never
// returned.
func (r *Users) TouchLogin(ctx context.Context, id string) {
	key, err := keys.Primary(keys.User, id)
	if err != nil {
		r.log.Warnw("touch login: bad user id", "user_id", id, "error", err)
		return
	}
	set := store.Item{}
	set.SetString("lastLoginAt", r.now())
	if _, err := r.table.Update(ctx, key, set, nil, store.ItemExists()); err != nil {
		r.log.Warnw("touch login failed", "user_id", id, "error", err)
	}
}

func (r *Users) SetActive(ctx context.Context, id string, active bool) (*model.User, error) {
	if err := requireID("user id", id); err != nil {
		return nil, err
	}
	raw, _ := json.Marshal(active)
	set := store.Item{"isActive": raw}
	return r.update(ctx, "set user active", id, set)
}

func (r *Users) SetRole(ctx context.Context, id, role string) (*model.User, error) {
	if err := requireID("user id", id); err != nil {
		return nil, err
	}
	set := store.Item{}
	set.SetString("role", role)
	return r.update(ctx, "set user role", id, set)
}

func (r *Users) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if err := requireID("user id", id); err != nil {
		return err
	}
	if hash == "" {
		return apperr.Validation("password hash is required")
	}
	set := store.Item{}
	set.SetString("passwordHash", hash)
	_, err := r.update(ctx, "update password", id, set)
	return err
}

func (r *Users) update(ctx context.Context, op, id string, set store.Item) (*model.User, error) {
	key, err := keys.Primary(keys.User, id)
	if err != nil {
		return nil, storageErr(op, err)
	}
	set.SetString("updatedAt", r.now())
	item, err := r.table.Update(ctx, key, set, nil, store.ItemExists())
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, storageErr(op, err)
	}
	user, err := decodeAs[model.User](item)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return &user, nil
}

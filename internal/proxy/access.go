package proxy

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/PrimaryFunction/Arkos/internal/model"
	"github.com/PrimaryFunction/Arkos/internal/store"
)

// Store is the persistence AccessControl needs. *store.Store implements it.
// Implementations report store.ErrDuplicateKey and store.ErrNotFound.
type Store interface {
	CreateProxy(ctx context.Context, p model.Proxy, creatorID string) error
	GrantAccess(ctx context.Context, key, userID string) error
	DeleteProxy(ctx context.Context, key string) (int64, error)
	GetProxy(ctx context.Context, key string) (model.Proxy, error)
	HasGrant(ctx context.Context, key, userID string) (bool, error)
	ListAccessible(ctx context.Context, userID string) ([]model.Proxy, error)
	ListGrantees(ctx context.Context, key string) ([]string, error)
}

// AccessControl owns the proxy table and the grant table and answers
// authorization queries.
type AccessControl struct {
	store  Store
	logger *slog.Logger
}

// NewAccessControl creates an AccessControl over the given store.
// A nil logger falls back to slog.Default().
func NewAccessControl(st Store, logger *slog.Logger) *AccessControl {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessControl{store: st, logger: logger}
}

// CreateProxy creates a proxy and grants its creator access in one step.
func (a *AccessControl) CreateProxy(ctx context.Context, key, name, avatarURL, creatorID string) (model.Proxy, error) {
	key = normalizeKey(key)
	name = strings.TrimSpace(name)
	if key == "" {
		return model.Proxy{}, newInvalidInputError("proxy key is required")
	}
	if name == "" {
		return model.Proxy{}, newInvalidInputError("proxy name is required")
	}
	if creatorID == "" {
		return model.Proxy{}, newInvalidInputError("creator is required")
	}

	p := model.Proxy{Key: key, Name: name, AvatarURL: strings.TrimSpace(avatarURL)}
	err := a.store.CreateProxy(ctx, p, creatorID)
	switch {
	case errors.Is(err, store.ErrDuplicateKey):
		return model.Proxy{}, newDuplicateKeyError(key)
	case err != nil:
		return model.Proxy{}, newStoreError("create proxy", key, err)
	}

	a.logger.Info("proxy created", "proxy_key", key, "user_id", creatorID)
	return p, nil
}

// GrantAccess lets a current member of the proxy's access set add granteeID.
// Granting twice is a successful no-op.
//
// Authorization is checked first, so a grantor asking about a key that does
// not exist is told Unauthorized; ProxyNotFound is reported when the proxy
// disappears between the check and the write.
func (a *AccessControl) GrantAccess(ctx context.Context, key, grantorID, granteeID string) error {
	key = normalizeKey(key)
	if granteeID == "" {
		return newInvalidInputError("grantee is required")
	}

	ok, err := a.Authorize(ctx, key, grantorID)
	if err != nil {
		return err
	}
	if !ok {
		return newUnauthorizedError(key, grantorID)
	}

	err = a.store.GrantAccess(ctx, key, granteeID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return newNotFoundError(key)
	case err != nil:
		return newStoreError("grant access", key, err)
	}

	a.logger.Info("proxy access granted", "proxy_key", key, "user_id", grantorID, "grantee_id", granteeID)
	return nil
}

// DeleteProxy removes the proxy and every grant for it, returning the number
// of grants removed. Deleting an unknown key succeeds with zero.
//
// Callers must hold the administrator capability; AccessControl does not
// check it.
func (a *AccessControl) DeleteProxy(ctx context.Context, key string) (int64, error) {
	key = normalizeKey(key)
	removed, err := a.store.DeleteProxy(ctx, key)
	if err != nil {
		return 0, newStoreError("delete proxy", key, err)
	}
	a.logger.Info("proxy deleted", "proxy_key", key, "grants_removed", removed)
	return removed, nil
}

// ListAccessible returns the proxies userID may speak as, ordered by key.
func (a *AccessControl) ListAccessible(ctx context.Context, userID string) ([]model.Proxy, error) {
	proxies, err := a.store.ListAccessible(ctx, userID)
	if err != nil {
		return nil, newStoreError("list proxies", "", err)
	}
	return proxies, nil
}

// ListGrantees returns the users holding a grant for key. An unknown key
// yields an empty list, not an error.
func (a *AccessControl) ListGrantees(ctx context.Context, key string) ([]string, error) {
	key = normalizeKey(key)
	users, err := a.store.ListGrantees(ctx, key)
	if err != nil {
		return nil, newStoreError("list grantees", key, err)
	}
	return users, nil
}

// Authorize reports whether userID holds a grant for key.
func (a *AccessControl) Authorize(ctx context.Context, key, userID string) (bool, error) {
	key = normalizeKey(key)
	if key == "" || userID == "" {
		return false, nil
	}
	ok, err := a.store.HasGrant(ctx, key, userID)
	if err != nil {
		return false, newStoreError("authorize", key, err)
	}
	return ok, nil
}

// Proxy resolves a proxy by key.
func (a *AccessControl) Proxy(ctx context.Context, key string) (model.Proxy, error) {
	key = normalizeKey(key)
	p, err := a.store.GetProxy(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return model.Proxy{}, newNotFoundError(key)
	case err != nil:
		return model.Proxy{}, newStoreError("get proxy", key, err)
	}
	return p, nil
}

// normalizeKey is applied to every key entering AccessControl so that stored
// and looked-up keys compare equal.
func normalizeKey(key string) string {
	return strings.TrimSpace(key)
}

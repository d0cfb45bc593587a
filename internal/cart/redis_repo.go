package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/sliceline-client/internal/identity"
	"github.com/angelmondragon/sliceline-client/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sliceline-client/pkg/errors"
	"github.com/angelmondragon/sliceline-client/pkg/logger"
	"github.com/angelmondragon/sliceline-client/pkg/redis"
)

const (
	cartKeyPrefix = "cart:"
	// legacyCartKey is the un-namespaced record older storefront builds wrote
	// for anonymous sessions. It is read once and rewritten under the
	// namespaced form.
	legacyCartKey = "cart"
)

// cartPayload is the persisted record shape shared with the legacy storefront.
type cartPayload struct {
	Items models.CartLines `json:"items"`
}

// RedisRepo persists cart records in redis, for deployments where the basket
// should follow the subject across devices (kiosks, shared terminals).
type RedisRepo struct {
	client *redis.Client
	logg   *logger.Logger
}

func NewRedisRepo(client *redis.Client, logg *logger.Logger) (*RedisRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisRepo{client: client, logg: logg}, nil
}

func cartKey(ownerID string) string {
	return cartKeyPrefix + ownerID
}

func (r *RedisRepo) Load(ctx context.Context, ownerID string) (models.CartLines, error) {
	raw, err := r.client.Get(ctx, cartKey(ownerID))
	if errors.Is(err, redis.Nil) {
		if ownerID == identity.OwnerAnonymous {
			return r.loadLegacy(ctx)
		}
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "loading cart record")
	}
	return r.decode(ctx, raw), nil
}

// loadLegacy migrates the shared un-namespaced record the first time an
// anonymous cart is read.
func (r *RedisRepo) loadLegacy(ctx context.Context) (models.CartLines, error) {
	raw, err := r.client.Get(ctx, legacyCartKey)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "loading legacy cart record")
	}

	lines := r.decode(ctx, raw)
	if err := r.Save(ctx, identity.OwnerAnonymous, lines); err == nil {
		if err := r.client.Del(ctx, legacyCartKey); err != nil && r.logg != nil {
			r.logg.Warn(ctx, "legacy cart key left behind after migration")
		}
	}
	return lines, nil
}

func (r *RedisRepo) decode(ctx context.Context, raw string) models.CartLines {
	var payload cartPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "cart record unreadable, treating as empty", err)
		}
		return nil
	}
	return dropInvalidLines(payload.Items)
}

func (r *RedisRepo) Save(ctx context.Context, ownerID string, lines models.CartLines) error {
	raw, err := json.Marshal(cartPayload{Items: lines})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "encoding cart record")
	}
	if err := r.client.Set(ctx, cartKey(ownerID), string(raw), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "saving cart record")
	}
	return nil
}

func (r *RedisRepo) Clear(ctx context.Context, ownerID string) error {
	if err := r.client.Del(ctx, cartKey(ownerID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "clearing cart record")
	}
	return nil
}

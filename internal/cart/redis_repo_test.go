package cart

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sliceline-client/internal/identity"
	"github.com/angelmondragon/sliceline-client/pkg/redis"
)

// fakeCmdable is an in-memory stand-in for the redis command surface.
type fakeCmdable struct {
	values map[string]string
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{values: map[string]string{}}
}

func (f *fakeCmdable) Ping(ctx context.Context) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx)
	raw, ok := value.(string)
	if !ok {
		cmd.SetErr(assert.AnError)
		return cmd
	}
	f.values[key] = raw
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(ctx)
	raw, ok := f.values[key]
	if !ok {
		cmd.SetErr(goredis.Nil)
		return cmd
	}
	cmd.SetVal(raw)
	return cmd
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func newTestRedisRepo(t *testing.T) (*RedisRepo, *fakeCmdable) {
	t.Helper()
	fake := newFakeCmdable()
	repo, err := NewRedisRepo(redis.NewFromCmdable(fake), nil)
	require.NoError(t, err)
	return repo, fake
}

func TestRedisRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRedisRepo(t)

	require.NoError(t, repo.Save(ctx, "user-alice", testLines()))

	loaded, err := repo.Load(ctx, "user-alice")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "pz-margherita", loaded[0].PizzaID)

	require.NoError(t, repo.Clear(ctx, "user-alice"))
	loaded, err = repo.Load(ctx, "user-alice")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisRepoMissingKeyIsEmpty(t *testing.T) {
	repo, _ := newTestRedisRepo(t)

	loaded, err := repo.Load(context.Background(), "user-unknown")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisRepoMigratesLegacyAnonymousRecord(t *testing.T) {
	ctx := context.Background()
	repo, fake := newTestRedisRepo(t)

	// An older build stored the anonymous basket under the shared key.
	fake.values["cart"] = `{"items":[{"pizza_id":"pz-margherita","size":"medium","quantity":2,"unit_price":"12.5"}]}`

	loaded, err := repo.Load(ctx, identity.OwnerAnonymous)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "pz-margherita", loaded[0].PizzaID)

	// The record now lives under the namespaced key; the shared one is gone.
	_, hasLegacy := fake.values["cart"]
	assert.False(t, hasLegacy)
	_, hasNamespaced := fake.values["cart:"+identity.OwnerAnonymous]
	assert.True(t, hasNamespaced)

	// A second load reads the migrated record directly.
	loaded, err = repo.Load(ctx, identity.OwnerAnonymous)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestRedisRepoLegacyRecordIgnoredForAuthenticatedOwners(t *testing.T) {
	ctx := context.Background()
	repo, fake := newTestRedisRepo(t)

	fake.values["cart"] = `{"items":[{"pizza_id":"pz-margherita","size":"medium","quantity":2,"unit_price":"12.5"}]}`

	loaded, err := repo.Load(ctx, "user-alice")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	_, hasLegacy := fake.values["cart"]
	assert.True(t, hasLegacy)
}

func TestRedisRepoMalformedRecordTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	repo, fake := newTestRedisRepo(t)

	fake.values["cart:user-alice"] = `{"not valid json`

	loaded, err := repo.Load(ctx, "user-alice")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

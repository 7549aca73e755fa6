package accesskey

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-avrex/internal/testdb"
)

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testdb.Open(t)
	svc := NewService(db, nil)
	require.NoError(t, svc.EnsureTable(context.Background()))
	return svc
}

func TestNewKey_Shape(t *testing.T) {
	for i := 0; i < 500; i++ {
		k := NewKey()
		require.Regexp(t, keyPattern, k)
		require.True(t, ValidKey(k))
	}
	assert.False(t, ValidKey("abcdefgh"))
	assert.False(t, ValidKey("ABC"))
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, 5, ParseCount("5"))
	assert.Equal(t, 5, ParseCount(" 5 "))
	assert.Equal(t, 1, ParseCount("five"))
	assert.Equal(t, 1, ParseCount(""))
	assert.Equal(t, 1, ParseCount("0"))
	assert.Equal(t, 1, ParseCount("-3"))
	assert.Equal(t, MaxGenerateCount, ParseCount("1001"))
	assert.Equal(t, MaxGenerateCount, ParseCount("1000000000000"))
	assert.Equal(t, 1, ParseCount("99999999999999999999999"))
}

func TestGenerate_CapsCount(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	keys, err := svc.Generate(ctx, 1_000_000_000_000)
	require.NoError(t, err)
	require.Len(t, keys, MaxGenerateCount)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, MaxGenerateCount)
}

func TestInitialize_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	n, err := svc.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, InitialKeyCount, n)

	n, err = svc.Initialize(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	keys, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, keys, InitialKeyCount)
	seen := map[string]bool{}
	for _, k := range keys {
		require.Regexp(t, keyPattern, k.Key)
		require.False(t, k.Used)
		require.False(t, seen[k.Key], "duplicate key %s", k.Key)
		seen[k.Key] = true
	}
}

func TestInitialize_SkipsPopulatedTable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Generate(ctx, 3)
	require.NoError(t, err)

	n, err := svc.Initialize(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	keys, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 3)
}

func TestGenerate_DefaultsToOne(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	keys, err := svc.Generate(ctx, 0)
	require.NoError(t, err)
	require.Len(t, keys, 1)
}

func TestGenerate_UniqueAgainstExisting(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// the generator replays values already stored before producing fresh ones
	seq := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB", "AAAAAAAA", "CCCCCCCC", "DDDDDDDD"}
	var mu sync.Mutex
	i := 0
	svc.newKey = func() string {
		mu.Lock()
		defer mu.Unlock()
		k := seq[i%len(seq)]
		i++
		return k
	}

	first, err := svc.Generate(ctx, 2)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"AAAAAAAA", "BBBBBBBB"}, first)

	second, err := svc.Generate(ctx, 2)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"CCCCCCCC", "DDDDDDDD"}, second)
}

func TestGenerate_KeySpaceExhausted(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	svc.newKey = func() string { return "ZZZZZZZZ" }

	_, err := svc.Generate(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Generate(ctx, 1)
	require.ErrorIs(t, err, ErrKeySpaceExhausted)
}

func TestValidateAndConsume(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	keys, err := svc.Generate(ctx, 1)
	require.NoError(t, err)
	k := keys[0]

	require.NoError(t, svc.ValidateAndConsume(ctx, k))
	require.ErrorIs(t, svc.ValidateAndConsume(ctx, k), ErrKeyAlreadyUsed)
	require.ErrorIs(t, svc.ValidateAndConsume(ctx, "NOPE0000"), ErrKeyNotFound)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].Used)
}

func TestDelete_Unconditional(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	keys, err := svc.Generate(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, svc.ValidateAndConsume(ctx, keys[0]))

	require.NoError(t, svc.Delete(ctx, keys[0]))
	require.NoError(t, svc.Delete(ctx, keys[1]))
	require.NoError(t, svc.Delete(ctx, "MISSING1"))

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

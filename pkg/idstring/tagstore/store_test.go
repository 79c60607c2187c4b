package tagstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/idstring/internal/core/observability/log"
	"github.com/zeusync/idstring/pkg/idstring"
)

func newRegistry(paths ...string) *idstring.Registry {
	r := idstring.NewRegistry()
	r.DeclarePaths(paths...)
	r.Initialize()
	return r
}

func openStore(t *testing.T, logger log.Log) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "tags.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newRegistry("Status.Dead", "Ability.Jump")
	s := openStore(t, nil)

	tags := idstring.NewSet(r, r.Get("Status.Dead"), r.Get("Ability.Jump"))
	require.NoError(t, s.Save(ctx, "hero", tags))

	got := idstring.NewSet(r)
	require.NoError(t, s.Load(ctx, "hero", got))
	assert.Equal(t, tags.Elements(), got.Elements())
	assert.True(t, got.Has(r.Get("Status")))

	tags.Remove(r.Get("Ability.Jump"))
	require.NoError(t, s.Save(ctx, "hero", tags))
	require.NoError(t, s.Load(ctx, "hero", got))
	assert.Equal(t, []string{"Status.Dead"}, got.Paths())
}

func TestLoadKeepsMissingTags(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	s := openStore(t, log.FromZap(zap.New(core)))

	old := newRegistry("Status.Dead", "Status.Stunned")
	require.NoError(t, s.Save(ctx, "hero", idstring.NewSet(old, old.Get("Status.Dead"), old.Get("Status.Stunned"))))

	current := newRegistry("Status.Dead")
	got := idstring.NewSet(current)
	require.NoError(t, s.Load(ctx, "hero", got))

	require.Equal(t, 2, got.Len())
	assert.True(t, got.HasExact(current.Get("Status.Dead")))
	missing := got.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, "Status.Stunned", missing[0].Path())
	assert.Equal(t, 1, logs.FilterMessage("tagstore: entity holds unknown tags").Len())
}

func TestEntitiesAndDelete(t *testing.T) {
	ctx := context.Background()
	r := newRegistry("A")
	s := openStore(t, nil)

	for _, e := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.Save(ctx, e, idstring.NewSet(r, r.Get("A"))))
	}
	names, err := s.Entities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)

	require.NoError(t, s.Delete(ctx, "mid"))
	assert.ErrorIs(t, s.Delete(ctx, "mid"), ErrNotFound)
	assert.ErrorIs(t, s.Load(ctx, "mid", idstring.NewSet(r)), ErrNotFound)
	assert.Error(t, s.Save(ctx, "", idstring.NewSet(r)))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	r := newRegistry("A.B")
	path := filepath.Join(t.TempDir(), "tags.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "e", idstring.NewSet(r, r.Get("A.B"))))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	got := idstring.NewSet(r)
	require.NoError(t, s.Load(ctx, "e", got))
	assert.True(t, got.Has(r.Get("A")))
	assert.Equal(t, path, s.Path())
}

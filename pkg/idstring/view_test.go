package idstring

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/idstring/internal/core/events/bus"
)

func TestRegistryDump(t *testing.T) {
	r := scenario(t)

	var buf bytes.Buffer
	require.NoError(t, r.Dump(&buf))
	assert.Equal(t, "1 : A1\n"+
		"2 : A3\n"+
		"  3 : A3.B1\n"+
		"  4 : A3.B2\n"+
		"  5 : A3.B3\n"+
		"    6 : A3.B3.C1\n"+
		"    7 : A3.B3.C2\n", buf.String())
}

func TestRegistryView(t *testing.T) {
	var slot Handle
	r := NewRegistry()
	r.Declare(Define{Name: "Debug", Hide: true}, Define{Name: "Debug.Trace"})
	r.DeclareMembers(Type[abilityTag]("Ability", Define{},
		Value("Jump", &slot, Define{}),
		Value("Dash", &slot, Define{Hide: true}),
	))
	r.Initialize()

	assert.Equal(t, []string{"Ability", "Ability.Jump"}, pathsOf(r.View(ViewFilter{})))
	assert.Equal(t, []string{"Debug", "Debug.Trace", "Ability", "Ability.Jump", "Ability.Dash"},
		pathsOf(r.View(ViewFilter{IgnoreHidden: true})))

	key := TypeKeyOf[abilityTag]()
	assert.Equal(t, []string{"Ability.Jump"}, pathsOf(r.View(ViewFilter{TypeKey: key})))
	assert.Equal(t, []string{"Ability", "Ability.Jump"},
		pathsOf(r.View(ViewFilter{TypeKey: key, IncludeTypeItself: true})))
	assert.Empty(t, r.View(ViewFilter{TypeKey: "nope"}))

	assert.Equal(t, []string{"Debug", "Debug.Trace"},
		pathsOf(r.View(ViewFilter{Prefix: " Debug ", IgnoreHidden: true})))
	assert.Empty(t, r.View(ViewFilter{Prefix: "Deb", IgnoreHidden: true}))

	var buf bytes.Buffer
	require.NoError(t, r.DumpView(&buf, ViewFilter{Prefix: "Debug", IgnoreHidden: true}))
	assert.Equal(t, "1 : Debug (hidden)\n  2 : Debug.Trace (hidden)\n", buf.String())
}

func TestRegistryEvents(t *testing.T) {
	b := bus.New()
	var got []InitializedData
	_, err := b.Subscribe(EventInitialized, func(e bus.Event) error {
		got = append(got, e.Data().(InitializedData))
		return nil
	})
	require.NoError(t, err)

	r := scenario(t, WithBus(b))
	require.Len(t, got, 1)
	assert.Equal(t, InitializedData{Generation: 1, Elements: 7, Fingerprint: r.Fingerprint()}, got[0])

	sub, err := r.WatchReload(b)
	require.NoError(t, err)
	require.NoError(t, b.Publish(bus.NewEvent(EventReload, "test",
		Declarations{Defines: []Define{{Name: "Only"}}})))

	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Get("Only").IsValid())
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[1].Generation)

	require.NoError(t, sub.Cancel())
	require.NoError(t, b.Publish(bus.NewEvent(EventReload, "test", nil)))
	assert.Equal(t, uint64(2), r.Generation())
}

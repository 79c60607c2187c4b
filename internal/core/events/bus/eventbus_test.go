package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got []any
	_, err := b.Subscribe("test.event", func(e Event) error {
		got = append(got, e.Data())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("test.event", "tester", 123)))
	require.NoError(t, b.Publish(NewEvent("other.event", "tester", 456)))
	assert.Equal(t, []any{123}, got)
}

func TestDeliveryOrderAndErrorJoin(t *testing.T) {
	b := New()
	var order []int
	errA := errors.New("a")
	errB := errors.New("b")
	_, _ = b.Subscribe("x", func(Event) error { order = append(order, 1); return errA })
	_, _ = b.Subscribe("x", func(Event) error { order = append(order, 2); return nil })
	_, _ = b.Subscribe("x", func(Event) error { order = append(order, 3); return errB })

	err := b.Publish(NewEvent("x", "src", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe("ev", func(Event) error { count++; return nil })
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID())
	assert.Equal(t, "ev", sub.EventType())

	_ = b.Publish(NewEvent("ev", "src", nil))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	assert.False(t, sub.IsActive())
	_ = b.Publish(NewEvent("ev", "src", nil))
	assert.Equal(t, 1, count)
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestTopicsIsolation(t *testing.T) {
	b := New()
	count1, count2 := 0, 0
	_, _ = b.SubscribeTopic("t1", "ev", func(Event) error { count1++; return nil })
	_, _ = b.SubscribeTopic("t2", "ev", func(Event) error { count2++; return nil })
	_ = b.PublishToTopic("t1", NewEvent("ev", "src", nil))
	assert.Equal(t, 1, count1)
	assert.Equal(t, 0, count2)

	topics := b.Topics()
	require.Len(t, topics, 2)
	assert.Equal(t, "t1", topics[0].Name)
	assert.Equal(t, 1, topics[0].Subs)
}

func TestHandlerMaySubscribeDuringDelivery(t *testing.T) {
	b := New()
	_, _ = b.Subscribe("ev", func(Event) error {
		_, err := b.Subscribe("ev", func(Event) error { return nil })
		return err
	})
	assert.NoError(t, b.Publish(NewEvent("ev", "src", nil)))
}

func TestRejectsNil(t *testing.T) {
	b := New()
	_, err := b.Subscribe("ev", nil)
	assert.Error(t, err)
	assert.Error(t, b.Publish(nil))
}

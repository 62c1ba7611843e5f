package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("sl1")
	other := b.Subscribe("sl2")

	evt := switchlist.Event{Type: switchlist.EventStatusChanged, SwitchlistID: "sl1", Data: map[string]any{"status": "IN_PROGRESS"}}
	b.Publish("sl1", evt)

	select {
	case got := <-ch:
		assert.Equal(t, evt, got)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case got := <-other:
		t.Fatalf("unexpected event on other switchlist: %+v", got)
	default:
	}

	b.Unsubscribe("sl1", ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")

	// second unsubscribe must not panic on a closed channel
	assert.NotPanics(t, func() { b.Unsubscribe("sl1", ch) })
	b.Publish("sl1", evt)
}

func TestBrokerPublishDoesNotBlock(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("sl1")
	for i := range 20 {
		b.Publish("sl1", switchlist.Event{Type: "n", Data: map[string]any{"i": i}})
	}
	assert.Len(t, ch, cap(ch))
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("sl1")
	require.NoError(t, b.Close())
	_, ok := <-ch
	assert.False(t, ok)
	assert.NotPanics(t, func() { b.Unsubscribe("sl1", ch) })
}

package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInboxDrain(t *testing.T) {
	inbox := NewInbox(2)
	ctx := context.Background()

	inbox.Notify(ctx, Info("one", ""))
	inbox.Notify(ctx, Destructive("two", ""))
	inbox.Notify(ctx, Info("three", ""))

	assert.Equal(t, 2, inbox.Len())
	got := inbox.Drain()
	assert.Equal(t, "two", got[0].Title)
	assert.Equal(t, VariantDestructive, got[0].Variant)
	assert.Equal(t, "three", got[1].Title)
	assert.False(t, got[1].At.IsZero())

	assert.Empty(t, inbox.Drain())
	assert.NotNil(t, inbox.Drain())
}

func TestMultiAndLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	inbox := NewInbox(0)
	m := Multi{inbox, NewLogNotifier(zap.New(core)), Discard{}}

	m.Notify(context.Background(), Destructive("Error", "Could not load saved recipes."))

	assert.Equal(t, 1, inbox.Len())
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zap.WarnLevel, entries[0].Level)
		assert.Equal(t, "Error", entries[0].ContextMap()["title"])
	}
}

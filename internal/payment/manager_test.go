package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerOpenCapturesPlanAndMethods(t *testing.T) {
	gw := &fakeGateway{methods: []Method{"mpesa"}}
	mg := NewManager(Config{}, gw, nil)

	m, err := mg.Open(context.Background(), PlanInfo{ID: 3, Name: "Premium", AmountMinor: 9900, Currency: "TZS"}, "uid-1", "sub@example.com")
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, uint(3), snap.PlanID)
	assert.Equal(t, int64(9900), snap.AmountMinor)
	assert.Equal(t, "TZS", snap.Currency)
	assert.Equal(t, "uid-1", snap.SubscriberUID)
	assert.Equal(t, []Method{"mpesa"}, m.Methods())

	got, ok := mg.Get(snap.ID)
	require.True(t, ok)
	assert.Same(t, m, got)
}

func TestManagerNewSessionSupersedesOld(t *testing.T) {
	gw := &fakeGateway{}
	mg := NewManager(Config{}, gw, nil)

	first, err := mg.Open(context.Background(), PlanInfo{ID: 1, Name: "Basic", AmountMinor: 1000, Currency: "TZS"}, "uid-1", "")
	require.NoError(t, err)
	firstID := first.Snapshot().ID

	second, err := mg.Open(context.Background(), PlanInfo{ID: 2, Name: "Standard", AmountMinor: 5000, Currency: "TZS"}, "uid-1", "")
	require.NoError(t, err)

	_, ok := mg.Get(firstID)
	assert.False(t, ok, "superseded session is discarded")

	// The abandoned machine rejects further submissions.
	err = first.Submit(context.Background(), "0712345678", "mpesa")
	require.Error(t, err)

	_, ok = mg.Get(second.Snapshot().ID)
	assert.True(t, ok)
}

func TestManagerCloseDiscardsSession(t *testing.T) {
	gw := &fakeGateway{}
	mg := NewManager(Config{}, gw, nil)

	m, err := mg.Open(context.Background(), PlanInfo{ID: 1, Name: "Basic", AmountMinor: 1000, Currency: "TZS"}, "uid-1", "")
	require.NoError(t, err)
	id := m.Snapshot().ID

	require.True(t, mg.Close(id))
	_, ok := mg.Get(id)
	assert.False(t, ok)
	assert.False(t, mg.Close(id), "closing twice reports not found")
}

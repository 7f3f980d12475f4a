package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SetJSON(ctx, "k", payload{Name: "a", Count: 3}, 0))

	var got payload
	require.NoError(t, s.GetJSON(ctx, "k", &got))
	require.Equal(t, payload{Name: "a", Count: 3}, got)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()

	var got payload
	err := s.GetJSON(context.Background(), "missing", &got)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.SetJSON(ctx, "k", payload{Name: "a"}, time.Minute))

	var got payload
	require.NoError(t, s.GetJSON(ctx, "k", &got))

	now = now.Add(2 * time.Minute)
	err := s.GetJSON(ctx, "k", &got)
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStorePushNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, v := range []string{"first", "second", "third"} {
		require.NoError(t, s.Push(ctx, "list", v, 10, 0))
	}

	raw, err := s.Range(ctx, "list", 0, -1)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	require.JSONEq(t, `"third"`, string(raw[0]))
	require.JSONEq(t, `"first"`, string(raw[2]))
}

func TestMemoryStorePushCap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Push(ctx, "list", i, 3, 0))
	}

	raw, err := s.Range(ctx, "list", 0, -1)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	// Oldest entries fall off the tail.
	require.JSONEq(t, `4`, string(raw[0]))
	require.JSONEq(t, `2`, string(raw[2]))
}

func TestMemoryStoreRangeBounds(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, s.Push(ctx, "list", i, 10, 0))
	}

	raw, err := s.Range(ctx, "list", 0, 1)
	require.NoError(t, err)
	require.Len(t, raw, 2)

	raw, err = s.Range(ctx, "list", 2, 100)
	require.NoError(t, err)
	require.Len(t, raw, 2)

	raw, err = s.Range(ctx, "missing", 0, -1)
	require.NoError(t, err)
	require.Empty(t, raw)
}

func TestMemoryStoreDeleteCounts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SetJSON(ctx, "a", 1, 0))
	require.NoError(t, s.Push(ctx, "b", 2, 10, 0))

	deleted, err := s.Delete(ctx, "a", "b", "missing")
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	deleted, err = s.Delete(ctx, "a")
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func TestMemoryStoreTxAppliesAllOps(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Tx(ctx,
		SetOp{Key: "bias", Value: payload{Name: "bullish"}, TTL: time.Hour},
		PushOp{Key: "changes", Value: payload{Name: "entry"}, MaxLen: 10, TTL: time.Hour},
	)
	require.NoError(t, err)

	var got payload
	require.NoError(t, s.GetJSON(ctx, "bias", &got))

	raw, err := s.Range(ctx, "changes", 0, -1)
	require.NoError(t, err)
	require.Len(t, raw, 1)
}

func TestMemoryStoreTxMarshalFailureAppliesNothing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Tx(ctx,
		SetOp{Key: "ok", Value: payload{Name: "x"}},
		SetOp{Key: "bad", Value: make(chan int)},
	)
	require.Error(t, err)

	var got payload
	require.ErrorIs(t, s.GetJSON(ctx, "ok", &got), ErrNotFound)
}

func TestMemoryStoreTxDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SetJSON(ctx, "k", 1, 0))
	require.NoError(t, s.Tx(ctx, DelOp{Key: "k"}))

	var got int
	require.ErrorIs(t, s.GetJSON(ctx, "k", &got), ErrNotFound)
}

func TestMemoryStoreView(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SetJSON(ctx, "bias", payload{Name: "bullish"}, 0))
	require.NoError(t, s.Push(ctx, "changes", payload{Name: "c1"}, 10, 0))
	require.NoError(t, s.Push(ctx, "changes", payload{Name: "c2"}, 10, 0))

	snap, err := s.View(ctx, []string{"bias", "missing"}, []string{"changes", "positions"})
	require.NoError(t, err)

	require.Contains(t, snap.Values, "bias")
	require.NotContains(t, snap.Values, "missing")
	require.Len(t, snap.Lists["changes"], 2)
	require.NotContains(t, snap.Lists, "positions")
}

func TestMemoryStorePushRefreshesTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.Push(ctx, "list", 1, 10, time.Minute))

	now = now.Add(50 * time.Second)
	require.NoError(t, s.Push(ctx, "list", 2, 10, time.Minute))

	// The first entry would have expired by now without the refresh.
	now = now.Add(50 * time.Second)
	raw, err := s.Range(ctx, "list", 0, -1)
	require.NoError(t, err)
	require.Len(t, raw, 2)
}

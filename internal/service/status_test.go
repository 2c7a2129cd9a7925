package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-lock-engine/internal/model"
	"github.com/iliyamo/seat-lock-engine/internal/repository"
)

func TestParseFailMode(t *testing.T) {
	tests := []struct {
		in      string
		want    FailMode
		wantErr bool
	}{
		{"", FailOpen, false},
		{"open", FailOpen, false},
		{"unknown", FailUnknown, false},
		{"closed", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFailMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetManyReportsEveryState(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.locks.Acquire(ctx, testEvent, "vip-A-1", "u1")
	require.NoError(t, err)
	_, err = e.locks.Acquire(ctx, testEvent, "vip-A-2", "u2")
	require.NoError(t, err)
	_, err = e.locks.Promote(ctx, testEvent, "vip-A-2", "u2")
	require.NoError(t, err)

	e.mr.FastForward(90*time.Second + 500*time.Millisecond)

	ids := []string{"vip-A-1", "vip-A-2", "vip-A-3"}
	got := e.status.GetMany(ctx, testEvent, ids)
	assert.Equal(t, map[string]model.SeatView{
		"vip-A-1": {Status: model.SeatLocked, Holder: "u1", TTLSeconds: 510},
		"vip-A-2": {Status: model.SeatSold, Holder: "u2"},
		"vip-A-3": {Status: model.SeatAvailable},
	}, got)

	for _, id := range ids {
		assert.Equal(t, got[id], e.status.GetOne(ctx, testEvent, id), id)
	}
}

func TestGetManyIsOneRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	got := e.status.GetMany(ctx, testEvent, []string{"vip-A-1", "vip-A-2", "vip-A-1", "economy-A-1"})
	assert.Len(t, got, 3)
	assert.EqualValues(t, 1, e.store.multiGets.Load())
	assert.EqualValues(t, 0, e.store.gets.Load())

	empty := e.status.GetMany(ctx, testEvent, nil)
	assert.Empty(t, empty)
}

func TestGetVenue(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.locks.Acquire(ctx, testEvent, "economy-H-35", "u9")
	require.NoError(t, err)

	got := e.status.GetVenue(ctx, testEvent)
	require.Len(t, got, e.venue.Capacity())
	assert.Equal(t, model.SeatLocked, got["economy-H-35"].Status)
	assert.Equal(t, model.SeatAvailable, got["vip-A-1"].Status)
	assert.EqualValues(t, 1, e.store.multiGets.Load())
}

func TestStatusFailsOpen(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.locks.Acquire(ctx, testEvent, "vip-A-1", "u1")
	require.NoError(t, err)

	e.mr.SetError("ERR store unavailable")
	got := e.status.GetMany(ctx, testEvent, []string{"vip-A-1", "vip-A-2"})
	assert.Equal(t, model.SeatView{Status: model.SeatAvailable}, got["vip-A-1"])
	assert.Equal(t, model.SeatView{Status: model.SeatAvailable}, got["vip-A-2"])

	_, err = e.locks.Acquire(ctx, testEvent, "vip-A-2", "u2")
	assert.ErrorIs(t, err, ErrStoreUnavailable, "writes never fail open")
}

func TestStatusFailsUnknown(t *testing.T) {
	e := newTestEngine(t, WithFailMode(FailUnknown))
	ctx := context.Background()

	e.mr.SetError("ERR store unavailable")
	got := e.status.GetOne(ctx, testEvent, "vip-A-1")
	assert.Equal(t, model.SeatView{Status: model.SeatUnknown}, got)

	e.mr.SetError("")
	got = e.status.GetOne(ctx, testEvent, "vip-A-1")
	assert.Equal(t, model.SeatView{Status: model.SeatAvailable}, got)
}

func TestCorruptRecordDegradesOnlyThatSeat(t *testing.T) {
	e := newTestEngine(t, WithFailMode(FailUnknown))
	ctx := context.Background()

	require.NoError(t, e.mr.Set(repository.SeatLockKey("", testEvent, "vip-A-1"), `{"status":"reserved"}`))
	_, err := e.locks.Acquire(ctx, testEvent, "vip-A-2", "u2")
	require.NoError(t, err)

	got := e.status.GetMany(ctx, testEvent, []string{"vip-A-1", "vip-A-2"})
	assert.Equal(t, model.SeatUnknown, got["vip-A-1"].Status)
	assert.Equal(t, model.SeatLocked, got["vip-A-2"].Status)
}

func TestStatusKeyPrefix(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	locks := NewLockManager(e.store, e.venue, nil, WithKeyPrefix("tenant-a"))
	status := NewStatusAggregator(e.store, e.venue, WithStatusKeyPrefix("tenant-a"))

	_, err := locks.Acquire(ctx, testEvent, "vip-A-1", "u1")
	require.NoError(t, err)
	assert.True(t, e.mr.Exists("tenant-a:"+testEvent+":seat:vip-A-1"))

	assert.Equal(t, model.SeatLocked, status.GetOne(ctx, testEvent, "vip-A-1").Status)
	assert.Equal(t, model.SeatAvailable, e.status.GetOne(ctx, testEvent, "vip-A-1").Status)
}

func TestToViewLockedWithoutTTLIsAvailable(t *testing.T) {
	raw, err := model.NewLockRecord("u1", time.Unix(1700000000, 0)).Encode()
	require.NoError(t, err)
	sold, err := model.NewLockRecord("u1", time.Unix(1700000000, 0)).Sold(time.Unix(1700000060, 0)).Encode()
	require.NoError(t, err)

	tests := []struct {
		name  string
		entry repository.LeaseEntry
		want  model.SeatView
	}{
		{"lapsed between reads", repository.LeaseEntry{Found: true, Value: raw, TTL: -1}, model.SeatView{Status: model.SeatAvailable}},
		{"zero ttl", repository.LeaseEntry{Found: true, Value: raw, TTL: 0}, model.SeatView{Status: model.SeatAvailable}},
		{"partial second rounds up", repository.LeaseEntry{Found: true, Value: raw, TTL: 1500 * time.Millisecond}, model.SeatView{Status: model.SeatLocked, Holder: "u1", TTLSeconds: 2}},
		{"sold has no ttl", repository.LeaseEntry{Found: true, Value: sold, TTL: -1}, model.SeatView{Status: model.SeatSold, Holder: "u1"}},
		{"missing", repository.LeaseEntry{}, model.SeatView{Status: model.SeatAvailable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toView(tt.entry)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnleasedLockReadsAvailable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	raw, err := model.NewLockRecord("u1", e.clock.Now()).Encode()
	require.NoError(t, err)
	require.NoError(t, e.mr.Set(repository.SeatLockKey("", testEvent, "vip-A-6"), raw))

	assert.Equal(t, model.SeatView{Status: model.SeatAvailable}, e.status.GetOne(ctx, testEvent, "vip-A-6"))
	got := e.status.GetMany(ctx, testEvent, []string{"vip-A-6"})
	assert.Equal(t, model.SeatView{Status: model.SeatAvailable}, got["vip-A-6"])
}

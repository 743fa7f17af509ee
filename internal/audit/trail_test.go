package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgate/rpgate/internal/config"
)

func openTestTrail(t *testing.T) *Trail {
	t.Helper()

	rec, err := Open(config.Audit{
		Enabled: true,
		Driver:  "sqlite",
		DSN:     filepath.Join(t.TempDir(), "audit.db"),
	})
	require.NoError(t, err)

	trail, ok := rec.(*Trail)
	require.True(t, ok)

	return trail
}

func TestTrailRecordAndRecent(t *testing.T) {
	trail := openTestTrail(t)
	ctx := context.Background()

	trail.Record(ctx, Event{Type: EventLoginSuccess, Subject: "user@example.com", RemoteAddr: "192.0.2.1"})
	time.Sleep(10 * time.Millisecond)
	trail.Record(ctx, Event{Type: EventLoginFailure, Kind: "RemoteFailure", Reason: "token_invalid"})
	time.Sleep(10 * time.Millisecond)
	trail.Record(ctx, Event{Type: EventLogout, Subject: "user@example.com"})

	events, err := trail.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, EventLogout, events[0].Type)
	assert.Equal(t, EventLoginFailure, events[1].Type)
	assert.Equal(t, "token_invalid", events[1].Reason)
	assert.Equal(t, EventLoginSuccess, events[2].Type)
	assert.Equal(t, "192.0.2.1", events[2].RemoteAddr)
	assert.NotEqual(t, events[0].ID, events[1].ID)

	events, err = trail.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestOpenDisabled(t *testing.T) {
	rec, err := Open(config.Audit{})
	require.NoError(t, err)
	assert.Equal(t, Discard, rec)

	// must not panic
	rec.Record(context.Background(), Event{Type: EventLogout})
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.Audit{Enabled: true, Driver: "oracle", DSN: "x"})
	require.ErrorIs(t, err, ErrUnknownDriver)
}

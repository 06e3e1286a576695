package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feellog/domain/records"
	"feellog/test/helpers"
)

func TestNotificationService_ShowAndAutoHide(t *testing.T) {
	clk := helpers.NewFakeClock(time.Now())
	svc := NewNotificationService(clk, 3*time.Second)

	var changes []NotificationState
	svc.OnChange(func(s NotificationState) { changes = append(changes, s) })

	svc.Show("done", "rec-1")
	state := svc.State()
	assert.True(t, state.Visible)
	assert.Equal(t, "done", state.Message)
	assert.Equal(t, records.RecordID("rec-1"), state.RecordID)
	require.NotNil(t, state.ShownAt)

	clk.Advance(3 * time.Second)
	assert.False(t, svc.State().Visible)
	assert.Equal(t, "done", svc.State().Message)

	require.Len(t, changes, 2)
	assert.True(t, changes[0].Visible)
	assert.False(t, changes[1].Visible)
}

func TestNotificationService_ShowRearmsTimer(t *testing.T) {
	clk := helpers.NewFakeClock(time.Now())
	svc := NewNotificationService(clk, 3*time.Second)

	svc.Show("first", "rec-1")
	clk.Advance(2 * time.Second)
	svc.Show("second", "rec-2")

	clk.Advance(2 * time.Second)
	assert.True(t, svc.State().Visible, "second toast keeps its full delay")
	assert.Equal(t, "second", svc.State().Message)

	clk.Advance(time.Second)
	assert.False(t, svc.State().Visible)
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestNotificationService_Dismiss(t *testing.T) {
	clk := helpers.NewFakeClock(time.Now())
	svc := NewNotificationService(clk, 0)

	calls := 0
	svc.OnChange(func(NotificationState) { calls++ })

	svc.Dismiss()
	assert.Equal(t, 0, calls, "dismissing a hidden notification is a no-op")

	svc.Show("done", "rec-1")
	svc.Dismiss()
	assert.False(t, svc.State().Visible)
	assert.Equal(t, 0, clk.PendingTimers())
	assert.Equal(t, 2, calls)

	clk.Advance(DefaultHideAfter)
	assert.Equal(t, 2, calls)
}

package outlook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/recurrence"
	"github.com/daviddao/outlookctl/internal/types"
)

func TestFolderPath(t *testing.T) {
	assert.Equal(t, "Inbox/Projects/Alpha", folderPath(`\\me@example.com\Inbox\Projects\Alpha`))
	assert.Equal(t, "Inbox", folderPath(`\\me@example.com\Inbox`))
	assert.Equal(t, "", folderPath(`\\me@example.com`))
}

func TestMailRestriction(t *testing.T) {
	since := time.Date(2026, 3, 1, 14, 5, 0, 0, time.Local)
	q := automation.Query{Since: since, UnreadOnly: true}
	assert.Equal(t, "[ReceivedTime] >= '03/01/2026 02:05 PM' AND [UnRead] = True", mailRestriction(q))
	assert.Empty(t, mailRestriction(automation.Query{From: "alice"}))

	until := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	assert.Equal(t, "[ReceivedTime] <= '03/02/2026 09:01 AM'", mailRestriction(automation.Query{Until: until}))
}

func TestCandidateCap(t *testing.T) {
	since := time.Date(2026, 3, 1, 14, 5, 0, 0, time.Local)
	assert.Equal(t, 3, candidateCap(automation.Query{Since: since, UnreadOnly: true, Max: 3}))
	assert.Zero(t, candidateCap(automation.Query{Until: since, Max: 3}))
	assert.Zero(t, candidateCap(automation.Query{From: "alice", Max: 3}))
	assert.Zero(t, candidateCap(automation.Query{Subject: "plan", Max: 3}))
}

func TestEventRestriction(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
	got := eventRestriction(start, start.AddDate(0, 0, 7))
	assert.Equal(t, "[Start] >= '03/01/2026 12:00 AM' AND [Start] <= '03/08/2026 12:00 AM'", got)
}

func TestStatusMappings(t *testing.T) {
	assert.Equal(t, automation.StatusOrganizer, responseName(olResponseOrganized))
	assert.Equal(t, automation.StatusNotReplied, responseName(olResponseNotResponded))
	assert.Equal(t, automation.StatusNone, responseName(42))

	for i, name := range types.ValidBusyStatuses {
		assert.Equal(t, name, busyName(busyCode(name)), i)
	}
	assert.Equal(t, types.BusyBusy, busyName(99))
	assert.Equal(t, 3, busyCode(types.BusyOutOfOffice))

	assert.Equal(t, automation.AttendeeRequired, attendeeKind(olTo))
	assert.Equal(t, automation.AttendeeOptional, attendeeKind(olCC))
	assert.Equal(t, automation.AttendeeResource, attendeeKind(olBCC))
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 5, toInt(int32(5)))
	assert.Equal(t, 7, toInt(int16(7)))
	assert.Equal(t, 9, toInt(uint8(9)))
	assert.Equal(t, 1, toInt(true))
	assert.Equal(t, 0, toInt("x"))
	assert.Equal(t, 0, toInt(nil))
}

func TestWall(t *testing.T) {
	got := wall(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Local, got.Location())
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 30, got.Minute())
	assert.True(t, wall(time.Time{}).IsZero())
}

func TestRuleRoundTrip(t *testing.T) {
	weekly := &recurrence.Pattern{
		Frequency:   recurrence.Weekly,
		Days:        recurrence.DaysOf(time.Monday, time.Wednesday),
		Termination: recurrence.Termination{Kind: recurrence.EndCount, Count: 6},
	}
	r := ruleOf(weekly)
	assert.Equal(t, olRecursWeekly, r.Type)
	assert.Equal(t, 2|8, r.DayMask)
	assert.False(t, r.NoEnd)
	assert.Equal(t, weekly, r.pattern())

	monthly := &recurrence.Pattern{
		Frequency:   recurrence.Monthly,
		DayOfMonth:  15,
		Termination: recurrence.Termination{Kind: recurrence.EndUntil, Until: recurrence.Date{Year: 2026, Month: time.December, Day: 31}},
	}
	assert.Equal(t, monthly, ruleOf(monthly).pattern())

	daily := &recurrence.Pattern{Frequency: recurrence.Daily}
	r = ruleOf(daily)
	assert.True(t, r.NoEnd)
	assert.Equal(t, daily, r.pattern())

	assert.Nil(t, rule{Type: 5}.pattern())
}

func TestDialerName(t *testing.T) {
	assert.Equal(t, "outlook", Dialer{}.Name())
}

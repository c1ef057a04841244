package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettera-hq/notifier/internal/channel"
	"github.com/lettera-hq/notifier/internal/event"
	"github.com/lettera-hq/notifier/internal/prefs"
	"github.com/lettera-hq/notifier/internal/storage"
)

func assignmentEvent(recipients ...string) event.Event {
	return event.Event{
		Type:       event.TypeAssignment,
		ResourceID: "letter-42",
		ActorID:    "editor-1",
		Recipients: recipients,
		Title:      "You were assigned to review a letter",
		Body:       "Letter #42 needs a second pass.",
		OccurredAt: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestDeliverToPlanChannels(t *testing.T) {
	fx := newFixture(fixtureOpts{
		contacts: map[string]*storage.Contact{
			"u1": {UserID: "u1", Email: "u1@lettera.test"},
		},
	})

	// Default route for assignments: in-app, email and push at high.
	fx.dispatcher.HandleEvent(assignmentEvent("u1"))

	rows := fx.notifications.created()
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].UserID)
	assert.Equal(t, string(event.TypeAssignment), rows[0].Type)
	assert.Equal(t, string(prefs.PriorityHigh), rows[0].Priority)
	assert.False(t, rows[0].Read)

	for _, ch := range []prefs.Channel{prefs.ChannelInApp, prefs.ChannelEmail, prefs.ChannelPush} {
		sends := fx.senders[ch].sent()
		require.Len(t, sends, 1, "channel %s", ch)
		assert.Equal(t, rows[0].ID, sends[0].NotificationID)
		assert.Equal(t, prefs.PriorityHigh, sends[0].Priority)
	}
	assert.Empty(t, fx.senders[prefs.ChannelSMS].sent())
	assert.Empty(t, fx.senders[prefs.ChannelChat].sent())

	assert.Len(t, fx.dispatchLog.byStatus(storage.DispatchStatusSent), 3)
}

func TestRecipientsAreIndependent(t *testing.T) {
	fx := newFixture(fixtureOpts{})
	fx.senders[prefs.ChannelEmail].errs = []error{
		channel.Permanent(errors.New("mailbox rejected")),
		nil,
	}

	fx.dispatcher.HandleEvent(assignmentEvent("u1", "u2"))

	// Both recipients got their inbox rows and their in-app sends; the
	// one failed email changed nothing for anyone else.
	assert.Len(t, fx.notifications.created(), 2)
	assert.Len(t, fx.senders[prefs.ChannelInApp].sent(), 2)
	assert.Len(t, fx.senders[prefs.ChannelEmail].sent(), 2)
	assert.Len(t, fx.dispatchLog.byStatus(storage.DispatchStatusFailed), 1)
}

func TestDuplicateSuppressed(t *testing.T) {
	fx := newFixture(fixtureOpts{})

	e := assignmentEvent("u1")
	fx.dispatcher.HandleEvent(e)
	fx.dispatcher.HandleEvent(e)

	assert.Len(t, fx.notifications.created(), 1, "second identical event must not create a row")
	assert.Len(t, fx.senders[prefs.ChannelInApp].sent(), 1)
}

func TestDistinctRecipientsNotDeduplicated(t *testing.T) {
	fx := newFixture(fixtureOpts{})

	fx.dispatcher.HandleEvent(assignmentEvent("u1"))
	fx.dispatcher.HandleEvent(assignmentEvent("u2"))

	assert.Len(t, fx.notifications.created(), 2)
}

func TestQuietHoursSuppressExternalOnly(t *testing.T) {
	profile := prefs.NewProfile("u1")
	profile.Quiet = prefs.QuietHours{Enabled: true, Start: "22:00", End: "07:00", Mode: prefs.QuietModeAll}

	fx := newFixture(fixtureOpts{
		profiles: map[string]*prefs.Profile{"u1": profile},
		now:      time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC),
	})

	// New-letter events route to in-app and email at normal priority.
	fx.dispatcher.HandleEvent(event.Event{
		Type:       event.TypeNewLetter,
		ResourceID: "letter-7",
		Recipients: []string{"u1"},
		Title:      "A new letter arrived",
	})

	assert.Len(t, fx.notifications.created(), 1, "inbox row is written even when sends are suppressed")
	assert.Len(t, fx.senders[prefs.ChannelInApp].sent(), 1, "in-app is exempt from quiet hours")
	assert.Empty(t, fx.senders[prefs.ChannelEmail].sent())

	suppressed := fx.dispatchLog.byStatus(storage.DispatchStatusSuppressed)
	require.Len(t, suppressed, 1)
	assert.Equal(t, string(prefs.ChannelEmail), suppressed[0].Channel)
}

func TestCriticalBypassesQuietHours(t *testing.T) {
	profile := prefs.NewProfile("u1")
	profile.Quiet = prefs.QuietHours{Enabled: true, Start: "22:00", End: "07:00", Mode: prefs.QuietModeAll}

	fx := newFixture(fixtureOpts{
		profiles: map[string]*prefs.Profile{"u1": profile},
		now:      time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC),
	})

	// Overdue deadlines resolve to critical, which pierces quiet hours.
	fx.dispatcher.HandleEvent(event.Event{
		Type:       event.TypeDeadlineOverdue,
		ResourceID: "letter-9",
		Recipients: []string{"u1"},
		Title:      "Deadline passed",
	})

	assert.NotEmpty(t, fx.senders[prefs.ChannelEmail].sent())
	assert.Empty(t, fx.dispatchLog.byStatus(storage.DispatchStatusSuppressed))
}

func TestQuietHoursCarryOverToDigest(t *testing.T) {
	profile := prefs.NewProfile("u1")
	profile.Quiet = prefs.QuietHours{Enabled: true, Start: "22:00", End: "07:00", Mode: prefs.QuietModeAll}
	profile.Digest = prefs.DigestDaily

	fx := newFixture(fixtureOpts{
		profiles: map[string]*prefs.Profile{"u1": profile},
		now:      time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC),
	})

	fx.dispatcher.HandleEvent(event.Event{
		Type:       event.TypeNewLetter,
		ResourceID: "letter-8",
		Recipients: []string{"u1"},
		Title:      "A new letter arrived",
	})

	assert.Empty(t, fx.senders[prefs.ChannelEmail].sent())
	assert.Equal(t, 1, fx.digests.Pending(prefs.DigestDaily),
		"quiet-suppressed delivery joins the next digest")

	digested := fx.dispatchLog.byStatus(storage.DispatchStatusDigested)
	require.Len(t, digested, 1)
	assert.Empty(t, fx.dispatchLog.byStatus(storage.DispatchStatusSuppressed))
}

func TestDigestDefersExternalChannels(t *testing.T) {
	profile := prefs.NewProfile("u1")
	profile.Digest = prefs.DigestDaily

	fx := newFixture(fixtureOpts{
		profiles: map[string]*prefs.Profile{"u1": profile},
	})

	fx.dispatcher.HandleEvent(event.Event{
		Type:       event.TypeNewLetter,
		ResourceID: "letter-3",
		Recipients: []string{"u1"},
		Title:      "A new letter arrived",
	})

	assert.Len(t, fx.senders[prefs.ChannelInApp].sent(), 1, "in-app is never digested")
	assert.Empty(t, fx.senders[prefs.ChannelEmail].sent())
	assert.Equal(t, 1, fx.digests.Pending(prefs.DigestDaily))

	digested := fx.dispatchLog.byStatus(storage.DispatchStatusDigested)
	require.Len(t, digested, 1)
	assert.Equal(t, string(prefs.ChannelEmail), digested[0].Channel)
}

func TestHighPriorityBypassesDigest(t *testing.T) {
	profile := prefs.NewProfile("u1")
	profile.Digest = prefs.DigestWeekly

	fx := newFixture(fixtureOpts{
		profiles: map[string]*prefs.Profile{"u1": profile},
	})

	fx.dispatcher.HandleEvent(assignmentEvent("u1"))

	assert.NotEmpty(t, fx.senders[prefs.ChannelEmail].sent())
	assert.Equal(t, 0, fx.digests.Pending(prefs.DigestWeekly))
}

func TestFlushDigestBatchesPerChannel(t *testing.T) {
	profile := prefs.NewProfile("u1")
	profile.Digest = prefs.DigestDaily

	fx := newFixture(fixtureOpts{
		profiles: map[string]*prefs.Profile{"u1": profile},
	})

	for _, title := range []string{"Letter one", "Letter two", "Letter three"} {
		fx.dispatcher.HandleEvent(event.Event{
			Type:       event.TypeNewLetter,
			ResourceID: title,
			Recipients: []string{"u1"},
			Title:      title,
		})
	}
	require.Equal(t, 3, fx.digests.Pending(prefs.DigestDaily))

	pending := fx.digests.Drain(prefs.DigestDaily)
	fx.dispatcher.FlushDigest(context.Background(), prefs.DigestDaily, "u1", pending["u1"])

	sends := fx.senders[prefs.ChannelEmail].sent()
	require.Len(t, sends, 1, "one batched email, not three")
	assert.True(t, sends[0].Digest)
	assert.Equal(t, 3, sends[0].ItemCount)
	assert.Contains(t, sends[0].Body, "Letter two")
}

func TestTransientFailureRetriesOnce(t *testing.T) {
	fx := newFixture(fixtureOpts{})
	fx.senders[prefs.ChannelEmail].errs = []error{
		channel.Transient(errors.New("connection reset")),
		nil,
	}

	fx.dispatcher.HandleEvent(assignmentEvent("u1"))

	assert.Len(t, fx.senders[prefs.ChannelEmail].sent(), 2, "one retry after a transient failure")
	emailLog := fx.dispatchLog.forChannel(prefs.ChannelEmail)
	require.Len(t, emailLog, 1)
	assert.Equal(t, storage.DispatchStatusSent, emailLog[0].Status)
}

func TestPermanentFailureDoesNotRetry(t *testing.T) {
	fx := newFixture(fixtureOpts{})
	fx.senders[prefs.ChannelEmail].errs = []error{
		channel.Permanent(errors.New("mailbox does not exist")),
	}

	fx.dispatcher.HandleEvent(assignmentEvent("u1"))

	assert.Len(t, fx.senders[prefs.ChannelEmail].sent(), 1)
	emailLog := fx.dispatchLog.forChannel(prefs.ChannelEmail)
	require.Len(t, emailLog, 1)
	assert.Equal(t, storage.DispatchStatusFailed, emailLog[0].Status)
	assert.Contains(t, emailLog[0].ErrorMsg, "mailbox does not exist")
}

func TestHungTransportCannotOutliveSendTimeout(t *testing.T) {
	fx := newFixture(fixtureOpts{
		channels:     []prefs.Channel{prefs.ChannelInApp},
		extraSenders: []channel.Sender{&stalledSender{ch: prefs.ChannelEmail, stall: 2 * time.Second}},
		sendTimeout:  50 * time.Millisecond,
	})

	start := time.Now()
	fx.dispatcher.HandleEvent(assignmentEvent("u1"))
	elapsed := time.Since(start)

	// One timeout plus the transient retry, nowhere near the 2s stall.
	assert.Less(t, elapsed, time.Second, "fan-out must return at the deadline, not when the transport gives up")

	emailLog := fx.dispatchLog.forChannel(prefs.ChannelEmail)
	require.Len(t, emailLog, 1)
	assert.Equal(t, storage.DispatchStatusFailed, emailLog[0].Status)
	assert.Contains(t, emailLog[0].ErrorMsg, "timed out")
}

func TestUnconfiguredChannelIsUnavailable(t *testing.T) {
	// Only in-app and email transports exist in this deployment.
	fx := newFixture(fixtureOpts{
		channels: []prefs.Channel{prefs.ChannelInApp, prefs.ChannelEmail},
	})

	fx.dispatcher.HandleEvent(assignmentEvent("u1"))

	unavailable := fx.dispatchLog.byStatus(storage.DispatchStatusUnavailable)
	require.Len(t, unavailable, 1)
	assert.Equal(t, string(prefs.ChannelPush), unavailable[0].Channel)

	// The configured channels still went out.
	assert.Len(t, fx.dispatchLog.byStatus(storage.DispatchStatusSent), 2)
}

func TestDisabledChannelSkipsRowlessly(t *testing.T) {
	profile := prefs.NewProfile("u1")
	profile.Channels.Email = false

	fx := newFixture(fixtureOpts{
		profiles: map[string]*prefs.Profile{"u1": profile},
	})

	fx.dispatcher.HandleEvent(assignmentEvent("u1"))

	assert.Empty(t, fx.senders[prefs.ChannelEmail].sent())
	assert.Empty(t, fx.dispatchLog.forChannel(prefs.ChannelEmail),
		"a globally disabled channel is not attempted at all")
	assert.NotEmpty(t, fx.senders[prefs.ChannelPush].sent())
}

func TestTestSend(t *testing.T) {
	fx := newFixture(fixtureOpts{
		channels: []prefs.Channel{prefs.ChannelEmail},
		contacts: map[string]*storage.Contact{
			"u1": {UserID: "u1", Email: "u1@lettera.test"},
		},
	})

	require.NoError(t, fx.dispatcher.TestSend(context.Background(), "u1", prefs.ChannelEmail))
	sends := fx.senders[prefs.ChannelEmail].sent()
	require.Len(t, sends, 1)
	assert.Equal(t, "Test notification", sends[0].Title)

	err := fx.dispatcher.TestSend(context.Background(), "u1", prefs.ChannelSMS)
	require.Error(t, err)
	assert.Equal(t, channel.FailureUnavailable, channel.KindOf(err))
}

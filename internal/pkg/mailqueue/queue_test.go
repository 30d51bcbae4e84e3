package mailqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniarthurwidodo/next-crm/internal/pkg/mail"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []sentMail
	fail  bool
	sench chan struct{}
}

type sentMail struct {
	to  string
	tpl mail.Template
}

func newRecordingSender(fail bool) *recordingSender {
	return &recordingSender{fail: fail, sench: make(chan struct{}, 16)}
}

func (r *recordingSender) Send(to string, tpl mail.Template) bool {
	r.mu.Lock()
	r.sent = append(r.sent, sentMail{to: to, tpl: tpl})
	r.mu.Unlock()
	r.sench <- struct{}{}
	return !r.fail
}

func (r *recordingSender) all() []sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentMail, len(r.sent))
	copy(out, r.sent)
	return out
}

func setupQueue(t *testing.T, sender Sender) (*Queue, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewQueue(client, sender, 1), mr, client
}

func waitForSends(t *testing.T, sender *recordingSender, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-sender.sench:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for send %d of %d", i+1, n)
		}
	}
}

func TestQueueDeliversEnqueuedJob(t *testing.T) {
	sender := newRecordingSender(false)
	q, _, client := setupQueue(t, sender)

	q.Start()
	defer q.Stop()

	q.SendWelcome("alice@example.com", "Alice")

	waitForSends(t, sender, 1)

	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].to)
	assert.Contains(t, sent[0].tpl.HTML, "Alice")

	// sent counter bumped
	assert.Eventually(t, func() bool {
		v, err := client.HGet(context.Background(), MailStatsKey, "sent").Result()
		return err == nil && v == "1"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestQueueCountsFailedSends(t *testing.T) {
	sender := newRecordingSender(true)
	q, _, client := setupQueue(t, sender)

	q.Start()
	defer q.Stop()

	q.SendPaymentFailed("bob@example.com", "Go Pro", time.Now().Add(48*time.Hour))

	waitForSends(t, sender, 1)

	assert.Eventually(t, func() bool {
		v, err := client.HGet(context.Background(), MailStatsKey, "failed").Result()
		return err == nil && v == "1"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestQueueDrainsMultipleJobTypes(t *testing.T) {
	sender := newRecordingSender(false)
	q, _, _ := setupQueue(t, sender)

	q.Start()
	defer q.Stop()

	endsAt := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	q.SendSubscriptionConfirmed("carol@example.com", "Go Pro")
	q.SendSubscriptionCanceled("carol@example.com", "Go Pro", endsAt)
	q.SendUploadNotice("carol@example.com", mail.UploadDetails{
		FileName:  "report.pdf",
		FileSize:  2 * 1024 * 1024,
		Shortcode: "q3-reports",
	})

	waitForSends(t, sender, 3)

	sent := sender.all()
	require.Len(t, sent, 3)

	var subjects []string
	for _, s := range sent {
		assert.Equal(t, "carol@example.com", s.to)
		subjects = append(subjects, s.tpl.Subject)
	}
	assert.Contains(t, subjects, "Subscription Confirmed: Go Pro")
	assert.Contains(t, subjects, "Subscription Cancelled")
	assert.Contains(t, subjects, "New Upload: report.pdf")
}

func TestQueueSkipsMalformedPayload(t *testing.T) {
	sender := newRecordingSender(false)
	q, _, client := setupQueue(t, sender)

	require.NoError(t, client.LPush(context.Background(), MailQueueKey, "{not json").Err())

	q.Start()
	defer q.Stop()

	// valid job after the malformed one still gets delivered
	q.SendWelcome("dave@example.com", "Dave")
	waitForSends(t, sender, 1)

	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "dave@example.com", sent[0].to)

	assert.Eventually(t, func() bool {
		v, err := client.HGet(context.Background(), MailStatsKey, "malformed").Result()
		return err == nil && v == "1"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	sender := newRecordingSender(false)
	q, _, _ := setupQueue(t, sender)

	q.Start()
	q.Stop()
	q.Stop()
}

func TestQueueRestartsAfterStop(t *testing.T) {
	sender := newRecordingSender(false)
	q, _, _ := setupQueue(t, sender)

	q.Start()
	q.SendWelcome("erin@example.com", "Erin")
	waitForSends(t, sender, 1)
	q.Stop()

	// A second generation of workers must pick up new jobs and the queue
	// must survive being stopped again.
	q.Start()
	q.SendWelcome("frank@example.com", "Frank")
	waitForSends(t, sender, 1)
	q.Stop()
	q.Stop()

	sent := sender.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "frank@example.com", sent[1].to)
}

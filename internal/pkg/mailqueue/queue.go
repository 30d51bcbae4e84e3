package mailqueue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/daniarthurwidodo/next-crm/internal/pkg/env"
	"github.com/daniarthurwidodo/next-crm/internal/pkg/mail"
)

const (
	// Redis keys
	MailQueueKey = "mail_queue"
	MailStatsKey = "mail_stats"

	popTimeout = 1 * time.Second
)

// Sender delivers a rendered template; *mail.Mailer satisfies this.
type Sender interface {
	Send(to string, tpl mail.Template) bool
}

// Queue dispatches transactional email through a Redis-backed worker pool.
// Enqueue is the fire-and-forget boundary: callers never see delivery
// failures, workers log and count them.
type Queue struct {
	client  *redis.Client
	sender  Sender
	workers int
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a mail queue with the given Redis client and sender.
func NewQueue(client *redis.Client, sender Sender, workers int) *Queue {
	if workers <= 0 {
		workers = 2
	}

	return &Queue{
		client:  client,
		sender:  sender,
		workers: workers,
	}
}

// Start starts the queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	// Fresh channel each generation so Start after Stop works; workers
	// capture it at spawn time.
	q.stopCh = make(chan struct{})
	log.Infof("[MailQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i, q.stopCh)
	}
}

// Stop stops the queue workers and waits for in-flight sends.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Info("[MailQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[MailQueue] All workers stopped")
}

func (q *Queue) worker(id int, stop <-chan struct{}) {
	defer q.wg.Done()

	ctx := context.Background()
	for {
		select {
		case <-stop:
			log.Debugf("[MailQueue] Worker %d stopping", id)
			return
		default:
		}

		res, err := q.client.BRPop(ctx, popTimeout, MailQueueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Errorf("[MailQueue] Worker %d BRPOP error: %v", id, err)
				time.Sleep(popTimeout)
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		job, err := UnmarshalJob([]byte(res[1]))
		if err != nil {
			log.Errorf("[MailQueue] Worker %d dropping malformed job: %v", id, err)
			q.bumpStat(ctx, "malformed")
			continue
		}

		q.process(ctx, job)
	}
}

func (q *Queue) process(ctx context.Context, job *Job) {
	tpl, ok := renderJob(job)
	if !ok {
		log.Errorf("[MailQueue] Unknown job type %q (job %s)", job.Type, job.ID)
		q.bumpStat(ctx, "malformed")
		return
	}

	if q.sender.Send(job.To, tpl) {
		log.Infof("[MailQueue] Sent %s email to %s (job %s)", job.Type, job.To, job.ID)
		q.bumpStat(ctx, "sent")
		return
	}

	// Best-effort by design: the failure is observed here, not propagated.
	log.Errorf("[MailQueue] Failed to send %s email to %s (job %s)", job.Type, job.To, job.ID)
	q.bumpStat(ctx, "failed")
}

func (q *Queue) bumpStat(ctx context.Context, field string) {
	if err := q.client.HIncrBy(ctx, MailStatsKey, field, 1).Err(); err != nil {
		log.Debugf("[MailQueue] Failed to bump stat %s: %v", field, err)
	}
}

// renderJob turns a queued job back into a concrete template.
func renderJob(job *Job) (mail.Template, bool) {
	dashboardURL := env.AppBaseURL() + "/dashboard"

	switch job.Type {
	case JobTypeWelcome:
		return mail.WelcomeEmail(job.Payload[PayloadName], dashboardURL), true
	case JobTypeUploadNotice:
		size, _ := strconv.ParseInt(job.Payload[PayloadFileSize], 10, 64)
		return mail.UploadNotificationEmail(mail.UploadDetails{
			FileName:  job.Payload[PayloadFileName],
			FileSize:  size,
			Shortcode: job.Payload[PayloadShortcode],
			Timestamp: job.CreatedAt,
		}, dashboardURL), true
	case JobTypeSubscriptionConfirmed:
		return mail.SubscriptionConfirmedEmail(job.Payload[PayloadPlan], dashboardURL), true
	case JobTypePaymentFailed:
		retryAt := timeFromPayload(job.Payload, PayloadRetryAt, time.Now().Add(3*24*time.Hour))
		return mail.PaymentFailedEmail(job.Payload[PayloadPlan], retryAt, dashboardURL), true
	case JobTypeSubscriptionCanceled:
		endsAt := timeFromPayload(job.Payload, PayloadEndsAt, time.Now())
		return mail.SubscriptionCancelledEmail(job.Payload[PayloadPlan], endsAt, dashboardURL), true
	default:
		return mail.Template{}, false
	}
}

// Enqueue pushes a job onto the queue.
func (q *Queue) Enqueue(jobType JobType, to string, payload map[string]string) {
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		To:        to,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	data, err := job.Marshal()
	if err != nil {
		log.Errorf("[MailQueue] Failed to marshal %s job for %s: %v", jobType, to, err)
		return
	}

	if err := q.client.LPush(context.Background(), MailQueueKey, data).Err(); err != nil {
		log.Errorf("[MailQueue] Failed to enqueue %s job for %s: %v", jobType, to, err)
		return
	}

	log.Debugf("[MailQueue] Enqueued %s job %s for %s", jobType, job.ID, to)
}

// SendWelcome queues a welcome email for a new account.
func (q *Queue) SendWelcome(to, name string) {
	q.Enqueue(JobTypeWelcome, to, map[string]string{PayloadName: name})
}

// SendSubscriptionConfirmed queues a subscription confirmation.
func (q *Queue) SendSubscriptionConfirmed(to, plan string) {
	q.Enqueue(JobTypeSubscriptionConfirmed, to, map[string]string{PayloadPlan: plan})
}

// SendPaymentFailed queues a payment failure notice with the retry date.
func (q *Queue) SendPaymentFailed(to, plan string, retryAt time.Time) {
	q.Enqueue(JobTypePaymentFailed, to, map[string]string{
		PayloadPlan:    plan,
		PayloadRetryAt: retryAt.Format(time.RFC3339),
	})
}

// SendSubscriptionCanceled queues a cancellation notice with the access-end date.
func (q *Queue) SendSubscriptionCanceled(to, plan string, endsAt time.Time) {
	q.Enqueue(JobTypeSubscriptionCanceled, to, map[string]string{
		PayloadPlan:   plan,
		PayloadEndsAt: endsAt.Format(time.RFC3339),
	})
}

// SendUploadNotice queues an upload notification for a shortcode owner.
func (q *Queue) SendUploadNotice(to string, details mail.UploadDetails) {
	q.Enqueue(JobTypeUploadNotice, to, map[string]string{
		PayloadFileName:  details.FileName,
		PayloadFileSize:  strconv.FormatInt(details.FileSize, 10),
		PayloadShortcode: details.Shortcode,
	})
}

package mailqueue

import (
	"encoding/json"
	"time"
)

// JobType identifies which notification a queued job renders.
type JobType string

const (
	JobTypeWelcome               JobType = "welcome"
	JobTypeUploadNotice          JobType = "upload_notice"
	JobTypeSubscriptionConfirmed JobType = "subscription_confirmed"
	JobTypePaymentFailed         JobType = "payment_failed"
	JobTypeSubscriptionCanceled  JobType = "subscription_canceled"
)

// Payload keys shared between enqueuers and workers.
const (
	PayloadName      = "name"
	PayloadPlan      = "plan"
	PayloadRetryAt   = "retry_at"
	PayloadEndsAt    = "ends_at"
	PayloadFileName  = "file_name"
	PayloadFileSize  = "file_size"
	PayloadShortcode = "shortcode"
)

// Job is one queued email. Delivery is best-effort: a failed send is logged
// and counted, never retried through the queue (the mailer retries the
// transport itself).
type Job struct {
	ID        string            `json:"id"`
	Type      JobType           `json:"type"`
	To        string            `json:"to"`
	Payload   map[string]string `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

// Marshal serializes the job for the Redis list.
func (j *Job) Marshal() ([]byte, error) {
	return json.Marshal(j)
}

// UnmarshalJob deserializes a job from the Redis list.
func UnmarshalJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// timeFromPayload parses an RFC3339 payload value, falling back when absent.
func timeFromPayload(payload map[string]string, key string, fallback time.Time) time.Time {
	if raw, ok := payload[key]; ok && raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return fallback
}

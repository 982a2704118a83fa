package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horizon-travel/tourbook/internal/emaillogs"
	"github.com/horizon-travel/tourbook/internal/mailer"
	"github.com/horizon-travel/tourbook/internal/models"
	"github.com/horizon-travel/tourbook/pkg/queue"
)

// EmailProcessor drains the email queue, delivering notifications over SMTP
// and recording every attempt in the email log.
type EmailProcessor struct {
	queue  *queue.Queue
	mailer *mailer.Mailer
	logs   *emaillogs.Repository
	logger *zap.Logger
}

// NewEmailProcessor creates an email worker.
func NewEmailProcessor(q *queue.Queue, m *mailer.Mailer, logs *emaillogs.Repository, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{queue: q, mailer: m, logs: logs, logger: logger}
}

// promoteInterval is how often delayed retries are checked for promotion.
const promoteInterval = time.Second

// Run processes jobs until ctx is cancelled. A side goroutine promotes
// delayed retries back onto the main queue so one failing recipient never
// stalls delivery for the jobs behind it.
func (p *EmailProcessor) Run(ctx context.Context) {
	p.logger.Info("email worker started")

	go func() {
		ticker := time.NewTicker(promoteInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := p.queue.PromoteDue(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					p.logger.Error("promote delayed jobs failed", zap.Error(err))
					continue
				}
				if n > 0 {
					p.logger.Debug("promoted delayed jobs", zap.Int("count", n))
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.Error(err), zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
			if err := p.queue.Retry(ctx, job); err != nil {
				p.logger.Error("retry failed", zap.Error(err), zap.String("job_id", job.ID))
			}
		}
	}
}

// Process handles one job. Unknown job types are dropped, not retried.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		var payload queue.EmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			p.logger.Warn("invalid email payload, dropping", zap.String("job_id", job.ID), zap.Error(err))
			return nil
		}
		return p.sendEmail(ctx, payload)
	default:
		p.logger.Warn("unknown job type, dropping", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return nil
	}
}

func (p *EmailProcessor) sendEmail(ctx context.Context, payload queue.EmailPayload) error {
	entry := &models.EmailLog{
		BookingID:      payload.BookingID,
		UserID:         payload.UserID,
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
	}
	if err := p.logs.Create(ctx, entry); err != nil {
		// The log row is bookkeeping; still attempt delivery.
		p.logger.Error("create email log failed", zap.Error(err))
	}

	if err := p.mailer.Send(payload.RecipientEmail, payload.Subject, payload.BodyHTML); err != nil {
		if entry.ID != uuid.Nil {
			if lerr := p.logs.MarkFailed(ctx, entry.ID, err.Error()); lerr != nil {
				p.logger.Error("mark email failed errored", zap.Error(lerr))
			}
		}
		return err
	}

	if entry.ID != uuid.Nil {
		if err := p.logs.MarkSent(ctx, entry.ID, time.Now()); err != nil {
			p.logger.Error("mark email sent errored", zap.Error(err))
		}
	}
	p.logger.Info("email sent",
		zap.String("type", payload.EmailType),
		zap.String("to", payload.RecipientEmail))
	return nil
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/invitations"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/mailer"
	"github.com/eventhive/backend/pkg/queue"
)

// InviteMailer sends invitation emails.
type InviteMailer interface {
	SendInvite(to string, data mailer.InviteData) error
}

// InviteLogs records delivery outcomes on invitation_logs rows.
type InviteLogs interface {
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// InviteProcessor processes invitation email jobs: build the signed accept
// link, send the mail, record the delivery outcome.
type InviteProcessor struct {
	mailer  InviteMailer
	logs    InviteLogs
	signer  *invitations.TokenSigner
	queue   *queue.Queue
	baseURL string
	logger  *zap.Logger
}

// NewInviteProcessor creates an invitation email processor. baseURL is the
// public frontend URL the accept link points at.
func NewInviteProcessor(m InviteMailer, logs InviteLogs, signer *invitations.TokenSigner, q *queue.Queue, baseURL string, logger *zap.Logger) *InviteProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InviteProcessor{mailer: m, logs: logs, signer: signer, queue: q, baseURL: baseURL, logger: logger}
}

// Process executes one invitation email job.
func (p *InviteProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeInviteEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.InviteEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	scope := invitations.Scope{Type: invitations.ScopeType(payload.ScopeType), ID: payload.ScopeID}
	token, err := p.signer.Generate(payload.Email, scope, models.ScopeRole(payload.Role))
	if err != nil {
		return fmt.Errorf("sign invite token: %w", err)
	}
	acceptURL := fmt.Sprintf("%s/invite/accept?token=%s", p.baseURL, url.QueryEscape(token))

	// A zero LogID means the dispatcher's log write failed and the job was
	// enqueued without a row to update. Deliver anyway and note the orphan.
	hasLog := payload.LogID != uuid.Nil
	if !hasLog {
		p.logger.Warn("invite job has no log row", zap.String("email", payload.Email))
	}

	err = p.mailer.SendInvite(payload.Email, mailer.InviteData{
		ScopeName: payload.ScopeName,
		Role:      payload.Role,
		AcceptURL: acceptURL,
	})
	if err != nil {
		if hasLog {
			if logErr := p.logs.MarkFailed(ctx, payload.LogID, err.Error()); logErr != nil {
				p.logger.Error("mark invite failed errored", zap.String("log_id", payload.LogID.String()), zap.Error(logErr))
			}
		}
		return fmt.Errorf("send invite: %w", err)
	}

	if hasLog {
		if err := p.logs.MarkSent(ctx, payload.LogID); err != nil {
			p.logger.Error("mark invite sent errored", zap.String("log_id", payload.LogID.String()), zap.Error(err))
		}
	}
	p.logger.Info("invite email sent", zap.String("email", payload.Email), zap.String("scope_id", payload.ScopeID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *InviteProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("invite worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}

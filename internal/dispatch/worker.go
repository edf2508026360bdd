// Package dispatch drains the notification queue: it claims batches of
// pending alerts, resolves device tokens, and pushes messages through the
// configured gateways.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/pawradar/pawradar/internal/model"
	"github.com/pawradar/pawradar/internal/push"
)

// Worker tunables.
const (
	DefaultClaimTimeout = 5 * time.Minute
	DefaultMaxAttempts  = 8
	defaultParallelism  = 8
)

// Queue is the slice of the queue store the worker mutates.
type Queue interface {
	ClaimBatch(limit int, minAge, claimTimeout time.Duration) ([]model.AlertQueueEntry, error)
	MarkProcessed(id string) error
	Release(id string) (int, error)
	MarkDead(id string) error
}

// TokenSource resolves and retires device push tokens.
type TokenSource interface {
	ListByUser(userID string) ([]model.PushToken, error)
	DeleteByToken(token string) error
}

// MobileGateway sends one batched call per entry for ios/android tokens.
type MobileGateway interface {
	Configured() bool
	SendBatch(ctx context.Context, messages []push.Message) ([]push.Outcome, error)
}

// WebGateway sends to one packed web subscription at a time.
type WebGateway interface {
	Configured() bool
	Send(ctx context.Context, token string, payload push.Payload) error
}

// Summary reports one dispatch invocation.
type Summary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Worker processes claimed queue entries independently of each other: one
// entry failing never aborts the rest of the batch.
type Worker struct {
	queue        Queue
	tokens       TokenSource
	mobile       MobileGateway
	web          WebGateway
	logger       *slog.Logger
	claimTimeout time.Duration
	maxAttempts  int
	parallelism  int
}

// NewWorker creates a dispatch worker. Either gateway may be nil when that
// platform is not configured.
func NewWorker(queue Queue, tokens TokenSource, mobile MobileGateway, web WebGateway, logger *slog.Logger) *Worker {
	return &Worker{
		queue:        queue,
		tokens:       tokens,
		mobile:       mobile,
		web:          web,
		logger:       logger,
		claimTimeout: DefaultClaimTimeout,
		maxAttempts:  DefaultMaxAttempts,
		parallelism:  defaultParallelism,
	}
}

// RunBatch claims up to limit entries at least minAge old and dispatches
// them. The claim is a single atomic statement, so concurrent invocations
// (an immediate trigger racing a sweep) never double-send an entry. Queue
// infrastructure failures abort the invocation; per-entry failures are
// counted and logged.
func (w *Worker) RunBatch(ctx context.Context, limit int, minAge time.Duration) (Summary, error) {
	entries, err := w.queue.ClaimBatch(limit, minAge, w.claimTimeout)
	if err != nil {
		return Summary{}, fmt.Errorf("claim batch: %w", err)
	}

	var (
		mu      sync.Mutex
		summary = Summary{Attempted: len(entries)}
		errs    error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for _, entry := range entries {
		g.Go(func() error {
			ok, err := w.process(ctx, entry)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
			if err != nil {
				errs = multierr.Append(errs, err)
			}
			return nil
		})
	}
	g.Wait()

	if errs != nil {
		w.logger.Warn("dispatch batch had failures", "attempted", summary.Attempted,
			"failed", summary.Failed, "error", errs)
	}
	return summary, nil
}

// process handles one claimed entry. Returns true when the entry reached a
// terminal success state.
func (w *Worker) process(ctx context.Context, entry model.AlertQueueEntry) (bool, error) {
	tokens, err := w.tokens.ListByUser(entry.RecipientID)
	if err != nil {
		w.fail(entry)
		return false, fmt.Errorf("entry %s: resolve tokens: %w", entry.ID, err)
	}

	// No device is a terminal success, not a failure: there is nothing to
	// deliver and never will be for this entry.
	if len(tokens) == 0 {
		return true, w.queue.MarkProcessed(entry.ID)
	}

	title, body := ComposeMessage(entry)

	delivered, transient := 0, 0

	var mobileTokens []model.PushToken
	for _, t := range tokens {
		if t.Platform == model.PlatformWeb {
			d, tr := w.sendWeb(ctx, t, title, body, entry)
			delivered += d
			transient += tr
		} else {
			mobileTokens = append(mobileTokens, t)
		}
	}
	if len(mobileTokens) > 0 {
		d, tr := w.sendMobile(ctx, mobileTokens, title, body, entry)
		delivered += d
		transient += tr
	}

	switch {
	case delivered > 0:
		return true, w.queue.MarkProcessed(entry.ID)
	case transient == 0:
		// Every token was permanently dead and has been dropped; like the
		// no-device case there is nothing left to deliver.
		return true, w.queue.MarkProcessed(entry.ID)
	default:
		w.fail(entry)
		return false, fmt.Errorf("entry %s: %d token(s) failed transiently", entry.ID, transient)
	}
}

// sendMobile pushes to all mobile tokens in one batched gateway call,
// retrying batch-level transport failures with fibonacci backoff inside the
// one dispatch attempt. Returns delivered and transient counts.
func (w *Worker) sendMobile(ctx context.Context, tokens []model.PushToken, title, body string, entry model.AlertQueueEntry) (delivered, transient int) {
	if w.mobile == nil || !w.mobile.Configured() {
		return 0, len(tokens)
	}

	messages := make([]push.Message, len(tokens))
	data := messageData(entry)
	for i, t := range tokens {
		messages[i] = push.Message{Token: t.Token, Title: title, Body: body, Data: data}
	}

	var outcomes []push.Outcome
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var sendErr error
		outcomes, sendErr = w.mobile.SendBatch(ctx, messages)
		if sendErr != nil {
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err != nil {
		// Batch-level failure counts as transient for every message in it.
		w.logger.Warn("mobile push batch failed", "entry_id", entry.ID, "tokens", len(tokens), "error", err)
		return 0, len(tokens)
	}

	for _, out := range outcomes {
		switch {
		case out.OK:
			delivered++
		case out.Permanent:
			w.dropToken(out.Token, entry.RecipientID)
		default:
			w.logger.Warn("mobile push rejected", "entry_id", entry.ID, "error", out.Err)
			transient++
		}
	}
	return delivered, transient
}

// sendWeb pushes to one web token. Returns (delivered, transient) as 0/1
// counts.
func (w *Worker) sendWeb(ctx context.Context, token model.PushToken, title, body string, entry model.AlertQueueEntry) (delivered, transient int) {
	if w.web == nil || !w.web.Configured() {
		return 0, 1
	}

	err := w.web.Send(ctx, token.Token, push.Payload{Title: title, Body: body, Data: messageData(entry)})
	if err == nil {
		return 1, 0
	}
	if errors.Is(err, push.ErrTokenGone) {
		w.dropToken(token.Token, entry.RecipientID)
		return 0, 0
	}
	w.logger.Warn("web push failed", "entry_id", entry.ID, "error", err)
	return 0, 1
}

// fail releases the entry's claim so the next sweep retries it, or marks it
// dead once attempts are exhausted.
func (w *Worker) fail(entry model.AlertQueueEntry) {
	attempts, err := w.queue.Release(entry.ID)
	if err != nil {
		w.logger.Error("release claim", "entry_id", entry.ID, "error", err)
		return
	}
	if attempts >= w.maxAttempts {
		w.logger.Warn("dead-lettering entry after max attempts", "entry_id", entry.ID, "attempts", attempts)
		if err := w.queue.MarkDead(entry.ID); err != nil {
			w.logger.Error("mark dead", "entry_id", entry.ID, "error", err)
		}
	}
}

func (w *Worker) dropToken(token, userID string) {
	if err := w.tokens.DeleteByToken(token); err != nil {
		w.logger.Error("drop dead token", "user_id", userID, "error", err)
	}
}

func messageData(entry model.AlertQueueEntry) map[string]string {
	return map[string]string{
		"report_id":   entry.ReportID,
		"report_type": entry.Payload.ReportType,
	}
}

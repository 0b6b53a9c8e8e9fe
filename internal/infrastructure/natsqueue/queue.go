package natsqueue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/config"
	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
	queuedomain "github.com/Abhishekkr6/teampulse-sub000/internal/domain/queue"
	"github.com/Abhishekkr6/teampulse-sub000/internal/errs"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

const (
	subjectPrefix  = "jobs."
	jobIDHeader    = "TeamPulse-Job-Id"
	attemptsHeader = "TeamPulse-Max-Attempts"
)

// Queue is the durable work queue on JetStream. Jobs survive process
// crashes; an unacked message past AckWait returns to the lane and is
// redelivered to another worker (at-least-once).
type Queue struct {
	js      jetstream.JetStream
	stream  string
	ackWait time.Duration
	policy  queuedomain.Policy
}

var _ ports.JobQueue = (*Queue)(nil)

func New(ctx context.Context, nc *nats.Conn, cfg config.QueueConfig) (*Queue, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, errs.Wrap(err, "create jetstream context")
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{subjectPrefix + ">"},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	}); err != nil {
		return nil, errs.Wrapf(err, "ensure stream %q", cfg.Stream)
	}

	return &Queue{
		js:      js,
		stream:  cfg.Stream,
		ackWait: cfg.AckWait,
		policy: queuedomain.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BackoffBase: cfg.BackoffBase,
		},
	}, nil
}

// Enqueue publishes one job to a lane and returns immediately with the
// job id. Completion is never awaited by the producer.
func (q *Queue) Enqueue(ctx context.Context, lane string, payload any) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if lane != ports.LaneCommitProcessing && lane != ports.LanePRAnalysis {
		return "", errs.Wrapf(errors.New("unknown lane"), "enqueue to %q", lane)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", errs.Wrap(err, "marshal job payload")
	}

	jobID := uuid.NewString()
	msg := &nats.Msg{
		Subject: subjectPrefix + lane,
		Data:    data,
		Header: nats.Header{
			jobIDHeader: []string{jobID},
		},
	}

	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return "", errs.Wrapf(err, "publish job to lane %q", lane)
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "queue.nats")),
		"job enqueued",
		slog.String("lane", lane),
		slog.String("job_id", jobID),
	)
	return jobID, nil
}

// Handler executes one job. A returned error triggers the lane's
// backoff-retry policy.
type Handler func(ctx context.Context, data []byte) error

// Consume attaches a durable consumer to a lane. Each message is handled
// by exactly one worker at a time; the retry state machine decides
// between ack, delayed redelivery and permanent failure. The returned
// stop function drains the subscription.
func (q *Queue) Consume(ctx context.Context, lane string, handler Handler) (func(), error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "queue.nats"),
		slog.String("lane", lane),
	)

	cons, err := q.js.CreateOrUpdateConsumer(ctx, q.stream, jetstream.ConsumerConfig{
		Durable:       "worker-" + lane,
		FilterSubject: subjectPrefix + lane,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       q.ackWait,
		MaxDeliver:    q.policy.MaxAttempts,
	})
	if err != nil {
		return nil, errs.Wrapf(err, "ensure consumer for lane %q", lane)
	}

	consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
		q.dispatch(logCtx, lane, msg, handler)
	})
	if err != nil {
		return nil, errs.Wrapf(err, "consume lane %q", lane)
	}

	logging.Info(logCtx, "lane consumer started")
	return consumeCtx.Stop, nil
}

func (q *Queue) dispatch(ctx context.Context, lane string, msg jetstream.Msg, handler Handler) {
	attempt := 1
	if meta, err := msg.Metadata(); err == nil {
		attempt = int(meta.NumDelivered)
	}
	jobID := msg.Headers().Get(jobIDHeader)

	jobCtx := logging.WithAttrs(ctx,
		slog.String("job_id", jobID),
		slog.Int("attempt", attempt),
	)

	// AckWait doubles as the job execution timeout: a handler stuck past
	// it has lost its claim to the message anyway.
	execCtx, cancel := context.WithTimeout(jobCtx, q.ackWait)
	defer cancel()

	handlerErr := handler(execCtx, msg.Data())
	if handlerErr == nil {
		if err := msg.Ack(); err != nil {
			logging.Warn(jobCtx, "ack failed, job will be redelivered", slog.Any("err", errs.Loggable(err)))
		}
		return
	}

	outcome := q.policy.OnFailure(attempt)
	switch outcome.State {
	case queuedomain.StateRetrying:
		logging.Warn(jobCtx, "job failed, scheduling retry",
			slog.Duration("retry_in", outcome.RetryIn),
			slog.Any("err", errs.Loggable(handlerErr)),
		)
		if err := msg.NakWithDelay(outcome.RetryIn); err != nil {
			logging.Warn(jobCtx, "nak failed", slog.Any("err", errs.Loggable(err)))
		}
	case queuedomain.StateFailed:
		// Dead state. No alert fires here; the log line is the only
		// operator signal for exhausted jobs.
		logging.Error(jobCtx, "job failed permanently, attempts exhausted",
			slog.String("lane", lane),
			slog.Int("max_attempts", q.policy.MaxAttempts),
			slog.Any("err", errs.Loggable(handlerErr)),
		)
		if err := msg.Term(); err != nil {
			logging.Warn(jobCtx, "term failed", slog.Any("err", errs.Loggable(err)))
		}
	}
}

package ports

import "context"

// The two job lanes. Each lane is delivered at-least-once to exactly one
// worker at a time; handlers must be idempotent.
const (
	LaneCommitProcessing = "commit-processing"
	LanePRAnalysis       = "pr-analysis"
)

type CommitBatchJob struct {
	RepoID    string   `json:"repoId"`
	CommitIDs []string `json:"commitIds"`
}

type PRAnalysisJob struct {
	PRID    string `json:"prId"`
	RepoID  string `json:"repoId"`
	Trigger string `json:"trigger"`
}

// JobQueue enqueues work fire-and-forget: the producer never waits for
// completion. Retry policy (attempts, backoff) is owned by the consumer
// side of the lane.
type JobQueue interface {
	Enqueue(ctx context.Context, lane string, payload any) (jobID string, err error)
}

// EventPublisher publishes scoring/alert outcomes on the ephemeral events
// channel. Delivery is at-most-once; nothing is stored for late
// subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// EventSubscriber attaches a handler to the events channel. The returned
// stop function detaches it.
type EventSubscriber interface {
	Subscribe(ctx context.Context, handler func(data []byte)) (stop func(), err error)
}

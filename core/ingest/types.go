package ingest

import (
	"context"
	"iter"
	"time"
)

// IndicatorRecord is a single threat-intelligence entry as fetched from a feed.
// Records are immutable once fetched within a run.
type IndicatorRecord struct {
	// ID is the stable identity of the indicator (e.g. an IP address or a domain).
	ID string `json:"id"`

	// Attributes holds the feed-provided metadata. It is the input of the content hash.
	Attributes map[string]string `json:"attributes"`

	// FetchedAt is when the record was read from the feed. It is not hashed.
	FetchedAt time.Time `json:"fetched_at"`
}

// StateEntry is the persisted last-seen metadata for one indicator.
type StateEntry struct {
	// ID is the indicator identity.
	ID string `json:"id"`

	// ContentHash is the hash of the last published or confirmed-unchanged observation.
	ContentHash string `json:"content_hash"`

	// FirstSeen is when the indicator was first observed. It is kept across changes.
	// Zero for entries written before it was tracked.
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is when the indicator was last observed in a committed run.
	LastSeen time.Time `json:"last_seen"`

	// LastForwarded is when the indicator was last published downstream.
	LastForwarded *time.Time `json:"last_forwarded,omitempty"`
}

// Classification is the outcome of comparing a fetched record with its stored state.
type Classification string

const (
	// ClassNew means no state exists for the record.
	ClassNew Classification = "new"
	// ClassChanged means state exists with a different content hash.
	ClassChanged Classification = "changed"
	// ClassUnchanged means state exists with the same content hash.
	ClassUnchanged Classification = "unchanged"
)

// Forwardable reports whether records of this class belong to the forward set.
func (c Classification) Forwardable() bool {
	return c == ClassNew || c == ClassChanged
}

// State is a step of the run state machine.
type State string

const (
	StatePending    State = "PENDING"
	StateFetching   State = "FETCHING"
	StateDiffing    State = "DIFFING"
	StatePublishing State = "PUBLISHING"
	StateCommitting State = "COMMITTING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Stage names the pipeline step a per-record failure happened in.
type Stage string

const (
	StageHash    Stage = "hash"
	StagePublish Stage = "publish"
	StageCommit  Stage = "commit"
)

// Failure records a single record that could not be processed.
type Failure struct {
	Record IndicatorRecord `json:"record"`
	Stage  Stage           `json:"stage"`
	Err    error           `json:"-"`

	// Error is the rendered Err, kept for JSON reports.
	Error string `json:"error"`

	position int
}

// RunResult summarises one run. It is created per run and never persisted.
type RunResult struct {
	Feed  string `json:"feed"`
	State State  `json:"state"`

	TotalFetched int `json:"total_fetched"`
	New          int `json:"new"`
	Changed      int `json:"changed"`
	Unchanged    int `json:"unchanged"`
	Forwarded    int `json:"forwarded"`

	// Duplicates counts earlier occurrences of an id dropped in favour of the last one.
	Duplicates int `json:"duplicates"`
	// Skipped counts feed lines that failed validation.
	Skipped int `json:"skipped"`
	// Committed counts state entries written.
	Committed int `json:"committed"`
	// Conflicts counts conditional writes rejected because the stored hash already matched.
	Conflicts int `json:"conflicts"`
	// Deferred counts forwardable records never attempted because the run was cancelled.
	// They are picked up again by the next run.
	Deferred int `json:"deferred"`

	Failures []Failure `json:"failures"`

	// States lists the state machine steps the run went through.
	States []State `json:"states"`

	SnapshotKey string    `json:"snapshot_key,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`

	// Err is the run-level error that moved the run to FAILED.
	Err error `json:"-"`
	// Error is the rendered Err, kept for JSON reports.
	Error string `json:"error,omitempty"`
}

// Succeeded reports whether the run reached DONE.
func (r *RunResult) Succeeded() bool {
	return r.State == StateDone
}

// Batch is a fetched feed ready to be diffed.
type Batch struct {
	// Records is a lazy, single-use sequence of records. A non-nil error ends the fetch.
	Records iter.Seq2[IndicatorRecord, error]

	// Skipped reports how many lines were rejected. Valid after Records is drained.
	Skipped func() int

	// SnapshotKey is the object key of the archived raw feed, if any.
	SnapshotKey string
}

// Source produces one fetched batch per call.
type Source interface {
	// Name identifies the feed for logs, metrics and results.
	Name() string

	// Fetch reads the remote feed. Errors are marked ErrFetch.
	Fetch(ctx context.Context) (*Batch, error)
}

// StateStore persists StateEntry values keyed by indicator id.
type StateStore interface {
	// Get returns the entry for id, or an error marked ErrNotFound.
	Get(ctx context.Context, id string) (StateEntry, error)

	// PutIfAbsentOrChanged writes entry unless the stored hash already equals entry.ContentHash.
	// applied is false when the write was skipped for that reason.
	PutIfAbsentOrChanged(ctx context.Context, entry StateEntry) (applied bool, err error)

	// BatchGet returns the entries that exist for ids. Missing ids are absent from the map.
	BatchGet(ctx context.Context, ids []string) (map[string]StateEntry, error)
}

// Publisher sends forwarded records downstream. Delivery is at-least-once.
type Publisher interface {
	// Publish sends one message and returns the transport message id.
	Publish(ctx context.Context, msg Message) (messageID string, err error)
}

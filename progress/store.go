// Package progress tracks background image-generation results per podcast
// session.
//
// Results are keyed by session ID and utterance index: keying by speaker tag
// would let a later utterance from the same speaker overwrite an earlier
// one's result. Entries expire after a TTL so the table stays bounded.
package progress

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long a session's results are retained after the last write.
const DefaultTTL = 30 * time.Minute

// Result is the terminal outcome of one utterance's background image job.
type Result struct {
	// Index is the utterance index within the session's transcript.
	Index int `json:"index"`

	// Speaker is the utterance's speaker tag, carried for display.
	Speaker string `json:"speaker"`

	// ImageURL is the generated asset URL; empty when the job failed.
	ImageURL string `json:"imageUrl,omitempty"`

	// Err is the failure reason; empty when the job succeeded.
	Err string `json:"error,omitempty"`

	// RecordedAt is when the result landed in the store.
	RecordedAt time.Time `json:"recordedAt"`
}

// Store persists background image-generation results. Implementations must be
// safe for concurrent use: the background renderer writes while the progress
// endpoint reads.
type Store interface {
	// Put records one utterance's terminal result for a session.
	Put(ctx context.Context, sessionID string, result Result) error

	// Snapshot returns all recorded results for a session, ordered by
	// utterance index. A session with no results yields an empty slice,
	// not an error.
	Snapshot(ctx context.Context, sessionID string) ([]Result, error)

	// Clear drops a session's results.
	Clear(ctx context.Context, sessionID string) error
}

// ErrInvalidSession is returned when an empty session ID is provided.
var ErrInvalidSession = errors.New("invalid session ID")

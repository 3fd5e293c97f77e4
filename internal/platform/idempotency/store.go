package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"
)

// DefaultTTL bounds how long a completed response stays replayable.
const DefaultTTL = 24 * time.Hour

// ErrKeyConflict reports an idempotency key reused for a different request.
var ErrKeyConflict = errors.New("idempotency: key already used for a different request")

// Outcome tells the middleware how to treat a guarded request.
type Outcome int

const (
	// OutcomeProceed means the key is fresh and the handler should run.
	OutcomeProceed Outcome = iota
	// OutcomeReplay means a stored response exists and must be replayed.
	OutcomeReplay
	// OutcomeInFlight means an earlier request holding the key has not finished.
	OutcomeInFlight
)

// Key identifies one guarded request: the client-chosen value, the session it
// belongs to, and a fingerprint of the request it first travelled with.
type Key struct {
	Value       string
	Session     string
	Fingerprint string
}

func (k Key) id() string {
	return hashParts(k.Session, k.Value)
}

// StoredResponse is the replayable part of a completed request.
type StoredResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r StoredResponse) clone() StoredResponse {
	out := StoredResponse{Status: r.Status}
	if len(r.Header) > 0 {
		out.Header = make(http.Header, len(r.Header))
		for name, values := range r.Header {
			out.Header[name] = append([]string(nil), values...)
		}
	}
	if len(r.Body) > 0 {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// Store tracks guarded requests across retries.
type Store interface {
	// Begin claims the key. It returns OutcomeReplay with the stored response
	// when the key already completed, OutcomeInFlight when another request
	// holds the claim, and ErrKeyConflict when the key was first used with a
	// different fingerprint.
	Begin(ctx context.Context, key Key, now time.Time, ttl time.Duration) (Outcome, *StoredResponse, error)
	// Complete stores the handler's response for later replay.
	Complete(ctx context.Context, key Key, resp StoredResponse, now time.Time, ttl time.Duration) error
	// Abort drops the claim so the client may retry.
	Abort(ctx context.Context, key Key) error
	// CleanupExpired removes up to limit expired records, returning the count.
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

func hashParts(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// replayableHeader filters hop-by-hop and volatile headers out of a response
// before it is stored.
func replayableHeader(src http.Header) http.Header {
	if len(src) == 0 {
		return nil
	}
	dst := make(http.Header, len(src))
	for name, values := range src {
		canonical := http.CanonicalHeaderKey(name)
		switch canonical {
		case "Content-Length", "Date", "Connection", "Keep-Alive",
			"Proxy-Authenticate", "Proxy-Authorization", "Te", "Trailers",
			"Transfer-Encoding", "Upgrade":
			continue
		}
		dst[canonical] = append([]string(nil), values...)
	}
	if len(dst) == 0 {
		return nil
	}
	return dst
}

// Package failover keeps a single DNS record pointed at the best
// currently-reachable member of a statically configured server pool.
package failover

import "context"

// ServerSpec describes one configured server. The set of specs is fixed
// for the lifetime of the process.
type ServerSpec struct {
	Name string
	Addr string
	Port int

	// Priority ranks servers when choosing a failover target. Lower is
	// preferred.
	Priority int
}

// Record is the external shape of a DNS record as held by the store. The
// engine never mutates records in place; it only asks the store to.
type Record struct {
	ID      string
	Name    string
	Type    string
	Content string
	TTL     int
}

// DNSStore reads and writes the authoritative DNS record.
type DNSStore interface {
	// GetRecord returns the current record for (name, recordType), or
	// ErrRecordNotFound.
	GetRecord(ctx context.Context, name, recordType string) (Record, error)

	// UpdateRecord overwrites the record identified by r.ID.
	UpdateRecord(ctx context.Context, r Record) error
}

// Prober reports whether a server is reachable. Implementations must be
// bounded by a timeout and must not error; any failure is an unhealthy
// verdict.
type Prober interface {
	Probe(ctx context.Context, addr string, port int) bool
}

type _error string

func (e _error) Error() string { return string(e) }

const (
	// ErrRecordNotFound is returned by stores when no record exists for
	// the requested name and type.
	ErrRecordNotFound _error = "record not found"

	// ErrNoCandidate is returned by Cycle when the active server has
	// tripped the failure threshold but no alternative probes healthy.
	ErrNoCandidate _error = "no healthy alternative server"
)

package failover

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"golang.org/x/exp/slog"
)

// switchTo repoints the DNS record at candidate. The record is re-fetched
// first; a lookup or update failure aborts the switch with all local
// state unchanged. Only a confirmed write commits the new active server
// and resets the candidate's failure count.
//
// The read-then-write is not transactional against other writers. We
// assume a single writer per record.
//
// Callers must hold e.mu.
func (e *Engine) switchTo(ctx context.Context, candidate ServerSpec) error {
	log := e.log.With(slog.String("switchID", xid.New().String()))

	rec, err := e.store.GetRecord(ctx, e.domain, e.recordType)
	if err != nil {
		switchFailuresTotal.Inc()
		return fmt.Errorf("lookup record: %w", err)
	}

	rec.Content = candidate.Addr
	rec.Type = e.recordType
	rec.TTL = e.ttl
	if err := e.store.UpdateRecord(ctx, rec); err != nil {
		switchFailuresTotal.Inc()
		return fmt.Errorf("update record: %w", err)
	}

	old := e.active
	e.active = candidate.Name
	e.tracker.recordSuccess(candidate.Name)
	failoversTotal.WithLabelValues(old, candidate.Name).Inc()
	log.Info("switched dns record",
		slog.String("domain", e.domain),
		slog.String("from", old),
		slog.String("to", candidate.Name),
		slog.String("addr", candidate.Addr))
	return nil
}

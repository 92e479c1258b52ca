package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// DefaultRetentionDays is the default retention horizon.
const DefaultRetentionDays = 90

// PruneOldEvents removes every event older than the retention horizon
// from the primary store and from all indexes that reference it, and
// returns the number of events whose full removal sequence succeeded.
//
// The sweep scans the global index with no limit; unlike interactive
// queries, this path is allowed to be unbounded. Each event's removal is
// attempted independently: a failure leaves that event in place to be
// retried on the next scheduled run and does not abort the batch.
func (s *Service) PruneOldEvents(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	max := strconv.FormatInt(cutoff.UnixMilli(), 10)

	start := time.Now()
	ids, err := s.store.ZRangeByScore(ctx, s.globalIndexKey(), "0", max, 0, 0)
	if err != nil {
		s.countStoreError("zrangebyscore")
		if s.metrics != nil {
			s.metrics.PruneRunsTotal.WithLabelValues("error").Inc()
		}
		return 0, fmt.Errorf("failed to scan global index for pruning: %w", err)
	}

	removed := 0
	for _, id := range ids {
		event, err := s.GetEventByID(ctx, id, "")
		if err != nil || event == nil {
			continue
		}

		if err := s.removeEvent(ctx, event); err != nil {
			s.log.WithError(err).Warnf("failed to prune audit event %s, leaving for next run", id)
			continue
		}
		removed++
	}

	if s.metrics != nil {
		s.metrics.PruneRunsTotal.WithLabelValues("ok").Inc()
		s.metrics.EventsPrunedTotal.Add(float64(removed))
		s.metrics.PruneDuration.Observe(time.Since(start).Seconds())
	}

	s.log.WithFields(map[string]interface{}{
		"removed":        removed,
		"retention_days": retentionDays,
	}).Info("audit retention prune completed")

	return removed, nil
}

// removeEvent unlinks the event from every index that references it and
// then deletes the primary record. Index removal happens first so a
// partial failure cannot orphan an index entry pointing at nothing.
func (s *Service) removeEvent(ctx context.Context, event *Event) error {
	for _, key := range s.indexKeys(event) {
		if err := s.store.ZRem(ctx, key, event.ID); err != nil {
			s.countStoreError("zrem")
			return fmt.Errorf("failed to remove event from index %s: %w", key, err)
		}
	}

	if err := s.store.Del(ctx, s.eventKey(event.ID)); err != nil {
		s.countStoreError("del")
		return fmt.Errorf("failed to delete event record: %w", err)
	}

	return nil
}

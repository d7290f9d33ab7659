package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/practice"
)

// DefaultGuestLimit is the number of sessions a guest may complete.
const DefaultGuestLimit = 10

const (
	devicePrefix  = "device:"
	pendingPrefix = "pending:"
)

func recordsKey(deviceID string) string  { return devicePrefix + deviceID + ":records" }
func usageKey(deviceID string) string    { return devicePrefix + deviceID + ":usage" }
func acceptedKey(deviceID string) string { return devicePrefix + deviceID + ":guest_accepted" }
func pendingKey(userID string) string    { return pendingPrefix + userID }

// Store is the device-local store.
type Store struct {
	kv KV
}

var _ history.LocalStore = (*Store)(nil)

// New creates a store over kv.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Records returns a device's guest history.
func (s *Store) Records(ctx context.Context, deviceID string) ([]history.Record, error) {
	if deviceID == "" {
		return nil, history.ErrUnauthenticated
	}
	return s.load(ctx, recordsKey(deviceID))
}

// PutRecords replaces a device's guest history.
func (s *Store) PutRecords(ctx context.Context, deviceID string, records []history.Record) error {
	if deviceID == "" {
		return history.ErrUnauthenticated
	}
	return s.save(ctx, recordsKey(deviceID), records)
}

// Pending returns the records of userID waiting for a remote save.
func (s *Store) Pending(ctx context.Context, userID string) ([]history.Record, error) {
	return s.load(ctx, pendingKey(userID))
}

// PutPending replaces the pending queue of userID.
func (s *Store) PutPending(ctx context.Context, userID string, records []history.Record) error {
	return s.save(ctx, pendingKey(userID), records)
}

// PendingUsers lists the users with a non-empty pending queue.
func (s *Store) PendingUsers(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, pendingPrefix)
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(keys))
	for _, k := range keys {
		users = append(users, strings.TrimPrefix(k, pendingPrefix))
	}
	return users, nil
}

func (s *Store) load(ctx context.Context, key string) ([]history.Record, error) {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var records []history.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return records, nil
}

// save deletes the key for an empty list so listings stay small.
func (s *Store) save(ctx context.Context, key string, records []history.Record) error {
	if len(records) == 0 {
		return s.kv.Delete(ctx, key)
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, data)
}

// Usage returns how many sessions the device's guest has completed.
func (s *Store) Usage(ctx context.Context, deviceID string) (int, error) {
	data, ok, err := s.kv.Get(ctx, usageKey(deviceID))
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("decoding usage of %s: %w", deviceID, err)
	}
	return n, nil
}

// IncrementUsage counts one more completed guest session.
func (s *Store) IncrementUsage(ctx context.Context, deviceID string) (int, error) {
	n, err := s.kv.Incr(ctx, usageKey(deviceID))
	return int(n), err
}

// AcceptGuestMode records that the device's user agreed to practice as a
// guest.
func (s *Store) AcceptGuestMode(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return history.ErrUnauthenticated
	}
	return s.kv.Set(ctx, acceptedKey(deviceID), []byte("1"))
}

// GuestAccepted reports whether AcceptGuestMode was called for the device.
func (s *Store) GuestAccepted(ctx context.Context, deviceID string) (bool, error) {
	_, ok, err := s.kv.Get(ctx, acceptedKey(deviceID))
	return ok, err
}

// Prune drops guest records created before now minus retention and returns
// how many were removed. Usage counters are kept so pruning does not refill
// the guest quota.
func (s *Store) Prune(ctx context.Context, retention time.Duration, now time.Time) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	keys, err := s.kv.Keys(ctx, devicePrefix)
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-retention)
	removed := 0
	for _, k := range keys {
		if !strings.HasSuffix(k, ":records") {
			continue
		}
		records, err := s.load(ctx, k)
		if err != nil {
			return removed, err
		}
		kept := records[:0]
		for _, r := range records {
			if r.CreatedAt.Before(cutoff) {
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == len(records) {
			continue
		}
		removed += len(records) - len(kept)
		if err := s.save(ctx, k, kept); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Quota is a device's guest session allowance. It implements
// practice.GuestQuota.
type Quota struct {
	store    *Store
	deviceID string
	limit    int
}

var _ practice.GuestQuota = (*Quota)(nil)

// Quota returns the guest allowance of deviceID. A limit of zero or less
// uses DefaultGuestLimit.
func (s *Store) Quota(deviceID string, limit int) *Quota {
	if limit <= 0 {
		limit = DefaultGuestLimit
	}
	return &Quota{store: s, deviceID: deviceID, limit: limit}
}

// Remaining returns how many sessions the guest may still start.
func (q *Quota) Remaining(ctx context.Context) (int, error) {
	used, err := q.store.Usage(ctx, q.deviceID)
	if err != nil {
		return 0, err
	}
	return max(q.limit-used, 0), nil
}

// Increment counts one completed session.
func (q *Quota) Increment(ctx context.Context) error {
	_, err := q.store.IncrementUsage(ctx, q.deviceID)
	return err
}

// Limit returns the total allowance.
func (q *Quota) Limit() int { return q.limit }

package history

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// RemoteStore persists records for signed-in users. Every call is scoped to a
// user id and must reject an empty one.
type RemoteStore interface {
	SaveSession(ctx context.Context, userID string, r Record) error
	ListSessions(ctx context.Context, userID string) ([]Record, error)
	UpdateMoodAfter(ctx context.Context, userID, id string, mood Mood) error
	DeleteSession(ctx context.Context, userID, id string) error
	ClearSessions(ctx context.Context, userID string) error
}

// LocalStore persists guest records per device and holds the pending queue of
// records whose remote save failed.
type LocalStore interface {
	Records(ctx context.Context, deviceID string) ([]Record, error)
	PutRecords(ctx context.Context, deviceID string, records []Record) error
	Pending(ctx context.Context, userID string) ([]Record, error)
	PutPending(ctx context.Context, userID string, records []Record) error
	PendingUsers(ctx context.Context) ([]string, error)
}

// Service routes history operations to the remote or local store by identity.
type Service struct {
	remote RemoteStore
	local  LocalStore
}

// NewService creates a history service. remote may be nil, in which case
// signed-in saves go straight to the pending queue.
func NewService(remote RemoteStore, local LocalStore) *Service {
	return &Service{remote: remote, local: local}
}

// Save persists a finalized record. For a signed-in identity a failed remote
// save queues the record locally and returns an error wrapping
// ErrRemoteSaveFailed; the record is not lost.
func (s *Service) Save(ctx context.Context, id Identity, r Record) error {
	switch {
	case id.SignedIn():
		if s.remote == nil {
			return s.queuePending(ctx, id.UserID, r, errors.New("no remote store configured"))
		}
		if err := s.remote.SaveSession(ctx, id.UserID, r); err != nil {
			return s.queuePending(ctx, id.UserID, r, err)
		}
		return nil
	case id.Guest():
		records, err := s.local.Records(ctx, id.DeviceID)
		if err != nil {
			return fmt.Errorf("loading local history: %w", err)
		}
		records = append(records, r)
		if err := s.local.PutRecords(ctx, id.DeviceID, records); err != nil {
			return fmt.Errorf("saving local history: %w", err)
		}
		return nil
	}
	return ErrUnauthenticated
}

func (s *Service) queuePending(ctx context.Context, userID string, r Record, cause error) error {
	log.Printf("history: remote save of %s failed, queueing locally: %v", r.ID, cause)
	pending, err := s.local.Pending(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v (local fallback: %v)", ErrRemoteSaveFailed, cause, err)
	}
	pending = append(pending, r)
	if err := s.local.PutPending(ctx, userID, pending); err != nil {
		return fmt.Errorf("%w: %v (local fallback: %v)", ErrRemoteSaveFailed, cause, err)
	}
	return fmt.Errorf("%w: %v", ErrRemoteSaveFailed, cause)
}

// UpdateMoodAfter attaches the post-session mood to an already saved record.
func (s *Service) UpdateMoodAfter(ctx context.Context, id Identity, recordID string, mood Mood) error {
	switch {
	case id.SignedIn():
		// A record still waiting in the pending queue is updated in place.
		found, err := s.updatePending(ctx, id.UserID, recordID, func(r *Record) { r.MoodAfter = mood })
		if err != nil || found {
			return err
		}
		if s.remote == nil {
			return ErrSessionNotFound
		}
		return s.remote.UpdateMoodAfter(ctx, id.UserID, recordID, mood)
	case id.Guest():
		records, err := s.local.Records(ctx, id.DeviceID)
		if err != nil {
			return err
		}
		for i := range records {
			if records[i].ID == recordID {
				records[i].MoodAfter = mood
				return s.local.PutRecords(ctx, id.DeviceID, records)
			}
		}
		return ErrSessionNotFound
	}
	return ErrUnauthenticated
}

func (s *Service) updatePending(ctx context.Context, userID, recordID string, fn func(*Record)) (bool, error) {
	pending, err := s.local.Pending(ctx, userID)
	if err != nil {
		return false, err
	}
	for i := range pending {
		if pending[i].ID == recordID {
			fn(&pending[i])
			return true, s.local.PutPending(ctx, userID, pending)
		}
	}
	return false, nil
}

// List returns the identity's records, newest first. A signed-in user's
// pending records are merged in so unsynced progress stays visible.
func (s *Service) List(ctx context.Context, id Identity) ([]Record, error) {
	var records []Record
	switch {
	case id.SignedIn():
		if s.remote != nil {
			remote, err := s.remote.ListSessions(ctx, id.UserID)
			if err != nil {
				return nil, fmt.Errorf("listing sessions: %w", err)
			}
			records = remote
		}
		pending, err := s.local.Pending(ctx, id.UserID)
		if err != nil {
			return nil, fmt.Errorf("listing pending sessions: %w", err)
		}
		seen := make(map[string]bool, len(records))
		for _, r := range records {
			seen[r.ID] = true
		}
		for _, r := range pending {
			if !seen[r.ID] {
				records = append(records, r)
			}
		}
	case id.Guest():
		local, err := s.local.Records(ctx, id.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("loading local history: %w", err)
		}
		records = local
	default:
		return nil, ErrUnauthenticated
	}
	SortNewestFirst(records)
	return records, nil
}

// Delete removes one record.
func (s *Service) Delete(ctx context.Context, id Identity, recordID string) error {
	switch {
	case id.SignedIn():
		pending, err := s.local.Pending(ctx, id.UserID)
		if err != nil {
			return err
		}
		if kept, ok := without(pending, recordID); ok {
			return s.local.PutPending(ctx, id.UserID, kept)
		}
		if s.remote == nil {
			return ErrSessionNotFound
		}
		return s.remote.DeleteSession(ctx, id.UserID, recordID)
	case id.Guest():
		records, err := s.local.Records(ctx, id.DeviceID)
		if err != nil {
			return err
		}
		kept, ok := without(records, recordID)
		if !ok {
			return ErrSessionNotFound
		}
		return s.local.PutRecords(ctx, id.DeviceID, kept)
	}
	return ErrUnauthenticated
}

// Clear removes every record of the identity, including pending ones.
func (s *Service) Clear(ctx context.Context, id Identity) error {
	switch {
	case id.SignedIn():
		if err := s.local.PutPending(ctx, id.UserID, nil); err != nil {
			return err
		}
		if s.remote == nil {
			return nil
		}
		return s.remote.ClearSessions(ctx, id.UserID)
	case id.Guest():
		return s.local.PutRecords(ctx, id.DeviceID, nil)
	}
	return ErrUnauthenticated
}

// SyncPending retries the remote save of every queued record and returns how
// many were synced. Records that still fail stay queued.
func (s *Service) SyncPending(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}
	if s.remote == nil {
		return 0, errors.New("no remote store configured")
	}
	pending, err := s.local.Pending(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var remaining []Record
	synced := 0
	for _, r := range pending {
		if err := s.remote.SaveSession(ctx, userID, r); err != nil {
			log.Printf("history: sync of %s failed: %v", r.ID, err)
			remaining = append(remaining, r)
			continue
		}
		synced++
	}
	if err := s.local.PutPending(ctx, userID, remaining); err != nil {
		return synced, err
	}
	return synced, nil
}

// SyncAll retries every user's pending queue. It returns the total number of
// records synced.
func (s *Service) SyncAll(ctx context.Context) (int, error) {
	users, err := s.local.PendingUsers(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := s.SyncPending(ctx, u)
		total += n
		if err != nil {
			log.Printf("history: sync for user %s: %v", u, err)
		}
	}
	return total, nil
}

func without(records []Record, id string) ([]Record, bool) {
	for i := range records {
		if records[i].ID == id {
			out := make([]Record, 0, len(records)-1)
			out = append(out, records[:i]...)
			return append(out, records[i+1:]...), true
		}
	}
	return records, false
}

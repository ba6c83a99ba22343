// Package state keeps the record of every object the provisioner created, behind a
// lock so that only one apply or destroy runs against a cluster at a time.
package state

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrLocked      = errors.New("state is locked")
	ErrLockNotHeld = errors.New("state lock is not held by this operation")
	ErrStaleSerial = errors.New("state was modified since it was read")
)

type Record struct {
	Address   string    `json:"address"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	ID        string    `json:"id,omitempty"`
	Owner     string    `json:"owner"`
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Snapshot struct {
	Serial    int64             `json:"serial"`
	Lineage   string            `json:"lineage"`
	Resources map[string]Record `json:"resources"`
}

func NewSnapshot() *Snapshot {
	return &Snapshot{Resources: map[string]Record{}}
}

func (s *Snapshot) Put(record Record) {
	if s.Resources == nil {
		s.Resources = map[string]Record{}
	}
	s.Resources[record.Address] = record
}

func (s *Snapshot) Remove(address string) {
	delete(s.Resources, address)
}

func (s *Snapshot) Addresses() []string {
	addresses := make([]string, 0, len(s.Resources))
	for address := range s.Resources {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}

func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{Serial: s.Serial, Lineage: s.Lineage, Resources: make(map[string]Record, len(s.Resources))}
	for k, v := range s.Resources {
		clone.Resources[k] = v
	}
	return clone
}

type LockInfo struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Who       string    `json:"who"`
	Created   time.Time `json:"created"`
}

func (l LockInfo) String() string {
	return fmt.Sprintf("%s by %s since %s (id %s)", l.Operation, l.Who, l.Created.Format(time.RFC3339), l.ID)
}

func NewLockInfo(operation string) LockInfo {
	who := "unknown"
	if u, err := user.Current(); err == nil {
		who = u.Username
	}
	if host, err := os.Hostname(); err == nil {
		who += "@" + host
	}
	return LockInfo{
		ID:        uuid.New().String(),
		Operation: operation,
		Who:       who,
		Created:   time.Now().UTC(),
	}
}

// LockedError carries the current holder of the lock.
type LockedError struct {
	Holder LockInfo
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: held for %s", ErrLocked, e.Holder)
}

func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}

// Store is a locked, versioned read-modify-write store for a single snapshot.
type Store interface {
	// Lock takes the lock and returns its id, or a *LockedError naming the holder.
	Lock(ctx context.Context, info LockInfo) (string, error)
	Unlock(ctx context.Context, id string) error
	ForceUnlock(ctx context.Context) error
	// LockInfo returns nil when the state is not locked.
	LockInfo(ctx context.Context) (*LockInfo, error)
	// Read returns an empty snapshot with serial 0 when nothing was written yet.
	Read(ctx context.Context) (*Snapshot, error)
	// Write requires the lock and a snapshot serial equal to the stored one. The stored
	// serial and the snapshot serial become serial+1.
	Write(ctx context.Context, lockID string, snapshot *Snapshot) error
	Close() error
}

func prepareWrite(snapshot *Snapshot) {
	if snapshot.Lineage == "" {
		snapshot.Lineage = uuid.New().String()
	}
	if snapshot.Resources == nil {
		snapshot.Resources = map[string]Record{}
	}
}

// Update runs fn under the state lock. Whatever fn left in the snapshot is written
// even when fn fails, so partial progress of an interrupted apply is kept.
func Update(ctx context.Context, store Store, operation string, fn func(ctx context.Context, snapshot *Snapshot) error) (err error) {
	lockID, err := store.Lock(ctx, NewLockInfo(operation))
	if err != nil {
		return err
	}
	defer func() {
		// the lock must be released even if ctx was cancelled
		unlockErr := store.Unlock(context.Background(), lockID)
		if unlockErr != nil {
			log.Error().Err(unlockErr).Msgf("failed releasing state lock %s", lockID)
			if err == nil {
				err = unlockErr
			}
		}
	}()

	snapshot, err := store.Read(ctx)
	if err != nil {
		return errors.Wrap(err, "reading state")
	}

	fnErr := fn(ctx, snapshot)
	if writeErr := store.Write(context.Background(), lockID, snapshot); writeErr != nil {
		if fnErr != nil {
			log.Error().Err(writeErr).Msg("failed persisting partial state")
			return fnErr
		}
		return errors.Wrap(writeErr, "writing state")
	}
	return fnErr
}

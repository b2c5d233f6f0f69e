// Package sharelink issues and validates the expiring tokens that grant
// access to shared files.
package sharelink

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"fileshare/internal/model"
)

var (
	ErrUnknown    = errors.New("unknown share token")
	ErrExpired    = errors.New("share token expired")
	ErrExhausted  = errors.New("download limit reached")
	ErrFileGone   = errors.New("shared file no longer exists")
	ErrInvalidTTL = errors.New("invalid ttl")
)

// DefaultTTL is applied when Issue is called with a zero ttl.
const DefaultTTL = 7 * 24 * time.Hour

// tokenBytes sized so collisions are negligible for the registry's lifetime.
const tokenBytes = 32

// Files is the slice of the file store the registry needs: existence checks
// at issue time. Kept minimal so tests can stub it.
type Files interface {
	GetFile(fileID string) (*model.File, error)
}

type entry struct {
	fileID        string
	mode          model.AccessMode
	createdAt     time.Time
	expiresAt     time.Time
	maxDownloads  int // 0 = unlimited
	usedDownloads int
	fileGone      bool
	swept         bool
}

// Registry owns the token table. A single mutex guards it; Redeem performs
// the validity check and the used-download increment under the same critical
// section, so a token with maxDownloads=k admits exactly k redemptions no
// matter how many race.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]*entry
	files  Files
	now    func() time.Time
}

// New constructs a Registry checking file existence against files.
func New(files Files) *Registry {
	return &Registry{
		tokens: make(map[string]*entry),
		files:  files,
		now:    time.Now,
	}
}

// Issue creates a new token for fileID under the given access mode. A zero
// ttl uses DefaultTTL; maxDownloads 0 means unlimited. Issuing never
// invalidates previously issued tokens for the same file.
func (r *Registry) Issue(fileID string, mode model.AccessMode, ttl time.Duration, maxDownloads int) (*model.ShareToken, error) {
	if ttl < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	// Consult the file store before taking the registry lock: the store
	// calls RevokeAllFor under its own lock, so the two must never be held
	// in the opposite order.
	if _, err := r.files.GetFile(fileID); err != nil {
		return nil, err
	}

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	r.mu.Lock()
	now := r.now().UTC()
	e := &entry{
		fileID:       fileID,
		mode:         mode,
		createdAt:    now,
		expiresAt:    now.Add(ttl),
		maxDownloads: maxDownloads,
	}
	r.tokens[token] = e
	view := tokenView(token, e)
	r.mu.Unlock()

	// A delete landing between the pre-check and the insert has already run
	// RevokeAllFor without seeing this token. Re-checking after the insert
	// closes that window: a delete starting later finds the token in the map.
	if _, err := r.files.GetFile(fileID); err != nil {
		r.mu.Lock()
		e.fileGone = true
		r.mu.Unlock()
		return nil, err
	}
	return view, nil
}

// Grant is the result of a successful validation.
type Grant struct {
	FileID string
	Mode   model.AccessMode
}

// Resolve validates token without consuming its download budget, for access
// modes that merely render the file (direct, preview, thumbnail).
func (r *Registry) Resolve(token string) (Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.checkLocked(token)
	if err != nil {
		return Grant{}, err
	}
	return Grant{FileID: e.fileID, Mode: e.mode}, nil
}

// Redeem validates token and consumes one download. The check and the
// increment are atomic: with maxDownloads=1, two concurrent calls yield
// exactly one success and one ErrExhausted.
func (r *Registry) Redeem(token string) (Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.checkLocked(token)
	if err != nil {
		return Grant{}, err
	}
	e.usedDownloads++
	return Grant{FileID: e.fileID, Mode: e.mode}, nil
}

// checkLocked applies the token validity rules in order of precision:
// unknown, file gone, expired, exhausted.
func (r *Registry) checkLocked(token string) (*entry, error) {
	e, ok := r.tokens[token]
	if !ok {
		return nil, ErrUnknown
	}
	if e.fileGone {
		return nil, ErrFileGone
	}
	if !r.now().Before(e.expiresAt) || e.swept {
		return nil, ErrExpired
	}
	if e.maxDownloads > 0 && e.usedDownloads >= e.maxDownloads {
		return nil, ErrExhausted
	}
	return e, nil
}

// Get returns the current state of a token without validating it, for
// inspection endpoints. ErrUnknown if the token was never issued.
func (r *Registry) Get(token string) (*model.ShareToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tokens[token]
	if !ok {
		return nil, ErrUnknown
	}
	return tokenView(token, e), nil
}

// RevokeAllFor marks every token bound to fileID as FileGone. Entries are
// kept rather than removed so late validations get a precise error. Called
// by the file store on delete, before it publishes FileDeleted.
func (r *Registry) RevokeAllFor(fileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.tokens {
		if e.fileID == fileID {
			e.fileGone = true
		}
	}
}

// Sweep reclaims memory held by expired or exhausted tokens, leaving a
// tombstone so later validations still report ErrExpired rather than
// ErrUnknown. Correctness never depends on it being called. Returns the
// number of entries swept.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for _, e := range r.tokens {
		if e.swept || e.fileGone {
			continue
		}
		if !now.Before(e.expiresAt) || (e.maxDownloads > 0 && e.usedDownloads >= e.maxDownloads) {
			*e = entry{expiresAt: e.expiresAt, swept: true}
			n++
		}
	}
	return n
}

// SweepEvery runs Sweep on the given interval until stop is closed.
func (r *Registry) SweepEvery(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			r.Sweep()
		case <-stop:
			return
		}
	}
}

func tokenView(token string, e *entry) *model.ShareToken {
	return &model.ShareToken{
		Token:         token,
		FileID:        e.fileID,
		Mode:          e.mode,
		CreatedAt:     e.createdAt,
		ExpiresAt:     e.expiresAt,
		MaxDownloads:  e.maxDownloads,
		UsedDownloads: e.usedDownloads,
	}
}

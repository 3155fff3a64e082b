// Package lock gates the API behind an application-level unlock step.
// The ledger and the budget figures never see lock state.
package lock

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrAuthenticationFailed = errors.New("authentication failed")

// Authenticator answers whether the user proved who they are.
type Authenticator interface {
	Authenticate(ctx context.Context, secret string) (bool, error)
}

// Gate holds the process-wide locked flag.
type Gate struct {
	mu     sync.RWMutex
	locked bool
	auth   Authenticator
}

// NewGate returns a gate that starts locked when startLocked is set.
func NewGate(auth Authenticator, startLocked bool) *Gate {
	return &Gate{auth: auth, locked: startLocked}
}

func (g *Gate) Lock() {
	g.mu.Lock()
	g.locked = true
	g.mu.Unlock()
}

func (g *Gate) Locked() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.locked
}

// Unlock asks the authenticator and clears the flag on success.
// A rejected secret returns ErrAuthenticationFailed and leaves the gate locked.
func (g *Gate) Unlock(ctx context.Context, secret string) error {
	ok, err := g.auth.Authenticate(ctx, secret)
	if err != nil {
		return err
	}
	if !ok {
		slog.WarnContext(ctx, "Unlock rejected")
		return ErrAuthenticationFailed
	}

	g.mu.Lock()
	g.locked = false
	g.mu.Unlock()
	slog.InfoContext(ctx, "Unlocked")
	return nil
}

// PINAuthenticator checks a PIN against a bcrypt hash. With no hash
// configured every attempt succeeds, matching a device with no enrolled
// credential.
type PINAuthenticator struct {
	hash   []byte
	warned sync.Once
}

func NewPINAuthenticator(hash string) *PINAuthenticator {
	return &PINAuthenticator{hash: []byte(hash)}
}

func (a *PINAuthenticator) Authenticate(ctx context.Context, pin string) (bool, error) {
	if len(a.hash) == 0 {
		a.warned.Do(func() {
			slog.WarnContext(ctx, "No lock PIN configured, unlocking without authentication")
		})
		return true, nil
	}

	err := bcrypt.CompareHashAndPassword(a.hash, []byte(pin))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// HashPIN produces a value suitable for LOCK_PIN_HASH.
func HashPIN(pin string) (string, error) {
	if pin == "" {
		return "", errors.New("PIN must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

package verify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"domainvet/internal/domain"
	"domainvet/internal/ports"
	"domainvet/internal/storage"
)

// tokenBytes gives 128 bits of entropy per token.
const tokenBytes = 16

// tokenMintRetries bounds re-mints after a (practically unreachable)
// token collision.
const tokenMintRetries = 3

// SystemClock is the wall-clock implementation of ports.Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Issuer creates DNS TXT proof-of-control challenges for domains the
// resolver chain could not resolve.
type Issuer struct {
	store       ports.VerificationStore
	prefix      string
	maxAttempts int
	clock       ports.Clock
	logger      *slog.Logger
}

// NewIssuer wires the store and token policy. The prefix namespaces
// tokens so unrelated TXT records can never collide with a challenge.
func NewIssuer(store ports.VerificationStore, prefix string, maxAttempts int, clock ports.Clock, log *slog.Logger) *Issuer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Issuer{
		store:       store,
		prefix:      prefix,
		maxAttempts: maxAttempts,
		clock:       clock,
		logger:      log,
	}
}

// Issue returns the WAITING challenge for name, minting one if none is
// live. Issuance is idempotent: while a WAITING task exists the same
// token is returned and no second live token is ever minted. A domain
// whose previous challenge already ended terminal gets a fresh token,
// never a reused one.
func (i *Issuer) Issue(ctx context.Context, name string) (domain.VerificationTask, error) {
	existing, err := i.store.VerificationTask(ctx, name)
	if err != nil {
		return domain.VerificationTask{}, err
	}
	if existing != nil && existing.Status == domain.VerificationWaiting {
		return *existing, nil
	}

	for mint := 0; mint < tokenMintRetries; mint++ {
		token, err := i.mintToken()
		if err != nil {
			return domain.VerificationTask{}, err
		}
		task := domain.VerificationTask{
			Domain:      name,
			Token:       token,
			Status:      domain.VerificationWaiting,
			MaxAttempts: i.maxAttempts,
			CreatedAt:   i.clock.Now(),
		}
		err = i.store.CreateVerificationTask(ctx, task)
		if errors.Is(err, storage.ErrTokenCollision) {
			if i.logger != nil {
				i.logger.Warn("verification token collision, minting a fresh one", "domain", name)
			}
			continue
		}
		if err != nil {
			return domain.VerificationTask{}, err
		}
		if i.logger != nil {
			i.logger.Info("verification challenge issued", "domain", name, "max_attempts", task.MaxAttempts)
		}
		return task, nil
	}
	return domain.VerificationTask{}, fmt.Errorf("issue challenge for %s: token collisions exhausted retries", name)
}

func (i *Issuer) mintToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	return i.prefix + hex.EncodeToString(buf), nil
}

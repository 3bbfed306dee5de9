package authsess

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/brimhavenlabs/authsess/internal"
	"github.com/brimhavenlabs/authsess/revocation"
	"github.com/brimhavenlabs/authsess/token"
)

// Concurrent refreshes with the same token race on Verify/Save. The store
// is last-writer-wins, so more than one racer may get a token pair back,
// but only the hash saved last stays valid. Every other outcome must be a
// clean reuse rejection, never a partial state.
func TestRefreshConcurrencyLastWriterWins(t *testing.T) {
	fx := newTestEngine(t)

	tokens, err := fx.engine.StartSession(context.Background(), "u-member")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	type outcome struct {
		tokens *SessionTokens
		err    error
	}
	results := make(chan outcome, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			got, err := fx.engine.Refresh(context.Background(), tokens.Refresh)
			results <- outcome{tokens: got, err: err}
		}()
	}
	wg.Wait()
	close(results)

	var winners []*SessionTokens
	for res := range results {
		if res.err == nil {
			winners = append(winners, res.tokens)
			continue
		}
		if !errors.Is(res.err, ErrRevokedOrReuse) {
			t.Fatalf("unexpected refresh error: %v", res.err)
		}
	}
	if len(winners) == 0 {
		t.Fatal("expected at least one refresh to succeed")
	}

	// Decrypt one winner to locate the chain, then count how many of the
	// returned refresh tokens the store still accepts.
	verifier, err := token.NewVerifier(token.Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		AccessTTL:  fx.engine.Config().AccessTTL,
		RefreshTTL: fx.engine.Config().RefreshTTL,
		Now:        fx.now,
	})
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	payload, err := verifier.Refresh(winners[0].Refresh)
	if err != nil {
		t.Fatalf("decrypt winner: %v", err)
	}
	chainID := payload.ChainID.String()

	alive := 0
	for _, w := range winners {
		err := fx.store.Verify(context.Background(), "u-member", chainID, internal.HashToken(w.Refresh))
		switch {
		case err == nil:
			alive++
		case errors.Is(err, revocation.ErrHashMismatch):
		case errors.Is(err, revocation.ErrNotFound):
		default:
			t.Fatalf("unexpected store error: %v", err)
		}
	}
	if alive > 1 {
		t.Fatalf("expected at most one surviving refresh token, got %d", alive)
	}
}

// A long sequential chain keeps exactly one record and never trips the
// reuse detector.
func TestRefreshSequentialChain(t *testing.T) {
	fx := newTestEngine(t)

	tokens, err := fx.engine.StartSession(context.Background(), "u-member")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	current := tokens.Refresh
	for i := 0; i < 50; i++ {
		next, err := fx.engine.Refresh(context.Background(), current)
		if err != nil {
			t.Fatalf("rotation %d failed: %v", i, err)
		}
		if next.Refresh == current {
			t.Fatalf("rotation %d returned the same token", i)
		}
		current = next.Refresh
	}

	if fx.store.Len() != 1 {
		t.Fatalf("expected a single chain record, got %d", fx.store.Len())
	}
}

// Distinct sessions for the same user live on separate chains. Revoking
// one leaves the other untouched.
func TestIndependentChainsPerSession(t *testing.T) {
	fx := newTestEngine(t)

	first, err := fx.engine.StartSession(context.Background(), "u-member")
	if err != nil {
		t.Fatalf("first StartSession failed: %v", err)
	}
	second, err := fx.engine.StartSession(context.Background(), "u-member")
	if err != nil {
		t.Fatalf("second StartSession failed: %v", err)
	}

	if err := fx.engine.Logout(context.Background(), first.Refresh); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := fx.engine.Refresh(context.Background(), second.Refresh); err != nil {
		t.Fatalf("second session must survive the first one's logout: %v", err)
	}
	if _, err := fx.engine.Refresh(context.Background(), first.Refresh); !errors.Is(err, ErrRevokedOrReuse) {
		t.Fatalf("expected ErrRevokedOrReuse on the revoked chain, got %v", err)
	}
}

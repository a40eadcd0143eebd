package tokens

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/vmalyshev/authcore/internal/common"
	"github.com/vmalyshev/authcore/internal/models"
)

type fakeRepo struct {
	rows map[string]*models.Token // keyed by token hash
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[string]*models.Token{}}
}

func (r *fakeRepo) Create(ctx context.Context, subject, tokenHash string, expiresAt time.Time) error {
	r.rows[tokenHash] = &models.Token{
		Subject:   subject,
		TokenHash: tokenHash,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	return nil
}

func (r *fakeRepo) FindByHash(ctx context.Context, tokenHash string) (*models.Token, error) {
	t, ok := r.rows[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (r *fakeRepo) DeleteBySubject(ctx context.Context, subject string) error {
	for h, t := range r.rows {
		if t.Subject == subject {
			delete(r.rows, h)
		}
	}
	return nil
}

func (r *fakeRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	delete(r.rows, tokenHash)
	return nil
}

func (r *fakeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for h, t := range r.rows {
		if t.Expired(now) {
			delete(r.rows, h)
			n++
		}
	}
	return n, nil
}

func TestIssue(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, time.Hour)
	ctx := context.Background()

	plaintext, err := m.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if len(plaintext) != 64 {
		t.Fatalf("plaintext length: %d", len(plaintext))
	}
	if _, err := hex.DecodeString(plaintext); err != nil {
		t.Fatalf("plaintext is not hex: %v", err)
	}

	// the plaintext itself is never persisted
	if _, ok := repo.rows[plaintext]; ok {
		t.Fatalf("plaintext stored verbatim")
	}
	if _, ok := repo.rows[common.HashToken(plaintext)]; !ok {
		t.Fatalf("hashed token not stored")
	}
}

func TestIssue_InvalidatesPrior(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, time.Hour)
	ctx := context.Background()

	first, _ := m.Issue(ctx, "a@x.com")
	second, err := m.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if tok, _ := m.Validate(ctx, first); tok != nil {
		t.Fatalf("first token still validates after reissue")
	}
	tok, err := m.Validate(ctx, second)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if tok == nil || tok.Subject != "a@x.com" {
		t.Fatalf("second token does not validate: %+v", tok)
	}
}

func TestIssue_SubjectsIndependent(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, time.Hour)
	ctx := context.Background()

	a, _ := m.Issue(ctx, "a@x.com")
	_, _ = m.Issue(ctx, "b@x.com")

	if tok, _ := m.Validate(ctx, a); tok == nil {
		t.Fatalf("issuing for one subject invalidated another's token")
	}
}

func TestValidate_Unknown(t *testing.T) {
	m := NewManager(newFakeRepo(), time.Hour)

	tok, err := m.Validate(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if tok != nil {
		t.Fatalf("unknown token validated: %+v", tok)
	}
}

func TestValidate_Expired(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, time.Hour)
	ctx := context.Background()

	plaintext, _ := m.Issue(ctx, "a@x.com")
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	// expired and missing are indistinguishable
	tok, err := m.Validate(ctx, plaintext)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if tok != nil {
		t.Fatalf("expired token validated: %+v", tok)
	}
}

func TestDelete(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, time.Hour)
	ctx := context.Background()

	plaintext, _ := m.Issue(ctx, "a@x.com")
	if err := m.Delete(ctx, plaintext); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if tok, _ := m.Validate(ctx, plaintext); tok != nil {
		t.Fatalf("deleted token still validates")
	}
}

func TestCleanupExpired(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, time.Hour)
	ctx := context.Background()

	_, _ = m.Issue(ctx, "a@x.com")
	_, _ = m.Issue(ctx, "b@x.com")
	keep, _ := m.Issue(ctx, "c@x.com")
	// push the first two past expiry
	repo.rows[common.HashToken(keep)].ExpiresAt = time.Now().Add(2 * time.Hour)
	for h, tok := range repo.rows {
		if tok.Subject != "c@x.com" {
			repo.rows[h].ExpiresAt = time.Now().Add(-time.Minute)
		}
	}

	n, err := m.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired error: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 cleaned, got %d", n)
	}
	if tok, _ := m.Validate(ctx, keep); tok == nil {
		t.Fatalf("live token swept by cleanup")
	}
}

package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newTestThrottle() (*ResendThrottle, *time.Time) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	l := NewLimiter(store)
	l.now = store.now
	return NewResendThrottle(l), &now
}

func TestThrottle_IPLimit(t *testing.T) {
	th, _ := newTestThrottle()
	ctx := context.Background()

	// five requests for distinct emails from one address pass
	for i := 0; i < 5; i++ {
		ok, err := th.Allow(ctx, "1.2.3.4", fmt.Sprintf("u%d@example.com", i))
		if err != nil {
			t.Fatalf("Allow error: %v", err)
		}
		if !ok {
			t.Fatalf("request %d denied within IP limit", i+1)
		}
	}

	// the sixth is over the IP window regardless of email
	ok, err := th.Allow(ctx, "1.2.3.4", "fresh@example.com")
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if ok {
		t.Fatalf("6th request from the same IP allowed")
	}
}

func TestThrottle_EmailLimit(t *testing.T) {
	th, _ := newTestThrottle()
	ctx := context.Background()

	if ok, _ := th.Allow(ctx, "1.2.3.4", "a@x.com"); !ok {
		t.Fatalf("first request denied")
	}

	// same email from a different address with plenty of IP quota
	ok, err := th.Allow(ctx, "5.6.7.8", "a@x.com")
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if ok {
		t.Fatalf("second request for the same email allowed")
	}
}

func TestThrottle_EmailNormalized(t *testing.T) {
	th, _ := newTestThrottle()
	ctx := context.Background()

	if ok, _ := th.Allow(ctx, "1.2.3.4", "a@x.com"); !ok {
		t.Fatalf("first request denied")
	}
	// case and whitespace variants hit the same email window
	if ok, _ := th.Allow(ctx, "5.6.7.8", "  A@X.COM "); ok {
		t.Fatalf("normalized variant of the same email allowed")
	}
}

func TestThrottle_IPHitNotRolledBack(t *testing.T) {
	th, _ := newTestThrottle()
	ctx := context.Background()

	_, _ = th.Allow(ctx, "1.2.3.4", "a@x.com")

	// four denials on the email window still consume IP quota
	for i := 0; i < 4; i++ {
		if ok, _ := th.Allow(ctx, "1.2.3.4", "a@x.com"); ok {
			t.Fatalf("repeat request for the same email allowed")
		}
	}

	// IP window is now exhausted even though only one send happened
	if ok, _ := th.Allow(ctx, "1.2.3.4", "other@x.com"); ok {
		t.Fatalf("IP hits from denied requests were rolled back")
	}
}

func TestThrottle_WindowExpiry(t *testing.T) {
	th, now := newTestThrottle()
	ctx := context.Background()

	_, _ = th.Allow(ctx, "1.2.3.4", "a@x.com")
	if ok, _ := th.Allow(ctx, "5.6.7.8", "a@x.com"); ok {
		t.Fatalf("repeat within the window allowed")
	}

	*now = now.Add(301 * time.Second)
	if ok, _ := th.Allow(ctx, "5.6.7.8", "a@x.com"); !ok {
		t.Fatalf("request denied after the window passed")
	}
}

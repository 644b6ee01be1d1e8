package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter() (*SlidingWindow, *time.Time) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewSlidingWindow()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheck_AllowsUpToMax(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		if r := l.Check("hana", "merge", time.Minute, 3); !r.Allowed {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if r := l.Check("hana", "merge", time.Minute, 3); r.Allowed {
		t.Error("4th call should be denied")
	} else if r.Reason == "" {
		t.Error("denial should carry a reason")
	}
}

func TestCheck_WindowSlides(t *testing.T) {
	l, now := newTestLimiter()

	for i := 0; i < 3; i++ {
		l.Check("hana", "merge", time.Minute, 3)
	}
	if r := l.Check("hana", "merge", time.Minute, 3); r.Allowed {
		t.Fatal("should be denied while window is full")
	}

	*now = now.Add(61 * time.Second)
	if r := l.Check("hana", "merge", time.Minute, 3); !r.Allowed {
		t.Error("should be allowed after the window slides past old calls")
	}
}

func TestCheck_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	l.Check("hana", "merge", time.Minute, 1)
	if r := l.Check("hana", "merge", time.Minute, 1); r.Allowed {
		t.Error("hana/merge should be exhausted")
	}
	if r := l.Check("hana", "comment", time.Minute, 1); !r.Allowed {
		t.Error("different action type should have its own window")
	}
	if r := l.Check("taro", "merge", time.Minute, 1); !r.Allowed {
		t.Error("different user should have their own window")
	}
}

func TestCheck_DeniedAttemptNotRecorded(t *testing.T) {
	l, now := newTestLimiter()

	l.Check("hana", "merge", time.Minute, 1)
	for i := 0; i < 10; i++ {
		l.Check("hana", "merge", time.Minute, 1)
	}

	*now = now.Add(61 * time.Second)
	if r := l.Check("hana", "merge", time.Minute, 1); !r.Allowed {
		t.Error("denied attempts must not extend the window")
	}
}

func TestCheck_ZeroConfigAllows(t *testing.T) {
	l, _ := newTestLimiter()
	if r := l.Check("hana", "merge", 0, 0); !r.Allowed {
		t.Error("zero window/max should disable limiting")
	}
}

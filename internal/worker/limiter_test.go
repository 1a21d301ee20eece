package worker

import (
	"context"
	"testing"
)

func TestLimiter_New(t *testing.T) {
	if l := NewLimiter(10, 5); l.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", l.defaultBurst)
	}
	if l := NewLimiter(10, -1); l.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://sunnah.com/bukhari:135"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://quran.com/5/6"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 50; i++ {
		if !limiter.Allow("http://localhost:11434") {
			t.Fatalf("unlimited limiter refused request %d", i)
		}
	}
}

func TestLimiter_NilIsUnlimited(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "http://example.com"); err != nil {
		t.Errorf("nil limiter wait: %v", err)
	}
	if !limiter.Allow("http://example.com") {
		t.Error("nil limiter should allow")
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "https://sunnah.com/bukhari:135"

	if !limiter.Allow(url) {
		t.Fatal("first request should pass")
	}
	if limiter.Allow("https://sunnah.com/muslim:224") {
		t.Error("same host should be exhausted")
	}
	if !limiter.Allow("https://quran.com/5/6") {
		t.Error("other host should pass")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetHostRate("slow.example", 0.1, 1)

	if !limiter.Allow("http://slow.example/a") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("http://slow.example/b") {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("http://fast.example") {
		t.Errorf("other host should pass")
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("http://example.com:8080/foo")
	if err != nil {
		t.Fatalf("hostOf failed: %v", err)
	}
	if host != "example.com:8080" {
		t.Errorf("expected example.com:8080, got %s", host)
	}
	if _, err := hostOf("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}

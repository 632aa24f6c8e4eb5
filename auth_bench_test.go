package goAuthen

import (
	"context"
	"testing"

	"github.com/MrEthical07/goAuthen/filter"
)

func newBenchmarkEngine(b *testing.B, opts ...any) *Engine {
	b.Helper()
	engine, err := New().
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		WithApp("test", opts...).
		Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	b.Cleanup(func() { _ = engine.Close() })
	return engine
}

func benchmarkLogin(b *testing.B, opts ...any) {
	engine := newBenchmarkEngine(b, opts...)
	params := login("user1", "123")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := engine.NewController(context.Background(), "test", newTestHost("start", params, nil))
		if err := c.Prerun(); err != nil {
			b.Fatalf("Prerun failed: %v", err)
		}
		if !c.IsAuthenticated() {
			b.Fatal("login failed")
		}
	}
}

func benchmarkRevisit(b *testing.B, opts ...any) {
	engine := newBenchmarkEngine(b, opts...)
	br := newBrowser()
	h := br.host("start", login("user1", "123"))
	if err := engine.NewController(context.Background(), "test", h).Prerun(); err != nil {
		b.Fatalf("login failed: %v", err)
	}
	br.absorb(h)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := engine.NewController(context.Background(), "test", br.host("start", nil))
		if err := c.Prerun(); err != nil {
			b.Fatalf("Prerun failed: %v", err)
		}
		if c.Username() != "user1" {
			b.Fatal("revisit lost the login")
		}
	}
}

func BenchmarkLoginCookieStore(b *testing.B) {
	benchmarkLogin(b, "DRIVER", genericDriver, "STORE", append([]any{"cookie"}, cookieStoreOpts...))
}

func BenchmarkLoginJWTStore(b *testing.B) {
	benchmarkLogin(b, "DRIVER", genericDriver, "STORE", append([]any{"jwt"}, cookieStoreOpts...))
}

func BenchmarkLoginBcryptFilter(b *testing.B) {
	hash, err := filter.Filter("bcrypt:4", "123")
	if err != nil {
		b.Fatalf("hash failed: %v", err)
	}
	benchmarkLogin(b, "DRIVER", []any{"generic", "USERS", map[string]any{"user1": hash}, "FILTER", "bcrypt"})
}

func BenchmarkRevisitCookieStore(b *testing.B) {
	benchmarkRevisit(b, "DRIVER", genericDriver, "STORE", append([]any{"cookie"}, cookieStoreOpts...))
}

func BenchmarkRevisitJWTStore(b *testing.B) {
	benchmarkRevisit(b, "DRIVER", genericDriver, "STORE", append([]any{"jwt"}, cookieStoreOpts...))
}

func BenchmarkRevisitIdleTimeout(b *testing.B) {
	benchmarkRevisit(b, "DRIVER", genericDriver, "LOGIN_SESSION_TIMEOUT", "15m")
}

package goSession

import (
	"context"
	"testing"
	"time"
)

func BenchmarkSessionValidRead(b *testing.B) {
	f := newEngineFixture(b, testConfig())
	res := f.login(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := f.engine.Session(ctx, res.SessionID); err != nil {
			b.Fatalf("session: %v", err)
		}
	}
}

func BenchmarkSessionValidReadParallelDeduplicated(b *testing.B) {
	cfg := testConfig()
	cfg.Refresh.Deduplicate = true
	f := newEngineFixture(b, cfg)
	res := f.login(b)
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			if _, err := f.engine.Session(ctx, res.SessionID); err != nil {
				b.Errorf("session: %v", err)
				return
			}
		}
	})
}

func BenchmarkSessionRefreshingRead(b *testing.B) {
	f := newEngineFixture(b, testConfig())
	f.ex.refreshTTL = 100 * 365 * 24 * time.Hour
	res := f.login(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		f.clock.Advance(6 * time.Minute)
		b.StartTimer()
		if _, err := f.engine.Session(ctx, res.SessionID); err != nil {
			b.Fatalf("session: %v", err)
		}
	}
}

func BenchmarkLogin(b *testing.B) {
	f := newEngineFixture(b, testConfig())
	f.ex.refreshJTI = ""
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := f.engine.Login(ctx, "john@mail.com", "1234"); err != nil {
			b.Fatalf("login: %v", err)
		}
	}
}

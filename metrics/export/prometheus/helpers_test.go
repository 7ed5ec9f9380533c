package prometheus

import (
	"context"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

type nopStore struct{}

func (nopStore) Get(context.Context, string) (*session.Record, error) {
	return nil, session.ErrNotFound
}
func (nopStore) Save(context.Context, *session.Record, time.Duration) error   { return nil }
func (nopStore) Update(context.Context, *session.Record, time.Duration) error { return nil }
func (nopStore) Delete(context.Context, string, string) error                 { return nil }
func (nopStore) DeleteUser(context.Context, string) (int, error)              { return 0, nil }

func liveConfig() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.Secret = "prometheus-test-secret-0123456789"
	cfg.Backend.BaseURL = "http://identity.test"
	return cfg
}

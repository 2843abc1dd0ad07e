package client

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/galib-hossain-meraz/youtube-notes/client/internal/query"
	"github.com/galib-hossain-meraz/youtube-notes/client/internal/shardqueue"
)

// Config is the environment-driven configuration read by LoadConfig, e.g.
// NOTES_BASE_URL, NOTES_LIST_STALE_TIME=30s, NOTES_REVALIDATE_SHARDS=8.
type Config struct {
	BaseURL        string        `envconfig:"BASE_URL"        default:"http://localhost:8000"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5m"`

	IdentityStaleTime time.Duration `envconfig:"IDENTITY_STALE_TIME" default:"5m"`
	IdentityGCTime    time.Duration `envconfig:"IDENTITY_GC_TIME"    default:"10m"`
	ListStaleTime     time.Duration `envconfig:"LIST_STALE_TIME"     default:"10s"`
	ListGCTime        time.Duration `envconfig:"LIST_GC_TIME"        default:"5m"`
	DetailStaleTime   time.Duration `envconfig:"DETAIL_STALE_TIME"   default:"5m"`
	DetailGCTime      time.Duration `envconfig:"DETAIL_GC_TIME"      default:"10m"`

	SweepInterval      time.Duration `envconfig:"SWEEP_INTERVAL"       default:"1m"`
	StrictSessionProbe bool          `envconfig:"STRICT_SESSION_PROBE" default:"false"`
	Debug              bool          `envconfig:"DEBUG"                default:"false"`

	Revalidate shardqueue.Config `envconfig:"REVALIDATE"`
}

// LoadConfig reads Config from NOTES_* environment variables.
func LoadConfig() (Config, error) {
	var c Config
	if err := envconfig.Process("NOTES", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Policies returns the freshness windows described by c.
func (c Config) Policies() Policies {
	return query.Policies{
		Identity: query.Policy{StaleTime: c.IdentityStaleTime, GCTime: c.IdentityGCTime},
		List:     query.Policy{StaleTime: c.ListStaleTime, GCTime: c.ListGCTime},
		Detail:   query.Policy{StaleTime: c.DetailStaleTime, GCTime: c.DetailGCTime},
	}
}

// Options translates c into construction options. c is expected to come from
// LoadConfig, which fills every default.
func (c Config) Options() []Option {
	return []Option{
		WithHTTPTimeout(c.RequestTimeout),
		WithPolicies(c.Policies()),
		WithSweepInterval(c.SweepInterval),
		WithStrictSessionProbe(c.StrictSessionProbe),
		WithDebugLogging(c.Debug),
		withRevalidateConfig(c.Revalidate),
	}
}

// NewFromConfig constructs a Client from c. opts are applied after the
// options derived from c and take precedence.
func NewFromConfig(c Config, opts ...Option) (*Client, error) {
	return New(c.BaseURL, append(c.Options(), opts...)...)
}

func withRevalidateConfig(rc shardqueue.Config) Option {
	return func(c *Client) error {
		if err := WithRevalidateWorkers(rc.Shards, rc.QueueSize)(c); err != nil {
			return err
		}
		c.revalidate.EnqueueTimeout = rc.EnqueueTimeout
		return nil
	}
}

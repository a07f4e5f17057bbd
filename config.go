package steward

import "time"

// Config holds configuration for the Steward engine.
type Config struct {
	// RecentActivityLimit caps the per-scope recent-activity ring.
	// Defaults to 25.
	RecentActivityLimit int `json:"recent_activity_limit,omitempty"`

	// KeepAliveInterval is the keep-alive period for live activity
	// subscriptions. Defaults to 25 seconds.
	KeepAliveInterval time.Duration `json:"keep_alive_interval,omitempty"`

	// DecisionBatchLimit caps the number of actions in one bulk decision.
	// Defaults to 100.
	DecisionBatchLimit int `json:"decision_batch_limit,omitempty"`

	// MinAutoConfidence forces proposals below this confidence to pending
	// review even when the proposer marked them auto-approvable.
	// Zero disables the check.
	MinAutoConfidence float64 `json:"min_auto_confidence,omitempty"`

	// ReviewHighImpact forces high-impact proposals to pending review
	// regardless of the proposer's requires-approval flag.
	ReviewHighImpact bool `json:"review_high_impact,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RecentActivityLimit: 25,
		KeepAliveInterval:   25 * time.Second,
		DecisionBatchLimit:  100,
	}
}

func (c Config) recentActivityLimit() int {
	if c.RecentActivityLimit > 0 {
		return c.RecentActivityLimit
	}
	return 25
}

func (c Config) keepAliveInterval() time.Duration {
	if c.KeepAliveInterval > 0 {
		return c.KeepAliveInterval
	}
	return 25 * time.Second
}

func (c Config) decisionBatchLimit() int {
	if c.DecisionBatchLimit > 0 {
		return c.DecisionBatchLimit
	}
	return 100
}

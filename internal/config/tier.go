package config

import (
	"fmt"
	"time"
)

// Tier names.
const (
	TierFree     = "free"
	TierStandard = "standard"
	TierPro      = "pro"
)

// TierProfile bundles the concurrency, retry, and timeout settings for one
// provider rate-limit tier.
type TierProfile struct {
	Name string

	// MaxConcurrency is the concurrency ceiling for small documents.
	MaxConcurrency int
	// LargeDocumentFactor scales MaxConcurrency for documents of more than
	// 15 chunks. 1.0 keeps the full ceiling.
	LargeDocumentFactor float64
	// RequestsPerSecond paces backend calls. Zero disables pacing.
	RequestsPerSecond float64

	MaxChunkRetries    int
	RetryDelay         time.Duration
	ExponentialBackoff bool
	JitterPercent      int

	// Chunks up to SmallChunkTokens use SmallTimeout, up to MediumChunkTokens
	// use MediumTimeout, larger ones LargeTimeout.
	SmallChunkTokens  int
	MediumChunkTokens int
	SmallTimeout      time.Duration
	MediumTimeout     time.Duration
	LargeTimeout      time.Duration
	// ImageTimeoutFactor multiplies the timeout when images are attached.
	ImageTimeoutFactor float64
}

func baseProfile() TierProfile {
	return TierProfile{
		JitterPercent:      10,
		SmallChunkTokens:   10_000,
		MediumChunkTokens:  40_000,
		SmallTimeout:       60 * time.Second,
		MediumTimeout:      120 * time.Second,
		LargeTimeout:       240 * time.Second,
		ImageTimeoutFactor: 1.5,
	}
}

var tierProfiles = map[string]func() TierProfile{
	TierFree: func() TierProfile {
		p := baseProfile()
		p.Name = TierFree
		p.MaxConcurrency = 2
		p.LargeDocumentFactor = 0.5
		p.RequestsPerSecond = 1
		p.MaxChunkRetries = 2
		p.RetryDelay = 2 * time.Second
		return p
	},
	TierStandard: func() TierProfile {
		p := baseProfile()
		p.Name = TierStandard
		p.MaxConcurrency = 5
		p.LargeDocumentFactor = 0.8
		p.MaxChunkRetries = 3
		p.RetryDelay = time.Second
		p.ExponentialBackoff = true
		return p
	},
	TierPro: func() TierProfile {
		p := baseProfile()
		p.Name = TierPro
		p.MaxConcurrency = 10
		p.LargeDocumentFactor = 1.0
		p.MaxChunkRetries = 3
		p.RetryDelay = 500 * time.Millisecond
		p.ExponentialBackoff = true
		return p
	},
}

// ProfileFor returns the profile for a named tier.
func ProfileFor(tier string) (TierProfile, error) {
	build, ok := tierProfiles[tier]
	if !ok {
		return TierProfile{}, fmt.Errorf("unknown tier %q", tier)
	}
	return build(), nil
}

// TierProfile resolves the configured tier, applying the concurrency
// override when set.
func (c PipelineConfig) TierProfile() (TierProfile, error) {
	p, err := ProfileFor(c.Tier)
	if err != nil {
		return TierProfile{}, err
	}
	if c.MaxConcurrency > 0 {
		p.MaxConcurrency = c.MaxConcurrency
	}
	return p, nil
}

package config

import "time"

// DPoPConfig carries the proof-of-possession security parameters. The
// freshness window is an explicit tunable: proofs whose iat is older than
// GetProofMaxAge, or further in the future than GetClockSkew, are rejected
// as expired.
type DPoPConfig interface {
	GetProofMaxAge() time.Duration
	GetClockSkew() time.Duration
	GetReplayRetention() time.Duration
}

type DPoP struct{}

var _ DPoPConfig = DPoP{}

func (DPoP) GetProofMaxAge() time.Duration {
	return 30 * time.Second
}

func (DPoP) GetClockSkew() time.Duration {
	return 5 * time.Second
}

// GetReplayRetention bounds replay-entry storage. Entries older than twice
// the freshness window can never pass the freshness check again, so pruning
// them does not weaken replay protection.
func (DPoP) GetReplayRetention() time.Duration {
	return 2 * (DPoP{}).GetProofMaxAge()
}

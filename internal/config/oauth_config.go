package config

import "time"

type OAuthConfig interface {
	GetAuthCodeTimeout() time.Duration
	GetCodeGenerationLength() int
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
	GetDefaultSessionExpiry() time.Duration
	GetSigningKeyLifetime() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetAuthCodeTimeout() time.Duration {
	return 10 * time.Minute
}

func (OAuth) GetCodeGenerationLength() int {
	return 32 // 32 bytes = 256 bits
}

func (OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	return 15 * time.Minute
}

func (OAuth) GetDefaultRefreshTokenExpiry() time.Duration {
	return 30 * 24 * time.Hour // 30 days
}

func (OAuth) GetDefaultSessionExpiry() time.Duration {
	return 30 * 24 * time.Hour
}

func (OAuth) GetSigningKeyLifetime() time.Duration {
	return 90 * 24 * time.Hour // rotation job is expected to run well before this
}

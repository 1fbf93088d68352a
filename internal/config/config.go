package config

type Config interface {
	EnvConfig
	OAuthConfig
	DPoPConfig
}

type mainConfig struct {
	EnvVars
	OAuth
	DPoP
}

func New() Config {
	return mainConfig{}
}

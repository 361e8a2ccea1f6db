package config

import "os"

type ServerConfig struct {
	Port    string
	JwksUrl string
	// MockServices swaps the generation collaborators for local fakes so the
	// pipeline can run without spending on API calls.
	MockServices bool
}

func GetServerConfig() (*ServerConfig, error) {
	return &ServerConfig{
		Port:         lookupString("PORT", "8080"),
		JwksUrl:      os.Getenv("JWKS_URL"),
		MockServices: os.Getenv("MOCK_SERVICES") == "true",
	}, nil
}

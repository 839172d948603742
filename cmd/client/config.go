package main

import (
	"fmt"
	"net/url"
	"strings"
)

type Config struct {
	ServerURL string `env:"SERVER_URL,default=http://localhost:8080"`
}

// WebsocketURL derives the ws endpoint from the HTTP base URL.
func (c Config) WebsocketURL() (string, error) {
	parsed, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("SERVER_URL: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("SERVER_URL: unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/ws"
	return parsed.String(), nil
}

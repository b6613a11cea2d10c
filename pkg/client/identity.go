package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTokenPath returns the conventional location of the saved session
// token, ~/.hydrohub/token. 'hydroctl login' writes it there.
func DefaultTokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".hydrohub", "token"), nil
}

// LoadToken reads a saved session token from path.
func LoadToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return tok, nil
}

// SaveToken writes a session token to path with owner-only permissions,
// creating the parent directory if needed.
func SaveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// NewFromTokenFile creates an SDK client authenticated with the session
// token saved at path.
//
// Additional options can be appended:
//
//	c, err := client.NewFromTokenFile(
//	    "https://station.example.com",
//	    tokenPath,
//	    client.WithInsecureSkipVerify(),
//	)
func NewFromTokenFile(baseURL, path string, opts ...Option) (*Client, error) {
	tok, err := LoadToken(path)
	if err != nil {
		return nil, err
	}
	return New(baseURL, append([]Option{WithToken(tok)}, opts...)...)
}

// WithTokenFile is the functional-option form of NewFromTokenFile. Use it
// when you need to combine token loading with other New() options.
func WithTokenFile(path string) Option {
	return func(c *Client) error {
		tok, err := LoadToken(path)
		if err != nil {
			return err
		}
		return WithToken(tok)(c)
	}
}

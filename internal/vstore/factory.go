package vstore

import "fmt"

// Config mirrors the fields of config.VectorStoreConfig this package
// needs, kept local so vstore does not import the config package back.
type Config struct {
	Provider      string // "qdrant" or "embedded"
	Host          string
	Port          int
	APIKey        string
	UseTLS        bool
	EmbeddedPath  string
	Dimensions    int
}

// New builds the configured provider.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "qdrant":
		return NewQdrantClient(cfg.Host, cfg.Port, cfg.APIKey, cfg.UseTLS), nil
	case "embedded", "":
		path := cfg.EmbeddedPath
		if path == "" {
			path = "memory.db"
		}
		return NewEmbeddedClient(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

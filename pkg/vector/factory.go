package vector

import (
	"fmt"
	"path/filepath"

	"github.com/sift-dev/sift/pkg/config"
)

// NewProvider creates a vector provider from configuration. The chromem
// provider persists under cacheDir; remote providers ignore it.
func NewProvider(cfg *config.VectorConfig, cacheDir string) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vector config cannot be nil")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vector config: %w", err)
	}

	switch cfg.Type {
	case "chromem":
		persistPath := ""
		if cacheDir != "" {
			persistPath = filepath.Join(cacheDir, "vectors.gob")
		}
		return NewChromemProvider(ChromemConfig{PersistPath: persistPath})
	case "qdrant":
		return NewQdrantProvider(QdrantConfig{
			Host:   cfg.Host,
			Port:   cfg.Port,
			APIKey: cfg.APIKey,
			UseTLS: cfg.UseTLS,
		})
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
}

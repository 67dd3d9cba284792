package config

import (
	"sync"

	"github.com/saiset-co/sai-freshness/types"
)

type Manager struct {
	configPath string
	loader     *Loader
	config     *types.ServiceConfig
	mu         sync.RWMutex
}

func NewManager(configPath string) types.ConfigManager {
	return &Manager{
		configPath: configPath,
		loader:     NewLoader(),
	}
}

// NewManagerFromConfig wraps an already-built config, validating it first.
// Used by embedders and tests that assemble configuration in code.
func NewManagerFromConfig(config *types.ServiceConfig) (types.ConfigManager, error) {
	loader := NewLoader()
	if err := loader.Validate(config); err != nil {
		return nil, err
	}

	return &Manager{
		loader: loader,
		config: config,
	}, nil
}

func (m *Manager) Load() error {
	if m.configPath == "" {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.config == nil {
			m.config = m.loader.Defaults()
		}
		return nil
	}

	config, err := m.loader.LoadFromFile(m.configPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = config
	m.mu.Unlock()

	return nil
}

func (m *Manager) GetConfig() *types.ServiceConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

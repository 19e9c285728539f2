package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrNotFound is returned by a KV for a missing key.
	ErrNotFound = errors.New("key not found")
	// ErrInvalidPatch is returned by Update for a patch that is not a JSON
	// object or does not fit the configuration.
	ErrInvalidPatch = errors.New("invalid config patch")
)

// KV is the storage collaborator.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Service reads and writes the configuration through a KV.
type Service struct {
	mu     sync.Mutex
	kv     KV
	logger *slog.Logger
}

func New(kv KV, logger *slog.Logger) *Service {
	return &Service{kv: kv, logger: logger}
}

// Get returns the stored configuration, or the defaults when none is stored.
func (s *Service) Get(ctx context.Context) (PluginConfig, error) {
	raw, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return PluginConfig{}, fmt.Errorf("get config: %w", err)
	}
	var cfg PluginConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return PluginConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func (s *Service) Save(ctx context.Context, cfg PluginConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Update merges the top-level fields of patch, a JSON object, into the
// stored configuration and saves the result. Nested objects are replaced
// whole, not merged.
func (s *Service) Update(ctx context.Context, patch []byte) (PluginConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return PluginConfig{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	cfg, err := s.Get(ctx)
	if err != nil {
		return PluginConfig{}, err
	}
	current, err := json.Marshal(cfg)
	if err != nil {
		return PluginConfig{}, fmt.Errorf("encode config: %w", err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(current, &merged); err != nil {
		return PluginConfig{}, fmt.Errorf("decode config: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return PluginConfig{}, fmt.Errorf("encode config: %w", err)
	}
	var updated PluginConfig
	if err := json.Unmarshal(raw, &updated); err != nil {
		return PluginConfig{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if err := s.Save(ctx, updated); err != nil {
		return PluginConfig{}, err
	}
	s.logger.Info("config updated", "fields", len(fields))
	return updated, nil
}

// Reset stores the defaults.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Save(ctx, Default())
}

// MemoryKV is a KV held in process memory.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.data[key] = v
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

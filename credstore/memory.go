package credstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests. Semantics mirror the
// SQLite implementation, including serialized counter increments.
type Memory struct {
	mu      sync.Mutex
	sources map[string]*CredentialSource
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{sources: make(map[string]*CredentialSource)}
}

func (m *Memory) Store(_ context.Context, src *CredentialSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *src
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if prev, ok := m.sources[string(src.ID)]; ok {
		cp.SignatureCounter = prev.SignatureCounter
		cp.CreatedAt = prev.CreatedAt
	}
	m.sources[string(src.ID)] = &cp
	return nil
}

func (m *Memory) Load(_ context.Context, id []byte) (*CredentialSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[string(id)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *src
	return &cp, nil
}

func (m *Memory) LoadAll(_ context.Context, rpID string) ([]*CredentialSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*CredentialSource
	for _, src := range m.sources {
		if rpID != "" && src.RPID != rpID {
			continue
		}
		cp := *src
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID, out[j].ID) < 0
	})
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[string(id)]; !ok {
		return ErrNotFound
	}
	delete(m.sources, string(id))
	return nil
}

func (m *Memory) DeleteAll(_ context.Context, aaguid []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, src := range m.sources {
		if aaguid == nil || bytes.Equal(src.AAGUID, aaguid) {
			delete(m.sources, k)
		}
	}
	return nil
}

func (m *Memory) IncreaseSignatureCounter(_ context.Context, id []byte) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[string(id)]
	if !ok {
		return 0, ErrNotFound
	}
	src.SignatureCounter++
	return src.SignatureCounter, nil
}

func (m *Memory) Close() error { return nil }

package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	names   map[string]string
	reports map[string][]Report
}

func NewMemory() *Memory {
	return &Memory{
		names:   make(map[string]string),
		reports: make(map[string][]Report),
	}
}

// SetName registers a display name for code.
func (m *Memory) SetName(code, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[NormalizeCode(code)] = name
}

func (m *Memory) StockName(_ context.Context, code string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.names[NormalizeCode(code)], nil
}

func (m *Memory) LatestReport(_ context.Context, code string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.reports[NormalizeCode(code)]
	if len(list) == 0 {
		return nil, nil
	}
	latest := list[0]
	for _, r := range list[1:] {
		if r.Date.After(latest.Date) {
			latest = r
		}
	}
	return &latest, nil
}

// SaveReport replaces any report with the same code and date.
func (m *Memory) SaveReport(_ context.Context, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.StockCode = NormalizeCode(r.StockCode)
	list := m.reports[r.StockCode]
	for i := range list {
		if list[i].Date.Equal(r.Date) {
			list[i] = r
			return nil
		}
	}
	m.reports[r.StockCode] = append(list, r)
	return nil
}

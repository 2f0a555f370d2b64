package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

var (
	ErrNoSheet     = errors.New("no such sheet")
	ErrSheetExists = errors.New("sheet exists with different headers")
	ErrInvalidRow  = errors.New("invalid row index")
)

// Backend is the tabular storage behind a store. Row indices are 0-based and exclude the header row.
type Backend interface {
	Headers(ctx context.Context, sheet string) ([]string, bool, error)
	Create(ctx context.Context, sheet string, headers []string) error
	Rows(ctx context.Context, sheet string) ([][]any, error)
	Append(ctx context.Context, sheet string, row []any) error
	Update(ctx context.Context, sheet string, index int, row []any) error
}

// Memory is a Backend that keeps every sheet in memory.
type Memory struct {
	sync.RWMutex
	sheets map[string]*table
}

type table struct {
	headers []string
	rows    [][]any
}

func NewMemory() *Memory {
	return &Memory{
		sheets: map[string]*table{},
	}
}

func (m *Memory) Headers(ctx context.Context, sheet string) ([]string, bool, error) {
	m.RLock()
	defer m.RUnlock()

	if t, ok := m.sheets[sheet]; ok {
		return append([]string{}, t.headers...), true, nil
	}

	return nil, false, nil
}

func (m *Memory) Create(ctx context.Context, sheet string, headers []string) error {
	m.Lock()
	defer m.Unlock()

	m.sheets[sheet] = &table{
		headers: append([]string{}, headers...),
	}

	return nil
}

func (m *Memory) Rows(ctx context.Context, sheet string) ([][]any, error) {
	m.RLock()
	defer m.RUnlock()

	t, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w '%v'", ErrNoSheet, sheet)
	}

	rows := make([][]any, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, append([]any{}, row...))
	}

	return rows, nil
}

func (m *Memory) Append(ctx context.Context, sheet string, row []any) error {
	m.Lock()
	defer m.Unlock()

	t, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w '%v'", ErrNoSheet, sheet)
	}

	t.rows = append(t.rows, append([]any{}, row...))

	return nil
}

func (m *Memory) Update(ctx context.Context, sheet string, index int, row []any) error {
	m.Lock()
	defer m.Unlock()

	t, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w '%v'", ErrNoSheet, sheet)
	}

	if index < 0 || index >= len(t.rows) {
		return fmt.Errorf("%w %v", ErrInvalidRow, index)
	}

	t.rows[index] = append([]any{}, row...)

	return nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""

	case string:
		return x

	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)

	default:
		return fmt.Sprintf("%v", x)
	}
}

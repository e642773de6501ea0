package memory

import (
	"context"
	"sync"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/sheets"
)

// Store keeps the last recap in process. It backs the "memory" mirror and
// tests.
type Store struct {
	mu     sync.Mutex
	recap  sheets.Recap
	writes int
}

var _ sheets.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}

func (s *Store) WriteRecap(_ context.Context, r sheets.Recap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recap = sheets.Recap{Rows: copyRows(r.Rows)}
	s.writes++
	return nil
}

func (s *Store) ReadRecap(_ context.Context) (sheets.Recap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sheets.Recap{Rows: copyRows(s.recap.Rows)}, nil
}

// Writes counts the recaps written so far.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Package status holds the attempt status boards: the in-memory default and
// a fan-out that mirrors transitions to secondary sinks.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/notify-dapp/internal/domain"
)

// Sink receives every status transition.
type Sink interface {
	Put(ctx context.Context, s domain.Status) error
}

// Board is a Sink that can be read back.
type Board interface {
	Sink
	Get(ctx context.Context, attemptID string) (*domain.Status, error)
	ListByDraft(ctx context.Context, draftID string) ([]domain.Status, error)
}

// MemoryBoard keeps the latest status of every attempt for the process lifetime.
type MemoryBoard struct {
	mu       sync.RWMutex
	attempts map[string]domain.Status
	byDraft  map[string][]string
}

func NewMemoryBoard() *MemoryBoard {
	return &MemoryBoard{
		attempts: make(map[string]domain.Status),
		byDraft:  make(map[string][]string),
	}
}

func (b *MemoryBoard) Put(_ context.Context, s domain.Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.attempts[s.AttemptID]; !ok {
		b.byDraft[s.DraftID] = append(b.byDraft[s.DraftID], s.AttemptID)
	}
	b.attempts[s.AttemptID] = s
	return nil
}

func (b *MemoryBoard) Get(_ context.Context, attemptID string) (*domain.Status, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.attempts[attemptID]
	if !ok {
		return nil, fmt.Errorf("attempt not found: %w", domain.ErrNotFound)
	}
	return &s, nil
}

// ListByDraft returns the attempts made for a draft, newest first.
func (b *MemoryBoard) ListByDraft(_ context.Context, draftID string) ([]domain.Status, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := b.byDraft[draftID]
	out := make([]domain.Status, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.attempts[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// FanOut writes to a primary board and mirrors to best-effort sinks. Only
// primary failures are returned; sink failures are logged.
type FanOut struct {
	primary Board
	sinks   []Sink
	log     *slog.Logger
}

func NewFanOut(primary Board, log *slog.Logger, sinks ...Sink) *FanOut {
	if log == nil {
		log = slog.Default()
	}
	return &FanOut{primary: primary, sinks: sinks, log: log}
}

func (f *FanOut) Put(ctx context.Context, s domain.Status) error {
	err := f.primary.Put(ctx, s)
	for _, sink := range f.sinks {
		if serr := sink.Put(ctx, s); serr != nil {
			f.log.Warn("status sink failed", "attempt_id", s.AttemptID, "stage", s.Stage, "err", serr)
		}
	}
	return err
}

func (f *FanOut) Get(ctx context.Context, attemptID string) (*domain.Status, error) {
	return f.primary.Get(ctx, attemptID)
}

func (f *FanOut) ListByDraft(ctx context.Context, draftID string) ([]domain.Status, error) {
	return f.primary.ListByDraft(ctx, draftID)
}

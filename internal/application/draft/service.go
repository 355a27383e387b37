package draft

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/notify-dapp/internal/domain"
	"github.com/notify-dapp/internal/pkg/id"
)

// DelimiterKeys commit the pending subset input into the recipient set.
var DelimiterKeys = []string{"Enter", ","}

// FieldsInput carries a partial update of the editable text fields.
// Nil pointers leave the current value untouched.
type FieldsInput struct {
	Subject        *string `json:"subject"`
	SubjectEnabled *bool   `json:"subject_enabled"`
	Body           *string `json:"body"`
	CTA            *string `json:"cta"`
	CTAEnabled     *bool   `json:"cta_enabled"`
	Media          *string `json:"media"`
	MediaEnabled   *bool   `json:"media_enabled"`
	Recipient      *string `json:"recipient"`
}

type Service interface {
	Create(ctx context.Context, channel string) (*domain.Draft, error)
	Get(ctx context.Context, draftID string) (*domain.Draft, error)
	SetType(ctx context.Context, draftID string, t domain.NotificationType) (*domain.Draft, error)
	UpdateFields(ctx context.Context, draftID string, in FieldsInput) (*domain.Draft, error)
	// InputRecipient records subset input text and, when key is a delimiter,
	// commits the pending text into the recipient set.
	InputRecipient(ctx context.Context, draftID, text, key string) (*domain.Draft, error)
	RemoveRecipient(ctx context.Context, draftID, addr string) (*domain.Draft, error)
	// Reset clears the draft back to its empty state after a mined send.
	Reset(ctx context.Context, draftID string) error
}

// Store is an in-memory draft store. Drafts are session state and are not persisted.
type Store struct {
	mu     sync.Mutex
	drafts map[string]*domain.Draft
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{drafts: make(map[string]*domain.Draft), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Create(_ context.Context, channel string) (*domain.Draft, error) {
	now := s.now()
	d := &domain.Draft{
		DraftID:   id.New(),
		Channel:   channel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.drafts[d.DraftID] = d
	s.mu.Unlock()
	return d.Clone(), nil
}

func (s *Store) Get(_ context.Context, draftID string) (*domain.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[draftID]
	if !ok {
		return nil, fmt.Errorf("draft %s: %w", draftID, domain.ErrNotFound)
	}
	return d.Clone(), nil
}

// SetType switches the notification type. Any in-progress recipient list is
// dropped; Broadcast and Subset address the channel itself.
func (s *Store) SetType(_ context.Context, draftID string, t domain.NotificationType) (*domain.Draft, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("notification type %d: %w", t, domain.ErrBadRequest)
	}
	return s.mutate(draftID, func(d *domain.Draft) error {
		d.Type = t
		d.Recipients.Clear()
		d.PendingRecipient = ""
		if t.SendsToSelf() {
			d.Recipient = d.Channel
		} else {
			d.Recipient = ""
		}
		return nil
	})
}

func (s *Store) UpdateFields(_ context.Context, draftID string, in FieldsInput) (*domain.Draft, error) {
	return s.mutate(draftID, func(d *domain.Draft) error {
		setString(&d.Subject, in.Subject)
		setBool(&d.SubjectEnabled, in.SubjectEnabled)
		setString(&d.Body, in.Body)
		setString(&d.CTA, in.CTA)
		setBool(&d.CTAEnabled, in.CTAEnabled)
		setString(&d.Media, in.Media)
		setBool(&d.MediaEnabled, in.MediaEnabled)
		// Manual recipient entry only applies to single-recipient types.
		if in.Recipient != nil && d.Type.NeedsRecipient() {
			d.Recipient = strings.TrimSpace(*in.Recipient)
		}
		return nil
	})
}

func (s *Store) InputRecipient(_ context.Context, draftID, text, key string) (*domain.Draft, error) {
	return s.mutate(draftID, func(d *domain.Draft) error {
		if d.Type != domain.TypeSubset {
			return fmt.Errorf("recipient list requires a subset notification: %w", domain.ErrBadRequest)
		}
		if !IsDelimiter(text) {
			d.PendingRecipient = text
		}
		if !IsDelimiter(key) {
			return nil
		}
		if addr := strings.TrimSpace(d.PendingRecipient); addr != "" {
			d.Recipients.Add(addr)
		}
		d.PendingRecipient = ""
		return nil
	})
}

func (s *Store) RemoveRecipient(_ context.Context, draftID, addr string) (*domain.Draft, error) {
	return s.mutate(draftID, func(d *domain.Draft) error {
		d.Recipients.Remove(addr)
		return nil
	})
}

func (s *Store) Reset(_ context.Context, draftID string) error {
	_, err := s.mutate(draftID, func(d *domain.Draft) error {
		*d = domain.Draft{
			DraftID:   d.DraftID,
			Channel:   d.Channel,
			CreatedAt: d.CreatedAt,
		}
		return nil
	})
	return err
}

func (s *Store) mutate(draftID string, fn func(d *domain.Draft) error) (*domain.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[draftID]
	if !ok {
		return nil, fmt.Errorf("draft %s: %w", draftID, domain.ErrNotFound)
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	d.UpdatedAt = s.now()
	return d.Clone(), nil
}

// IsDelimiter reports whether s is exactly one of DelimiterKeys.
func IsDelimiter(s string) bool {
	return slices.Contains(DelimiterKeys, s)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

var _ Service = (*Store)(nil)

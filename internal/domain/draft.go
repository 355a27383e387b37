package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// RecipientSet keeps addresses unique in order of first insertion.
type RecipientSet struct {
	items []string
}

func NewRecipientSet(addrs ...string) RecipientSet {
	var s RecipientSet
	for _, a := range addrs {
		s.Add(a)
	}
	return s
}

// Add inserts addr unless it is already present. It reports whether the set changed.
func (s *RecipientSet) Add(addr string) bool {
	if slices.Contains(s.items, addr) {
		return false
	}
	s.items = append(s.items, addr)
	return true
}

func (s *RecipientSet) Remove(addr string) {
	s.items = slices.DeleteFunc(s.items, func(a string) bool { return a == addr })
}

func (s *RecipientSet) Clear() { s.items = nil }

func (s RecipientSet) Len() int { return len(s.items) }

// List returns a copy of the addresses.
func (s RecipientSet) List() []string {
	return slices.Clone(s.items)
}

func (s RecipientSet) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

func (s *RecipientSet) UnmarshalJSON(b []byte) error {
	var addrs []string
	if err := json.Unmarshal(b, &addrs); err != nil {
		return err
	}
	*s = NewRecipientSet(addrs...)
	return nil
}

// Draft is the editable notification a channel owner composes.
type Draft struct {
	DraftID        string           `json:"id"`
	Channel        string           `json:"channel"`
	Type           NotificationType `json:"type"`
	Subject        string           `json:"subject"`
	SubjectEnabled bool             `json:"subject_enabled"`
	Body           string           `json:"body"`
	CTA            string           `json:"cta"`
	CTAEnabled     bool             `json:"cta_enabled"`
	Media          string           `json:"media"`
	MediaEnabled   bool             `json:"media_enabled"`
	// Recipient is the on-chain recipient: the channel itself for
	// Broadcast/Subset, the entered address for Secret/Targeted.
	Recipient  string       `json:"recipient"`
	Recipients RecipientSet `json:"recipients"`
	// PendingRecipient holds subset input not yet committed by a delimiter key.
	PendingRecipient string    `json:"pending_recipient"`
	CreatedAt        time.Time `json:"created"`
	UpdatedAt        time.Time `json:"updated"`
}

// Clone returns a deep copy safe to hand to the pipeline.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Recipients = NewRecipientSet(d.Recipients.List()...)
	return &c
}

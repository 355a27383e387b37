package domain

import (
	"fmt"
	"strconv"
)

// NotificationType decides recipient cardinality and encryption policy.
// Tag 0 is reserved for protocol storage and is never emitted.
type NotificationType uint8

const (
	TypeNone      NotificationType = 0
	TypeBroadcast NotificationType = 1
	TypeSecret    NotificationType = 2
	TypeTargeted  NotificationType = 3
	TypeSubset    NotificationType = 4
)

// NotificationTypes lists the user-selectable types in tag order.
var NotificationTypes = []NotificationType{TypeBroadcast, TypeSecret, TypeTargeted, TypeSubset}

// ParseNotificationType accepts the decimal tag ("1".."4").
func ParseNotificationType(tag string) (NotificationType, error) {
	n, err := strconv.Atoi(tag)
	if err != nil || n < int(TypeBroadcast) || n > int(TypeSubset) {
		return TypeNone, fmt.Errorf("unknown notification type %q: %w", tag, ErrBadRequest)
	}
	return NotificationType(n), nil
}

func (t NotificationType) Valid() bool {
	return t >= TypeBroadcast && t <= TypeSubset
}

// Tag is the string form carried in payloads and identities.
func (t NotificationType) Tag() string {
	return strconv.Itoa(int(t))
}

func (t NotificationType) Label() string {
	switch t {
	case TypeBroadcast:
		return "Broadcast (IPFS Payload)"
	case TypeSecret:
		return "Secret (IPFS Payload)"
	case TypeTargeted:
		return "Targeted (IPFS Payload)"
	case TypeSubset:
		return "Subset (IPFS Payload)"
	}
	return ""
}

// SendsToSelf reports whether the on-chain recipient is implicitly the sender.
func (t NotificationType) SendsToSelf() bool {
	return t == TypeBroadcast || t == TypeSubset
}

// NeedsRecipient reports whether the user must enter exactly one recipient.
func (t NotificationType) NeedsRecipient() bool {
	return t == TypeSecret || t == TypeTargeted
}

func (t NotificationType) MarshalText() ([]byte, error) {
	if t == TypeNone {
		return []byte(""), nil
	}
	return []byte(t.Tag()), nil
}

func (t *NotificationType) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = TypeNone
		return nil
	}
	v, err := ParseNotificationType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Display is the plain pair every recipient sees.
type Display struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PayloadData carries the real fields. For Secret notifications ASub, AMsg,
// ACta and AImg are ciphertext and Secret holds the wrapped key.
type PayloadData struct {
	Type       string   `json:"type"`
	Secret     string   `json:"secret,omitempty"`
	ASub       string   `json:"asub"`
	AMsg       string   `json:"amsg"`
	ACta       string   `json:"acta"`
	AImg       string   `json:"aimg"`
	Recipients []string `json:"recipients,omitempty"`
}

// Payload is the document persisted to the content store.
type Payload struct {
	Notification Display     `json:"notification"`
	Data         PayloadData `json:"data"`
}

// EncryptionContext exists only for one Secret send attempt.
type EncryptionContext struct {
	Secret        string
	PublicKey     string
	WrappedSecret string
}

// Identity is the compact string emitted on chain: "<tag>+<pointer>".
func Identity(t NotificationType, pointer string) string {
	return t.Tag() + "+" + pointer
}

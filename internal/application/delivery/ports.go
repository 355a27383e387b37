package delivery

import (
	"context"

	"github.com/notify-dapp/internal/domain"
)

// Crypto is the subset of the crypto helper the pipeline needs.
type Crypto interface {
	GenerateSecret(n int) (string, error)
	WrapSecret(secret, publicKeyHex string) (string, error)
	EncryptField(plaintext, secret string) (string, error)
}

// KeyResolver looks up a recipient's registered encryption key. An absent
// key is reported as found=false with a nil error.
type KeyResolver interface {
	PublicKey(ctx context.Context, address string) (key string, found bool, err error)
}

// ChannelReader reads channel metadata from the core contract.
type ChannelReader interface {
	Channel(ctx context.Context, address string) (*domain.Channel, error)
}

// Publisher uploads a serialized payload to a content-addressed store and
// returns its content pointer.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) (string, error)
}

// Transaction is a broadcast, not yet confirmed, send.
type Transaction interface {
	Hash() string
	// Wait blocks until one confirmation. A reverted transaction is an error.
	Wait(ctx context.Context) error
}

// Communicator submits sendNotification on one network.
type Communicator interface {
	SendNotification(ctx context.Context, sender, recipient string, identity []byte) (Transaction, error)
}

// Board is the status channel: one entry per attempt, overwritten on every transition.
type Board interface {
	Put(ctx context.Context, s domain.Status) error
	Get(ctx context.Context, attemptID string) (*domain.Status, error)
}

// DraftStore is what the pipeline needs from the draft session.
type DraftStore interface {
	Get(ctx context.Context, draftID string) (*domain.Draft, error)
	Reset(ctx context.Context, draftID string) error
}

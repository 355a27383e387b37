// Package delivery runs the notification delivery pipeline: validation, key
// resolution and encryption, payload composition, content publishing and the
// on-chain send, reporting every stage transition to the status board.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/notify-dapp/internal/domain"
	"github.com/notify-dapp/internal/pkg/cryptohelper"
	"github.com/notify-dapp/internal/pkg/id"
)

// Status lines of the pipeline.
const (
	msgPreparing        = "Preparing Notification"
	msgUploading        = "Uploading to IPFS..."
	msgUploadError      = "IPFS Upload Error"
	msgSending          = "Sending Transaction..."
	msgSent             = "Transaction Sent"
	msgMined            = "Transaction Mined / Notification Sent"
	msgNoKey            = "Unable to encrypt for this user, no public key registered"
	infoNoKey           = "Public Key Registration is required for encryption!"
	infoTxFailed        = "Transaction Failed, please try again"
	msgNetworkError     = "Unable to reach the network"
	msgChannelInactive  = "Channel Deactivated"
	infoChannelInactive = "This channel has been deactivated, please reactivate it!"
	msgChannelBlocked   = "Channel Blocked"
	infoChannelBlocked  = "This channel has been blocked and cannot send notifications"
)

type Service interface {
	// Send runs one attempt for the draft to a terminal stage and returns the final status.
	Send(ctx context.Context, draftID string) (*domain.Status, error)
	// Start begins an attempt in the background and returns its first status.
	// The attempt outlives ctx: a submitted transaction cannot be withdrawn.
	Start(ctx context.Context, draftID string) (*domain.Status, error)
	Status(ctx context.Context, attemptID string) (*domain.Status, error)
}

// ServiceDeps wires the pipeline collaborators. Channels is optional; when
// nil the channel state gate is skipped.
type ServiceDeps struct {
	Drafts        DraftStore
	Channels      ChannelReader
	Keys          KeyResolver
	Crypto        Crypto
	Publisher     Publisher
	Networks      Networks
	ActiveChainID int64
	Board         Board
	Logger        *slog.Logger
	SecretLength  int
	Now           func() time.Time
}

type service struct {
	deps     ServiceDeps
	composer Composer
	log      *slog.Logger

	mu       sync.Mutex
	inFlight map[string]string // draft id -> attempt id
}

func NewService(deps ServiceDeps) Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.SecretLength <= 0 {
		deps.SecretLength = cryptohelper.DefaultSecretLength
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		deps:     deps,
		composer: Composer{Fields: deps.Crypto},
		log:      deps.Logger,
		inFlight: make(map[string]string),
	}
}

// attempt is owned by exactly one run.
type attempt struct {
	draft  *domain.Draft
	status domain.Status
	log    *slog.Logger
}

func (s *service) Send(ctx context.Context, draftID string) (*domain.Status, error) {
	a, err := s.begin(ctx, draftID)
	if err != nil {
		return nil, err
	}
	s.run(ctx, a)
	st := a.status
	return &st, nil
}

func (s *service) Start(ctx context.Context, draftID string) (*domain.Status, error) {
	a, err := s.begin(ctx, draftID)
	if err != nil {
		return nil, err
	}
	first := a.status
	go s.run(context.WithoutCancel(ctx), a)
	return &first, nil
}

func (s *service) Status(ctx context.Context, attemptID string) (*domain.Status, error) {
	return s.deps.Board.Get(ctx, attemptID)
}

// begin claims the draft for a new attempt and reports Preparing.
func (s *service) begin(ctx context.Context, draftID string) (*attempt, error) {
	d, err := s.deps.Drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	attemptID := id.New()

	s.mu.Lock()
	if running, ok := s.inFlight[draftID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("attempt %s already in flight: %w", running, domain.ErrConflict)
	}
	s.inFlight[draftID] = attemptID
	s.mu.Unlock()

	now := s.deps.Now()
	a := &attempt{
		draft: d,
		status: domain.Status{
			AttemptID: attemptID,
			DraftID:   draftID,
			Type:      d.Type.Tag(),
			CreatedAt: now,
		},
		log: s.log.With("attempt_id", attemptID, "draft_id", draftID, "type", d.Type.Tag()),
	}
	s.advance(ctx, a, domain.StagePreparing, domain.LevelInfo, msgPreparing)
	return a, nil
}

func (s *service) run(ctx context.Context, a *attempt) {
	defer s.release(a)
	d := a.draft

	// validation is local and runs before any chain read
	if err := Validate(d); err != nil {
		var ve *ValidationError
		errors.As(err, &ve)
		s.finish(ctx, a, domain.StageValidationFailed, ve.Message, ve.Info, nil)
		return
	}

	if ok := s.checkChannel(ctx, a); !ok {
		return
	}

	var enc *domain.EncryptionContext
	if d.Type == domain.TypeSecret {
		var ok bool
		if enc, ok = s.encryption(ctx, a); !ok {
			return
		}
	}

	// resolve the send target before publishing so nothing is pinned for an
	// attempt that cannot be submitted
	comm, err := s.deps.Networks.Select(s.deps.ActiveChainID)
	if err != nil {
		s.failTransaction(ctx, a, err)
		return
	}
	recipient := d.Recipient
	if d.Type.SendsToSelf() {
		recipient = d.Channel
	}
	if recipient == "" {
		s.failTransaction(ctx, a, fmt.Errorf("no recipient address: %w", domain.ErrTransaction))
		return
	}

	payload, err := s.composer.Compose(d, enc)
	if err != nil {
		s.finish(ctx, a, domain.StageValidationFailed, "Unable to compose notification", err.Error(), err)
		return
	}
	body, err := Serialize(payload)
	if err != nil {
		s.finish(ctx, a, domain.StageValidationFailed, "Unable to compose notification", err.Error(), err)
		return
	}

	s.advance(ctx, a, domain.StageUploading, domain.LevelInfo, msgUploading)
	pointer, err := s.deps.Publisher.Publish(ctx, body)
	if err != nil {
		s.finish(ctx, a, domain.StageUploadFailed, msgUploadError, msgUploadError, err)
		return
	}
	a.status.Pointer = pointer
	a.log.Info("payload published", "pointer", pointer)

	identity := domain.Identity(d.Type, pointer)

	s.advance(ctx, a, domain.StageSubmitting, domain.LevelInfo, msgSending)
	tx, err := comm.SendNotification(ctx, d.Channel, recipient, []byte(identity))
	if err != nil {
		s.failTransaction(ctx, a, err)
		return
	}
	a.status.TxHash = tx.Hash()
	s.advance(ctx, a, domain.StageSubmitted, domain.LevelInfo, msgSent)

	if err := tx.Wait(ctx); err != nil {
		s.failTransaction(ctx, a, err)
		return
	}

	if err := s.deps.Drafts.Reset(ctx, d.DraftID); err != nil {
		a.log.Warn("failed to reset draft after mined send", "err", err)
	}
	s.finish(ctx, a, domain.StageMined, msgMined, "Notification Sent", nil)
}

// checkChannel refuses sends from deactivated or blocked channels.
func (s *service) checkChannel(ctx context.Context, a *attempt) bool {
	if s.deps.Channels == nil {
		return true
	}
	ch, err := s.deps.Channels.Channel(ctx, a.draft.Channel)
	if err != nil {
		s.finish(ctx, a, domain.StageNetworkFailed, msgNetworkError, "Network error, please try again", err)
		return false
	}
	switch {
	case ch.Deactivated():
		s.finish(ctx, a, domain.StageValidationFailed, msgChannelInactive, infoChannelInactive, nil)
		return false
	case ch.Blocked():
		s.finish(ctx, a, domain.StageValidationFailed, msgChannelBlocked, infoChannelBlocked, nil)
		return false
	}
	return true
}

// encryption resolves the recipient key and wraps a fresh secret for it.
func (s *service) encryption(ctx context.Context, a *attempt) (*domain.EncryptionContext, bool) {
	key, found, err := s.deps.Keys.PublicKey(ctx, a.draft.Recipient)
	if err != nil {
		s.finish(ctx, a, domain.StageNetworkFailed, msgNetworkError, "Network error, please try again", err)
		return nil, false
	}
	if !found {
		s.finish(ctx, a, domain.StageKeyNotRegistered, msgNoKey, infoNoKey, domain.ErrKeyNotRegistered)
		return nil, false
	}
	secret, err := s.deps.Crypto.GenerateSecret(s.deps.SecretLength)
	if err != nil {
		s.finish(ctx, a, domain.StageKeyNotRegistered, "Unable to encrypt for this user", err.Error(), err)
		return nil, false
	}
	wrapped, err := s.deps.Crypto.WrapSecret(secret, key)
	if err != nil {
		s.finish(ctx, a, domain.StageKeyNotRegistered, "Unable to encrypt for this user, registered public key is invalid", infoNoKey, err)
		return nil, false
	}
	return &domain.EncryptionContext{Secret: secret, PublicKey: key, WrappedSecret: wrapped}, true
}

func (s *service) failTransaction(ctx context.Context, a *attempt, err error) {
	s.finish(ctx, a, domain.StageTransactionFailed, "Transaction Failed: "+err.Error(), infoTxFailed, err)
}

// advance moves the attempt to a non-terminal stage and overwrites its board entry.
func (s *service) advance(ctx context.Context, a *attempt, stage domain.Stage, level domain.Level, msg string) {
	a.status.Stage = stage
	a.status.Level = level
	a.status.Message = msg
	a.status.UpdatedAt = s.deps.Now()
	a.log.Info("delivery stage", "stage", stage)
	s.publish(ctx, a)
}

// finish moves the attempt to a terminal stage. The draft is released before
// the final status is published so a client reading it can resubmit at once.
func (s *service) finish(ctx context.Context, a *attempt, stage domain.Stage, msg, info string, cause error) {
	a.status.Stage = stage
	a.status.Message = msg
	a.status.Info = info
	a.status.UpdatedAt = s.deps.Now()
	if stage.Failed() {
		a.status.Level = domain.LevelError
		if cause != nil {
			a.status.Error = cause.Error()
		}
		a.log.Warn("delivery failed", "stage", stage, "err", cause)
	} else {
		a.status.Level = domain.LevelSuccess
		a.log.Info("delivery complete", "stage", stage, "tx_hash", a.status.TxHash)
	}
	s.release(a)
	s.publish(ctx, a)
}

func (s *service) publish(ctx context.Context, a *attempt) {
	if err := s.deps.Board.Put(ctx, a.status); err != nil {
		a.log.Warn("failed to update status board", "stage", a.status.Stage, "err", err)
	}
}

func (s *service) release(a *attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[a.draft.DraftID] == a.status.AttemptID {
		delete(s.inFlight, a.draft.DraftID)
	}
}

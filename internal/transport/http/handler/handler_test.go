package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/notify-dapp/internal/application/draft"
	"github.com/notify-dapp/internal/config"
	"github.com/notify-dapp/internal/domain"
	jwtinfra "github.com/notify-dapp/internal/infrastructure/jwt"
	"github.com/notify-dapp/internal/transport/http/middleware"
)

const (
	channelAddr = "0x52908400098527886E0F7030069857D2E4169EE7"
	otherAddr   = "0xde709f2102306220921060314715629080e2fb77"
)

// --- mocks ---

type mockDelivery struct{ mock.Mock }

func (m *mockDelivery) Send(ctx context.Context, draftID string) (*domain.Status, error) {
	args := m.Called(ctx, draftID)
	st, _ := args.Get(0).(*domain.Status)
	return st, args.Error(1)
}

func (m *mockDelivery) Start(ctx context.Context, draftID string) (*domain.Status, error) {
	args := m.Called(ctx, draftID)
	st, _ := args.Get(0).(*domain.Status)
	return st, args.Error(1)
}

func (m *mockDelivery) Status(ctx context.Context, attemptID string) (*domain.Status, error) {
	args := m.Called(ctx, attemptID)
	st, _ := args.Get(0).(*domain.Status)
	return st, args.Error(1)
}

type mockLister struct{ mock.Mock }

func (m *mockLister) ListByDraft(ctx context.Context, draftID string) ([]domain.Status, error) {
	args := m.Called(ctx, draftID)
	list, _ := args.Get(0).([]domain.Status)
	return list, args.Error(1)
}

type mockChain struct{ mock.Mock }

func (m *mockChain) Channel(ctx context.Context, address string) (*domain.Channel, error) {
	args := m.Called(ctx, address)
	ch, _ := args.Get(0).(*domain.Channel)
	return ch, args.Error(1)
}

func (m *mockChain) PublicKey(ctx context.Context, address string) (string, bool, error) {
	args := m.Called(ctx, address)
	return args.String(0), args.Bool(1), args.Error(2)
}

type mockFetcher struct{ mock.Mock }

func (m *mockFetcher) Fetch(ctx context.Context, pointer string) ([]byte, error) {
	args := m.Called(ctx, pointer)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

// --- helpers ---

func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))
	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         time.Hour,
	})
	require.NoError(t, err)
	return p
}

// withChiParams injects chi URL params into the request context.
func withChiParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonReq(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, target, nil)
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(method, target, bytes.NewReader(b))
}

func newDraft(t *testing.T, store *draft.Store) *domain.Draft {
	t.Helper()
	d, err := store.Create(context.Background(), channelAddr)
	require.NoError(t, err)
	return d
}

// --- health ---

func TestPing(t *testing.T) {
	h := NewHealthHandler(HealthInfo{ActiveChainID: 42, ContentStore: "ipfs", StatusStore: "memory"})
	rr := httptest.NewRecorder()
	h.Ping(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil), "action", "ping"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Ping(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/v1/health-check/config", nil), "action", "config"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"active_chain_id":42,"content_store":"ipfs","status_store":"memory","auth":false}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Ping(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/v1/health-check/x", nil), "action", "x"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// --- drafts ---

func TestDraftCreate(t *testing.T) {
	h := NewDraftHandler(draft.NewStore())

	rr := httptest.NewRecorder()
	h.Create(rr, jsonReq(t, http.MethodPost, "/v1/drafts", map[string]string{"channel": channelAddr}))
	require.Equal(t, http.StatusCreated, rr.Code)
	var d domain.Draft
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&d))
	assert.NotEmpty(t, d.DraftID)
	assert.Equal(t, channelAddr, d.Channel)
}

func TestDraftCreate_InvalidChannel(t *testing.T) {
	h := NewDraftHandler(draft.NewStore())

	rr := httptest.NewRecorder()
	h.Create(rr, jsonReq(t, http.MethodPost, "/v1/drafts", map[string]string{"channel": "nope"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/v1/drafts", bytes.NewBufferString("not-json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDraftCreate_TokenForOtherChannel(t *testing.T) {
	p := newTestJWTProvider(t)
	tok, err := p.Sign("ops", otherAddr)
	require.NoError(t, err)
	h := NewDraftHandler(draft.NewStore())

	r := jsonReq(t, http.MethodPost, "/v1/drafts", map[string]string{"channel": channelAddr})
	r.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	middleware.Auth(p)(http.HandlerFunc(h.Create)).ServeHTTP(rr, r)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDraftSetTypeAndFields(t *testing.T) {
	store := draft.NewStore()
	d := newDraft(t, store)
	h := NewDraftHandler(store)

	rr := httptest.NewRecorder()
	h.SetType(rr, withChiParams(jsonReq(t, http.MethodPut, "/", map[string]string{"type": "3"}), "id", d.DraftID))
	require.Equal(t, http.StatusOK, rr.Code)

	body := "Hello"
	recipient := otherAddr
	rr = httptest.NewRecorder()
	h.UpdateFields(rr, withChiParams(jsonReq(t, http.MethodPut, "/", draft.FieldsInput{Body: &body, Recipient: &recipient}), "id", d.DraftID))
	require.Equal(t, http.StatusOK, rr.Code)

	var got domain.Draft
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, domain.TypeTargeted, got.Type)
	assert.Equal(t, "Hello", got.Body)
	assert.Equal(t, otherAddr, got.Recipient)
}

func TestDraftSetType_Invalid(t *testing.T) {
	store := draft.NewStore()
	d := newDraft(t, store)
	h := NewDraftHandler(store)

	for _, tag := range []string{"0", "9", ""} {
		rr := httptest.NewRecorder()
		h.SetType(rr, withChiParams(jsonReq(t, http.MethodPut, "/", map[string]string{"type": tag}), "id", d.DraftID))
		assert.Equal(t, http.StatusBadRequest, rr.Code, tag)
	}
}

func TestDraftRecipients(t *testing.T) {
	store := draft.NewStore()
	d := newDraft(t, store)
	_, err := store.SetType(context.Background(), d.DraftID, domain.TypeSubset)
	require.NoError(t, err)
	h := NewDraftHandler(store)

	for _, in := range []recipientInputRequest{
		{Text: "0xA", Key: "Enter"},
		{Text: "0xB", Key: ","},
		{Text: "0xA", Key: "Enter"},
	} {
		rr := httptest.NewRecorder()
		h.InputRecipient(rr, withChiParams(jsonReq(t, http.MethodPost, "/", in), "id", d.DraftID))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	h.RemoveRecipient(rr, withChiParams(httptest.NewRequest(http.MethodDelete, "/", nil), "id", d.DraftID, "address", "0xA"))
	require.Equal(t, http.StatusOK, rr.Code)

	var got domain.Draft
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, []string{"0xB"}, got.Recipients.List())
}

func TestDraftGet_NotFound(t *testing.T) {
	h := NewDraftHandler(draft.NewStore())
	rr := httptest.NewRecorder()
	h.Get(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", "missing"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- attempts ---

func TestAttemptSend_Accepted(t *testing.T) {
	store := draft.NewStore()
	d := newDraft(t, store)
	svc := &mockDelivery{}
	svc.On("Start", mock.Anything, d.DraftID).
		Return(&domain.Status{AttemptID: "a1", DraftID: d.DraftID, Stage: domain.StagePreparing}, nil)
	h := NewAttemptHandler(store, svc, &mockLister{})

	rr := httptest.NewRecorder()
	h.Send(rr, withChiParams(httptest.NewRequest(http.MethodPost, "/", nil), "id", d.DraftID))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "/v1/attempts/a1", rr.Header().Get("Location"))
	var st domain.Status
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&st))
	assert.Equal(t, domain.StagePreparing, st.Stage)
	svc.AssertExpectations(t)
}

func TestAttemptSend_InFlightConflict(t *testing.T) {
	store := draft.NewStore()
	d := newDraft(t, store)
	svc := &mockDelivery{}
	svc.On("Start", mock.Anything, d.DraftID).Return(nil, domain.ErrConflict)
	h := NewAttemptHandler(store, svc, &mockLister{})

	rr := httptest.NewRecorder()
	h.Send(rr, withChiParams(httptest.NewRequest(http.MethodPost, "/", nil), "id", d.DraftID))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAttemptSend_UnknownDraft(t *testing.T) {
	svc := &mockDelivery{}
	h := NewAttemptHandler(draft.NewStore(), svc, &mockLister{})

	rr := httptest.NewRecorder()
	h.Send(rr, withChiParams(httptest.NewRequest(http.MethodPost, "/", nil), "id", "missing"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	svc.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestAttemptGet(t *testing.T) {
	store := draft.NewStore()
	d := newDraft(t, store)
	svc := &mockDelivery{}
	svc.On("Status", mock.Anything, "a1").
		Return(&domain.Status{AttemptID: "a1", DraftID: d.DraftID, Stage: domain.StageMined, TxHash: "0xabc"}, nil)
	svc.On("Status", mock.Anything, "nope").Return(nil, domain.ErrNotFound)
	h := NewAttemptHandler(store, svc, &mockLister{})

	rr := httptest.NewRecorder()
	h.Get(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", "a1"))
	require.Equal(t, http.StatusOK, rr.Code)
	var st domain.Status
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&st))
	assert.Equal(t, "0xabc", st.TxHash)

	rr = httptest.NewRecorder()
	h.Get(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", "nope"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAttemptListByDraft(t *testing.T) {
	store := draft.NewStore()
	d := newDraft(t, store)
	lister := &mockLister{}
	lister.On("ListByDraft", mock.Anything, d.DraftID).
		Return([]domain.Status{{AttemptID: "a2"}, {AttemptID: "a1"}}, nil)
	h := NewAttemptHandler(store, &mockDelivery{}, lister)

	rr := httptest.NewRecorder()
	h.ListByDraft(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", d.DraftID))
	require.Equal(t, http.StatusOK, rr.Code)
	var env AttemptsEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.Len(t, env.Attempts, 2)
	assert.Equal(t, "a2", env.Attempts[0].AttemptID)
}

// --- channels ---

func TestChannelGet(t *testing.T) {
	chain := &mockChain{}
	chain.On("Channel", mock.Anything, channelAddr).
		Return(&domain.Channel{Address: channelAddr, State: domain.ChannelActive}, nil)
	chain.On("Channel", mock.Anything, otherAddr).Return(nil, errors.Join(domain.ErrNetwork, errors.New("rpc down")))
	h := NewChannelHandler(chain, chain)

	rr := httptest.NewRecorder()
	h.Get(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/", nil), "address", channelAddr))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.Get(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/", nil), "address", otherAddr))
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	rr = httptest.NewRecorder()
	h.Get(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/", nil), "address", "bad"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChannelKey(t *testing.T) {
	chain := &mockChain{}
	chain.On("PublicKey", mock.Anything, otherAddr).Return("0x04ab", true, nil)
	h := NewChannelHandler(chain, chain)

	rr := httptest.NewRecorder()
	h.Key(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/", nil), "address", otherAddr))
	require.Equal(t, http.StatusOK, rr.Code)
	var env KeyEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.True(t, env.Registered)
	assert.Equal(t, "0x04ab", env.PublicKey)
}

// --- payloads ---

func TestPayloadGet(t *testing.T) {
	f := &mockFetcher{}
	f.On("Fetch", mock.Anything, "bafkrei").Return([]byte(`{"data":{"type":"1"}}`), nil)
	f.On("Fetch", mock.Anything, "bad").Return(nil, domain.ErrBadRequest)
	h := NewPayloadHandler(f)

	rr := httptest.NewRecorder()
	h.Get(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/", nil), "pointer", "bafkrei"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":{"type":"1"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Get(rr, withChiParams(httptest.NewRequest(http.MethodGet, "/", nil), "pointer", "bad"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHTTPError_Mapping(t *testing.T) {
	cases := map[error]int{
		domain.ErrNotFound:    http.StatusNotFound,
		domain.ErrConflict:    http.StatusConflict,
		domain.ErrBadRequest:  http.StatusBadRequest,
		domain.ErrValidation:  http.StatusUnprocessableEntity,
		domain.ErrNetwork:     http.StatusBadGateway,
		errors.New("unknown"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		rr := httptest.NewRecorder()
		httpError(rr, err)
		assert.Equal(t, want, rr.Code, err.Error())
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/notify-dapp/internal/application/delivery"
	"github.com/notify-dapp/internal/application/draft"
	"github.com/notify-dapp/internal/config"
	"github.com/notify-dapp/internal/domain"
	"github.com/notify-dapp/internal/infrastructure/status"
	"github.com/notify-dapp/internal/pkg/cryptohelper"
)

const channelAddr = "0x52908400098527886E0F7030069857D2E4169EE7"

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, []byte) (string, error) { return "bafkreipointer", nil }

type stubTx struct{}

func (stubTx) Hash() string               { return "0xfeed" }
func (stubTx) Wait(context.Context) error { return nil }

type mockComm struct{ mock.Mock }

func (m *mockComm) SendNotification(ctx context.Context, sender, recipient string, identity []byte) (delivery.Transaction, error) {
	args := m.Called(ctx, sender, recipient, identity)
	tx, _ := args.Get(0).(delivery.Transaction)
	return tx, args.Error(1)
}

func newTestServer(t *testing.T, comm *mockComm) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	drafts := draft.NewStore()
	board := status.NewMemoryBoard()
	svc := delivery.NewService(delivery.ServiceDeps{
		Drafts:        drafts,
		Crypto:        cryptohelper.New(),
		Publisher:     stubPublisher{},
		Networks:      delivery.Networks{CommunicatorChainID: 42, Communicator: comm},
		ActiveChainID: 42,
		Board:         board,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	cfg := &config.Config{AllowedOrigins: []string{"*"}, SendRatePerSecond: 10, SendRateBurst: 10}
	srv := httptest.NewServer(NewRouter(ctx, cfg, &Deps{Drafts: drafts, Delivery: svc, Attempts: board}))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRouter_BroadcastEndToEnd(t *testing.T) {
	comm := &mockComm{}
	comm.On("SendNotification", mock.Anything, channelAddr, channelAddr, []byte("1+bafkreipointer")).Return(stubTx{}, nil)
	srv := newTestServer(t, comm)

	var d domain.Draft
	require.Equal(t, http.StatusCreated, call(t, http.MethodPost, srv.URL+"/v1/drafts", map[string]string{"channel": channelAddr}, &d))
	require.Equal(t, http.StatusOK, call(t, http.MethodPut, srv.URL+"/v1/drafts/"+d.DraftID+"/type", map[string]string{"type": "1"}, nil))
	require.Equal(t, http.StatusOK, call(t, http.MethodPut, srv.URL+"/v1/drafts/"+d.DraftID+"/fields", map[string]string{"body": "Hello"}, nil))

	var first domain.Status
	require.Equal(t, http.StatusAccepted, call(t, http.MethodPost, srv.URL+"/v1/drafts/"+d.DraftID+"/send", nil, &first))
	assert.Equal(t, domain.StagePreparing, first.Stage)

	assert.Eventually(t, func() bool {
		var st domain.Status
		code := call(t, http.MethodGet, srv.URL+"/v1/attempts/"+first.AttemptID, nil, &st)
		return code == http.StatusOK && st.Stage == domain.StageMined && st.TxHash == "0xfeed"
	}, 2*time.Second, 20*time.Millisecond)

	var hist struct {
		Attempts []domain.Status `json:"attempts"`
	}
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, srv.URL+"/v1/drafts/"+d.DraftID+"/attempts", nil, &hist))
	assert.Len(t, hist.Attempts, 1)
}

func TestRouter_ValidationFailureIsReported(t *testing.T) {
	comm := &mockComm{}
	srv := newTestServer(t, comm)

	var d domain.Draft
	require.Equal(t, http.StatusCreated, call(t, http.MethodPost, srv.URL+"/v1/drafts", map[string]string{"channel": channelAddr}, &d))
	require.Equal(t, http.StatusOK, call(t, http.MethodPut, srv.URL+"/v1/drafts/"+d.DraftID+"/type", map[string]string{"type": "4"}, nil))
	require.Equal(t, http.StatusOK, call(t, http.MethodPut, srv.URL+"/v1/drafts/"+d.DraftID+"/fields", map[string]string{"body": "Hello"}, nil))

	var first domain.Status
	require.Equal(t, http.StatusAccepted, call(t, http.MethodPost, srv.URL+"/v1/drafts/"+d.DraftID+"/send", nil, &first))
	assert.Eventually(t, func() bool {
		var st domain.Status
		call(t, http.MethodGet, srv.URL+"/v1/attempts/"+first.AttemptID, nil, &st)
		return st.Stage == domain.StageValidationFailed
	}, 2*time.Second, 20*time.Millisecond)
	comm.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_HealthAndOptionalRoutes(t *testing.T) {
	srv := newTestServer(t, &mockComm{})

	var msg map[string]string
	assert.Equal(t, http.StatusOK, call(t, http.MethodGet, srv.URL+"/v1/health-check/ping", nil, &msg))
	assert.Equal(t, "pong", msg["message"])

	resp, err := http.Get(srv.URL + "/v1/channels/" + channelAddr)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func sendStatuses(t *testing.T, cfg *config.Config, n int) []int {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	router := NewRouter(ctx, cfg, &Deps{Drafts: draft.NewStore(), Attempts: status.NewMemoryBoard()})

	codes := make([]int, 0, n)
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/drafts/unknown/send", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	return codes
}

func TestRouter_SendLimitIgnoresForwardedHeadersByDefault(t *testing.T) {
	cfg := &config.Config{AllowedOrigins: []string{"*"}, SendRatePerSecond: 0, SendRateBurst: 1}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusTooManyRequests, http.StatusTooManyRequests}, sendStatuses(t, cfg, 3))
}

func TestRouter_SendLimitHonoursTrustedProxy(t *testing.T) {
	cfg := &config.Config{AllowedOrigins: []string{"*"}, SendRatePerSecond: 0, SendRateBurst: 1, TrustProxyHeaders: true}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusNotFound}, sendStatuses(t, cfg, 3))
}

package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lpbot/internal/crypto"
	"github.com/alanyoungcy/lpbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type daemon struct {
	auth          *crypto.HMACAuth
	addressCalls  atomic.Int32
	deposits      []depositRequest
	rejectDeposit bool

	// When set, the first address request signals entered and waits for
	// release before answering.
	entered chan struct{}
	release chan struct{}
}

func (d *daemon) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	check := func(w http.ResponseWriter, r *http.Request, body string) bool {
		if !d.auth.Verify(r.Method, r.URL.Path, body, r.Header.Get(crypto.HeaderTimestamp), r.Header.Get(crypto.HeaderSignature)) {
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return false
		}
		return true
	}
	mux.HandleFunc("GET /v1/chains/THOR/address", func(w http.ResponseWriter, r *http.Request) {
		if !check(w, r, "") {
			return
		}
		if d.addressCalls.Add(1) == 1 && d.release != nil {
			d.entered <- struct{}{}
			<-d.release
		}
		_, _ = w.Write([]byte(`{"address":"thor1daemon"}`))
	})
	mux.HandleFunc("POST /v1/chains/THOR/deposits", func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if !check(w, r, string(raw)) {
			return
		}
		if d.rejectDeposit {
			http.Error(w, "insufficient funds", http.StatusUnprocessableEntity)
			return
		}
		var req depositRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		d.deposits = append(d.deposits, req)
		_, _ = w.Write([]byte(`{"tx_id":"ABCDEF"}`))
	})
	return mux
}

func newTestClient(t *testing.T, d *daemon, clientAuth *crypto.HMACAuth) *Client {
	t.Helper()
	srv := httptest.NewServer(d.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(domain.ChainTHOR, srv.URL, clientAuth, 0, testLogger())
}

func TestClient_AddressIsResolvedOnce(t *testing.T) {
	auth := &crypto.HMACAuth{Key: "k", Secret: "s3cret"}
	d := &daemon{auth: auth}
	c := newTestClient(t, d, auth)

	for i := 0; i < 3; i++ {
		addr, err := c.Address(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "thor1daemon", addr)
	}
	assert.Equal(t, int32(1), d.addressCalls.Load())
}

func TestClient_SlowAddressLookupDoesNotBlockOthers(t *testing.T) {
	auth := &crypto.HMACAuth{Key: "k", Secret: "s3cret"}
	d := &daemon{auth: auth, entered: make(chan struct{}), release: make(chan struct{})}
	c := newTestClient(t, d, auth)

	slow := make(chan error, 1)
	go func() {
		_, err := c.Address(context.Background())
		slow <- err
	}()
	<-d.entered
	defer close(d.release)

	fast := make(chan string, 1)
	go func() {
		addr, err := c.Address(context.Background())
		if err != nil {
			addr = err.Error()
		}
		fast <- addr
	}()

	select {
	case addr := <-fast:
		assert.Equal(t, "thor1daemon", addr)
	case <-time.After(2 * time.Second):
		t.Fatal("address lookup blocked behind a slow request")
	}

	d.release <- struct{}{}
	require.NoError(t, <-slow)
}

func TestClient_Deposit(t *testing.T) {
	auth := &crypto.HMACAuth{Key: "k", Secret: "s3cret"}
	d := &daemon{auth: auth}
	c := newTestClient(t, d, auth)

	amount, err := domain.ParseAmount(domain.AssetRune, "12.5")
	require.NoError(t, err)
	txID, err := c.BuildAndBroadcast(context.Background(), domain.Deposit{
		From: "thor1daemon", Amount: amount, Memo: "ADD:BTC.BTC:bc1q",
	})
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", txID)

	require.Len(t, d.deposits, 1)
	got := d.deposits[0]
	assert.Equal(t, "THOR.RUNE", got.Asset)
	assert.Equal(t, "1250000000", got.Amount)
	assert.Equal(t, int32(8), got.Decimals)
	assert.Equal(t, "ADD:BTC.BTC:bc1q", got.Memo)
	assert.Empty(t, got.To)
}

func TestClient_Errors(t *testing.T) {
	auth := &crypto.HMACAuth{Key: "k", Secret: "s3cret"}

	c := newTestClient(t, &daemon{auth: auth}, &crypto.HMACAuth{Key: "k", Secret: "wrong"})
	_, err := c.Address(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	c = newTestClient(t, &daemon{auth: auth, rejectDeposit: true}, auth)
	_, err = c.BuildAndBroadcast(context.Background(), domain.Deposit{Amount: domain.ZeroAmount(domain.AssetRune)})
	assert.ErrorIs(t, err, domain.ErrSigningFailed)

	btc := NewClient(domain.ChainBTC, c.baseURL, auth, 0, testLogger())
	_, err = btc.Address(context.Background())
	assert.ErrorIs(t, err, domain.ErrChainNotConfigured)
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (s *recordingSender) Send(_ context.Context, title, _ string) error {
	s.titles = append(s.titles, title)
	return s.err
}

func (s *recordingSender) Name() string { return s.name }

func partialRecord() domain.ActionRecord {
	return domain.ActionRecord{
		ID:     "act-7",
		Action: domain.ActionAdd,
		Pool:   "BTC.BTC",
		Mode:   domain.ModeSymmetric,
		Status: domain.OutcomePartialSuccess,
		Stage:  domain.StageObserving,
		Legs: []domain.LegRecord{
			{Role: domain.LegRoleAsset, Chain: domain.ChainBTC, Amount: "0.1 BTC.BTC", TxID: "BTCTX", Attempted: true},
			{Role: domain.LegRoleRune, Chain: domain.ChainTHOR, Amount: "100 THOR.RUNE", Error: "leg observation timed out"},
		},
	}
}

func TestNotifier_DefaultsToPartialSuccessOnly(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	require.NoError(t, n.NotifyAction(context.Background(), partialRecord()))

	ok := partialRecord()
	ok.Status = domain.OutcomeSuccess
	require.NoError(t, n.NotifyAction(context.Background(), ok))

	assert.Equal(t, []string{"PARTIAL add BTC.BTC (symmetric)"}, s.titles)
	assert.True(t, n.Enabled(EventPartialSuccess))
	assert.False(t, n.Enabled(EventSuccess))
}

func TestNotifier_OneFailingSenderDoesNotStopOthers(t *testing.T) {
	boom := errors.New("boom")
	bad := &recordingSender{name: "bad", err: boom}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, []string{EventFailed}, testLogger())

	err := n.Notify(context.Background(), EventFailed, "t", "m")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, good.titles, 1)
}

func TestActionMessage(t *testing.T) {
	msg := ActionMessage(partialRecord())
	assert.Contains(t, msg, "asset leg on BTC: 0.1 BTC.BTC tx BTCTX")
	assert.Contains(t, msg, "rune leg on THOR: 100 THOR.RUNE FAILED: leg observation timed out")
	assert.Contains(t, msg, "reconcile manually")
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42")
	s.apiBase = srv.URL
	require.NoError(t, s.Send(context.Background(), "title", "body"))
	assert.Equal(t, "42", got["chat_id"])
	assert.True(t, strings.HasPrefix(got["text"], "*title*"))
}

func TestDiscordSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "title", strings.Repeat("x", 5000)))
	assert.Len(t, got["content"], discordMaxContent)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer failing.Close()
	err := NewDiscordSender(failing.URL).Send(context.Background(), "t", "m")
	assert.ErrorContains(t, err, "429")
}

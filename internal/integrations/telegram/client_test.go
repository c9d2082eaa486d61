package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"calendar-bridge/internal/domain"
)

// fakeSecrets is a minimal SecretGetter stub for use within this package.
type fakeSecrets struct {
	val    string
	err    error
	calls  int
	lastNm string
}

func (f *fakeSecrets) GetSecret(_ context.Context, name, _ string) (string, error) {
	f.calls++
	f.lastNm = name
	return f.val, f.err
}

func mustClient(t *testing.T, secrets SecretGetter, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(secrets, "/bridge", WithBaseURL(baseURL))
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// chunkText
// ---------------------------------------------------------------------------

func TestChunkText(t *testing.T) {
	cases := []struct {
		name  string
		input string
		size  int
		want  []string
	}{
		{name: "empty", input: "", size: 4, want: []string{""}},
		{name: "under limit", input: "abc", size: 4, want: []string{"abc"}},
		{name: "at limit", input: "abcd", size: 4, want: []string{"abcd"}},
		{name: "one over", input: "abcde", size: 4, want: []string{"abcd", "e"}},
		{name: "exact multiple", input: "abcdefgh", size: 4, want: []string{"abcd", "efgh"}},
		{name: "multibyte runes not split", input: "日本語のカレンダー", size: 4, want: []string{"日本語の", "カレンダー"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, chunkText(tc.input, tc.size))
		})
	}
}

func TestChunkText_CeilCount(t *testing.T) {
	// L > limit must produce ceil(L/limit) ordered chunks.
	text := strings.Repeat("x", maxMessageLen*2+1)
	chunks := chunkText(text, maxMessageLen)
	require.Len(t, chunks, 3)
	require.Equal(t, text, strings.Join(chunks, ""))
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient(nil, "/bridge")
	require.Error(t, err)

	_, err = NewClient(&fakeSecrets{}, "  ")
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// SendMessage
// ---------------------------------------------------------------------------

type recordedSend struct {
	path string
	body sendMessageRequest
}

func newBotServer(t *testing.T, status int, respBody string) (*httptest.Server, *[]recordedSend) {
	t.Helper()
	var sends []recordedSend
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req sendMessageRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		sends = append(sends, recordedSend{path: r.URL.Path, body: req})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &sends
}

func TestSendMessage_SingleChunk(t *testing.T) {
	srv, sends := newBotServer(t, http.StatusOK, `{"ok":true}`)
	secrets := &fakeSecrets{val: "bot-token"}
	c := mustClient(t, secrets, srv.URL)

	err := c.SendMessage(context.Background(), "42", "hello there", domain.ReplyOptions{})
	require.NoError(t, err)
	require.Len(t, *sends, 1)
	require.Equal(t, "/botbot-token/sendMessage", (*sends)[0].path)
	require.Equal(t, "42", (*sends)[0].body.ChatID)
	require.Equal(t, "hello there", (*sends)[0].body.Text)
	require.Nil(t, (*sends)[0].body.ReplyMarkup)
	require.Equal(t, "/bridge/telegram-bot-token", secrets.lastNm)
}

func TestSendMessage_TokenFetchedOnce(t *testing.T) {
	srv, _ := newBotServer(t, http.StatusOK, `{"ok":true}`)
	secrets := &fakeSecrets{val: "bot-token"}
	c := mustClient(t, secrets, srv.URL)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.SendMessage(context.Background(), "42", "hi", domain.ReplyOptions{}))
	}
	require.Equal(t, 1, secrets.calls, "SSM must only be called once per process lifetime")
}

func TestSendMessage_LongTextChunkedInOrder(t *testing.T) {
	srv, sends := newBotServer(t, http.StatusOK, `{"ok":true}`)
	c := mustClient(t, &fakeSecrets{val: "bot-token"}, srv.URL)

	text := strings.Repeat("a", maxMessageLen) + strings.Repeat("b", 10)
	err := c.SendMessage(context.Background(), "42", text, domain.ReplyOptions{})
	require.NoError(t, err)
	require.Len(t, *sends, 2)
	require.Equal(t, strings.Repeat("a", maxMessageLen), (*sends)[0].body.Text)
	require.Equal(t, strings.Repeat("b", 10), (*sends)[1].body.Text)
}

func TestSendMessage_LinkButtonOnFinalChunk(t *testing.T) {
	srv, sends := newBotServer(t, http.StatusOK, `{"ok":true}`)
	c := mustClient(t, &fakeSecrets{val: "bot-token"}, srv.URL)

	opts := domain.ReplyOptions{LinkButton: &domain.LinkButton{Label: "Connect", URL: "https://example.com/auth"}}
	text := strings.Repeat("a", maxMessageLen+1)
	require.NoError(t, c.SendMessage(context.Background(), "42", text, opts))
	require.Len(t, *sends, 2)
	require.Nil(t, (*sends)[0].body.ReplyMarkup)
	require.NotNil(t, (*sends)[1].body.ReplyMarkup)
	require.Equal(t, "Connect", (*sends)[1].body.ReplyMarkup.InlineKeyboard[0][0].Text)
	require.Equal(t, "https://example.com/auth", (*sends)[1].body.ReplyMarkup.InlineKeyboard[0][0].URL)
}

func TestSendMessage_APIError(t *testing.T) {
	srv, _ := newBotServer(t, http.StatusBadRequest, `{"ok":false,"description":"chat not found"}`)
	c := mustClient(t, &fakeSecrets{val: "bot-token"}, srv.URL)

	err := c.SendMessage(context.Background(), "42", "hi", domain.ReplyOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "chat not found")
}

func TestSendMessage_TokenError(t *testing.T) {
	srv, sends := newBotServer(t, http.StatusOK, `{"ok":true}`)
	c := mustClient(t, &fakeSecrets{err: io.ErrUnexpectedEOF}, srv.URL)

	err := c.SendMessage(context.Background(), "42", "hi", domain.ReplyOptions{})
	require.Error(t, err)
	require.Empty(t, *sends)
}

func TestSendMessage_EmptyInputs(t *testing.T) {
	c := mustClient(t, &fakeSecrets{val: "bot-token"}, "http://localhost:0")
	require.Error(t, c.SendMessage(context.Background(), "", "hi", domain.ReplyOptions{}))
	require.Error(t, c.SendMessage(context.Background(), "42", "", domain.ReplyOptions{}))
}

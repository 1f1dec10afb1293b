package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchwise/ai-gateway/internal/config"
)

func wsURL(srv *httptest.Server, query string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func readText(t *testing.T, ctx context.Context, conn *websocket.Conn) string {
	t.Helper()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	return string(data)
}

func TestChatWSStreamsFragments(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"B\"}}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer upstream.Close()

	gw := newTestGateway(t, "openai", upstream.URL, "s3cret")
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Browsers cannot set handshake headers, so the credential rides the
	// query string.
	conn, _, err := websocket.Dial(ctx, wsURL(srv, "access_password=s3cret"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText,
		[]byte(`{"messages":[{"role":"user","content":"hi"}]}`)))

	assert.Equal(t, `{"content":"A"}`, readText(t, ctx, conn))
	assert.Equal(t, `{"content":"B"}`, readText(t, ctx, conn))
	assert.Equal(t, "[DONE]", readText(t, ctx, conn))
}

func TestChatWSHeaderCredential(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer upstream.Close()

	gw := newTestGateway(t, "openai", upstream.URL, "s3cret")
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hdr := http.Header{}
	hdr.Set(config.HeaderAccessPassword, "s3cret")
	conn, _, err := websocket.Dial(ctx, wsURL(srv, ""), &websocket.DialOptions{HTTPHeader: hdr})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText,
		[]byte(`{"messages":[{"role":"user","content":"hi"}]}`)))
	assert.Equal(t, "[DONE]", readText(t, ctx, conn))
}

func TestChatWSRejectsWrongCredential(t *testing.T) {
	gw := newTestGateway(t, "openai", "http://unreachable.invalid", "s3cret")
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Rejection happens before the upgrade, as a plain HTTP 401.
	conn, resp, err := websocket.Dial(ctx, wsURL(srv, "access_password=wrong"), nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatWSClosesOnMalformedRequest(t *testing.T) {
	gw := newTestGateway(t, "openai", "http://unreachable.invalid", "")
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{not json`)))

	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusUnsupportedData, websocket.CloseStatus(err))
}

func TestChatWSClosesOnEmptyMessages(t *testing.T) {
	gw := newTestGateway(t, "openai", "http://unreachable.invalid", "")
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"messages":[]}`)))

	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusUnsupportedData, websocket.CloseStatus(err))
}

package wsconn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/golang-ipc-sdk/internal/domain"
)

// echoServer upgrades inbound connections and echoes every text frame.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		if err != nil {
			return
		}
		defer conn.Close()
		ctx := context.Background()
		for {
			frame, err := conn.Receive(ctx)
			if err != nil {
				return
			}
			if err := conn.Send(ctx, frame); err != nil {
				return
			}
		}
	}))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestConn_SendReceiveRoundTrip(t *testing.T) {
	ts := echoServer(t)
	defer ts.Close()

	ctx := context.Background()
	conn, err := Dial(ctx, wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send(ctx, []byte(`{"hello": "world"}`)))
	frame, err := conn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"hello": "world"}`, string(frame))
}

func TestConn_FramesArriveInOrder(t *testing.T) {
	ts := echoServer(t)
	defer ts.Close()

	ctx := context.Background()
	conn, err := Dial(ctx, wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, conn.Send(ctx, []byte(msg)))
	}
	for _, want := range []string{"one", "two", "three"} {
		frame, err := conn.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, string(frame))
	}
}

func TestConn_ConcurrentSenders(t *testing.T) {
	ts := echoServer(t)
	defer ts.Close()

	ctx := context.Background()
	conn, err := Dial(ctx, wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, conn.Send(ctx, []byte("frame")))
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		_, err := conn.Receive(ctx)
		require.NoError(t, err)
	}
}

func TestConn_ReceiveAfterPeerClose(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer ts.Close()

	ctx := context.Background()
	conn, err := Dial(ctx, wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Receive(ctx)
	assert.True(t, domain.IsConnectionClosed(err))
}

func TestConn_ReceiveContextCancellation(t *testing.T) {
	ts := echoServer(t)
	defer ts.Close()

	conn, err := Dial(context.Background(), wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = conn.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	ts := echoServer(t)
	defer ts.Close()

	conn, err := Dial(context.Background(), wsURL(ts), nil)
	require.NoError(t, err)

	first := conn.Close()
	second := conn.Close()
	assert.Equal(t, first, second)
}

func TestConn_SendAfterCloseFails(t *testing.T) {
	ts := echoServer(t)
	defer ts.Close()

	ctx := context.Background()
	conn, err := Dial(ctx, wsURL(ts), nil)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	err = conn.Send(ctx, []byte("too late"))
	assert.True(t, domain.IsConnectionClosed(err))
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", nil)
	assert.Error(t, err)
}

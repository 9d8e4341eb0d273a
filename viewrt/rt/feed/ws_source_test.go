package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, typ string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	msg, err := json.Marshal(Envelope{Type: typ, Data: raw})
	require.NoError(t, err)
	return msg
}

// streamServer sends each batch of frames after the test signals on next.
func streamServer(t *testing.T, batches [][][]byte, next <-chan struct{}) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i, batch := range batches {
			if i > 0 {
				<-next
			}
			for _, msg := range batch {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}
		// hold the connection until the client closes it
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func receive(t *testing.T, ch <-chan Update) Update {
	t.Helper()
	select {
	case up, ok := <-ch:
		require.True(t, ok, "updates closed")
		return up
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	return Update{}
}

func TestWSSourceMergesPositionUpdates(t *testing.T) {
	doc, err := Decode([]byte(sampleJSON), formatJSON)
	require.NoError(t, err)

	next := make(chan struct{})
	srv := streamServer(t, [][][]byte{
		{
			// ignored: nothing to patch yet
			frame(t, MessagePosition, PositionUpdateEventDTO{EntityID: "u1", Position: Pos(0, 0, 0)}),
			frame(t, MessageAirspace, doc),
		},
		{
			[]byte("not json"),
			frame(t, MessagePosition, PositionUpdateEventDTO{EntityID: "u1", Position: Pos(250, 130, -140)}),
		},
	}, next)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	src, err := DialWS(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer src.Close()

	first := receive(t, src.Updates())
	require.Len(t, first.Snapshot, 4)
	assert.Equal(t, mgl32.Vec3{200, 120.5, -150}, first.Snapshot[2].Position)

	close(next)
	second := receive(t, src.Updates())
	assert.Equal(t, mgl32.Vec3{250, 130, -140}, second.Snapshot[2].Position)
	assert.Equal(t, first.Boundary, second.Boundary)
}

func TestWSSourceEntityAndRemoveEvents(t *testing.T) {
	doc, err := Decode([]byte(sampleJSON), formatJSON)
	require.NoError(t, err)

	next := make(chan struct{})
	srv := streamServer(t, [][][]byte{
		{frame(t, MessageAirspace, doc)},
		{
			frame(t, MessageRemoved, removedEvent{ID: "j1"}),
		},
	}, next)
	defer srv.Close()

	src, err := DialWS(context.Background(), wsURL(srv), nil)
	require.NoError(t, err)
	defer src.Close()

	receive(t, src.Updates())
	close(next)
	up := receive(t, src.Updates())
	for _, e := range up.Snapshot {
		assert.NotEqual(t, "j1", e.ID)
	}
	assert.Len(t, up.Snapshot, 3)
}

func TestWSSourceCloseEndsUpdates(t *testing.T) {
	srv := streamServer(t, nil, nil)
	defer srv.Close()

	src, err := DialWS(context.Background(), wsURL(srv), nil)
	require.NoError(t, err)
	require.NoError(t, src.Close())
	assert.NoError(t, src.Close())

	_, ok := <-src.Updates()
	assert.False(t, ok)
}

func TestDialWSFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := DialWS(ctx, "ws://127.0.0.1:1/none", nil)
	assert.Error(t, err)
}

package live

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	snap jobs.Snapshot
}

func (f fixedSource) Status() jobs.Snapshot { return f.snap }

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestInitialSnapshot(t *testing.T) {
	hub := NewHub(fixedSource{snap: jobs.Snapshot{QueueDepth: 3, Active: true}}, zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	msg := readMessage(t, conn)

	assert.Equal(t, 3, msg.Snapshot.QueueDepth)
	assert.True(t, msg.Snapshot.Active)
	assert.Nil(t, msg.Outcome)
}

func TestPublishFansOut(t *testing.T) {
	hub := NewHub(fixedSource{}, zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	readMessage(t, a)
	readMessage(t, b)
	waitForClients(t, hub, 2)

	hub.Publish(jobs.Outcome{JobID: "job_1_1", Status: jobs.StatusFailed, Error: "boom"})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		require.NotNil(t, msg.Outcome)
		assert.Equal(t, "job_1_1", msg.Outcome.JobID)
		assert.Equal(t, jobs.StatusFailed, msg.Outcome.Status)
		assert.Equal(t, "boom", msg.Outcome.Error)
	}
}

func TestClientDisconnectIsRemoved(t *testing.T) {
	hub := NewHub(fixedSource{}, zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	readMessage(t, conn)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)

	// publishing with no clients must not block or panic
	hub.Publish(jobs.Outcome{JobID: "job_2_1"})
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(fixedSource{}, zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	readMessage(t, conn)
	waitForClients(t, hub, 1)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/relay-service/internal/domain"
	"github.com/cwrk-planet/relay-service/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// stubIdent делает имя прямо из User-Agent — ассерты читаются глазами.
type stubIdent struct{}

func (stubIdent) Derive(h http.Header) string {
	return "anon_" + h.Get("User-Agent")
}

func newTestRoom(t *testing.T, store HistoryStore) (*httptest.Server, *Hub) {
	t.Helper()

	hub := NewHub()
	bcast := NewBroadcaster(hub, slog.Default())
	srv := NewServer(hub, bcast, store, stubIdent{}, slog.Default())

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)
	return ts, hub
}

func newBadgerStore(t *testing.T) *storage.EventRepository {
	t.Helper()
	kv, err := storage.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return storage.NewEventRepository(kv, domain.DefaultRetention, 200, slog.Default())
}

func dial(t *testing.T, ts *httptest.Server, ua string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	h := http.Header{}
	h.Set("User-Agent", ua)
	conn, _, err := websocket.DefaultDialer.Dial(url, h)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func Test_Connect_Hello_Join_Chat_Leave(t *testing.T) {
	req := require.New(t)
	ts, hub := newTestRoom(t, newBadgerStore(t))

	// --- A подключается к пустой комнате ---
	alice := dial(t, ts, "alice")

	hello := readFrame(t, alice)
	req.Equal(TypeHello, hello.Type)
	req.Equal("anon_alice", hello.Username)

	// истории нет, сразу собственный joined
	joined := readFrame(t, alice)
	req.Equal(TypeEvent, joined.Type)
	req.Equal(domain.KindSystem, joined.Kind)
	req.Equal("anon_alice joined", joined.Text)
	req.NotZero(joined.TS)

	// --- B подключается: в реплее joined A ---
	bob := dial(t, ts, "bob")

	helloB := readFrame(t, bob)
	req.Equal(TypeHello, helloB.Type)
	req.Equal("anon_bob", helloB.Username)

	histB := readFrame(t, bob)
	req.Equal(TypeHistory, histB.Type)
	req.Equal(domain.KindSystem, histB.Kind)
	req.Equal("anon_alice joined", histB.Text)

	joinedB := readFrame(t, bob)
	req.Equal(TypeEvent, joinedB.Type)
	req.Equal("anon_bob joined", joinedB.Text)

	// A тоже видит joined B
	joinedBAtAlice := readFrame(t, alice)
	req.Equal(TypeEvent, joinedBAtAlice.Type)
	req.Equal("anon_bob joined", joinedBAtAlice.Text)

	req.Equal(2, hub.Len())

	// --- чат уходит всем, включая отправителя ---
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("hi")))

	for _, conn := range []*websocket.Conn{alice, bob} {
		f := readFrame(t, conn)
		req.Equal(TypeEvent, f.Type)
		req.Equal(domain.KindChat, f.Kind)
		req.Equal("anon_alice", f.Username)
		req.Equal("hi", f.Text)
		req.NotZero(f.TS)
	}

	// --- A отключается, B получает left ---
	req.NoError(alice.Close())

	left := readFrame(t, bob)
	req.Equal(TypeEvent, left.Type)
	req.Equal(domain.KindSystem, left.Kind)
	req.Equal("anon_alice left", left.Text)

	req.Eventually(func() bool { return hub.Len() == 1 }, 3*time.Second, 50*time.Millisecond)
}

func Test_Whitespace_Input_Produces_Nothing(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestRoom(t, newBadgerStore(t))

	alice := dial(t, ts, "alice")
	readFrame(t, alice) // hello
	readFrame(t, alice) // joined

	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("   \t  ")))
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("")))
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("second")))

	// следующий кадр — сразу "second": пробельные сообщения не породили событий
	f := readFrame(t, alice)
	req.Equal(domain.KindChat, f.Kind)
	req.Equal("second", f.Text)
}

func Test_History_Replay_Ascending(t *testing.T) {
	req := require.New(t)
	store := newBadgerStore(t)
	ts, _ := newTestRoom(t, store)

	alice := dial(t, ts, "alice")
	readFrame(t, alice) // hello
	readFrame(t, alice) // joined

	for _, text := range []string{"one", "two", "three"} {
		req.NoError(alice.WriteMessage(websocket.TextMessage, []byte(text)))
		readFrame(t, alice) // live echo
	}

	bob := dial(t, ts, "bob")
	readFrame(t, bob) // hello

	var history []Frame
	for {
		f := readFrame(t, bob)
		if f.Type != TypeHistory {
			req.Equal("anon_bob joined", f.Text) // реплей кончился
			break
		}
		history = append(history, f)
	}

	req.Len(history, 4) // joined A + три сообщения
	for i := 1; i < len(history); i++ {
		req.LessOrEqual(history[i-1].TS, history[i].TS)
	}
	req.Equal("three", history[len(history)-1].Text)
}

func Test_Plain_HTTP_On_WS_Endpoint(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestRoom(t, newBadgerStore(t))

	resp, err := http.Get(ts.URL)
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusUpgradeRequired, resp.StatusCode)
}

// deadStore имитирует лежащий substrate.
type deadStore struct{}

func (deadStore) Append(context.Context, domain.Event) (string, error) {
	return "", errors.New("substrate down")
}
func (deadStore) Recent(context.Context) []domain.Event { return nil }

func Test_Append_Failure_Still_Delivers_Live(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestRoom(t, deadStore{})

	alice := dial(t, ts, "alice")
	readFrame(t, alice) // hello
	readFrame(t, alice) // joined прилетел несмотря на отказ записи

	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("still here?")))

	f := readFrame(t, alice)
	req.Equal(domain.KindChat, f.Kind)
	req.Equal("still here?", f.Text)
}

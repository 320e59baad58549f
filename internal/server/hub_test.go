package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/framechat/internal/account"
	"github.com/Tyrowin/framechat/internal/frame"
)

// fakeConn is a channel-backed Conn for driving the hub without real
// sockets. Frames pushed into in are read by the ingestor; frames
// written by the hub land in out.
type fakeConn struct {
	in         chan []byte
	out        chan []byte
	closed     chan struct{}
	failWrites bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadFrame(buf []byte) error {
	select {
	case data := <-f.in:
		copy(buf, data)
		return nil
	case <-f.closed:
		return io.EOF
	}
}

func (f *fakeConn) WriteFrame(buf []byte) error {
	if f.failWrites {
		return errors.New("peer gone")
	}
	frameCopy := append([]byte(nil), buf...)
	select {
	case f.out <- frameCopy:
		return nil
	default:
		return errors.New("out buffer full")
	}
}

func (f *fakeConn) RemoteAddr() string { return "fake:0" }

func (f *fakeConn) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

func (f *fakeConn) send(t *testing.T, text string) {
	t.Helper()
	select {
	case f.in <- frame.Encode(text):
	case <-time.After(time.Second):
		t.Fatal("timed out pushing inbound frame")
	}
}

func (f *fakeConn) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case buf := <-f.out:
		got, err := frame.Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for frame %q", want)
	}
}

func (f *fakeConn) expectSilence(t *testing.T) {
	t.Helper()
	select {
	case buf := <-f.out:
		got, _ := frame.Decode(buf)
		t.Fatalf("unexpected frame delivered: %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestHub(t *testing.T) (*Hub, *account.Store) {
	t.Helper()
	store := account.NewStore(filepath.Join(t.TempDir(), "accounts.txt"))
	store.Load()

	hub := NewHub(Config{}, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	t.Cleanup(func() {
		_ = hub.Shutdown(time.Second)
	})
	return hub, store
}

func registerFakes(t *testing.T, hub *Hub, n int) []*fakeConn {
	t.Helper()
	conns := make([]*fakeConn, n)
	for i := range conns {
		conns[i] = newFakeConn()
		require.True(t, hub.Register(conns[i]))
	}
	return conns
}

func TestBroadcastExcludesSender(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 3)

	conns[0].send(t, "hello everyone")

	conns[1].expect(t, "Guest1: hello everyone")
	conns[2].expect(t, "Guest1: hello everyone")
	conns[0].expectSilence(t)
}

func TestCreateRenameAndBroadcastScenario(t *testing.T) {
	hub, store := newTestHub(t)
	conns := registerFakes(t, hub, 3)

	conns[0].send(t, "/create alice secret")
	conns[0].expect(t, "Account created. Welcome, alice!")
	conns[1].expectSilence(t)
	conns[2].expectSilence(t)
	assert.Equal(t, account.OK, store.Lookup("alice", "secret"))

	conns[1].send(t, "hi")
	conns[0].expect(t, "Guest2: hi")
	conns[2].expect(t, "Guest2: hi")
	conns[1].expectSilence(t)
}

func TestLoginRenamesOnCorrectPassword(t *testing.T) {
	hub, store := newTestHub(t)
	store.Insert("alice", "secret")
	conns := registerFakes(t, hub, 2)

	conns[0].send(t, "/login alice secret")
	conns[0].expect(t, "Welcome back, alice!")

	conns[0].send(t, "anyone here?")
	conns[1].expect(t, "alice: anyone here?")
}

func TestLoginFailures(t *testing.T) {
	hub, store := newTestHub(t)
	store.Insert("alice", "secret")
	conns := registerFakes(t, hub, 1)

	conns[0].send(t, "/login alice wrong")
	conns[0].expect(t, "Login failed: invalid username or password.")

	conns[0].send(t, "/login nobody pw")
	conns[0].expect(t, "Login failed: invalid username or password.")
}

func TestCreateRejectsExistingAccount(t *testing.T) {
	hub, store := newTestHub(t)
	store.Insert("alice", "secret")
	conns := registerFakes(t, hub, 1)

	conns[0].send(t, "/create alice other")
	conns[0].expect(t, "Account alice already exists.")
	assert.Equal(t, 1, store.Len())
}

func TestWhisperReachesOnlyTarget(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 3)

	conns[0].send(t, "/whisper Guest2 psst over here")

	conns[1].expect(t, "Guest1 (whisper): psst over here")
	conns[0].expectSilence(t)
	conns[2].expectSilence(t)
}

func TestWhisperToMissingUser(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 2)

	conns[0].send(t, "/whisper nonexistent hello")

	conns[0].expect(t, "No user named nonexistent.")
	conns[1].expectSilence(t)
}

func TestListAll(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 3)

	conns[0].send(t, "/listall")

	conns[0].expect(t, "Connected users: 3")
	conns[0].expect(t, "Guest1")
	conns[0].expect(t, "Guest2")
	conns[0].expect(t, "Guest3")
	conns[1].expectSilence(t)
}

func TestPingAndAboutMe(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 1)

	conns[0].send(t, "/ping")
	conns[0].expect(t, "pong")

	conns[0].send(t, "/aboutme")
	conns[0].expect(t, "Username: Guest1, ID: 1")
}

func TestUnknownCommandProducesNoTraffic(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 2)

	conns[0].send(t, "/frobnicate")

	conns[0].expectSilence(t)
	conns[1].expectSilence(t)
}

func TestArityErrorReportedToInvoker(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 2)

	conns[0].send(t, "/login alice")

	conns[0].expect(t, "usage: /login <user> <pass>")
	conns[1].expectSilence(t)
}

func TestRemoteStopIsIgnored(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 2)

	conns[0].send(t, "/stop")

	conns[0].expectSilence(t)
	conns[1].expectSilence(t)
	select {
	case <-hub.Done():
		t.Fatal("remote /stop must not shut the hub down")
	default:
	}
}

func TestWriteFailureRemovesRecipientWithoutAbortingBroadcast(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 3)
	conns[1].failWrites = true

	conns[0].send(t, "first")
	conns[2].expect(t, "Guest1: first")

	// Guest2 is gone now; the registry should reflect that.
	conns[0].send(t, "/listall")
	conns[0].expect(t, "Connected users: 2")
	conns[0].expect(t, "Guest1")
	conns[0].expect(t, "Guest3")
}

func TestEnvelopeFromDepartedSenderIsDropped(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 2)

	require.True(t, hub.Inject(Envelope{SenderID: 99, Payload: "ghost message"}))

	conns[0].expectSilence(t)
	conns[1].expectSilence(t)
}

func TestOperatorStopBroadcastsNoticeAndFlushes(t *testing.T) {
	store := account.NewStore(filepath.Join(t.TempDir(), "accounts.txt"))
	store.Load()
	store.Insert("alice", "secret")

	hub := NewHub(Config{}, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()

	conns := registerFakes(t, hub, 2)

	require.True(t, hub.Inject(Envelope{SenderID: OperatorID, Payload: "/stop"}))

	conns[0].expect(t, shutdownNotice)
	conns[1].expect(t, shutdownNotice)

	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not shut down after /stop")
	}
	require.NoError(t, hub.Err())

	reloaded := account.NewStore(store.Path())
	reloaded.Load()
	assert.Equal(t, account.OK, reloaded.Lookup("alice", "secret"))
}

func TestRateLimitDropsExcessFramesButKeepsConnection(t *testing.T) {
	store := account.NewStore(filepath.Join(t.TempDir(), "accounts.txt"))
	store.Load()

	cfg := Config{RateLimit: RateLimitConfig{Burst: 2, RefillInterval: time.Hour}}
	hub := NewHub(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	t.Cleanup(func() {
		_ = hub.Shutdown(time.Second)
	})

	conns := registerFakes(t, hub, 2)

	for i := 0; i < 5; i++ {
		conns[0].send(t, fmt.Sprintf("burst %d", i))
	}

	// Only the first Burst frames make it past the limiter.
	conns[1].expect(t, "Guest1: burst 0")
	conns[1].expect(t, "Guest1: burst 1")
	conns[1].expectSilence(t)

	// The throttled connection is kept, not removed.
	conns[1].send(t, "/listall")
	conns[1].expect(t, "Connected users: 2")
	conns[1].expect(t, "Guest1")
	conns[1].expect(t, "Guest2")
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl := newRateLimiter(1, 50*time.Millisecond)

	assert.True(t, rl.allow())
	assert.False(t, rl.allow(), "bucket must be empty right after the burst")

	time.Sleep(100 * time.Millisecond)
	assert.True(t, rl.allow(), "bucket must refill after the interval")
}

func TestOperatorChatInputIsDropped(t *testing.T) {
	hub, _ := newTestHub(t)
	conns := registerFakes(t, hub, 1)

	require.True(t, hub.Inject(Envelope{SenderID: OperatorID, Payload: "hello from the operator"}))

	conns[0].expectSilence(t)
}

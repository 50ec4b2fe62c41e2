package broadcast

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/roulette/network"
	"github.com/wfunc/roulette/session"
)

type recordingConn struct {
	mu      sync.Mutex
	packets []network.Packet
}

func (c *recordingConn) Send(msgID uint16, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = append(c.packets, network.Packet{MsgID: msgID, Data: data})
	return nil
}
func (c *recordingConn) Close() error                         { return nil }
func (c *recordingConn) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (c *recordingConn) SetHeartbeat(time.Duration)           {}
func (c *recordingConn) ReadPacket() (*network.Packet, error) { return nil, nil }

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.packets)
}

func newSession(t *testing.T, id string) (*session.Session, *recordingConn) {
	t.Helper()
	conn := &recordingConn{}
	s := session.NewSession(id, conn, nil)
	t.Cleanup(func() { s.Close() })
	return s, conn
}

func TestRoomBroadcaster_OnlySubscribersReceive(t *testing.T) {
	b := NewRoomBroadcaster()
	alice, aliceConn := newSession(t, "alice")
	bob, bobConn := newSession(t, "bob")
	carol, carolConn := newSession(t, "carol")

	b.Subscribe("main-room", alice)
	b.Subscribe("main-room", bob)
	b.Subscribe("room-2", carol)

	require.NoError(t, b.BroadcastToRoom("main-room", network.GameStart{RoomID: "main-room"}))

	require.Eventually(t, func() bool { return aliceConn.count() == 1 && bobConn.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, carolConn.count())
	assert.Equal(t, uint16(network.MsgTypeGameStart), aliceConn.packets[0].MsgID)
}

func TestRoomBroadcaster_Unsubscribe(t *testing.T) {
	b := NewRoomBroadcaster()
	alice, _ := newSession(t, "alice")

	b.Subscribe("main-room", alice)
	b.Subscribe("room-2", alice)
	assert.True(t, b.IsSubscribed("main-room", "alice"))
	assert.Equal(t, 1, b.Subscribers("room-2"))

	b.Unsubscribe("main-room", "alice")
	assert.False(t, b.IsSubscribed("main-room", "alice"))
	assert.True(t, b.IsSubscribed("room-2", "alice"))

	b.UnsubscribeAll("alice")
	assert.Zero(t, b.Subscribers("room-2"))
	assert.Empty(t, b.subscribers)
}

func TestRoomBroadcaster_EmptyRoom(t *testing.T) {
	b := NewRoomBroadcaster()
	assert.NoError(t, b.BroadcastToRoom("nobody", network.RoomReset{RoomID: "nobody"}))
}

type stubBroadcaster struct {
	got []string
	err error
}

func (s *stubBroadcaster) BroadcastToRoom(roomID string, msg network.Message) error {
	s.got = append(s.got, roomID+"/"+msg.Event())
	return s.err
}

func TestMulti(t *testing.T) {
	failing := &stubBroadcaster{err: errors.New("disk full")}
	ok := &stubBroadcaster{}

	err := Multi(failing, ok).BroadcastToRoom("main-room", network.RoomReset{RoomID: "main-room"})

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, []string{"main-room/room:reset"}, failing.got)
	assert.Equal(t, []string{"main-room/room:reset"}, ok.got, "a failing broadcaster does not stop the others")
}

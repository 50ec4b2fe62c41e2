package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/wfunc/roulette/broadcast"
	"github.com/wfunc/roulette/logger"
	"github.com/wfunc/roulette/monitor"
	"github.com/wfunc/roulette/network"
	"github.com/wfunc/roulette/room"
	"github.com/wfunc/roulette/session"
)

// Options tune the client-facing transport.
type Options struct {
	ReadLimit        int64
	Heartbeat        time.Duration
	IntentsPerSecond float64
	IntentBurst      int
}

type GameServer struct {
	opts        Options
	upgrader    websocket.Upgrader
	registry    *room.Registry
	sessions    *session.Manager
	broadcaster *broadcast.RoomBroadcaster
	monitor     *monitor.Monitor
	httpServer  *http.Server
}

func NewGameServer(addr string, opts Options, registry *room.Registry, broadcaster *broadcast.RoomBroadcaster, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		opts:        opts,
		registry:    registry,
		sessions:    session.NewManager(),
		broadcaster: broadcaster,
		monitor:     mon,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the HTTP routes: the WebSocket endpoint, health, room listing and metrics.
func (s *GameServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/rooms", s.handleListRooms)
	r.Get("/api/rooms/{roomID}", s.handleGetRoom)
	r.Handle("/metrics", s.monitor.Handler())
	return r
}

// Start serves HTTP until Shutdown.
func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes every WebSocket session.
func (s *GameServer) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.sessions.CloseAll()
	return err
}

func (s *GameServer) Sessions() *session.Manager {
	return s.sessions
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugf("write json response: %v", err)
	}
}

func (s *GameServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	snaps := s.registry.Snapshots()
	rooms := make([]network.RoomUpdate, 0, len(snaps))
	for _, snap := range snaps {
		rooms = append(rooms, snap.View())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
}

func (s *GameServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.registry.GetRoom(chi.URLParam(r, "roomID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, network.ErrorMessage{Message: room.ErrRoomNotFound.Error(), Kind: room.ErrorKind(room.ErrRoomNotFound)})
		return
	}
	snap, err := rm.Snapshot()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, network.ErrorMessage{Message: err.Error(), Kind: room.ErrorKind(err)})
		return
	}
	writeJSON(w, http.StatusOK, snap.View())
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	if s.opts.ReadLimit > 0 {
		conn.SetReadLimit(s.opts.ReadLimit)
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) newLimiter() *rate.Limiter {
	if s.opts.IntentsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(s.opts.IntentsPerSecond), s.opts.IntentBurst)
}

func (s *GameServer) handleConnection(wsConn *network.WSConnection) {
	if s.opts.Heartbeat > 0 {
		wsConn.SetHeartbeat(s.opts.Heartbeat)
	}
	sess := session.NewSession(uuid.New().String(), wsConn, s.newLimiter())
	s.sessions.Add(sess)
	s.monitor.IncOnlineConnections()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.disconnect(sess)
	}()

	for {
		packet, err := wsConn.ReadPacket()
		if err != nil {
			if errors.Is(err, io.ErrShortBuffer) {
				continue
			}
			return
		}
		wsConn.Touch()
		sess.Touch()

		start := time.Now()
		s.monitor.IncMessagesReceived()
		s.handlePacket(sess, packet)
		s.monitor.ObserveMessageLatency(time.Since(start))
	}
}

// disconnect removes the session's player from its room and drops its subscriptions.
func (s *GameServer) disconnect(sess *session.Session) {
	if identity, _ := sess.Member(); identity != "" {
		s.registry.Disconnect(identity)
	}
	s.broadcaster.UnsubscribeAll(sess.GetID())
	s.sessions.Remove(sess.GetID())
	s.monitor.DecOnlineConnections()
	sess.Close()
}

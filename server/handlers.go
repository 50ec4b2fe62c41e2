package server

import (
	"errors"

	"github.com/wfunc/roulette/logger"
	"github.com/wfunc/roulette/network"
	"github.com/wfunc/roulette/room"
	"github.com/wfunc/roulette/session"
)

// handlePacket dispatches one inbound packet. Undecodable payloads are dropped
// without a reply.
func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	if packet.MsgID == network.MsgTypeHeartbeat {
		return
	}
	if !sess.Allow() {
		s.monitor.IntentRejected("RateLimited")
		logger.Log.Debugf("session %s: intent %d dropped by rate limit", sess.GetID(), packet.MsgID)
		return
	}

	switch packet.MsgID {
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeSelectSeat:
		s.handleSelectSeat(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess, packet)
	case network.MsgTypeWatchRoom:
		s.handleWatchRoom(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// reject sends err to the originating session only.
func (s *GameServer) reject(sess *session.Session, err error) {
	kind := room.ErrorKind(err)
	s.monitor.IntentRejected(kind)

	msg := network.ErrorMessage{Message: err.Error(), Kind: kind}
	var cooldownErr *room.CooldownError
	if errors.As(err, &cooldownErr) {
		msg.Remaining = cooldownErr.Remaining
	}
	s.reply(sess, msg)
}

func (s *GameServer) reply(sess *session.Session, msg network.Message) {
	if err := sess.Send(msg); err != nil {
		logger.Log.Debugf("session %s: reply %s: %v", sess.GetID(), msg.Event(), err)
	}
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	req, err := network.DecodeJoin(packet.Data)
	if err != nil {
		return
	}
	if _, ok := s.registry.GetRoom(req.RoomID); !ok {
		s.reject(sess, room.ErrRoomNotFound)
		return
	}
	// A connection plays as one identity at a time.
	if current, _ := sess.Member(); current != "" && current != req.WalletAddress {
		if _, seated := s.registry.RoomOf(current); seated {
			s.reject(sess, room.ErrAlreadyJoined)
			return
		}
	}

	// Subscribe first so the joiner sees its own room:update.
	watching := s.broadcaster.IsSubscribed(req.RoomID, sess.GetID())
	s.broadcaster.Subscribe(req.RoomID, sess)
	if err := s.registry.Join(req.RoomID, req.WalletAddress, req.ShortAddress); err != nil {
		if !watching {
			s.broadcaster.Unsubscribe(req.RoomID, sess.GetID())
		}
		s.reject(sess, err)
		return
	}

	sess.SetMember(req.WalletAddress, req.RoomID)
	logger.Log.Infof("Session %s joined room %s as %s", sess.GetID(), req.RoomID, req.WalletAddress)
	s.reply(sess, network.RoomJoined{RoomID: req.RoomID})
}

func (s *GameServer) handleSelectSeat(sess *session.Session, packet *network.Packet) {
	req, err := network.DecodeSelectSeat(packet.Data)
	if err != nil {
		return
	}
	identity, _ := sess.Member()
	if identity == "" {
		s.reject(sess, room.ErrNotAuthenticated)
		return
	}
	if err := s.registry.SelectSeat(req.RoomID, identity, *req.SeatNumber); err != nil {
		s.reject(sess, err)
		return
	}
	s.reply(sess, network.SeatSelected{RoomID: req.RoomID, SeatNumber: *req.SeatNumber})
}

func (s *GameServer) handleLeaveRoom(sess *session.Session, packet *network.Packet) {
	req, err := network.DecodeLeave(packet.Data)
	if err != nil {
		return
	}
	if identity, _ := sess.Member(); identity != "" {
		if err := s.registry.Leave(req.RoomID, identity); err != nil {
			s.reject(sess, err)
			return
		}
		sess.LeaveRoom(req.RoomID)
	} else if _, ok := s.registry.GetRoom(req.RoomID); !ok {
		s.reject(sess, room.ErrRoomNotFound)
		return
	}

	s.broadcaster.Unsubscribe(req.RoomID, sess.GetID())
	s.reply(sess, network.RoomLeft{RoomID: req.RoomID})
}

// handleWatchRoom subscribes the session to a room's broadcasts without joining it.
func (s *GameServer) handleWatchRoom(sess *session.Session, packet *network.Packet) {
	req, err := network.DecodeWatch(packet.Data)
	if err != nil {
		return
	}
	rm, ok := s.registry.GetRoom(req.RoomID)
	if !ok {
		s.reject(sess, room.ErrRoomNotFound)
		return
	}

	s.broadcaster.Subscribe(req.RoomID, sess)
	snap, err := rm.Snapshot()
	if err != nil {
		s.reject(sess, err)
		return
	}
	s.reply(sess, snap.View())
}

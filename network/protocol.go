package network

import (
	"encoding/json"
	"errors"
)

// Inbound message ids.
const (
	MsgTypeHeartbeat  = 1
	MsgTypeJoinRoom   = 101
	MsgTypeLeaveRoom  = 102
	MsgTypeSelectSeat = 103
	MsgTypeWatchRoom  = 104
)

// Outbound message ids.
const (
	MsgTypeRoomJoined   = 111
	MsgTypeRoomLeft     = 112
	MsgTypeSeatSelected = 113
	MsgTypeRoomUpdate   = 301
	MsgTypeTimerUpdate  = 302
	MsgTypeGameStart    = 303
	MsgTypePlayerShot   = 304
	MsgTypeRevolverSpin = 305
	MsgTypeGameEnd      = 306
	MsgTypeRoomReset    = 307
	MsgTypeError        = 500
)

// ResultNoShot is the only result a revolver:spin message carries.
const ResultNoShot = "no-shot"

// ErrMalformed is returned for inbound payloads that cannot be decoded or miss required fields.
var ErrMalformed = errors.New("malformed message")

// Message is an outbound event. The set of implementations below is closed.
type Message interface {
	MsgID() uint16
	Event() string
}

// PlayerView is the wire form of a seated or unseated player.
type PlayerView struct {
	WalletAddress string `json:"walletAddress"`
	ShortAddress  string `json:"shortAddress"`
	SeatNumber    *int   `json:"seatNumber"`
	ShotCount     int    `json:"shotCount"`
	SurvivalCount int    `json:"survivalCount"`
}

type RoomUpdate struct {
	RoomID        string       `json:"roomId"`
	Players       []PlayerView `json:"players"`
	Status        string       `json:"status"`
	TimeRemaining int          `json:"timeRemaining"`
}

type TimerUpdate struct {
	RoomID        string `json:"roomId"`
	TimeRemaining int    `json:"timeRemaining"`
}

type GameStart struct {
	RoomID string `json:"roomId"`
}

type PlayerShot struct {
	RoomID string     `json:"roomId"`
	Player PlayerView `json:"player"`
}

type RevolverSpin struct {
	RoomID string `json:"roomId"`
	Result string `json:"result"`
}

// GameEnd carries a nil Winner when the round ended with nobody left.
type GameEnd struct {
	RoomID string      `json:"roomId"`
	Winner *PlayerView `json:"winner"`
}

type RoomReset struct {
	RoomID string `json:"roomId"`
}

type RoomJoined struct {
	RoomID string `json:"roomId"`
}

type RoomLeft struct {
	RoomID string `json:"roomId"`
}

type SeatSelected struct {
	RoomID     string `json:"roomId"`
	SeatNumber int    `json:"seatNumber"`
}

// ErrorMessage is only ever sent to the connection whose intent failed.
type ErrorMessage struct {
	Message   string `json:"message"`
	Kind      string `json:"kind"`
	Remaining int    `json:"remainingSeconds,omitempty"`
}

func (RoomUpdate) MsgID() uint16   { return MsgTypeRoomUpdate }
func (TimerUpdate) MsgID() uint16  { return MsgTypeTimerUpdate }
func (GameStart) MsgID() uint16    { return MsgTypeGameStart }
func (PlayerShot) MsgID() uint16   { return MsgTypePlayerShot }
func (RevolverSpin) MsgID() uint16 { return MsgTypeRevolverSpin }
func (GameEnd) MsgID() uint16      { return MsgTypeGameEnd }
func (RoomReset) MsgID() uint16    { return MsgTypeRoomReset }
func (RoomJoined) MsgID() uint16   { return MsgTypeRoomJoined }
func (RoomLeft) MsgID() uint16     { return MsgTypeRoomLeft }
func (SeatSelected) MsgID() uint16 { return MsgTypeSeatSelected }
func (ErrorMessage) MsgID() uint16 { return MsgTypeError }

func (RoomUpdate) Event() string   { return "room:update" }
func (TimerUpdate) Event() string  { return "timer:update" }
func (GameStart) Event() string    { return "game:start" }
func (PlayerShot) Event() string   { return "player:shot" }
func (RevolverSpin) Event() string { return "revolver:spin" }
func (GameEnd) Event() string      { return "game:end" }
func (RoomReset) Event() string    { return "room:reset" }
func (RoomJoined) Event() string   { return "room:joined" }
func (RoomLeft) Event() string     { return "room:left" }
func (SeatSelected) Event() string { return "seat:selected" }
func (ErrorMessage) Event() string { return "error" }

// Encode serialises msg into the id and body of a packet.
func Encode(msg Message) (uint16, []byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, nil, err
	}
	return msg.MsgID(), data, nil
}

// --- inbound intents ---

type JoinRequest struct {
	RoomID        string `json:"roomId"`
	WalletAddress string `json:"walletAddress"`
	ShortAddress  string `json:"shortAddress"`
}

type SelectSeatRequest struct {
	RoomID     string `json:"roomId"`
	SeatNumber *int   `json:"seatNumber"`
}

type LeaveRequest struct {
	RoomID string `json:"roomId"`
}

type WatchRequest struct {
	RoomID string `json:"roomId"`
}

// DecodeJoin parses a room:join body.
func DecodeJoin(data []byte) (JoinRequest, error) {
	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, ErrMalformed
	}
	if req.RoomID == "" || req.WalletAddress == "" {
		return req, ErrMalformed
	}
	return req, nil
}

// DecodeSelectSeat parses a seat:select body. A missing seat number is malformed;
// an out-of-range one is left to the room to reject.
func DecodeSelectSeat(data []byte) (SelectSeatRequest, error) {
	var req SelectSeatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, ErrMalformed
	}
	if req.RoomID == "" || req.SeatNumber == nil {
		return req, ErrMalformed
	}
	return req, nil
}

func DecodeLeave(data []byte) (LeaveRequest, error) {
	var req LeaveRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		return req, ErrMalformed
	}
	return req, nil
}

func DecodeWatch(data []byte) (WatchRequest, error) {
	var req WatchRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		return req, ErrMalformed
	}
	return req, nil
}

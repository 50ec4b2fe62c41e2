package rpc

import (
	"context"
	"time"

	"github.com/wfunc/roulette/cooldown"
	"github.com/wfunc/roulette/models"
	"github.com/wfunc/roulette/network"
	"github.com/wfunc/roulette/room"
	"github.com/wfunc/roulette/services"
)

// AdminServiceName is the name AdminService is registered under.
const AdminServiceName = "Admin"

const callTimeout = 5 * time.Second

// AdminService exposes read-only room state and round history over net/rpc.
// Method signatures follow net/rpc: exported args, pointer reply, error result.
type AdminService struct {
	registry  *room.Registry
	cooldowns *cooldown.Store
	stats     *services.StatsService
}

func NewAdminService(registry *room.Registry, cooldowns *cooldown.Store, stats *services.StatsService) *AdminService {
	return &AdminService{registry: registry, cooldowns: cooldowns, stats: stats}
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Rooms []network.RoomUpdate
}

func (a *AdminService) ListRooms(_ *ListRoomsArgs, reply *ListRoomsReply) error {
	snaps := a.registry.Snapshots()
	reply.Rooms = make([]network.RoomUpdate, 0, len(snaps))
	for _, snap := range snaps {
		reply.Rooms = append(reply.Rooms, snap.View())
	}
	return nil
}

type GetRoomArgs struct {
	RoomID string
}

type GetRoomReply struct {
	Room network.RoomUpdate
}

func (a *AdminService) GetRoom(args *GetRoomArgs, reply *GetRoomReply) error {
	r, ok := a.registry.GetRoom(args.RoomID)
	if !ok {
		return room.ErrRoomNotFound
	}
	snap, err := r.Snapshot()
	if err != nil {
		return err
	}
	reply.Room = snap.View()
	return nil
}

type CooldownArgs struct {
	Identity string
}

type CooldownReply struct {
	RemainingSeconds int
}

func (a *AdminService) CooldownRemaining(args *CooldownArgs, reply *CooldownReply) error {
	reply.RemainingSeconds = a.cooldowns.Remaining(args.Identity)
	return nil
}

type PlayerStatsArgs struct {
	Identity string
}

type PlayerStatsReply struct {
	Stats models.PlayerStats
}

func (a *AdminService) PlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	stats, err := a.stats.PlayerStats(ctx, args.Identity)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}

type RecentRoundsArgs struct {
	RoomID string
	Limit  int
}

type RecentRoundsReply struct {
	Rounds []models.RoundRecord
}

func (a *AdminService) RecentRounds(args *RecentRoundsArgs, reply *RecentRoundsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	rounds, err := a.stats.RecentRounds(ctx, args.RoomID, args.Limit)
	if err != nil {
		return err
	}
	reply.Rounds = rounds
	return nil
}

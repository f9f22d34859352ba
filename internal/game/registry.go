package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/buildrush/buildrush-backend/internal/utils"
)

const (
	// EmptyRoomGrace is how long an empty room survives before the janitor
	// reclaims it, so a brief full-disconnect does not destroy the room.
	EmptyRoomGrace  = 60 * time.Second
	janitorInterval = 30 * time.Second

	codeLength      = 5
	codeGenAttempts = 10
)

// MatchRecorder archives finished match summaries. Implementations must be
// safe for concurrent use; a nil recorder disables archiving.
type MatchRecorder interface {
	RecordMatch(ctx context.Context, roomCode, matchType string, standings []SummaryEntry) error
}

// Registry owns every live room. It is a constructed dependency, not a
// package global; one process hosts exactly one.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	recorder MatchRecorder

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewRegistry(recorder MatchRecorder) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		recorder: recorder,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Registry) newBlueprint(w, h int) Grid {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return GenerateBlueprint(g.rng, w, h)
}

func (g *Registry) room(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[code]
	return room, ok
}

// RoomCount reports live rooms; used by the health endpoint.
func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// CreateRoom allocates a room with a fresh code and the caller as sole
// player and host.
func (g *Registry) CreateRoom(p *Player) RoomAck {
	if p.room != nil {
		return RoomAck{Ok: false, Error: ErrAlreadyInRoom.Error()}
	}

	g.mu.Lock()
	var code string
	for range codeGenAttempts {
		code = utils.GenerateRoomCode(codeLength)
		if _, taken := g.rooms[code]; !taken {
			break
		}
	}
	room := &Room{
		Code:        code,
		HostID:      p.ID,
		MatchType:   MatchCompetitive,
		Phase:       PhaseLobby,
		Players:     []*Player{p},
		Ready:       make(map[string]bool),
		Points:      make(map[string]int),
		TotalRounds: TotalRounds,
	}
	g.rooms[code] = room
	g.mu.Unlock()

	p.room = room
	log.Info().Str("room", code).Str("player", p.ID).Msg("room created")

	return RoomAck{
		Ok:          true,
		Code:        code,
		SelfID:      p.ID,
		HostID:      p.ID,
		MatchType:   room.MatchType,
		Phase:       room.Phase,
		TotalRounds: room.TotalRounds,
	}
}

// JoinRoom adds the caller as a player while the room sits in lobby, and as a
// read-only spectator otherwise.
func (g *Registry) JoinRoom(code string, p *Player) RoomAck {
	if p.room != nil {
		return RoomAck{Ok: false, Error: ErrAlreadyInRoom.Error()}
	}
	room, ok := g.room(code)
	if !ok {
		return RoomAck{Ok: false, Error: ErrRoomNotFound.Error()}
	}

	room.mu.Lock()
	room.emptySince = time.Time{}
	spectator := room.Phase != PhaseLobby
	if spectator {
		p.Spectator = true
		room.Spectators = append(room.Spectators, p)
	} else {
		room.Players = append(room.Players, p)
	}
	p.room = room
	ack := RoomAck{
		Ok:          true,
		Code:        room.Code,
		SelfID:      p.ID,
		HostID:      room.HostID,
		MatchType:   room.MatchType,
		Phase:       room.Phase,
		RoundNum:    room.RoundNum,
		TotalRounds: room.TotalRounds,
		Spectator:   spectator,
	}
	flush := broadcastLocked(room, Message[LobbyState]{Type: "lobby", Data: lobbyStateLocked(room)})
	room.mu.Unlock()
	flush()

	log.Info().Str("room", code).Str("player", p.ID).Bool("spectator", spectator).Msg("player joined")
	return ack
}

// SetMatchType switches the mode. Host only, lobby only, known modes only;
// anything else is silently dropped.
func (g *Registry) SetMatchType(code, playerID string, mt MatchType) {
	room, ok := g.room(code)
	if !ok {
		return
	}
	room.mu.Lock()
	if room.Phase != PhaseLobby || room.HostID != playerID || !mt.Valid() {
		room.mu.Unlock()
		return
	}
	room.MatchType = mt
	// Broadcast immediately so a non-host client that flipped its radio
	// optimistically reconciles to the authoritative mode.
	flushMode := broadcastLocked(room, Message[ModeUpdate]{Type: "modeUpdate", Data: ModeUpdate{MatchType: mt}})
	flushLobby := broadcastLocked(room, Message[LobbyState]{Type: "lobby", Data: lobbyStateLocked(room)})
	room.mu.Unlock()
	flushMode()
	flushLobby()
}

// SetReady toggles the caller's ready flag. Non-players (spectators, unknown
// ids) have no effect.
func (g *Registry) SetReady(code, playerID string, ready bool) {
	room, ok := g.room(code)
	if !ok {
		return
	}
	room.mu.Lock()
	if room.Phase != PhaseLobby || room.player(playerID) == nil {
		room.mu.Unlock()
		return
	}
	if ready {
		room.Ready[playerID] = true
	} else {
		delete(room.Ready, playerID)
	}
	flush := broadcastLocked(room, Message[LobbyState]{Type: "lobby", Data: lobbyStateLocked(room)})
	room.mu.Unlock()
	flush()
}

// StartMatch begins round one. No-op unless the caller is host and the room
// can start (lobby, everyone ready, at least two players).
func (g *Registry) StartMatch(code, playerID string) {
	room, ok := g.room(code)
	if !ok {
		return
	}
	room.mu.Lock()
	if room.HostID != playerID || !room.canStart() {
		room.mu.Unlock()
		return
	}
	room.Points = make(map[string]int)
	room.RoundNum = 0
	room.seatOrder = make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		room.seatOrder = append(room.seatOrder, p.ID)
	}
	mode := room.MatchType
	flushSetup := g.setupRoundLocked(room)
	flushPhase := g.beginCountdownLocked(room)
	room.mu.Unlock()
	flushSetup()
	flushPhase()

	log.Info().Str("room", code).Str("mode", string(mode)).Msg("match started")
}

// StartJanitor sweeps rooms that have sat empty past the grace period. It
// blocks until ctx is cancelled; run it in its own goroutine.
func (g *Registry) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweepEmptyRooms(time.Now())
		}
	}
}

func (g *Registry) sweepEmptyRooms(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for code, room := range g.rooms {
		room.mu.Lock()
		expired := room.memberCount() == 0 &&
			!room.emptySince.IsZero() &&
			now.Sub(room.emptySince) >= EmptyRoomGrace
		if expired {
			room.cancelTimerLocked()
		}
		room.mu.Unlock()
		if expired {
			delete(g.rooms, code)
			log.Info().Str("room", code).Msg("reclaimed empty room")
		}
	}
}

package game

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

var testRoomSeq atomic.Int64

// fakeSender records everything broadcast to one connection.
type fakeSender struct {
	mu   sync.Mutex
	msgs []any
}

func (f *fakeSender) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, v)
	return nil
}

func (f *fakeSender) all() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.msgs))
	copy(out, f.msgs)
	return out
}

// received collects every payload of type T sent under the given envelope
// type, in order.
func received[T any](f *fakeSender, msgType string) []T {
	var out []T
	for _, raw := range f.all() {
		if m, ok := raw.(Message[T]); ok && m.Type == msgType {
			out = append(out, m.Data)
		}
	}
	return out
}

// newTestPlayer builds a player with an unlimited edit budget; cooldown
// behavior gets its own tests with the real limiter.
func newTestPlayer(id string) (*Player, *fakeSender) {
	s := &fakeSender{}
	p := NewPlayer(id, s)
	p.limiter = rate.NewLimiter(rate.Inf, 1)
	return p, s
}

// newRoomInBuild wires a room directly into the registry in mid-build state,
// bypassing the scheduler so tests control every timestamp.
func newRoomInBuild(t *testing.T, g *Registry, mt MatchType, ids ...string) (*Room, map[string]*fakeSender) {
	t.Helper()

	senders := make(map[string]*fakeSender, len(ids))
	players := make([]*Player, 0, len(ids))
	for _, id := range ids {
		p, s := newTestPlayer(id)
		players = append(players, p)
		senders[id] = s
	}

	cfg := roundConfigFor(mt, 1)
	room := &Room{
		Code:        fmt.Sprintf("TST%02d", testRoomSeq.Add(1)),
		HostID:      ids[0],
		MatchType:   mt,
		Phase:       PhaseBuild,
		Players:     players,
		Ready:       make(map[string]bool),
		Points:      make(map[string]int),
		TotalRounds: TotalRounds,
		RoundNum:    1,
		GridW:       cfg.GridW,
		GridH:       cfg.GridH,
		Blueprint:   GenerateBlueprint(rand.New(rand.NewSource(1)), cfg.GridW, cfg.GridH),
		Edits:       make(map[string]int),
		EditCap:     editCapFor(cfg),
		Submitted:   make(map[string]bool),
		seatOrder:   ids,
		BuildEndsAt: time.Now().Add(cfg.Build).UnixMilli(),
	}
	if mt == MatchTeam {
		room.TeamBoard = NewGrid(cfg.GridW, cfg.GridH)
		room.PeeksRemaining = PeekTokens
	} else {
		room.Boards = make(map[string]Grid, len(ids))
		for _, id := range ids {
			room.Boards[id] = NewGrid(cfg.GridW, cfg.GridH)
		}
	}
	for _, p := range players {
		p.room = room
	}

	g.mu.Lock()
	g.rooms[room.Code] = room
	g.mu.Unlock()

	t.Cleanup(func() {
		room.mu.Lock()
		room.cancelTimerLocked()
		room.mu.Unlock()
	})
	return room, senders
}

// paintBlueprint reproduces the blueprint on the player's board through the
// public PlaceTile path, skipping the first `skip` non-empty cells.
func paintBlueprint(g *Registry, room *Room, playerID string, skip int) {
	skipped := 0
	for y := range room.Blueprint {
		for x := range room.Blueprint[y] {
			tile := room.Blueprint[y][x]
			if tile == TileEmpty {
				continue
			}
			if skipped < skip {
				skipped++
				continue
			}
			g.PlaceTile(room.Code, playerID, x, y, tile)
		}
	}
}

func phaseOf(room *Room) Phase {
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.Phase
}

func currentGen(room *Room) uint64 {
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.timerGen
}

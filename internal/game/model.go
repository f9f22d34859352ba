package game

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	TotalRounds       = 3
	MinPlayersToStart = 2

	CountdownDuration = 3 * time.Second
	ResultsPause      = 5500 * time.Millisecond
	EditCooldown      = 150 * time.Millisecond
	AbortGrace        = 1500 * time.Millisecond

	PeekTokens   = 3
	PeekDuration = 3 * time.Second
)

type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhasePreview   Phase = "preview"
	PhaseBuild     Phase = "build"
	PhaseResults   Phase = "results"
)

type MatchType string

const (
	MatchCompetitive MatchType = "competitive"
	MatchTeam        MatchType = "team"
)

func (m MatchType) Valid() bool {
	return m == MatchCompetitive || m == MatchTeam
}

type Tile int

const (
	TileEmpty Tile = iota
	TileWall
	TileWindow
	TileDoor
	TileRoof
)

func (t Tile) Valid() bool {
	return t >= TileEmpty && t <= TileRoof
}

// Grid is a row-major tile grid, indexed [y][x].
type Grid [][]Tile

func NewGrid(w, h int) Grid {
	g := make(Grid, h)
	for y := range g {
		g[y] = make([]Tile, w)
	}
	return g
}

func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

func (g Grid) Height() int {
	return len(g)
}

func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for y := range g {
		if len(g[y]) != len(other[y]) {
			return false
		}
		for x := range g[y] {
			if g[y][x] != other[y][x] {
				return false
			}
		}
	}
	return true
}

// RoundConfig carries the per-round grid size and phase durations.
type RoundConfig struct {
	GridW   int
	GridH   int
	Preview time.Duration
	Build   time.Duration
}

var competitiveRounds = []RoundConfig{
	{GridW: 12, GridH: 10, Preview: 8 * time.Second, Build: 45 * time.Second},
	{GridW: 14, GridH: 12, Preview: 8 * time.Second, Build: 60 * time.Second},
	{GridW: 16, GridH: 13, Preview: 10 * time.Second, Build: 75 * time.Second},
}

var teamRounds = []RoundConfig{
	{GridW: 16, GridH: 13, Preview: 10 * time.Second, Build: 60 * time.Second},
	{GridW: 18, GridH: 15, Preview: 10 * time.Second, Build: 75 * time.Second},
	{GridW: 20, GridH: 18, Preview: 12 * time.Second, Build: 90 * time.Second},
}

// roundConfigFor returns the config for a 1-based round number. Rounds past
// the configured table reuse the last entry.
func roundConfigFor(mt MatchType, round int) RoundConfig {
	table := competitiveRounds
	if mt == MatchTeam {
		table = teamRounds
	}
	if round < 1 {
		round = 1
	}
	if round > len(table) {
		round = len(table)
	}
	return table[round-1]
}

// editCapFor is the per-player tile placement budget for one competitive round.
func editCapFor(cfg RoundConfig) int {
	return cfg.GridW * cfg.GridH * 3
}

// Sender delivers one message to one connection. The transport must serialize
// concurrent calls itself.
type Sender interface {
	Send(v any) error
}

type Player struct {
	ID        string
	Sender    Sender
	Spectator bool
	JoinedAt  time.Time

	limiter *rate.Limiter

	// room is maintained by the Registry so disconnects can find their way
	// back without the client naming a code.
	room *Room
}

func NewPlayer(id string, s Sender) *Player {
	return &Player{
		ID:       id,
		Sender:   s,
		JoinedAt: time.Now(),
		limiter:  rate.NewLimiter(rate.Every(EditCooldown), 1),
	}
}

type FinishEntry struct {
	ID         string `json:"id"`
	Rank       int    `json:"rank"`
	FinishedAt int64  `json:"finishedAt"`
}

type Room struct {
	Code      string
	HostID    string
	MatchType MatchType
	Phase     Phase

	// Players is join-ordered; host reassignment falls back to the first
	// remaining entry.
	Players    []*Player
	Spectators []*Player
	Ready      map[string]bool

	RoundNum    int
	TotalRounds int

	GridW     int
	GridH     int
	Blueprint Grid

	Boards    map[string]Grid // competitive, keyed by player id
	TeamBoard Grid            // team

	Finished []FinishEntry
	Edits    map[string]int
	EditCap  int

	Submitted      map[string]bool // team completion signal
	PeeksRemaining int
	PeekUntil      int64

	Points map[string]int

	// seatOrder freezes the player ids (join order) at match start; departed
	// players stay listed so their boards score and their points persist.
	seatOrder []string

	CountdownEndsAt int64
	PreviewEndsAt   int64
	BuildEndsAt     int64

	// One pending timer per room; arming a new one cancels the old and bumps
	// the generation so a fired-but-not-yet-run callback becomes a no-op.
	pending  *time.Timer
	timerGen uint64

	emptySince time.Time

	mu sync.Mutex
}

// player returns the current (non-spectator) player with the given id.
func (r *Room) player(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) allReady() bool {
	for _, p := range r.Players {
		if !r.Ready[p.ID] {
			return false
		}
	}
	return true
}

func (r *Room) canStart() bool {
	return r.Phase == PhaseLobby && len(r.Players) >= MinPlayersToStart && r.allReady()
}

func (r *Room) hasRank(id string) bool {
	for _, f := range r.Finished {
		if f.ID == id {
			return true
		}
	}
	return false
}

func (r *Room) rankOf(id string) int {
	for _, f := range r.Finished {
		if f.ID == id {
			return f.Rank
		}
	}
	return 0
}

func (r *Room) allPlayersFinished() bool {
	for _, p := range r.Players {
		if !r.hasRank(p.ID) {
			return false
		}
	}
	return len(r.Players) > 0
}

func (r *Room) allPlayersSubmitted() bool {
	for _, p := range r.Players {
		if !r.Submitted[p.ID] {
			return false
		}
	}
	return len(r.Players) > 0
}

// boardFor returns the board the given player edits in the current mode.
func (r *Room) boardFor(id string) Grid {
	if r.MatchType == MatchTeam {
		return r.TeamBoard
	}
	return r.Boards[id]
}

func (r *Room) memberCount() int {
	return len(r.Players) + len(r.Spectators)
}

// members snapshots every connection that receives broadcasts.
func (r *Room) members() []*Player {
	out := make([]*Player, 0, r.memberCount())
	out = append(out, r.Players...)
	out = append(out, r.Spectators...)
	return out
}

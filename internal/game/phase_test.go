package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startedMatch spins up a real lobby and starts the match, leaving the room
// in countdown with the countdown timer armed.
func startedMatch(t *testing.T, g *Registry, mt MatchType) (*Room, map[string]*fakeSender) {
	t.Helper()
	host, hostSender := newTestPlayer("alice")
	code := g.CreateRoom(host).Code
	guest, guestSender := newTestPlayer("bob")
	g.JoinRoom(code, guest)
	g.SetMatchType(code, "alice", mt)
	g.SetReady(code, "alice", true)
	g.SetReady(code, "bob", true)
	g.StartMatch(code, "alice")

	room, ok := g.room(code)
	require.True(t, ok)
	t.Cleanup(func() {
		room.mu.Lock()
		room.cancelTimerLocked()
		room.mu.Unlock()
	})
	return room, map[string]*fakeSender{"alice": hostSender, "bob": guestSender}
}

func TestPhaseProgression(t *testing.T) {
	g := NewRegistry(nil)
	room, senders := startedMatch(t, g, MatchCompetitive)

	require.Equal(t, PhaseCountdown, phaseOf(room))

	g.beginPreview(room, currentGen(room))
	require.Equal(t, PhasePreview, phaseOf(room))

	g.beginBuild(room, currentGen(room))
	require.Equal(t, PhaseBuild, phaseOf(room))

	phases := received[PhaseUpdate](senders["bob"], "phase")
	require.Len(t, phases, 3)
	assert.Equal(t, PhaseCountdown, phases[0].Phase)
	assert.Equal(t, PhasePreview, phases[1].Phase)
	assert.Equal(t, PhaseBuild, phases[2].Phase)
	assert.NotZero(t, phases[1].PreviewEndsAt)
	assert.NotZero(t, phases[2].BuildEndsAt)
	assert.Nil(t, phases[2].PeeksRemaining, "competitive build carries no peek budget")
}

func TestPhaseProgression_TeamBuildCarriesPeeks(t *testing.T) {
	g := NewRegistry(nil)
	room, senders := startedMatch(t, g, MatchTeam)

	g.beginPreview(room, currentGen(room))
	g.beginBuild(room, currentGen(room))

	phases := received[PhaseUpdate](senders["alice"], "phase")
	require.Len(t, phases, 3)
	require.NotNil(t, phases[2].PeeksRemaining)
	assert.Equal(t, PeekTokens, *phases[2].PeeksRemaining)
}

func TestStaleTimerIsNoOp(t *testing.T) {
	g := NewRegistry(nil)
	room, _ := startedMatch(t, g, MatchCompetitive)

	staleGen := currentGen(room)
	g.beginPreview(room, staleGen)
	require.Equal(t, PhasePreview, phaseOf(room))

	// The countdown callback firing again with its old generation, or any
	// callback firing against the wrong phase, must do nothing.
	g.beginPreview(room, staleGen)
	assert.Equal(t, PhasePreview, phaseOf(room))

	g.resolveRoundFromTimer(room, staleGen)
	assert.Equal(t, PhasePreview, phaseOf(room), "build timer from a previous arm cannot resolve a preview")
}

func TestBuildTimerResolvesRound(t *testing.T) {
	g := NewRegistry(nil)
	room, senders := startedMatch(t, g, MatchCompetitive)
	g.beginPreview(room, currentGen(room))
	g.beginBuild(room, currentGen(room))

	g.resolveRoundFromTimer(room, currentGen(room))
	assert.Equal(t, PhaseResults, phaseOf(room))

	results := received[RoundResults](senders["alice"], "roundResults")
	require.Len(t, results, 1)
	require.Len(t, results[0].Entries, 2)
	for _, e := range results[0].Entries {
		assert.Zero(t, e.Rank, "nobody finished")
		assert.Equal(t, e.Accuracy, e.Points, "unfinished players score raw accuracy")
	}
}

func TestAfterResults_AdvancesRounds(t *testing.T) {
	g := NewRegistry(nil)
	room, senders := startedMatch(t, g, MatchCompetitive)
	g.beginPreview(room, currentGen(room))
	g.beginBuild(room, currentGen(room))
	g.resolveRoundFromTimer(room, currentGen(room))

	g.afterResults(room, currentGen(room))

	room.mu.Lock()
	assert.Equal(t, 2, room.RoundNum)
	assert.Equal(t, PhaseCountdown, room.Phase)
	assert.Equal(t, 14, room.GridW, "round two uses the round-two grid")
	room.mu.Unlock()

	setups := received[RoundSetup](senders["bob"], "roundSetup")
	assert.Len(t, setups, 2, "every round broadcasts a fresh setup")
}

func TestAfterResults_FinalRoundEmitsSummaryAndReturnsToLobby(t *testing.T) {
	rec := &recordingRecorder{}
	g := NewRegistry(rec)
	room, senders := startedMatch(t, g, MatchCompetitive)

	for round := 1; round <= TotalRounds; round++ {
		g.beginPreview(room, currentGen(room))
		g.beginBuild(room, currentGen(room))

		if round == 1 {
			// Alice takes rank 1 once so the summary has an ordering to check.
			paintBlueprint(g, room, "alice", 0)
		}
		g.resolveRoundFromTimer(room, currentGen(room))
		g.afterResults(room, currentGen(room))
	}

	room.mu.Lock()
	assert.Equal(t, PhaseLobby, room.Phase)
	assert.Equal(t, 0, room.RoundNum)
	assert.Empty(t, room.Ready)
	assert.Nil(t, room.Blueprint)
	assert.Nil(t, room.Boards)
	room.mu.Unlock()

	summaries := received[MatchSummary](senders["bob"], "matchSummary")
	require.Len(t, summaries, 1)
	entries := summaries[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].ID, "summary sorts by total points descending")
	assert.Greater(t, entries[0].Total, entries[1].Total)

	lobbies := received[LobbyState](senders["bob"], "lobby")
	require.NotEmpty(t, lobbies)
	assert.Equal(t, PhaseLobby, lobbies[len(lobbies)-1].Phase)

	rec.wait(t)
	assert.Equal(t, room.Code, rec.code)
	assert.Equal(t, string(MatchCompetitive), rec.matchType)
	assert.Equal(t, entries, rec.standings)
}

func TestMatchSummary_TieBreaksByJoinOrder(t *testing.T) {
	g := NewRegistry(nil)
	room, _ := newRoomInBuild(t, g, MatchCompetitive, "alice", "bob", "carol")

	room.mu.Lock()
	room.Points = map[string]int{"alice": 80, "bob": 95, "carol": 80}
	summary := g.matchSummaryLocked(room)
	room.mu.Unlock()

	require.Len(t, summary.Entries, 3)
	assert.Equal(t, "bob", summary.Entries[0].ID)
	assert.Equal(t, "alice", summary.Entries[1].ID, "equal totals keep join order")
	assert.Equal(t, "carol", summary.Entries[2].ID)
}

// recordingRecorder captures the async archive call.
type recordingRecorder struct {
	mu        sync.Mutex
	done      bool
	code      string
	matchType string
	standings []SummaryEntry
}

func (r *recordingRecorder) RecordMatch(ctx context.Context, code, matchType string, standings []SummaryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	r.code = code
	r.matchType = matchType
	r.standings = standings
	return nil
}

func (r *recordingRecorder) wait(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		done := r.done
		r.mu.Unlock()
		if done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("match was never archived")
}

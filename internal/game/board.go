package game

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Tile edits. Rejection is always silent: no state change, no broadcast. The
// cooldown limiter is consulted last so that an edit rejected for any other
// reason never burns the caller's token.

// PlaceTile applies one cell overwrite to the caller's board (competitive)
// or the shared board (team) during the build phase.
func (g *Registry) PlaceTile(code, playerID string, x, y int, tile Tile) {
	room, ok := g.room(code)
	if !ok {
		return
	}

	room.mu.Lock()
	if room.Phase != PhaseBuild {
		room.mu.Unlock()
		return
	}
	p := room.player(playerID)
	if p == nil {
		room.mu.Unlock()
		return
	}
	if x < 0 || x >= room.GridW || y < 0 || y >= room.GridH || !tile.Valid() {
		room.mu.Unlock()
		return
	}
	if room.MatchType == MatchCompetitive && room.Edits[playerID] >= room.EditCap {
		room.mu.Unlock()
		return
	}
	board := room.boardFor(playerID)
	if board == nil {
		room.mu.Unlock()
		return
	}
	if !p.limiter.Allow() {
		room.mu.Unlock()
		return
	}

	board[y][x] = tile
	room.Edits[playerID]++

	update := GridUpdate{X: x, Y: y, Tile: tile}
	if room.MatchType == MatchCompetitive {
		// Owner lets each competitive client drop everyone else's strokes;
		// team edits are anonymous and shared.
		update.Owner = playerID
	}
	flushGrid := broadcastLocked(room, Message[GridUpdate]{Type: "gridUpdate", Data: update})

	var flushFinish func()
	finished := false
	if room.MatchType == MatchCompetitive && !room.hasRank(playerID) && board.Equal(room.Blueprint) {
		rank := len(room.Finished) + 1
		room.Finished = append(room.Finished, FinishEntry{
			ID:         playerID,
			Rank:       rank,
			FinishedAt: epochMS(time.Now()),
		})
		flushFinish = broadcastLocked(room, Message[PlayerFinished]{
			Type: "playerFinished",
			Data: PlayerFinished{ID: playerID, Rank: rank},
		})
		finished = room.allPlayersFinished()
		log.Info().Str("room", code).Str("player", playerID).Int("rank", rank).Msg("player matched blueprint")
	}
	room.mu.Unlock()

	flushGrid()
	if flushFinish != nil {
		flushFinish()
	}
	if finished {
		// Pre-empts the build timer; resolution is idempotent behind the
		// phase check.
		g.resolveRound(room, "all finished")
	}
}

// SubmitToggle is the team-mode completion signal: the round ends early once
// every current player has submit on. Competitive rounds end on exact match
// instead; the two policies never apply to the same mode.
func (g *Registry) SubmitToggle(code, playerID string, submit bool) {
	room, ok := g.room(code)
	if !ok {
		return
	}
	room.mu.Lock()
	if room.Phase != PhaseBuild || room.MatchType != MatchTeam || room.player(playerID) == nil {
		room.mu.Unlock()
		return
	}
	if submit {
		room.Submitted[playerID] = true
	} else {
		delete(room.Submitted, playerID)
	}
	done := room.allPlayersSubmitted()
	room.mu.Unlock()

	if done {
		g.resolveRound(room, "all submitted")
	}
}

// Peek spends one token to reveal the blueprint for a short window during a
// team build.
func (g *Registry) Peek(code, playerID string) {
	room, ok := g.room(code)
	if !ok {
		return
	}
	room.mu.Lock()
	if room.Phase != PhaseBuild || room.MatchType != MatchTeam ||
		room.player(playerID) == nil || room.PeeksRemaining <= 0 {
		room.mu.Unlock()
		return
	}
	room.PeeksRemaining--
	room.PeekUntil = epochMS(time.Now().Add(PeekDuration))
	flush := broadcastLocked(room, Message[PeekWindow]{
		Type: "peekWindow",
		Data: PeekWindow{Until: room.PeekUntil, PeeksRemaining: room.PeeksRemaining},
	})
	room.mu.Unlock()
	flush()
}

package game

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Disconnect removes a connection from its room. Host reassignment follows
// join order; a mid-match room dropping below two players gets a short grace
// window and then the match aborts back to lobby.
func (g *Registry) Disconnect(p *Player) {
	room := p.room
	if room == nil {
		return
	}
	p.room = nil

	room.mu.Lock()

	wasPlayer := room.player(p.ID) != nil
	room.Players = removeByID(room.Players, p.ID)
	room.Spectators = removeByID(room.Spectators, p.ID)
	delete(room.Ready, p.ID)
	delete(room.Submitted, p.ID)

	if room.HostID == p.ID {
		room.HostID = ""
		if len(room.Players) > 0 {
			room.HostID = room.Players[0].ID
		}
	}

	if room.memberCount() == 0 {
		room.emptySince = time.Now()
	}

	midMatch := room.Phase != PhaseLobby

	var flushes []func()
	if wasPlayer && midMatch {
		flushes = append(flushes, broadcastLocked(room, Message[OpponentLeft]{
			Type: "opponentLeft",
			Data: OpponentLeft{ID: p.ID},
		}))
	}

	resolveEarly := false
	if wasPlayer && midMatch && len(room.Players) < MinPlayersToStart {
		// Departure notice first, abort after the grace delay. The abort
		// timer replaces any pending phase timer; the round cannot complete
		// with the table this empty anyway.
		room.armTimerLocked(AbortGrace, func(gen uint64) { g.abortMatch(room, gen) })
	} else if wasPlayer && midMatch {
		// The departed board is orphaned: still scored at round end from its
		// last-known state. Its absence may also make the round resolvable
		// right now.
		switch {
		case room.MatchType == MatchCompetitive && room.Phase == PhaseBuild && room.allPlayersFinished():
			resolveEarly = true
		case room.MatchType == MatchTeam && room.Phase == PhaseBuild && room.allPlayersSubmitted():
			resolveEarly = true
		}
	}

	if !midMatch {
		flushes = append(flushes, broadcastLocked(room, Message[LobbyState]{
			Type: "lobby", Data: lobbyStateLocked(room),
		}))
	}

	room.mu.Unlock()

	for _, flush := range flushes {
		flush()
	}
	if resolveEarly {
		g.resolveRound(room, "departure")
	}

	log.Info().Str("room", room.Code).Str("player", p.ID).Bool("player_slot", wasPlayer).Msg("connection left room")
}

// abortMatch fires after the grace delay once a mid-match room fell below the
// player minimum: discard round state, return to lobby, resync everyone.
func (g *Registry) abortMatch(room *Room, gen uint64) {
	room.mu.Lock()
	if gen != room.timerGen || room.Phase == PhaseLobby {
		room.mu.Unlock()
		return
	}
	g.resetToLobbyLocked(room)
	flush := broadcastLocked(room, Message[LobbyState]{Type: "lobby", Data: lobbyStateLocked(room)})
	code := room.Code
	room.mu.Unlock()
	flush()

	log.Info().Str("room", code).Msg("match aborted: not enough players")
}

func removeByID(players []*Player, id string) []*Player {
	for i, p := range players {
		if p.ID == id {
			return append(players[:i], players[i+1:]...)
		}
	}
	return players
}

package game

import (
	"github.com/rs/zerolog/log"
)

// broadcastLocked fans a message out to every room member. Callers hold
// room.mu; the writes still happen outside the critical section: it snapshots
// the member list and returns a flush func to run after unlock, so a slow
// connection never stalls room state and emission order is preserved.
func broadcastLocked[T any](room *Room, msg Message[T]) func() {
	members := room.members()
	return func() {
		for _, p := range members {
			sendTo(p, msg)
		}
	}
}

func sendTo[T any](p *Player, msg Message[T]) {
	if p == nil || p.Sender == nil {
		return
	}
	if err := p.Sender.Send(msg); err != nil {
		log.Debug().Err(err).Str("player", p.ID).Str("msg", msg.Type).Msg("dropping undeliverable message")
	}
}

// lobbyStateLocked builds the lobby snapshot; callers hold room.mu.
func lobbyStateLocked(room *Room) LobbyState {
	ids := make([]string, 0, len(room.Players))
	ready := 0
	for _, p := range room.Players {
		ids = append(ids, p.ID)
		if room.Ready[p.ID] {
			ready++
		}
	}
	return LobbyState{
		Players:     ids,
		ReadyCount:  ready,
		HostID:      room.HostID,
		MatchType:   room.MatchType,
		Phase:       room.Phase,
		RoundNum:    room.RoundNum,
		TotalRounds: room.TotalRounds,
		CanStart:    room.canStart(),
	}
}

package game

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Phase scheduling. A room owns at most one pending timer; arming a new one
// stops the previous timer and bumps the generation counter, and every
// deferred callback re-checks generation and phase under the room lock before
// acting. A stale timer that already fired is therefore a no-op.

// armTimerLocked must be called with r.mu held.
func (r *Room) armTimerLocked(d time.Duration, fn func(gen uint64)) {
	if r.pending != nil {
		r.pending.Stop()
	}
	r.timerGen++
	gen := r.timerGen
	r.pending = time.AfterFunc(d, func() { fn(gen) })
}

// cancelTimerLocked invalidates any pending or already-fired callback.
func (r *Room) cancelTimerLocked() {
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.timerGen++
}

func epochMS(t time.Time) int64 {
	return t.UnixMilli()
}

// setupRoundLocked advances to the next round: fresh blueprint, fresh
// board(s), cleared per-round counters. Callers hold room.mu; the returned
// flush sends the roundSetup broadcast.
func (g *Registry) setupRoundLocked(room *Room) func() {
	room.RoundNum++
	cfg := roundConfigFor(room.MatchType, room.RoundNum)
	room.GridW, room.GridH = cfg.GridW, cfg.GridH
	room.Blueprint = g.newBlueprint(cfg.GridW, cfg.GridH)

	room.Finished = nil
	room.Edits = make(map[string]int)
	room.EditCap = editCapFor(cfg)
	room.Submitted = make(map[string]bool)
	room.PeekUntil = 0

	if room.MatchType == MatchTeam {
		room.TeamBoard = NewGrid(cfg.GridW, cfg.GridH)
		room.Boards = nil
		room.PeeksRemaining = PeekTokens
	} else {
		room.TeamBoard = nil
		room.Boards = make(map[string]Grid, len(room.Players))
		for _, p := range room.Players {
			room.Boards[p.ID] = NewGrid(cfg.GridW, cfg.GridH)
		}
		room.PeeksRemaining = 0
	}

	log.Info().Str("room", room.Code).Int("round", room.RoundNum).
		Int("gridW", cfg.GridW).Int("gridH", cfg.GridH).Msg("round setup")

	return broadcastLocked(room, Message[RoundSetup]{
		Type: "roundSetup",
		Data: RoundSetup{
			GridW:          cfg.GridW,
			GridH:          cfg.GridH,
			Blueprint:      room.Blueprint,
			Board:          NewGrid(cfg.GridW, cfg.GridH),
			MatchType:      room.MatchType,
			RoundNum:       room.RoundNum,
			TotalRounds:    room.TotalRounds,
			PeeksRemaining: room.PeeksRemaining,
		},
	})
}

// beginCountdownLocked arms the short pre-preview buffer.
func (g *Registry) beginCountdownLocked(room *Room) func() {
	room.Phase = PhaseCountdown
	room.CountdownEndsAt = epochMS(time.Now().Add(CountdownDuration))
	room.PreviewEndsAt = 0
	room.BuildEndsAt = 0
	room.armTimerLocked(CountdownDuration, func(gen uint64) { g.beginPreview(room, gen) })
	return broadcastLocked(room, Message[PhaseUpdate]{
		Type: "phase",
		Data: PhaseUpdate{
			Phase:           PhaseCountdown,
			CountdownEndsAt: room.CountdownEndsAt,
			RoundNum:        room.RoundNum,
			TotalRounds:     room.TotalRounds,
		},
	})
}

func (g *Registry) beginPreview(room *Room, gen uint64) {
	room.mu.Lock()
	if gen != room.timerGen || room.Phase != PhaseCountdown {
		room.mu.Unlock()
		return
	}
	cfg := roundConfigFor(room.MatchType, room.RoundNum)
	room.Phase = PhasePreview
	room.PreviewEndsAt = epochMS(time.Now().Add(cfg.Preview))
	room.armTimerLocked(cfg.Preview, func(gen uint64) { g.beginBuild(room, gen) })
	flush := broadcastLocked(room, Message[PhaseUpdate]{
		Type: "phase",
		Data: PhaseUpdate{
			Phase:         PhasePreview,
			PreviewEndsAt: room.PreviewEndsAt,
			RoundNum:      room.RoundNum,
			TotalRounds:   room.TotalRounds,
		},
	})
	room.mu.Unlock()
	flush()
}

func (g *Registry) beginBuild(room *Room, gen uint64) {
	room.mu.Lock()
	if gen != room.timerGen || room.Phase != PhasePreview {
		room.mu.Unlock()
		return
	}
	cfg := roundConfigFor(room.MatchType, room.RoundNum)
	room.Phase = PhaseBuild
	room.BuildEndsAt = epochMS(time.Now().Add(cfg.Build))
	room.armTimerLocked(cfg.Build, func(gen uint64) { g.resolveRoundFromTimer(room, gen) })

	update := PhaseUpdate{
		Phase:       PhaseBuild,
		BuildEndsAt: room.BuildEndsAt,
		RoundNum:    room.RoundNum,
		TotalRounds: room.TotalRounds,
	}
	if room.MatchType == MatchTeam {
		peeks := room.PeeksRemaining
		update.PeeksRemaining = &peeks
	}
	flush := broadcastLocked(room, Message[PhaseUpdate]{Type: "phase", Data: update})
	room.mu.Unlock()
	flush()
}

func (g *Registry) resolveRoundFromTimer(room *Room, gen uint64) {
	room.mu.Lock()
	if gen != room.timerGen {
		room.mu.Unlock()
		return
	}
	g.resolveRoundLocked(room, "timer")
}

// resolveRound ends the build phase from an in-handler trigger (all finished,
// all submitted). It is idempotent: only the first caller to see PhaseBuild
// has any effect.
func (g *Registry) resolveRound(room *Room, reason string) {
	room.mu.Lock()
	g.resolveRoundLocked(room, reason)
}

// resolveRoundLocked consumes room.mu: it scores the round, broadcasts the
// results, and arms the results pause, unlocking before the sends go out.
func (g *Registry) resolveRoundLocked(room *Room, reason string) {
	if room.Phase != PhaseBuild {
		room.mu.Unlock()
		return
	}
	room.Phase = PhaseResults

	var entries []RoundResultEntry
	if room.MatchType == MatchTeam {
		entries = g.scoreTeamRoundLocked(room)
	} else {
		entries = g.scoreCompetitiveRoundLocked(room)
	}

	log.Info().Str("room", room.Code).Int("round", room.RoundNum).
		Str("reason", reason).Msg("round resolved")

	flush := broadcastLocked(room, Message[RoundResults]{
		Type: "roundResults",
		Data: RoundResults{RoundNum: room.RoundNum, Entries: entries},
	})
	room.armTimerLocked(ResultsPause, func(gen uint64) { g.afterResults(room, gen) })
	room.mu.Unlock()
	flush()
}

func (g *Registry) scoreCompetitiveRoundLocked(room *Room) []RoundResultEntry {
	entries := make([]RoundResultEntry, 0, len(room.seatOrder))
	for _, id := range room.seatOrder {
		board, ok := room.Boards[id]
		if !ok {
			continue
		}
		sc := scoreBoard(board, room.Blueprint)
		rank := room.rankOf(id)
		pts := competitivePoints(rank, sc.Accuracy)
		room.Points[id] += pts
		entries = append(entries, RoundResultEntry{ID: id, Rank: rank, Accuracy: sc.Accuracy, Points: pts})
	}
	// Ranked players first by rank, the rest by accuracy; stable sort keeps
	// join order as the tie-break.
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := entries[i].Rank, entries[j].Rank
		switch {
		case ri > 0 && rj > 0:
			return ri < rj
		case ri > 0:
			return true
		case rj > 0:
			return false
		default:
			return entries[i].Accuracy > entries[j].Accuracy
		}
	})
	return entries
}

func (g *Registry) scoreTeamRoundLocked(room *Room) []RoundResultEntry {
	sc := scoreBoard(room.TeamBoard, room.Blueprint)
	peeksSpent := PeekTokens - room.PeeksRemaining
	pts := teamPoints(sc.Accuracy, sc.Wrong, peeksSpent)
	entries := make([]RoundResultEntry, 0, len(room.Players))
	for _, p := range room.Players {
		room.Points[p.ID] += pts
		entries = append(entries, RoundResultEntry{ID: p.ID, Accuracy: sc.Accuracy, Points: pts})
	}
	return entries
}

// afterResults either rolls into the next round or ends the match.
func (g *Registry) afterResults(room *Room, gen uint64) {
	room.mu.Lock()
	if gen != room.timerGen || room.Phase != PhaseResults {
		room.mu.Unlock()
		return
	}

	if room.RoundNum < room.TotalRounds {
		flushSetup := g.setupRoundLocked(room)
		flushPhase := g.beginCountdownLocked(room)
		room.mu.Unlock()
		flushSetup()
		flushPhase()
		return
	}

	summary := g.matchSummaryLocked(room)
	g.resetToLobbyLocked(room)
	flushSummary := broadcastLocked(room, Message[MatchSummary]{Type: "matchSummary", Data: summary})
	flushLobby := broadcastLocked(room, Message[LobbyState]{Type: "lobby", Data: lobbyStateLocked(room)})
	code, mt := room.Code, room.MatchType
	room.mu.Unlock()
	flushSummary()
	flushLobby()

	log.Info().Str("room", code).Msg("match complete")
	g.recordMatch(code, mt, summary.Entries)
}

// matchSummaryLocked sorts cumulative points descending; equal totals keep
// room-join order.
func (g *Registry) matchSummaryLocked(room *Room) MatchSummary {
	entries := make([]SummaryEntry, 0, len(room.seatOrder))
	for _, id := range room.seatOrder {
		if total, ok := room.Points[id]; ok {
			entries = append(entries, SummaryEntry{ID: id, Total: total})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})
	return MatchSummary{Entries: entries}
}

// resetToLobbyLocked discards all round state. Used at match end and on
// mid-match abort.
func (g *Registry) resetToLobbyLocked(room *Room) {
	room.cancelTimerLocked()
	room.Phase = PhaseLobby
	room.RoundNum = 0
	room.Ready = make(map[string]bool)
	room.Blueprint = nil
	room.Boards = nil
	room.TeamBoard = nil
	room.Finished = nil
	room.Edits = nil
	room.Submitted = nil
	room.PeeksRemaining = 0
	room.PeekUntil = 0
	room.CountdownEndsAt = 0
	room.PreviewEndsAt = 0
	room.BuildEndsAt = 0

	// Spectators become eligible players for the next match.
	for _, p := range room.Spectators {
		p.Spectator = false
		room.Players = append(room.Players, p)
	}
	room.Spectators = nil
	if room.HostID == "" && len(room.Players) > 0 {
		room.HostID = room.Players[0].ID
	}
}

func (g *Registry) recordMatch(code string, mt MatchType, entries []SummaryEntry) {
	if g.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.recorder.RecordMatch(ctx, code, string(mt), entries); err != nil {
			log.Warn().Err(err).Str("room", code).Msg("failed to archive match result")
		}
	}()
}

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buildrush/buildrush-backend/internal/game"
)

// Store archives finished match summaries to Postgres. Live room state never
// touches the database; this is a write-mostly results log.
type Store struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS match_history (
	id         BIGSERIAL PRIMARY KEY,
	room_code  TEXT        NOT NULL,
	match_type TEXT        NOT NULL,
	standings  JSONB       NOT NULL,
	played_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func NewStore(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure match_history schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// RecordMatch implements game.MatchRecorder.
func (s *Store) RecordMatch(ctx context.Context, roomCode, matchType string, standings []game.SummaryEntry) error {
	payload, err := json.Marshal(standings)
	if err != nil {
		return fmt.Errorf("marshal standings: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		"INSERT INTO match_history(room_code, match_type, standings) VALUES($1, $2, $3)",
		roomCode, matchType, payload)
	if err != nil {
		return fmt.Errorf("insert match history: %w", err)
	}
	return nil
}

type MatchRecord struct {
	RoomCode  string
	MatchType string
	Standings []game.SummaryEntry
	PlayedAt  time.Time
}

// MatchesForRoom returns the archived matches for one room code, newest
// first.
func (s *Store) MatchesForRoom(ctx context.Context, roomCode string) ([]MatchRecord, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT room_code, match_type, standings, played_at FROM match_history WHERE room_code = $1 ORDER BY played_at DESC, id DESC",
		roomCode)
	if err != nil {
		return nil, fmt.Errorf("query match history: %w", err)
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var payload []byte
		if err := rows.Scan(&rec.RoomCode, &rec.MatchType, &payload, &rec.PlayedAt); err != nil {
			return nil, fmt.Errorf("scan match history row: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Standings); err != nil {
			return nil, fmt.Errorf("decode standings: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

package game

// Message is the wire envelope for both directions.
type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// RoomAck answers createRoom and joinRoom. All other inbound messages are
// fire-and-forget.
type RoomAck struct {
	Ok          bool      `json:"ok"`
	Error       string    `json:"error,omitempty"`
	Code        string    `json:"code,omitempty"`
	SelfID      string    `json:"selfId,omitempty"`
	HostID      string    `json:"hostId,omitempty"`
	MatchType   MatchType `json:"matchType,omitempty"`
	Phase       Phase     `json:"phase,omitempty"`
	RoundNum    int       `json:"roundNum"`
	TotalRounds int       `json:"totalRounds"`
	Spectator   bool      `json:"spectator,omitempty"`
}

type LobbyState struct {
	Players     []string  `json:"players"`
	ReadyCount  int       `json:"readyCount"`
	HostID      string    `json:"hostId"`
	MatchType   MatchType `json:"matchType"`
	Phase       Phase     `json:"phase"`
	RoundNum    int       `json:"roundNum"`
	TotalRounds int       `json:"totalRounds"`
	CanStart    bool      `json:"canStart"`
}

type ModeUpdate struct {
	MatchType MatchType `json:"matchType"`
}

type RoundSetup struct {
	GridW          int       `json:"gridW"`
	GridH          int       `json:"gridH"`
	Blueprint      Grid      `json:"blueprint"`
	Board          Grid      `json:"board"`
	MatchType      MatchType `json:"matchType"`
	RoundNum       int       `json:"roundNum"`
	TotalRounds    int       `json:"totalRounds"`
	PeeksRemaining int       `json:"peeksRemaining"`
}

// PhaseUpdate carries absolute epoch-ms deadlines so clients recompute the
// countdown against their own clock instead of trusting transit time.
type PhaseUpdate struct {
	Phase           Phase `json:"phase"`
	CountdownEndsAt int64 `json:"countdownEndsAt,omitempty"`
	PreviewEndsAt   int64 `json:"previewEndsAt,omitempty"`
	BuildEndsAt     int64 `json:"buildEndsAt,omitempty"`
	RoundNum        int   `json:"roundNum"`
	TotalRounds     int   `json:"totalRounds"`
	PeeksRemaining  *int  `json:"peeksRemaining,omitempty"`
}

type GridUpdate struct {
	Owner string `json:"owner,omitempty"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Tile  Tile   `json:"tile"`
}

type PlayerFinished struct {
	ID   string `json:"id"`
	Rank int    `json:"rank"`
}

type PeekWindow struct {
	Until          int64 `json:"until"`
	PeeksRemaining int   `json:"peeksRemaining"`
}

type RoundResultEntry struct {
	ID       string `json:"id"`
	Rank     int    `json:"rank,omitempty"`
	Accuracy int    `json:"accuracy"`
	Points   int    `json:"pts"`
}

type RoundResults struct {
	RoundNum int                `json:"roundNum"`
	Entries  []RoundResultEntry `json:"entries"`
}

type SummaryEntry struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

type MatchSummary struct {
	Entries []SummaryEntry `json:"entries"`
}

type OpponentLeft struct {
	ID string `json:"id"`
}

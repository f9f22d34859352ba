package utils

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// RoomCodeAlphabet omits glyphs that read ambiguously when spoken or typed
// from another player's screen: I, L, O, 0, 1.
const RoomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// GenerateRoomCode returns an n-character room code. Uniqueness is the
// caller's contract; the registry retries on collision.
func GenerateRoomCode(n int) string {
	rngMu.Lock()
	defer rngMu.Unlock()
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(RoomCodeAlphabet[rng.Intn(len(RoomCodeAlphabet))])
	}
	return b.String()
}

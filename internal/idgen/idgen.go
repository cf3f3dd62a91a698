// Package idgen produces collision-resistant identifiers for entities that
// receive a fresh ID during import.
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daybookhq/daybook/internal/types"
)

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// tokenBytes is the amount of random entropy per generated ID. 5 bytes of
// entropy on top of a nanosecond timestamp keeps same-run collisions out of
// reach; the mapper still enforces injectivity as a backstop.
const tokenBytes = 5

// prefixes gives each entity type a short, human-scannable ID prefix.
var prefixes = map[types.EntityType]string{
	types.TypeGoal:         "goal",
	types.TypeProject:      "proj",
	types.TypeTask:         "task",
	types.TypeThought:      "thot",
	types.TypeMood:         "mood",
	types.TypeFocusSession: "focus",
	types.TypePerson:       "pers",
	types.TypePortfolio:    "port",
	types.TypeSpending:     "spend",
}

// EncodeBase36 converts a byte slice to a base36 string of the given length,
// padding with zeros and keeping the least significant digits on overflow.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)

	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var result strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		result.WriteByte(chars[i])
	}

	str := result.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

// NewID generates a fresh identifier for an entity of type t: a type prefix,
// a base36 timestamp, and a base36 random token.
func NewID(t types.EntityType) string {
	prefix, ok := prefixes[t]
	if !ok {
		prefix = string(t)
	}

	now := time.Now().UnixNano()
	ts := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		ts[i] = byte(now)
		now >>= 8
	}

	token := make([]byte, tokenBytes)
	if _, err := rand.Read(token); err != nil {
		// crypto/rand failing is effectively unreachable; fall back to a
		// uuid-derived token rather than panicking mid-import.
		u := uuid.New()
		copy(token, u[:tokenBytes])
	}

	return fmt.Sprintf("%s-%s%s", prefix, EncodeBase36(ts, 9), EncodeBase36(token, 8))
}

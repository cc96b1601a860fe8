package service

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const idSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// businessID generates a human-readable id like LOY-mf3k2x1z-a9k2 from a
// millisecond timestamp in base 36 plus a random suffix. Collisions across
// the same millisecond are guarded by unique DB constraints.
func businessID(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 36))
	b.WriteByte('-')
	for range 4 {
		b.WriteByte(idSuffixAlphabet[rand.IntN(len(idSuffixAlphabet))])
	}
	return strings.ToUpper(b.String())
}

package types

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	idAlphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffixLen = 9
)

// NewID builds a display identifier of the form <prefix>_<unix-millis>_<9 base36 chars>.
// It is unique enough for a single client session, not globally.
func NewID(prefix string, now time.Time) string {
	var b strings.Builder
	b.Grow(len(prefix) + 1 + 13 + 1 + idSuffixLen)
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < idSuffixLen; i++ {
		b.WriteByte(idAlphabet[rand.IntN(len(idAlphabet))])
	}
	return b.String()
}

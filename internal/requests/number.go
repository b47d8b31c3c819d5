package requests

import (
	"crypto/rand"
	"fmt"
	"time"
)

// base32 alphabet without the easily confused 0/1/O/I.
const numberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const numberTailLen = 6

// newRequestNumber builds a human-readable code like GS-20260831-K4T7QX.
// Uniqueness is enforced by the request_number index; callers retry on a
// collision.
func newRequestNumber(now time.Time) (string, error) {
	buf := make([]byte, numberTailLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate request number: %w", err)
	}
	tail := make([]byte, numberTailLen)
	for i, b := range buf {
		tail[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("GS-%s-%s", now.UTC().Format("20060102"), string(tail)), nil
}

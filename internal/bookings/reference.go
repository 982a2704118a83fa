package bookings

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// NewReference generates a booking reference of the form
// "BK<epoch-millis><0-999>". Millisecond timestamps make collisions rare;
// the unique constraint on booking_reference catches the rest and the
// insert is retried with a fresh reference.
func NewReference() string {
	return referenceAt(time.Now(), rand.Intn(1000))
}

func referenceAt(t time.Time, n int) string {
	return fmt.Sprintf("BK%d%d", t.UnixMilli(), n)
}

// ValidReference reports whether s looks like a generated booking reference.
func ValidReference(s string) bool {
	if !strings.HasPrefix(s, "BK") || len(s) < 3 {
		return false
	}
	for _, r := range s[2:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewID returns a client-side entity id: unix-millisecond timestamp plus a
// random hex suffix, e.g. "1756684800000-9f3a2c". Server-assigned ids are
// also accepted everywhere an id is consumed.
func NewID() string {
	var suffix [3]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		// crypto/rand failing is not recoverable in any useful way here;
		// fall back to a second timestamp component.
		return fmt.Sprintf("%d-%x", time.Now().UnixMilli(), time.Now().UnixNano()%0xffffff)
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix[:]))
}

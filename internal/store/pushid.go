package store

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Push keys follow the hosted store's scheme: 8 characters encode the
// millisecond timestamp, 12 characters are random, using an alphabet in
// ascending ASCII order so that lexical order equals chronological order.
// Two pushes within the same millisecond increment the previous random
// suffix instead of re-rolling it, keeping key order equal to arrival order.
const pushIDAlphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

type pushIDGenerator struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	lastMS   int64
	lastRand [12]int
}

func newPushIDGenerator() *pushIDGenerator {
	return &pushIDGenerator{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 - key suffixes need no cryptographic strength
	}
}

func (g *pushIDGenerator) next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := now.UnixMilli()

	if ms == g.lastMS {
		// Same millisecond: increment the previous suffix.
		for i := len(g.lastRand) - 1; i >= 0; i-- {
			if g.lastRand[i] < len(pushIDAlphabet)-1 {
				g.lastRand[i]++
				break
			}
			g.lastRand[i] = 0
		}
	} else {
		g.lastMS = ms
		for i := range g.lastRand {
			g.lastRand[i] = g.rnd.Intn(len(pushIDAlphabet))
		}
	}

	var b strings.Builder
	b.Grow(20)

	ts := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		ts[i] = pushIDAlphabet[ms%64]
		ms /= 64
	}
	b.Write(ts)

	for _, idx := range g.lastRand {
		b.WriteByte(pushIDAlphabet[idx])
	}

	return b.String()
}

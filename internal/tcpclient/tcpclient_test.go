package tcpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	b := initialBackoff
	seen := []time.Duration{b}
	for i := 0; i < 10; i++ {
		b = nextBackoff(b)
		seen = append(seen, b)
	}
	assert.Equal(t, time.Second, seen[0])
	assert.Equal(t, 2*time.Second, seen[1])
	assert.Equal(t, 4*time.Second, seen[2])
	assert.Equal(t, maxBackoff, seen[len(seen)-1])
	for _, d := range seen {
		assert.LessOrEqual(t, d, maxBackoff)
	}
}

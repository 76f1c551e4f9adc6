package simulation

import (
	"math/rand"
	"sync/atomic"
	"time"
)

var unseededCounter atomic.Uint64

// NewRand returns a generator seeded with *seed. A nil seed draws a fresh
// seed from the clock, so unseeded runs differ from each other.
func NewRand(seed *int64) *rand.Rand {
	return rand.New(rand.NewSource(resolveSeed(seed)))
}

// Streams derives n independent generators from one seed. Stream i is a
// function of (seed, i) only, so a fixed seed and stream count reproduce the
// same draws regardless of goroutine scheduling.
func Streams(seed *int64, n int) []*rand.Rand {
	base := uint64(resolveSeed(seed))
	streams := make([]*rand.Rand, n)
	for i := range streams {
		streams[i] = rand.New(rand.NewSource(int64(splitmix64(base + uint64(i)*0x9e3779b97f4a7c15))))
	}
	return streams
}

func resolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return int64(splitmix64(uint64(time.Now().UnixNano()) ^ unseededCounter.Add(1)<<32))
}

// splitmix64 is the finalizer of the SplitMix64 generator; it decorrelates
// neighbouring seeds before they reach the source.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

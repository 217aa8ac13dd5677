package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedLockSerialisesSameKey(t *testing.T) {
	locks := newKeyedLock()
	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(7)
			current := atomic.AddInt32(&inside, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if current <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, current) {
					break
				}
			}
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxSeen)
	require.Zero(t, locks.size())
}

func TestKeyedLockIndependentKeys(t *testing.T) {
	locks := newKeyedLock()
	unlockA := locks.Lock(1)
	unlockB := locks.Lock(2)
	require.Equal(t, 2, locks.size())
	unlockA()
	unlockB()
	require.Zero(t, locks.size())
}

package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLock_SameKeySameMutex(t *testing.T) {
	lm := NewLockManager()
	assert.Same(t, lm.GetLock("alice"), lm.GetLock("alice"))
	assert.NotSame(t, lm.GetLock("alice"), lm.GetLock("bob"))
}

func TestLockAll_DuplicateKeys(t *testing.T) {
	lm := NewLockManager()
	unlock := lm.LockAll("alice", "alice")
	unlock()
	assert.True(t, lm.GetLock("alice").TryLock())
}

func TestLockAll_OppositeOrderDoesNotDeadlock(t *testing.T) {
	lm := NewLockManager()
	counter := map[string]int{}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := lm.LockAll("alice", "bob")
			counter["alice"]++
			counter["bob"]++
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := lm.LockAll("bob", "alice")
			counter["alice"]++
			counter["bob"]++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, counter["alice"])
	assert.Equal(t, 400, counter["bob"])
}

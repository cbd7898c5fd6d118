package tracker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLock_SerializesSameKey(t *testing.T) {
	k := newKeyLock()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.acquire("urlQueueList")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyLock_DuplicateKeysLockOnce(t *testing.T) {
	k := newKeyLock()

	// Would deadlock if the same key were locked twice.
	unlock := k.acquire("webhistory", "webhistory", "webhistory")
	unlock()

	unlock = k.acquire("webhistory")
	unlock()
}

func TestKeyLock_OppositeOrderAcquisitionDoesNotDeadlock(t *testing.T) {
	k := newKeyLock()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := k.acquire("urlQueueList", "timeQueueList")
			defer unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := k.acquire("timeQueueList", "urlQueueList")
			defer unlock()
		}()
	}
	wg.Wait()
}

func TestKeyLock_IndependentKeysDoNotBlock(t *testing.T) {
	k := newKeyLock()

	unlockA := k.acquire("urlQueueList")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := k.acquire("webhistory")
		unlockB()
		close(done)
	}()

	<-done
}

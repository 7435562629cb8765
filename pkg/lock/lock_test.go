package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("patient-1")
			defer km.Unlock("patient-1")
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("a")
	// A different key must not block.
	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
	km.Unlock("a")
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("a")
	km.Unlock("a")

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}

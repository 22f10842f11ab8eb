package metrics

import (
	"sync"
	"testing"
)

func TestRegisterConcurrent(t *testing.T) {
	// Duplicate registration panics; concurrent initializers must not race
	// into it.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Register()
		}()
	}
	wg.Wait()

	Register()
}

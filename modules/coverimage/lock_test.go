package coverimage

import (
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"portada-media-server/modules/common/generr"
)

func TestTenantLockRejectsSecondAcquire(t *testing.T) {
	lock := NewTenantLock()

	if err := lock.Acquire("tenant-a"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	err := lock.Acquire("tenant-a")
	if err == nil {
		t.Fatal("second acquire must be rejected")
	}
	assert.Equal(t, generr.CodeOf(err), generr.CodeConcurrency)

	// Other tenants are unaffected.
	if err := lock.Acquire("tenant-b"); err != nil {
		t.Fatalf("unrelated tenant: %v", err)
	}

	// Third call succeeds after release.
	lock.Release("tenant-a")
	if err := lock.Acquire("tenant-a"); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestTenantLockConcurrentAcquire(t *testing.T) {
	lock := NewTenantLock()

	const goroutines = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired, rejected := 0, 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := lock.Acquire("tenant-x")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.Equal(t, generr.CodeOf(err), generr.CodeConcurrency)
				rejected++
			} else {
				acquired++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, acquired, 1)
	assert.Equal(t, rejected, goroutines-1)
}

func TestTenantLockReleaseWhenNotHeld(t *testing.T) {
	lock := NewTenantLock()
	lock.Release("never-held") // must not panic
	assert.Equal(t, lock.Held("never-held"), false)
}

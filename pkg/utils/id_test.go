package utils

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == "" {
		t.Error("GenerateID returned empty string")
	}

	if id1 == id2 {
		t.Error("GenerateID should return unique IDs")
	}

	// timestamp-counter format
	if !strings.Contains(id1, "-") {
		t.Errorf("GenerateID should contain hyphen: %s", id1)
	}
}

func TestGenerateRequestID(t *testing.T) {
	id1 := GenerateRequestID()
	id2 := GenerateRequestID()

	if id1 == "" {
		t.Error("GenerateRequestID returned empty string")
	}

	if id1 == id2 {
		t.Error("GenerateRequestID should return unique IDs")
	}

	// 8 bytes hex-encoded = 16 characters
	if len(id1) != 16 {
		t.Errorf("GenerateRequestID should return 16 character hex string, got %d: %s", len(id1), id1)
	}
}

func TestGenerateRunID(t *testing.T) {
	id1 := GenerateRunID()
	id2 := GenerateRunID()

	if !strings.HasPrefix(id1, "run-") {
		t.Errorf("GenerateRunID should start with 'run-': %s", id1)
	}

	if id1 == id2 {
		t.Error("GenerateRunID should return unique IDs")
	}

	// run-YYYYMMDD-HHMMSS-xxxxxxxx
	parts := strings.Split(id1, "-")
	if len(parts) != 4 {
		t.Errorf("GenerateRunID should have 4 hyphen-separated parts, got %d: %s", len(parts), id1)
	}
}

func TestGenerateIDConcurrent(t *testing.T) {
	const goroutines = 10
	const perGoroutine = 100

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := GenerateID()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate ID generated: %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
}

package cw

import (
	"strings"
	"sync"
	"testing"
)

func TestText_AppendAndReset(t *testing.T) {
	var txt Text
	txt.Append('C')
	txt.Append('Q')
	if txt.String() != "CQ" {
		t.Errorf("String() = %q, want %q", txt.String(), "CQ")
	}
	txt.Reset()
	if txt.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", txt.Len())
	}
}

func TestText_AppendOverflowResets(t *testing.T) {
	var txt Text
	for i := 0; i < MaxTextLen; i++ {
		txt.Append('E')
	}
	if txt.Len() != MaxTextLen {
		t.Fatalf("Len() = %d, want %d", txt.Len(), MaxTextLen)
	}

	txt.Append('T')
	if txt.String() != "T" {
		t.Errorf("String() after overflow = %q, want %q", txt.String(), "T")
	}
}

func TestText_Set(t *testing.T) {
	var txt Text
	txt.Set("HELLO")
	if txt.String() != "HELLO" {
		t.Errorf("String() = %q, want HELLO", txt.String())
	}

	txt.Set(strings.Repeat("A", MaxTextLen))
	if txt.Len() != MaxTextLen {
		t.Errorf("Len() = %d, want %d", txt.Len(), MaxTextLen)
	}

	txt.Set(strings.Repeat("A", MaxTextLen+1))
	if txt.Len() != 0 {
		t.Errorf("Len() after oversized Set = %d, want 0", txt.Len())
	}
}

func TestText_ConcurrentAccess(t *testing.T) {
	var txt Text
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				txt.Append('E')
				_ = txt.String()
				if j%100 == 0 {
					txt.Set("K")
				}
			}
		}()
	}
	wg.Wait()

	if txt.Len() > MaxTextLen {
		t.Errorf("Len() = %d exceeds %d", txt.Len(), MaxTextLen)
	}
}

package cw

import "sync"

// Text is the decoded text accumulator. It is appended to by the decode loop
// and overwritten by the UI, so every access is locked.
type Text struct {
	mu sync.Mutex
	b  []rune
}

// Append adds r. An append that would overflow MaxTextLen clears the text first.
func (t *Text) Append(r rune) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.b)+1 > MaxTextLen {
		t.b = t.b[:0]
	}
	t.b = append(t.b, r)
}

// Set replaces the text. Input longer than MaxTextLen leaves the text empty.
func (t *Text) Set(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.b = append(t.b[:0], []rune(s)...)
	if len(t.b) > MaxTextLen {
		t.b = t.b[:0]
	}
}

func (t *Text) Reset() {
	t.mu.Lock()
	t.b = t.b[:0]
	t.mu.Unlock()
}

func (t *Text) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.b)
}

func (t *Text) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.b)
}

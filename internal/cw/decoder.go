package cw

import "time"

// Edge is a key transition observed by Step.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeToneOn
	EdgeToneOff
)

// StepResult reports what a single Step did.
type StepResult struct {
	Edge Edge
	// Duration is the measured tone length on EdgeToneOff.
	Duration time.Duration
	// Noise is set when the tone was too long to be a dah and the buffer was dropped.
	Noise bool
	// Letter is the character appended by a letter flush, 0 if none matched.
	Letter rune
	// Flushes counts letter and word flushes; each one owes the observer a notification.
	Flushes int
}

// Decoder is the live-keying state machine. It is stepped once per poll tick
// with the current key state and owns the pending code buffer. It is not safe
// for concurrent use; callers serialize Step and Reset.
type Decoder struct {
	text *Text
	buf  []Symbol

	keyDown   bool
	toneStart time.Time
	toneEnd   time.Time

	// Latched per silence period, armed on every tone end.
	letterPending bool
	spacePending  bool
}

// NewDecoder creates a decoder that appends to text.
func NewDecoder(text *Text) *Decoder {
	return &Decoder{
		text: text,
		buf:  make([]Symbol, 0, MaxCodeLen+1),
	}
}

// Step advances the machine to now. Tone classification always happens
// before any flush in the same step.
func (d *Decoder) Step(now time.Time, keying bool, dit time.Duration) StepResult {
	var res StepResult

	switch {
	case keying && !d.keyDown:
		// The gap ending on this tick still counts toward its boundaries.
		d.checkSilence(now, dit, &res)
		d.keyDown = true
		d.toneStart = now
		res.Edge = EdgeToneOn
		return res
	case !keying && d.keyDown:
		d.keyDown = false
		d.toneEnd = now
		d.letterPending = true
		d.spacePending = true
		res.Edge = EdgeToneOff
		res.Duration = now.Sub(d.toneStart)
		res.Noise = !d.push(res.Duration, dit)
	}

	if d.keyDown {
		return res
	}

	d.checkSilence(now, dit, &res)
	return res
}

// checkSilence fires the letter and word boundaries the current gap has reached.
func (d *Decoder) checkSilence(now time.Time, dit time.Duration, res *StepResult) {
	silence := now.Sub(d.toneEnd)
	if d.letterPending && silence >= InterCharSpaceRatio*dit {
		d.letterPending = false
		if len(d.buf) == 0 {
			// Nothing was keyed worth a letter, so the gap is not a word boundary either.
			d.spacePending = false
		} else {
			res.Letter = d.flush()
			res.Flushes++
		}
	}
	if d.spacePending && silence >= WordSpaceRatio*dit {
		d.spacePending = false
		d.text.Append(' ')
		res.Flushes++
	}
}

// push classifies a tone into the buffer and reports whether it was a symbol.
func (d *Decoder) push(duration, dit time.Duration) bool {
	s, ok := Classify(duration, dit)
	if !ok {
		d.buf = d.buf[:0]
		return false
	}
	d.buf = append(d.buf, s)
	if len(d.buf) > MaxCodeLen {
		d.buf = d.buf[:0]
	}
	return true
}

// flush matches the buffer against the table and clears it.
func (d *Decoder) flush() rune {
	code := string(symbolBytes(d.buf))
	d.buf = d.buf[:0]
	r, ok := Decode(code)
	if !ok {
		return 0
	}
	d.text.Append(r)
	return r
}

// Pending returns the code keyed so far for the current letter.
func (d *Decoder) Pending() string {
	return string(symbolBytes(d.buf))
}

// KeyDown reports whether the decoder is inside a tone.
func (d *Decoder) KeyDown() bool {
	return d.keyDown
}

// Reset drops the pending code and any latched boundaries.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.letterPending = false
	d.spacePending = false
}

func symbolBytes(syms []Symbol) []byte {
	b := make([]byte, len(syms))
	for i, s := range syms {
		b[i] = byte(s)
	}
	return b
}

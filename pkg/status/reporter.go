// Copyright 2026 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package status

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Reporter publishes a status word to an external observation point. It is
// write-only: nothing in the boot chain reads back what it advertised.
type Reporter interface {
	Advertise(w Word) error
}

// Tracker owns the status word of one boot attempt and advertises every
// change through a Reporter.
type Tracker struct {
	reporter Reporter
	word     Word
}

// NewTracker returns a Tracker starting at the Operating outcome. Nothing is
// advertised until the first call to Advance or Publish.
func NewTracker(r Reporter) *Tracker {
	return &Tracker{reporter: r, word: New(Operating)}
}

// Word returns the current status word.
func (t *Tracker) Word() Word {
	return t.word
}

// Advance moves the tracked word to o with error code c and advertises it.
// Moving to an outcome lower than the current one is refused.
func (t *Tracker) Advance(o Outcome, c Code) error {
	if o < t.word.Outcome() {
		return &Error{C: CodeStatusRegression, Err: fmt.Errorf("%s -> %s", t.word.Outcome(), o)}
	}
	t.word = Merge(New(o), c)
	return t.Publish()
}

// Publish advertises the current word again.
func (t *Tracker) Publish() error {
	if err := t.reporter.Advertise(t.word); err != nil {
		return &Error{C: CodeStatusRegister, Err: err}
	}
	return nil
}

// Recorder is a Reporter which keeps every advertised word.
type Recorder struct {
	Words []Word
	// Fail, if set, is returned by Advertise instead of recording.
	Fail error
}

// Advertise implements Reporter.
func (r *Recorder) Advertise(w Word) error {
	if r.Fail != nil {
		return r.Fail
	}
	r.Words = append(r.Words, w)
	return nil
}

// Last returns the last advertised word, or zero.
func (r *Recorder) Last() Word {
	if len(r.Words) == 0 {
		return 0
	}
	return r.Words[len(r.Words)-1]
}

// Writer advertises one hex line per word to an io.Writer.
type Writer struct {
	W io.Writer
}

// Advertise implements Reporter.
func (r Writer) Advertise(w Word) error {
	_, err := fmt.Fprintln(r.W, w)
	return err
}

// File is a Reporter latching the last advertised word in a file. The next
// boot reads it back with ReadLatched as the previous cycle's status.
type File struct {
	Path string
}

// Advertise implements Reporter.
func (f File) Advertise(w Word) error {
	return os.WriteFile(f.Path, []byte(fmt.Sprintf("%#08x\n", uint32(w))), 0o644)
}

// ReadLatched parses a latched status file. A missing file reads as a zero
// word, as after a cold power on.
func ReadLatched(path string) (Word, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ParseWord(string(bytes.TrimSpace(b)))
}

// ParseWord parses a word in any base accepted by strconv (0x prefix for hex).
func ParseWord(s string) (Word, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid status word %q: %w", s, err)
	}
	return Word(v), nil
}

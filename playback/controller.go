// Package playback drives sequential podcast playback: one audio
// segment per utterance, advanced by audio "ended" events rather than
// timers so text and audio never drift apart.
package playback

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zulabs/podforge/logger"
	"github.com/zulabs/podforge/transcript"
)

// State is the lifecycle of a playback session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StateFinished
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PlaceholderGenerating is shown for a segment whose image has not
// arrived yet.
const PlaceholderGenerating = "generating"

// Segment pairs an utterance with its rendered audio.
type Segment struct {
	Utterance transcript.Utterance
	Audio     []byte
}

// ErrNoSegments is returned when a session is loaded with an empty
// segment list.
var ErrNoSegments = errors.New("no segments to play")

// ErrNotReady is returned when Play is called before a successful
// Load.
var ErrNotReady = errors.New("session is not ready")

// Controller is the playback state machine for one session. It is
// safe for concurrent use; image results typically arrive from a
// background goroutine while playback advances.
type Controller struct {
	mu sync.Mutex

	state    State
	segments []Segment
	current  int
	paused   bool
	loadErr  error

	images    map[int]string
	displayed map[int]struct{}
	lines     []string
}

// NewController creates an idle playback controller.
func NewController() *Controller {
	return &Controller{
		state:     StateIdle,
		images:    make(map[int]string),
		displayed: make(map[int]struct{}),
	}
}

// Load validates and installs the segment list, moving the session
// from Idle to Ready. A decode-level problem (empty audio, missing
// text) moves it to Error instead.
func (c *Controller) Load(segments []Segment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateLoading

	if err := validateSegments(segments); err != nil {
		c.state = StateError
		c.loadErr = err
		return err
	}

	c.segments = segments
	c.current = 0
	c.paused = false
	c.state = StateReady
	return nil
}

func validateSegments(segments []Segment) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}
	for i, seg := range segments {
		if len(seg.Audio) == 0 {
			return fmt.Errorf("segment %d has no audio", i)
		}
		if seg.Utterance.Text == "" {
			return fmt.Errorf("segment %d has no text", i)
		}
	}
	return nil
}

// Play begins playback at segment 0.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return fmt.Errorf("%w: state is %s", ErrNotReady, c.state)
	}
	c.enterSegment(0)
	return nil
}

// enterSegment switches playback to segment i. Callers hold the lock.
func (c *Controller) enterSegment(i int) {
	c.state = StatePlaying
	c.current = i
	c.paused = false

	// Each segment's text line is appended exactly once, no matter
	// how many times the segment is revisited.
	if _, seen := c.displayed[i]; !seen {
		c.displayed[i] = struct{}{}
		u := c.segments[i].Utterance
		c.lines = append(c.lines, fmt.Sprintf("%s: %s", u.Speaker, u.Text))
	}

	logger.Debug("entering segment", "index", i, "total", len(c.segments))
}

// AudioEnded advances to the next segment, or finishes the session
// after the last one. Ended events outside of Playing are ignored.
func (c *Controller) AudioEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying || c.paused {
		return
	}
	if c.current >= len(c.segments)-1 {
		c.state = StateFinished
		return
	}
	c.enterSegment(c.current + 1)
}

// Next pauses current audio and switches to the following segment.
// Navigation clamps at the last segment; there is no wraparound.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying || c.current >= len(c.segments)-1 {
		return
	}
	c.paused = true
	c.enterSegment(c.current + 1)
}

// Previous pauses current audio and switches to the preceding
// segment, clamped at the first.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying || c.current <= 0 {
		return
	}
	c.paused = true
	c.enterSegment(c.current - 1)
}

// Pause suspends playback without losing position.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying {
		c.paused = true
	}
}

// Resume continues a paused segment.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying {
		c.paused = false
	}
}

// SetImage records the image URL for a segment index, typically as
// background image generations complete.
func (c *Controller) SetImage(index int, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[index] = url
}

// Image returns the image URL for the current segment, or the
// generating placeholder if none has arrived.
func (c *Controller) Image() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if url, ok := c.images[c.current]; ok && url != "" {
		return url
	}
	return PlaceholderGenerating
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the load error when the session is in the Error state.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Current returns the index of the segment being played.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Paused reports whether playback is suspended.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Transcript returns the text lines revealed so far, one per visited
// segment, in first-visit order.
func (c *Controller) Transcript() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

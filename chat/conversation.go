package chat

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// Kind distinguishes the four message forms a transcript can hold.
type Kind string

const (
	KindUser      Kind = "user"
	KindAssistant Kind = "assistant"
	KindFile      Kind = "file"
	KindFileURL   Kind = "file_url"
)

// Message is one immutable transcript entry. Append order is transcript
// order.
type Message struct {
	Kind      Kind
	Content   string
	CreatedAt time.Time
}

// Status is the conversation's position in its exchange state machine.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitted
	StatusStreaming
)

// Failure records a failed exchange for display. It is not part of the
// transcript.
type Failure struct {
	JobID string
	Err   error
	At    time.Time
}

// ErrJobActive is returned when a submit arrives while an exchange is
// already in flight.
var ErrJobActive = errors.New("a job is already active for this conversation")

// Conversation owns an ordered message log, the streaming buffer for the
// in-flight response, and the active-job flag. At most one job is active at
// a time, and the buffer is promoted to a message exactly once per job.
type Conversation struct {
	mu        sync.Mutex
	id        int64
	messages  []Message
	buffer    strings.Builder
	status    Status
	activeJob bool
	jobID     string
	committed bool
	failure   *Failure
}

// NewConversation creates an empty conversation with the given identity.
func NewConversation(id int64) *Conversation {
	return &Conversation{id: id}
}

// ID returns the conversation identity used for stale-update guards.
func (c *Conversation) ID() int64 {
	return c.id
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Append adds a message outside of a job, e.g. restoring history from
// storage or recording a file entry.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	c.messages = append(c.messages, msg)
}

// ActiveJob reports whether an exchange is in flight.
func (c *Conversation) ActiveJob() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeJob
}

// Status returns the current state machine position.
func (c *Conversation) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastFailure returns the most recent failure indicator, if any.
func (c *Conversation) LastFailure() *Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Begin accepts a submit: the user's message is appended synchronously,
// before any network work, and the job becomes active. Rejected with
// ErrJobActive while another job is in flight.
func (c *Conversation) Begin(jobID string, userMsg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeJob {
		return ErrJobActive
	}

	if userMsg.CreatedAt.IsZero() {
		userMsg.CreatedAt = time.Now()
	}
	c.messages = append(c.messages, userMsg)
	c.activeJob = true
	c.jobID = jobID
	c.committed = false
	c.failure = nil
	c.buffer.Reset()
	c.status = StatusSubmitted
	return nil
}

// AppendChunk accumulates one streamed token into the buffer, in receipt
// order. Chunks for a stale job are discarded and false is returned.
func (c *Conversation) AppendChunk(jobID, content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.activeJob || c.jobID != jobID {
		return false
	}
	c.buffer.WriteString(content)
	c.status = StatusStreaming
	return true
}

// StreamingText returns the partial response accumulated so far.
func (c *Conversation) StreamingText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.String()
}

// Commit promotes the streaming buffer to an assistant message and closes
// the job. It takes effect at most once per job; stale or repeated commits
// return false.
func (c *Conversation) Commit(jobID string) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.activeJob || c.jobID != jobID || c.committed {
		return Message{}, false
	}

	msg := Message{
		Kind:      KindAssistant,
		Content:   c.buffer.String(),
		CreatedAt: time.Now(),
	}
	c.messages = append(c.messages, msg)
	c.buffer.Reset()
	c.activeJob = false
	c.committed = true
	c.status = StatusIdle
	return msg, true
}

// Fail closes the job on a transport or server error: the partial buffer is
// discarded, a failure indicator is recorded and the conversation returns
// to a consistent, resumable state. The user's message stays in the
// transcript.
func (c *Conversation) Fail(jobID string, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.activeJob || c.jobID != jobID {
		return false
	}

	c.failure = &Failure{JobID: jobID, Err: err, At: time.Now()}
	c.buffer.Reset()
	c.activeJob = false
	c.status = StatusIdle
	return true
}

// FollowTail reports whether a view should track to the newest content:
// always while a job is active or streaming, and after completion whenever
// the newest message is not the user's own input. This keeps the view from
// being stuck mid-scroll after a response finishes.
func (c *Conversation) FollowTail() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeJob {
		return true
	}
	if len(c.messages) == 0 {
		return false
	}
	return c.messages[len(c.messages)-1].Kind != KindUser
}

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chat-client/api"
	"rag-chat-client/apperr"
	"rag-chat-client/attach"
	"rag-chat-client/db"
)

// fakeQuerier replays a canned chunk sequence. A non-nil gate is waited on
// before the first chunk is sent, so tests can interleave actions with an
// in-flight stream.
type fakeQuerier struct {
	mu      sync.Mutex
	chunks  []api.StreamChunk
	err     error
	gate    chan struct{}
	lastReq api.QueryRequest
}

func (f *fakeQuerier) SubmitQuery(ctx context.Context, query api.QueryRequest) (<-chan api.StreamChunk, error) {
	f.mu.Lock()
	f.lastReq = query
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	ch := make(chan api.StreamChunk)
	go func() {
		defer close(ch)
		if f.gate != nil {
			<-f.gate
		}
		for _, chunk := range f.chunks {
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (f *fakeQuerier) request() api.QueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

// fakeRecorder captures persisted messages in append order.
type fakeRecorder struct {
	mu       sync.Mutex
	messages []db.Message
}

func (f *fakeRecorder) CreateMessage(conversationID int64, kind, content, engineID, attachments string) (*db.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := db.Message{
		ID:             int64(len(f.messages) + 1),
		ConversationID: conversationID,
		Kind:           kind,
		Content:        content,
		EngineID:       engineID,
		Attachments:    attachments,
	}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

func (f *fakeRecorder) recorded() []db.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]db.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func newTestSession(querier Querier, recorder Recorder) *Session {
	conv := NewConversation(42)
	return NewSession(conv, querier, recorder, attach.NewPackager(zerolog.Nop()), zerolog.Nop())
}

func TestSessionSubmitStreamsAndCommits(t *testing.T) {
	querier := &fakeQuerier{chunks: []api.StreamChunk{
		{Content: "Medicaid"},
		{Content: " is"},
		{Content: " a program"},
		{Done: true},
	}}
	recorder := &fakeRecorder{}
	session := newTestSession(querier, recorder)

	err := session.Submit(context.Background(), SubmitInput{
		Prompt:   "What is Medicaid?",
		EngineID: "engine-1",
	})
	require.NoError(t, err)
	session.Wait()

	messages := session.Conversation().Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, KindUser, messages[0].Kind)
	assert.Equal(t, "What is Medicaid?", messages[0].Content)
	assert.Equal(t, KindAssistant, messages[1].Kind)
	assert.Equal(t, "Medicaid is a program", messages[1].Content)
	assert.False(t, session.Conversation().ActiveJob())

	// Both sides of the exchange were persisted, user first.
	persisted := recorder.recorded()
	require.Len(t, persisted, 2)
	assert.Equal(t, "user", persisted[0].Kind)
	assert.Equal(t, "assistant", persisted[1].Kind)
}

func TestSessionRejectsEmptySubmit(t *testing.T) {
	session := newTestSession(&fakeQuerier{}, nil)

	err := session.Submit(context.Background(), SubmitInput{Prompt: "   ", EngineID: "engine-1"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, session.Conversation().Messages())
}

func TestSessionRejectsMissingEngine(t *testing.T) {
	session := newTestSession(&fakeQuerier{}, nil)

	err := session.Submit(context.Background(), SubmitInput{Prompt: "hello"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSessionPackagesAttachmentsInOrder(t *testing.T) {
	querier := &fakeQuerier{chunks: []api.StreamChunk{{Done: true}}}
	session := newTestSession(querier, nil)

	attachments := []*attach.Attachment{
		{Name: "a.pdf", Data: []byte("pdf bytes")},
		{Name: "b.docx", Data: []byte("docx bytes")},
	}

	// Document-source requirements are relaxed when attachments exist, so an
	// empty prompt with files is a valid submission.
	err := session.Submit(context.Background(), SubmitInput{
		EngineID:    "engine-1",
		Attachments: attachments,
	})
	require.NoError(t, err)
	session.Wait()

	docs := querier.request().Documents
	require.Len(t, docs, 2)
	assert.Equal(t, "a.pdf", docs[0].Name)
	assert.Equal(t, "b.docx", docs[1].Name)
}

func TestSessionEncodingFailureBlocksSubmission(t *testing.T) {
	querier := &fakeQuerier{chunks: []api.StreamChunk{{Done: true}}}
	session := newTestSession(querier, nil)

	attachments := []*attach.Attachment{
		{Name: "good.txt", Data: []byte("fine")},
		attach.NewAttachment("/nonexistent/missing.txt"),
	}

	err := session.Submit(context.Background(), SubmitInput{
		Prompt:      "analyze these",
		EngineID:    "engine-1",
		Attachments: attachments,
	})
	assert.Equal(t, apperr.KindEncoding, apperr.KindOf(err))

	// Nothing was appended and no request went out.
	assert.Empty(t, session.Conversation().Messages())
	assert.Empty(t, querier.request().Prompt)
}

func TestSessionTransportFailureMidStream(t *testing.T) {
	transportErr := apperr.Newf(apperr.KindTransport, "connection reset")
	querier := &fakeQuerier{chunks: []api.StreamChunk{
		{Content: "partial"},
		{Err: transportErr},
	}}
	session := newTestSession(querier, nil)

	var failed error
	session.OnFailure = func(err error) { failed = err }

	require.NoError(t, session.Submit(context.Background(), SubmitInput{
		Prompt:   "hello",
		EngineID: "engine-1",
	}))
	session.Wait()

	conv := session.Conversation()
	assert.False(t, conv.ActiveJob())
	assert.Equal(t, transportErr, failed)
	require.NotNil(t, conv.LastFailure())

	// The typed input stays in the transcript; no partial response is
	// committed.
	messages := conv.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, KindUser, messages[0].Kind)
	assert.Equal(t, "", conv.StreamingText())
}

func TestSessionRejectsSecondSubmitWhileActive(t *testing.T) {
	gate := make(chan struct{})
	querier := &fakeQuerier{
		gate:   gate,
		chunks: []api.StreamChunk{{Content: "slow"}, {Done: true}},
	}
	session := newTestSession(querier, nil)

	require.NoError(t, session.Submit(context.Background(), SubmitInput{
		Prompt:   "first",
		EngineID: "engine-1",
	}))

	err := session.Submit(context.Background(), SubmitInput{
		Prompt:   "second",
		EngineID: "engine-1",
	})
	assert.True(t, errors.Is(err, ErrJobActive))

	close(gate)
	session.Wait()
	assert.Len(t, session.Conversation().Messages(), 2)
}

func TestSessionDetachDiscardsStaleChunks(t *testing.T) {
	gate := make(chan struct{})
	querier := &fakeQuerier{
		gate:   gate,
		chunks: []api.StreamChunk{{Content: "late"}, {Done: true}},
	}
	session := newTestSession(querier, nil)

	var notified bool
	session.OnChunk = func(string) { notified = true }
	session.OnDone = func(Message) { notified = true }

	require.NoError(t, session.Submit(context.Background(), SubmitInput{
		Prompt:   "hello",
		EngineID: "engine-1",
	}))

	session.Detach()
	close(gate)
	session.Wait()

	// Chunks after detach never reach the store and no commit happens.
	conv := session.Conversation()
	assert.Equal(t, "", conv.StreamingText())
	assert.Len(t, conv.Messages(), 1)
	assert.False(t, notified)
	assert.Nil(t, conv.LastFailure())
}

func TestSessionDispatchFailure(t *testing.T) {
	dispatchErr := apperr.Newf(apperr.KindTransport, "no route to host")
	session := newTestSession(&fakeQuerier{err: dispatchErr}, nil)

	err := session.Submit(context.Background(), SubmitInput{
		Prompt:   "hello",
		EngineID: "engine-1",
	})
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))

	conv := session.Conversation()
	assert.False(t, conv.ActiveJob())
	require.Len(t, conv.Messages(), 1)
	assert.Equal(t, KindUser, conv.Messages()[0].Kind)
	require.NotNil(t, conv.LastFailure())
}

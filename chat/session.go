package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rag-chat-client/api"
	"rag-chat-client/apperr"
	"rag-chat-client/attach"
	"rag-chat-client/db"
	"rag-chat-client/utils"
)

// Querier submits a prompt and streams the response. *api.Client satisfies
// it.
type Querier interface {
	SubmitQuery(ctx context.Context, query api.QueryRequest) (<-chan api.StreamChunk, error)
}

// Recorder persists transcript entries. *db.DB satisfies it; a nil recorder
// keeps the session purely in-memory.
type Recorder interface {
	CreateMessage(conversationID int64, kind, content, engineID, attachments string) (*db.Message, error)
}

// SubmitInput is one user submit action.
type SubmitInput struct {
	Prompt      string
	EngineID    string
	Attachments []*attach.Attachment
}

// Session ties the packager, conversation store and backend client together
// for one conversation's exchanges. It owns the submit state machine:
// validate, package attachments, append the user's message, dispatch, pump
// the stream, commit or fail.
type Session struct {
	conv     *Conversation
	querier  Querier
	recorder Recorder
	packager *attach.Packager
	log      zerolog.Logger

	// Called from the stream pump as state changes; used by the view layer
	// to re-render. All optional.
	OnChunk   func(content string)
	OnDone    func(msg Message)
	OnFailure func(err error)

	mu       sync.Mutex
	cancel   context.CancelFunc
	detached atomic.Bool
	wg       sync.WaitGroup
}

// NewSession creates a session bound to one conversation.
func NewSession(conv *Conversation, querier Querier, recorder Recorder, packager *attach.Packager, logger zerolog.Logger) *Session {
	return &Session{
		conv:     conv,
		querier:  querier,
		recorder: recorder,
		packager: packager,
		log:      logger,
	}
}

// Conversation returns the conversation this session mutates.
func (s *Session) Conversation() *Conversation {
	return s.conv
}

// Submit runs one exchange: the user's message is appended before the
// request is dispatched, so it is visible regardless of network latency.
// Validation and encoding failures are returned without touching the
// transcript; dispatch failures leave the transcript consistent with a
// failure indicator recorded. The streamed response is consumed in the
// background; observe completion via the On* callbacks or Wait.
func (s *Session) Submit(ctx context.Context, in SubmitInput) error {
	if strings.TrimSpace(in.Prompt) == "" && len(in.Attachments) == 0 {
		return apperr.Newf(apperr.KindValidation, "prompt or attachments required")
	}
	if in.EngineID == "" {
		return apperr.Newf(apperr.KindValidation, "query engine not selected")
	}
	if s.conv.ActiveJob() {
		return ErrJobActive
	}

	documents, err := s.packager.Package(in.Attachments)
	if err != nil {
		return err
	}

	jobID := uuid.NewString()
	userMsg := Message{Kind: KindUser, Content: in.Prompt}
	if err := s.conv.Begin(jobID, userMsg); err != nil {
		return err
	}
	s.persist(KindUser, in.Prompt, in.EngineID, documents)

	jobCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	stream, err := s.querier.SubmitQuery(jobCtx, api.QueryRequest{
		Prompt:        in.Prompt,
		QueryEngineID: in.EngineID,
		Documents:     documents,
	})
	if err != nil {
		cancel()
		s.conv.Fail(jobID, err)
		return err
	}

	s.wg.Add(1)
	utils.SafeGo(s.log, "session stream pump", func() {
		defer s.wg.Done()
		defer cancel()
		s.pump(jobID, in.EngineID, stream)
	})

	return nil
}

// pump consumes the stream until its single terminal event. Chunks arriving
// after the session detached are discarded without mutating the store.
func (s *Session) pump(jobID, engineID string, stream <-chan api.StreamChunk) {
	for chunk := range stream {
		if s.detached.Load() {
			continue // drain the stale stream, mutate nothing
		}

		switch {
		case chunk.Err != nil:
			s.log.Error().Str("job_id", jobID).Err(chunk.Err).Msg("exchange failed")
			s.conv.Fail(jobID, chunk.Err)
			if s.OnFailure != nil {
				s.OnFailure(chunk.Err)
			}
			return

		case chunk.Done:
			msg, ok := s.conv.Commit(jobID)
			if !ok {
				return
			}
			s.persist(KindAssistant, msg.Content, engineID, nil)
			if s.OnDone != nil {
				s.OnDone(msg)
			}
			return

		default:
			if s.conv.AppendChunk(jobID, chunk.Content) && s.OnChunk != nil {
				s.OnChunk(chunk.Content)
			}
		}
	}

	// Stream closed without a terminal event.
	if s.detached.Load() {
		return
	}
	err := apperr.Newf(apperr.KindTransport, "stream closed without terminal event")
	if s.conv.Fail(jobID, err) && s.OnFailure != nil {
		s.OnFailure(err)
	}
}

// persist best-effort writes a transcript entry; a storage failure never
// breaks the in-memory state machine.
func (s *Session) persist(kind Kind, content, engineID string, documents []api.Document) {
	if s.recorder == nil {
		return
	}

	attachments := ""
	if len(documents) > 0 {
		data, err := json.Marshal(documents)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to marshal attachments")
		} else {
			attachments = string(data)
		}
	}

	if _, err := s.recorder.CreateMessage(s.conv.ID(), string(kind), content, engineID, attachments); err != nil {
		s.log.Error().Int64("conversation_id", s.conv.ID()).Err(err).Msg("failed to persist message")
	}
}

// Detach abandons any in-flight exchange, e.g. when the consuming view is
// torn down. Further chunks for the stale job are discarded and the
// conversation store is no longer mutated by this session.
func (s *Session) Detach() {
	s.detached.Store(true)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

// Wait blocks until the in-flight exchange, if any, has fully settled.
func (s *Session) Wait() {
	s.wg.Wait()
}

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tushar2380/docuAi/internal/ai"
	"github.com/Tushar2380/docuAi/internal/config"
	"github.com/Tushar2380/docuAi/internal/index"
	"github.com/Tushar2380/docuAi/internal/model"
)

const (
	defaultSessionTitle = "New Chat"

	systemPrompt = "You are a helpful assistant that answers questions using only the provided document context. " +
		"If the context does not contain the answer, say you do not know. Be concise."

	noDocumentsAnswer = "You have no documents uploaded yet. " +
		"Please upload a document before asking questions."

	generationFailedAnswer = "Sorry, I could not generate an answer right now. " +
		"Please try again in a moment."
)

type AskInput struct {
	UserID    string
	SessionID uint // 0 starts a new session
	Question  string
}

type AskResult struct {
	SessionID uint     `json:"session_id"`
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
}

type promptChunk struct {
	Source  string
	Content string
}

// ChatService owns sessions, transcripts and the retrieval-augmented answer
// pipeline.
type ChatService struct {
	sessions  SessionStore
	messages  MessageStore
	files     FileStore
	chunks    ChunkStore
	history   HistoryCache
	idx       index.Index
	embedder  ai.Embedder
	completer ai.Completer
	logger    *zap.Logger

	topK          int
	historyWindow int
	maxRetries    int
	titleMaxRunes int
	genTimeout    time.Duration
	retryBackoff  time.Duration

	locks *sessionLocks
}

func NewChatService(
	sessions SessionStore,
	messages MessageStore,
	files FileStore,
	chunks ChunkStore,
	history HistoryCache,
	idx index.Index,
	embedder ai.Embedder,
	completer ai.Completer,
	logger *zap.Logger,
	cfg config.LLMConfig,
	titleMaxRunes int,
) *ChatService {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 90
	}
	if titleMaxRunes <= 0 {
		titleMaxRunes = 40
	}
	return &ChatService{
		sessions:      sessions,
		messages:      messages,
		files:         files,
		chunks:        chunks,
		history:       history,
		idx:           idx,
		embedder:      embedder,
		completer:     completer,
		logger:        logger,
		topK:          cfg.TopK,
		historyWindow: cfg.HistoryWindow,
		maxRetries:    cfg.MaxRetries,
		titleMaxRunes: titleMaxRunes,
		genTimeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		retryBackoff:  500 * time.Millisecond,
		locks:         newSessionLocks(),
	}
}

func (s *ChatService) CreateSession(userID string) (*model.Session, error) {
	sess := &model.Session{UserID: userID, Title: defaultSessionTitle}
	if err := s.sessions.Create(sess); err != nil {
		return nil, fmt.Errorf("create session failed: %w", err)
	}
	return sess, nil
}

func (s *ChatService) ListSessions(userID string) ([]model.Session, error) {
	sessions, err := s.sessions.ListByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// GetSession returns the session and its full transcript in chronological
// order.
func (s *ChatService) GetSession(ctx context.Context, userID string, id uint) (*model.Session, []model.Message, error) {
	sess, err := s.ownedSession(userID, id)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.transcript(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return sess, msgs, nil
}

func (s *ChatService) DeleteSession(ctx context.Context, userID string, id uint) error {
	if _, err := s.ownedSession(userID, id); err != nil {
		return err
	}

	release := s.locks.Acquire(id)
	defer release()

	if err := s.messages.DeleteBySessionID(id); err != nil {
		return fmt.Errorf("delete messages failed: %w", err)
	}
	if err := s.sessions.Delete(id); err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	if s.history != nil {
		_ = s.history.DeleteHistory(ctx, id)
	}
	return nil
}

// ClearMessages empties a session's transcript but keeps the session record,
// title included.
func (s *ChatService) ClearMessages(ctx context.Context, userID string, id uint) error {
	if _, err := s.ownedSession(userID, id); err != nil {
		return err
	}

	release := s.locks.Acquire(id)
	defer release()

	if err := s.messages.DeleteBySessionID(id); err != nil {
		return fmt.Errorf("delete messages failed: %w", err)
	}
	if s.history != nil {
		_ = s.history.DeleteHistory(ctx, id)
	}
	return nil
}

// Ask runs the question through retrieval and generation and appends both
// sides of the exchange to the session. Appends within one session are
// serialized so concurrent questions interleave as whole user/assistant
// pairs. Retrieval failures leave the user message in place and surface as
// errors; generation failures degrade to a fixed answer instead.
func (s *ChatService) Ask(ctx context.Context, in AskInput) (*AskResult, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}

	var sess *model.Session
	var err error
	if in.SessionID == 0 {
		sess, err = s.CreateSession(in.UserID)
	} else {
		sess, err = s.ownedSession(in.UserID, in.SessionID)
	}
	if err != nil {
		return nil, err
	}

	release := s.locks.Acquire(sess.ID)
	defer release()

	// History is read before the append so the model never sees the
	// question twice.
	historyMsgs, err := s.messages.ListRecentBySessionID(sess.ID, s.historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load history failed: %w", err)
	}

	userMsg := &model.Message{
		SessionID: sess.ID,
		UserID:    in.UserID,
		Role:      model.RoleUser,
		Content:   question,
	}
	if err := s.appendMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	if sess.Title == defaultSessionTitle {
		s.deriveTitle(sess, question)
	}

	answer, sources, err := s.answer(ctx, in.UserID, question, historyMsgs)
	if err != nil {
		return nil, err
	}

	assistantMsg := &model.Message{
		SessionID: sess.ID,
		UserID:    in.UserID,
		Role:      model.RoleAssistant,
		Content:   answer,
	}
	assistantMsg.SetSources(sources)
	if err := s.appendMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	return &AskResult{SessionID: sess.ID, Answer: answer, Sources: sources}, nil
}

func (s *ChatService) answer(ctx context.Context, userID, question string, history []model.Message) (string, []string, error) {
	count, err := s.idx.Count(ctx, userID)
	if err != nil {
		return "", nil, fmt.Errorf("%w: index count: %v", ErrIndexFailure, err)
	}
	if count == 0 {
		return noDocumentsAnswer, nil, nil
	}

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", nil, fmt.Errorf("%w: embed question: %v", ErrBackendUnavailable, err)
	}

	hits, err := s.idx.Search(ctx, userID, vec, s.topK)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrIndexFailure, err)
	}
	if len(hits) == 0 {
		return noDocumentsAnswer, nil, nil
	}

	chunks, sources, err := s.retrieve(userID, hits)
	if err != nil {
		return "", nil, err
	}

	prompt := buildPrompt(question, chunks, history)

	// Generation keeps going if the caller disconnects; the exchange is
	// persisted either way.
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.genTimeout)
	defer cancel()

	answer, err := s.generate(genCtx, prompt)
	if err != nil {
		s.logger.Error("generation failed",
			zap.String("user_id", userID), zap.Error(err))
		return generationFailedAnswer, nil, nil
	}
	return answer, sources, nil
}

// retrieve loads the hit chunks and keeps only the best-scored chunk per
// source file, preserving relevance order. Sources come back in first
// appearance order.
func (s *ChatService) retrieve(userID string, hits []index.Hit) ([]promptChunk, []string, error) {
	ids := make([]uint, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	rows, err := s.chunks.ListByIDs(userID, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load chunks failed: %w", err)
	}
	byID := make(map[uint]*model.Chunk, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	seenFile := make(map[uint]bool)
	var picked []*model.Chunk
	var fileIDs []uint
	for _, h := range hits {
		chunk, ok := byID[h.ChunkID]
		if !ok || seenFile[chunk.FileID] {
			continue
		}
		seenFile[chunk.FileID] = true
		picked = append(picked, chunk)
		fileIDs = append(fileIDs, chunk.FileID)
	}

	files, err := s.files.ListByIDs(userID, fileIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load source files failed: %w", err)
	}
	nameOf := make(map[uint]string, len(files))
	for _, f := range files {
		nameOf[f.ID] = f.Filename
	}

	chunks := make([]promptChunk, 0, len(picked))
	sources := make([]string, 0, len(picked))
	for _, chunk := range picked {
		name := nameOf[chunk.FileID]
		if name == "" {
			name = "unknown"
		}
		chunks = append(chunks, promptChunk{Source: name, Content: chunk.Content})
		sources = append(sources, name)
	}
	return chunks, sources, nil
}

func buildPrompt(question string, chunks []promptChunk, history []model.Message) []ai.ChatMessage {
	var b strings.Builder
	b.WriteString("Answer the question using the context below.\n\nContext:\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", c.Source, c.Content)
	}
	b.WriteString("Question: ")
	b.WriteString(question)

	msgs := make([]ai.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, ai.ChatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		msgs = append(msgs, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, ai.ChatMessage{Role: model.RoleUser, Content: b.String()})
	return msgs
}

// generate calls the model with bounded retries. Only transient failures are
// retried; the backoff doubles between attempts.
func (s *ChatService) generate(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	backoff := s.retryBackoff
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrGeneration, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		answer, err := s.completer.Complete(ctx, messages)
		if err == nil {
			return strings.TrimSpace(answer), nil
		}
		lastErr = err
		if !ai.IsTransient(err) {
			break
		}
		s.logger.Warn("llm call failed, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
	}
	return "", fmt.Errorf("%w: %v", ErrGeneration, lastErr)
}

func (s *ChatService) appendMessage(ctx context.Context, msg *model.Message) error {
	if err := s.messages.Create(msg); err != nil {
		return fmt.Errorf("append message failed: %w", err)
	}
	if err := s.sessions.Touch(msg.SessionID); err != nil {
		s.logger.Warn("touch session failed",
			zap.Uint("session_id", msg.SessionID), zap.Error(err))
	}
	if s.history != nil {
		_ = s.history.MarkDirty(ctx, msg.SessionID)
		_ = s.history.DeleteHistory(ctx, msg.SessionID)
	}
	return nil
}

// deriveTitle names the session after its first question. The title is set
// once and survives a cleared transcript. Best effort: a failed update keeps
// the default title.
func (s *ChatService) deriveTitle(sess *model.Session, question string) {
	title := truncateRunes(question, s.titleMaxRunes)
	if err := s.sessions.SetTitle(sess.ID, title); err != nil {
		s.logger.Warn("set session title failed",
			zap.Uint("session_id", sess.ID), zap.Error(err))
		return
	}
	sess.Title = title
}

// transcript serves from the redis cache when it is fresh, falling back to
// MySQL and repopulating the cache.
func (s *ChatService) transcript(ctx context.Context, sessionID uint) ([]model.Message, error) {
	if s.history != nil {
		dirty, err := s.history.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if msgs, ok, err := s.history.GetHistory(ctx, sessionID); err == nil && ok {
				return msgs, nil
			}
		}
	}

	msgs, err := s.messages.ListBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript failed: %w", err)
	}
	if s.history != nil {
		_ = s.history.SetHistory(ctx, sessionID, msgs)
	}
	return msgs, nil
}

func (s *ChatService) ownedSession(userID string, id uint) (*model.Session, error) {
	sess, err := s.sessions.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("load session failed: %w", err)
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	if sess.UserID != userID {
		s.logger.Warn("cross-tenant session access denied",
			zap.String("user_id", userID), zap.Uint("session_id", id))
		return nil, ErrForbidden
	}
	return sess, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

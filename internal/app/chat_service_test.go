package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tushar2380/docuAi/internal/ai"
	"github.com/Tushar2380/docuAi/internal/config"
	"github.com/Tushar2380/docuAi/internal/index"
	"github.com/Tushar2380/docuAi/internal/model"
)

type chatFixture struct {
	files     *fakeFileStore
	chunks    *fakeChunkStore
	sessions  *fakeSessionStore
	messages  *fakeMessageStore
	idx       index.Index
	embedder  *fakeEmbedder
	completer *fakeCompleter
	svc       *ChatService
}

func newChatFixture(historyWindow int) *chatFixture {
	f := &chatFixture{
		files:     newFakeFileStore(),
		chunks:    newFakeChunkStore(),
		sessions:  newFakeSessionStore(),
		messages:  newFakeMessageStore(),
		idx:       index.NewMemory(),
		embedder:  newFakeEmbedder(),
		completer: &fakeCompleter{answer: "The sky is blue."},
	}
	cfg := config.LLMConfig{
		TopK:           4,
		HistoryWindow:  historyWindow,
		MaxRetries:     3,
		TimeoutSeconds: 5,
	}
	f.svc = NewChatService(
		f.sessions, f.messages, f.files, f.chunks, nil,
		f.idx, f.embedder, f.completer,
		zap.NewNop(), cfg, 40,
	)
	f.svc.retryBackoff = time.Millisecond
	return f
}

// seedDocument installs one ready file with a single indexed chunk and teaches
// the embedder its vector.
func (f *chatFixture) seedDocument(t *testing.T, userID, filename, content string, vec []float32) *model.File {
	t.Helper()
	file := &model.File{UserID: userID, Filename: filename, Status: model.FileStatusReady, ChunkCount: 1}
	require.NoError(t, f.files.Create(file))

	rows := []model.Chunk{{FileID: file.ID, UserID: userID, Position: 0, Content: content}}
	rows[0].SetEmbedding(vec)
	require.NoError(t, f.chunks.CreateBatch(rows))

	require.NoError(t, f.idx.Add(context.Background(), userID, []index.Entry{
		{ChunkID: rows[0].ID, FileID: file.ID, Vector: vec},
	}))
	f.embedder.vectors[content] = vec
	return file
}

func TestAskAnswersFromDocuments(t *testing.T) {
	f := newChatFixture(4)
	f.seedDocument(t, "alice", "sky.txt", "The sky is blue because of Rayleigh scattering.", []float32{1, 0})
	f.seedDocument(t, "alice", "grass.txt", "Grass is green because of chlorophyll.", []float32{0, 1})
	f.embedder.vectors["what color is the sky?"] = []float32{0.9, 0.1}

	res, err := f.svc.Ask(context.Background(), AskInput{
		UserID:   "alice",
		Question: "what color is the sky?",
	})
	require.NoError(t, err)
	require.NotZero(t, res.SessionID)
	require.Equal(t, "The sky is blue.", res.Answer)
	require.Equal(t, []string{"sky.txt", "grass.txt"}, res.Sources)

	// Both sides of the exchange are durable, in order.
	msgs, err := f.messages.ListBySessionID(res.SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, model.RoleUser, msgs[0].Role)
	require.Equal(t, "what color is the sky?", msgs[0].Content)
	require.Equal(t, model.RoleAssistant, msgs[1].Role)
	require.Equal(t, []string{"sky.txt", "grass.txt"}, msgs[1].SourceList())

	// The prompt carries the best chunk first.
	prompt := f.completer.prompts[0]
	require.Contains(t, prompt[len(prompt)-1].Content, "Rayleigh scattering")

	// Session named after the first question.
	sess, err := f.sessions.GetByID(res.SessionID)
	require.NoError(t, err)
	require.Equal(t, "what color is the sky?", sess.Title)
}

func TestAskDedupesSourcesByFile(t *testing.T) {
	f := newChatFixture(4)
	file := &model.File{UserID: "alice", Filename: "sky.txt", Status: model.FileStatusReady}
	require.NoError(t, f.files.Create(file))
	rows := []model.Chunk{
		{FileID: file.ID, UserID: "alice", Position: 0, Content: "chunk one"},
		{FileID: file.ID, UserID: "alice", Position: 1, Content: "chunk two"},
	}
	require.NoError(t, f.chunks.CreateBatch(rows))
	require.NoError(t, f.idx.Add(context.Background(), "alice", []index.Entry{
		{ChunkID: rows[0].ID, FileID: file.ID, Vector: []float32{1, 0}},
		{ChunkID: rows[1].ID, FileID: file.ID, Vector: []float32{0.9, 0.1}},
	}))

	res, err := f.svc.Ask(context.Background(), AskInput{UserID: "alice", Question: "anything"})
	require.NoError(t, err)
	require.Equal(t, []string{"sky.txt"}, res.Sources)
}

func TestAskWithoutDocuments(t *testing.T) {
	f := newChatFixture(4)

	res, err := f.svc.Ask(context.Background(), AskInput{
		UserID:   "alice",
		Question: "what color is the sky?",
	})
	require.NoError(t, err)
	require.Equal(t, noDocumentsAnswer, res.Answer)
	require.Empty(t, res.Sources)

	// No provider traffic at all on this path.
	require.Zero(t, f.embedder.calls)
	require.Zero(t, f.completer.calls)

	// The exchange is still persisted.
	msgs, _ := f.messages.ListBySessionID(res.SessionID)
	require.Len(t, msgs, 2)
	require.Equal(t, noDocumentsAnswer, msgs[1].Content)
}

func TestAskRetriesThenSucceeds(t *testing.T) {
	f := newChatFixture(4)
	f.seedDocument(t, "alice", "sky.txt", "The sky is blue.", []float32{1, 0})
	f.completer.failures = 1
	f.completer.failErr = &ai.APIError{Status: http.StatusServiceUnavailable}

	res, err := f.svc.Ask(context.Background(), AskInput{UserID: "alice", Question: "sky?"})
	require.NoError(t, err)
	require.Equal(t, "The sky is blue.", res.Answer)
	require.Equal(t, 2, f.completer.calls)
}

func TestAskRetriesExhaustedDegradesToFixedAnswer(t *testing.T) {
	f := newChatFixture(4)
	f.seedDocument(t, "alice", "sky.txt", "The sky is blue.", []float32{1, 0})
	f.completer.failures = 100
	f.completer.failErr = &ai.APIError{Status: http.StatusTooManyRequests}

	res, err := f.svc.Ask(context.Background(), AskInput{UserID: "alice", Question: "sky?"})
	require.NoError(t, err)
	require.Equal(t, generationFailedAnswer, res.Answer)
	require.Empty(t, res.Sources)
	require.Equal(t, 3, f.completer.calls)

	msgs, _ := f.messages.ListBySessionID(res.SessionID)
	require.Len(t, msgs, 2)
	require.Equal(t, generationFailedAnswer, msgs[1].Content)
}

func TestAskNonTransientErrorNotRetried(t *testing.T) {
	f := newChatFixture(4)
	f.seedDocument(t, "alice", "sky.txt", "The sky is blue.", []float32{1, 0})
	f.completer.failures = 100
	f.completer.failErr = &ai.APIError{Status: http.StatusBadRequest}

	res, err := f.svc.Ask(context.Background(), AskInput{UserID: "alice", Question: "sky?"})
	require.NoError(t, err)
	require.Equal(t, generationFailedAnswer, res.Answer)
	require.Equal(t, 1, f.completer.calls)
}

func TestAskEmptyQuestion(t *testing.T) {
	f := newChatFixture(4)
	_, err := f.svc.Ask(context.Background(), AskInput{UserID: "alice", Question: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAskSessionOwnership(t *testing.T) {
	f := newChatFixture(4)
	sess, err := f.svc.CreateSession("alice")
	require.NoError(t, err)

	_, err = f.svc.Ask(context.Background(), AskInput{
		UserID: "bob", SessionID: sess.ID, Question: "hi",
	})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Ask(context.Background(), AskInput{
		UserID: "alice", SessionID: sess.ID + 100, Question: "hi",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAskTitleFixedAfterFirstQuestion(t *testing.T) {
	f := newChatFixture(4)
	longQuestion := "tell me absolutely everything there is to know about the sky please"

	res, err := f.svc.Ask(context.Background(), AskInput{UserID: "alice", Question: longQuestion})
	require.NoError(t, err)

	sess, _ := f.sessions.GetByID(res.SessionID)
	require.Equal(t, truncateRunes(longQuestion, 40), sess.Title)
	require.Len(t, []rune(sess.Title), 40)

	_, err = f.svc.Ask(context.Background(), AskInput{
		UserID: "alice", SessionID: res.SessionID, Question: "a different question",
	})
	require.NoError(t, err)

	sess, _ = f.sessions.GetByID(res.SessionID)
	require.Equal(t, truncateRunes(longQuestion, 40), sess.Title)
}

func TestAskHistoryWindowBoundsPrompt(t *testing.T) {
	f := newChatFixture(2)
	f.seedDocument(t, "alice", "sky.txt", "The sky is blue.", []float32{1, 0})

	var sessionID uint
	for i := 0; i < 3; i++ {
		res, err := f.svc.Ask(context.Background(), AskInput{
			UserID:    "alice",
			SessionID: sessionID,
			Question:  fmt.Sprintf("question %d", i),
		})
		require.NoError(t, err)
		sessionID = res.SessionID
	}

	// Third ask: system + the previous exchange (window 2) + the question.
	last := f.completer.prompts[len(f.completer.prompts)-1]
	require.Len(t, last, 4)
	require.Equal(t, "system", last[0].Role)
	require.Equal(t, model.RoleUser, last[1].Role)
	require.Equal(t, "question 1", last[1].Content)
	require.Equal(t, model.RoleAssistant, last[2].Role)
}

func TestAskConcurrentAppendsStayPaired(t *testing.T) {
	f := newChatFixture(4)
	f.seedDocument(t, "alice", "sky.txt", "The sky is blue.", []float32{1, 0})
	sess, err := f.svc.CreateSession("alice")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Ask(context.Background(), AskInput{
				UserID:    "alice",
				SessionID: sess.ID,
				Question:  fmt.Sprintf("question %d", i),
			})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := f.messages.ListBySessionID(sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2*n)
	for i := 0; i < len(msgs); i += 2 {
		require.Equal(t, model.RoleUser, msgs[i].Role)
		require.Equal(t, model.RoleAssistant, msgs[i+1].Role)
	}
}

func TestGetSessionReturnsTranscript(t *testing.T) {
	f := newChatFixture(4)
	res, err := f.svc.Ask(context.Background(), AskInput{UserID: "alice", Question: "hello"})
	require.NoError(t, err)

	sess, msgs, err := f.svc.GetSession(context.Background(), "alice", res.SessionID)
	require.NoError(t, err)
	require.Equal(t, res.SessionID, sess.ID)
	require.Len(t, msgs, 2)

	_, _, err = f.svc.GetSession(context.Background(), "bob", res.SessionID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteSession(t *testing.T) {
	f := newChatFixture(4)
	res, err := f.svc.Ask(context.Background(), AskInput{UserID: "alice", Question: "hello"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSession(context.Background(), "alice", res.SessionID))

	_, _, err = f.svc.GetSession(context.Background(), "alice", res.SessionID)
	require.ErrorIs(t, err, ErrNotFound)
	msgs, _ := f.messages.ListBySessionID(res.SessionID)
	require.Empty(t, msgs)
}

func TestClearMessagesKeepsTitle(t *testing.T) {
	f := newChatFixture(4)
	res, err := f.svc.Ask(context.Background(), AskInput{UserID: "alice", Question: "hello"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearMessages(context.Background(), "alice", res.SessionID))

	sess, msgs, err := f.svc.GetSession(context.Background(), "alice", res.SessionID)
	require.NoError(t, err)
	require.Equal(t, "hello", sess.Title)
	require.Empty(t, msgs)
}

func TestAskAfterClearMessagesKeepsOriginalTitle(t *testing.T) {
	f := newChatFixture(4)
	res, err := f.svc.Ask(context.Background(), AskInput{UserID: "alice", Question: "original question"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearMessages(context.Background(), "alice", res.SessionID))

	// The next question in the emptied session must not rename it.
	_, err = f.svc.Ask(context.Background(), AskInput{
		UserID: "alice", SessionID: res.SessionID, Question: "second question",
	})
	require.NoError(t, err)

	sess, err := f.sessions.GetByID(res.SessionID)
	require.NoError(t, err)
	require.Equal(t, "original question", sess.Title)
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	f := newChatFixture(4)
	first, err := f.svc.CreateSession("alice")
	require.NoError(t, err)
	second, err := f.svc.CreateSession("alice")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = f.svc.Ask(context.Background(), AskInput{
		UserID: "alice", SessionID: first.ID, Question: "hello",
	})
	require.NoError(t, err)

	sessions, err := f.svc.ListSessions("alice")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, first.ID, sessions[0].ID, "activity bumps a session to the top")
	require.Equal(t, second.ID, sessions[1].ID)
}

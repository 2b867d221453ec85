package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Tushar2380/docuAi/internal/ai"
	"github.com/Tushar2380/docuAi/internal/index"
	"github.com/Tushar2380/docuAi/internal/model"
)

// In-memory stand-ins for the gorm repositories, the provider client and the
// resync queue.

type fakeFileStore struct {
	mu     sync.Mutex
	nextID uint
	files  map[uint]*model.File

	// statusErrs fails UpdateStatus calls for the given target status.
	statusErrs map[string]error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{
		files:      make(map[uint]*model.File),
		statusErrs: make(map[string]error),
	}
}

func (f *fakeFileStore) Create(file *model.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	file.ID = f.nextID
	file.CreatedAt = time.Now()
	clone := *file
	f.files[file.ID] = &clone
	return nil
}

func (f *fakeFileStore) GetByID(id uint) (*model.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, nil
	}
	clone := *file
	return &clone, nil
}

func (f *fakeFileStore) ListByUserID(userID string) ([]model.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.File
	for _, file := range f.files {
		if file.UserID == userID {
			out = append(out, *file)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeFileStore) ListByIDs(userID string, ids []uint) ([]model.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.File
	for _, id := range ids {
		if file, ok := f.files[id]; ok && file.UserID == userID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (f *fakeFileStore) UpdateStatus(id uint, status, failReason string, chunkCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statusErrs[status]; err != nil {
		return err
	}
	if file, ok := f.files[id]; ok {
		file.Status = status
		file.FailReason = failReason
		file.ChunkCount = chunkCount
	}
	return nil
}

func (f *fakeFileStore) Delete(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, id)
	return nil
}

func (f *fakeFileStore) DeleteByUserID(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, file := range f.files {
		if file.UserID == userID {
			delete(f.files, id)
		}
	}
	return nil
}

type fakeChunkStore struct {
	mu     sync.Mutex
	nextID uint
	chunks map[uint]*model.Chunk
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{chunks: make(map[uint]*model.Chunk)}
}

func (f *fakeChunkStore) CreateBatch(chunks []model.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range chunks {
		f.nextID++
		chunks[i].ID = f.nextID
		clone := chunks[i]
		f.chunks[clone.ID] = &clone
	}
	return nil
}

func (f *fakeChunkStore) ListByIDs(userID string, ids []uint) ([]model.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Chunk
	for _, id := range ids {
		if chunk, ok := f.chunks[id]; ok && chunk.UserID == userID {
			out = append(out, *chunk)
		}
	}
	return out, nil
}

func (f *fakeChunkStore) ListByUserID(userID string) ([]model.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Chunk
	for _, chunk := range f.chunks {
		if chunk.UserID == userID {
			out = append(out, *chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FileID != out[j].FileID {
			return out[i].FileID < out[j].FileID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (f *fakeChunkStore) DeleteByFileID(fileID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, chunk := range f.chunks {
		if chunk.FileID == fileID {
			delete(f.chunks, id)
		}
	}
	return nil
}

func (f *fakeChunkStore) DeleteByUserID(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, chunk := range f.chunks {
		if chunk.UserID == userID {
			delete(f.chunks, id)
		}
	}
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	nextID   uint
	sessions map[uint]*model.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uint]*model.Session)}
}

func (f *fakeSessionStore) Create(session *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	session.ID = f.nextID
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	clone := *session
	f.sessions[session.ID] = &clone
	return nil
}

func (f *fakeSessionStore) GetByID(id uint) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	clone := *sess
	return &clone, nil
}

func (f *fakeSessionStore) ListByUserID(userID string) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Session
	for _, sess := range f.sessions {
		if sess.UserID == userID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeSessionStore) ListIDsByUserID(userID string) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint
	for id, sess := range f.sessions {
		if sess.UserID == userID {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeSessionStore) SetTitle(id uint, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sess, ok := f.sessions[id]; ok {
		sess.Title = title
	}
	return nil
}

func (f *fakeSessionStore) Touch(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sess, ok := f.sessions[id]; ok {
		sess.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakeSessionStore) Delete(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) DeleteByUserID(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, sess := range f.sessions {
		if sess.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	nextID   uint
	messages []model.Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{}
}

func (f *fakeMessageStore) Create(message *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	message.ID = f.nextID
	message.CreatedAt = time.Now()
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeMessageStore) ListBySessionID(sessionID uint) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) ListRecentBySessionID(sessionID uint, limit int) ([]model.Message, error) {
	all, _ := f.ListBySessionID(sessionID)
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (f *fakeMessageStore) DeleteBySessionID(sessionID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.Message
	for _, m := range f.messages {
		if m.SessionID != sessionID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func (f *fakeMessageStore) DeleteByUserID(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.Message
	for _, m := range f.messages {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

// fakeExtractor treats every .txt upload as plain text.
type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) Supported(filename string) bool {
	return strings.HasSuffix(filename, ".txt")
}

func (f *fakeExtractor) Extract(filename string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return string(data), nil
}

// fakeEmbedder returns canned vectors per text, or a unit default.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: make(map[string][]float32)}
}

func (f *fakeEmbedder) embedOne(text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		v = []float32{1, 0, 0}
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, nil
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedOne(text)
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.embedOne(text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeCompleter fails its first `failures` calls with failErr, then answers.
type fakeCompleter struct {
	mu       sync.Mutex
	answer   string
	failErr  error
	failures int
	calls    int
	prompts  [][]ai.ChatMessage
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, messages)
	if f.calls <= f.failures {
		return "", f.failErr
	}
	return f.answer, nil
}

type fakeResync struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeResync) EnqueueResync(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return nil
}

// flakyIndex delegates to a real index but can force failures per operation.
type flakyIndex struct {
	index.Index
	addErr        error
	removeFileErr error
	clearErr      error
}

func (f *flakyIndex) Add(ctx context.Context, userID string, entries []index.Entry) error {
	if f.addErr != nil {
		return f.addErr
	}
	return f.Index.Add(ctx, userID, entries)
}

func (f *flakyIndex) RemoveFile(ctx context.Context, userID string, fileID uint) error {
	if f.removeFileErr != nil {
		return f.removeFileErr
	}
	return f.Index.RemoveFile(ctx, userID, fileID)
}

func (f *flakyIndex) Clear(ctx context.Context, userID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	return f.Index.Clear(ctx, userID)
}

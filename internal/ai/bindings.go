package ai

import "context"

// Embedder is the embedding collaborator as the services see it: model and
// credentials already bound.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer is the chat-completion collaborator with its config bound.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

type boundEmbedder struct {
	client *OpenAICompatibleClient
	cfg    EmbeddingConfig
}

func BindEmbedder(client *OpenAICompatibleClient, cfg EmbeddingConfig) Embedder {
	return &boundEmbedder{client: client, cfg: cfg}
}

func (b *boundEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return b.client.Embed(ctx, b.cfg, text)
}

func (b *boundEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return b.client.EmbedBatch(ctx, b.cfg, texts)
}

type boundCompleter struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func BindCompleter(client *OpenAICompatibleClient, cfg ChatConfig) Completer {
	return &boundCompleter{client: client, cfg: cfg}
}

func (b *boundCompleter) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	return b.client.Complete(ctx, b.cfg, messages)
}

package embed

import "context"

// Embedder generates vector embeddings for text. The store itself never
// computes embeddings; this interface exists for the tooling around it
// (seeding, query embedding in the CLI).
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

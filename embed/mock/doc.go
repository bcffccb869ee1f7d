// Package mock provides a test double implementation of embed.Embedder.
//
// The mock allows tests to run without an external embedding service and
// enables controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockEmbedder := mock.NewMockEmbedder()
//	vector, err := mockEmbedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
// By default the mock returns a deterministic unit vector derived from the
// text hash: the same text always produces the same vector, and distinct
// texts almost always produce dissimilar ones.
package mock

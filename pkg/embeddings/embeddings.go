package embeddings

import (
	"context"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/errgroup"
)

// Embedder generates a vector embedding for a single text input. Empty or
// whitespace-only input yields a zero vector of the configured dimension.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
}

// Chunk is one token window of a larger text.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
}

// ChunkText splits text into windows of at most maxTokens tokens, with
// overlap tokens shared between consecutive windows. The encoder names a
// tiktoken encoding; if it is unknown the whole text becomes a single chunk.
func ChunkText(text, encoder string, maxTokens, overlap int) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxTokens <= 0 {
		return []Chunk{{Index: 0, Text: text}}
	}
	if overlap >= maxTokens {
		overlap = maxTokens / 2
	}

	encoding, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return []Chunk{{Index: 0, Text: text}}
	}

	tokens := encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return []Chunk{{Index: 0, Text: text, TokenCount: len(tokens)}}
	}

	step := maxTokens - overlap
	chunks := make([]Chunk, 0, (len(tokens)+step-1)/step)
	for start := 0; start < len(tokens); start += step {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Text:       encoding.Decode(window),
			TokenCount: len(window),
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// EmbedChunks embeds every chunk concurrently and returns one vector per
// chunk in chunk order. The embedder's own limits bound actual parallelism.
func EmbedChunks(ctx context.Context, embedder Embedder, chunks []Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(chunks))
	eg, gCtx := errgroup.WithContext(ctx)
	for i := range chunks {
		idx := i
		eg.Go(func() error {
			vec, err := embedder.GenerateEmbedding(gCtx, []byte(chunks[idx].Text))
			if err != nil {
				return err
			}
			out[idx] = vec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

package generativeAI

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-alternative-pois/app/observability/metrics"
	"github.com/FACorreiaa/go-alternative-pois/internal/types"
)

const defaultEmbeddingModel = "gemini-embedding-001"

// Embedder is the black-box embedding collaborator contract. The same model
// must serve an index build and its queries; mixing versions invalidates the
// cosine guarantee.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingService implements Embedder on top of the Gemini embedding API.
type EmbeddingService struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewEmbeddingService builds the embedding client. A missing API key is a
// configuration-level hard failure: without embeddings no similarity result
// is possible.
func NewEmbeddingService(ctx context.Context, logger *slog.Logger) (*EmbeddingService, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GOOGLE_GEMINI_API_KEY is not set", types.ErrEmbeddingUnavailable)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrEmbeddingUnavailable, err)
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = defaultEmbeddingModel
	}
	return &EmbeddingService{client: client, model: model, logger: logger}, nil
}

func (s *EmbeddingService) Model() string { return s.model }

// Embed returns the embedding vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds several texts in one collaborator call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := otel.Tracer("EmbeddingService").Start(ctx, "EmbedBatch", trace.WithAttributes(
		attribute.String("embedding.model", s.model),
		attribute.Int("embedding.batch_size", len(texts)),
	))
	defer span.End()

	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	metrics.Get().EmbeddingCallsTotal.Add(ctx, 1)
	result, err := s.client.Models.EmbedContent(ctx, s.model, contents, nil)
	if err != nil {
		metrics.Get().EmbeddingErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "EmbedContent failed")
		s.logger.ErrorContext(ctx, "embedding call failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %s", types.ErrEmbeddingUnavailable, err)
	}
	if len(result.Embeddings) != len(texts) {
		err := fmt.Errorf("%w: got %d embeddings for %d texts", types.ErrEmbeddingUnavailable, len(result.Embeddings), len(texts))
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding count mismatch")
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			err := fmt.Errorf("%w: empty embedding at position %d", types.ErrEmbeddingUnavailable, i)
			span.RecordError(err)
			span.SetStatus(codes.Error, "empty embedding")
			return nil, err
		}
		vectors[i] = emb.Values
	}
	span.SetStatus(codes.Ok, "batch embedded")
	return vectors, nil
}

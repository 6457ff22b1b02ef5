package types

import "errors"

// Error taxonomy for the resolution and similarity pipeline. Per-item errors
// (ErrGeocodeNotFound) abort only that item; ErrEmbeddingUnavailable is the
// one configuration-level hard failure, since no similarity result is
// possible without embeddings.
var (
	// ErrGeocodeNotFound means the geocoding collaborator had no match for a
	// name. Fatal for that single name only.
	ErrGeocodeNotFound = errors.New("geocode: no match found")

	// ErrEnrichmentUnavailable means the tag-enrichment collaborator failed.
	// Recovered locally with an empty tag set.
	ErrEnrichmentUnavailable = errors.New("tag enrichment unavailable")

	// ErrEmbeddingUnavailable means the embedding collaborator cannot be
	// reached or is not configured. Hard error for the whole pipeline.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrFeatureSourceUnavailable means one raster/index source failed.
	// Recovered per-scalar with the neutral default.
	ErrFeatureSourceUnavailable = errors.New("feature source unavailable")

	// ErrIndexEmpty means a query hit an index with no entries. Queries
	// recover by returning an empty result list.
	ErrIndexEmpty = errors.New("similarity index is empty")
)

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds surfaced by the engine. Callers match them with errors.Is;
// wrapping always adds the generation name and, where it applies, the
// offending key or field.
var (
	// ErrGenerationExists is returned when creating a generation whose
	// name is already in use.
	ErrGenerationExists = errors.New("generation already exists")

	// ErrGenerationNotFound is returned when opening a generation that
	// does not exist.
	ErrGenerationNotFound = errors.New("generation not found")

	// ErrDuplicateKey is returned when an attribute loader presents the
	// same key twice within one attribute. Loaders must pre-aggregate;
	// ingestion fails rather than silently overwrite.
	ErrDuplicateKey = errors.New("duplicate key within attribute")

	// ErrMissingCanonicalDomain is returned when a join is requested on
	// a generation whose canonical attribute was never populated.
	ErrMissingCanonicalDomain = errors.New("canonical attribute not populated")

	// ErrPromotionConflict is returned when the promotion target does
	// not hold a generation or the candidate is not fully materialized.
	ErrPromotionConflict = errors.New("promotion conflict")

	// ErrComparisonFieldMismatch is returned when a delta is requested
	// between generations whose row views disagree on the declared
	// comparison fields.
	ErrComparisonFieldMismatch = errors.New("comparison field mismatch")

	// ErrSinkDelivery is returned when the downstream channel rejects a
	// batch. Already-delivered batches are not revoked.
	ErrSinkDelivery = errors.New("sink delivery failure")
)

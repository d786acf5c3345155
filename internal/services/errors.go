package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the service layer. Handlers match these
// exhaustively and map them onto HTTP statuses; nothing else about a service
// failure leaks to the client.
var (
	// ErrNotFound covers ids and slugs that do not resolve under the
	// caller's visibility rules.
	ErrNotFound = errors.New("not found")

	// ErrNotPublished rejects bookmarking or rating a roadmap that is not
	// (or no longer) public.
	ErrNotPublished = errors.New("roadmap is not published")

	// ErrOwnRoadmap rejects saving, forking, or rating one's own roadmap.
	ErrOwnRoadmap = errors.New("cannot act on your own roadmap")

	// ErrForkedPublish rejects publishing a roadmap that was forked from
	// someone else's.
	ErrForkedPublish = errors.New("forked roadmap cannot be published")

	// ErrInvalidInput covers malformed or out-of-range request values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeneration wraps failures of the upstream generation service.
	ErrGeneration = errors.New("generation failed")
)

// IncompleteError rejects publishing below 100% progress and carries the
// current percent for the response body.
type IncompleteError struct {
	Percent int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("roadmap progress is %d%%, publishing requires 100%%", e.Percent)
}

// Package blob defines the source contract for fetching raw byte blobs.
//
// The storage service itself is an external collaborator; this package only
// models the narrow get/put surface the pipeline consumes.
package blob

import "context"

// Ref identifies one blob by bucket and object key.
type Ref struct {
	Bucket string
	Key    string
}

// Source provides read access to blobs.
type Source interface {
	// Get fetches the raw bytes of one blob.
	// Returns ErrNotFound or ErrAccessDenied for the respective conditions.
	Get(ctx context.Context, ref Ref) ([]byte, error)
}

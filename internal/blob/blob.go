// Package blob provides the binary object storage capability: upload a
// payload under a path, get back a retrievable URL. Message attachments
// are uploaded here before the message referencing them is appended to the
// ledger; the ledger itself never sees bytes.
package blob

import "context"

// Store accepts binary payloads and returns retrievable URLs.
type Store interface {
	// Upload writes data under path and returns the URL it can be
	// fetched from. Paths use forward slashes and should be unique per
	// object; uploads to an existing path overwrite it.
	Upload(ctx context.Context, path string, data []byte) (string, error)
}

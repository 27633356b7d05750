// Package blob serves stored audio files over HTTP with byte-range support.
//
// Owns:
//   - Range header parsing and byte window computation
//   - Admission of /data requests against the IP whitelist (Gate)
//   - The blob directory: resolving ids to files and saving uploads
//
// Does not own:
//   - Routing (internal/server mounts Handler on GET /data/{blobId})
//   - Whitelist storage (anything with IsMember satisfies Membership)
//
// Invariants:
//   - No blob file is opened before the Gate admits the request
//   - Bodies are streamed from the open file handle, never buffered whole
//   - Range errors are client errors (400), never panics
package blob

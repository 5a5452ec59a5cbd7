// Package transport is the HTTP boundary to the governance controller's
// log-ingestion endpoint. It owns request encoding, bearer-token minting, and
// timeouts; retry and backoff policy belong to the controller-facing client
// layer above the pipeline, not here. Records handed to this package are
// already masked.
package transport

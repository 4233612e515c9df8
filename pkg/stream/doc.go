// Package stream delivers rendered components to an output sink.
//
// A Streamer renders a page through a server.Renderer and writes it in one
// of two modes:
//
//   - Streaming: the synchronous first paint is written and flushed at once.
//     Every later update batch appends one vango-fragment element per
//     updated component, flushed individually, until the page is quiescent.
//   - Static: nothing is written until the page is quiescent; the final
//     markup is then written with a single flush.
//
// Output is append-only. Sinks adapt the writes to HTTP responses,
// WebSocket text messages, or in-memory buffers.
//
// NewHandler exposes streaming over HTTP with a chi router.
package stream

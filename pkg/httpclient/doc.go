// Package httpclient builds the HTTP clients used to reach model provider
// APIs.
//
// Clients are created through New with a Config and share one transport
// stack: TLS 1.2+, connection pooling, structured request logging with
// sanitized URLs and X-Correlation-ID propagation, and optional retries.
//
// # Retry behavior
//
// Provider calls are JSON POSTs, so retries are gated on body replayability
// rather than on idempotent methods: a request is retried only when its body
// can be rebuilt via GetBody (or it has none). Transient failures mean HTTP
// 5xx, 408, 429 and timeout-class network errors; other 4xx responses are
// returned immediately. Delays grow exponentially with jitter, and a
// server's Retry-After header overrides the computed delay up to
// Config.MaxBackoff.
//
// Streaming responses stay open well past any sane whole-request deadline,
// so Config.Timeout bounds the response headers only. Callers that need a
// hard deadline should put one on the request context.
package httpclient

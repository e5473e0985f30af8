// Package fetch retrieves remote documents for session bootstrapping.
//
// Built on go-resty/resty with a retryable transport underneath:
//   - Automatic retries with exponential backoff
//   - Connection pooling and keep-alive
//   - Context-based cancellation
//   - Rate limiting per client instance
//
// Responses are decompressed by Content-Encoding (gzip, deflate, zstd)
// and capped at a configurable size before they reach the page loader.
//
// Example Usage:
//
//	client := fetch.NewClient(cfg.Fetch)
//	res, err := client.Get(ctx, "https://example.com/")
package fetch

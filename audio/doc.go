// Package audio converts between the raw 16-bit PCM the pipeline carries and the
// container formats recognition backends and the HTTP API exchange.
package audio

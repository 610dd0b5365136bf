// Package httputil holds the shared HTTP plumbing for the gateway's
// outbound calls: the STT service, Ollama embeddings and the decoy
// reply providers. One pooled transport, tiered timeouts, bounded
// body reads.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize bounds response body reads. External model services
// are not trusted to return sane payloads.
const MaxResponseSize = 10 * 1024 * 1024 // 10MB

// All clients share one transport so TCP connections to the STT and
// model backends get reused across frames.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// TimeoutTier buckets outbound calls by how long they may run.
type TimeoutTier int

const (
	// TierFast covers health checks and other trivial probes (5s).
	TierFast TimeoutTier = iota
	// TierMedium covers embedding lookups and standard API calls (30s).
	TierMedium
	// TierSlow covers transcription and chat completions (60s).
	TierSlow
)

var (
	clientFast   *http.Client
	clientMedium *http.Client
	clientSlow   *http.Client
	clientOnce   sync.Once
)

func initClients() {
	clientFast = &http.Client{Timeout: 5 * time.Second, Transport: sharedTransport}
	clientMedium = &http.Client{Timeout: 30 * time.Second, Transport: sharedTransport}
	clientSlow = &http.Client{Timeout: 60 * time.Second, Transport: sharedTransport}
}

// Client returns the shared client for a tier. Callers must not
// mutate it; per-request deadlines belong on the request context.
func Client(tier TimeoutTier) *http.Client {
	clientOnce.Do(initClients)
	switch tier {
	case TierFast:
		return clientFast
	case TierSlow:
		return clientSlow
	default:
		return clientMedium
	}
}

// FastClient returns the 5s-timeout client.
func FastClient() *http.Client { return Client(TierFast) }

// MediumClient returns the 30s-timeout client.
func MediumClient() *http.Client { return Client(TierMedium) }

// SlowClient returns the 60s-timeout client, used for STT and chat
// completion calls.
func SlowClient() *http.Client { return Client(TierSlow) }

// ReadResponseBody reads at most maxSize bytes of a response body.
// A maxSize of zero or less falls back to MaxResponseSize.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadErrorBody reads a non-2xx body for inclusion in an error
// message. Capped at 1MB; nobody needs more error text than that.
func ReadErrorBody(r io.Reader) ([]byte, error) {
	const maxErrorSize = 1 * 1024 * 1024
	return io.ReadAll(io.LimitReader(r, maxErrorSize))
}

// DrainAndClose empties and closes a response body so the connection
// returns to the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}

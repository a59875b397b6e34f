package loadgen

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync/atomic"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const bypassHeader = "X-Rate-Limit-Bypass"

var writeCounter atomic.Uint64

var searchTerms = []string{"widget", "gadget", "deluxe", "basic", "pro", "mini"}

var readPaths = []string{
	"/api/v1/users",
	"/api/v1/products",
	"/api/v1/orders",
}

// ReadTargeter hits the paginated list endpoints with a small random page
// spread so a share of requests lands on the same cache keys.
func ReadTargeter(baseURL, bypassSecret string) vegeta.Targeter {
	header := authHeader(bypassSecret)

	return func(t *vegeta.Target) error {
		path := readPaths[rand.IntN(len(readPaths))]
		t.Method = http.MethodGet
		t.URL = fmt.Sprintf("%s%s?page=%d&limit=20", baseURL, path, 1+rand.IntN(5))
		t.Header = header
		return nil
	}
}

func SearchTargeter(baseURL, bypassSecret string) vegeta.Targeter {
	header := authHeader(bypassSecret)

	return func(t *vegeta.Target) error {
		term := searchTerms[rand.IntN(len(searchTerms))]
		t.Method = http.MethodGet
		t.URL = fmt.Sprintf("%s/api/v1/products/search?q=%s&page=1&limit=20", baseURL, term)
		t.Header = header
		return nil
	}
}

// WriteTargeter creates products so every write triggers a prefix
// invalidation against the read traffic.
func WriteTargeter(baseURL, bypassSecret string) vegeta.Targeter {
	header := authHeader(bypassSecret)
	header.Set("Content-Type", "application/json")
	url := baseURL + "/api/v1/products"

	return func(t *vegeta.Target) error {
		t.Method = http.MethodPost
		t.URL = url
		t.Header = header

		n := writeCounter.Add(1)
		// Each target owns its body; vegeta may hold it past this call.
		t.Body = fmt.Appendf(nil, `{"name":"widget %d","description":"load generated","price_cents":%d}`, n, 100+n%5000)
		return nil
	}
}

// MixedTargeter picks one of the targeters per request according to the
// configured weights.
func MixedTargeter(cfg *Config) (vegeta.Targeter, error) {
	total := cfg.ReadWeight + cfg.SearchWeight + cfg.WriteWeight
	if total <= 0 {
		return nil, fmt.Errorf("operation weights sum to zero")
	}

	read := ReadTargeter(cfg.BaseURL, cfg.RateLimitBypass)
	search := SearchTargeter(cfg.BaseURL, cfg.RateLimitBypass)
	write := WriteTargeter(cfg.BaseURL, cfg.RateLimitBypass)

	return func(t *vegeta.Target) error {
		n := rand.IntN(total)
		switch {
		case n < cfg.ReadWeight:
			return read(t)
		case n < cfg.ReadWeight+cfg.SearchWeight:
			return search(t)
		default:
			return write(t)
		}
	}, nil
}

func authHeader(bypassSecret string) http.Header {
	header := http.Header{}
	if bypassSecret != "" {
		header.Set(bypassHeader, bypassSecret)
	}
	return header
}

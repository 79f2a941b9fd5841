// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package blackduck

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type middleware func(req *http.Request, next http.RoundTripper) (*http.Response, error)

func wrapHTTPClient(client *http.Client, wrap middleware) {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	client.Transport = roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return wrap(req, base)
	})
}

// rateLimited blocks every outgoing request until the limiter allows it.
func rateLimited(limiter *rate.Limiter) middleware {
	return func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		if err := limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
		return next.RoundTrip(req)
	}
}

// vulnerabilityCache keeps successful GET responses of vulnerability details.
// Those are requested over and over during a run since many notifications
// reference the same ids.
type vulnerabilityCache struct {
	cache *expirable.LRU[string, []byte]
}

func newVulnerabilityCache(size int, ttl time.Duration) *vulnerabilityCache {
	return &vulnerabilityCache{
		cache: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

func isVulnerabilityRequest(req *http.Request) bool {
	return req.Method == http.MethodGet && strings.Contains(req.URL.Path, "/api/vulnerabilities/")
}

func (c *vulnerabilityCache) handler() middleware {
	return func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		if !isVulnerabilityRequest(req) {
			return next.RoundTrip(req)
		}

		key := cacheKey(req)
		if val, ok := c.cache.Get(key); ok {
			slog.Debug("cache hit", "url", req.URL.String())
			return responseFromBytes(val, req)
		}

		resp, err := next.RoundTrip(req)
		if err != nil {
			return resp, err
		}

		// only cache successful responses
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp, nil
		}

		v, err := httputil.DumpResponse(resp, true)
		if err != nil {
			slog.Error("could not dump response", "err", err)
			return resp, nil
		}

		c.cache.Add(key, v)

		return responseFromBytes(v, req)
	}
}

func (c *vulnerabilityCache) Len() int {
	return c.cache.Len()
}

func responseFromBytes(v []byte, req *http.Request) (*http.Response, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(v)), req)
	if err != nil {
		return nil, fmt.Errorf("could not read cached response: %w", err)
	}
	return resp, nil
}

// the accept header selects the media type version, the authorization the user
func cacheKey(req *http.Request) string {
	h := sha256.New()
	h.Write([]byte(req.URL.String()))
	h.Write([]byte(req.Header.Get("Accept")))
	h.Write([]byte(req.Header.Get("Authorization")))
	return fmt.Sprintf("%x", h.Sum(nil))
}

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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/l3montree-dev/vulnsync/dtos"
)

const (
	mediaTypeUser          = "application/vnd.blackducksoftware.user-4+json"
	mediaTypeNotification  = "application/vnd.blackducksoftware.notification-4+json"
	mediaTypeVulnerability = "application/vnd.blackducksoftware.vulnerability-4+json"
	mediaTypeBOM           = "application/vnd.blackducksoftware.bill-of-materials-6+json"
	mediaTypeProject       = "application/vnd.blackducksoftware.project-detail-4+json"
)

// the api timestamp format used by startDate and endDate
const apiTimeFormat = "2006-01-02T15:04:05.000Z"

var ErrNotFound = errors.New("resource not found")

type ClientOptions struct {
	RequestsPerSecond float64
	Burst             int
	CacheSize         int
	CacheTTL          time.Duration
	// prefix of scanned file uris, stripped from matched files
	LocalFilePrefix string
	PageSize        int
	Retries         int
	Timeout         time.Duration
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		RequestsPerSecond: 10,
		Burst:             5,
		CacheSize:         5000,
		CacheTTL:          time.Hour,
		PageSize:          100,
		Retries:           5,
		Timeout:           30 * time.Second,
	}
}

// Client talks to the Black Duck Hub REST API.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	opts       ClientOptions

	mut          sync.Mutex
	bearerToken  string
	bearerExpiry time.Time
}

func NewClient(baseURL, apiToken string, opts ClientOptions) *Client {
	defaults := DefaultClientOptions()
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaults.Burst
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaults.CacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaults.CacheTTL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaults.PageSize
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}

	httpClient := &http.Client{Timeout: opts.Timeout}
	// cache hits do not count against the rate limit
	wrapHTTPClient(httpClient, rateLimited(rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)))
	wrapHTTPClient(httpClient, newVulnerabilityCache(opts.CacheSize, opts.CacheTTL).handler())

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		httpClient: httpClient,
		opts:       opts,
	}
}

type authResponse struct {
	BearerToken           string `json:"bearerToken"`
	ExpiresInMilliseconds int64  `json:"expiresInMilliseconds"`
}

func (c *Client) authenticate(ctx context.Context, force bool) (string, error) {
	c.mut.Lock()
	defer c.mut.Unlock()

	if !force && c.bearerToken != "" && time.Now().Before(c.bearerExpiry) {
		return c.bearerToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tokens/authenticate", nil)
	if err != nil {
		return "", errors.Wrap(err, "could not create authentication request")
	}
	req.Header.Set("Authorization", "token "+c.apiToken)
	req.Header.Set("Accept", mediaTypeUser)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "could not authenticate against black duck")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("could not authenticate against black duck: %s", resp.Status)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", errors.Wrap(err, "could not decode authentication response")
	}
	if auth.BearerToken == "" {
		return "", errors.New("black duck did not return a bearer token")
	}

	c.bearerToken = auth.BearerToken
	// refresh a minute early
	c.bearerExpiry = time.Now().Add(time.Duration(auth.ExpiresInMilliseconds)*time.Millisecond - time.Minute)
	return c.bearerToken, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// getJSON performs an authenticated GET request and decodes the response into
// out. Server errors and transport errors are retried with exponential backoff.
func (c *Client) getJSON(ctx context.Context, u string, accept string, out any) error {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = c.baseURL + u
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0

	reauthenticated := false
	return backoff.RetryNotify(func() error {
		for {
			status, body, err := c.get(ctx, u, accept)
			if err != nil {
				if ctx.Err() != nil {
					return backoff.Permanent(ctx.Err())
				}
				return err
			}

			switch {
			case status.code == http.StatusUnauthorized && !reauthenticated:
				// the bearer token was revoked, this does not count as a retry
				reauthenticated = true
				if _, err := c.authenticate(ctx, true); err != nil {
					return backoff.Permanent(err)
				}
				continue
			case status.code == http.StatusNotFound:
				return backoff.Permanent(errors.Wrap(ErrNotFound, u))
			case retryable(status.code):
				return fmt.Errorf("could not get %s: %s", u, status.text)
			case status.code < 200 || status.code >= 300:
				return backoff.Permanent(fmt.Errorf("could not get %s: %s", u, status.text))
			}

			if err := json.Unmarshal(body, out); err != nil {
				return backoff.Permanent(errors.Wrapf(err, "could not decode response of %s", u))
			}
			return nil
		}
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.opts.Retries)), ctx), func(err error, next time.Duration) {
		slog.Debug("request failed, retrying", "url", u, "in", next, "err", err)
	})
}

type responseStatus struct {
	code int
	text string
}

// get sends a single authenticated request. Authentication errors are permanent.
func (c *Client) get(ctx context.Context, u string, accept string) (responseStatus, []byte, error) {
	token, err := c.authenticate(ctx, false)
	if err != nil {
		return responseStatus{}, nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return responseStatus{}, nil, backoff.Permanent(errors.Wrap(err, "could not create request"))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return responseStatus{}, nil, errors.Wrapf(err, "could not get %s", u)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return responseStatus{}, nil, errors.Wrapf(err, "could not read response of %s", u)
	}
	return responseStatus{code: resp.StatusCode, text: resp.Status}, body, nil
}

type meta struct {
	Href  string                   `json:"href"`
	Links []dtos.VulnerabilityLink `json:"links"`
}

func (m meta) link(rel string) string {
	for _, l := range m.Links {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

type page[T any] struct {
	TotalCount int  `json:"totalCount"`
	Items      []T  `json:"items"`
	Meta       meta `json:"_meta"`
}

func (c *Client) ListNotifications(ctx context.Context, filter dtos.NotificationFilter) ([]dtos.RawNotification, error) {
	params := url.Values{}
	params.Set("filter", "notificationType:VULNERABILITY")
	params.Set("limit", strconv.Itoa(c.opts.PageSize))
	if filter.Since != nil {
		params.Set("startDate", filter.Since.UTC().Format(apiTimeFormat))
	}
	if filter.Until != nil {
		params.Set("endDate", filter.Until.UTC().Format(apiTimeFormat))
	}

	res := make([]dtos.RawNotification, 0)
	offset := 0
	for {
		params.Set("offset", strconv.Itoa(offset))

		var p page[dtos.RawNotification]
		if err := c.getJSON(ctx, "/api/notifications?"+params.Encode(), mediaTypeNotification, &p); err != nil {
			return nil, errors.Wrap(err, "could not list notifications")
		}

		for _, n := range p.Items {
			if filter.ProjectName != "" && !n.Content.AffectsProject(filter.ProjectName) {
				continue
			}
			if filter.ProjectVersion != "" && !n.Content.AffectsProjectVersion(filter.ProjectVersion) {
				continue
			}
			res = append(res, n)
		}

		offset += len(p.Items)
		if len(p.Items) == 0 || offset >= p.TotalCount {
			break
		}
	}

	slog.Debug("fetched notifications", "count", len(res), "project", filter.ProjectName)
	return res, nil
}

type vulnerabilityResponse struct {
	Name        string  `json:"name"`
	Source      string  `json:"source"`
	Severity    *string `json:"severity"`
	UpdatedDate string  `json:"updatedDate"`
	CVSS3       *struct {
		Vector string `json:"vector"`
	} `json:"cvss3"`
	Meta meta `json:"_meta"`
}

func (c *Client) GetVulnerabilityDetail(ctx context.Context, id string) (*dtos.VulnerabilityDetail, error) {
	var v vulnerabilityResponse
	err := c.getJSON(ctx, "/api/vulnerabilities/"+url.PathEscape(id), mediaTypeVulnerability, &v)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "could not get vulnerability %s", id)
	}

	detail := &dtos.VulnerabilityDetail{
		Name:        v.Name,
		Source:      v.Source,
		Severity:    v.Severity,
		Href:        v.Meta.Href,
		Links:       v.Meta.Links,
		UpdatedDate: v.UpdatedDate,
	}
	if v.CVSS3 != nil {
		detail.CVSS3Vector = v.CVSS3.Vector
	}
	return detail, nil
}

type matchedFile struct {
	DeclaredComponentPath string `json:"declaredComponentPath"`
	URI                   string `json:"uri"`
	Matches               []struct {
		Component string `json:"component"`
	} `json:"matches"`
}

// componentVersionURL strips the origin from a matched component url.
func componentVersionURL(component string) string {
	if i := strings.LastIndex(component, "/origins"); i >= 0 {
		return component[:i]
	}
	return component
}

// GetMatchedFiles returns the files of every component in the project version,
// keyed by component version url.
func (c *Client) GetMatchedFiles(ctx context.Context, projectVersionURL string) (map[string][]string, error) {
	res := make(map[string][]string)
	next := fmt.Sprintf("%s/matched-files?limit=%d", strings.TrimRight(projectVersionURL, "/"), c.opts.PageSize)
	for next != "" {
		var p page[matchedFile]
		if err := c.getJSON(ctx, next, mediaTypeBOM, &p); err != nil {
			return nil, errors.Wrapf(err, "could not get matched files of %s", projectVersionURL)
		}

		for _, item := range p.Items {
			if len(item.Matches) == 0 {
				continue
			}
			path := item.DeclaredComponentPath
			if path == "" {
				path = strings.TrimPrefix(item.URI, c.opts.LocalFilePrefix)
			}
			if path == "" {
				continue
			}
			key := componentVersionURL(item.Matches[0].Component)
			res[key] = append(res[key], path)
		}

		next = p.Meta.link("paging-next")
	}
	return res, nil
}

type namedResource struct {
	Name        string `json:"name"`
	VersionName string `json:"versionName"`
	Phase       string `json:"phase"`
	Meta        meta   `json:"_meta"`
}

func (c *Client) GetProjectVersion(ctx context.Context, projectName, versionName string) (dtos.ProjectVersion, error) {
	var projects page[namedResource]
	err := c.getJSON(ctx, "/api/projects?"+url.Values{"q": {"name:" + projectName}}.Encode(), mediaTypeProject, &projects)
	if err != nil {
		return dtos.ProjectVersion{}, errors.Wrapf(err, "could not find project %s", projectName)
	}
	project, err := exactlyOne(projects.Items, func(r namedResource) bool { return r.Name == projectName })
	if err != nil {
		return dtos.ProjectVersion{}, errors.Wrapf(err, "project %s", projectName)
	}

	var versions page[namedResource]
	err = c.getJSON(ctx, project.Meta.Href+"/versions?"+url.Values{"q": {"versionName:" + versionName}}.Encode(), mediaTypeProject, &versions)
	if err != nil {
		return dtos.ProjectVersion{}, errors.Wrapf(err, "could not find version %s of project %s", versionName, projectName)
	}
	version, err := exactlyOne(versions.Items, func(r namedResource) bool { return r.VersionName == versionName })
	if err != nil {
		return dtos.ProjectVersion{}, errors.Wrapf(err, "version %s of project %s", versionName, projectName)
	}

	return dtos.ProjectVersion{
		VersionName: version.VersionName,
		Phase:       version.Phase,
		Href:        version.Meta.Href,
	}, nil
}

// the q parameter matches substrings, the result has to be narrowed down
func exactlyOne(items []namedResource, match func(namedResource) bool) (namedResource, error) {
	var found []namedResource
	for _, item := range items {
		if match(item) {
			found = append(found, item)
		}
	}
	if len(found) != 1 {
		return namedResource{}, fmt.Errorf("expected exactly one match, found %d", len(found))
	}
	return found[0], nil
}

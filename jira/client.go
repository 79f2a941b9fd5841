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

package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Jira REST API v2. Version 2 is used since it accepts
// wiki markup in text fields, which the ticket detail is written in.
type Client struct {
	AccessToken string
	BaseURL     string
	UserEmail   string

	httpClient *http.Client
}

func NewJiraClient(token string, baseURL string, userEmail string) (*Client, error) {
	if token == "" || baseURL == "" || userEmail == "" {
		return nil, fmt.Errorf("invalid Jira client parameters: token, baseURL, and userEmail must be provided")
	}
	return &Client{
		AccessToken: token,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		UserEmail:   userEmail,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type requestError struct {
	StatusCode int
	Body       string
}

func (e *requestError) Error() string {
	return fmt.Sprintf("status code: %d, response: %s", e.StatusCode, e.Body)
}

// jiraRequest sends body as json and decodes the response into out if out is
// not nil. Every status besides the expected one is an error.
func (c *Client) jiraRequest(ctx context.Context, method string, path string, body any, expectedStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.UserEmail, c.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		bodyContent, _ := io.ReadAll(resp.Body)
		return &requestError{StatusCode: resp.StatusCode, Body: string(bodyContent)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SearchIssues runs the jql query and follows the pagination until every
// issue is fetched.
func (c *Client) SearchIssues(ctx context.Context, jql string, fields []string, pageSize int) ([]Issue, error) {
	if pageSize <= 0 {
		pageSize = 50
	}

	issues := make([]Issue, 0)
	for {
		var page searchResponse
		err := c.jiraRequest(ctx, http.MethodPost, "/rest/api/2/search", searchRequest{
			JQL:        jql,
			StartAt:    len(issues),
			MaxResults: pageSize,
			Fields:     fields,
		}, http.StatusOK, &page)
		if err != nil {
			slog.Error("Failed to search issues", "jql", jql, "error", err)
			return nil, fmt.Errorf("failed to search issues: %w", err)
		}

		issues = append(issues, page.Issues...)
		if len(page.Issues) == 0 || len(issues) >= page.Total {
			break
		}
	}

	slog.Debug("Searched issues", "jql", jql, "count", len(issues))
	return issues, nil
}

func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*CreateIssueResponse, error) {
	var response CreateIssueResponse
	err := c.jiraRequest(ctx, http.MethodPost, "/rest/api/2/issue", map[string]any{"fields": fields}, http.StatusCreated, &response)
	if err != nil {
		slog.Error("Failed to create issue", "error", err)
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	slog.Info("Issue created successfully", "issue", response.Key)
	return &response, nil
}

// EditIssue updates the given fields. Watchers are only notified if notify is set.
func (c *Client) EditIssue(ctx context.Context, key string, fields map[string]any, notify bool) error {
	path := fmt.Sprintf("/rest/api/2/issue/%s", url.PathEscape(key))
	if !notify {
		path += "?notifyUsers=false"
	}

	err := c.jiraRequest(ctx, http.MethodPut, path, map[string]any{"fields": fields}, http.StatusNoContent, nil)
	if err != nil {
		slog.Error("Failed to edit issue", "issue", key, "error", err)
		return fmt.Errorf("failed to edit issue %s: %w", key, err)
	}

	slog.Debug("Issue edited successfully", "issue", key)
	return nil
}

func (c *Client) GetTransitions(ctx context.Context, key string) ([]Transition, error) {
	var transitions TransitionsResponse
	err := c.jiraRequest(ctx, http.MethodGet, fmt.Sprintf("/rest/api/2/issue/%s/transitions", url.PathEscape(key)), nil, http.StatusOK, &transitions)
	if err != nil {
		slog.Error("Failed to fetch issue transitions", "issue", key, "error", err)
		return nil, fmt.Errorf("failed to fetch issue transitions: %w", err)
	}
	return transitions.Transitions, nil
}

func (c *Client) TransitionIssue(ctx context.Context, key string, transitionID string) error {
	body := map[string]any{
		"transition": map[string]string{
			"id": transitionID,
		},
	}

	err := c.jiraRequest(ctx, http.MethodPost, fmt.Sprintf("/rest/api/2/issue/%s/transitions", url.PathEscape(key)), body, http.StatusNoContent, nil)
	if err != nil {
		slog.Error("Failed to transition issue", "issue", key, "transition_id", transitionID, "error", err)
		return fmt.Errorf("failed to transition issue %s: %w", key, err)
	}

	slog.Info("Issue transitioned successfully", "issue", key, "transition_id", transitionID)
	return nil
}

// CreateIssueLink links the inward issue to the outward issue.
func (c *Client) CreateIssueLink(ctx context.Context, linkType string, inwardKey string, outwardKey string) error {
	body := map[string]any{
		"type":         map[string]string{"name": linkType},
		"inwardIssue":  map[string]string{"key": inwardKey},
		"outwardIssue": map[string]string{"key": outwardKey},
	}

	err := c.jiraRequest(ctx, http.MethodPost, "/rest/api/2/issueLink", body, http.StatusCreated, nil)
	if err != nil {
		slog.Error("Failed to link issues", "inward", inwardKey, "outward", outwardKey, "error", err)
		return fmt.Errorf("failed to link %s to %s: %w", inwardKey, outwardKey, err)
	}
	return nil
}

func (c *Client) FetchAllProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	err := c.jiraRequest(ctx, http.MethodGet, "/rest/api/2/project", nil, http.StatusOK, &projects)
	if err != nil {
		slog.Error("Failed to fetch projects", "error", err)
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}
	return projects, nil
}

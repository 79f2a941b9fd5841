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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3montree-dev/vulnsync/dtos"
)

var testFields = FieldIDs{
	CVEList:          "customfield_1",
	Severity:         "customfield_2",
	LastUpdate:       "customfield_3",
	ComponentName:    "customfield_4",
	ComponentVersion: "customfield_5",
	ProjectName:      "customfield_6",
	ProjectVersion:   "customfield_7",
}

func newTestTracker(t *testing.T, handler http.Handler) *Tracker {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bot@example.com" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := NewJiraClient("secret", server.URL+"/", "bot@example.com")
	require.NoError(t, err)
	return NewTracker(client, TrackerOptions{Fields: testFields, PageSize: 2})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) // nolint:errcheck
}

func searchHit(key, component, version, projectVersion string) map[string]any {
	return map[string]any{
		"key": key,
		"fields": map[string]any{
			"status":        map[string]any{"name": "To Do"},
			"customfield_1": "CVE-1,CVE-2",
			"customfield_2": map[string]any{"value": "HIGH"},
			"customfield_3": "2026-03-01T12:00:00.000+0000",
			"customfield_4": component,
			"customfield_5": version,
			"customfield_6": "couchbase-server",
			"customfield_7": projectVersion,
			"description":   "detail of " + key,
		},
	}
}

func TestNewJiraClient(t *testing.T) {
	t.Run("should require token, url and email", func(t *testing.T) {
		_, err := NewJiraClient("", "https://jira", "bot@example.com")
		assert.Error(t, err)
	})
}

func TestSearchIssues(t *testing.T) {
	t.Run("should page through the results and keep only exact matches", func(t *testing.T) {
		var jql []string
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/api/2/search", r.URL.Path)
			body := decodeBody(t, r)
			jql = append(jql, body["jql"].(string))
			if body["startAt"].(float64) == 0 {
				writeJSON(w, http.StatusOK, map[string]any{"total": 3, "issues": []any{
					searchHit("SEC-1", "openssl", "1.1.1", "7.6.0"),
					searchHit("SEC-2", "openssl-fips", "1.1.1", "7.6.0"),
				}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"total": 3, "issues": []any{
				searchHit("SEC-3", "openssl", "1.1.1", "7.2.4"),
			}})
		}))

		issues, err := tracker.SearchIssues(context.Background(), dtos.IssueQuery{
			Project:          "SEC",
			ComponentName:    "openssl",
			ComponentVersion: "1.1.1",
			ProjectName:      "couchbase-server",
			ProjectVersion:   "7.6.0",
		})
		require.NoError(t, err)

		require.Len(t, jql, 2)
		assert.Equal(t, `project = "SEC" AND cf[4] ~ "openssl" AND cf[5] ~ "1.1.1" AND cf[6] ~ "couchbase-server" AND cf[7] ~ "7.6.0"`, jql[0])
		require.Len(t, issues, 1)
		assert.Equal(t, dtos.Issue{
			Key:        "SEC-1",
			Status:     "To Do",
			CVEList:    "CVE-1,CVE-2",
			Severity:   "HIGH",
			Detail:     "detail of SEC-1",
			LastUpdate: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}, dtos.Issue{
			Key:        issues[0].Key,
			Status:     issues[0].Status,
			CVEList:    issues[0].CVEList,
			Severity:   issues[0].Severity,
			Detail:     issues[0].Detail,
			LastUpdate: issues[0].LastUpdate.UTC(),
		})
	})

	t.Run("should match any project version if none is given", func(t *testing.T) {
		var jql string
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jql = decodeBody(t, r)["jql"].(string)
			writeJSON(w, http.StatusOK, map[string]any{"total": 2, "issues": []any{
				searchHit("SEC-1", "openssl", "1.1.1", "7.6.0"),
				searchHit("SEC-3", "openssl", "1.1.1", "7.2.4"),
			}})
		}))

		issues, err := tracker.SearchIssues(context.Background(), dtos.IssueQuery{
			Project:          "SEC",
			ComponentName:    "openssl",
			ComponentVersion: "1.1.1",
			ProjectName:      "couchbase-server",
		})
		require.NoError(t, err)
		assert.NotContains(t, jql, "cf[7]")
		assert.Len(t, issues, 2)
	})

	t.Run("should escape quotes in values", func(t *testing.T) {
		tracker := NewTracker(nil, TrackerOptions{Fields: testFields})
		jql := tracker.searchJQL(dtos.IssueQuery{Project: "SEC", ComponentName: `a"b\c`})
		assert.Contains(t, jql, `cf[4] ~ "a\"b\\c"`)
	})

	t.Run("should return the error response of jira", func(t *testing.T) {
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errorMessages": []string{"bad jql"}})
		}))

		_, err := tracker.SearchIssues(context.Background(), dtos.IssueQuery{Project: "SEC"})
		var reqErr *requestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
		assert.Contains(t, reqErr.Body, "bad jql")
	})
}

func TestCreateIssue(t *testing.T) {
	t.Run("should send the project, issue type and all set fields", func(t *testing.T) {
		var fields map[string]any
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/rest/api/2/issue", r.URL.Path)
			fields = decodeBody(t, r)["fields"].(map[string]any)
			writeJSON(w, http.StatusCreated, map[string]any{"id": "10001", "key": "SEC-9"})
		}))

		issue, err := tracker.CreateIssue(context.Background(), "SEC", dtos.TicketFields{
			Summary:          "couchbase-server:7.6.0,openssl:1.1.1",
			Detail:           "detail",
			Severity:         dtos.SeverityCritical,
			CVEList:          []string{"CVE-1", "CVE-2"},
			LastUpdate:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			ComponentName:    "openssl",
			ComponentVersion: "1.1.1",
			ProjectName:      "couchbase-server",
			ProjectVersion:   "7.6.0",
			TrackerComponent: "tools",
			Labels:           []string{"couchbase-server"},
		})
		require.NoError(t, err)

		assert.Equal(t, "SEC-9", issue.Key)
		assert.Equal(t, map[string]any{"key": "SEC"}, fields["project"])
		assert.Equal(t, map[string]any{"name": "Bug"}, fields["issuetype"])
		assert.Equal(t, "couchbase-server:7.6.0,openssl:1.1.1", fields["summary"])
		assert.Equal(t, "detail", fields["description"])
		assert.Equal(t, "CVE-1,CVE-2", fields["customfield_1"])
		assert.Equal(t, map[string]any{"value": "CRITICAL"}, fields["customfield_2"])
		assert.Equal(t, "2026-03-01T12:00:00.000+0000", fields["customfield_3"])
		assert.Equal(t, "7.6.0", fields["customfield_7"])
		assert.Equal(t, []any{map[string]any{"name": "tools"}}, fields["components"])
		assert.Equal(t, []any{"couchbase-server"}, fields["labels"])
	})
}

func TestUpdateIssue(t *testing.T) {
	t.Run("should always write the vulnerability list along with the detail", func(t *testing.T) {
		var fields map[string]any
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/rest/api/2/issue/SEC-1", r.URL.Path)
			fields = decodeBody(t, r)["fields"].(map[string]any)
			w.WriteHeader(http.StatusNoContent)
		}))

		err := tracker.UpdateIssue(context.Background(), "SEC-1", dtos.TicketFields{Detail: "detail"})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"description": "detail", "customfield_1": ""}, fields)
	})

	t.Run("should clear the severity once no vulnerability is left", func(t *testing.T) {
		var fields map[string]any
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields = decodeBody(t, r)["fields"].(map[string]any)
			w.WriteHeader(http.StatusNoContent)
		}))

		err := tracker.UpdateIssue(context.Background(), "SEC-1", dtos.TicketFields{Detail: "detail", CVEList: []string{}})
		require.NoError(t, err)

		require.Contains(t, fields, "customfield_2")
		assert.Nil(t, fields["customfield_2"])
		assert.Equal(t, "", fields["customfield_1"])
	})

	t.Run("should not call jira without fields", func(t *testing.T) {
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
			w.WriteHeader(http.StatusInternalServerError)
		}))

		assert.NoError(t, tracker.UpdateIssue(context.Background(), "SEC-1", dtos.TicketFields{}))
	})
}

func TestTransitionIssue(t *testing.T) {
	transitions := map[string]any{"transitions": []any{
		map[string]any{"id": "11", "name": "Reopen", "to": map[string]any{"name": "To Do"}},
		map[string]any{"id": "31", "name": "Resolve", "to": map[string]any{"name": "Done"}},
		map[string]any{"id": "41", "name": "Not Applicable", "to": map[string]any{"name": "Closed"}},
	}}

	t.Run("should pick the transition into the target status and record the time", func(t *testing.T) {
		var transitionID string
		var fields map[string]any
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/rest/api/2/issue/SEC-1/transitions":
				writeJSON(w, http.StatusOK, transitions)
			case r.Method == http.MethodPost && r.URL.Path == "/rest/api/2/issue/SEC-1/transitions":
				transitionID = decodeBody(t, r)["transition"].(map[string]any)["id"].(string)
				w.WriteHeader(http.StatusNoContent)
			case r.Method == http.MethodPut && r.URL.Path == "/rest/api/2/issue/SEC-1":
				fields = decodeBody(t, r)["fields"].(map[string]any)
				w.WriteHeader(http.StatusNoContent)
			default:
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))

		at := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
		err := tracker.TransitionIssue(context.Background(), "SEC-1", "done", at, &dtos.TicketFields{
			Detail:  "empty",
			CVEList: []string{},
		})
		require.NoError(t, err)

		assert.Equal(t, "31", transitionID)
		assert.Equal(t, map[string]any{
			"description":   "empty",
			"customfield_1": "",
			"customfield_2": nil,
			"customfield_3": "2026-03-02T08:30:00.000+0000",
		}, fields)
	})

	t.Run("should fall back to the transition name", func(t *testing.T) {
		var transitionID string
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				writeJSON(w, http.StatusOK, transitions)
			case http.MethodPost:
				transitionID = decodeBody(t, r)["transition"].(map[string]any)["id"].(string)
				w.WriteHeader(http.StatusNoContent)
			default:
				w.WriteHeader(http.StatusNoContent)
			}
		}))

		require.NoError(t, tracker.TransitionIssue(context.Background(), "SEC-1", "Not Applicable", time.Now(), nil))
		assert.Equal(t, "41", transitionID)
	})

	t.Run("should fail if the workflow does not allow the status", func(t *testing.T) {
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			writeJSON(w, http.StatusOK, transitions)
		}))

		err := tracker.TransitionIssue(context.Background(), "SEC-1", "Mitigated", time.Now(), nil)
		assert.ErrorIs(t, err, ErrNoTransition)
	})
}

func TestCreateIssueLink(t *testing.T) {
	t.Run("should link both issues with the configured type", func(t *testing.T) {
		var body map[string]any
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/api/2/issueLink", r.URL.Path)
			body = decodeBody(t, r)
			w.WriteHeader(http.StatusCreated)
		}))

		require.NoError(t, tracker.CreateIssueLink(context.Background(), "SEC-9", "SEC-1"))
		assert.Equal(t, map[string]any{
			"type":         map[string]any{"name": "Relates"},
			"inwardIssue":  map[string]any{"key": "SEC-9"},
			"outwardIssue": map[string]any{"key": "SEC-1"},
		}, body)
	})
}

func TestIssueImpact(t *testing.T) {
	t.Run("should return the issues on both ends of every link", func(t *testing.T) {
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"total": 1, "issues": []any{
				map[string]any{
					"key": "MB-1",
					"fields": map[string]any{
						"issuetype": map[string]any{"name": "Bug"},
						"issuelinks": []any{
							map[string]any{"outwardIssue": map[string]any{"key": "CBSE-7", "fields": map[string]any{"issuetype": map[string]any{"name": "Task"}}}},
							map[string]any{"inwardIssue": map[string]any{"key": "MB-2", "fields": map[string]any{"issuetype": map[string]any{"name": "Epic"}}}},
						},
					},
				},
			}})
		}))

		issues, err := tracker.SearchLinkedIssues(context.Background(), "project=MB")
		require.NoError(t, err)
		assert.Equal(t, []dtos.LinkedIssue{{
			Key:       "MB-1",
			IssueType: "Bug",
			Links:     []dtos.IssueRef{{Key: "CBSE-7", IssueType: "Task"}, {Key: "MB-2", IssueType: "Epic"}},
		}}, issues)
	})

	t.Run("should list the projects of a category", func(t *testing.T) {
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/api/2/project", r.URL.Path)
			writeJSON(w, http.StatusOK, []any{
				map[string]any{"key": "JCBC", "projectCategory": map[string]any{"name": "Couchbase Client Libraries"}},
				map[string]any{"key": "MB"},
				map[string]any{"key": "CBL", "projectCategory": map[string]any{"name": "Couchbase Mobile"}},
			})
		}))

		keys, err := tracker.ListProjectsInCategory(context.Background(), "Couchbase Mobile")
		require.NoError(t, err)
		assert.Equal(t, []string{"CBL"}, keys)
	})

	t.Run("should set a select field without notifying watchers", func(t *testing.T) {
		var body map[string]any
		tracker := newTestTracker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "false", r.URL.Query().Get("notifyUsers"))
			body = decodeBody(t, r)
			w.WriteHeader(http.StatusNoContent)
		}))

		require.NoError(t, tracker.SetSelectField(context.Background(), "MB-1", "customfield_12659", "external", false))
		assert.Equal(t, map[string]any{"fields": map[string]any{"customfield_12659": map[string]any{"value": "external"}}}, body)
	})
}

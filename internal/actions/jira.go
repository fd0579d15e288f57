package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"insightstream/internal/config"
	"insightstream/internal/constants"
)

// JiraClient creates issues through the Jira REST v3 API.
type JiraClient struct {
	cfg    config.JiraConfig
	client *http.Client
}

func NewJiraClient(cfg config.JiraConfig) *JiraClient {
	if cfg.IssueType == "" {
		cfg.IssueType = "Bug"
	}
	return &JiraClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
	}
}

type jiraIssueRequest struct {
	Fields jiraIssueFields `json:"fields"`
}

type jiraIssueFields struct {
	Project     jiraProject  `json:"project"`
	Summary     string       `json:"summary"`
	Description jiraDocument `json:"description"`
	IssueType   jiraNamed    `json:"issuetype"`
	Priority    jiraNamed    `json:"priority"`
}

type jiraProject struct {
	Key string `json:"key"`
}

type jiraNamed struct {
	Name string `json:"name"`
}

// jiraDocument is the minimal Atlassian Document Format wrapper for a plain
// text description.
type jiraDocument struct {
	Type    string        `json:"type"`
	Version int           `json:"version"`
	Content []jiraContent `json:"content"`
}

type jiraContent struct {
	Type    string     `json:"type"`
	Content []jiraText `json:"content"`
}

type jiraText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type jiraIssueResponse struct {
	Key  string `json:"key"`
	Self string `json:"self"`
}

func (c *JiraClient) CreateIssue(ctx context.Context, summary, description, priority string) (string, error) {
	payload := jiraIssueRequest{
		Fields: jiraIssueFields{
			Project: jiraProject{Key: c.cfg.ProjectKey},
			Summary: summary,
			Description: jiraDocument{
				Type:    "doc",
				Version: 1,
				Content: []jiraContent{
					{
						Type:    "paragraph",
						Content: []jiraText{{Type: "text", Text: description}},
					},
				},
			},
			IssueType: jiraNamed{Name: c.cfg.IssueType},
			Priority:  jiraNamed{Name: priority},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal jira issue: %w", err)
	}

	url := fmt.Sprintf("%s/rest/api/3/issue", c.cfg.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create jira request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.UserEmail, c.cfg.APIToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return "", fmt.Errorf("jira returned status: %d", resp.StatusCode)
	}

	var issue jiraIssueResponse
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		return "", fmt.Errorf("failed to decode jira response: %w", err)
	}

	return issue.Key, nil
}

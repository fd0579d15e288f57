package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"insightstream/internal/config"
	"insightstream/internal/constants"
)

const basecampUserAgent = "InsightStream (support@zenithflow.com)"

// BasecampClient creates to-dos through the Basecamp API.
type BasecampClient struct {
	cfg    config.BasecampConfig
	client *http.Client
}

func NewBasecampClient(cfg config.BasecampConfig) *BasecampClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://basecamp.com"
	}
	return &BasecampClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
	}
}

type basecampTodoRequest struct {
	Content     string `json:"content"`
	Description string `json:"description"`
}

type basecampTodoResponse struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

func (c *BasecampClient) CreateTodo(ctx context.Context, title, description string) (string, error) {
	body, err := json.Marshal(basecampTodoRequest{
		Content:     title,
		Description: description,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal basecamp todo: %w", err)
	}

	url := fmt.Sprintf("%s/%s/api/v1/projects/%s/todosets/%s/todos.json",
		c.cfg.BaseURL, c.cfg.AccountID, c.cfg.ProjectID, c.cfg.TodoListID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create basecamp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("User-Agent", basecampUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("basecamp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return "", fmt.Errorf("basecamp returned status: %d", resp.StatusCode)
	}

	var todo basecampTodoResponse
	if err := json.NewDecoder(resp.Body).Decode(&todo); err != nil {
		return "", fmt.Errorf("failed to decode basecamp response: %w", err)
	}

	return strconv.FormatInt(todo.ID, 10), nil
}

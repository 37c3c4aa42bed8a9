package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/obdsuperstar/api/internal/model"
)

// API is the HTTP client for the backend's REST surface. Streaming endpoints
// live on ProgressStream and CollabChannel; everything request/response goes
// through here.
type API struct {
	httpClient *http.Client
	baseURL    string
}

// NewAPI creates a client for the given base URL, e.g. "http://localhost:8000".
func NewAPI(baseURL string) *API {
	return &API{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// WebSocketURL converts an API path into the matching ws:// or wss:// URL.
func (a *API) WebSocketURL(path string) string {
	url := a.baseURL + path
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}

// StartRun submits a generation request and returns the run handle.
func (a *API) StartRun(ctx context.Context, req *model.GenerateRequest) (*model.GenerateStartResponse, error) {
	var result model.GenerateStartResponse
	if err := a.post(ctx, "/api/generate/start", req, &result); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return &result, nil
}

// RunStatus fetches a run's status together with its buffered progress frames.
func (a *API) RunStatus(ctx context.Context, jobID string) (*model.RunStatusResponse, error) {
	var result model.RunStatusResponse
	if err := a.get(ctx, "/api/generate/"+jobID+"/status", &result); err != nil {
		return nil, fmt.Errorf("failed to fetch run status: %w", err)
	}
	return &result, nil
}

// StartAudio queues an audio render job.
func (a *API) StartAudio(ctx context.Context, req *model.AudioStartRequest) (*model.AudioStartResponse, error) {
	var result model.AudioStartResponse
	if err := a.post(ctx, "/api/audio/start", req, &result); err != nil {
		return nil, fmt.Errorf("failed to start audio job: %w", err)
	}
	return &result, nil
}

// AudioStatus polls one audio job.
func (a *API) AudioStatus(ctx context.Context, jobID string) (*model.AudioStatusResponse, error) {
	var result model.AudioStatusResponse
	if err := a.get(ctx, "/api/audio/status/"+jobID, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch audio status: %w", err)
	}
	return &result, nil
}

// SaveCampaign persists a finished run under a name.
func (a *API) SaveCampaign(ctx context.Context, req *model.CampaignCreateRequest) (*model.Campaign, error) {
	var result model.Campaign
	if err := a.post(ctx, "/api/campaigns/", req, &result); err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}
	return &result, nil
}

// ListCampaigns returns saved campaigns, newest first, without results.
func (a *API) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	var result struct {
		Campaigns []model.Campaign `json:"campaigns"`
	}
	if err := a.get(ctx, "/api/campaigns/", &result); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return result.Campaigns, nil
}

// GetCampaign returns one campaign including its full result.
func (a *API) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	var result model.Campaign
	if err := a.get(ctx, "/api/campaigns/"+id, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch campaign: %w", err)
	}
	return &result, nil
}

// DeleteCampaign removes a campaign and its comments.
func (a *API) DeleteCampaign(ctx context.Context, id string) error {
	if err := a.do(ctx, http.MethodDelete, "/api/campaigns/"+id, nil, nil); err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return nil
}

// ListComments returns a campaign's comments in creation order.
func (a *API) ListComments(ctx context.Context, campaignID string) ([]model.Comment, error) {
	var result struct {
		Comments []model.Comment `json:"comments"`
	}
	if err := a.get(ctx, "/api/campaigns/"+campaignID+"/comments", &result); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return result.Comments, nil
}

// AddComment posts a comment. The stored comment also arrives over the
// collaboration channel; the return value is only the request acknowledgement.
func (a *API) AddComment(ctx context.Context, campaignID, username, text string) (*model.Comment, error) {
	req := model.CommentCreateRequest{Text: text, Username: username}
	var result model.Comment
	if err := a.post(ctx, "/api/campaigns/"+campaignID+"/comments", &req, &result); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return &result, nil
}

// DeleteComment removes a comment.
func (a *API) DeleteComment(ctx context.Context, campaignID, commentID string) error {
	if err := a.do(ctx, http.MethodDelete, "/api/campaigns/"+campaignID+"/comments/"+commentID, nil, nil); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// RecentActivity fetches the newest entries of the cross-campaign feed.
func (a *API) RecentActivity(ctx context.Context, limit int) ([]model.ActivityEvent, error) {
	var result struct {
		Events []model.ActivityEvent `json:"events"`
	}
	if err := a.get(ctx, fmt.Sprintf("/api/activity?limit=%d", limit), &result); err != nil {
		return nil, fmt.Errorf("failed to fetch activity: %w", err)
	}
	return result.Events, nil
}

// OnlineUsers returns everyone currently connected to a collaboration channel.
func (a *API) OnlineUsers(ctx context.Context) ([]model.PresenceUser, error) {
	var result struct {
		Users []model.PresenceUser `json:"users"`
	}
	if err := a.get(ctx, "/api/presence", &result); err != nil {
		return nil, fmt.Errorf("failed to fetch presence: %w", err)
	}
	return result.Users, nil
}

func (a *API) post(ctx context.Context, path string, body, result interface{}) error {
	return a.do(ctx, http.MethodPost, path, body, result)
}

func (a *API) get(ctx context.Context, path string, result interface{}) error {
	return a.do(ctx, http.MethodGet, path, nil, result)
}

func (a *API) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// APIError is a structured error returned by the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.StatusCode)
}

func decodeError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code == "" {
		return &APIError{StatusCode: resp.StatusCode, Code: "HTTP_ERROR", Message: resp.Status}
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       envelope.Error.Code,
		Message:    envelope.Error.Message,
	}
}

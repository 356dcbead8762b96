package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/handler"
)

// APIError is a non-2xx response from the duel API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return "API error: " + e.Message
	}
	return fmt.Sprintf("API returned status %d", e.Status)
}

// APIClient handles communication with the duel API
type APIClient struct {
	BaseURL string
	Client  *http.Client
	APIKey  string

	maxRetries int
	backoff    time.Duration
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL, apiKey string) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Client:     &http.Client{Timeout: apiRequestTimeout},
		APIKey:     apiKey,
		maxRetries: apiMaxRetries,
		backoff:    apiInitialBackoff,
	}
}

// doRequest sends one request. Retryable requests are resent on transport errors and 5xx responses.
func (c *APIClient) doRequest(ctx context.Context, method, path string, body interface{}, retryable bool) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	attempts := 1
	if retryable {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			// exponential backoff with up to 50% jitter
			delay := c.backoff << (attempt - 1)
			delay += time.Duration(rand.Int64N(int64(delay/2) + 1))
			slog.Debug(LogMsgAPIRetry, "method", method, "path", path, "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		if c.APIKey != "" {
			req.Header.Set("X-API-Key", c.APIKey)
		}

		resp, err := c.Client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError && attempt < attempts-1 {
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

// call performs a request and decodes a successful JSON body into out
func (c *APIClient) call(ctx context.Context, method, path string, body, out interface{}, retryable bool) error {
	resp, err := c.doRequest(ctx, method, path, body, retryable)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr handler.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, apiErrorBodyLimit)).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *APIClient) get(ctx context.Context, path string, out interface{}) error {
	return c.call(ctx, http.MethodGet, path, nil, out, true)
}

func playerPath(userID, leaf string) string {
	return "/api/v1/duels/players/" + url.PathEscape(userID) + "/" + leaf
}

// CreateChallenge issues a challenge from challengerID to opponentID
func (c *APIClient) CreateChallenge(ctx context.Context, challengerID, opponentID string) (*handler.ChallengeResponse, error) {
	var out handler.ChallengeResponse
	req := handler.CreateChallengeRequest{ChallengerID: challengerID, OpponentID: opponentID}
	if err := c.call(ctx, http.MethodPost, "/api/v1/duels/challenges", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetChallenge fetches a challenge by id
func (c *APIClient) GetChallenge(ctx context.Context, id uuid.UUID) (*domain.Challenge, error) {
	var out handler.ChallengeResponse
	if err := c.get(ctx, "/api/v1/duels/challenges/"+id.String(), &out); err != nil {
		return nil, err
	}
	return out.Challenge, nil
}

// RespondChallenge accepts or declines a challenge as its opponent
func (c *APIClient) RespondChallenge(ctx context.Context, id uuid.UUID, userID string, accept bool) (*handler.ChallengeResponse, error) {
	var out handler.ChallengeResponse
	req := handler.RespondChallengeRequest{UserID: userID, Accept: &accept}
	if err := c.call(ctx, http.MethodPost, "/api/v1/duels/challenges/"+id.String()+"/respond", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelChallenge withdraws a pending challenge as its challenger
func (c *APIClient) CancelChallenge(ctx context.Context, id uuid.UUID, userID string) (*handler.ChallengeResponse, error) {
	var out handler.ChallengeResponse
	req := handler.ParticipantRequest{UserID: userID}
	if err := c.call(ctx, http.MethodPost, "/api/v1/duels/challenges/"+id.String()+"/cancel", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetActive returns the user's current engagement, or nil when idle
func (c *APIClient) GetActive(ctx context.Context, userID string) (*domain.Engagement, error) {
	var out handler.ActiveResponse
	if err := c.get(ctx, playerPath(userID, "active"), &out); err != nil {
		return nil, err
	}
	if !out.Engaged {
		return nil, nil
	}
	return out.Engagement, nil
}

// GetMatch fetches the snapshot of a live or recently finished match
func (c *APIClient) GetMatch(ctx context.Context, id uuid.UUID) (*domain.MatchSnapshot, error) {
	var out domain.MatchSnapshot
	if err := c.get(ctx, "/api/v1/duels/matches/"+id.String(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAction plays the user's turn. A fresh action id makes retries safe.
func (c *APIClient) SubmitAction(ctx context.Context, matchID uuid.UUID, userID string, kind domain.ActionKind, skillID string) (*domain.TurnOutcome, error) {
	var out handler.ActionResponse
	req := handler.SubmitActionRequest{
		UserID:   userID,
		ActionID: uuid.NewString(),
		Kind:     string(kind),
		SkillID:  skillID,
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/duels/matches/"+matchID.String()+"/actions", req, &out, true); err != nil {
		return nil, err
	}
	return out.Outcome, nil
}

// Forfeit concedes the match for userID
func (c *APIClient) Forfeit(ctx context.Context, matchID uuid.UUID, userID string) (*domain.MatchResult, error) {
	var out handler.ForfeitResponse
	req := handler.ParticipantRequest{UserID: userID}
	if err := c.call(ctx, http.MethodPost, "/api/v1/duels/matches/"+matchID.String()+"/forfeit", req, &out, false); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// GetBuild fetches the user's saved hero build
func (c *APIClient) GetBuild(ctx context.Context, userID string) (*domain.HeroBuild, error) {
	var out handler.BuildResponse
	if err := c.get(ctx, playerPath(userID, "build"), &out); err != nil {
		return nil, err
	}
	return out.Build, nil
}

// SaveBuild replaces the user's hero build and returns it with resolved stats
func (c *APIClient) SaveBuild(ctx context.Context, userID string, req handler.SaveBuildRequest) (*handler.BuildResponse, error) {
	var out handler.BuildResponse
	if err := c.call(ctx, http.MethodPut, playerPath(userID, "build"), req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRating fetches the user's ladder record
func (c *APIClient) GetRating(ctx context.Context, userID string) (*domain.RatingRecord, error) {
	var out domain.RatingRecord
	if err := c.get(ctx, playerPath(userID, "rating"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAchievements fetches the user's achievement progress
func (c *APIClient) GetAchievements(ctx context.Context, userID string) (*domain.AchievementRecord, error) {
	var out domain.AchievementRecord
	if err := c.get(ctx, playerPath(userID, "achievements"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLeaderboard fetches the top of the ladder in one category
func (c *APIClient) GetLeaderboard(ctx context.Context, category domain.LeaderboardCategory, limit int) ([]domain.LeaderboardEntry, error) {
	var out struct {
		Data []domain.LeaderboardEntry `json:"data"`
	}
	q := url.Values{}
	q.Set(handler.QueryParamLimit, strconv.Itoa(limit))
	if category != "" {
		q.Set(handler.QueryParamCategory, string(category))
	}
	if err := c.get(ctx, "/api/v1/duels/leaderboard?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetLeaderboardRank fetches the user's position in one category
func (c *APIClient) GetLeaderboardRank(ctx context.Context, userID string, category domain.LeaderboardCategory) (*domain.LeaderboardRank, error) {
	var out domain.LeaderboardRank
	path := playerPath(userID, "rank")
	if category != "" {
		path += "?" + handler.QueryParamCategory + "=" + url.QueryEscape(string(category))
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health pings the API liveness endpoint
func (c *APIClient) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/healthz", nil, nil, false)
}

// IsStatus reports whether err is an API error with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client is a thin Telegram Bot API client covering the two things the
// lottery core needs from the platform: group membership checks and
// message delivery.
type Client struct {
	httpClient *http.Client
	token      string
	logger     zerolog.Logger
}

// RPSError indicates the Bot API rate limit was hit.
type RPSError struct {
	RetryAfter int
}

func (e *RPSError) Error() string {
	return fmt.Sprintf("telegram rate limit exceeded, retry after %ds", e.RetryAfter)
}

// ChatMember carries the membership status of a user in a chat.
type ChatMember struct {
	Status string `json:"status"`
}

// Response is the envelope every Bot API call returns.
type Response struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token:  token,
		logger: log.With().Str("component", "telegram").Logger(),
	}
}

// CheckMembership reports whether the user currently belongs to the chat.
// Left, kicked and restricted users do not count as members.
func (c *Client) CheckMembership(ctx context.Context, userID, chatID int64) (bool, error) {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/getChatMember", c.token)
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"user_id": {strconv.FormatInt(userID, 10)},
	}

	var response Response
	if err := c.makeRequest(ctx, "GET", endpoint, params, &response); err != nil {
		return false, err
	}
	if !response.Ok {
		if response.ErrorCode == http.StatusTooManyRequests {
			retryAfter := 0
			if response.Parameters != nil {
				retryAfter = response.Parameters.RetryAfter
			}
			return false, &RPSError{RetryAfter: retryAfter}
		}
		return false, fmt.Errorf("telegram API error: %s", response.Description)
	}

	var member ChatMember
	if err := json.Unmarshal(response.Result, &member); err != nil {
		return false, fmt.Errorf("failed to parse chat member: %w", err)
	}

	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	default:
		return false, nil
	}
}

// SendMessage delivers one text message to a chat or user.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}

	var response Response
	if err := c.makeRequest(ctx, "POST", endpoint, params, &response); err != nil {
		c.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
		return err
	}
	if !response.Ok {
		if response.ErrorCode == http.StatusTooManyRequests {
			retryAfter := 0
			if response.Parameters != nil {
				retryAfter = response.Parameters.RetryAfter
			}
			return &RPSError{RetryAfter: retryAfter}
		}
		return fmt.Errorf("telegram API error: %s", response.Description)
	}

	c.logger.Debug().Int64("chat_id", chatID).Msg("message sent")
	return nil
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, data url.Values, result interface{}) error {
	var req *http.Request
	var err error

	if method == "POST" {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(data.Encode()))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		if len(data) > 0 {
			endpoint = fmt.Sprintf("%s?%s", endpoint, data.Encode())
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

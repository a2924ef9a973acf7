package obp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// loginRequest is the credential exchange payload.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse carries the bearer token on success, or a message on failure.
type loginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Login exchanges a username and password for a bearer token. The upstream
// also sets an http-only session cookie as a side effect, which the proxy
// fetcher's cookie jar captures. Login never triggers the recovery sequence;
// a failed exchange surfaces directly.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	resp, err := c.send(ctx, http.MethodPost, c.endpoints.Login, loginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return "", fmt.Errorf("obp: login: %w", err)
	}

	defer resp.Body.Close()

	var lr loginResponse

	dec := json.NewDecoder(resp.Body)
	decErr := dec.Decode(&lr)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := lr.Message
		if msg == "" {
			msg = "login failed"
		}

		return "", &APIError{
			StatusCode: resp.StatusCode,
			Body:       msg,
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	if decErr != nil {
		return "", fmt.Errorf("obp: login: decoding response: %w", decErr)
	}

	if lr.Token == "" {
		return "", fmt.Errorf("obp: login: response missing token")
	}

	return lr.Token, nil
}

// Logout invokes the remote logout endpoint, which clears the server-side
// session cookie. Callers treat failures as best-effort: local cleanup must
// proceed regardless.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodPost, c.endpoints.Logout, nil)
	if err != nil {
		return fmt.Errorf("obp: logout: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       "logout failed",
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	return nil
}

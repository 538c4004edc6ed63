package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const maxLoginSteps = 12

// Login authenticates the client. A cookie string wins over the password flow.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	if s := strings.TrimSpace(creds.CookieString); s != "" {
		cookies := ParseCookieString(s)
		if cookies["auth_token"] == "" || cookies["ct0"] == "" {
			return fmt.Errorf("cookie string must contain auth_token and ct0")
		}
		c.RestoreSession(Session{Cookies: cookies, Username: creds.Username})
		return nil
	}

	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	if err := c.activateGuest(ctx); err != nil {
		return fmt.Errorf("activate guest token: %w", err)
	}

	flow, err := c.onboarding(ctx, map[string]any{
		"flow_name": "login",
		"input_flow_data": map[string]any{
			"flow_context": map[string]any{
				"debug_overrides": map[string]any{},
				"start_location":  map[string]any{"location": "splash_screen"},
			},
		},
	}, true)
	if err != nil {
		return err
	}

	for step := 0; step < maxLoginSteps; step++ {
		if len(flow.Subtasks) == 0 {
			break
		}
		subtask := flow.Subtasks[0].SubtaskID
		input, done, err := loginSubtaskInput(subtask, creds)
		if err != nil {
			return err
		}
		if done {
			break
		}
		flow, err = c.onboarding(ctx, map[string]any{
			"flow_token":     flow.FlowToken,
			"subtask_inputs": []any{input},
		}, false)
		if err != nil {
			return fmt.Errorf("login subtask %s: %w", subtask, err)
		}
	}

	if !c.IsLoggedIn() {
		return fmt.Errorf("login flow finished without a session: %w", ErrUnauthorized)
	}
	c.mu.Lock()
	c.guestToken = ""
	c.username = strings.TrimPrefix(strings.TrimSpace(creds.Username), "@")
	c.mu.Unlock()
	return nil
}

type flowResponse struct {
	FlowToken string         `json:"flow_token"`
	Status    string         `json:"status"`
	Errors    []graphQLError `json:"errors"`
	Subtasks  []struct {
		SubtaskID string `json:"subtask_id"`
	} `json:"subtasks"`
}

func (c *Client) onboarding(ctx context.Context, payload map[string]any, start bool) (flowResponse, error) {
	u := strings.TrimRight(c.endpoints.API, "/") + "/1.1/onboarding/task.json"
	if start {
		u += "?flow_name=login"
	}
	body, err := c.postJSON(ctx, u, payload)
	if err != nil {
		return flowResponse{}, err
	}
	var resp flowResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return flowResponse{}, fmt.Errorf("decode onboarding response: %w", err)
	}
	if err := graphQLErrors(resp.Errors); err != nil {
		return flowResponse{}, err
	}
	if resp.Status != "" && resp.Status != "success" {
		return flowResponse{}, fmt.Errorf("onboarding status %q", resp.Status)
	}
	return resp, nil
}

// loginSubtaskInput answers one onboarding subtask. done=true ends the flow.
func loginSubtaskInput(subtask string, creds Credentials) (input map[string]any, done bool, err error) {
	in := func(key string, value map[string]any) map[string]any {
		return map[string]any{"subtask_id": subtask, key: value}
	}
	switch subtask {
	case "LoginJsInstrumentationSubtask":
		return in("js_instrumentation", map[string]any{"response": "{}", "link": "next_link"}), false, nil
	case "LoginEnterUserIdentifierSSO":
		return in("settings_list", map[string]any{
			"setting_responses": []any{map[string]any{
				"key":           "user_identifier",
				"response_data": map[string]any{"text_data": map[string]any{"result": creds.Username}},
			}},
			"link": "next_link",
		}), false, nil
	case "LoginEnterPassword":
		return in("enter_password", map[string]any{"password": creds.Password, "link": "next_link"}), false, nil
	case "AccountDuplicationCheck":
		return in("check_logged_in_account", map[string]any{"link": "AccountDuplicationCheck_false"}), false, nil
	case "LoginTwoFactorAuthChallenge":
		if strings.TrimSpace(creds.TwoFactorCode) == "" {
			return nil, false, errors.New("two-factor code required")
		}
		return in("enter_text", map[string]any{"text": strings.TrimSpace(creds.TwoFactorCode), "link": "next_link"}), false, nil
	case "LoginAcid", "LoginEnterAlternateIdentifierSubtask":
		if strings.TrimSpace(creds.Email) == "" {
			return nil, false, fmt.Errorf("%s requires an email", subtask)
		}
		return in("enter_text", map[string]any{"text": strings.TrimSpace(creds.Email), "link": "next_link"}), false, nil
	case "LoginSuccessSubtask":
		return nil, true, nil
	case "DenyLoginSubtask":
		return nil, false, fmt.Errorf("login denied: %w", ErrUnauthorized)
	default:
		return nil, false, fmt.Errorf("unsupported login subtask %q", subtask)
	}
}

func (c *Client) activateGuest(ctx context.Context) error {
	body, err := c.do(ctx, http.MethodPost, strings.TrimRight(c.endpoints.API, "/")+"/1.1/guest/activate.json", nil, nil)
	if err != nil {
		return err
	}
	var resp struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode guest token: %w", err)
	}
	if resp.GuestToken == "" {
		return fmt.Errorf("empty guest token")
	}
	c.mu.Lock()
	c.guestToken = resp.GuestToken
	c.mu.Unlock()
	return nil
}

// Me verifies the session and returns the logged-in account.
func (c *Client) Me(ctx context.Context) (User, error) {
	if !c.IsLoggedIn() {
		return User{}, ErrUnauthorized
	}
	body, err := c.do(ctx, http.MethodGet, strings.TrimRight(c.endpoints.API, "/")+"/1.1/account/verify_credentials.json", nil, nil)
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return User{}, fmt.Errorf("decode verify_credentials: %w", err)
	}
	if u.Username != "" {
		c.mu.Lock()
		c.username = u.Username
		c.mu.Unlock()
	}
	return u, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if !c.IsLoggedIn() {
		return nil
	}
	_, err := c.do(ctx, http.MethodPost, strings.TrimRight(c.endpoints.API, "/")+"/1.1/account/logout.json", nil, nil)
	c.mu.Lock()
	c.cookies = map[string]string{}
	c.guestToken = ""
	c.mu.Unlock()
	return err
}

func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	cookies := make(map[string]string, len(c.cookies))
	for k, v := range c.cookies {
		cookies[k] = v
	}
	return Session{Cookies: cookies, Username: c.username}
}

func (c *Client) RestoreSession(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = make(map[string]string, len(s.Cookies))
	for k, v := range s.Cookies {
		c.cookies[k] = v
	}
	c.username = strings.TrimPrefix(strings.TrimSpace(s.Username), "@")
}

// Username is the handle of the logged-in account, when known.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// ParseCookieString parses "a=1; b=2" into a map. Quotes around values are dropped.
func ParseCookieString(s string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.Trim(strings.TrimSpace(v), `"`)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

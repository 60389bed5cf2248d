package formapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/form"
	"github.com/trezcool/formportal/core/portal"
	"github.com/trezcool/formportal/core/session"
)

const maxErrorBody = 64 << 10

type (
	// Client calls the form API over HTTP.
	Client struct {
		baseURL string
		http    *http.Client
		logger  core.Logger
	}

	errorResponse struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
)

var _ portal.Client = (*Client)(nil)

func NewClient(conf core.APIConfig, logger core.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		http:    &http.Client{Timeout: conf.Timeout},
		logger:  logger,
	}
}

// CreateUser registers the student. A conflict comes back as a *portal.APIError whose message says "already exists".
func (c *Client) CreateUser(ctx context.Context, usr session.User) error {
	body, err := json.Marshal(usr)
	if err != nil {
		return errors.Wrap(err, "encoding user")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-user", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building create-user request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp, portal.DefaultCreateUserMessage)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) GetForm(ctx context.Context, rollNumber string) (form.Schema, error) {
	q := make(url.Values)
	q.Set("rollNumber", rollNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get-form?"+q.Encode(), nil)
	if err != nil {
		return form.Schema{}, errors.Wrap(err, "building get-form request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return form.Schema{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return form.Schema{}, apiError(resp, portal.DefaultGetFormMessage)
	}

	var data form.Response
	if err = json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return form.Schema{}, errors.Wrap(err, "decoding form")
	}
	return data.Form, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("form api request failed", errors.Wrapf(err, "%s %s", req.Method, req.URL.Path))
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	return resp, nil
}

// apiError reads the server's `{message, code}` body, falling back to defaults.
func apiError(resp *http.Response, defaultMsg string) *portal.APIError {
	apiErr := &portal.APIError{Status: resp.StatusCode, Message: defaultMsg, Code: portal.DefaultErrorCode}

	var body errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body); err == nil {
		if body.Message != "" {
			apiErr.Message = body.Message
		}
		if body.Code != "" {
			apiErr.Code = body.Code
		}
	}
	return apiErr
}

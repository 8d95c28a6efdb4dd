package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const requestTimeout = 30 * time.Second

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

type daemonError struct {
	status int
	errorResponse
}

func (e *daemonError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("ordexd replied %d: %s", e.status, e.errorResponse.Error)
	}
	return fmt.Sprintf(
		"ordexd replied %d (%s): %s", e.status, e.Reason, e.errorResponse.Error,
	)
}

type client struct {
	*resty.Client
}

func getClient() (*client, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	url, ok := state["url"]
	if !ok || url == "" {
		return nil, errors.New("set url with `config set url`")
	}
	return newClient(url), nil
}

func newClient(url string) *client {
	return &client{
		resty.New().
			SetBaseURL(url).
			SetTimeout(requestTimeout).
			SetHeader("Content-Type", "application/json"),
	}
}

func (c *client) get(path string, query map[string]string, out interface{}) error {
	resp, err := c.R().
		SetQueryParams(query).
		SetResult(out).
		SetError(&errorResponse{}).
		Get(path)
	return checkResponse(resp, err)
}

func (c *client) post(path string, body, out interface{}) error {
	req := c.R().SetBody(body).SetError(&errorResponse{})
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Post(path)
	return checkResponse(resp, err)
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("unable to reach ordexd: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	derr := &daemonError{status: resp.StatusCode()}
	if e, ok := resp.Error().(*errorResponse); ok && e.Error != "" {
		derr.errorResponse = *e
	} else {
		derr.errorResponse.Error = resp.Status()
	}
	return derr
}

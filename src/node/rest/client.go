// Package rest is a client for the HTTP API exposed by the node under test.
package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// StatusError is returned when the node answers with a non-2xx status code.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client calls the REST API of one node.
type Client struct {
	base   string
	http   *http.Client
	logger *logrus.Entry
}

// NewClient creates a Client for the node listening on addr. addr may be a
// host:port or a full URL.
func NewClient(addr string, timeout time.Duration, logger *logrus.Entry) *Client {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		base:   strings.TrimSuffix(base, "/"),
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// BaseURL returns the URL prefix of every request.
func (c *Client) BaseURL() string {
	return c.base
}

func (c *Client) do(method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("rest call")

	return data, resp.StatusCode, nil
}

func (c *Client) get(path string, out interface{}) error {
	data, code, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if code/100 != 2 {
		return &StatusError{Method: http.MethodGet, Path: path, Code: code, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *Client) post(path string, in interface{}) ([]byte, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	data, code, err := c.do(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if code/100 != 2 {
		return nil, &StatusError{Method: http.MethodPost, Path: path, Code: code, Body: string(data)}
	}
	return data, nil
}

// Status returns the state of the node. Both {"state":"Running"} and a bare
// "Running" string are accepted.
func (c *Client) Status() (NodeState, error) {
	data, code, err := c.do(http.MethodGet, "/status", nil)
	if err != nil {
		return "", err
	}
	if code/100 != 2 {
		return "", &StatusError{Method: http.MethodGet, Path: "/status", Code: code, Body: string(data)}
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var s statusResponse
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s.State, nil
	}

	var s NodeState
	if err := json.Unmarshal(data, &s); err != nil {
		s = NodeState(string(data))
	}
	return s, nil
}

// Tip returns the hash of the current tip.
func (c *Client) Tip() (string, error) {
	data, code, err := c.do(http.MethodGet, "/tip", nil)
	if err != nil {
		return "", err
	}
	if code/100 != 2 {
		return "", &StatusError{Method: http.MethodGet, Path: "/tip", Code: code, Body: string(data)}
	}
	return strings.TrimSpace(string(data)), nil
}

// Stats returns the node statistics.
func (c *Client) Stats() (*Stats, error) {
	var s Stats
	if err := c.get("/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FragmentLogs returns the fragment logs of the node, keyed by fragment id.
func (c *Client) FragmentLogs() (map[string]FragmentLog, error) {
	var logs []FragmentLog
	if err := c.get("/fragment/logs", &logs); err != nil {
		return nil, err
	}
	res := make(map[string]FragmentLog, len(logs))
	for _, l := range logs {
		res[l.FragmentID] = l
	}
	return res, nil
}

// PostFragment submits one fragment and returns the id assigned by the node.
func (c *Client) PostFragment(fragment json.RawMessage) (string, error) {
	data, err := c.post("/fragment", fragment)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(string(data)), `"`), nil
}

// PostBatch submits several fragments at once.
func (c *Client) PostBatch(failFast bool, fragments []json.RawMessage) (*BatchSummary, error) {
	data, err := c.post("/fragment/batch", BatchRequest{
		FailFast:  failFast,
		Fragments: fragments,
	})
	if err != nil {
		return nil, err
	}
	var summary BatchSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Account returns the balance and counter of an account.
func (c *Client) Account(address string) (*Account, error) {
	var a Account
	if err := c.get("/account/"+address, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Shutdown asks the node to stop. An empty message means the node accepted
// the request. Otherwise the message explains why the node could not shut
// down.
func (c *Client) Shutdown() (string, error) {
	data, code, err := c.do(http.MethodGet, "/shutdown", nil)
	if err != nil {
		return "", err
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" && code/100 != 2 {
		msg = fmt.Sprintf("shutdown returned status %d", code)
	}
	return msg, nil
}

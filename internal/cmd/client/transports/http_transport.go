package transports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rzbill/synthlog/internal/synth"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}

// HTTPTransport implements SessionsTransport against the synthlog HTTP API.
type HTTPTransport struct {
	base   string
	client *http.Client
}

// NewHTTPTransport returns a transport for the API rooted at baseURL.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPTransport{base: baseURL, client: client}
}

func (t *HTTPTransport) sessionPath(session string, rest ...string) string {
	p := "/v1/sessions/" + url.PathEscape(session)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := t.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return nil, &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	return resp, nil
}

func (t *HTTPTransport) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := t.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (t *HTTPTransport) List(ctx context.Context) ([]string, error) {
	var out struct {
		Sessions []string `json:"sessions"`
	}
	err := t.doJSON(ctx, http.MethodGet, "/v1/sessions", nil, nil, &out)
	return out.Sessions, err
}

func (t *HTTPTransport) NewSession(ctx context.Context) (string, error) {
	var out struct {
		Session string `json:"session"`
	}
	err := t.doJSON(ctx, http.MethodPost, "/v1/sessions", nil, nil, &out)
	return out.Session, err
}

func (t *HTTPTransport) Count(ctx context.Context, session string) (int, error) {
	var out struct {
		Total int `json:"total"`
	}
	err := t.doJSON(ctx, http.MethodGet, t.sessionPath(session, "count"), nil, nil, &out)
	return out.Total, err
}

func (t *HTTPTransport) Page(ctx context.Context, session string, page, pageSize int) (Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	var out Page
	err := t.doJSON(ctx, http.MethodGet, t.sessionPath(session, "items"), q, nil, &out)
	return out, err
}

func (t *HTTPTransport) Append(ctx context.Context, session string, rec synth.Record) (synth.Record, error) {
	var out synth.Record
	err := t.doJSON(ctx, http.MethodPost, t.sessionPath(session, "items"), nil, rec, &out)
	return out, err
}

func (t *HTTPTransport) Update(ctx context.Context, session, id string, rec synth.Record) error {
	return t.doJSON(ctx, http.MethodPut, t.sessionPath(session, "items", url.PathEscape(id)), nil, rec, nil)
}

func (t *HTTPTransport) Clear(ctx context.Context, session string) error {
	return t.doJSON(ctx, http.MethodDelete, t.sessionPath(session), nil, nil, nil)
}

func (t *HTTPTransport) Search(ctx context.Context, session, filter string, limit int) ([]Hit, error) {
	q := url.Values{}
	q.Set("filter", filter)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Hits []Hit `json:"hits"`
	}
	err := t.doJSON(ctx, http.MethodGet, t.sessionPath(session, "search"), q, nil, &out)
	return out.Hits, err
}

func (t *HTTPTransport) Export(ctx context.Context, session string, w io.Writer) error {
	resp, err := t.do(ctx, http.MethodGet, t.sessionPath(session, "export"), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

func (t *HTTPTransport) Repair(ctx context.Context, session string) (RepairResult, error) {
	var out RepairResult
	err := t.doJSON(ctx, http.MethodPost, t.sessionPath(session, "repair"), nil, nil, &out)
	return out, err
}

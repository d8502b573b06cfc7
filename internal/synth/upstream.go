package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUpstreamURL is the hosted voice the lesson was recorded with.
const DefaultUpstreamURL = "https://omtransactionflow.com/benji/speak/"

// Upstream posts text to the speech provider. APIKey, when set, goes in the Api-Key header.
type Upstream struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

func NewUpstream(url, apiKey string) *Upstream {
	if url == "" {
		url = DefaultUpstreamURL
	}
	return &Upstream{URL: url, APIKey: apiKey, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch returns the provider's audio and content type. Transport failures and non-2xx
// statuses wrap ErrUnavailable.
func (u *Upstream) Fetch(ctx context.Context, text string) ([]byte, string, error) {
	body, err := json.Marshal(Request{Text: text})
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if u.APIKey != "" {
		req.Header.Set("Api-Key", u.APIKey)
	}
	return doAudio(u.client(), req)
}

func (u *Upstream) client() *http.Client {
	if u.HTTP != nil {
		return u.HTTP
	}
	return http.DefaultClient
}

func doAudio(c *http.Client, req *http.Request) ([]byte, string, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, "", &StatusError{Code: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = DefaultContentType
	}
	return data, ct, nil
}

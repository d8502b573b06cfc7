package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DaanHessen/basis-tower/internal/narration"
)

// Client calls a synthesis proxy and satisfies narration.Synthesizer.
type Client struct {
	URL  string
	HTTP *http.Client
}

func NewClient(url string) *Client {
	return &Client{URL: url, HTTP: &http.Client{Timeout: 15 * time.Second}}
}

func (c *Client) Synthesize(ctx context.Context, text string) (narration.Audio, error) {
	if err := Validate(text); err != nil {
		return narration.Audio{}, err
	}
	body, err := json.Marshal(Request{Text: text})
	if err != nil {
		return narration.Audio{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return narration.Audio{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	data, ct, err := doAudio(hc, req)
	if err != nil {
		return narration.Audio{}, err
	}
	return narration.Audio{Data: data, ContentType: ct}, nil
}

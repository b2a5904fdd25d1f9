package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Client talks to the external text-generation oracle used to adjudicate
// name collisions and moderate chosen names. A Client with no Endpoint/APIKey
// configured is "disabled": every call falls back to the safe default for
// that operation without making a request, per spec §4.4.
type Client struct {
	endpoint           string
	moderationEndpoint string
	apiKey             string
	timeout            time.Duration
	httpClient         *http.Client
}

// NewClient builds an oracle client from endpoint/key/timeout settings. An
// empty endpoint or apiKey means the oracle is disabled.
func NewClient(endpoint, moderationEndpoint, apiKey string, timeoutSeconds int) *Client {
	return &Client{
		endpoint:           endpoint,
		moderationEndpoint: moderationEndpoint,
		apiKey:             apiKey,
		timeout:            time.Duration(timeoutSeconds) * time.Second,
		httpClient:         &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

// Enabled reports whether the oracle has credentials configured at all.
func (c *Client) Enabled() bool {
	return c.endpoint != "" && c.apiKey != ""
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Adjudicate asks the oracle which of two names "wins" a collision. It
// always returns a name equal to a or b — never an empty string and never a
// third value — falling back to a uniform random pick of a or b whenever the
// oracle is disabled, errors, times out, or returns something that doesn't
// exactly match either candidate after trimming and paired-quote stripping.
func (c *Client) Adjudicate(ctx context.Context, a, b string) (winner, loser string) {
	if !c.Enabled() {
		return randomPick(a, b)
	}

	prompt := fmt.Sprintf(
		"Two creatures named %q and %q collide in battle. Exactly one wins. "+
			"Reply with only the winning creature's name, nothing else.", a, b)

	raw, err := c.generate(ctx, c.endpoint, prompt)
	if err != nil {
		log.Printf("⚠️ oracle adjudication call failed for (%s, %s): %v", a, b, err)
		return randomPick(a, b)
	}

	candidate := stripPairedQuotes(strings.TrimSpace(raw))
	switch candidate {
	case a:
		return a, b
	case b:
		return b, a
	default:
		log.Printf("⚠️ oracle returned non-matching answer %q for (%s, %s), falling back to random", candidate, a, b)
		return randomPick(a, b)
	}
}

// CheckAppropriate asks the oracle whether a player-chosen name is
// appropriate. Per spec §4.4, a disabled oracle bypasses moderation
// entirely (true); any other failure mode is conservative (false).
func (c *Client) CheckAppropriate(ctx context.Context, name string) bool {
	if !c.Enabled() {
		return true
	}

	prompt := fmt.Sprintf(
		"Is the name %q appropriate for a family-friendly multiplayer game? "+
			"Reply with only APPROPRIATE or INAPPROPRIATE, nothing else.", name)

	raw, err := c.generate(ctx, c.moderationEndpoint, prompt)
	if err != nil {
		log.Printf("⚠️ oracle moderation call failed for %q: %v", name, err)
		return false
	}

	verdict := stripPairedQuotes(strings.TrimSpace(raw))
	if verdict != "APPROPRIATE" {
		return false
	}
	return true
}

// generate performs the oracle HTTP call, mirroring the bearer-token JSON
// request/response shape used against the Kick API.
func (c *Client) generate(ctx context.Context, endpoint, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", errors.Wrap(err, "marshaling oracle request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building oracle request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "sending oracle request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading oracle response")
	}

	if resp.StatusCode >= 400 {
		return "", errors.Errorf("oracle returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errors.Wrap(err, "decoding oracle response")
	}
	return parsed.Text, nil
}

// stripPairedQuotes removes one layer of matching leading/trailing quote
// characters (" or '), mirroring the original oracle's
// strip().strip('"').strip("'") cleanup on model output.
func stripPairedQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

func randomPick(a, b string) (winner, loser string) {
	if rand.Intn(2) == 0 {
		return a, b
	}
	return b, a
}

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/finova-network/reward-engine/internal/config"
)

// apiBaseURL resolves the running daemon's address from config, for
// subcommands that act as a thin HTTP client against `serve`.
func apiBaseURL(cfg config.Config) string {
	return fmt.Sprintf("http://%s:%d", cfg.API.Host, cfg.API.Port)
}

// getJSON issues a GET request against the local daemon and decodes the
// JSON response into v.
func getJSON(url string, v interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// postJSON issues a POST request with body JSON-encoded from payload and
// decodes a JSON response into v (if v is non-nil).
func postJSON(url string, payload, v interface{}) error {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	resp, err := http.Post(url, "application/json", buf)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: unexpected status %s: %s", url, resp.Status, string(body))
	}
	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// humanCount renders a total-users-style count the operator-facing way
// (e.g. "1,200,000" for a growing network).
func humanCount(n uint64) string {
	return humanize.Comma(int64(n))
}

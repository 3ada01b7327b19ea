// Package usage sends the anonymous usage ping to the singer.io collector.
// The call is strictly best-effort: every failure is swallowed and its
// outcome never affects the pipeline's exit status.
package usage

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	collectorURL = "http://collector.singer.io/i"
	timeout      = 10 * time.Second
)

// Send reports that the target was opened. All errors are logged at debug
// level and otherwise ignored.
func Send(version string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	params := url.Values{}
	params.Set("e", "se")
	params.Set("aid", "singer")
	params.Set("se_ca", "target-parquet")
	params.Set("se_ac", "open")
	params.Set("se_la", version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, collectorURL+"?"+params.Encode(), nil)
	if err != nil {
		logger.Debug("collection request failed", "error", err)
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Debug("collection request failed", "error", err)
		return
	}
	_ = resp.Body.Close()
}

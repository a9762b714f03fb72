package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Checker sends a HEAD request to every registered source and records
// whether it is reachable.
type Checker struct {
	sources *SourceDB
	logger  *slog.Logger
	client  *http.Client
}

// CheckSummary counts reachable and failing sources.
type CheckSummary struct {
	OK     int
	Failed int
}

// NewChecker creates a Checker over the source registry.
func NewChecker(sources *SourceDB, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		sources: sources,
		logger:  logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// CheckAll performs a HEAD request on every source URL and persists the
// result. A 2xx or 3xx status counts as reachable.
func (c *Checker) CheckAll(ctx context.Context) (CheckSummary, error) {
	var sum CheckSummary
	sources, err := c.sources.ListSources()
	if err != nil {
		return sum, err
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		status, checkErr := c.checkOne(ctx, src.SourceURL)
		errMsg := ""
		if checkErr != nil {
			errMsg = checkErr.Error()
		}

		if err := c.sources.UpdateCheck(src.SourceID, status, errMsg); err != nil {
			return sum, err
		}

		if status >= 200 && status < 400 {
			sum.OK++
			continue
		}
		sum.Failed++
		c.logger.Warn("source unreachable",
			"source", src.SourceID,
			"url", src.SourceURL,
			"status", status,
			"error", errMsg,
		)
	}

	c.logger.Info("source check complete", "total", sum.OK+sum.Failed, "ok", sum.OK, "failed", sum.Failed)
	return sum, nil
}

// checkOne performs a single HEAD request and returns the HTTP status code.
// On network error, status is 0.
func (c *Checker) checkOne(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

package adapters

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/domain"
)

// ContentFetcher executes collaborator HTTP requests and classifies failures
// into the pipeline error taxonomy: timeouts, 429 and 5xx responses are
// transient, everything else is permanent.
type ContentFetcher interface {
	FetchContent(req *http.Request) ([]byte, error)
}

type contentFetcher struct {
	client *http.Client
	logger outbound.LoggerPort
}

func NewContentFetcher(logger outbound.LoggerPort) ContentFetcher {
	return &contentFetcher{
		client: &http.Client{Timeout: 120 * time.Second},
		logger: logger,
	}
}

func (c *contentFetcher) FetchContent(req *http.Request) ([]byte, error) {
	res, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to send the HTTP request", map[string]interface{}{
			"method": req.Method,
			"URL":    req.URL.String(),
		})
		return nil, classifyTransportError(err)
	}

	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Error(err, "Failed to close the response body")
		}
	}(res.Body)

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to read the response body", map[string]interface{}{
			"method": req.Method,
			"URL":    req.URL.String(),
		})
		return nil, domain.Transient(err)
	}

	if res.StatusCode != http.StatusOK {
		c.logger.ErrorWithFields(nil, "HTTP request returned non-OK status code", map[string]interface{}{
			"method":  req.Method,
			"URL":     req.URL.String(),
			"status":  res.StatusCode,
			"message": string(payload),
		})
		return payload, classifyStatusCode(res.StatusCode, string(payload))
	}

	return payload, nil
}

func classifyTransportError(err error) error {
	// Timeouts, connection refusals, DNS failures and the like: the
	// collaborator may come back, so availability problems are transient.
	return domain.Transient(err)
}

func classifyStatusCode(status int, message string) error {
	err := fmt.Errorf("HTTP request returned non-OK status code %d: %s", status, message)
	switch {
	case status == http.StatusTooManyRequests:
		return domain.Transient(err)
	case status >= 500:
		return domain.Transient(err)
	default:
		return domain.Permanent(err)
	}
}

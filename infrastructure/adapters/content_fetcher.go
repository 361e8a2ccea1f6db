package adapters

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"video-production-service/application/ports/outbound"
	"video-production-service/domain"
)

// ContentFetcher executes an HTTP request and classifies failures into the
// production error taxonomy so the retry policy can tell a rate limit from a
// rejected prompt.
type ContentFetcher interface {
	FetchContent(req *http.Request) ([]byte, error)
}

type contentFetcher struct {
	client *http.Client
	logger outbound.LoggerPort
}

func NewContentFetcher(logger outbound.LoggerPort) ContentFetcher {
	return &contentFetcher{
		client: &http.Client{},
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
		if closeErr := body.Close(); closeErr != nil {
			c.logger.ErrorWithFields(closeErr, "Failed to close the response body", map[string]interface{}{
				"method": req.Method,
				"URL":    req.URL.String(),
			})
		}
	}(res.Body)

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to read the response body", map[string]interface{}{
			"method": req.Method,
			"URL":    req.URL.String(),
		})
		return nil, domain.NewTransient("reading response body", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.ErrorWithFields(nil, "HTTP request returned non-2xx status code", map[string]interface{}{
			"method":  req.Method,
			"URL":     req.URL.String(),
			"status":  res.StatusCode,
			"message": string(payload),
		})
		return nil, classifyStatusCode(res.StatusCode, payload)
	}

	return payload, nil
}

// classifyStatusCode maps a non-2xx response to transient or permanent.
// Rate limits, timeouts and server-side errors are worth retrying; every
// other client error will fail the same way on the next attempt.
func classifyStatusCode(status int, body []byte) error {
	msg := fmt.Sprintf("status %d: %s", status, body)
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= 500:
		return domain.NewTransient(msg, nil)
	default:
		return domain.NewPermanent(msg, nil)
	}
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewTransient("request timed out", err)
	}
	return domain.NewTransient("request failed", err)
}

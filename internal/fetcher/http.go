package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/ralt/branchdiff/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the ALT Linux package database API
const DefaultBaseURL = "https://rdb.altlinux.org/api"

// HTTPFetcher implements Fetcher against the package database REST API
type HTTPFetcher struct {
	baseURL string
	client  *retryablehttp.Client
}

// branchPackages is the body of export/branch_binary_packages
type branchPackages struct {
	RequestArgs map[string]interface{} `json:"request_args"`
	Length      int                    `json:"length"`
	Packages    []models.Package       `json:"packages"`
}

// NewHTTPFetcher creates a fetcher for baseURL. Each attempt is bounded by
// timeout and failed attempts are retried up to retries times.
func NewHTTPFetcher(baseURL string, timeout time.Duration, retries int) *HTTPFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = timeout
	client.RetryMax = retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 10 * time.Second
	client.Logger = leveledLogger{}
	// Hand the last response back so the status can be reported
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPFetcher{
		baseURL: baseURL,
		client:  client,
	}
}

// URL returns the endpoint queried for branch and arch
func (f *HTTPFetcher) URL(branch, arch string) (string, error) {
	u, err := url.JoinPath(f.baseURL, "export", "branch_binary_packages", branch)
	if err != nil {
		return "", err
	}
	if arch != "" {
		u += "?" + url.Values{"arch": []string{arch}}.Encode()
	}
	return u, nil
}

// Fetch downloads and decodes the package list of branch
func (f *HTTPFetcher) Fetch(ctx context.Context, branch, arch string) (*models.Snapshot, error) {
	u, err := f.URL(branch, arch)
	if err != nil {
		return nil, models.NewError(models.ErrFetch, branch, fmt.Errorf("invalid API URL: %w", err))
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, models.NewError(models.ErrFetch, branch, err)
	}
	req.Header.Set("Accept", "application/json")

	logrus.Infof("Downloading package list for %s...", branch)
	logrus.Debugf("GET %s", u)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, models.NewError(models.ErrFetch, branch, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewError(models.ErrFetch, branch, statusError(resp.StatusCode))
	}

	body, err := io.ReadAll(newProgressReader(resp.Body, branch, resp.ContentLength))
	if err != nil {
		return nil, models.NewError(models.ErrFetch, branch, fmt.Errorf("failed to read response: %w", err))
	}

	var payload branchPackages
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, models.NewError(models.ErrFetch, branch, fmt.Errorf("malformed response: %w", err))
	}
	if payload.Packages == nil {
		return nil, models.NewError(models.ErrFetch, branch, fmt.Errorf("malformed response: no packages list"))
	}
	if payload.Length != 0 && payload.Length != len(payload.Packages) {
		logrus.Warnf("Branch %s: response announces %d packages but carries %d",
			branch, payload.Length, len(payload.Packages))
	}

	logrus.Infof("Fetched %d packages for %s (%s)", len(payload.Packages), branch, humanize.Bytes(uint64(len(body))))

	return models.NewSnapshot(branch, payload.Packages), nil
}

func statusError(code int) error {
	switch code {
	case http.StatusBadRequest:
		return fmt.Errorf("HTTP %d: request parameters validation error", code)
	case http.StatusNotFound:
		return fmt.Errorf("HTTP %d: requested data not found in database", code)
	default:
		return fmt.Errorf("HTTP %d: %s", code, http.StatusText(code))
	}
}

// leveledLogger routes retryablehttp messages to logrus
type leveledLogger struct{}

func (leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	logrus.WithFields(fields(keysAndValues)).Error(msg)
}

func (leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	logrus.WithFields(fields(keysAndValues)).Debug(msg)
}

func (leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	logrus.WithFields(fields(keysAndValues)).Debug(msg)
}

func (leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	logrus.WithFields(fields(keysAndValues)).Warn(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

// Package uscis looks up case statuses on the USCIS case status website.
//
// One lookup is one form POST. The response page is parsed and two elements
// are picked out by fixed structural paths: the status headline and the
// longer description below it.
package uscis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/log"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"

	"github.com/Norgate-AV/casewatch/internal/logging"
)

const (
	DefaultEndpoint        = "https://egov.uscis.gov/casestatus/mycasestatus.do"
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/63.0.3239.132 Safari/537.36"
	DefaultStatusPath      = "/html/body/div[2]/form/div/div[1]/div/div/div[2]/div[3]/h1"
	DefaultDescriptionPath = "/html/body/div[2]/form/div/div[1]/div/div/div[2]/div[3]/p"
	DefaultTimeout         = 30 * time.Second

	// StatusNotFound is reported when the page carries no usable status.
	// It is stored and compared like any other status.
	StatusNotFound = "Case not found"

	// NoDescription is used when the status is present but its description is not.
	NoDescription = "No detailed description of status"
)

// Result is the outcome of a single lookup
type Result struct {
	Status      string
	Description string

	// Found is false when the page had no status element and the
	// not-found placeholder was returned instead.
	Found bool
}

// Options configures a Client. All values are fixed for the lifetime of the client.
type Options struct {
	Endpoint        string
	UserAgent       string
	StatusPath      string
	DescriptionPath string
	Timeout         time.Duration

	// Retries is the number of extra attempts on connection errors and 5xx
	// responses. Zero means exactly one request per lookup.
	Retries int
}

// DefaultOptions returns the options for the public USCIS website.
func DefaultOptions() Options {
	return Options{
		Endpoint:        DefaultEndpoint,
		UserAgent:       DefaultUserAgent,
		StatusPath:      DefaultStatusPath,
		DescriptionPath: DefaultDescriptionPath,
		Timeout:         DefaultTimeout,
	}
}

// Client fetches case statuses
type Client struct {
	endpoint        string
	userAgent       string
	statusPath      Path
	descriptionPath Path
	http            *retryablehttp.Client
	log             *log.Logger
}

// NewClient creates a client from opts
func NewClient(opts Options, logger *log.Logger) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	statusPath, err := ParsePath(opts.StatusPath)
	if err != nil {
		return nil, fmt.Errorf("invalid status path: %w", err)
	}

	descriptionPath, err := ParsePath(opts.DescriptionPath)
	if err != nil {
		return nil, fmt.Errorf("invalid description path: %w", err)
	}

	return &Client{
		endpoint:        opts.Endpoint,
		userAgent:       opts.UserAgent,
		statusPath:      statusPath,
		descriptionPath: descriptionPath,
		http:            NewHTTPClient(opts.Timeout, opts.Retries, logger),
		log:             logger,
	}, nil
}

// NewHTTPClient builds the retrying HTTP client shared by casewatch's outbound calls
func NewHTTPClient(timeout time.Duration, retries int, logger *log.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 1 * time.Second
	c.RetryWaitMax = 8 * time.Second
	c.Logger = logging.HTTPLogger{L: logger}

	if timeout > 0 {
		c.HTTPClient.Timeout = timeout
	}

	return c
}

// Fetch looks up the status of a single receipt number. Transport failures,
// non-2xx responses and unreadable pages are returned as errors; a page
// without a status element is not an error and yields the not-found result.
func (c *Client) Fetch(ctx context.Context, number string) (Result, error) {
	form := url.Values{}
	form.Set("initCaseSearch", "CHECK STATUS")
	form.Set("appReceiptNum", number)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build request for %s: %w", number, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query status for %s: %w", number, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read status page for %s: %w", number, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("status page for %s returned HTTP %d", number, resp.StatusCode)
	}

	return c.parse(number, body)
}

// parse extracts the status and description from a status page
func (c *Client) parse(number string, body []byte) (Result, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse status page for %s: %w", number, err)
	}

	statusNodes := c.statusPath.Find(doc)
	if len(statusNodes) != 1 {
		c.log.WithField("receipt", number).Infof("receipt number not found at USCIS or website down (%d status elements)", len(statusNodes))
		return NotFound(number), nil
	}

	description := NoDescription
	if nodes := c.descriptionPath.Find(doc); len(nodes) == 1 {
		description = strings.TrimSpace(textContent(nodes[0]))
	}

	return Result{
		Status:      strings.TrimSpace(textContent(statusNodes[0])),
		Description: description,
		Found:       true,
	}, nil
}

// NotFound is the placeholder result for a receipt number without a usable status
func NotFound(number string) Result {
	return Result{
		Status:      StatusNotFound,
		Description: fmt.Sprintf("Seems like USCIS does not have a case for receipt number %s", number),
	}
}

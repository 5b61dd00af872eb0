package jira

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultParallelism bounds concurrent search requests.
	DefaultParallelism = 16

	// DefaultMaxAttempts is the number of tries per search batch.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the base delay between tries.
	DefaultRetryDelay = 2 * time.Second

	// DefaultBatchSize is the maximum number of issue keys per JQL query.
	DefaultBatchSize = 85

	// ReleaseNoteField is the display name of the custom release note field.
	ReleaseNoteField = "ReleaseNote"
)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	logger      *slog.Logger
	httpClient  *http.Client
	parallelism int
	maxAttempts int
	retryDelay  time.Duration
	batchSize   int
	noteField   string
}

// Option is a functional option for configuring the Client.
type Option func(*clientOptions)

// WithLogger configures the client with a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(opts *clientOptions) {
		opts.httpClient = c
	}
}

// WithParallelism bounds concurrent requests of FetchReleaseNotes.
func WithParallelism(n int) Option {
	return func(opts *clientOptions) {
		opts.parallelism = n
	}
}

// WithRetry sets the attempts per batch and the base backoff delay.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(opts *clientOptions) {
		opts.maxAttempts = maxAttempts
		opts.retryDelay = delay
	}
}

// WithBatchSize sets the maximum number of keys per JQL query.
func WithBatchSize(n int) Option {
	return func(opts *clientOptions) {
		opts.batchSize = n
	}
}

// WithReleaseNoteField overrides the release note field display name.
func WithReleaseNoteField(name string) Option {
	return func(opts *clientOptions) {
		opts.noteField = name
	}
}

// defaultOptions returns the default configuration options.
func defaultOptions() *clientOptions {
	return &clientOptions{
		logger:      slog.Default(),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		parallelism: DefaultParallelism,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		batchSize:   DefaultBatchSize,
		noteField:   ReleaseNoteField,
	}
}

// applyOptions applies the given options and repairs invalid values.
func applyOptions(opts *clientOptions, options []Option) {
	for _, option := range options {
		option(opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.httpClient == nil {
		opts.httpClient = http.DefaultClient
	}
	if opts.parallelism <= 0 {
		opts.parallelism = DefaultParallelism
	}
	if opts.maxAttempts <= 0 {
		opts.maxAttempts = 1
	}
	if opts.retryDelay < 0 {
		opts.retryDelay = 0
	}
	if opts.batchSize <= 0 {
		opts.batchSize = DefaultBatchSize
	}
	if opts.noteField == "" {
		opts.noteField = ReleaseNoteField
	}
}

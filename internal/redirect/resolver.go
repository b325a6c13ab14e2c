package redirect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds one resolution, redirect chain included.
const DefaultTimeout = 10 * time.Second

// Resolution is the outcome of resolving one redirect link.
type Resolution struct {
	// Link is the redirect link as it appeared in the text.
	Link string

	// Destination is the final URL of the redirect chain, or Link when
	// resolution failed.
	Destination string

	// Err is the absorbed failure, nil on success.
	Err error

	// Elapsed is the wall time spent on the HEAD request.
	Elapsed time.Duration
}

// Resolved reports whether the link was resolved to a destination.
func (r Resolution) Resolved() bool {
	return r.Err == nil
}

// Result is the outcome of one Process call.
type Result struct {
	// Original is the input text, untouched.
	Original string

	// Resolved is Original with every link replaced per Mapping.
	Resolved string

	// Links are the distinct links found, in discovery order.
	Links Links

	// Mapping maps each link to its destination.
	Mapping Mapping

	// Resolutions holds one entry per link, in the order of Links.
	Resolutions []Resolution
}

// Failed returns the number of links that could not be resolved.
func (r *Result) Failed() int {
	n := 0
	for _, res := range r.Resolutions {
		if !res.Resolved() {
			n++
		}
	}
	return n
}

// Resolver resolves redirect links through HEAD requests.
// A Resolver is safe for concurrent use.
type Resolver struct {
	client      *http.Client
	timeout     time.Duration
	pattern     *regexp.Regexp
	concurrency int
	userAgent   string
	logger      *slog.Logger

	progress   io.Writer
	progressMu sync.Mutex
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for HEAD requests. The client must
// follow redirects; http.Client does by default.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithTimeout sets the per-link timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithPattern replaces the redirect link pattern.
func WithPattern(re *regexp.Regexp) Option {
	return func(r *Resolver) {
		if re != nil {
			r.pattern = re
		}
	}
}

// WithConcurrency caps the number of in-flight resolutions.
// Zero or negative keeps the default of dispatching every link at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithUserAgent sets the User-Agent header of resolution requests.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		r.userAgent = ua
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithProgress writes one human-readable line per finished resolution to w.
func WithProgress(w io.Writer) Option {
	return func(r *Resolver) {
		r.progress = w
	}
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		pattern: defaultRegexp,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Extract returns the distinct links in text matched by the resolver's pattern.
func (r *Resolver) Extract(text string) Links {
	return ExtractPattern(text, r.pattern)
}

// ResolveOne follows link's redirect chain with a HEAD request and returns
// the final URL. On any failure it logs a warning and returns link unchanged.
func (r *Resolver) ResolveOne(ctx context.Context, link string) string {
	return r.resolve(ctx, link).Destination
}

// ResolveAll resolves every link concurrently and returns the complete mapping
// once all resolutions have finished.
func (r *Resolver) ResolveAll(ctx context.Context, links Links) Mapping {
	return mappingOf(r.resolveAll(ctx, links))
}

// Process extracts, resolves and substitutes every redirect link in text.
// Text without links is returned unchanged and no request is made.
func (r *Resolver) Process(ctx context.Context, text string) *Result {
	result := &Result{
		Original: text,
		Resolved: text,
		Mapping:  Mapping{},
	}

	links := r.Extract(text)
	if len(links) == 0 {
		r.logger.Info("no redirect links found")
		return result
	}

	r.logger.Info("found redirect links", "count", len(links))

	result.Links = links
	result.Resolutions = r.resolveAll(ctx, links)
	result.Mapping = mappingOf(result.Resolutions)
	result.Resolved = Substitute(text, result.Mapping)

	r.logger.Info("redirect resolution complete",
		"links", len(links),
		"failed", result.Failed(),
	)

	return result
}

// resolveAll fans out one goroutine per link. Each goroutine owns its slot
// in the returned slice.
func (r *Resolver) resolveAll(ctx context.Context, links Links) []Resolution {
	results := make([]Resolution, len(links))
	if len(links) == 0 {
		return results
	}

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}

	var done atomic.Int32
	for i, link := range links {
		g.Go(func() error {
			results[i] = r.resolve(ctx, link)
			r.reportProgress(int(done.Add(1)), len(links), results[i])
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // resolve never returns an error

	return results
}

// resolve performs the HEAD request for one link and absorbs any failure.
func (r *Resolver) resolve(ctx context.Context, link string) Resolution {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	destination, err := r.head(ctx, link)
	res := Resolution{
		Link:        link,
		Destination: destination,
		Err:         err,
		Elapsed:     time.Since(start),
	}

	if err != nil {
		res.Destination = link
		r.logger.Warn("could not resolve redirect link",
			"link", link,
			"error", err,
		)
		return res
	}

	r.logger.Debug("resolved redirect link",
		"link", link,
		"destination", destination,
		"elapsed", res.Elapsed,
	)

	return res
}

func (r *Resolver) head(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return "", fmt.Errorf("invalid redirect link: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// resp.Request is the last request of the redirect chain.
	return resp.Request.URL.String(), nil
}

func (r *Resolver) reportProgress(done, total int, res Resolution) {
	if r.progress == nil {
		return
	}

	status := "resolved"
	if !res.Resolved() {
		status = "unresolved"
	}

	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	fmt.Fprintf(r.progress, "[%d/%d] %s %s\n", done, total, status, res.Link)
}

func mappingOf(results []Resolution) Mapping {
	m := make(Mapping, len(results))
	for _, res := range results {
		m[res.Link] = res.Destination
	}
	return m
}

// Package catalog fetches puzzles from the remote catalog service. Loads are
// last-writer-wins per variant: a new load cancels the in-flight one and
// bumps a generation counter, and the caller discards any delivery whose
// generation is stale. Responses are revalidated with ETags; a 304 reuses the
// cached payload.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"tandem/internal/puzzle"
	"tandem/internal/telemetry"
)

var (
	ErrNotFound = errors.New("puzzle not found")
	// ErrFutureDate is reported for selectors past today; it matches
	// ErrNotFound so clients treat both the same.
	ErrFutureDate = fmt.Errorf("%w: requested date is in the future", ErrNotFound)
)

const (
	selectorToday  = "today"
	selectorDate   = "date"
	selectorNumber = "number"

	cacheEntries   = 256
	requestTimeout = 15 * time.Second
)

// Selector names the puzzle to load.
type Selector struct {
	Kind   string
	Date   string
	Number int
}

func Today() Selector { return Selector{Kind: selectorToday} }

func ByDate(date string) Selector { return Selector{Kind: selectorDate, Date: date} }

func ByNumber(n int) Selector { return Selector{Kind: selectorNumber, Number: n} }

func (s Selector) String() string {
	switch s.Kind {
	case selectorDate:
		return s.Date
	case selectorNumber:
		return "#" + strconv.Itoa(s.Number)
	default:
		return selectorToday
	}
}

// Result is one load delivery. Gen identifies the request generation; stale
// deliveries are discarded by the receiver.
type Result struct {
	Variant  string
	Selector Selector
	Gen      uint64
	Puzzle   *puzzle.Puzzle
	Err      error
}

type cachedPayload struct {
	etag string
	body []byte
}

type Client struct {
	baseURL    string
	httpc      *http.Client
	logger     *telemetry.Logger
	dateSource func() string

	cache *lru.Cache[string, cachedPayload]

	mu      sync.Mutex
	gens    map[string]uint64
	cancels map[string]context.CancelFunc
}

// New builds a catalog client. dateSource resolves "today" in the configured
// civil timezone (the scheduler provides it).
func New(baseURL string, dateSource func() string, logger *telemetry.Logger) *Client {
	cache, _ := lru.New[string, cachedPayload](cacheEntries)
	return &Client{
		baseURL:    baseURL,
		httpc:      &http.Client{Timeout: requestTimeout},
		logger:     logger,
		dateSource: dateSource,
		cache:      cache,
		gens:       map[string]uint64{},
		cancels:    map[string]context.CancelFunc{},
	}
}

// Load starts an asynchronous fetch and delivers exactly one Result to
// deliver. Any in-flight load for the same variant is cancelled first.
func (c *Client) Load(variant string, sel Selector, deliver func(Result)) uint64 {
	c.mu.Lock()
	if cancel := c.cancels[variant]; cancel != nil {
		cancel()
	}
	c.gens[variant]++
	gen := c.gens[variant]
	ctx, cancel := context.WithCancel(context.Background())
	c.cancels[variant] = cancel
	c.mu.Unlock()

	go func() {
		defer cancel()
		p, err := c.Fetch(ctx, variant, sel)
		deliver(Result{Variant: variant, Selector: sel, Gen: gen, Puzzle: p, Err: err})
	}()
	return gen
}

// Latest reports the newest generation issued for a variant. A Result whose
// Gen is older is a cancelled load and must be ignored.
func (c *Client) Latest(variant string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[variant]
}

// Fetch resolves and retrieves one puzzle synchronously.
func (c *Client) Fetch(ctx context.Context, variant string, sel Selector) (*puzzle.Puzzle, error) {
	url, err := c.resolveURL(variant, sel)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var p puzzle.Puzzle
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode puzzle: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("catalog returned invalid puzzle: %w", err)
	}
	if sel.Kind == selectorDate || sel.Kind == selectorToday {
		if today := c.dateSource(); p.Date > today {
			return nil, ErrFutureDate
		}
	}
	return &p, nil
}

// ListArchive returns summaries for the given inclusive number range.
func (c *Client) ListArchive(ctx context.Context, variant string, from, to int) ([]puzzle.Summary, error) {
	url := fmt.Sprintf("%s/v1/puzzles/%s/archive?from=%d&to=%d", c.baseURL, variant, from, to)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var out []puzzle.Summary
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	return out, nil
}

func (c *Client) resolveURL(variant string, sel Selector) (string, error) {
	switch sel.Kind {
	case selectorToday:
		return fmt.Sprintf("%s/v1/puzzles/%s/%s", c.baseURL, variant, c.dateSource()), nil
	case selectorDate:
		if _, err := puzzle.ParseDate(sel.Date); err != nil {
			return "", fmt.Errorf("%w: bad date %q", ErrNotFound, sel.Date)
		}
		if sel.Date > c.dateSource() {
			return "", ErrFutureDate
		}
		return fmt.Sprintf("%s/v1/puzzles/%s/%s", c.baseURL, variant, sel.Date), nil
	case selectorNumber:
		if sel.Number <= 0 {
			return "", fmt.Errorf("%w: bad number %d", ErrNotFound, sel.Number)
		}
		return fmt.Sprintf("%s/v1/puzzles/%s/number/%d", c.baseURL, variant, sel.Number), nil
	default:
		return "", fmt.Errorf("%w: unknown selector kind %q", ErrNotFound, sel.Kind)
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	cached, hasCached := c.cache.Get(url)
	if hasCached && cached.etag != "" {
		req.Header.Set("If-None-Match", cached.etag)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && hasCached:
		c.logger.Info("catalog.not_modified", map[string]any{"url": url})
		return cached.body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog body: %w", err)
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		c.cache.Add(url, cachedPayload{etag: etag, body: body})
	}
	return body, nil
}

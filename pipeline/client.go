package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/cliniscan/doctext/config"
	"github.com/cliniscan/doctext/metrics"
	"github.com/cliniscan/doctext/observability"
	"github.com/cliniscan/doctext/ocr"
)

// Client submits OCR jobs asynchronously and correlates replies by job ID.
// Replies resolve pending submissions in whatever order they arrive; page
// order inside a reply is likewise unordered and callers must merge results
// by PageIndex.
type Client struct {
	engine  ocr.Engine
	cfg     config.Client
	log     observability.Logger
	met     *metrics.Metrics
	limiter *rate.Limiter

	mu      sync.Mutex
	pending map[string]chan ocr.JobReply
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(log observability.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithClientMetrics attaches Prometheus collectors to the client.
func WithClientMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.met = m }
}

// NewClient wraps an engine in an asynchronous job client.
func NewClient(engine ocr.Engine, cfg config.Client, opts ...ClientOption) *Client {
	c := &Client{
		engine:  engine,
		cfg:     cfg,
		log:     observability.NopLogger{},
		pending: make(map[string]chan ocr.JobReply),
	}
	if cfg.PagesPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.PagesPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewJobRequest assigns a fresh job ID to a set of page inputs.
func NewJobRequest(pages []ocr.Input) ocr.JobRequest {
	return ocr.JobRequest{JobID: uuid.NewString(), Pages: pages}
}

// Submit dispatches a job and returns a channel that yields exactly one
// reply. Recognition runs concurrently up to MaxConcurrentPages, paced by
// the rate limiter. A page whose recognition fails contributes an empty
// result with the error recorded in its Meta; the job itself still resolves.
func (c *Client) Submit(ctx context.Context, req ocr.JobRequest) (<-chan ocr.JobReply, error) {
	if req.JobID == "" {
		return nil, fmt.Errorf("job has no ID")
	}
	ch := make(chan ocr.JobReply, 1)

	c.mu.Lock()
	if _, exists := c.pending[req.JobID]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("job %s already pending", req.JobID)
	}
	c.pending[req.JobID] = ch
	c.mu.Unlock()

	if c.met != nil {
		c.met.OCRJobsSubmittedTotal.Inc()
		c.met.OCRPagesInFlight.Add(float64(len(req.Pages)))
	}
	c.log.Info("ocr job submitted",
		observability.String("job", req.JobID),
		observability.Int("pages", len(req.Pages)),
	)

	go c.run(ctx, req)
	return ch, nil
}

// Recognize submits the pages as one job and waits for its reply.
func (c *Client) Recognize(ctx context.Context, pages []ocr.Input) (ocr.JobReply, error) {
	ch, err := c.Submit(ctx, NewJobRequest(pages))
	if err != nil {
		return ocr.JobReply{}, err
	}
	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return ocr.JobReply{}, ctx.Err()
	}
}

func (c *Client) run(ctx context.Context, req ocr.JobRequest) {
	start := time.Now()

	// Every slot carries its page identity up front, so a page whose
	// recognition never runs (cancellation, limiter abort) still comes back
	// under its own PageIndex with an error recorded, never as a zero-valued
	// result that a caller could mistake for page 0.
	results := make([]ocr.PageResult, len(req.Pages))
	for i, in := range req.Pages {
		results[i] = ocr.PageResult{InputID: in.ID, PageIndex: in.PageIndex}
	}

	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.MaxConcurrentPages > 0 {
		g.SetLimit(c.cfg.MaxConcurrentPages)
	}
	for i := range req.Pages {
		i := i
		g.Go(func() error {
			in := req.Pages[i]
			if c.limiter != nil {
				if err := c.limiter.Wait(gctx); err != nil {
					results[i].Meta = map[string]string{"error": err.Error()}
					return err
				}
			}
			res, err := c.engine.Recognize(gctx, in)
			if err != nil {
				c.log.Error("page recognition failed",
					observability.Int("page", in.PageIndex),
					observability.Error("error", err),
				)
				res = ocr.PageResult{
					InputID:   in.ID,
					PageIndex: in.PageIndex,
					Meta:      map[string]string{"error": err.Error()},
				}
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()

	if c.met != nil {
		c.met.OCRPagesInFlight.Sub(float64(len(req.Pages)))
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.met.RecordOCRJob(status, time.Since(start))
	}
	if err != nil {
		c.log.Error("ocr job aborted",
			observability.String("job", req.JobID),
			observability.Error("error", err),
		)
	}

	c.resolve(ocr.JobReply{JobID: req.JobID, Pages: results})
}

// resolve delivers a reply to its pending submission. Replies for unknown
// job IDs are logged and dropped.
func (c *Client) resolve(reply ocr.JobReply) {
	c.mu.Lock()
	ch, ok := c.pending[reply.JobID]
	if ok {
		delete(c.pending, reply.JobID)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Warn("reply for unknown job", observability.String("job", reply.JobID))
		return
	}
	ch <- reply
}

// PendingJobs reports how many submitted jobs have not resolved yet.
func (c *Client) PendingJobs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cliniscan/doctext/config"
	"github.com/cliniscan/doctext/ocr"
)

// fakeEngine returns canned text per page index and records concurrency.
type fakeEngine struct {
	mu         sync.Mutex
	inFlight   int
	maxSeen    int
	failPages  map[int]bool
	perPageLag time.Duration
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.PageResult, error) {
	e.mu.Lock()
	e.inFlight++
	if e.inFlight > e.maxSeen {
		e.maxSeen = e.inFlight
	}
	fail := e.failPages[in.PageIndex]
	e.mu.Unlock()

	if e.perPageLag > 0 {
		select {
		case <-time.After(e.perPageLag):
		case <-ctx.Done():
		}
	}

	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()

	if fail {
		return ocr.PageResult{}, errors.New("recognition failed")
	}
	return ocr.PageResult{
		InputID:   in.ID,
		PageIndex: in.PageIndex,
		Text:      fmt.Sprintf("text for page %d", in.PageIndex),
	}, nil
}

func clientConfig() config.Client {
	cfg := config.Default().Client
	cfg.PagesPerSecond = 0 // no pacing in tests
	return cfg
}

func TestClientRecognizeReturnsAllPages(t *testing.T) {
	engine := &fakeEngine{}
	c := NewClient(engine, clientConfig())

	pages := []ocr.Input{
		{ID: "a", PageIndex: 2},
		{ID: "b", PageIndex: 0},
		{ID: "c", PageIndex: 1},
	}
	reply, err := c.Recognize(context.Background(), pages)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(reply.Pages) != 3 {
		t.Fatalf("got %d results, want 3", len(reply.Pages))
	}
	seen := make(map[int]string)
	for _, res := range reply.Pages {
		seen[res.PageIndex] = res.Text
	}
	for _, idx := range []int{0, 1, 2} {
		if seen[idx] != fmt.Sprintf("text for page %d", idx) {
			t.Fatalf("page %d text = %q", idx, seen[idx])
		}
	}
	if c.PendingJobs() != 0 {
		t.Fatalf("pending jobs = %d after reply, want 0", c.PendingJobs())
	}
}

func TestClientBoundsConcurrency(t *testing.T) {
	engine := &fakeEngine{perPageLag: 20 * time.Millisecond}
	cfg := clientConfig()
	cfg.MaxConcurrentPages = 2
	c := NewClient(engine, cfg)

	pages := make([]ocr.Input, 6)
	for i := range pages {
		pages[i] = ocr.Input{PageIndex: i}
	}
	if _, err := c.Recognize(context.Background(), pages); err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if engine.maxSeen > 2 {
		t.Fatalf("observed %d concurrent recognitions, limit 2", engine.maxSeen)
	}
}

func TestClientFailedPageStillResolvesJob(t *testing.T) {
	engine := &fakeEngine{failPages: map[int]bool{1: true}}
	c := NewClient(engine, clientConfig())

	reply, err := c.Recognize(context.Background(), []ocr.Input{
		{PageIndex: 0},
		{PageIndex: 1},
	})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	var failed *ocr.PageResult
	for i := range reply.Pages {
		if reply.Pages[i].PageIndex == 1 {
			failed = &reply.Pages[i]
		}
	}
	if failed == nil {
		t.Fatalf("no result for failed page")
	}
	if failed.Text != "" || failed.Meta["error"] == "" {
		t.Fatalf("failed page result = %+v, want empty text with error meta", failed)
	}
}

func TestClientCancelledJobKeepsPageIdentity(t *testing.T) {
	engine := &fakeEngine{}
	cfg := clientConfig()
	// One token up front, then roughly 17 minutes per page: the second page
	// is guaranteed to still be waiting when the context is cancelled.
	cfg.PagesPerSecond = 0.001
	cfg.Burst = 1
	c := NewClient(engine, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.Submit(ctx, ocr.JobRequest{JobID: "job-cancel", Pages: []ocr.Input{
		{ID: "a", PageIndex: 5},
		{ID: "b", PageIndex: 6},
	}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()
	reply := <-ch

	if len(reply.Pages) != 2 {
		t.Fatalf("got %d results, want 2", len(reply.Pages))
	}
	wantIDs := map[int]string{5: "a", 6: "b"}
	for _, res := range reply.Pages {
		id, ok := wantIDs[res.PageIndex]
		if !ok {
			t.Fatalf("reply contains a result for page %d, which was never submitted", res.PageIndex)
		}
		if res.InputID != id {
			t.Fatalf("page %d carries input ID %q, want %q", res.PageIndex, res.InputID, id)
		}
		if res.Text == "" && res.Meta["error"] == "" {
			t.Fatalf("page %d has neither text nor a recorded error: %+v", res.PageIndex, res)
		}
	}
	if c.PendingJobs() != 0 {
		t.Fatalf("pending jobs = %d after cancelled job resolved, want 0", c.PendingJobs())
	}
}

func TestClientRejectsDuplicateJobID(t *testing.T) {
	engine := &fakeEngine{perPageLag: 50 * time.Millisecond}
	c := NewClient(engine, clientConfig())

	req := ocr.JobRequest{JobID: "job-1", Pages: []ocr.Input{{PageIndex: 0}}}
	ch, err := c.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := c.Submit(context.Background(), req); err == nil {
		t.Fatalf("duplicate job ID accepted")
	}
	<-ch
}

func TestClientRequiresJobID(t *testing.T) {
	c := NewClient(&fakeEngine{}, clientConfig())
	if _, err := c.Submit(context.Background(), ocr.JobRequest{}); err == nil {
		t.Fatalf("job without ID accepted")
	}
}

package dedupe

import (
	"bytes"
	"context"
	"encoding/json"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/place-dedup/internal/model"
)

// BatchResults maps place IDs to detection results, preserving the order in
// which places were supplied.
type BatchResults struct {
	ids     []string
	results map[string]*DuplicateDetectionResult
}

// NewBatchResults returns an empty result set.
func NewBatchResults() *BatchResults {
	return &BatchResults{results: make(map[string]*DuplicateDetectionResult)}
}

// Add stores r under its original place ID. It returns false, and keeps the
// existing entry, when the ID is already present.
func (b *BatchResults) Add(r DuplicateDetectionResult) bool {
	id := r.OriginalPlace.ID
	if _, ok := b.results[id]; ok {
		return false
	}
	b.ids = append(b.ids, id)
	b.results[id] = &r
	return true
}

// Get returns the result for a place ID.
func (b *BatchResults) Get(id string) (*DuplicateDetectionResult, bool) {
	if b == nil {
		return nil, false
	}
	r, ok := b.results[id]
	return r, ok
}

// Len returns the number of results.
func (b *BatchResults) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ids)
}

// IDs returns the place IDs in input order.
func (b *BatchResults) IDs() []string {
	if b == nil {
		return nil
	}
	out := make([]string, len(b.ids))
	copy(out, b.ids)
	return out
}

// Each calls fn for every result in input order.
func (b *BatchResults) Each(fn func(id string, r *DuplicateDetectionResult)) {
	if b == nil {
		return
	}
	for _, id := range b.ids {
		fn(id, b.results[id])
	}
}

// MarshalJSON encodes the results as a JSON object whose keys follow input order.
func (b *BatchResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range b.IDs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, eris.Wrap(err, "dedupe: marshal batch key")
		}
		val, err := json.Marshal(b.results[id])
		if err != nil {
			return nil, eris.Wrapf(err, "dedupe: marshal batch result %s", id)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type batchOptions struct {
	workers int
}

// BatchOption configures BatchDetectDuplicates.
type BatchOption func(*batchOptions)

// WithWorkers bounds the number of targets scored concurrently.
// Values below 1 mean one worker.
func WithWorkers(n int) BatchOption {
	return func(o *batchOptions) {
		if n < 1 {
			n = 1
		}
		o.workers = n
	}
}

// BatchDetectDuplicates runs DetectDuplicates for every place against all
// other places in the slice. The work is O(n²); callers bound n before
// calling. Output does not depend on the worker count. The only errors
// returned come from ctx.
//
// When two places share an ID the first one's result is kept.
func BatchDetectDuplicates(ctx context.Context, places []model.Place, cfg DetectionConfig, opts ...BatchOption) (*BatchResults, error) {
	o := batchOptions{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	cfg = cfg.Sanitize()

	log := zap.L().With(zap.String("component", "dedupe.batch"))
	start := time.Now()

	results := make([]DuplicateDetectionResult, len(places))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i := range places {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candidates := make([]model.Place, 0, len(places)-1)
			candidates = append(candidates, places[:i]...)
			candidates = append(candidates, places[i+1:]...)
			results[i] = detect(places[i], candidates, cfg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "dedupe: batch detect")
	}

	out := NewBatchResults()
	for _, r := range results {
		if !out.Add(r) {
			log.Warn("duplicate place id in batch input, keeping first",
				zap.String("place_id", r.OriginalPlace.ID),
			)
		}
	}

	log.Debug("batch detection complete",
		zap.Int("places", len(places)),
		zap.Int("workers", o.workers),
		zap.Duration("elapsed", time.Since(start)),
	)

	return out, nil
}

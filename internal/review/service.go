// Package review wraps the duplicate detection engine for interactive use:
// it fetches candidates from the store, applies status filters and size
// caps, hides dismissed pairs, bounds execution time, and caches cluster
// results.
package review

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/place-dedup/internal/config"
	"github.com/sells-group/place-dedup/internal/dedupe"
	"github.com/sells-group/place-dedup/internal/model"
	"github.com/sells-group/place-dedup/internal/store"
)

// Service runs duplicate checks and cluster discovery against a Store.
type Service struct {
	store     store.Store
	detection dedupe.DetectionConfig
	review    config.ReviewConfig
	workers   int
	cache     *ClusterCache
	log       *zap.Logger
}

// NewService creates a Service from the detection, review, and batch sections of cfg.
func NewService(st store.Store, cfg *config.Config) *Service {
	return &Service{
		store:     st,
		detection: cfg.Detection,
		review:    cfg.Review,
		workers:   cfg.Batch.Workers,
		cache:     NewClusterCache(cfg.Review.CacheSize, cfg.Review.CacheTTL),
		log:       zap.L().With(zap.String("component", "review")),
	}
}

// DetectionConfig returns the service's default detection configuration.
func (s *Service) DetectionConfig() dedupe.DetectionConfig {
	return s.detection
}

// CacheStats reports cluster cache statistics.
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// InvalidateCache drops cached cluster results. Call it after writing places.
func (s *Service) InvalidateCache() {
	s.cache.Invalidate()
}

// CheckOptions tunes a single-place duplicate check.
type CheckOptions struct {
	IncludeArchived bool
}

func statuses(includeArchived bool) []model.PlaceStatus {
	if includeArchived {
		return []model.PlaceStatus{model.PlaceStatusActive, model.PlaceStatusArchived}
	}
	return []model.PlaceStatus{model.PlaceStatusActive}
}

// CheckPlace scores one stored place against up to MaxCandidates other
// places and returns the matches at or above det.MinConfidenceScore.
// Candidates dismissed against the target are skipped.
func (s *Service) CheckPlace(ctx context.Context, placeID string, det dedupe.DetectionConfig, opts CheckOptions) (*dedupe.DuplicateDetectionResult, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, invalidParam("place id is required")
	}
	if err := det.Validate(); err != nil {
		return nil, eris.Wrap(ErrInvalidParameter, err.Error())
	}

	target, err := s.store.GetPlace(ctx, placeID)
	if err != nil {
		return nil, eris.Wrapf(err, "review: load place %s", placeID)
	}
	if target == nil {
		return nil, eris.Wrapf(ErrPlaceNotFound, "place %s", placeID)
	}

	// One extra row so the cap still holds after the target is removed.
	places, err := s.store.ListPlaces(ctx, store.PlaceFilter{
		Statuses: statuses(opts.IncludeArchived),
		Limit:    s.review.MaxCandidates + 1,
	})
	if err != nil {
		return nil, eris.Wrap(err, "review: list candidates")
	}

	dismissed, err := s.store.ListDismissedPairs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "review: list dismissed pairs")
	}
	set := newDismissedSet(dismissed)

	candidates := make([]model.Place, 0, len(places))
	for _, p := range places {
		if p.ID == target.ID || set.has(target.ID, p.ID) {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) > s.review.MaxCandidates {
		candidates = candidates[:s.review.MaxCandidates]
	}

	result := dedupe.DetectDuplicates(*target, candidates, det)
	result.PotentialDuplicates = result.Above(det.MinConfidenceScore)
	result.HasHighConfidenceDuplicates = len(result.PotentialDuplicates) > 0 &&
		result.PotentialDuplicates[0].Confidence > dedupe.HighConfidence

	s.log.Debug("place checked",
		zap.String("place_id", target.ID),
		zap.Int("candidates", result.TotalCandidates),
		zap.Int("matches", len(result.PotentialDuplicates)),
	)

	return &result, nil
}

// ClusterQuery selects which clusters to compute and return.
type ClusterQuery struct {
	MinConfidence   float64
	MinClusterSize  int
	Limit           int // 0 returns every cluster
	IncludeArchived bool
}

// DefaultClusterQuery returns a query using the configured cluster defaults.
func (s *Service) DefaultClusterQuery() ClusterQuery {
	return ClusterQuery{
		MinConfidence:  s.review.MinConfidence,
		MinClusterSize: s.review.MinClusterSize,
	}
}

// Validate reports the first invalid parameter.
func (q ClusterQuery) Validate() error {
	if math.IsNaN(q.MinConfidence) || q.MinConfidence < 0 || q.MinConfidence > 1 {
		return invalidParam("invalid confidence threshold: %v", q.MinConfidence)
	}
	if q.MinClusterSize < 2 {
		return invalidParam("invalid min cluster size: %d", q.MinClusterSize)
	}
	if q.Limit < 0 {
		return invalidParam("invalid limit: %d", q.Limit)
	}
	return nil
}

// cacheKey identifies the computation, independent of Limit.
func (q ClusterQuery) cacheKey() string {
	return fmt.Sprintf("%g/%d/%t", q.MinConfidence, q.MinClusterSize, q.IncludeArchived)
}

// ClusterReport is the response to a cluster query.
type ClusterReport struct {
	Clusters      []dedupe.DuplicateCluster `json:"clusters"`
	TotalClusters int                       `json:"total_clusters"`
	PlacesScanned int                       `json:"places_scanned"`
	// Truncated is set when the place count hit the candidate cap.
	Truncated  bool      `json:"truncated"`
	Cached     bool      `json:"cached"`
	ComputedAt time.Time `json:"computed_at"`
}

// Clusters computes duplicate clusters over stored places. Clusters that
// contain a dismissed pair are dropped. Results are cached per query until
// the TTL lapses or the cache is invalidated.
func (s *Service) Clusters(ctx context.Context, q ClusterQuery) (*ClusterReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	key := q.cacheKey()
	if cached, ok := s.cache.Get(key); ok {
		return q.report(cached, true), nil
	}
	gen := s.cache.Generation()

	if s.review.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.review.Timeout)
		defer cancel()
	}

	start := time.Now()
	places, err := s.store.ListPlaces(ctx, store.PlaceFilter{
		Statuses: statuses(q.IncludeArchived),
		Limit:    s.review.MaxCandidates,
	})
	if err != nil {
		return nil, s.ctxErr(ctx, eris.Wrap(err, "review: list places"))
	}

	batch, err := dedupe.BatchDetectDuplicates(ctx, places, s.detection, dedupe.WithWorkers(s.workers))
	if err != nil {
		return nil, s.ctxErr(ctx, eris.Wrap(err, "review: batch detect"))
	}
	clusters := dedupe.FindDuplicateClusters(batch, q.MinClusterSize, q.MinConfidence)

	dismissed, err := s.store.ListDismissedPairs(ctx)
	if err != nil {
		return nil, s.ctxErr(ctx, eris.Wrap(err, "review: list dismissed pairs"))
	}
	clusters = FilterDismissedClusters(clusters, dismissed)

	result := clusterResult{
		clusters:      clusters,
		placesScanned: len(places),
		truncated:     len(places) >= s.review.MaxCandidates,
		computedAt:    time.Now().UTC(),
	}
	s.cache.Put(gen, key, result)

	s.log.Info("clusters computed",
		zap.Int("places", len(places)),
		zap.Int("clusters", len(clusters)),
		zap.Int("dismissed_pairs", len(dismissed)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return q.report(result, false), nil
}

func (q ClusterQuery) report(r clusterResult, cached bool) *ClusterReport {
	clusters := r.clusters
	if q.Limit > 0 && len(clusters) > q.Limit {
		clusters = clusters[:q.Limit]
	}
	return &ClusterReport{
		Clusters:      clusters,
		TotalClusters: len(r.clusters),
		PlacesScanned: r.placesScanned,
		Truncated:     r.truncated,
		Cached:        cached,
		ComputedAt:    r.computedAt,
	}
}

// ctxErr maps a deadline hit inside Clusters to ErrTimeout.
func (s *Service) ctxErr(ctx context.Context, err error) error {
	if eris.Is(ctx.Err(), context.DeadlineExceeded) {
		s.log.Warn("cluster computation timed out", zap.Duration("timeout", s.review.Timeout))
		return eris.Wrapf(ErrTimeout, "after %s", s.review.Timeout)
	}
	return err
}

func pairIDs(placeA, placeB string) (string, string, error) {
	a, b := strings.TrimSpace(placeA), strings.TrimSpace(placeB)
	if a == "" || b == "" {
		return "", "", invalidParam("place_a and place_b are required")
	}
	if a == b {
		return "", "", invalidParam("cannot dismiss a place against itself")
	}
	return a, b, nil
}

// Dismiss records that two places are not duplicates. Both places must exist.
func (s *Service) Dismiss(ctx context.Context, placeA, placeB string) error {
	a, b, err := pairIDs(placeA, placeB)
	if err != nil {
		return err
	}
	for _, id := range []string{a, b} {
		p, err := s.store.GetPlace(ctx, id)
		if err != nil {
			return eris.Wrapf(err, "review: load place %s", id)
		}
		if p == nil {
			return eris.Wrapf(ErrPlaceNotFound, "place %s", id)
		}
	}

	if err := s.store.DismissPair(ctx, a, b); err != nil {
		return eris.Wrap(err, "review: dismiss")
	}
	s.cache.Invalidate()

	s.log.Info("pair dismissed", zap.String("place_a", a), zap.String("place_b", b))
	return nil
}

// Undismiss removes a dismissal. Removing a pair that was never dismissed is not an error.
func (s *Service) Undismiss(ctx context.Context, placeA, placeB string) error {
	a, b, err := pairIDs(placeA, placeB)
	if err != nil {
		return err
	}
	if err := s.store.UndismissPair(ctx, a, b); err != nil {
		return eris.Wrap(err, "review: undismiss")
	}
	s.cache.Invalidate()

	s.log.Info("pair undismissed", zap.String("place_a", a), zap.String("place_b", b))
	return nil
}

// Import upserts places and invalidates cached clusters.
func (s *Service) Import(ctx context.Context, places []model.Place) (int64, error) {
	n, err := s.store.UpsertPlaces(ctx, places)
	if err != nil {
		return 0, eris.Wrap(err, "review: import places")
	}
	s.cache.Invalidate()
	return n, nil
}

// DismissedPairs lists every dismissed pair.
func (s *Service) DismissedPairs(ctx context.Context) ([]model.DismissedPair, error) {
	pairs, err := s.store.ListDismissedPairs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "review: list dismissed pairs")
	}
	return pairs, nil
}

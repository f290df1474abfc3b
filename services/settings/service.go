// Package settings is the policy store adapter: typed reads of the guard
// options with their defaults, writes from the settings surface, and the
// installation seeding.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upb/publish-guard/internal/observability"
	"github.com/upb/publish-guard/models"
	"github.com/upb/publish-guard/repositories"
	"github.com/upb/publish-guard/services"
)

// Service reads and writes the publish guard options
type Service struct {
	options   repositories.OptionRepository
	txMgr     repositories.TransactionManager
	cache     *SnapshotCache
	metrics   *observability.Metrics
	logger    *zap.Logger
	available models.PostTypeSet
	now       func() time.Time
}

// NewService creates a new settings Service. availableTypes restricts what
// SetEnforcedTypes accepts; when empty any post type is accepted.
func NewService(
	options repositories.OptionRepository,
	txMgr repositories.TransactionManager,
	cache *SnapshotCache,
	metrics *observability.Metrics,
	logger *zap.Logger,
	availableTypes []string,
) *Service {
	if cache == nil {
		cache = NewSnapshotCache(0)
	}
	return &Service{
		options:   options,
		txMgr:     txMgr,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		available: models.NewPostTypeSet(availableTypes...),
		now:       time.Now,
	}
}

// WithClock replaces the clock used for time based defaults
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.cache.SetClock(now)
	return s
}

// AvailablePostTypes returns the post types the settings surface offers
func (s *Service) AvailablePostTypes() []string {
	return s.available.Slice()
}

// GetEnforcedTypes returns the enforced post types, {"post"} when unset
func (s *Service) GetEnforcedTypes(ctx context.Context) (models.PostTypeSet, error) {
	raw, ok, err := s.options.Get(ctx, models.OptionPostTypes)
	if err != nil {
		return nil, services.WrapInternal("failed to read enforced post types", err)
	}
	if !ok {
		return models.NewPostTypeSet(models.DefaultPostType), nil
	}
	return s.coercePostTypes(raw), nil
}

// GetMinimumSize returns the minimum image size, 0x0 when unset
func (s *Service) GetMinimumSize(ctx context.Context) (models.MinimumSize, error) {
	raw, ok, err := s.options.Get(ctx, models.OptionMinimumSize)
	if err != nil {
		return models.MinimumSize{}, services.WrapInternal("failed to read minimum size", err)
	}
	if !ok {
		return models.MinimumSize{}, nil
	}
	return coerceMinimumSize(raw), nil
}

// GetEnforcementStart returns the enforcement start, 14 days ago when unset
func (s *Service) GetEnforcementStart(ctx context.Context) (time.Time, error) {
	raw, ok, err := s.options.Get(ctx, models.OptionEnforcementStart)
	if err != nil {
		return time.Time{}, services.WrapInternal("failed to read enforcement start", err)
	}
	if !ok {
		return s.now().Add(-models.DefaultEnforcementLookback).Truncate(time.Second).UTC(), nil
	}
	return time.Unix(coerceInt(raw), 0).UTC(), nil
}

// Policy returns the whole policy as one snapshot, served from the cache
// when fresh
func (s *Service) Policy(ctx context.Context) (models.PolicyConfig, error) {
	if cached, ok := s.cache.Get(); ok {
		s.metrics.ObserveCache(true)
		return cached, nil
	}
	s.metrics.ObserveCache(false)
	gen := s.cache.Generation()

	types, err := s.GetEnforcedTypes(ctx)
	if err != nil {
		return models.PolicyConfig{}, err
	}
	size, err := s.GetMinimumSize(ctx)
	if err != nil {
		return models.PolicyConfig{}, err
	}
	start, err := s.GetEnforcementStart(ctx)
	if err != nil {
		return models.PolicyConfig{}, err
	}

	policy := models.PolicyConfig{
		EnforcedTypes:    types,
		MinimumSize:      size,
		EnforcementStart: start,
	}
	// a write during the load leaves the snapshot uncached
	s.cache.Set(policy, gen)
	return policy, nil
}

// SetEnforcedTypes replaces the enforced post types. Duplicates are dropped
// and an empty list disables enforcement for every type.
func (s *Service) SetEnforcedTypes(ctx context.Context, types []string) (models.PostTypeSet, error) {
	set := models.NewPostTypeSet()
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len(s.available) > 0 && !s.available.Contains(t) {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid post type", nil).
				WithDetail("post_type", t).
				WithDetail("available", s.available.Slice())
		}
		set[t] = struct{}{}
	}

	value, err := json.Marshal(set.Slice())
	if err != nil {
		return nil, services.WrapInternal("failed to encode post types", err)
	}
	if err := s.options.Set(ctx, models.OptionPostTypes, value); err != nil {
		return nil, services.WrapInternal("failed to store post types", err)
	}
	s.cache.Invalidate()

	s.logger.Info("enforced post types updated", zap.Strings("post_types", set.Slice()))
	return set, nil
}

// SetMinimumSize replaces the minimum image size
func (s *Service) SetMinimumSize(ctx context.Context, size models.MinimumSize) error {
	if size.Width < 0 || size.Height < 0 {
		return services.ErrInvalidMinimumSize
	}

	value, err := json.Marshal(size)
	if err != nil {
		return services.WrapInternal("failed to encode minimum size", err)
	}
	if err := s.options.Set(ctx, models.OptionMinimumSize, value); err != nil {
		return services.WrapInternal("failed to store minimum size", err)
	}
	s.cache.Invalidate()

	s.logger.Info("minimum image size updated",
		zap.Int("width", size.Width),
		zap.Int("height", size.Height))
	return nil
}

// Activate seeds the installation defaults. Options that already exist are
// left untouched. It returns the names of the options it wrote.
func (s *Service) Activate(ctx context.Context) ([]string, error) {
	now := s.now()
	seeds := []struct {
		name  string
		value interface{}
	}{
		{models.OptionPostTypes, []string{models.DefaultPostType}},
		{models.OptionMinimumSize, models.ActivationMinimumSize},
		{models.OptionEnforcementStart, now.Add(-models.ActivationEnforcementLookback).Unix()},
	}

	var written []string
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		for _, seed := range seeds {
			value, err := json.Marshal(seed.value)
			if err != nil {
				return fmt.Errorf("encode %s: %w", seed.name, err)
			}
			added, err := s.options.AddIfAbsent(ctx, seed.name, value)
			if err != nil {
				return err
			}
			if added {
				written = append(written, seed.name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, services.WrapInternal("failed to seed guard options", err)
	}
	s.cache.Invalidate()

	s.logger.Info("publish guard activated", zap.Strings("seeded", written))
	return written, nil
}

// CacheStats exposes the snapshot cache statistics
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// coercePostTypes keeps the string members of a JSON array. Anything that
// is not an array falls back to the default set.
func (s *Service) coercePostTypes(raw json.RawMessage) models.PostTypeSet {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn("stored post types are not a list, using default",
			zap.String("option", models.OptionPostTypes),
			zap.Error(err))
		return models.NewPostTypeSet(models.DefaultPostType)
	}
	set := models.NewPostTypeSet()
	for _, item := range items {
		var t string
		if err := json.Unmarshal(item, &t); err == nil && t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func coerceMinimumSize(raw json.RawMessage) models.MinimumSize {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.MinimumSize{}
	}
	return models.MinimumSize{
		Width:  int(coerceInt(fields["width"])),
		Height: int(coerceInt(fields["height"])),
	}.Normalize()
}

// coerceInt reads a JSON number or numeric string. A string is read up to
// its first non-digit; anything unreadable becomes 0.
func coerceInt(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0
		}
		return int64(n)
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0
	}
	return leadingInt(str)
}

func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

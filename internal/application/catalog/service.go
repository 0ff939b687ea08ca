package catalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"github.com/Zhima-Mochi/coffee-register/internal/observability/logctx"
	"golang.org/x/sync/singleflight"
)

const catalogService = "catalog-service"

// Source is the upstream product catalogue.
type Source interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	// Products lists active products; categoryID 0 means all categories.
	Products(ctx context.Context, categoryID int64) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
}

type entry struct {
	value   any
	expires time.Time
}

// Service serves the catalogue from a short-lived cache. Concurrent misses for the same key share one upstream call.
type Service struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	cache map[string]entry
	sfg   singleflight.Group

	log observability.Logger
}

// NewService caches upstream results for ttl; ttl <= 0 disables caching.
func NewService(src Source, ttl time.Duration, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		src:   src,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]entry),
		log:   tel.Logger().With(observability.F("service", catalogService)),
	}
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	v, err := s.load(ctx, "categories", func(ctx context.Context) (any, error) {
		return s.src.Categories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Category(nil), v.([]domain.Category)...), nil
}

func (s *Service) Products(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	v, err := s.load(ctx, "products:"+strconv.FormatInt(categoryID, 10), func(ctx context.Context) (any, error) {
		return s.src.Products(ctx, categoryID)
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Product(nil), v.([]domain.Product)...), nil
}

// Product returns a copy of the product; unknown ids yield domain.ErrNotFound.
func (s *Service) Product(ctx context.Context, id int64) (*domain.Product, error) {
	v, err := s.load(ctx, "product:"+strconv.FormatInt(id, 10), func(ctx context.Context) (any, error) {
		return s.src.Product(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*domain.Product)
	return &p, nil
}

// Invalidate drops every cached entry.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]entry)
	s.mu.Unlock()
}

// load shares one fetch per key, detached from any single caller's cancellation.
// Each caller stops waiting when its own ctx is done.
func (s *Service) load(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := s.cached(key); ok {
		return v, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := s.sfg.DoChan(key, func() (any, error) {
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if s.ttl > 0 {
			s.mu.Lock()
			s.cache[key] = entry{value: v, expires: s.now().Add(s.ttl)}
			s.mu.Unlock()
		}
		return v, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		logctx.FromOr(ctx, s.log).Warn("catalog_fetch_failed",
			observability.F("key", key),
			observability.F("shared", res.Shared),
			observability.F("error", res.Err.Error()),
		)
		return nil, res.Err
	}
	return res.Val, nil
}

func (s *Service) cached(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.cache[key]
	if !ok || !s.now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

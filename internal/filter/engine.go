// Package filter turns listing criteria into store predicates, applies the
// filters a store cannot express, ranks and paginates events, and computes
// facet counts for the filter panel.
package filter

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"kiddeo/internal/catalog"
	"kiddeo/internal/logger"
	"kiddeo/internal/models"
)

// EventStore is the record store the engine queries.
type EventStore interface {
	FindMany(ctx context.Context, p Predicate, order []OrderBy, page Pagination) ([]*models.Event, error)
	Count(ctx context.Context, p Predicate) (int, error)
	// FindFirst returns nil and no error when nothing matches.
	FindFirst(ctx context.Context, p Predicate, order []OrderBy) (*models.Event, error)
}

// PresetStore looks up active quick-filter presets.
type PresetStore interface {
	// FindPreset returns models.ErrPresetNotFound when no active preset exists.
	FindPreset(ctx context.Context, page, label string) (*models.FilterPreset, error)
}

type Engine struct {
	store   EventStore
	presets PresetStore
	catalog *catalog.Catalog
	cfg     Config
	log     logger.Logger
	tracer  trace.Tracer
}

// SearchResult is a page of events plus optional facet statistics.
type SearchResult struct {
	PageResult
	Facets *FacetStats `json:"facets,omitempty"`
}

// NewEngine builds an engine. presets may be nil, in which case quick
// filters are ignored.
func NewEngine(store EventStore, presets PresetStore, cat *catalog.Catalog, cfg Config, log logger.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("filter: event store is required")
	}
	if cat == nil {
		return nil, errors.New("filter: catalog is required")
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		store:   store,
		presets: presets,
		catalog: cat,
		cfg:     cfg,
		log:     log,
		tracer:  otel.Tracer("kiddeo/filter"),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Search runs a full listing query for a city.
func (e *Engine) Search(ctx context.Context, city string, criteria models.FilterCriteria) (*SearchResult, error) {
	ctx, span := e.tracer.Start(ctx, "filter.Search",
		trace.WithAttributes(
			attribute.String("city", city),
			attribute.Int("page", criteria.Page),
			attribute.Bool("facets", criteria.WithFacets),
		),
	)
	defer span.End()

	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	pageSize := criteria.PageSize
	if pageSize <= 0 {
		pageSize = e.cfg.PageSize
	}
	page, pageSize := normalizePage(criteria.Page, pageSize)

	quickAges, quickPrices := e.ExpandQuickFilters(ctx, criteria.PresetPageOrDefault(), criteria.QuickFilters)
	priceRanges := append(e.ExpandPriceBuckets(criteria.PriceBuckets), quickPrices...)
	pred := e.buildPredicate(city, criteria, quickAges)

	filterCategories := !e.cfg.CategoryPushdown && len(criteria.Categories) > 0
	residual := len(priceRanges) > 0 || filterCategories
	span.SetAttributes(
		attribute.Int("price.ranges", len(priceRanges)),
		attribute.Bool("residual", residual),
	)

	result := &SearchResult{}
	g, gctx := errgroup.WithContext(ctx)

	if criteria.WithFacets {
		g.Go(func() error {
			stats := e.ComputeFacetStats(gctx, city, criteria)
			result.Facets = &stats
			return nil
		})
	}

	g.Go(func() error {
		if !residual {
			skip := (page - 1) * pageSize
			items, err := e.store.FindMany(gctx, pred, RankingOrder, Pagination{Skip: skip, Take: pageSize})
			if err != nil {
				return fmt.Errorf("failed to fetch events: %w", err)
			}
			total, err := e.store.Count(gctx, pred)
			if err != nil {
				return fmt.Errorf("failed to count events: %w", err)
			}
			result.PageResult = newPageResult(items, total, page, pageSize)
			return nil
		}

		all, err := e.store.FindMany(gctx, pred, RankingOrder, Pagination{})
		if err != nil {
			return fmt.Errorf("failed to fetch events: %w", err)
		}
		if filterCategories {
			all = ApplyCategoryFilter(all, criteria.Categories)
		}
		all = ApplyPriceBuckets(all, priceRanges, activeAt(e.cfg.ActiveTier, e.cfg.Now()))
		result.PageResult = RankAndPaginate(all, page, pageSize)
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("total", result.TotalCount))
	return result, nil
}

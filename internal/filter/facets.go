package filter

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"kiddeo/internal/catalog"
	"kiddeo/internal/models"
)

// Facet is a selectable filter value with the number of matching events.
type Facet struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CategoryStat carries a category's counts and the ranking signals of its
// best event, used to order the category list.
type CategoryStat struct {
	catalog.CategoryMeta
	Count       int  `json:"count"`
	StaticCount int  `json:"staticCount"`
	Priority    *int `json:"priority,omitempty"`
	IsPromoted  bool `json:"isPromoted"`
	IsPopular   bool `json:"isPopular"`
	ViewCount   int  `json:"viewCount"`
}

type FacetStats struct {
	Categories []CategoryStat `json:"categories"`
	Ages       []Facet        `json:"ages"`
	Prices     []Facet        `json:"prices"`
}

// ComputeFacetStats counts, per category, age bucket and price bucket, how
// many events match the criteria without any facet selection applied. Every
// store call runs concurrently; a failing call leaves its facet at zero.
func (e *Engine) ComputeFacetStats(ctx context.Context, city string, criteria models.FilterCriteria) FacetStats {
	ctx, span := e.tracer.Start(ctx, "filter.ComputeFacetStats", trace.WithAttributes(attribute.String("city", city)))
	defer span.End()

	basePred := e.BuildBasePredicate(city, criteria.WithoutFacetSelections())
	staticPred := e.BuildBasePredicate(city, models.FilterCriteria{})

	cats := e.catalog.Categories()
	ageBuckets := e.catalog.FacetAgeBuckets()
	priceBuckets := e.catalog.PriceBuckets()

	stats := FacetStats{
		Categories: make([]CategoryStat, len(cats)),
		Ages:       make([]Facet, len(ageBuckets)),
		Prices:     make([]Facet, len(priceBuckets)),
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.FacetConcurrency)

	for i, cat := range cats {
		i := i
		stats.Categories[i].CategoryMeta = cat
		inCategory := Compare{Field: FieldCategory, Op: OpEq, Value: cat.Name}

		e.goFacet(ctx, &g, "category.count", func(ctx context.Context) error {
			n, err := e.store.Count(ctx, And{basePred, inCategory})
			if err != nil {
				return err
			}
			stats.Categories[i].Count = n
			return nil
		})
		e.goFacet(ctx, &g, "category.static", func(ctx context.Context) error {
			n, err := e.store.Count(ctx, And{staticPred, inCategory})
			if err != nil {
				return err
			}
			stats.Categories[i].StaticCount = n
			return nil
		})
		e.goFacet(ctx, &g, "category.top", func(ctx context.Context) error {
			top, err := e.store.FindFirst(ctx, And{basePred, inCategory}, RankingOrder)
			if err != nil || top == nil {
				return err
			}
			stats.Categories[i].Priority = top.Priority
			stats.Categories[i].IsPromoted = top.IsPromoted
			stats.Categories[i].IsPopular = top.IsPopular
			stats.Categories[i].ViewCount = top.ViewCount
			return nil
		})
	}

	for i, b := range ageBuckets {
		i := i
		stats.Ages[i] = Facet{Value: b.Slug, Label: b.Label}
		pred := And{basePred, ageFromWithin(b.Range)}

		e.goFacet(ctx, &g, "age", func(ctx context.Context) error {
			n, err := e.store.Count(ctx, pred)
			if err != nil {
				return err
			}
			stats.Ages[i].Count = n
			return nil
		})
	}

	for i, b := range priceBuckets {
		stats.Prices[i] = Facet{Value: b.Slug, Label: b.Label}
	}
	if len(priceBuckets) > 0 {
		// Price is derived from ticket data, so one fetch is counted in memory.
		e.goFacet(ctx, &g, "price", func(ctx context.Context) error {
			events, err := e.store.FindMany(ctx, basePred, nil, Pagination{})
			if err != nil {
				return err
			}
			active := activeAt(e.cfg.ActiveTier, e.cfg.Now())
			for i, b := range priceBuckets {
				stats.Prices[i].Count = len(ApplyPriceBuckets(events, []models.Range{b.Range}, active))
			}
			return nil
		})
	}

	g.Wait()

	sortCategoryStats(stats.Categories)
	return stats
}

func (e *Engine) goFacet(ctx context.Context, g *errgroup.Group, name string, fn func(context.Context) error) {
	g.Go(func() error {
		ctx, span := e.tracer.Start(ctx, "filter.facet", trace.WithAttributes(attribute.String("facet", name)))
		defer span.End()

		if err := fn(ctx); err != nil {
			span.RecordError(err)
			e.log.Warn("facet computation failed", "facet", name, "error", err)
		}
		return nil
	})
}

func ageFromWithin(r models.Range) Predicate {
	p := And{}
	if r.Min != nil {
		p = append(p, Compare{Field: FieldAgeFrom, Op: OpGte, Value: int(*r.Min)})
	}
	if r.Max != nil {
		p = append(p, Compare{Field: FieldAgeFrom, Op: OpLte, Value: int(*r.Max)})
	}
	return p
}

func sortCategoryStats(stats []CategoryStat) {
	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		switch {
		case a.Priority != nil && b.Priority == nil:
			return true
		case a.Priority == nil && b.Priority != nil:
			return false
		case a.Priority != nil && *a.Priority != *b.Priority:
			return *a.Priority < *b.Priority
		}
		if a.IsPromoted != b.IsPromoted {
			return a.IsPromoted
		}
		if a.IsPopular != b.IsPopular {
			return a.IsPopular
		}
		if a.ViewCount != b.ViewCount {
			return a.ViewCount > b.ViewCount
		}
		return a.Count > b.Count
	})
}

// Package catalog holds the static listing configuration: cities, age and
// price buckets, and category display metadata. A Catalog is immutable once
// loaded and safe for concurrent use.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"kiddeo/internal/models"
)

//go:embed default.yaml
var defaultYAML []byte

// City maps a URL slug to the city name stored on events.
type City struct {
	Slug string `yaml:"slug" json:"slug"`
	Name string `yaml:"name" json:"name"`
}

// CategoryMeta is the display metadata of a listing category.
type CategoryMeta struct {
	Name       string `yaml:"name" json:"name"`
	Slug       string `yaml:"slug" json:"slug"`
	Icon       string `yaml:"icon" json:"icon"`
	Color      string `yaml:"color" json:"color"`
	CoverImage string `yaml:"cover_image" json:"coverImage"`
	SortOrder  int    `yaml:"sort_order" json:"sortOrder"`
}

type file struct {
	Cities          []City               `yaml:"cities"`
	AgeBuckets      []models.AgeBucket   `yaml:"age_buckets"`
	FacetAgeBuckets []models.AgeBucket   `yaml:"facet_age_buckets"`
	PriceBuckets    []models.PriceBucket `yaml:"price_buckets"`
	Categories      []CategoryMeta       `yaml:"categories"`
}

type Catalog struct {
	cities          map[string]string
	ageBuckets      []models.AgeBucket
	facetAgeBuckets []models.AgeBucket
	priceBuckets    []models.PriceBucket
	categories      []CategoryMeta
	ageBySlug       map[string]int
	priceBySlug     map[string]int
	ageByLabel      map[string]string
}

// Load reads a catalog from path, or returns the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		cities:          make(map[string]string, len(f.Cities)),
		ageBuckets:      f.AgeBuckets,
		facetAgeBuckets: f.FacetAgeBuckets,
		priceBuckets:    f.PriceBuckets,
		categories:      f.Categories,
		ageBySlug:       make(map[string]int, len(f.AgeBuckets)),
		priceBySlug:     make(map[string]int, len(f.PriceBuckets)),
		ageByLabel:      make(map[string]string),
	}

	for _, city := range f.Cities {
		if err := models.ValidateSlug(city.Slug); err != nil {
			return nil, fmt.Errorf("city %q: %w", city.Slug, err)
		}
		if _, dup := c.cities[city.Slug]; dup {
			return nil, fmt.Errorf("duplicate city slug %q", city.Slug)
		}
		c.cities[city.Slug] = city.Name
	}

	for i, b := range f.AgeBuckets {
		if err := validateBucket(b.Slug, b.Range); err != nil {
			return nil, fmt.Errorf("age bucket: %w", err)
		}
		if _, dup := c.ageBySlug[b.Slug]; dup {
			return nil, fmt.Errorf("duplicate age bucket slug %q", b.Slug)
		}
		c.ageBySlug[b.Slug] = i
		c.ageByLabel[normalizeLabel(b.Label)] = b.Slug
		for _, alias := range b.Aliases {
			c.ageByLabel[normalizeLabel(alias)] = b.Slug
		}
	}

	for _, b := range f.FacetAgeBuckets {
		if err := validateBucket(b.Slug, b.Range); err != nil {
			return nil, fmt.Errorf("facet age bucket: %w", err)
		}
	}

	for i, b := range f.PriceBuckets {
		if err := validateBucket(b.Slug, b.Range); err != nil {
			return nil, fmt.Errorf("price bucket: %w", err)
		}
		if _, dup := c.priceBySlug[b.Slug]; dup {
			return nil, fmt.Errorf("duplicate price bucket slug %q", b.Slug)
		}
		c.priceBySlug[b.Slug] = i
	}

	seen := make(map[string]bool, len(f.Categories))
	for _, cat := range f.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return nil, fmt.Errorf("category without a name")
		}
		if seen[cat.Name] {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true
	}

	return c, nil
}

func validateBucket(slug string, r models.Range) error {
	if err := models.ValidateSlug(slug); err != nil {
		return fmt.Errorf("%q: %w", slug, err)
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("%q: min exceeds max", slug)
	}
	return nil
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// CityName resolves a city slug. Unknown slugs are returned verbatim.
func (c *Catalog) CityName(slug string) string {
	if name, ok := c.cities[slug]; ok {
		return name
	}
	return slug
}

// Cities returns the configured cities ordered by slug.
func (c *Catalog) Cities() []City {
	out := make([]City, 0, len(c.cities))
	for slug, name := range c.cities {
		out = append(out, City{Slug: slug, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func (c *Catalog) AgeBucket(slug string) (models.AgeBucket, bool) {
	i, ok := c.ageBySlug[slug]
	if !ok {
		return models.AgeBucket{}, false
	}
	return c.ageBuckets[i], true
}

func (c *Catalog) PriceBucket(slug string) (models.PriceBucket, bool) {
	i, ok := c.priceBySlug[slug]
	if !ok {
		return models.PriceBucket{}, false
	}
	return c.priceBuckets[i], true
}

// AgeSlugForLabel maps a human label (or alias) to an age bucket slug,
// ignoring case and surrounding whitespace.
func (c *Catalog) AgeSlugForLabel(label string) (string, bool) {
	slug, ok := c.ageByLabel[normalizeLabel(label)]
	return slug, ok
}

func (c *Catalog) AgeBuckets() []models.AgeBucket {
	return append([]models.AgeBucket(nil), c.ageBuckets...)
}

// FacetAgeBuckets returns the coarser buckets shown with counts on the filter panel.
func (c *Catalog) FacetAgeBuckets() []models.AgeBucket {
	return append([]models.AgeBucket(nil), c.facetAgeBuckets...)
}

func (c *Catalog) PriceBuckets() []models.PriceBucket {
	return append([]models.PriceBucket(nil), c.priceBuckets...)
}

// Categories returns category metadata in file order.
func (c *Catalog) Categories() []CategoryMeta {
	return append([]CategoryMeta(nil), c.categories...)
}

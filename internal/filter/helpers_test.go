package filter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kiddeo/internal/catalog"
	"kiddeo/internal/filter"
	"kiddeo/internal/models"
	"kiddeo/internal/repositories"
)

var testNow = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

func testConfig() filter.Config {
	cfg := filter.DefaultConfig()
	cfg.Now = func() time.Time { return testNow }
	return cfg
}

func newTestEngine(t *testing.T, cfg filter.Config, presets filter.PresetStore, events ...*models.Event) *filter.Engine {
	t.Helper()
	engine, err := filter.NewEngine(repositories.NewMemoryEventRepository(events...), presets, catalog.Default(), cfg, nil)
	require.NoError(t, err)
	return engine
}

type eventOpt func(*models.Event)

func newEvent(title string, opts ...eventOpt) *models.Event {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	e := &models.Event{
		Title:     title,
		City:      "Москва",
		Category:  "Концерты",
		Status:    models.StatusActive,
		StartDate: start,
		EndDate:   start.Add(2 * time.Hour),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func withTickets(raw string) eventOpt {
	return func(e *models.Event) { e.Tickets = &raw }
}

func withPaid(paid bool) eventOpt {
	return func(e *models.Event) { e.IsPaid = &paid }
}

func withAgeGroups(groups string) eventOpt {
	return func(e *models.Event) { e.AgeGroups = groups }
}

func withAgeFrom(age int) eventOpt {
	return func(e *models.Event) { e.AgeFrom = &age }
}

func withCategory(name string) eventOpt {
	return func(e *models.Event) { e.Category = name }
}

func withDates(start, end time.Time) eventOpt {
	return func(e *models.Event) { e.StartDate, e.EndDate = start, end }
}

func withPriority(p int) eventOpt {
	return func(e *models.Event) { e.Priority = &p }
}

func date(s string) *time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func titles(events []*models.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

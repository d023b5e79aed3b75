package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiddeo/internal/filter"
	"kiddeo/internal/models"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestEventsList(t *testing.T) {
	h := newTestRouter(t, nil,
		newEvent("Концерт в Москве", "Москва"),
		newEvent("Второй концерт", "Москва"),
		newEvent("Концерт в Казани", "Казань"),
	)

	rr := get(t, h, "/api/moskva/events")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var res filter.SearchResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 2, res.TotalCount)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 1, res.Page)
	assert.Nil(t, res.Facets)
	for _, e := range res.Items {
		assert.Equal(t, "Москва", e.City)
	}
}

func TestEventsList_Pagination(t *testing.T) {
	var events []*models.Event
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		events = append(events, newEvent(title, "Москва"))
	}
	h := newTestRouter(t, nil, events...)

	rr := get(t, h, "/api/moskva/events?page=3&per_page=2")
	require.Equal(t, http.StatusOK, rr.Code)

	var res filter.SearchResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 5, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	assert.Len(t, res.Items, 1)
	assert.False(t, res.HasMore)
}

func TestEventsList_FreeBucket(t *testing.T) {
	free := `[{"id":"t1","price":0}]`
	paid := `[{"id":"t1","price":900}]`
	h := newTestRouter(t, nil,
		newEvent("Бесплатно", "Москва", func(e *models.Event) { e.Tickets = &free }),
		newEvent("Платно", "Москва", func(e *models.Event) { e.Tickets = &paid }),
	)

	rr := get(t, h, "/api/moskva/events?price=free")
	require.Equal(t, http.StatusOK, rr.Code)

	var res filter.SearchResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Бесплатно", res.Items[0].Title)
}

func TestEventsList_WithFacets(t *testing.T) {
	h := newTestRouter(t, nil, newEvent("Концерт", "Москва"))

	rr := get(t, h, "/api/moskva/events?facets=true")
	require.Equal(t, http.StatusOK, rr.Code)

	var res filter.SearchResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotNil(t, res.Facets)
	assert.NotEmpty(t, res.Facets.Categories)
}

func TestEventsList_InvalidInput(t *testing.T) {
	h := newTestRouter(t, nil)

	for _, path := range []string{
		"/api/moskva/events?date_from=tomorrow",
		"/api/moskva/events?age_min=10&age_max=2",
		"/api/moskva/events?per_page=1000",
		"/api/moskva/events?price=free&page=500000000000000000",
	} {
		rr := get(t, h, path)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "invalid input", path)
	}
}

func TestEventsFacets(t *testing.T) {
	h := newTestRouter(t, nil,
		newEvent("Концерт", "Москва"),
		newEvent("Спектакль", "Москва", func(e *models.Event) { e.Category = "Спектакли" }),
	)

	rr := get(t, h, "/api/moskva/events/facets?category=Концерты")
	require.Equal(t, http.StatusOK, rr.Code)

	var stats filter.FacetStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))

	counts := map[string]int{}
	for _, c := range stats.Categories {
		counts[c.Name] = c.Count
	}
	// category selections do not narrow category counts
	assert.Equal(t, 1, counts["Концерты"])
	assert.Equal(t, 1, counts["Спектакли"])
}

func TestCategoriesAndCities(t *testing.T) {
	h := newTestRouter(t, nil)

	rr := get(t, h, "/api/categories")
	require.Equal(t, http.StatusOK, rr.Code)
	var cats []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cats))
	assert.NotEmpty(t, cats)
	assert.Equal(t, "Спектакли", cats[0]["name"])

	rr = get(t, h, "/api/cities")
	require.Equal(t, http.StatusOK, rr.Code)
	var cities []map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cities))
	require.Len(t, cities, 5)
	assert.Equal(t, "ekaterinburg", cities[0]["slug"])
}

package jsonapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	ids := make([]string, 85)
	for i := range ids {
		ids[i] = fmt.Sprintf("route-%d", i)
	}
	groups := chunk(ids, FilterChunkSize)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 40)
	assert.Len(t, groups[1], 40)
	assert.Len(t, groups[2], 5)

	assert.Empty(t, chunk(nil, FilterChunkSize))
}

func TestRoutesChunkedRequests(t *testing.T) {
	var gotFilters []string
	var gotKeys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKeys = append(gotKeys, r.Header.Get("x-api-key"))
		filter := r.URL.Query().Get("filter[id]")
		gotFilters = append(gotFilters, filter)
		var data []Resource
		for _, id := range strings.Split(filter, ",") {
			data = append(data, Resource{ID: id, Type: "route", Attributes: map[string]any{"long_name": "Line " + id}})
		}
		_ = json.NewEncoder(w).Encode(document{Data: data})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 2*time.Second, nil)

	ids := make([]string, 85)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%d", i)
	}
	routes, err := c.Routes(context.Background(), ids)
	require.NoError(t, err)

	assert.Len(t, routes, 85)
	require.Len(t, gotFilters, 3, "85 ids must split into 3 requests of at most 40")
	for _, f := range gotFilters {
		assert.LessOrEqual(t, len(strings.Split(f, ",")), FilterChunkSize)
	}
	for _, k := range gotKeys {
		assert.Equal(t, "secret", k)
	}
}

func TestVehiclesParsesRelationships(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Relationship linkage is served without inclusion; the request
		// must not ask for full included resources it would discard.
		assert.Empty(t, r.URL.Query().Get("include"))
		_, _ = w.Write([]byte(`{
			"data": [{
				"id": "y1234",
				"type": "vehicle",
				"attributes": {"latitude": 42.36, "longitude": -71.06, "bearing": 180, "label": "1234", "updated_at": "2024-05-01T12:00:00-04:00"},
				"relationships": {"route": {"data": {"id": "Red", "type": "route"}}}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 2*time.Second, nil)
	vehicles, err := c.Vehicles(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)

	v := vehicles[0]
	assert.Equal(t, "y1234", v.ID)
	assert.Equal(t, "Red", v.RelatedID("route"))
	lat, ok := v.AttrFloat("latitude")
	require.True(t, ok)
	assert.Equal(t, 42.36, lat)
	assert.Equal(t, "1234", v.AttrString("label"))
}

func TestGetSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [], "errors": [{"status": "403", "code": "forbidden", "detail": "invalid key"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", 2*time.Second, nil)
	_, err := c.Alerts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestGetNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 2*time.Second, nil)
	_, err := c.Alerts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
}

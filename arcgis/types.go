package arcgis

import "fmt"

// Feature is one feature returned by a query endpoint: an opaque attribute
// map plus an optional point geometry.
type Feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *Geometry      `json:"geometry,omitempty"`
}

// Geometry is a point in the requested output spatial reference.
// X is longitude, Y latitude for WGS84 output.
type Geometry struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type queryResponse struct {
	Features              []Feature `json:"features"`
	ExceededTransferLimit bool      `json:"exceededTransferLimit"`
	Count                 *int      `json:"count,omitempty"`
	Error                 *apiError `json:"error,omitempty"`
}

// apiError is the in-band error envelope feature servers return with a 200
// status.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("feature server error %d: %s", e.Code, e.Message)
}

// Page bounds a paginated fetch. Zero values disable the corresponding cap.
type Page struct {
	Size       int
	MaxPages   int
	MaxRecords int
}

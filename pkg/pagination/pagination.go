// Package pagination reads page and limit query parameters.
package pagination

import (
	"net/http"
	"strconv"
)

// MaxLimit caps the page size a client may ask for.
const MaxLimit = 100

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// FromRequest reads ?page= and ?limit= (or the older ?per_page=) from r.
// Missing, non-numeric, or out-of-range values fall back to page 1 and
// defaultLimit.
func FromRequest(r *http.Request, defaultLimit int) Params {
	p := Params{Page: 1, Limit: defaultLimit}
	q := r.URL.Query()

	if v, ok := positive(q.Get("page")); ok {
		p.Page = v
	}

	raw := q.Get("limit")
	if raw == "" {
		raw = q.Get("per_page")
	}
	if v, ok := positive(raw); ok && v <= MaxLimit {
		p.Limit = v
	}
	return p
}

func positive(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

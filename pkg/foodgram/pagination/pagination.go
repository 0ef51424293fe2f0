// Package pagination implements page-number pagination for list endpoints.
package pagination

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"gorm.io/gorm"
)

// Paginator holds the page size policy
type Paginator struct {
	DefaultSize int
	MaxSize     int
}

// New returns a paginator; non-positive sizes fall back to 6 and 10
func New(defaultSize, maxSize int) Paginator {
	if defaultSize <= 0 {
		defaultSize = 6
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	return Paginator{DefaultSize: defaultSize, MaxSize: maxSize}
}

// Params is a parsed page request
type Params struct {
	Page  int
	Limit int
}

// Page is the envelope returned by every paginated endpoint
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Parse reads ?page and ?limit. A malformed or non-positive page is
// reported as not found; a bad limit falls back to the default.
func (p Paginator) Parse(c *gin.Context) (Params, error) {
	params := Params{Page: 1, Limit: p.DefaultSize}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Params{}, apierror.NewNotFound("Page")
		}
		params.Page = page
	}

	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			params.Limit = min(limit, p.MaxSize)
		}
	}

	// Keeps page*limit well inside int so offsets cannot wrap
	if params.Page > math.MaxInt32/params.Limit {
		return Params{}, apierror.NewNotFound("Page")
	}
	return params, nil
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Scope applies the page window to a query
func (p Params) Scope(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.Limit)
}

// Check rejects pages past the end. The first page is always valid so
// empty collections still list.
func (p Params) Check(count int64) error {
	if p.Page > 1 && int64(p.Page-1)*int64(p.Limit) >= count {
		return apierror.NewNotFound("Page")
	}
	return nil
}

// NewPage builds the response envelope with absolute next/previous links
func NewPage[T any](c *gin.Context, p Params, count int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: count, Results: results}

	if int64(p.Page)*int64(p.Limit) < count {
		next := pageURL(c.Request, p.Page+1)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(c.Request, p.Page-1)
		page.Previous = &prev
	}
	return page
}

func pageURL(r *http.Request, page int) string {
	u := url.URL{
		Scheme: "http",
		Host:   r.Host,
		Path:   r.URL.Path,
	}
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		u.Scheme = proto
	}

	q := r.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

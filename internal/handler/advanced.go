package handler

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/msomdec/userdesk/internal/domain"
	"github.com/msomdec/userdesk/internal/service"
)

const (
	defaultPage  = 1
	defaultLimit = 25
	maxLimit     = 100
)

const advancedResultsKey contextKey = "advancedResults"

// AdvancedResult is the body of a list response.
type AdvancedResult struct {
	Success    bool       `json:"success"`
	Count      int        `json:"count"`
	Pagination Pagination `json:"pagination"`
	Data       []any      `json:"data"`
}

// Pagination links to the neighbouring pages when they exist.
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// PageRef identifies one page of a listing.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// AdvancedResultsFromContext returns the listing prepared by AdvancedResults,
// or nil when the middleware did not run.
func AdvancedResultsFromContext(ctx context.Context) *AdvancedResult {
	res, _ := ctx.Value(advancedResultsKey).(*AdvancedResult)
	return res
}

// AdvancedResults runs the user listing described by the query string and
// stores the result in the request context for next.
//
//	?role=admin                  equality filter
//	?role[in]=user,publisher     list filter
//	?sort=-createdAt,name        ordering, "-" for descending
//	?select=name,email           field projection
//	?page=2&limit=10             paging
func AdvancedResults(users *service.UserService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, fields, err := parseUserQuery(r.URL.Query())
		if err != nil {
			writeFailure(w, r, err)
			return
		}

		page, err := users.List(r.Context(), q)
		if err != nil {
			writeFailure(w, r, err)
			return
		}

		res := &AdvancedResult{
			Success: true,
			Count:   len(page.Users),
			Data:    make([]any, 0, len(page.Users)),
		}
		for i := range page.Users {
			dto := toUserDTO(&page.Users[i])
			if len(fields) > 0 {
				res.Data = append(res.Data, dto.project(fields))
			} else {
				res.Data = append(res.Data, dto)
			}
		}
		if q.Page*q.Limit < page.Total {
			res.Pagination.Next = &PageRef{Page: q.Page + 1, Limit: q.Limit}
		}
		if q.Offset() > 0 {
			res.Pagination.Prev = &PageRef{Page: q.Page - 1, Limit: q.Limit}
		}

		ctx := context.WithValue(r.Context(), advancedResultsKey, res)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseUserQuery(values url.Values) (domain.UserQuery, []string, error) {
	q := domain.UserQuery{
		Page:  positiveInt(values.Get("page"), defaultPage),
		Limit: min(positiveInt(values.Get("limit"), defaultLimit), maxLimit),
	}
	// Keep page*limit within int so offsets and page links cannot wrap.
	if maxPage := math.MaxInt / q.Limit; q.Page > maxPage {
		q.Page = maxPage
	}

	var fields []string
	if s := values.Get("select"); s != "" {
		fields = splitList(s)
	}

	for _, f := range splitList(values.Get("sort")) {
		desc := strings.HasPrefix(f, "-")
		q.Sort = append(q.Sort, domain.SortField{Field: strings.TrimPrefix(f, "-"), Desc: desc})
	}

	for key, vals := range values {
		switch key {
		case "select", "sort", "page", "limit":
			continue
		}

		field, op, hasOp := strings.Cut(key, "[")
		if hasOp {
			if op != "in]" {
				return q, nil, domain.Errorf(domain.ErrInvalidInput, "Unsupported filter operator on %s", field)
			}
			var list []string
			for _, v := range vals {
				list = append(list, splitList(v)...)
			}
			q.Filters = append(q.Filters, domain.Filter{Field: field, Values: list})
			continue
		}
		q.Filters = append(q.Filters, domain.Filter{Field: field, Values: vals[:1]})
	}
	return q, fields, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

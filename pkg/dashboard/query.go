package dashboard

import (
	"net/url"
	"strconv"

	"github.com/B0TMirage/cryptopulse/pkg/apperr"
	"github.com/B0TMirage/cryptopulse/pkg/pricefeed"
)

type SortKey string

const (
	SortRank        SortKey = "market_cap_rank"
	SortName        SortKey = "name"
	SortSymbol      SortKey = "symbol"
	SortPrice       SortKey = "current_price"
	SortChange24h   SortKey = "price_change_percentage_24h"
	SortMarketCap   SortKey = "market_cap"
	SortTotalVolume SortKey = "total_volume"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortRank, SortName, SortSymbol, SortPrice, SortChange24h, SortMarketCap, SortTotalVolume:
		return true
	}
	return false
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type SortState struct {
	Key SortKey   `json:"key"`
	Dir Direction `json:"dir"`
}

// Toggle returns the state after a click on the column header for key: the
// same key flips direction, a new key starts ascending.
func (s SortState) Toggle(key SortKey) SortState {
	if s.Key == key {
		if s.Dir == Asc {
			return SortState{Key: key, Dir: Desc}
		}
		return SortState{Key: key, Dir: Asc}
	}
	return SortState{Key: key, Dir: Asc}
}

const (
	DefaultPage    = 1
	DefaultPerPage = 100
	DefaultLimit   = 10
)

type Query struct {
	Page    int       `json:"page"`
	PerPage int       `json:"perPage"`
	Search  string    `json:"q,omitempty"`
	Sort    SortState `json:"sort"`
	// Limit is how many rows are shown; 0 shows all.
	Limit int `json:"limit"`
}

func DefaultQuery() Query {
	return Query{
		Page:    DefaultPage,
		PerPage: DefaultPerPage,
		Sort:    SortState{Key: SortRank, Dir: Asc},
		Limit:   DefaultLimit,
	}
}

// ParseQuery reads page, per_page, q, sort, dir and limit from v. A toggle
// parameter is applied on top of sort and dir the way a header click would.
func ParseQuery(v url.Values) (Query, error) {
	q := DefaultQuery()

	var err error
	if q.Page, err = intParam(v, "page", q.Page); err != nil {
		return Query{}, err
	}
	if q.Page < 1 {
		return Query{}, apperr.Validation("page must be at least 1")
	}
	if q.PerPage, err = intParam(v, "per_page", q.PerPage); err != nil {
		return Query{}, err
	}
	if q.PerPage < 1 || q.PerPage > pricefeed.MaxPerPage {
		return Query{}, apperr.Validation("per_page must be between 1 and %d", pricefeed.MaxPerPage)
	}
	if q.Limit, err = intParam(v, "limit", q.Limit); err != nil {
		return Query{}, err
	}
	if q.Limit < 0 {
		return Query{}, apperr.Validation("limit must not be negative")
	}

	q.Search = v.Get("q")

	if key := v.Get("sort"); key != "" {
		q.Sort.Key = SortKey(key)
		if !q.Sort.Key.Valid() {
			return Query{}, apperr.Validation("unknown sort key %q", key)
		}
	}
	switch dir := Direction(v.Get("dir")); dir {
	case "":
	case Asc, Desc:
		q.Sort.Dir = dir
	default:
		return Query{}, apperr.Validation("dir must be asc or desc")
	}

	if key := v.Get("toggle"); key != "" {
		if !SortKey(key).Valid() {
			return Query{}, apperr.Validation("unknown sort key %q", key)
		}
		q.Sort = q.Sort.Toggle(SortKey(key))
	}

	return q, nil
}

func intParam(v url.Values, name string, def int) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	return n, nil
}

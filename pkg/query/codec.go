package query

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/gorilla/schema"

	"github.com/alumninet/directory-finder/pkg/types"
)

// Address-bar contract. Set fields repeat their key, the verified flag
// is only present when true and defaulted fields are omitted entirely,
// so the shortest URL is the default search.
const (
	keySearch   = "search"
	keyCompany  = "company"
	keySkill    = "skill"
	keyLocation = "location"
	keyRole     = "role"
	keyVerified = "verified"
	keyYears    = "years"
	keySort     = "sort"
	keyPage     = "page"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

type scalarParams struct {
	Search   string `schema:"search"`
	Sort     string `schema:"sort"`
	Page     int    `schema:"page"`
	Verified bool   `schema:"verified"`
}

// Parse builds criteria from an address-bar query. Unknown keys are
// ignored and malformed values drop their field instead of failing the
// whole parse, a shared link must always load.
func Parse(values url.Values, defaults types.FilterCriteria) types.FilterCriteria {
	c := defaults

	var scalars scalarParams
	// decode errors leave the offending field at its zero value, which
	// is exactly the drop-the-filter behaviour we want
	_ = decoder.Decode(&scalars, values)

	c.FreeText = scalars.Search
	c.Sort = types.ParseSortKey(scalars.Sort)
	if scalars.Page > 0 {
		c.Page = scalars.Page
	} else {
		c.Page = 1
	}
	c.VerifiedOnly = scalars.Verified

	c.Companies = types.NormalizeSet(values[keyCompany])
	c.Skills = types.NormalizeSet(values[keySkill])
	c.Locations = types.NormalizeSet(values[keyLocation])
	c.Roles = types.NormalizeSet(values[keyRole])

	c.Years = parseYears(values.Get(keyYears))

	c.Sanitize()
	return c
}

// ParseString tolerates a leading "?" and a partially malformed query,
// url.ParseQuery keeps whatever pairs it could read.
func ParseString(qs string, defaults types.FilterCriteria) types.FilterCriteria {
	if len(qs) > 0 && qs[0] == '?' {
		qs = qs[1:]
	}
	values, _ := url.ParseQuery(qs)
	return Parse(values, defaults)
}

func parseYears(v string) *types.YearRange {
	if v == "" {
		return nil
	}
	var minYear, maxYear int
	if _, err := fmt.Sscanf(v, "%d-%d", &minYear, &maxYear); err != nil {
		return nil
	}
	if minYear > maxYear {
		return nil
	}
	return &types.YearRange{Min: minYear, Max: maxYear}
}

// Encode is the inverse of Parse over the semantic fields.
func Encode(c types.FilterCriteria) url.Values {
	values := url.Values{}
	if c.FreeText != "" {
		values.Set(keySearch, c.FreeText)
	}
	for _, v := range c.Companies {
		values.Add(keyCompany, v)
	}
	for _, v := range c.Skills {
		values.Add(keySkill, v)
	}
	for _, v := range c.Locations {
		values.Add(keyLocation, v)
	}
	for _, v := range c.Roles {
		values.Add(keyRole, v)
	}
	if c.VerifiedOnly {
		values.Set(keyVerified, "true")
	}
	if c.Years != nil {
		values.Set(keyYears, fmt.Sprintf("%d-%d", c.Years.Min, c.Years.Max))
	}
	if c.Sort != types.SortRelevance && c.Sort != "" {
		values.Set(keySort, string(c.Sort))
	}
	if c.Page > 1 {
		values.Set(keyPage, strconv.Itoa(c.Page))
	}
	return values
}

// EncodeString returns the canonical query string: keys sorted, set
// values already normalized, stable enough to double as a cache key.
func EncodeString(c types.FilterCriteria) string {
	return Encode(c).Encode()
}

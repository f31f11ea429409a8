package types

import (
	"fmt"
	"slices"
	"strings"
)

type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortName      SortKey = "name"
	SortRecent    SortKey = "recent"
)

// ParseSortKey falls back to relevance for unknown values so a stale or
// hand-edited query string never rejects the whole request.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortName, SortRecent, SortRelevance:
		return SortKey(s)
	}
	return SortRelevance
}

type SetField string

const (
	FieldCompanies SetField = "company"
	FieldSkills    SetField = "skill"
	FieldLocations SetField = "location"
	FieldRoles     SetField = "role"
)

// YearRange is inclusive on both ends, Min <= Max always holds.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const DefaultPageSize = 12

// FilterCriteria is the full search state of the directory screen.
// Set fields are kept sorted and deduplicated so two criteria that mean
// the same thing compare equal regardless of click order.
type FilterCriteria struct {
	FreeText     string     `json:"search"`
	Companies    []string   `json:"companies,omitempty"`
	Skills       []string   `json:"skills,omitempty"`
	Locations    []string   `json:"locations,omitempty"`
	Roles        []string   `json:"roles,omitempty"`
	VerifiedOnly bool       `json:"verifiedOnly,omitempty"`
	Years        *YearRange `json:"years,omitempty"`
	Sort         SortKey    `json:"sort"`
	Page         int        `json:"page"`
	PageSize     int        `json:"pageSize"`
}

func DefaultCriteria(pageSize int) FilterCriteria {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return FilterCriteria{
		Sort:     SortRelevance,
		Page:     1,
		PageSize: pageSize,
	}
}

func (c FilterCriteria) set(field SetField) ([]string, error) {
	switch field {
	case FieldCompanies:
		return c.Companies, nil
	case FieldSkills:
		return c.Skills, nil
	case FieldLocations:
		return c.Locations, nil
	case FieldRoles:
		return c.Roles, nil
	}
	return nil, &ValidationError{Field: string(field), Reason: "unknown filter field"}
}

func (c FilterCriteria) withSet(field SetField, values []string) FilterCriteria {
	switch field {
	case FieldCompanies:
		c.Companies = values
	case FieldSkills:
		c.Skills = values
	case FieldLocations:
		c.Locations = values
	case FieldRoles:
		c.Roles = values
	}
	return c
}

// NormalizeSet trims, drops empties, deduplicates and sorts.
func NormalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Every mutator below except WithPage starts a new search, so the page
// resets to 1.

func (c FilterCriteria) WithFreeText(q string) FilterCriteria {
	c.FreeText = strings.TrimSpace(q)
	c.Page = 1
	return c
}

func (c FilterCriteria) ToggleSetMember(field SetField, value string) (FilterCriteria, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return c, &ValidationError{Field: string(field), Reason: "empty value"}
	}
	current, err := c.set(field)
	if err != nil {
		return c, err
	}
	next := make([]string, 0, len(current)+1)
	found := false
	for _, v := range current {
		if v == value {
			found = true
			continue
		}
		next = append(next, v)
	}
	if !found {
		next = append(next, value)
	}
	c = c.withSet(field, NormalizeSet(next))
	c.Page = 1
	return c, nil
}

func (c FilterCriteria) WithVerifiedOnly(v bool) FilterCriteria {
	c.VerifiedOnly = v
	c.Page = 1
	return c
}

// WithYearRange rejects an inverted range instead of swapping it, the
// caller shows the inline error. Passing nil clears the filter.
func (c FilterCriteria) WithYearRange(r *YearRange) (FilterCriteria, error) {
	if r != nil && r.Min > r.Max {
		return c, &ValidationError{Field: "years", Reason: "min after max"}
	}
	if r == nil {
		c.Years = nil
	} else {
		rr := *r
		c.Years = &rr
	}
	c.Page = 1
	return c, nil
}

func (c FilterCriteria) WithSort(key SortKey) FilterCriteria {
	c.Sort = ParseSortKey(string(key))
	c.Page = 1
	return c
}

func (c FilterCriteria) WithPage(n int) FilterCriteria {
	if n < 1 {
		n = 1
	}
	c.Page = n
	return c
}

func (c FilterCriteria) ClearAll() FilterCriteria {
	return DefaultCriteria(c.PageSize)
}

// HasFilters reports whether anything narrows the result set.
func (c FilterCriteria) HasFilters() bool {
	return c.FreeText != "" ||
		len(c.Companies) > 0 || len(c.Skills) > 0 ||
		len(c.Locations) > 0 || len(c.Roles) > 0 ||
		c.VerifiedOnly || c.Years != nil
}

// Equal compares the semantic fields, not any particular serialization.
func (c FilterCriteria) Equal(other FilterCriteria) bool {
	if c.FreeText != other.FreeText ||
		c.VerifiedOnly != other.VerifiedOnly ||
		c.Sort != other.Sort ||
		c.Page != other.Page ||
		c.PageSize != other.PageSize {
		return false
	}
	if !slices.Equal(c.Companies, other.Companies) ||
		!slices.Equal(c.Skills, other.Skills) ||
		!slices.Equal(c.Locations, other.Locations) ||
		!slices.Equal(c.Roles, other.Roles) {
		return false
	}
	if (c.Years == nil) != (other.Years == nil) {
		return false
	}
	if c.Years != nil && *c.Years != *other.Years {
		return false
	}
	return true
}

// Sanitize repairs anything a hand-built criteria could get wrong.
func (c *FilterCriteria) Sanitize() {
	if c.Page < 1 {
		c.Page = 1
	}
	if c.PageSize < 1 {
		c.PageSize = DefaultPageSize
	}
	if c.Sort == "" {
		c.Sort = SortRelevance
	}
	c.Companies = NormalizeSet(c.Companies)
	c.Skills = NormalizeSet(c.Skills)
	c.Locations = NormalizeSet(c.Locations)
	c.Roles = NormalizeSet(c.Roles)
	if c.Years != nil && c.Years.Min > c.Years.Max {
		c.Years = nil
	}
}

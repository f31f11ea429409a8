package types

import "fmt"

type FetchErrorKind string

const (
	FetchErrorNetwork  FetchErrorKind = "network"
	FetchErrorTimeout  FetchErrorKind = "timeout"
	FetchErrorUpstream FetchErrorKind = "upstream"
)

// FetchError marks a result page as unavailable. It is carried inside
// the page rather than returned up the stack so an empty directory and
// a broken backend stay distinguishable.
type FetchError struct {
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ResultPage is one page of search results. Superseded wholesale by the
// next completed fetch, never merged.
type ResultPage struct {
	Rows       []ProfileSummary `json:"rows"`
	TotalCount int              `json:"total"`
	Page       int              `json:"page"`
	PageCount  int              `json:"pageCount"`
	Error      *FetchError      `json:"-"`
}

func UnavailablePage(kind FetchErrorKind, err error) ResultPage {
	return ResultPage{
		Rows:       []ProfileSummary{},
		TotalCount: 0,
		Page:       1,
		PageCount:  1,
		Error:      &FetchError{Kind: kind, Err: err},
	}
}

func (r ResultPage) Available() bool {
	return r.Error == nil
}

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alumninet/directory-finder/pkg/common/jsoncompat"
	"github.com/alumninet/directory-finder/pkg/types"
)

// SearchParams is the directory backend's request shape. Parameters are
// named, never positional, so the backend can grow fields without
// breaking us. Multi-valued filters are comma-joined per its contract.
type SearchParams struct {
	Name         string `json:"name,omitempty"`
	Company      string `json:"company,omitempty"`
	Skills       string `json:"skills,omitempty"`
	Location     string `json:"location,omitempty"`
	JobRole      string `json:"job_role,omitempty"`
	VerifiedOnly bool   `json:"verified_only,omitempty"`
	MinYear      int    `json:"min_year,omitempty"`
	MaxYear      int    `json:"max_year,omitempty"`
	Sort         string `json:"sort,omitempty"`
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
}

func ParamsFromCriteria(c types.FilterCriteria) SearchParams {
	p := SearchParams{
		Name:         c.FreeText,
		Company:      strings.Join(c.Companies, ","),
		Skills:       strings.Join(c.Skills, ","),
		Location:     strings.Join(c.Locations, ","),
		JobRole:      strings.Join(c.Roles, ","),
		VerifiedOnly: c.VerifiedOnly,
		Sort:         string(c.Sort),
		Page:         c.Page,
		Limit:        c.PageSize,
	}
	if c.Years != nil {
		p.MinYear = c.Years.Min
		p.MaxYear = c.Years.Max
	}
	return p
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	if p.Name != "" {
		v.Set("name", p.Name)
	}
	if p.Company != "" {
		v.Set("company", p.Company)
	}
	if p.Skills != "" {
		v.Set("skills", p.Skills)
	}
	if p.Location != "" {
		v.Set("location", p.Location)
	}
	if p.JobRole != "" {
		v.Set("job_role", p.JobRole)
	}
	if p.VerifiedOnly {
		v.Set("verified_only", "true")
	}
	if p.MinYear != 0 || p.MaxYear != 0 {
		v.Set("min_year", strconv.Itoa(p.MinYear))
		v.Set("max_year", strconv.Itoa(p.MaxYear))
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

// SearchClient is the external directory search collaborator.
type SearchClient interface {
	Search(ctx context.Context, p SearchParams) (types.ResultPage, error)
}

type searchEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Profiles   []types.ProfileSummary `json:"profiles"`
		Total      int                    `json:"total"`
		Page       int                    `json:"page"`
		TotalPages int                    `json:"total_pages"`
	} `json:"data"`
}

// HTTPClient talks to the real backend endpoint.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Search always classifies its failures, callers never see a bare
// transport error.
func (hc *HTTPClient) Search(ctx context.Context, p SearchParams) (types.ResultPage, error) {
	endpoint := hc.BaseURL + "/profiles/search?" + p.values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.ResultPage{}, &types.FetchError{Kind: types.FetchErrorNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Client.Do(req)
	if err != nil {
		kind := types.FetchErrorNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			kind = types.FetchErrorTimeout
		}
		var ue *url.Error
		if errors.As(err, &ue) && ue.Timeout() {
			kind = types.FetchErrorTimeout
		}
		return types.ResultPage{}, &types.FetchError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.ResultPage{}, &types.FetchError{
			Kind: types.FetchErrorUpstream,
			Err:  fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.ResultPage{}, &types.FetchError{Kind: types.FetchErrorNetwork, Err: err}
	}
	var envelope searchEnvelope
	if err := jsoncompat.Unmarshal(body, &envelope); err != nil {
		return types.ResultPage{}, &types.FetchError{Kind: types.FetchErrorUpstream, Err: err}
	}
	if !envelope.Success {
		return types.ResultPage{}, &types.FetchError{
			Kind: types.FetchErrorUpstream,
			Err:  errors.New("backend reported failure"),
		}
	}

	return pageFromEnvelope(envelope, p.Limit), nil
}

func pageFromEnvelope(e searchEnvelope, limit int) types.ResultPage {
	rows := e.Data.Profiles
	if rows == nil {
		rows = []types.ProfileSummary{}
	}
	page := types.ResultPage{
		Rows:       rows,
		TotalCount: e.Data.Total,
		Page:       e.Data.Page,
		PageCount:  e.Data.TotalPages,
	}
	// older backends omit the derived fields, recompute when missing
	if limit < 1 {
		limit = 1
	}
	if page.PageCount < 1 {
		page.PageCount = (page.TotalCount + limit - 1) / limit
		if page.PageCount < 1 {
			page.PageCount = 1
		}
	}
	if page.Page < 1 {
		page.Page = 1
	}
	return page
}

package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alumninet/directory-finder/pkg/common/jsoncompat"
	"github.com/alumninet/directory-finder/pkg/fetch"
	"github.com/alumninet/directory-finder/pkg/paging"
	"github.com/alumninet/directory-finder/pkg/query"
	"github.com/alumninet/directory-finder/pkg/session"
	"github.com/alumninet/directory-finder/pkg/tracking"
	"github.com/alumninet/directory-finder/pkg/types"
	"github.com/alumninet/directory-finder/pkg/view"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "directory_cache_hits_total",
		Help: "The total number of result pages served from cache",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "directory_cache_misses_total",
		Help: "The total number of result pages fetched from the backend",
	})
)

// WebServer is the gateway between the directory UI and the backend
// search endpoint. It owns the query-string contract, the backend only
// ever sees normalized criteria.
type WebServer struct {
	Upstream fetch.SearchClient
	Cache    PageCache
	Tracking tracking.Tracking
	Sessions *session.Manager
	PageSize int
	CacheTTL time.Duration
}

type SearchResponse struct {
	Layout    string          `json:"layout"`
	Cards     []view.GridCard `json:"cards,omitempty"`
	Rows      []view.ListRow  `json:"rows,omitempty"`
	Page      int             `json:"page"`
	PageSize  int             `json:"pageSize"`
	TotalHits int             `json:"totalHits"`
	PageCount int             `json:"pageCount"`
	Stats     view.QuickStats `json:"stats"`
	Error     string          `json:"error,omitempty"`
}

type CriteriaResponse struct {
	Criteria    types.FilterCriteria `json:"criteria"`
	QueryString string               `json:"queryString"`
}

func (ws *WebServer) ClientHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", ws.Search)
	mux.HandleFunc("/criteria", ws.Criteria)
	return mux
}

func (ws *WebServer) pageSize() int {
	if ws.PageSize < 1 {
		return types.DefaultPageSize
	}
	return ws.PageSize
}

func (ws *WebServer) cacheTTL() time.Duration {
	if ws.CacheTTL <= 0 {
		return 5 * time.Minute
	}
	return ws.CacheTTL
}

// Search serves one page of the directory. Failures downstream become
// an explicit error field in the payload, the screen decides how to
// render an unavailable directory versus an empty one.
func (ws *WebServer) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		respondToOptions(w, r)
		return
	}

	sess := ws.handleSession(w, r)

	criteria := query.Parse(r.URL.Query(), types.DefaultCriteria(ws.pageSize()))
	page := ws.lookup(r, criteria)

	// a narrowed result set can leave the requested page past the end,
	// clamp and reload rather than serving a blank page
	info := paging.New(page.TotalCount, criteria.PageSize, criteria.Page)
	if page.Available() && info.Page != criteria.Page {
		criteria = criteria.WithPage(info.Page)
		page = ws.lookup(r, criteria)
		info = paging.New(page.TotalCount, criteria.PageSize, criteria.Page)
	}

	if ws.Tracking != nil {
		// without a session manager events carry an empty session id,
		// losing the events entirely would be worse
		sid := ""
		if sess != nil {
			sid = sess.Id
		}
		go ws.Tracking.TrackSearch(sid, criteria, page.TotalCount, r)
	}

	layout := r.URL.Query().Get("layout")
	if layout != "list" {
		layout = "grid"
	}
	response := SearchResponse{
		Layout:    layout,
		Page:      info.Page,
		PageSize:  criteria.PageSize,
		TotalHits: page.TotalCount,
		PageCount: info.PageCount,
		Stats:     view.Stats(page.Rows),
	}
	if layout == "list" {
		response.Rows = view.ListRows(page.Rows)
	} else {
		response.Cards = view.GridCards(page.Rows)
	}
	if page.Error != nil {
		response.Error = string(page.Error.Kind)
	}

	defaultHeaders(w, r, "60")
	w.WriteHeader(http.StatusOK)
	writeJson(w, response)
}

// lookup consults the cache before the backend. Only available pages
// are cached, an outage should heal as soon as the backend does.
func (ws *WebServer) lookup(r *http.Request, criteria types.FilterCriteria) types.ResultPage {
	key := "search:" + query.EncodeString(criteria)
	if ws.Cache != nil {
		if page, found := ws.Cache.Get(key); found {
			cacheHits.Inc()
			return page
		}
	}
	cacheMisses.Inc()

	page, err := ws.Upstream.Search(r.Context(), fetch.ParamsFromCriteria(criteria))
	if err != nil {
		var fe *types.FetchError
		if !errors.As(err, &fe) {
			fe = &types.FetchError{Kind: types.FetchErrorNetwork, Err: err}
		}
		log.Printf("directory search unavailable: %v", err)
		return types.UnavailablePage(fe.Kind, fe.Err)
	}
	if ws.Cache != nil {
		ws.Cache.Set(key, page, ws.cacheTTL())
	}
	return page
}

// Criteria echoes back the normalized criteria and its canonical query
// string so the UI can reconcile its address bar after a paste or a
// shared link.
func (ws *WebServer) Criteria(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		respondToOptions(w, r)
		return
	}
	ws.handleSession(w, r)

	criteria := query.Parse(r.URL.Query(), types.DefaultCriteria(ws.pageSize()))
	defaultHeaders(w, r, "120")
	w.WriteHeader(http.StatusOK)
	writeJson(w, CriteriaResponse{
		Criteria:    criteria,
		QueryString: query.EncodeString(criteria),
	})
}

func (ws *WebServer) handleSession(w http.ResponseWriter, r *http.Request) *session.Context {
	if ws.Sessions == nil {
		return nil
	}
	sess, isNew := ws.Sessions.FromRequest(w, r)
	if isNew && ws.Tracking != nil {
		go ws.Tracking.TrackSession(sess.Id, r)
	}
	return sess
}

func writeJson(w http.ResponseWriter, v any) {
	data, err := jsoncompat.Marshal(v)
	if err != nil {
		log.Printf("Error encoding response: %v", err)
		return
	}
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

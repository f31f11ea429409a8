package tracking

import (
	"net/http"

	"github.com/alumninet/directory-finder/pkg/types"
)

type Tracking interface {
	TrackSession(sessionId string, r *http.Request)
	TrackSearch(sessionId string, criteria types.FilterCriteria, resultCount int, r *http.Request)
}

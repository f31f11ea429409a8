package tracking

import (
	"log"
	"net/http"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/alumninet/directory-finder/pkg/messaging"
	"github.com/alumninet/directory-finder/pkg/types"
)

const exchangePrefix = "alumni"

type RabbitTracking struct {
	connection *amqp.Connection
}

func NewRabbitTracking(url string) (*RabbitTracking, error) {
	ret := RabbitTracking{}
	if err := ret.connect(url); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *RabbitTracking) connect(url string) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	t.connection = conn
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := messaging.DefineTopic(ch, exchangePrefix, messaging.SessionStarted); err != nil {
		return err
	}
	return messaging.DefineTopic(ch, exchangePrefix, messaging.SearchPerformed)
}

func (t *RabbitTracking) Close() error {
	return t.connection.Close()
}

type SessionEvent struct {
	SessionId string `json:"session_id"`
	UserAgent string `json:"user_agent,omitempty"`
	Ip        string `json:"ip,omitempty"`
	Language  string `json:"language,omitempty"`
	Referer   string `json:"referer,omitempty"`
}

func (t *RabbitTracking) TrackSession(sessionId string, r *http.Request) {
	ip := r.Header.Get("X-Real-Ip")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}

	err := messaging.SendEvent(t.connection, exchangePrefix, messaging.SessionStarted, SessionEvent{
		SessionId: sessionId,
		UserAgent: r.UserAgent(),
		Ip:        ip,
		Language:  r.Header.Get("Accept-Language"),
		Referer:   r.Header.Get("Referer"),
	})
	if err != nil {
		log.Println("Error sending session event: ", err)
	}
}

type SearchEvent struct {
	SessionId   string `json:"session_id"`
	Query       string `json:"query,omitempty"`
	Companies   int    `json:"companies,omitempty"`
	Skills      int    `json:"skills,omitempty"`
	Locations   int    `json:"locations,omitempty"`
	Roles       int    `json:"roles,omitempty"`
	Verified    bool   `json:"verified,omitempty"`
	Sort        string `json:"sort"`
	Page        int    `json:"page"`
	ResultCount int    `json:"noi"`
	Referer     string `json:"referer,omitempty"`
}

func (t *RabbitTracking) TrackSearch(sessionId string, criteria types.FilterCriteria, resultCount int, r *http.Request) {
	err := messaging.SendEvent(t.connection, exchangePrefix, messaging.SearchPerformed, SearchEvent{
		SessionId:   sessionId,
		Query:       criteria.FreeText,
		Companies:   len(criteria.Companies),
		Skills:      len(criteria.Skills),
		Locations:   len(criteria.Locations),
		Roles:       len(criteria.Roles),
		Verified:    criteria.VerifiedOnly,
		Sort:        string(criteria.Sort),
		Page:        criteria.Page,
		ResultCount: resultCount,
		Referer:     r.Header.Get("Referer"),
	})
	if err != nil {
		log.Println("Error sending search event: ", err)
	}
}

package messaging

type EventTopic string

const (
	SessionStarted  EventTopic = "session_started"
	SearchPerformed EventTopic = "search_performed"
)

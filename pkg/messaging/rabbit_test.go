package messaging

import (
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/alumninet/directory-finder/pkg/common/jsoncompat"
)

func TestTopicNaming(t *testing.T) {
	if got := getName("alumni", SearchPerformed); got != "alumni_search_performed" {
		t.Errorf("exchange name = %q", got)
	}
	if got := getName("alumni", SessionStarted); got != "alumni_session_started" {
		t.Errorf("exchange name = %q", got)
	}
}

type roundTripEvent struct {
	SessionId string `json:"session_id"`
	Query     string `json:"query"`
}

func TestPublishConsumeRoundTrip(t *testing.T) {
	url := os.Getenv("RABBIT_URL")
	if url == "" {
		t.Skip("RABBIT_URL not set")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		t.Fatalf("Error connecting to RabbitMQ: %s", err)
	}
	defer conn.Close()

	const prefix = "alumni_test"
	setupCh, err := conn.Channel()
	if err != nil {
		t.Fatalf("Error opening channel: %s", err)
	}
	defer setupCh.Close()
	if err := DefineTopic(setupCh, prefix, SearchPerformed); err != nil {
		t.Fatalf("Error defining topic: %s", err)
	}

	listenCh, err := conn.Channel()
	if err != nil {
		t.Fatalf("Error opening listen channel: %s", err)
	}
	received := make(chan roundTripEvent, 1)
	err = ListenToTopic(listenCh, prefix, SearchPerformed, func(d amqp.Delivery) error {
		var evt roundTripEvent
		if err := jsoncompat.Unmarshal(d.Body, &evt); err != nil {
			return err
		}
		received <- evt
		return nil
	})
	if err != nil {
		t.Fatalf("Error listening to topic: %s", err)
	}

	sent := roundTripEvent{SessionId: "s1", Query: "anna"}
	if err := SendEvent(conn, prefix, SearchPerformed, sent); err != nil {
		t.Fatalf("Error publishing event: %s", err)
	}

	select {
	case got := <-received:
		if got != sent {
			t.Errorf("Expected: %+v, got: %+v", sent, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event never arrived")
	}
}

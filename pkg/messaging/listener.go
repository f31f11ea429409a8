package messaging

import (
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

func declareBindAndConsume(ch *amqp.Channel, prefix string, topic EventTopic) (<-chan amqp.Delivery, error) {
	name := getName(prefix, topic)
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	if err := ch.QueueBind(q.Name, name, name, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
}

// ListenToTopic consumes until handler returns an error, acking each
// processed delivery. Used by downstream analytics consumers.
func ListenToTopic(ch *amqp.Channel, prefix string, topic EventTopic, handler func(amqp.Delivery) error) error {
	fc, err := declareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}

	go func(msgs <-chan amqp.Delivery) {
		defer ch.Close()
		for d := range msgs {
			if err := handler(d); err != nil {
				log.Printf("Error processing message: %v", err)
				return
			}
			d.Ack(false)
		}
	}(fc)
	return nil
}

package queue

import (
	"github.com/corvid-labs/magpie/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// HandleProcessingError routes a failed delivery: messages that exhausted
// their retries go to the dead-letter queue, everything else goes to the
// retry queue with an incremented retry counter and comes back to the
// work queue after the retry TTL.
func HandleProcessingError(
	ch *amqp091.Channel,
	log logger.Logger,
	delivery amqp091.Delivery,
	queueName string,
	processingErr error,
) {
	retries := retryCount(delivery)

	if retries >= maxRetries {
		log.Error("[Queue] Message exhausted retries, dead-lettering",
			"queue", queueName,
			"retries", retries,
			"err", processingErr)
		if err := Publish(ch, queueName+"_dlq", delivery.Body); err != nil {
			log.Error("[Queue] Failed to dead-letter message", "queue", queueName, "err", err)
			delivery.Nack(false, true)
			return
		}
		delivery.Ack(false)
		return
	}

	log.Warn("[Queue] Message processing failed, scheduling retry",
		"queue", queueName,
		"retries", retries,
		"err", processingErr)

	headers := amqp091.Table{}
	for k, v := range delivery.Headers {
		headers[k] = v
	}
	headers["x-retries"] = retries + 1

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         delivery.Body,
		DeliveryMode: amqp091.Persistent,
		Headers:      headers,
	}
	if err := ch.Publish("", queueName+"_retry", false, false, publishing); err != nil {
		log.Error("[Queue] Failed to schedule retry", "queue", queueName, "err", err)
		delivery.Nack(false, true)
		return
	}
	delivery.Ack(false)
}

func retryCount(delivery amqp091.Delivery) int32 {
	raw, ok := delivery.Headers["x-retries"]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	default:
		return 0
	}
}

package iot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/tejaswanole/automated-smart-parking-system/internal/config"
	"github.com/tejaswanole/automated-smart-parking-system/internal/domain"
	"github.com/tejaswanole/automated-smart-parking-system/internal/repository"
	"github.com/tejaswanole/automated-smart-parking-system/internal/service"
)

// detectionMessage is the payload detection pipelines drop on the queue when
// they run off-line from a websocket session. Counts are a full recount;
// capacity, when present, recalibrates the ceilings in the same update.
type detectionMessage struct {
	ParkingID string                `json:"parking_id"`
	Counts    *domain.VehicleCounts `json:"counts"`
	Capacity  *domain.VehicleCounts `json:"capacity,omitempty"`
}

type SQSConsumer struct {
	sqsClient      *sqs.Client
	queueURL       string
	parkingService *service.ParkingService
}

func NewSQSConsumer(client *sqs.Client, cfg *config.Config, parkingService *service.ParkingService) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:      client,
		queueURL:       cfg.SQSDetectionQueueURL,
		parkingService: parkingService,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS consumer listening on queue: %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS consumer: context cancelled, stopping.")
			return
		default:
			receiveInput := &sqs.ReceiveMessageInput{
				QueueUrl:            &c.queueURL,
				MaxNumberOfMessages: 10,
				WaitTimeSeconds:     20,
				VisibilityTimeout:   60,
			}

			result, err := c.sqsClient.ReceiveMessage(ctx, receiveInput)
			if err != nil {
				log.Printf("SQS consumer: receive failed: %v", err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			for _, message := range result.Messages {
				if message.Body == nil {
					c.deleteMessage(ctx, message.ReceiptHandle)
					continue
				}

				processingErr := c.handleDetectionMessage(ctx, *message.Body)
				if processingErr == nil || isPermanent(processingErr) {
					if processingErr != nil {
						log.Printf("SQS consumer: dropping unprocessable message: %v", processingErr)
					}
					c.deleteMessage(ctx, message.ReceiptHandle)
				} else {
					// Transient failure; the message reappears after the
					// visibility timeout.
					log.Printf("SQS consumer: processing message %s failed: %v", *message.MessageId, processingErr)
				}
			}
		}
	}
}

func (c *SQSConsumer) handleDetectionMessage(ctx context.Context, body string) error {
	var msg detectionMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if msg.ParkingID == "" || msg.Counts == nil {
		return fmt.Errorf("%w: parking_id and counts are required", errMalformed)
	}

	_, err := c.parkingService.ApplyDetectionUpdate(ctx, msg.ParkingID, *msg.Counts, msg.Capacity)
	return err
}

var errMalformed = errors.New("malformed detection message")

// isPermanent reports whether retrying the message can never succeed, so it
// should be deleted instead of going back on the queue.
func isPermanent(err error) bool {
	return errors.Is(err, errMalformed) ||
		errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidCount) ||
		errors.Is(err, domain.ErrCapacityExceeded)
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		return
	}
	_, delErr := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if delErr != nil {
		log.Printf("SQS consumer: delete failed: %v", delErr)
	}
}

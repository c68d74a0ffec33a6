package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/iyhunko/inventory-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSQSClient is a mock implementation of the SQS client for testing.
type mockSQSClient struct {
	sendMessageFunc func(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

func (m *mockSQSClient) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.sendMessageFunc != nil {
		return m.sendMessageFunc(ctx, params, optFns...)
	}
	return &sqs.SendMessageOutput{}, nil
}

func testInventoryMessage() model.InventoryMessage {
	return model.InventoryMessage{
		Action:        model.InventoryActionSynced,
		Source:        "https://drive.google.com/uc?id=abc&export=download",
		ProductsCount: 3,
		TotalChanges:  2,
		New:           []string{"C"},
		Updated:       []string{"A"},
		Removed:       []string{},
		BackupName:    "inventory_backup_1714560000000.json",
		Timestamp:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_PublishInventoryMessage(t *testing.T) {
	t.Run("successful message publish", func(t *testing.T) {
		// given
		queueURL := "https://sqs.us-east-1.amazonaws.com/123456789/test-queue"
		ctx := context.Background()
		msg := testInventoryMessage()

		var sent *sqs.SendMessageInput
		mockClient := &mockSQSClient{
			sendMessageFunc: func(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				sent = params
				return &sqs.SendMessageOutput{
					MessageId: aws.String("test-message-id"),
				}, nil
			},
		}

		publisher := NewPublisher(mockClient, queueURL)

		// when
		err := publisher.PublishInventoryMessage(ctx, msg)

		// then
		require.NoError(t, err)
		require.NotNil(t, sent)
		assert.Equal(t, queueURL, *sent.QueueUrl)
		assert.Equal(t, "synced", *sent.MessageAttributes["action"].StringValue)

		var decoded model.InventoryMessage
		require.NoError(t, json.Unmarshal([]byte(*sent.MessageBody), &decoded))
		assert.Equal(t, msg, decoded)
	})

	t.Run("error sending message", func(t *testing.T) {
		// given
		expectedErr := errors.New("failed to send message")
		mockClient := &mockSQSClient{
			sendMessageFunc: func(_ context.Context, _ *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				return nil, expectedErr
			},
		}

		publisher := NewPublisher(mockClient, "https://sqs.us-east-1.amazonaws.com/123456789/test-queue")

		// when
		err := publisher.PublishInventoryMessage(context.Background(), testInventoryMessage())

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to send message to SQS")
	})
}

func TestNewPublisher(t *testing.T) {
	t.Run("creates publisher successfully", func(t *testing.T) {
		// given
		mockClient := &mockSQSClient{}
		queueURL := "https://sqs.us-east-1.amazonaws.com/123456789/test-queue"

		// when
		publisher := NewPublisher(mockClient, queueURL)

		// then
		require.NotNil(t, publisher)
		assert.Equal(t, queueURL, publisher.queueURL)
	})
}

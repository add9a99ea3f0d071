package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	"github.com/deliverysystem/dts/internal/domain"
)

func TestOrderKeyFromPayload(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	body, err := domain.EncodeEvent(domain.NewOrderInTransitEvent("order-42", ts))
	require.NoError(t, err)

	require.Equal(t, "order-42", orderKeyFromPayload(body))
	require.Equal(t, "", orderKeyFromPayload([]byte(`{"EventType":"OrderReceived"}`)))
	require.Equal(t, "", orderKeyFromPayload([]byte(`not json`)))
}

func TestBuildDLQPayload(t *testing.T) {
	t.Parallel()

	message := &sarama.ConsumerMessage{
		Topic:     TopicOrderEvents,
		Partition: 2,
		Offset:    17,
		Key:       []byte("order-42"),
		Value:     []byte(`{"EventType":"OrderReceived"}`),
	}
	failedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	payload := buildDLQPayload(message, errTest, failedAt)
	require.Equal(t, TopicOrderEvents, payload.OriginalTopic)
	require.Equal(t, int32(2), payload.OriginalPartition)
	require.Equal(t, int64(17), payload.OriginalOffset)
	require.Equal(t, "order-42", payload.OriginalKey)
	require.Equal(t, `{"EventType":"OrderReceived"}`, payload.OriginalValue)
	require.Equal(t, "boom", payload.ErrorMessage)
	require.Equal(t, "2026-03-14T12:00:00Z", payload.FailedAt)
}

var errTest = errTestType{}

type errTestType struct{}

func (errTestType) Error() string { return "boom" }

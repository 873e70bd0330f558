package helpers

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONPublishing(t *testing.T) {
	msg, err := jsonPublishing(map[string]string{"to": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.NotEmpty(t, msg.MessageId)
	assert.JSONEq(t, `{"to":"a@b.c"}`, string(msg.Body))

	_, err = jsonPublishing(make(chan int))
	assert.Error(t, err)
}

func TestNilPublisherClose(t *testing.T) {
	var p *RabbitPublisher
	assert.NotPanics(t, p.Close)
}

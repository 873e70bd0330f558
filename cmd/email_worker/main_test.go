package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-management-api/pkg/mailer"
)

type outcome struct {
	acked, nacked, requeued bool
}

func (o *outcome) Ack(uint64, bool) error { o.acked = true; return nil }
func (o *outcome) Nack(_ uint64, _ bool, requeue bool) error {
	o.nacked, o.requeued = true, requeue
	return nil
}
func (o *outcome) Reject(_ uint64, requeue bool) error {
	o.nacked, o.requeued = true, requeue
	return nil
}

type stubSender struct{ err error }

func (s stubSender) Send(context.Context, string, string, string, string) error { return s.err }

func delivery(t *testing.T, body []byte, redelivered bool) (amqp.Delivery, *outcome) {
	t.Helper()
	o := &outcome{}
	return amqp.Delivery{Acknowledger: o, Body: body, Redelivered: redelivered}, o
}

func plainJob(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(mailer.EmailJob{To: "a@b.c", Subject: "Hi", Text: "body"})
	require.NoError(t, err)
	return b
}

func TestHandleAcksDelivered(t *testing.T) {
	logger, _ := test.NewNullLogger()
	msg, o := delivery(t, plainJob(t), false)
	handle(context.Background(), logger, stubSender{}, msg)
	assert.True(t, o.acked)
	assert.False(t, o.nacked)
}

func TestHandleDropsMalformedAndUnrenderable(t *testing.T) {
	logger, _ := test.NewNullLogger()

	msg, o := delivery(t, []byte("{"), false)
	handle(context.Background(), logger, stubSender{}, msg)
	assert.True(t, o.nacked)
	assert.False(t, o.requeued)

	b, err := json.Marshal(mailer.EmailJob{To: "a@b.c", Template: "missing"})
	require.NoError(t, err)
	msg, o = delivery(t, b, false)
	handle(context.Background(), logger, stubSender{}, msg)
	assert.True(t, o.nacked)
	assert.False(t, o.requeued)
}

func TestHandleRequeuesSendFailureOnlyOnce(t *testing.T) {
	logger, hook := test.NewNullLogger()
	failing := stubSender{err: errors.New("mailgun: 400 invalid recipient")}

	msg, o := delivery(t, plainJob(t), false)
	handle(context.Background(), logger, failing, msg)
	assert.True(t, o.nacked)
	assert.True(t, o.requeued)

	msg, o = delivery(t, plainJob(t), true)
	handle(context.Background(), logger, failing, msg)
	assert.True(t, o.nacked)
	assert.False(t, o.requeued)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "send failed after redelivery; dropping job", hook.LastEntry().Message)
}

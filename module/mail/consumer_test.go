package mail

import (
	"encoding/json"
	"errors"
	"testing"

	"chatwave/service/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	to, subject, body string
}

type stubSender struct {
	sent []sent
	err  error
}

func (s *stubSender) Send(to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sent{to: to, subject: subject, body: body})
	return nil
}

func TestConsumerHandlesJob(t *testing.T) {
	sender := &stubSender{}
	c := NewConsumer(sender)

	data, err := json.Marshal(queue.MailJob{
		To:      "pat@example.com",
		Subject: "ChatWave login code",
		Body:    "<p>Your code is 123456</p>",
	})
	require.NoError(t, err)

	c.Handle(data)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "pat@example.com", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].body, "123456")
}

func TestConsumerDropsBadPayloads(t *testing.T) {
	sender := &stubSender{}
	c := NewConsumer(sender)

	c.Handle([]byte("not json"))
	c.Handle([]byte(`{"subject":"no recipient"}`))

	assert.Empty(t, sender.sent)
}

func TestConsumerSurvivesSendFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("smtp down")}
	c := NewConsumer(sender)

	data, _ := json.Marshal(queue.MailJob{To: "pat@example.com"})
	assert.NotPanics(t, func() { c.Handle(data) })
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("ChatWave", "noreply@chatwave.dev", "pat@example.com", "Hello", "<b>hi</b>"))

	assert.Contains(t, msg, "From: ChatWave <noreply@chatwave.dev>\r\n")
	assert.Contains(t, msg, "To: pat@example.com\r\n")
	assert.Contains(t, msg, "Subject: Hello\r\n")
	assert.Contains(t, msg, "\r\n\r\n<b>hi</b>")
}

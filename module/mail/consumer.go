package mail

import (
	"encoding/json"

	"chatwave/logger"
	"chatwave/service/queue"

	"github.com/nats-io/nats.go"
)

// QueueGroup lets multiple workers share the subject without duplicating sends.
const QueueGroup = "mailworker"

// Consumer drains OTP mail jobs from the queue and hands them to a Sender.
type Consumer struct {
	sender Sender
}

func NewConsumer(sender Sender) *Consumer {
	return &Consumer{sender: sender}
}

// Handle processes one raw job. Bad payloads and send failures are logged
// and dropped; the login flow lets the user request a fresh code.
func (c *Consumer) Handle(data []byte) {
	var job queue.MailJob
	if err := json.Unmarshal(data, &job); err != nil {
		logger.Errorf("[mail] bad job payload: %v", err)
		return
	}
	if job.To == "" {
		logger.Warnf("[mail] job without recipient dropped")
		return
	}
	if err := c.sender.Send(job.To, job.Subject, job.Body); err != nil {
		logger.Errorf("[mail] %v", err)
		return
	}
	logger.Infof("[mail] sent %q to %s", job.Subject, job.To)
}

// Run subscribes the consumer to the OTP subject as part of the worker
// queue group.
func (c *Consumer) Run(q *queue.Client) (*nats.Subscription, error) {
	return q.QueueSubscribe(queue.SubjectSendOTP, QueueGroup, c.Handle)
}

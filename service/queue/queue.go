package queue

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectSendOTP carries OTP mail jobs from the user service to the mail worker.
const SubjectSendOTP = "send-otp"

// MailJob is the payload on SubjectSendOTP.
type MailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Client is a thin NATS wrapper: JSON publish plus queue-group subscribe.
type Client struct {
	nc *nats.Conn
}

func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.nc.Publish(subject, data)
}

// QueueSubscribe delivers each message on subject to exactly one member of
// the queue group.
func (c *Client) QueueSubscribe(subject, group string, h func(data []byte)) (*nats.Subscription, error) {
	return c.nc.QueueSubscribe(subject, group, func(m *nats.Msg) {
		h(m.Data)
	})
}

func (c *Client) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}

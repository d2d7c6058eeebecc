package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wochuna/Sacco/internal/validation"
)

const smsTimeout = 5 * time.Second

// SMSConfig holds the gateway credentials.
type SMSConfig struct {
	APIURL   string
	Username string
	APIKey   string
	SenderID string
}

// SMSNotifier posts messages to a bulk SMS gateway using the
// username/to/message/from form contract with an apiKey header.
type SMSNotifier struct {
	client *resty.Client
	cfg    SMSConfig
}

// NewSMSNotifier builds a gateway client. A nil client selects resty defaults.
func NewSMSNotifier(cfg SMSConfig, client *resty.Client) *SMSNotifier {
	if client == nil {
		client = resty.New()
	}
	client.SetTimeout(smsTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("apiKey", cfg.APIKey)
	return &SMSNotifier{client: client, cfg: cfg}
}

// Send delivers message to its destination phone in international form.
func (n *SMSNotifier) Send(ctx context.Context, message Message) error {
	form := map[string]string{
		"username": n.cfg.Username,
		"to":       validation.InternationalPhoneNumber(message.Destination),
		"message":  message.Body,
	}
	if n.cfg.SenderID != "" {
		form["from"] = n.cfg.SenderID
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(n.cfg.APIURL)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return fmt.Errorf("send sms: gateway returned %d", resp.StatusCode())
	}
	return nil
}

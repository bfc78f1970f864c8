package transport

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioTransport sends SMS through the Twilio REST API. Credentials are
// injected once at construction, never read ad hoc from the environment
// by pipeline code.
type TwilioTransport struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioTransport(accountSID, authToken, fromNumber string) *TwilioTransport {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioTransport{client: client, from: fromNumber}
}

func (t *TwilioTransport) Send(ctx context.Context, phone, body string) (SendResult, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return SendResult{}, fmt.Errorf("twilio send: %w", err)
	}

	result := SendResult{}
	if resp.Sid != nil {
		result.ProviderMessageID = *resp.Sid
	}
	if resp.Status != nil {
		switch *resp.Status {
		case "queued", "accepted", "sending":
			result.Pending = true
		}
	}
	if resp.ErrorCode != nil {
		result.ErrorCode = fmt.Sprintf("%d", *resp.ErrorCode)
	}
	if resp.ErrorMessage != nil {
		result.ErrorMessage = *resp.ErrorMessage
	}
	return result, nil
}

package messaging

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agendai/agendai-platform/pkg/logging"
)

var senderTracer = otel.Tracer("agendai.internal.messaging.sender")

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Sender delivers WhatsApp messages through the Twilio SDK.
type Sender struct {
	api    messageCreator
	from   string
	logger *logging.Logger
}

// NewSender builds a sender from Twilio credentials. from is the sandbox or
// business WhatsApp number in E.164.
func NewSender(accountSID, authToken, from string, logger *logging.Logger) *Sender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newSender(client.Api, from, logger)
}

func newSender(api messageCreator, from string, logger *logging.Logger) *Sender {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sender{api: api, from: from, logger: logger}
}

// Send dispatches one WhatsApp message, retrying transient failures up to
// three times with jitter.
func (s *Sender) Send(ctx context.Context, to, body string) error {
	if s.from == "" {
		return errors.New("messaging: from number missing")
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("messaging: to required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("messaging: body required")
	}

	_, span := senderTracer.Start(ctx, "messaging.whatsapp.send")
	defer span.End()
	span.SetAttributes(attribute.String("agendai.to", to))

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(WhatsAppAddress(to))
	params.SetFrom(WhatsAppAddress(s.from))
	params.SetBody(body)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		msg, err := s.api.CreateMessage(params)
		if err == nil {
			sid := ""
			if msg != nil && msg.Sid != nil {
				sid = *msg.Sid
			}
			s.logger.Info("whatsapp message sent", "to", to, "sid", sid)
			return nil
		}
		lastErr = fmt.Errorf("messaging: twilio send failed: %w", err)
		if attempt < 3 {
			time.Sleep(time.Duration(200+rand.Intn(300)) * time.Millisecond)
		}
	}

	span.RecordError(lastErr)
	return lastErr
}

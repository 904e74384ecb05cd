package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agendai/agendai-platform/internal/appointments"
	"github.com/agendai/agendai-platform/internal/conversations"
	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/internal/services"
	"github.com/agendai/agendai-platform/pkg/logging"
)

var aiTracer = otel.Tracer("agendai.internal.ai")

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Assistant generates WhatsApp replies and extracts structured appointment
// fields using OpenAI chat completions.
type Assistant struct {
	client    chatClient
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *logging.Logger
}

// NewAssistant returns an OpenAI-backed assistant.
func NewAssistant(client chatClient, model string, maxTokens int, timeout time.Duration, logger *logging.Logger) *Assistant {
	if client == nil {
		panic("ai: chat client cannot be nil")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Assistant{client: client, model: model, maxTokens: maxTokens, timeout: timeout, logger: logger}
}

// ReplyContext carries everything the assistant needs to answer one inbound
// message: the professional's persona settings plus the booking state.
type ReplyContext struct {
	Professional *professionals.Professional
	Settings     *professionals.Settings
	History      []*conversations.Message
	Services     []*services.Service
	Availability []appointments.Availability
	Open         []*appointments.Appointment
	Now          time.Time
}

// GenerateReply produces the assistant's natural-language answer to the
// latest client message in the history.
func (a *Assistant) GenerateReply(ctx context.Context, rc *ReplyContext) (string, error) {
	ctx, span := aiTracer.Start(ctx, "ai.reply")
	defer span.End()
	span.SetAttributes(attribute.Int("agendai.history_len", len(rc.History)))

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: buildPersonaPrompt(rc)},
		{Role: openai.ChatMessageRoleSystem, Content: buildBookingContext(rc)},
	}
	messages = append(messages, historyMessages(rc.History)...)

	reply, err := a.complete(ctx, openai.ChatCompletionRequest{
		Model:     a.model,
		Messages:  messages,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return reply, nil
}

func (a *Assistant) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("ai: openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai: openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func historyMessages(history []*conversations.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		role := openai.ChatMessageRoleAssistant
		if m.FromClient {
			role = openai.ChatMessageRoleUser
		}
		content := m.Content
		if m.MessageType == conversations.MessageTypeVoice && m.Transcription != "" {
			content = m.Transcription
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: content})
	}
	return out
}

func buildPersonaPrompt(rc *ReplyContext) string {
	name := "Agendaí"
	business := ""
	tone := ""
	if rc.Settings != nil {
		if rc.Settings.AssistantName != "" {
			name = rc.Settings.AssistantName
		}
		business = rc.Settings.BusinessName
		tone = rc.Settings.AssistantTone
	}
	if business == "" && rc.Professional != nil {
		business = rc.Professional.Name
	}

	b := strings.Builder{}
	fmt.Fprintf(&b, "Você é %s, assistente virtual de agendamentos de %s no WhatsApp. ", name, business)
	b.WriteString("Responda sempre em português, de forma breve e cordial. ")
	b.WriteString("Ajude o cliente a marcar, confirmar ou cancelar horários. ")
	b.WriteString("Ofereça apenas horários realmente livres e serviços da lista. ")
	b.WriteString("Nunca invente preços ou serviços.")
	if tone != "" {
		fmt.Fprintf(&b, " Tom de voz: %s.", tone)
	}
	return b.String()
}

func buildBookingContext(rc *ReplyContext) string {
	now := rc.Now
	if now.IsZero() {
		now = time.Now()
	}

	b := strings.Builder{}
	fmt.Fprintf(&b, "Data e hora atuais: %s.\n", now.Format("Monday, 02/01/2006 15:04"))

	if len(rc.Services) > 0 {
		b.WriteString("Serviços oferecidos:\n")
		for _, s := range rc.Services {
			if !s.Active {
				continue
			}
			fmt.Fprintf(&b, "- %s (%d min, R$ %.2f)\n", s.Name, s.DurationMinutes, float64(s.PriceCents)/100)
		}
	}

	if len(rc.Availability) > 0 {
		b.WriteString("Horários de atendimento:\n")
		for _, a := range rc.Availability {
			fmt.Fprintf(&b, "- %s: %02d:%02d às %02d:%02d\n",
				weekdayPT(a.Weekday), a.StartMinute/60, a.StartMinute%60, a.EndMinute/60, a.EndMinute%60)
		}
	}

	if len(rc.Open) > 0 {
		b.WriteString("Horários já ocupados:\n")
		for _, appt := range rc.Open {
			fmt.Fprintf(&b, "- %s a %s\n",
				appt.StartTime.Format("02/01 15:04"), appt.EndTime.Format("15:04"))
		}
	}
	return b.String()
}

func weekdayPT(d int) string {
	names := [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}
	if d < 0 || d >= len(names) {
		return "?"
	}
	return names[d]
}

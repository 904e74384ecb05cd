package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agendai/agendai-platform/internal/conversations"
)

const extractionPrompt = `Extraia do histórico de conversa os dados do agendamento que o cliente deseja.
Responda apenas com um objeto JSON com os campos:
{"client_name": string, "date": "YYYY-MM-DD", "time": "HH:MM", "service": string, "notes": string}
Use string vazia para campos que o cliente ainda não informou. Resolva datas
relativas ("amanhã", "sexta") a partir da data atual informada.`

// Extraction is the structured appointment request pulled from a
// conversation. Empty fields were not stated by the client yet.
type Extraction struct {
	ClientName string `json:"client_name"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Service    string `json:"service"`
	Notes      string `json:"notes"`
}

// Complete reports whether every field required to book is present.
// Notes stay optional.
func (e *Extraction) Complete() bool {
	return e.Date != "" && e.Time != "" && e.Service != ""
}

// StartTime combines the extracted date and time in loc.
func (e *Extraction) StartTime(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.Time, loc)
}

// ExtractAppointment runs a JSON-mode completion over the conversation
// history and parses the result. A malformed model response is an error;
// missing fields are not.
func (a *Assistant) ExtractAppointment(ctx context.Context, history []*conversations.Message, now time.Time) (*Extraction, error) {
	ctx, span := aiTracer.Start(ctx, "ai.extract")
	defer span.End()

	if now.IsZero() {
		now = time.Now()
	}
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt},
		{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf("Data atual: %s (%s).", now.Format("2006-01-02"), now.Format("Monday"))},
	}
	messages = append(messages, historyMessages(history)...)

	raw, err := a.complete(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var out Extraction
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ai: malformed extraction %q: %w", raw, err)
	}
	span.SetAttributes(attribute.Bool("agendai.extraction_complete", out.Complete()))
	return &out, nil
}

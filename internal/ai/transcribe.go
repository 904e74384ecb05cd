package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agendai/agendai-platform/pkg/logging"
)

// TranscriptionFallback is persisted when a voice note cannot be
// transcribed; the assistant then asks the client to type the request.
const TranscriptionFallback = "[áudio não transcrito]"

type audioClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

type mediaDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transcriber downloads WhatsApp voice media and runs Whisper over it.
// Media URLs are Twilio-hosted and need basic auth.
type Transcriber struct {
	client     audioClient
	http       mediaDoer
	accountSID string
	authToken  string
	logger     *logging.Logger
}

// NewTranscriber returns a Whisper-backed transcriber.
func NewTranscriber(client audioClient, httpClient mediaDoer, accountSID, authToken string, logger *logging.Logger) *Transcriber {
	if client == nil {
		panic("ai: audio client cannot be nil")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Transcriber{client: client, http: httpClient, accountSID: accountSID, authToken: authToken, logger: logger}
}

// Transcribe fetches the media and returns its text. It never returns an
// error: transcription is best-effort and falls back to a placeholder so the
// pipeline keeps moving.
func (t *Transcriber) Transcribe(ctx context.Context, mediaURL string) string {
	ctx, span := aiTracer.Start(ctx, "ai.transcribe")
	defer span.End()

	text, err := t.transcribe(ctx, mediaURL)
	if err != nil {
		span.RecordError(err)
		t.logger.Error("voice transcription failed, using placeholder", "error", err, "media_url", mediaURL)
		return TranscriptionFallback
	}
	return text
}

func (t *Transcriber) transcribe(ctx context.Context, mediaURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("ai: build media request: %w", err)
	}
	if t.accountSID != "" {
		req.SetBasicAuth(t.accountSID, t.authToken)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: media fetch returned %d", resp.StatusCode)
	}

	out, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   resp.Body,
		FilePath: "voice-note.ogg",
	})
	if err != nil {
		return "", fmt.Errorf("ai: whisper failed: %w", err)
	}
	return out.Text, nil
}

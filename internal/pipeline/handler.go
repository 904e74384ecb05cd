package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agendai/agendai-platform/internal/ai"
	"github.com/agendai/agendai-platform/internal/appointments"
	"github.com/agendai/agendai-platform/internal/clients"
	"github.com/agendai/agendai-platform/internal/conversations"
	"github.com/agendai/agendai-platform/internal/messaging"
	"github.com/agendai/agendai-platform/internal/observability/metrics"
	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/internal/services"
	"github.com/agendai/agendai-platform/pkg/logging"
)

const dedupeTTL = 24 * time.Hour

type assistant interface {
	GenerateReply(ctx context.Context, rc *ai.ReplyContext) (string, error)
	ExtractAppointment(ctx context.Context, history []*conversations.Message, now time.Time) (*ai.Extraction, error)
}

type transcriber interface {
	Transcribe(ctx context.Context, mediaURL string) string
}

type sender interface {
	Send(ctx context.Context, to, body string) error
}

// Config carries the webhook handler's provider settings.
type Config struct {
	// TwilioAuthToken signs inbound webhooks. Empty disables signature
	// validation (tests and local runs without a public URL).
	TwilioAuthToken string
	// WebhookURL is the public URL Twilio posts to, required for signature
	// validation.
	WebhookURL string
}

// Handler converts one inbound WhatsApp message into zero-or-one replies and
// zero-or-one appointments.
type Handler struct {
	cfg         Config
	pros        professionals.Repository
	clients     clients.Repository
	convs       conversations.Repository
	services    services.Repository
	appts       appointments.Repository
	avail       appointments.AvailabilityRepository
	booker      Booker
	assistant   assistant
	transcriber transcriber
	sender      sender
	redis       *redis.Client
	metrics     *metrics.PipelineMetrics
	logger      *logging.Logger
	now         func() time.Time
}

// NewHandler wires the webhook pipeline. transcriber and redis may be nil
// (voice notes then fall back to a placeholder; dedupe is skipped).
func NewHandler(
	cfg Config,
	pros professionals.Repository,
	clientRepo clients.Repository,
	convs conversations.Repository,
	svcRepo services.Repository,
	appts appointments.Repository,
	avail appointments.AvailabilityRepository,
	booker Booker,
	asst assistant,
	tr transcriber,
	snd sender,
	redisClient *redis.Client,
	m *metrics.PipelineMetrics,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		cfg:         cfg,
		pros:        pros,
		clients:     clientRepo,
		convs:       convs,
		services:    svcRepo,
		appts:       appts,
		avail:       avail,
		booker:      booker,
		assistant:   asst,
		transcriber: tr,
		sender:      snd,
		redis:       redisClient,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleWebhook handles POST /webhook/whatsapp requests from Twilio.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	started := h.now()

	if h.cfg.TwilioAuthToken != "" {
		if !messaging.ValidateSignature(r, h.cfg.TwilioAuthToken, h.cfg.WebhookURL) {
			h.logger.Warn("rejected webhook with bad signature", "remote", r.RemoteAddr)
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
	}

	msg, err := messaging.ParseInbound(r)
	if err != nil {
		http.Error(w, "malformed webhook", http.StatusBadRequest)
		return
	}
	messageType := conversations.MessageTypeText
	if msg.HasAudio() {
		messageType = conversations.MessageTypeVoice
	}

	if h.seen(r.Context(), msg.MessageSid) {
		h.logger.Info("duplicate webhook ignored", "message_sid", msg.MessageSid)
		h.observe(messageType, "duplicate", started)
		ack(w)
		return
	}

	status := h.process(r.Context(), msg, messageType)
	h.observe(messageType, status, started)

	if status == "error" {
		// Release the dedupe claim so Twilio's retry of this SID is
		// processed instead of acked as a duplicate.
		h.forget(r.Context(), msg.MessageSid)
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}
	ack(w)
}

// process runs the pipeline and returns the outcome label for metrics. Any
// status other than "error" is acked to Twilio with a 200 so it won't retry.
func (h *Handler) process(ctx context.Context, msg *messaging.InboundMessage, messageType string) string {
	pro, err := h.pros.GetByWhatsAppNumber(ctx, msg.To)
	if err != nil {
		if errors.Is(err, professionals.ErrNotFound) {
			h.logger.Warn("webhook for unknown whatsapp number", "to", msg.To)
			return "unknown_professional"
		}
		h.logger.Error("failed to resolve professional", "error", err, "to", msg.To)
		return "error"
	}

	settings, err := h.pros.GetSettings(ctx, pro.ID)
	if err != nil {
		if errors.Is(err, professionals.ErrSettingsNotFound) {
			h.logger.Warn("professional has no settings, acking", "professional_id", pro.ID)
			return "missing_settings"
		}
		h.logger.Error("failed to load settings", "error", err, "professional_id", pro.ID)
		return "error"
	}

	client, err := h.clients.GetOrCreateByPhone(ctx, pro.ID, msg.From, "")
	if err != nil {
		h.logger.Error("failed to resolve client", "error", err, "professional_id", pro.ID)
		return "error"
	}

	conv, err := h.convs.LookupOrCreateActive(ctx, pro.ID, msg.From, client.Name)
	if err != nil {
		h.logger.Error("failed to resolve conversation", "error", err, "professional_id", pro.ID)
		return "error"
	}

	content := msg.Body
	transcription := ""
	if messageType == conversations.MessageTypeVoice {
		transcription = ai.TranscriptionFallback
		if h.transcriber != nil {
			transcription = h.transcriber.Transcribe(ctx, msg.MediaURL)
		}
		if content == "" {
			content = "[mensagem de voz]"
		}
	}

	if _, err := h.convs.AppendMessage(ctx, &conversations.AppendMessageRequest{
		ConversationID: conv.ID,
		Content:        content,
		FromClient:     true,
		MessageType:    messageType,
		Transcription:  transcription,
		MediaURL:       msg.MediaURL,
	}); err != nil {
		h.logger.Error("failed to persist inbound message", "error", err, "conversation_id", conv.ID)
		return "error"
	}

	history, err := h.convs.ListMessages(ctx, conv.ID)
	if err != nil {
		h.logger.Error("failed to load history", "error", err, "conversation_id", conv.ID)
		return "error"
	}

	svcList, err := h.services.ListByProfessional(ctx, pro.ID, true)
	if err != nil {
		h.logger.Error("failed to load services", "error", err, "professional_id", pro.ID)
		return "error"
	}
	avail, err := h.avail.ListByProfessional(ctx, pro.ID)
	if err != nil {
		h.logger.Error("failed to load availabilities", "error", err, "professional_id", pro.ID)
		return "error"
	}
	open, err := h.appts.ListOpenByProfessional(ctx, pro.ID)
	if err != nil {
		h.logger.Error("failed to load open appointments", "error", err, "professional_id", pro.ID)
		return "error"
	}

	now := h.now()
	reply, err := h.assistant.GenerateReply(ctx, &ai.ReplyContext{
		Professional: pro,
		Settings:     settings,
		History:      history,
		Services:     svcList,
		Availability: avail,
		Open:         open,
		Now:          now,
	})
	if err != nil {
		h.logger.Error("failed to generate reply", "error", err, "conversation_id", conv.ID)
		return "error"
	}

	if _, err := h.convs.AppendMessage(ctx, &conversations.AppendMessageRequest{
		ConversationID: conv.ID,
		Content:        reply,
		FromClient:     false,
		MessageType:    conversations.MessageTypeText,
	}); err != nil {
		h.logger.Error("failed to persist outbound message", "error", err, "conversation_id", conv.ID)
		return "error"
	}

	h.maybeBook(ctx, pro, settings, client, conv, svcList, now)

	if err := h.sender.Send(ctx, msg.From, reply); err != nil {
		// Best-effort: prior writes stand, Twilio still gets a 200.
		h.logger.Error("failed to send reply", "error", err, "conversation_id", conv.ID)
		h.metrics.ObserveOutbound("failed")
	} else {
		h.metrics.ObserveOutbound("sent")
	}
	return "ok"
}

// maybeBook extracts structured fields from the conversation and books an
// appointment when they are complete, the service is known, and the slot is
// free. Every failure mode is logged and counted, never propagated.
func (h *Handler) maybeBook(
	ctx context.Context,
	pro *professionals.Professional,
	settings *professionals.Settings,
	client *clients.Client,
	conv *conversations.Conversation,
	svcList []*services.Service,
	now time.Time,
) {
	history, err := h.convs.ListMessages(ctx, conv.ID)
	if err != nil {
		h.logger.Error("failed to reload history for extraction", "error", err, "conversation_id", conv.ID)
		h.metrics.ObserveAppointment("error")
		return
	}

	extraction, err := h.assistant.ExtractAppointment(ctx, history, now)
	if err != nil {
		h.logger.Error("field extraction failed", "error", err, "conversation_id", conv.ID)
		h.metrics.ObserveAppointment("error")
		return
	}
	if !extraction.Complete() {
		h.metrics.ObserveAppointment("incomplete")
		return
	}

	svc := services.MatchByName(svcList, extraction.Service)
	if svc == nil {
		h.logger.Info("extracted service not offered", "service", extraction.Service, "conversation_id", conv.ID)
		h.metrics.ObserveAppointment("unknown_service")
		return
	}

	loc := time.UTC
	if settings.Timezone != "" {
		if l, err := time.LoadLocation(settings.Timezone); err == nil {
			loc = l
		}
	}
	start, err := extraction.StartTime(loc)
	if err != nil {
		h.logger.Error("extracted start time unparseable", "error", err,
			"date", extraction.Date, "time", extraction.Time)
		h.metrics.ObserveAppointment("error")
		return
	}

	if extraction.ClientName != "" && client.Name == "" {
		if _, err := h.clients.GetOrCreateByPhone(ctx, pro.ID, client.Phone, extraction.ClientName); err != nil {
			h.logger.Error("failed to update client name", "error", err, "client_id", client.ID)
		}
	}

	appt, err := h.booker.Book(ctx, &appointments.CreateAppointmentRequest{
		ProfessionalID: pro.ID,
		ClientID:       client.ID,
		ServiceID:      svc.ID,
		StartTime:      start,
		EndTime:        start.Add(svc.Duration()),
		Notes:          extraction.Notes,
		Source:         appointments.SourceWhatsApp,
		ConversationID: conv.ID,
	})
	if err != nil {
		if errors.Is(err, appointments.ErrSlotTaken) {
			h.logger.Info("extracted slot already taken", "conversation_id", conv.ID, "start", start)
			h.metrics.ObserveAppointment("conflict")
			return
		}
		h.logger.Error("failed to book appointment", "error", err, "conversation_id", conv.ID)
		h.metrics.ObserveAppointment("error")
		return
	}

	h.logger.Info("appointment booked from conversation",
		"appointment_id", appt.ID, "conversation_id", conv.ID, "start", appt.StartTime)
	h.metrics.ObserveAppointment("created")
}

// seen marks the MessageSid in Redis and reports whether it was already
// processed. Redis being down fails open: the message is handled again.
func (h *Handler) seen(ctx context.Context, messageSid string) bool {
	if h.redis == nil || messageSid == "" {
		return false
	}
	ok, err := h.redis.SetNX(ctx, "agendai:webhook:sid:"+messageSid, 1, dedupeTTL).Result()
	if err != nil {
		h.logger.Error("webhook dedupe unavailable", "error", err)
		return false
	}
	return !ok
}

// forget drops the dedupe claim for a SID whose processing failed.
func (h *Handler) forget(ctx context.Context, messageSid string) {
	if h.redis == nil || messageSid == "" {
		return
	}
	if err := h.redis.Del(ctx, "agendai:webhook:sid:"+messageSid).Err(); err != nil {
		h.logger.Error("failed to release webhook dedupe claim", "error", err, "message_sid", messageSid)
	}
}

func (h *Handler) observe(messageType, status string, started time.Time) {
	h.metrics.ObserveInbound(messageType, status)
	h.metrics.ObserveWebhookLatency(messageType, h.now().Sub(started).Seconds())
}

// ack returns the empty TwiML document Twilio expects.
func ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
}

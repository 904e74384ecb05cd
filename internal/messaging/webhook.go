package messaging

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// ValidateSignature validates that a request came from Twilio.
func ValidateSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}

	payload := buildSignaturePayload(webhookURL, r.PostForm)
	expected := computeSignature(payload, authToken)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// buildSignaturePayload creates the payload string for signature verification:
// the full webhook URL followed by the POST params sorted by key.
func buildSignaturePayload(url string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(url)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}
	return payload.String()
}

// computeSignature computes the HMAC-SHA1 signature
func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// InboundMessage represents an incoming Twilio WhatsApp webhook.
type InboundMessage struct {
	MessageSid       string
	AccountSid       string
	From             string
	To               string
	Body             string
	MediaURL         string
	MediaContentType string
}

// HasAudio reports whether the message carries a voice note.
func (m *InboundMessage) HasAudio() bool {
	return m.MediaURL != "" && strings.HasPrefix(m.MediaContentType, "audio/")
}

// ParseInbound parses a Twilio webhook form post. Phone numbers come back
// normalized (no whatsapp: prefix).
func ParseInbound(r *http.Request) (*InboundMessage, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse form: %w", err)
	}

	return &InboundMessage{
		MessageSid:       r.FormValue("MessageSid"),
		AccountSid:       r.FormValue("AccountSid"),
		From:             NormalizePhone(r.FormValue("From")),
		To:               NormalizePhone(r.FormValue("To")),
		Body:             r.FormValue("Body"),
		MediaURL:         r.FormValue("MediaUrl0"),
		MediaContentType: r.FormValue("MediaContentType0"),
	}, nil
}

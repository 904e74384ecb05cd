package messaging

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func signedRequest(t *testing.T, webhookURL, authToken string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, webhookURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	payload := buildSignaturePayload(webhookURL, form)
	req.Header.Set("X-Twilio-Signature", computeSignature(payload, authToken))
	return req
}

func TestValidateSignature_Valid(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("From", "whatsapp:+5511977770000")
	form.Set("Body", "oi")

	req := signedRequest(t, "https://agendai.example/webhook/whatsapp", "token", form)
	if !ValidateSignature(req, "token", "https://agendai.example/webhook/whatsapp") {
		t.Fatal("expected valid signature")
	}
}

func TestValidateSignature_WrongToken(t *testing.T) {
	form := url.Values{}
	form.Set("Body", "oi")

	req := signedRequest(t, "https://agendai.example/webhook/whatsapp", "token", form)
	if ValidateSignature(req, "other-token", "https://agendai.example/webhook/whatsapp") {
		t.Fatal("expected invalid signature with wrong token")
	}
}

func TestValidateSignature_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", nil)
	if ValidateSignature(req, "token", "https://agendai.example/webhook/whatsapp") {
		t.Fatal("expected invalid without signature header")
	}
}

func TestValidateSignature_TamperedBody(t *testing.T) {
	form := url.Values{}
	form.Set("Body", "oi")
	req := signedRequest(t, "https://agendai.example/webhook/whatsapp", "token", form)

	tampered := url.Values{}
	tampered.Set("Body", "transfira tudo")
	req.Body = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tampered.Encode())).Body
	req.PostForm = nil
	req.Form = nil

	if ValidateSignature(req, "token", "https://agendai.example/webhook/whatsapp") {
		t.Fatal("expected invalid signature for tampered body")
	}
}

func TestParseInbound_NormalizesPhones(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("From", "whatsapp:+5511977770000")
	form.Set("To", "whatsapp:+5511988880000")
	form.Set("Body", "quero marcar um corte")

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	msg, err := ParseInbound(req)
	if err != nil {
		t.Fatalf("ParseInbound returned error: %v", err)
	}
	if msg.From != "+5511977770000" {
		t.Errorf("expected normalized from, got %q", msg.From)
	}
	if msg.To != "+5511988880000" {
		t.Errorf("expected normalized to, got %q", msg.To)
	}
	if msg.HasAudio() {
		t.Error("text message should not report audio")
	}
}

func TestParseInbound_VoiceNote(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM456")
	form.Set("From", "whatsapp:+5511977770000")
	form.Set("MediaUrl0", "https://api.twilio.com/media/abc")
	form.Set("MediaContentType0", "audio/ogg")

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	msg, err := ParseInbound(req)
	if err != nil {
		t.Fatalf("ParseInbound returned error: %v", err)
	}
	if !msg.HasAudio() {
		t.Fatal("expected audio media to be detected")
	}
	if msg.MediaURL != "https://api.twilio.com/media/abc" {
		t.Errorf("unexpected media URL: %q", msg.MediaURL)
	}
}

func TestPhoneHelpers(t *testing.T) {
	if got := NormalizePhone(" whatsapp:+5511977770000 "); got != "+5511977770000" {
		t.Errorf("NormalizePhone = %q", got)
	}
	if got := WhatsAppAddress("+5511977770000"); got != "whatsapp:+5511977770000" {
		t.Errorf("WhatsAppAddress = %q", got)
	}
	if got := WhatsAppAddress("whatsapp:+5511977770000"); got != "whatsapp:+5511977770000" {
		t.Errorf("WhatsAppAddress should not double-prefix, got %q", got)
	}
}

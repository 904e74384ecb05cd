package messaging

import "strings"

// whatsAppPrefix is how Twilio addresses WhatsApp endpoints.
const whatsAppPrefix = "whatsapp:"

// NormalizePhone strips the Twilio WhatsApp prefix and whitespace, returning
// a bare E.164 number.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, whatsAppPrefix)
	return strings.TrimSpace(raw)
}

// WhatsAppAddress prefixes an E.164 number for the Twilio WhatsApp channel.
// Already-prefixed numbers pass through unchanged.
func WhatsAppAddress(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, whatsAppPrefix) {
		return phone
	}
	return whatsAppPrefix + phone
}

package appointments

import (
	"context"
	"fmt"
	"time"
)

// Notifier sends an outbound WhatsApp message to a client. Satisfied by the
// messaging sender; nil disables notifications.
type Notifier interface {
	Send(ctx context.Context, to, body string) error
}

func confirmationText(businessName string, start time.Time) string {
	return fmt.Sprintf(
		"Seu horário em %s foi confirmado para %s às %s. Até lá!",
		businessName, start.Format("02/01/2006"), start.Format("15:04"))
}

func cancellationText(businessName string, start time.Time) string {
	return fmt.Sprintf(
		"Seu horário em %s no dia %s às %s foi cancelado. Se quiser reagendar, é só responder esta mensagem.",
		businessName, start.Format("02/01/2006"), start.Format("15:04"))
}

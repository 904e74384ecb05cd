package reminders

import "errors"

// ErrAlreadySent reports that a reminder for the appointment was already
// recorded in the log.
var ErrAlreadySent = errors.New("reminder already sent")

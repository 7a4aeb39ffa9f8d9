// Package gateway defines the outbound messaging boundary. The reminder
// dispatcher only ever sees this interface; the Telegram implementation
// lives in the telegram subpackage.
package gateway

import "context"

// Gateway delivers a text message to a recipient. Failures are per-recipient:
// an error for one chat never implies anything about another.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Package notification delivers fraud alerts and ledger events to the
// outside world: logs, Redis pub/sub and Kafka.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Alert describes one newly flagged transaction.
type Alert struct {
	ID              string          `json:"id"`
	UserID          uint            `json:"user_id"`
	UserEmail       string          `json:"user_email,omitempty"`
	TransactionID   uint            `json:"transaction_id"`
	Reference       string          `json:"reference"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	FormattedAmount string          `json:"formatted_amount,omitempty"`
	Reason          string          `json:"reason"`
	DetectedAt      time.Time       `json:"detected_at"`
}

// AlertSink receives fraud alerts. Callers treat delivery as fire and
// forget: a failing sink never fails the scan or the ledger operation.
type AlertSink interface {
	SendFraudAlert(ctx context.Context, alert Alert) error
}

// RenderAlert formats an alert as the plain-text message operators read.
func RenderAlert(a Alert) string {
	who := a.UserEmail
	if who == "" {
		who = fmt.Sprintf("#%d", a.UserID)
	}
	amount := a.FormattedAmount
	if amount == "" {
		amount = a.BaseAmount.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Fraud Alert: Transaction %s by user %s flagged as suspicious.\n", a.Reference, who)
	fmt.Fprintf(&b, "Amount: %s", amount)
	if a.Currency != "" && !a.Amount.Equal(a.BaseAmount) {
		fmt.Fprintf(&b, " (entered as %s %s)", a.Amount.String(), a.Currency)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Reason: %s\n", a.Reason)
	fmt.Fprintf(&b, "Timestamp: %s", a.DetectedAt.UTC().Format(time.RFC3339))
	return b.String()
}

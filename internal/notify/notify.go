// Package notify sends run-completion notifications. The only built-in
// adapter is Telegram; notifications are best-effort and never fail a run.
package notify

import (
	"fmt"
	"log"
)

// Sender can send a plain text message.
type Sender interface {
	Send(msg string) error
}

// Notifier formats run events and dispatches them. A nil Notifier and a
// Notifier with no sender are both valid and do nothing.
type Notifier struct {
	sender Sender
}

// New creates a Notifier. sender may be nil (disabled).
func New(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// RunCompleted announces a successful run.
func (n *Notifier) RunCompleted(runID int64, taskName, model string, totalCost float64, currency string) {
	n.send(fmt.Sprintf("✅ *Run %d complete*\n\nTask: %s\nModel: %s\nCost: %s%.4f",
		runID, taskName, model, currency, totalCost))
}

// RunFailed announces a failed run.
func (n *Notifier) RunFailed(runID int64, taskName, model, reason string) {
	n.send(fmt.Sprintf("❌ *Run %d failed*\n\nTask: %s\nModel: %s\nError: %s",
		runID, taskName, model, reason))
}

func (n *Notifier) send(msg string) {
	if n == nil || n.sender == nil {
		return
	}
	if err := n.sender.Send(msg); err != nil {
		log.Printf("notify: send: %v", err)
	}
}

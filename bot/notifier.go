package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"earnapp/events"
)

// Notifier pushes operator alerts to the admin channel. Delivery is
// fire-and-forget: a failed send is logged and never affects the ledger.
type Notifier struct {
	bot       *telego.Bot
	channelID int64
	timeout   time.Duration
}

// NewNotifier creates the operator notifier
func NewNotifier(bot *telego.Bot, channelID int64, timeout time.Duration) *Notifier {
	return &Notifier{
		bot:       bot,
		channelID: channelID,
		timeout:   timeout,
	}
}

// Register subscribes the notifier to ledger events
func (n *Notifier) Register(bus *events.Bus) {
	bus.Subscribe(events.EventTypeWithdrawalRequested, n.onWithdrawalRequested)
}

func (n *Notifier) onWithdrawalRequested(ctx context.Context, event events.Event) {
	req, ok := event.(events.WithdrawalRequestedEvent)
	if !ok {
		return
	}

	text := fmt.Sprintf(
		"💸 Withdrawal request\n\nUser: %d\nAmount: %d points\nDestination: %s\nReference: %s",
		req.UserID, req.Amount, req.Destination, req.Reference,
	)
	if err := n.Send(ctx, text); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"userID":    req.UserID,
			"reference": req.Reference,
		}).Error("Failed to notify operator about withdrawal")
	}
}

// Send delivers a message to the admin channel within the notifier timeout
func (n *Notifier) Send(ctx context.Context, text string) error {
	if n.channelID == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	_, err := n.bot.SendMessage(ctx, tu.Message(tu.ID(n.channelID), text))
	return err
}

package billing

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dmitrymomot/scrapekit/pkg/billing"
	"github.com/dmitrymomot/scrapekit/pkg/email"
	"github.com/dmitrymomot/scrapekit/pkg/email/templates"
)

// ReceiptNotifier emails a receipt after a purchase is committed.
// It implements billing.Notifier.
type ReceiptNotifier struct {
	sender  email.EmailSender
	printer *message.Printer
	appName string
	appURL  string
}

// ReceiptOption configures a ReceiptNotifier.
type ReceiptOption func(*ReceiptNotifier)

// WithReceiptLanguage sets the locale numbers and amounts are formatted in.
func WithReceiptLanguage(tag language.Tag) ReceiptOption {
	return func(n *ReceiptNotifier) { n.printer = message.NewPrinter(tag) }
}

// WithReceiptApp sets the product name and link shown in the email.
func WithReceiptApp(name, url string) ReceiptOption {
	return func(n *ReceiptNotifier) {
		n.appName = name
		n.appURL = url
	}
}

// NewReceiptNotifier creates a ReceiptNotifier. Panics if sender is nil.
func NewReceiptNotifier(sender email.EmailSender, opts ...ReceiptOption) *ReceiptNotifier {
	if sender == nil {
		panic("receipt notifier: sender is required")
	}
	n := &ReceiptNotifier{
		sender:  sender,
		printer: message.NewPrinter(language.English),
		appName: "ScrapeKit",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// PaymentCompleted renders and sends the receipt.
func (n *ReceiptNotifier) PaymentCompleted(ctx context.Context, r billing.Receipt) error {
	body, err := templates.Render(ctx, n.receiptEmail(r))
	if err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   r.Email,
		Subject:  n.printer.Sprintf("%s: %d credits added to your account", n.appName, r.Credits),
		BodyHTML: body,
		Tag:      "receipt",
	})
}

func (n *ReceiptNotifier) receiptEmail(r billing.Receipt) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		name := r.Username
		if name == "" {
			name = r.Email
		}
		lines := []string{
			`<!DOCTYPE html><html><body style="font-family:sans-serif">`,
			"<h1>" + templ.EscapeString(n.appName) + "</h1>",
			"<p>" + templ.EscapeString(n.printer.Sprintf("Hi %s, thank you for your purchase.", name)) + "</p>",
			"<table>",
			row("Plan", r.PlanName),
			row("Credits", n.printer.Sprintf("%d", r.Credits)),
			row("Amount", n.formatAmount(r.Amount, r.Currency)),
			row("Balance", n.printer.Sprintf("%d", r.Balance)),
			row("Transaction", r.TransactionID),
			row("Date", r.PaidAt.UTC().Format("2006-01-02 15:04 UTC")),
			"</table>",
		}
		if n.appURL != "" {
			lines = append(lines, `<p><a href="`+templ.EscapeString(n.appURL)+`">`+templ.EscapeString(n.appURL)+"</a></p>")
		}
		lines = append(lines, "</body></html>")

		_, err := io.WriteString(w, strings.Join(lines, "\n"))
		return err
	})
}

func row(label, value string) string {
	return "<tr><td>" + templ.EscapeString(label) + "</td><td>" + templ.EscapeString(value) + "</td></tr>"
}

// formatAmount renders minor units in the currency's standard scale.
// Unknown codes fall back to the raw minor units.
func (n *ReceiptNotifier) formatAmount(amount int64, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return n.printer.Sprintf("%d %s", amount, strings.ToUpper(code))
	}
	scale, _ := currency.Standard.Rounding(unit)
	value := float64(amount) / math.Pow10(scale)
	return n.printer.Sprint(currency.Symbol(unit.Amount(value)))
}

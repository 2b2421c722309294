package notifications

import (
	"strings"
	"time"

	"trubid-backend/internal/application/emails"
	"trubid-backend/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	noPaymentSettings = "Contact seller for payment details."
	notProvided       = "Not provided"
	longDate          = "January 2, 2006"
)

// PaymentInstructions renders the seller's payment options limited to the methods the listing
// accepts. Methods whose credential is unset are omitted.
func PaymentInstructions(settings *domain.PaymentSettings, methods domain.PaymentMethods) string {
	if settings == nil {
		return noPaymentSettings
	}
	esc := emails.EscapeHTML
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; margin: 20px 0;">`)
	b.WriteString(`<h3 style="color: #1B2841; border-bottom: 1px solid #eee; padding-bottom: 10px;">Payment Options</h3>`)

	if methods.PayPal && settings.PayPalEmail != "" {
		b.WriteString(`<div style="margin-bottom: 15px;"><strong style="color: #F4812C;">PayPal:</strong><br>`)
		b.WriteString(`Send payment to: <code>` + esc(settings.PayPalEmail) + `</code></div>`)
	}
	if methods.CashApp && settings.CashAppID != "" {
		b.WriteString(`<div style="margin-bottom: 15px;"><strong style="color: #F4812C;">Cash App:</strong><br>`)
		b.WriteString(`Send to: <code>` + esc(settings.CashAppID) + `</code>`)
		b.WriteString(qrBlock(settings.CashAppQR, "Cash App QR Code"))
		b.WriteString(`</div>`)
	}
	if methods.Venmo && settings.VenmoID != "" {
		b.WriteString(`<div style="margin-bottom: 15px;"><strong style="color: #F4812C;">Venmo:</strong><br>`)
		b.WriteString(`Send to: <code>` + esc(settings.VenmoID) + `</code>`)
		b.WriteString(qrBlock(settings.VenmoQR, "Venmo QR Code"))
		b.WriteString(`</div>`)
	}
	if methods.BankTransfer && settings.BankName != "" && settings.BankAccountNumber != "" {
		b.WriteString(`<div style="margin-bottom: 15px;"><strong style="color: #F4812C;">Bank Transfer:</strong><br>`)
		b.WriteString(`Bank: ` + esc(settings.BankName) + `<br>`)
		b.WriteString(`Account Name: ` + esc(orNotProvided(settings.BankAccountName)) + `<br>`)
		b.WriteString(`Account Number: ` + esc(settings.BankAccountNumber) + `<br>`)
		b.WriteString(`Routing Number: ` + esc(orNotProvided(settings.BankRoutingNumber)))
		b.WriteString(`</div>`)
	}
	if settings.PaymentInstructions != "" {
		b.WriteString(`<div style="margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee;">`)
		b.WriteString(`<strong style="color: #1B2841;">Additional Instructions:</strong>`)
		b.WriteString(`<p>` + strings.ReplaceAll(esc(settings.PaymentInstructions), "\n", "<br>") + `</p>`)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func qrBlock(url, alt string) string {
	if url == "" {
		return `<div style="margin-top: 10px;"></div>`
	}
	return `<div style="margin-top: 10px;"><p>Scan this QR code to pay:</p><img src="` + emails.EscapeHTML(url) +
		`" alt="` + alt + `" style="max-width: 200px; border: 1px solid #eee;"></div>`
}

func orNotProvided(s string) string {
	if s == "" {
		return notProvided
	}
	return s
}

// TransactionDetails is the winner-facing summary block.
func TransactionDetails(listing *domain.Listing, finalPrice decimal.Decimal, at time.Time) string {
	ref := listing.ID.String()[:8]
	return `<div style="background-color: #f9f9f9; padding: 15px; border-radius: 5px; margin-bottom: 20px; border-left: 4px solid #F4812C;">` +
		`<strong>Item:</strong> ` + emails.EscapeHTML(listing.Title) + `<br>` +
		`<strong>Final Price:</strong> $` + finalPrice.StringFixed(2) + `<br>` +
		`<strong>Transaction Date:</strong> ` + at.Format(longDate) + `<br>` +
		`<strong>Reference:</strong> TRU-` + ref +
		`</div>`
}

// AuctionDetails is the admin and seller summary block.
func AuctionDetails(listing *domain.Listing, finalPrice decimal.Decimal, buyerEmail string, at time.Time) string {
	category := listing.Category
	if category == "" {
		category = "Not specified"
	}
	return `<div style="background-color: #f9f9f9; padding: 15px; border-radius: 5px; margin: 15px 0; border-left: 4px solid #1B2841;">` +
		`<strong>Item:</strong> ` + emails.EscapeHTML(listing.Title) + `<br>` +
		`<strong>Category:</strong> ` + emails.EscapeHTML(category) + `<br>` +
		`<strong>Final Price:</strong> $` + finalPrice.StringFixed(2) + `<br>` +
		`<strong>Buyer:</strong> ` + emails.EscapeHTML(buyerEmail) + `<br>` +
		`<strong>Auction ID:</strong> ` + listing.ID.String() + `<br>` +
		`<strong>Date Ended:</strong> ` + at.Format(longDate) +
		`</div>`
}

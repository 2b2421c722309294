package notifications

import (
	"trubid-backend/internal/application/emails"
	"trubid-backend/internal/domain"
)

const auctionWonBody = `
<h1>Congratulations, {{winner_name}}!</h1>
<p>You've successfully won the auction for <span class="highlight">{{item_title}}</span> with a final bid of <span class="highlight">${{final_price}}</span>.</p>
{{transaction_details}}
<h2>Payment Instructions</h2>
<p>Please complete your payment promptly to finalize your purchase:</p>
{{payment_instructions}}
<p>If you have any questions about payment or your purchase, please contact the seller directly.</p>
`

const adminNotificationBody = `
<h1>Auction Complete</h1>
<p>An auction has been completed on TruBid.</p>
{{auction_details}}
<p>The buyer has been notified with payment instructions. You should expect payment soon.</p>
<p>This is an automated notification. No action is required from you at this time.</p>
`

// DefaultTemplates are seeded at startup for any type that has no stored template yet.
func DefaultTemplates(from string) []domain.EmailTemplate {
	if from == "" {
		from = emails.DefaultFrom
	}
	return []domain.EmailTemplate{
		{
			TemplateType: domain.TemplateAuctionWon,
			FromEmail:    from,
			Subject:      "Congratulations! You've won the auction for {{item_title}}",
			Body:         emails.EmailLayout(auctionWonBody),
		},
		{
			TemplateType: domain.TemplateAdminNotification,
			FromEmail:    from,
			Subject:      "Auction Completed: {{item_title}}",
			Body:         emails.EmailLayout(adminNotificationBody),
		},
	}
}

// Package email renders the confirmation notice sent to operators.
package email

import (
	"fmt"
	"html"
	"net/url"

	"rateintake/internal/port"
)

// Message is a rendered notice.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// RenderConfirmationNotice builds the notice for a confirmed onboarding.
// frontendURL, when set, adds a link to the supplier.
func RenderConfirmationNotice(n port.ConfirmationNotice, frontendURL string) Message {
	name := n.SupplierName
	if name == "" {
		name = "Unnamed supplier"
	}

	link := ""
	if frontendURL != "" {
		link = fmt.Sprintf("%s/suppliers/%s", frontendURL, url.PathEscape(n.SupplierID))
	}

	subject := fmt.Sprintf("Supplier onboarded: %s", name)
	text := fmt.Sprintf("%s has been onboarded.\n\nSupplier ID: %s\nRate card: %s\nRate rows processed: %d\n",
		name, n.SupplierID, n.RateCardID, n.RowsProcessed)
	if link != "" {
		text += "\nView the supplier: " + link + "\n"
	}

	linkHTML := ""
	if link != "" {
		linkHTML = fmt.Sprintf(`<p><a href="%s" style="color: #4F46E5;">View the supplier</a></p>`, html.EscapeString(link))
	}
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">%s has been onboarded</h2>
  <table style="border-collapse: collapse;">
    <tr><td style="padding: 4px 12px 4px 0; color: #666;">Supplier ID</td><td>%s</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #666;">Rate card</td><td>%s</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #666;">Rate rows processed</td><td>%d</td></tr>
  </table>
  %s
</body>
</html>`, html.EscapeString(name), html.EscapeString(n.SupplierID), html.EscapeString(n.RateCardID), n.RowsProcessed, linkHTML)

	return Message{Subject: subject, Text: text, HTML: body}
}

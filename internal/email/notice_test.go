package email_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rateintake/internal/email"
	"rateintake/internal/port"
)

func TestRenderConfirmationNotice(t *testing.T) {
	msg := email.RenderConfirmationNotice(port.ConfirmationNotice{
		SupplierName:  "Smith & Jones <Staffing>",
		SupplierID:    "3f1c",
		RateCardID:    "rc-7",
		RowsProcessed: 42,
	}, "https://ops.example.com")

	assert.Equal(t, "Supplier onboarded: Smith & Jones <Staffing>", msg.Subject)
	assert.Contains(t, msg.Text, "Rate rows processed: 42")
	assert.Contains(t, msg.Text, "https://ops.example.com/suppliers/3f1c")
	assert.Contains(t, msg.HTML, "Smith &amp; Jones &lt;Staffing&gt;")
	assert.NotContains(t, msg.HTML, "<Staffing>")
	assert.Contains(t, msg.HTML, `href="https://ops.example.com/suppliers/3f1c"`)
}

func TestRenderConfirmationNotice_NoNameNoLink(t *testing.T) {
	msg := email.RenderConfirmationNotice(port.ConfirmationNotice{SupplierID: "id-1"}, "")

	assert.Equal(t, "Supplier onboarded: Unnamed supplier", msg.Subject)
	assert.NotContains(t, msg.Text, "View the supplier")
	assert.NotContains(t, msg.HTML, "<a ")
}

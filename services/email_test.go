package services

import (
	"strings"
	"testing"

	"justice_flow_go/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTemplate(t *testing.T) {
	t.Run("Complaint receipt renders both bodies", func(t *testing.T) {
		html, text, err := loadTemplate("complaint_receipt", ComplaintReceiptEmailData{
			CitizenName:  "Awa Ngono",
			TrackingCode: "PL-20240101-ABCD",
			FiledAt:      "01/01/2024 10:00",
			VerifyURL:    "https://justice.test/verify/tok",
		})
		require.NoError(t, err)
		assert.Contains(t, html, "PL-20240101-ABCD")
		assert.Contains(t, text, "Dear Awa Ngono")
		assert.Contains(t, text, "https://justice.test/verify/tok")
	})

	t.Run("HTML escapes user content", func(t *testing.T) {
		html, _, err := loadTemplate("notification", NotificationEmailData{
			RecipientName: "<script>x</script>",
			Title:         "Hearing",
			Message:       "Hearing scheduled",
		})
		require.NoError(t, err)
		assert.NotContains(t, html, "<script>x</script>")
	})

	t.Run("Unknown template", func(t *testing.T) {
		_, _, err := loadTemplate("missing", nil)
		assert.Error(t, err)
	})
}

func TestBuildEmailWithFallback(t *testing.T) {
	email := buildEmail("missing", nil, "plain fallback", "a@justice.test")
	assert.Equal(t, "plain fallback", email.TextBody)
	assert.Empty(t, email.HTMLBody)
	assert.Equal(t, []string{"a@justice.test"}, email.To)
}

func TestBuildComplaintReceiptEmail(t *testing.T) {
	data := ComplaintReceiptEmailData{CitizenName: "Awa", TrackingCode: "PL-X", VerifyURL: "https://justice.test/verify/t"}

	email := BuildComplaintReceiptEmail("awa@justice.test", data, []byte("%PDF-1.4"))
	assert.Equal(t, "Complaint PL-X registered", email.Subject)
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "receipt-PL-X.pdf", email.Attachments[0].Filename)

	withoutPDF := BuildComplaintReceiptEmail("awa@justice.test", data, nil)
	assert.Empty(t, withoutPDF.Attachments)
}

func TestBuildOccupancyReportEmail(t *testing.T) {
	email := BuildOccupancyReportEmail([]string{"dg@justice.test", "ops@justice.test"}, OccupancyReportEmailData{
		GeneratedAt: "2024-03-04",
		PrisonCount: 2,
		Detained:    13,
		Overcrowded: 1,
	}, []byte("xlsx"))

	assert.Len(t, email.To, 2)
	assert.True(t, strings.HasSuffix(email.Subject, "2024-03-04"))
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, XLSXContentType, email.Attachments[0].ContentType)
}

func TestSendEmail_TestMode(t *testing.T) {
	cfg := &config.Config{EmailTestMode: true}
	err := SendEmail(cfg, &Email{To: []string{"a@justice.test"}, Subject: "s", TextBody: "b"})
	assert.NoError(t, err)
}

func TestSendEmail_NoApiKey(t *testing.T) {
	cfg := &config.Config{EmailTestMode: false}
	err := SendEmail(cfg, &Email{To: []string{"a@justice.test"}, Subject: "s", TextBody: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY")
}

func TestSendEmail_NoRecipients(t *testing.T) {
	err := SendEmail(&config.Config{EmailTestMode: true}, &Email{Subject: "s", TextBody: "b"})
	assert.Error(t, err)
}

func TestSendEmail_NoBody(t *testing.T) {
	cfg := &config.Config{EmailTestMode: false, ResendAPIKey: "re_test"}
	err := SendEmail(cfg, &Email{To: []string{"a@justice.test"}, Subject: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTMLBody or TextBody")
}

package services

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"path"
	"strings"
	texttemplate "text/template"

	"justice_flow_go/config"

	"github.com/resend/resend-go/v2"
	log "github.com/sirupsen/logrus"
)

//go:embed templates/emails/* templates/documents/*
var emailTemplates embed.FS

// Email represents an email message
type Email struct {
	To          []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []EmailAttachment
}

// EmailAttachment is a file sent along with an email
type EmailAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// loadTemplate renders templates/emails/{name}.html and .txt with data
func loadTemplate(name string, data interface{}) (html string, text string, err error) {
	base := path.Join("templates/emails", name)

	htmlTmpl, err := htmltemplate.ParseFS(emailTemplates, base+".html")
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s.html: %w", name, err)
	}
	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.html: %w", name, err)
	}

	textTmpl, err := texttemplate.ParseFS(emailTemplates, base+".txt")
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s.txt: %w", name, err)
	}
	var textBuf bytes.Buffer
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.txt: %w", name, err)
	}

	return htmlBuf.String(), textBuf.String(), nil
}

// buildEmail renders a template, falling back to a plain text body when rendering fails
func buildEmail(templateName string, data interface{}, fallbackText string, to ...string) *Email {
	htmlBody, textBody, err := loadTemplate(templateName, data)
	if err != nil {
		log.Printf("Error loading %s email template: %v", templateName, err)
		htmlBody, textBody = "", fallbackText
	}
	return &Email{
		To:       to,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	// In test mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}
	for _, a := range email.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     a.Content,
		})
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Printf("Email sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details in test mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 60)
	log.Printf("\n%s\nEMAIL (test mode, not sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	for _, a := range email.Attachments {
		log.Printf("Attachment: %s (%d bytes)", a.Filename, len(a.Content))
	}
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
}

// SendEmailAsync sends an email in a goroutine so handlers never block on the provider
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := *email
	emailCopy.To = append([]string{}, email.To...)

	go func() {
		if err := SendEmail(cfg, &emailCopy); err != nil {
			notificationFailures.WithLabelValues("email").Inc()
			log.Printf("Error sending async email: %v", err)
		}
	}()
}

// ComplaintReceiptEmailData contains data for the complaint receipt template
type ComplaintReceiptEmailData struct {
	CitizenName  string
	TrackingCode string
	FiledAt      string
	VerifyURL    string
}

// BuildComplaintReceiptEmail creates the filing confirmation sent to a citizen
func BuildComplaintReceiptEmail(toEmail string, data ComplaintReceiptEmailData, receiptPDF []byte) *Email {
	email := buildEmail("complaint_receipt", data,
		fmt.Sprintf("Your complaint was registered under %s. Verify it at %s", data.TrackingCode, data.VerifyURL),
		toEmail)
	email.Subject = fmt.Sprintf("Complaint %s registered", data.TrackingCode)
	if len(receiptPDF) > 0 {
		email.Attachments = append(email.Attachments, EmailAttachment{
			Filename:    "receipt-" + data.TrackingCode + ".pdf",
			ContentType: "application/pdf",
			Content:     receiptPDF,
		})
	}
	return email
}

// NotificationEmailData contains data for the generic notification template
type NotificationEmailData struct {
	RecipientName string
	Title         string
	Message       string
	LinkURL       string
}

// BuildNotificationEmail mirrors an in-app notification by email
func BuildNotificationEmail(toEmail string, data NotificationEmailData) *Email {
	email := buildEmail("notification", data, data.Message, toEmail)
	email.Subject = data.Title
	return email
}

// OccupancyReportEmailData contains data for the weekly occupancy report
type OccupancyReportEmailData struct {
	GeneratedAt string
	PrisonCount int
	Detained    int64
	Overcrowded int
}

// BuildOccupancyReportEmail creates the weekly report email with its spreadsheet attached
func BuildOccupancyReportEmail(recipients []string, data OccupancyReportEmailData, workbook []byte) *Email {
	email := buildEmail("occupancy_report", data,
		fmt.Sprintf("Weekly occupancy report: %d detainees held.", data.Detained),
		recipients...)
	email.Subject = "Weekly prison occupancy report - " + data.GeneratedAt
	email.Attachments = append(email.Attachments, EmailAttachment{
		Filename:    "occupancy-" + data.GeneratedAt + ".xlsx",
		ContentType: XLSXContentType,
		Content:     workbook,
	})
	return email
}

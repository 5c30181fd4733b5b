package services

import (
	"bytes"
	"context"

	"justice_flow_go/config"
	"justice_flow_go/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func loadReceiptComplaint(db *gorm.DB, complaintID string) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := db.Preload("Citizen").Preload("PoliceStation").First(&complaint, "id = ?", complaintID).Error; err != nil {
		return nil, notFoundOr(err, "complaint")
	}
	return &complaint, nil
}

// DeliverComplaintReceipt renders the PDF receipt of a newly filed complaint, archives it
// and emails it to the citizen. A rendering failure still sends the email without attachment.
func DeliverComplaintReceipt(ctx context.Context, db *gorm.DB, cfg *config.Config, storage StorageProvider, complaintID string) error {
	complaint, err := loadReceiptComplaint(db.WithContext(ctx), complaintID)
	if err != nil {
		return err
	}

	pdf, err := GenerateComplaintReceipt(ctx, cfg, complaint)
	if err != nil {
		log.WithField("complaint_id", complaint.ID).Warnf("[RECEIPT] PDF generation failed: %v", err)
		pdf = nil
	}

	if len(pdf) > 0 && storage != nil {
		key := GenerateReceiptKey(complaint.ID)
		if _, err := storage.UploadReader(ctx, bytes.NewReader(pdf), key, "application/pdf", int64(len(pdf))); err != nil {
			log.WithField("complaint_id", complaint.ID).Warnf("[RECEIPT] Failed to archive receipt: %v", err)
		}
	}

	if complaint.Citizen == nil || complaint.Citizen.Email == "" {
		return nil
	}
	email := BuildComplaintReceiptEmail(complaint.Citizen.Email, ComplaintReceiptEmailData{
		CitizenName:  complaint.Citizen.Name,
		TrackingCode: complaint.TrackingCode,
		FiledAt:      complaint.FiledAt.Format("02/01/2006 15:04"),
		VerifyURL:    VerificationURL(cfg, complaint.VerificationToken),
	}, pdf)
	return SendEmail(cfg, email)
}

// ComplaintReceiptPDF returns the receipt of a complaint the actor may see
func ComplaintReceiptPDF(ctx context.Context, db *gorm.DB, cfg *config.Config, actor Actor, complaintID string) (*models.Complaint, []byte, error) {
	if _, err := EnsureComplaintAccess(db, actor, complaintID); err != nil {
		return nil, nil, err
	}
	complaint, err := loadReceiptComplaint(db, complaintID)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := GenerateComplaintReceipt(ctx, cfg, complaint)
	if err != nil {
		return nil, nil, err
	}
	return complaint, pdf, nil
}

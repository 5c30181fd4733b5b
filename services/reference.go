package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"justice_flow_go/models"

	"gorm.io/gorm"
)

const maxReferenceRetries = 10

// randomDigits returns an n-digit zero-padded number drawn from crypto/rand
func randomDigits(n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}

// uniqueCode draws codes from gen until column has no row with that value
func uniqueCode(db *gorm.DB, model interface{}, column string, gen func() (string, error)) (string, error) {
	for i := 0; i < maxReferenceRetries; i++ {
		code, err := gen()
		if err != nil {
			return "", Internal("failed to generate code", err)
		}

		var count int64
		if err := db.Model(model).Unscoped().Where(column+" = ?", code).Count(&count).Error; err != nil {
			return "", Internal("failed to check code uniqueness", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", Internal(fmt.Sprintf("failed to generate unique %s after %d retries", column, maxReferenceRetries), nil)
}

// GenerateCaseReference returns a fresh case reference.
// Format: RP-{YEAR}-{5 random digits}, e.g. RP-2024-04217
func GenerateCaseReference(db *gorm.DB) (string, error) {
	year := time.Now().Year()
	return uniqueCode(db, &models.Case{}, "reference", func() (string, error) {
		digits, err := randomDigits(5)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("RP-%d-%s", year, digits), nil
	})
}

// GenerateDecisionNumber returns a fresh decision number: DEC-{YEAR}-{5 random digits}
func GenerateDecisionNumber(db *gorm.DB) (string, error) {
	year := time.Now().Year()
	return uniqueCode(db, &models.Decision{}, "decision_number", func() (string, error) {
		digits, err := randomDigits(5)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("DEC-%d-%s", year, digits), nil
	})
}

// GenerateTrackingCode returns the next public complaint reference for the year.
// Format: PL-{YEAR}-{SEQUENCE}, e.g. PL-2024-0001. The sequence is padded to four
// digits and keeps growing past 9999.
func GenerateTrackingCode(db *gorm.DB) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("PL-%d-", year)

	var last int64
	err := db.Unscoped().Model(&models.Complaint{}).
		Where("tracking_code LIKE ?", prefix+"%").
		Select("COALESCE(MAX(CAST(SUBSTR(tracking_code, ?) AS INTEGER)), 0)", len(prefix)+1).
		Scan(&last).Error
	if err != nil {
		return "", Internal("failed to query last tracking code", err)
	}

	sequence := last + 1
	return uniqueCode(db, &models.Complaint{}, "tracking_code", func() (string, error) {
		code := fmt.Sprintf("%s%04d", prefix, sequence)
		sequence++
		return code, nil
	})
}

// GenerateVerificationToken returns a random token used by the public authenticity check
func GenerateVerificationToken(db *gorm.DB) (string, error) {
	return uniqueCode(db, &models.Complaint{}, "verification_token", func() (string, error) {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		return hex.EncodeToString(b), nil
	})
}

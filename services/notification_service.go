package services

import (
	"context"
	"strings"
	"time"

	"justice_flow_go/config"
	"justice_flow_go/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Notice is a message addressed to one user, optionally about a Complaint or a Case
type Notice struct {
	UserID       string
	Type         string
	Title        string
	Message      string
	ResourceType string
	ResourceID   string
	// Email also sends the notice by email when true and the user has an address
	Email bool
}

// link returns the client URL of the notice's resource, if any
func (n Notice) link(cfg *config.Config) string {
	if cfg == nil || cfg.AppURL == "" || n.ResourceID == "" {
		return ""
	}
	switch n.ResourceType {
	case "Complaint":
		return strings.TrimSuffix(cfg.AppURL, "/") + "/complaints/" + n.ResourceID
	case "Case":
		return strings.TrimSuffix(cfg.AppURL, "/") + "/cases/" + n.ResourceID
	}
	return ""
}

// Notifier delivers notices. Delivery is best-effort and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotificationDispatcher stores an in-app notification and optionally mirrors it by email
type NotificationDispatcher struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// Notifications is the process-wide notifier, set up by InitNotifications
var Notifications Notifier

// InitNotifications initializes the global notifier
func InitNotifications(db *gorm.DB, cfg *config.Config) Notifier {
	Notifications = &NotificationDispatcher{DB: db, Cfg: cfg}
	return Notifications
}

func (d *NotificationDispatcher) Notify(ctx context.Context, n Notice) {
	if d == nil || d.DB == nil || n.UserID == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var recipient *models.User
	if n.Email && d.Cfg != nil {
		var user models.User
		err := d.DB.WithContext(ctx).Select("id", "name", "email").First(&user, "id = ?", n.UserID).Error
		switch {
		case err != nil:
			log.Printf("[NOTIFY] Cannot email user %s: %v", n.UserID, err)
		case user.Email != "":
			recipient = &user
		}
	}

	notification := models.Notification{
		UserID:       n.UserID,
		Type:         n.Type,
		Title:        n.Title,
		Message:      n.Message,
		ResourceType: n.ResourceType,
		ResourceID:   n.ResourceID,
		Emailed:      recipient != nil,
	}
	if err := d.DB.WithContext(ctx).Create(&notification).Error; err != nil {
		notificationFailures.WithLabelValues("in_app").Inc()
		log.Printf("[NOTIFY] Failed to store notification for user %s: %v", n.UserID, err)
	}

	if recipient == nil {
		return
	}
	SendEmailAsync(d.Cfg, BuildNotificationEmail(recipient.Email, NotificationEmailData{
		RecipientName: recipient.Name,
		Title:         n.Title,
		Message:       n.Message,
		LinkURL:       n.link(d.Cfg),
	}))
}

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

func (s *NotificationService) List(userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := s.DB.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var notifications []models.Notification
	err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

func (s *NotificationService) MarkAsRead(notificationID, userID string) error {
	result := s.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read_at", time.Now())
	if result.Error != nil {
		return Internal("failed to mark notification read", result.Error)
	}
	if result.RowsAffected == 0 {
		return NotFound("notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(userID string) error {
	return s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now()).Error
}

func (s *NotificationService) UnreadCount(userID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

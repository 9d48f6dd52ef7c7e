package notifications

import "github.com/mentha-ai/mentha-cli/internal/models"

// NotificationInterface delivers watch reports
type NotificationInterface interface {
	SendReport(report *models.WatchReport) error
}

package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mentha-ai/mentha-cli/internal/check"
	"github.com/mentha-ai/mentha-cli/internal/config"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service sends watch reports to Teams and email
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var bandColors = map[check.Band]string{
	check.BandGreen:  "107c10",
	check.BandYellow: "ffb900",
	check.BandRed:    "d13438",
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// Enabled reports whether any channel is configured
func (s *Service) Enabled() bool {
	return s.config.TeamsWebhookURL != "" || s.config.NotificationEmail != ""
}

// SendReport sends a report via every configured channel
func (s *Service) SendReport(report *models.WatchReport) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Sent watch report to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Sent watch report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(report *models.WatchReport) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(buildTeamsMessage(report)).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func buildTeamsMessage(report *models.WatchReport) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: bandColors[check.BandFor(report.AverageVisibility)],
		Title:      fmt.Sprintf("AI visibility report - %s", report.BrandName),
		Text: fmt.Sprintf("Checked %d prompts, average visibility %d%%",
			report.PromptsChecked, report.AverageVisibility),
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts: []TeamsFact{
			{Name: "Prompts Checked", Value: fmt.Sprintf("%d", report.PromptsChecked)},
			{Name: "Failed Checks", Value: fmt.Sprintf("%d", report.FailedChecks)},
			{Name: "Average Visibility", Value: fmt.Sprintf("%d%%", report.AverageVisibility)},
			{Name: "Generated", Value: report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		},
		Markdown: true,
	})

	if alerts := report.Alerts(); len(alerts) > 0 {
		var lines []string
		for _, a := range alerts {
			lines = append(lines, fmt.Sprintf("**%s** - %d%%", a.PromptText, a.Result.VisibilityRate))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: fmt.Sprintf("Below %d%% visibility", report.AlertThreshold),
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(report *models.WatchReport) error {
	subject := fmt.Sprintf("AI visibility report - %s (%d%% average)", report.BrandName, report.AverageVisibility)

	htmlBody, err := buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>AI visibility report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0f766e; color: white; padding: 20px; border-radius: 5px; }
        .check { border-left: 4px solid #605e5c; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .green { border-left-color: #107c10; }
        .yellow { border-left-color: #ffb900; }
        .red { border-left-color: #d13438; }
        .meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.BrandName}}</h1>
        <p>Generated {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM MST"}}</p>
    </div>

    <p><strong>Prompts checked:</strong> {{.PromptsChecked}} &middot;
       <strong>Failed:</strong> {{.FailedChecks}} &middot;
       <strong>Average visibility:</strong> {{.AverageVisibility}}%</p>

    {{range .Checks}}
    {{if .Result}}
    <div class="check {{band .Result.VisibilityRate}}">
        <div><strong>{{.PromptText}}</strong></div>
        <div class="meta">{{.Result.VisibilityRate}}% visibility ({{.Result.BrandMentionedCount}} of {{.Result.ModelsChecked}} providers)</div>
    </div>
    {{else}}
    <div class="check">
        <div><strong>{{.PromptText}}</strong></div>
        <div class="meta">check failed: {{.Error}}</div>
    </div>
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by the Mentha prompt watcher.</small></p>
</body>
</html>
`

func buildEmailHTML(report *models.WatchReport) (string, error) {
	t, err := template.New("email").Funcs(template.FuncMap{
		"band": func(rate int) string { return string(check.BandFor(rate)) },
	}).Parse(emailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func buildEmailText(report *models.WatchReport) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("AI visibility report - %s\n", report.BrandName))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Prompts checked: %d\n", report.PromptsChecked))
	text.WriteString(fmt.Sprintf("Failed checks: %d\n", report.FailedChecks))
	text.WriteString(fmt.Sprintf("Average visibility: %d%%\n", report.AverageVisibility))

	if len(report.Checks) > 0 {
		text.WriteString("\nPROMPTS\n")
		text.WriteString("=======\n")

		for i, c := range report.Checks {
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, c.PromptText))
			if c.Result == nil {
				text.WriteString(fmt.Sprintf("   check failed: %s\n", c.Error))
				continue
			}
			text.WriteString(fmt.Sprintf("   Visibility: %d%% [%s] (%d of %d providers)\n",
				c.Result.VisibilityRate, check.BandFor(c.Result.VisibilityRate),
				c.Result.BrandMentionedCount, c.Result.ModelsChecked))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by the Mentha prompt watcher.\n")

	return text.String()
}

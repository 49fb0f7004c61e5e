package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	gomail "gopkg.in/mail.v2"

	"episode-scribe/config"
	"episode-scribe/storage"
)

// Sender delivers a composed message.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier mails a summary of the seasons written by an extraction run
type EmailNotifier struct {
	config       config.Email
	htmlTemplate *template.Template
	sender       Sender
	now          func() time.Time
	log          zerolog.Logger
}

var emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Episode Scribe - Transcripts Update</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; }
        h1 { color: #a51c30; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
        th { background-color: #f4f4f4; text-align: left; padding: 10px; }
        td { padding: 10px; border-bottom: 1px solid #ddd; }
        .footer { font-size: 12px; color: #666; margin-top: 50px; text-align: center; }
        .count { font-weight: bold; color: #a51c30; }
    </style>
</head>
<body>
    <h1>Episode Scribe - Transcripts Update</h1>
    <p>Extraction finished on {{.Date}}.</p>

    <p>Seasons written: <span class="count">{{len .Seasons}}</span>, episodes: <span class="count">{{.TotalEpisodes}}</span></p>

    <table>
        <tr>
            <th>Season</th>
            <th>Episodes</th>
            <th>URLs</th>
            <th>File</th>
        </tr>
        {{range .Seasons}}
        <tr>
            <td>{{.Season}}</td>
            <td>{{.EpisodesWritten}}</td>
            <td>{{.URLs}}</td>
            <td>{{.Path}}</td>
        </tr>
        {{end}}
    </table>

    <div class="footer">
        <p>This is an automated email from Episode Scribe. Please do not reply.</p>
    </div>
</body>
</html>
`

// NewEmailNotifier creates a notifier that sends through SMTP.
func NewEmailNotifier(cfg config.Email, log zerolog.Logger) (*EmailNotifier, error) {
	tmpl, err := template.New("email").Parse(emailTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse email template")
	}

	return &EmailNotifier{
		config:       cfg,
		htmlTemplate: tmpl,
		sender:       gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Sender, cfg.Password),
		now:          time.Now,
		log:          log,
	}, nil
}

// WithSender replaces the SMTP dialer.
func (n *EmailNotifier) WithSender(s Sender) *EmailNotifier {
	n.sender = s
	return n
}

// Compose builds the message for results; seasons with nothing written are left out.
// It returns nil when there is nothing to report.
func (n *EmailNotifier) Compose(results []storage.SeasonResult) (*gomail.Message, error) {
	var written []storage.SeasonResult
	total := 0
	for _, r := range results {
		if r.EpisodesWritten > 0 {
			written = append(written, r)
			total += r.EpisodesWritten
		}
	}
	if len(written) == 0 {
		return nil, nil
	}

	data := struct {
		Date          string
		Seasons       []storage.SeasonResult
		TotalEpisodes int
	}{
		Date:          n.now().Format("January 2, 2006 at 3:04 PM"),
		Seasons:       written,
		TotalEpisodes: total,
	}

	var emailBody bytes.Buffer
	if err := n.htmlTemplate.Execute(&emailBody, data); err != nil {
		return nil, errors.Wrap(err, "failed to render email template")
	}

	var plain strings.Builder
	plain.WriteString("Episode Scribe Transcripts Update\n\n")
	plain.WriteString(fmt.Sprintf("Extraction finished on %s.\n\n", data.Date))
	for _, r := range written {
		plain.WriteString(fmt.Sprintf("%s: %d of %d episodes -> %s\n", r.Season, r.EpisodesWritten, r.URLs, r.Path))
	}
	plain.WriteString("\nThis is an automated email from Episode Scribe. Please do not reply.")

	m := gomail.NewMessage()
	m.SetHeader("From", n.config.Sender)
	m.SetHeader("To", n.config.Recipient)
	m.SetHeader("Subject", fmt.Sprintf("Episode Scribe: %d transcripts in %d season(s)", total, len(written)))
	m.SetBody("text/plain", plain.String())
	m.AddAlternative("text/html", emailBody.String())
	return m, nil
}

// NotifySeasonsWritten mails the run summary. A run that wrote nothing, or a
// notifier without a recipient, sends nothing.
func (n *EmailNotifier) NotifySeasonsWritten(results []storage.SeasonResult) error {
	if n.config.Recipient == "" {
		n.log.Debug().Msg("No recipient email configured, skipping notification")
		return nil
	}

	m, err := n.Compose(results)
	if err != nil {
		return err
	}
	if m == nil {
		n.log.Info().Msg("No seasons written, skipping notification")
		return nil
	}

	if err := n.sender.DialAndSend(m); err != nil {
		return errors.Wrap(err, "failed to send email")
	}

	n.log.Info().Str("recipient", n.config.Recipient).Int("seasons", len(results)).Msg("Email notification sent")
	return nil
}

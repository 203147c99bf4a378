package utils

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

// SMTPConfig holds outgoing mail settings. An incomplete config switches
// the sender to log-only mode.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	FromName string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port != "" && c.Username != "" && c.Password != ""
}

// SendTeamInviteEmail tells a new team member how to sign in to the
// check-in dashboard.
func SendTeamInviteEmail(cfg SMTPConfig, recipientEmail, loginLink, name, role string) error {
	if !cfg.Enabled() {
		log.Info().Str("to", MaskEmail(recipientEmail)).Str("role", role).Str("link", loginLink).Msg("[MOCK EMAIL] team invite")
		return nil
	}

	safe := func(s string) string {
		return strings.ReplaceAll(strings.TrimSpace(s), "\r\n", " ")
	}

	name = safe(name)
	role = safe(role)
	loginLink = safe(loginLink)

	if !(strings.HasPrefix(loginLink, "http://") || strings.HasPrefix(loginLink, "https://")) {
		loginLink = "https://" + strings.TrimLeft(loginLink, "/")
	}

	from := fmt.Sprintf("%s <%s>", cfg.FromName, cfg.Username)
	to := []string{recipientEmail}
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	subject := "You've been added to the Check-In team"
	boundary := "----=_TEAM_INVITE_BOUNDARY"

	plainBody := fmt.Sprintf(
		"Hi %s,\n\n"+
			"You have been added to the guest check-in dashboard as %s.\n"+
			"Sign in here with the temporary password your administrator gave you:\n%s\n\n"+
			"You will be asked to choose a new password on first sign-in.\n",
		name, role, loginLink,
	)

	htmlBody := fmt.Sprintf(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Check-In team</title>
<style>
body { background:#f5f7fb; font-family:Arial, Helvetica, sans-serif; color:#222; }
.container { max-width:640px; margin:20px auto; }
.card { background:#fff; border:1px solid #e6eef6; padding:24px; border-radius:8px; }
.btn { display:inline-block; padding:12px 20px; background:#0b74ff; color:#fff; text-decoration:none; border-radius:6px; margin-top:16px; }
</style>
</head>
<body>
<div class="container">
  <div class="card">
    <h2>Welcome to the team</h2>
    <p>Hi %s,</p>
    <p>You have been added to the guest check-in dashboard as <strong>%s</strong>.</p>
    <p>Sign in with the temporary password your administrator gave you. You will be asked to choose a new one.</p>
    <a class="btn" href="%s" target="_blank">Sign in</a>
  </div>
</div>
</body>
</html>`,
		htmlEscape(name), htmlEscape(role), loginLink,
	)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s\r\n", from))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", recipientEmail))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary))

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(plainBody + "\r\n")

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	sb.WriteString(htmlBody + "\r\n")

	sb.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	if err := smtp.SendMail(addr, auth, cfg.Username, to, []byte(sb.String())); err != nil {
		log.Error().Err(err).Str("to", MaskEmail(recipientEmail)).Msg("failed to send invite email")
		return err
	}

	log.Info().Str("to", MaskEmail(recipientEmail)).Msg("invite email sent")
	return nil
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(s)
}

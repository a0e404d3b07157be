package mailer

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`)
	markupPattern     = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`[ \t]*\n[ \t\n]*`)
	spacePattern      = regexp.MustCompile(`[ \t]{2,}`)
)

// stripHTML derives a plain-text body from HTML markup.
func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.NewReplacer("</p>", "\n", "</P>", "\n", "<br>", "\n", "<br/>", "\n", "<br />", "\n").Replace(s)
	s = markupPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = whitespacePattern.ReplaceAllString(s, "\n")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// otpTemplate renders the subject and HTML body for a one-time code.
func otpTemplate(code, purpose string) (subject, htmlBody string) {
	var intro string
	switch purpose {
	case "password_reset":
		subject = "Your password reset code"
		intro = "Use this code to reset your password:"
	case "application":
		subject = "Your loan application verification code"
		intro = "Use this code to continue your loan application:"
	case "login":
		subject = "Your login code"
		intro = "Use this code to sign in:"
	default:
		subject = "Your verification code"
		intro = "Use this code to verify your account:"
	}

	htmlBody = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 480px; margin: 0 auto;">
  <h2 style="color: #1a1a2e;">Verification code</h2>
  <p>%s</p>
  <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold; color: #16213e;">%s</p>
  <p>This code expires in 10 minutes. If you did not request it, you can ignore this email.</p>
</div>`, intro, code)

	return subject, htmlBody
}

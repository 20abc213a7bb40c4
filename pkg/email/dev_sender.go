package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DevSender implements EmailSender for local development. Instead of going
// through a provider it writes each email as an HTML file to a directory,
// so alert content can be inspected without a Postmark account.
type DevSender struct {
	dir string
}

// NewDevSender creates a development email sender that saves emails to disk.
// The directory is created on first send if it does not exist.
func NewDevSender(dir string) EmailSender {
	return &DevSender{dir: dir}
}

// SendEmail writes the email to <dir>/<timestamp>_<recipient>.html.
func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dev email directory %s: %w", d.dir, err)
	}

	name := fmt.Sprintf("%s_%s.html",
		time.Now().Format("20060102T150405.000"),
		sanitizeFilename(params.SendTo))

	content := fmt.Sprintf("<!-- To: %s -->\n<!-- Subject: %s -->\n<!-- Tag: %s -->\n%s",
		params.SendTo, params.Subject, params.Tag, params.BodyHTML)

	if err := os.WriteFile(filepath.Join(d.dir, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write dev email file: %w", err)
	}
	return nil
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

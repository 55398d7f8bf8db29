// Package notify renders a reading into an HTML email and delivers it.
package notify

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"

	"github.com/portalakashico/portal-backend/internal/intake"
	"github.com/portalakashico/portal-backend/pkg/email"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
	"github.com/portalakashico/portal-backend/pkg/logger"
)

const DefaultTimeout = 20 * time.Second

var bodyReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\r\n", "<br/>",
	"\n", "<br/>",
)

var readingTemplate = template.Must(template.New("reading").Parse(`<div style="background:#050512;padding:24px;color:#f4ecff;font-family:Arial,sans-serif;">
  <div style="max-width:720px;margin:0 auto;background:#11111f;padding:24px;border-radius:16px;border:1px solid #6d34ff;">
    <h2 style="text-align:center;color:#e9d6ff;margin-top:0;">{{.Title}}</h2>
    <p style="text-align:center;color:#c9b8ff;">Tu lectura ha sido canalizada con amor.</p>
    <div style="line-height:1.7;font-size:14px;">{{.Body}}</div>
  </div>
  <p style="margin-top:20px;text-align:center;font-size:12px;color:#aaa;">
    Portal Akáshico ✨
  </p>
</div>
`))

type templateData struct {
	Title string
	Body  template.HTML
}

type ServiceParams struct {
	Sender  email.Sender
	Logger  *logger.Logger
	Timeout time.Duration
}

type Service struct {
	sender  email.Sender
	logg    *logger.Logger
	timeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "email sender required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{sender: params.Sender, logg: params.Logger, timeout: timeout}, nil
}

// Send emails the reading to rec.Email and reports whether it was delivered.
// Delivery failures are logged and never returned.
func (s *Service) Send(ctx context.Context, rec intake.Record, title, subject, narrative string) bool {
	html, err := RenderHTML(title, narrative)
	if err != nil {
		s.logFailure(ctx, rec, subject, pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "render reading email"))
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.sender.Send(sendCtx, email.Message{To: rec.Email, Subject: subject, HTML: html}); err != nil {
		s.logFailure(ctx, rec, subject, pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "send reading email"))
		return false
	}
	s.logg.Info(s.logg.WithField(s.logg.WithEmail(ctx, rec.Email), "subject", subject), "reading email sent")
	return true
}

// RenderHTML escapes the narrative, converts line breaks and fills the email template.
func RenderHTML(title, narrative string) (string, error) {
	var buf bytes.Buffer
	err := readingTemplate.Execute(&buf, templateData{
		Title: title,
		Body:  template.HTML(bodyReplacer.Replace(narrative)),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) logFailure(ctx context.Context, rec intake.Record, subject string, err error) {
	ctx = s.logg.WithField(s.logg.WithEmail(ctx, rec.Email), "subject", subject)
	s.logg.Error(ctx, "reading email not delivered", err)
}

package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cmseditor/application/ports"
	pkgerrors "cmseditor/pkg/errors"
)

// SMTPConfig holds the relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers mails through an SMTP relay
type SMTPMailer struct {
	cfg    SMTPConfig
	send   sendFunc
	now    func() time.Time
	logger *zap.Logger
}

// NewSMTPMailer creates a mailer for cfg
func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail, now: time.Now, logger: logger}
}

var _ ports.Mailer = (*SMTPMailer)(nil)

// Send delivers msg. net/smtp has no context support, so a cancelled ctx
// is only honoured before the connection is opened.
func (m *SMTPMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	if len(msg.To) == 0 {
		return pkgerrors.NewValidationError("mail has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	body, err := m.render(msg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, msg.To, body); err != nil {
		return pkgerrors.NewExternalError("smtp", err)
	}

	m.logger.Debug("Mail delivered",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// render builds a UTF-8 text/plain message. Addresses that do not parse
// are refused so no header value can carry a line break.
func (m *SMTPMailer) render(msg ports.MailMessage) ([]byte, error) {
	to := make([]string, 0, len(msg.To))
	for _, rcpt := range msg.To {
		addr, err := headerAddress(rcpt)
		if err != nil {
			return nil, err
		}
		to = append(to, addr)
	}
	var replyTo string
	if msg.ReplyTo != "" {
		addr, err := headerAddress(msg.ReplyTo)
		if err != nil {
			return nil, err
		}
		replyTo = addr
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}

	header("From", m.cfg.From)
	header("To", strings.Join(to, ", "))
	if replyTo != "" {
		header("Reply-To", replyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), m.cfg.Host))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	_, _ = qp.Write([]byte(strings.ReplaceAll(msg.Body, "\n", "\r\n")))
	_ = qp.Close()
	return buf.Bytes(), nil
}

func headerAddress(s string) (string, error) {
	if strings.ContainsAny(s, "\r\n") {
		return "", pkgerrors.NewValidationError("mail address contains a line break")
	}
	addr, err := netmail.ParseAddress(s)
	if err != nil {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("invalid mail address %q", s))
	}
	return addr.Address, nil
}

// LogMailer only logs mails. It stands in for SMTP when no relay is
// configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a new log mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs msg
func (m *LogMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	m.logger.Info("Mail not sent, no SMTP relay configured",
		zap.Strings("to", msg.To),
		zap.String("replyTo", msg.ReplyTo),
		zap.String("subject", msg.Subject),
		zap.Int("bodyLength", len(msg.Body)),
	)
	return nil
}

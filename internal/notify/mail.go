package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"realestate/internal/config"
	"realestate/internal/tasks"
)

const smtpTimeout = 30 * time.Second

// ErrUnknownEmail 由 Compose 在任务类型没有对应模板时返回。
var ErrUnknownEmail = errors.New("unknown e-mail type")

// Mail 是渲染好的纯文本邮件。
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer 投递渲染好的邮件。
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// Compose 按任务类型渲染邮件，链接指向 baseURL。
func Compose(taskType, baseURL string, p tasks.EmailPayload) (Mail, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	switch taskType {
	case tasks.TypeEmailConfirmation:
		return Mail{
			To:      p.Email,
			Subject: "Confirm your account",
			Body: fmt.Sprintf("Hello %s,\n\nconfirm your account by opening the link below:\n\n%s/auth/confirm/%s\n\n"+
				"If you did not create this account you can ignore this message.\n", p.Name, baseURL, p.Token),
		}, nil
	case tasks.TypeEmailPasswordReset:
		return Mail{
			To:      p.Email,
			Subject: "Reset your password",
			Body: fmt.Sprintf("Hello %s,\n\nyou asked to reset your password. Open the link below to choose a new one:\n\n"+
				"%s/auth/forgot-password/%s\n\nIf you did not ask for this you can ignore this message.\n", p.Name, baseURL, p.Token),
		}, nil
	default:
		return Mail{}, fmt.Errorf("%w: %s", ErrUnknownEmail, taskType)
	}
}

// NewMailer 返回 SMTP 投递器；未配置 SMTP 主机时返回仅写日志的实现。
func NewMailer(cfg config.MailConfig, logger *slog.Logger) Mailer {
	if cfg.Host == "" {
		return &LogMailer{logger: logger}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer 通过 SMTP 中继发送邮件，中继支持时使用 STARTTLS。
type SMTPMailer struct {
	cfg config.MailConfig
}

func (m *SMTPMailer) Send(ctx context.Context, mail Mail) error {
	msg, err := m.message(mail)
	if err != nil {
		return err
	}
	client, err := gomail.NewClient(m.cfg.Host, m.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", mail.To, err)
	}
	return nil
}

func (m *SMTPMailer) options() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpTimeout),
	}
	if m.cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.User),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

func (m *SMTPMailer) message(mail Mail) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := msg.To(mail.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", mail.To, err)
	}
	msg.Subject(mail.Subject)
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextPlain, mail.Body)
	return msg, nil
}

// LogMailer 将邮件写入日志，用于开发环境。
// 正文含有效令牌，不写入日志。
type LogMailer struct {
	logger *slog.Logger
}

func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	logger := m.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail delivery skipped, no smtp host configured",
		slog.String("to", mail.To),
		slog.String("subject", mail.Subject),
	)
	return nil
}

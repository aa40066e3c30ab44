package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/morikuni/failure"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

const defaultTwilioBaseURL = "https://api.twilio.com/2010-04-01"

// Alert 是发给站点管理员的一条提醒。
type Alert struct {
	Subject string
	Body    string
	Link    string
}

func (a Alert) text() string {
	if strings.TrimSpace(a.Link) == "" {
		return a.Body
	}
	return a.Body + "\n\n" + a.Link
}

// Mailer 发送一封纯文本邮件。
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMSSender 发送一条短信。
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// Notifier 把 Alert 投递给管理员。
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// GomailMailer 基于 SMTP 的邮件发送实现。
type GomailMailer struct {
	dialer mailDialer
	from   string
}

// NewGomailMailer 创建邮件发送器，host 为空时视为未配置。
func NewGomailMailer(host string, port int, username, password, from string) *GomailMailer {
	mailer := &GomailMailer{from: strings.TrimSpace(from)}
	if strings.TrimSpace(host) != "" {
		mailer.dialer = gomail.NewDialer(strings.TrimSpace(host), port, username, password)
	}
	if mailer.from == "" {
		mailer.from = strings.TrimSpace(username)
	}
	return mailer
}

// SetDialer 替换底层 SMTP 拨号器，主要用于测试。
func (m *GomailMailer) SetDialer(dialer mailDialer) {
	m.dialer = dialer
}

// Send 发送邮件。gomail 不支持 context，ctx 仅用于提前取消。
func (m *GomailMailer) Send(ctx context.Context, to, subject, body string) error {
	if m == nil || m.dialer == nil || m.from == "" {
		return failure.New(ErrNotConfigured, failure.Message("未配置 SMTP"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return failure.Translate(err, ErrUpstream, failure.Message("发送邮件失败"))
	}
	return nil
}

// TwilioSMSSender 通过 Twilio REST 接口发送短信。
type TwilioSMSSender struct {
	http       httpDoer
	baseURL    string
	accountSID string
	authToken  string
	from       string
}

// NewTwilioSMSSender 创建短信发送器。
func NewTwilioSMSSender(accountSID, authToken, from string) *TwilioSMSSender {
	return &TwilioSMSSender{
		http:       &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultTwilioBaseURL,
		accountSID: strings.TrimSpace(accountSID),
		authToken:  strings.TrimSpace(authToken),
		from:       strings.TrimSpace(from),
	}
}

// SetHTTPClient 替换 HTTP 客户端，主要用于测试。
func (s *TwilioSMSSender) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 10 * time.Second}
		return
	}
	s.http = client
}

// SetBaseURL 覆盖 API 基础地址。
func (s *TwilioSMSSender) SetBaseURL(base string) {
	s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

// Send 发送短信。
func (s *TwilioSMSSender) Send(ctx context.Context, to, body string) error {
	if s == nil || s.accountSID == "" || s.authToken == "" || s.from == "" {
		return failure.New(ErrNotConfigured, failure.Message("未配置短信服务"))
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	base := s.baseURL
	if base == "" {
		base = defaultTwilioBaseURL
	}
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", base, url.PathEscape(s.accountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failure.Translate(err, ErrUpstream)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := doUpstream(s.http, req, "Twilio")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

type settingsReader interface {
	GetSettings() (SystemSettings, error)
}

// MailNotifier 把提醒发到设置中的管理员邮箱。
type MailNotifier struct {
	mailer   Mailer
	settings settingsReader
}

// NewMailNotifier 创建邮件提醒。
func NewMailNotifier(mailer Mailer, settings settingsReader) *MailNotifier {
	return &MailNotifier{mailer: mailer, settings: settings}
}

func (n *MailNotifier) Name() string { return "email" }

func (n *MailNotifier) Notify(ctx context.Context, alert Alert) error {
	settings, err := n.settings.GetSettings()
	if err != nil {
		return err
	}
	if settings.NotifyEmail == "" {
		return failure.New(ErrNotConfigured, failure.Message("未设置提醒邮箱"))
	}
	return n.mailer.Send(ctx, settings.NotifyEmail, alert.Subject, alert.text())
}

// SMSNotifier 把提醒发到设置中的管理员手机号。
type SMSNotifier struct {
	sender   SMSSender
	settings settingsReader
}

// NewSMSNotifier 创建短信提醒。
func NewSMSNotifier(sender SMSSender, settings settingsReader) *SMSNotifier {
	return &SMSNotifier{sender: sender, settings: settings}
}

func (n *SMSNotifier) Name() string { return "sms" }

func (n *SMSNotifier) Notify(ctx context.Context, alert Alert) error {
	settings, err := n.settings.GetSettings()
	if err != nil {
		return err
	}
	if settings.NotifyPhone == "" {
		return failure.New(ErrNotConfigured, failure.Message("未设置提醒手机号"))
	}
	return n.sender.Send(ctx, settings.NotifyPhone, alert.Subject)
}

// MultiNotifier 依次调用所有 Notifier，单个失败只记录日志。
type MultiNotifier []Notifier

func (m MultiNotifier) Name() string { return "multi" }

func (m MultiNotifier) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, alert); err != nil {
			logUpstreamFailure(err, notifier.Name(), "notifier failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// logUpstreamFailure 未配置的依赖只记 debug，其余失败记 warn。
func logUpstreamFailure(err error, component, msg string) {
	event := log.Warn()
	if IsNotConfigured(err) {
		event = log.Debug()
	}
	event.Stack().Err(err).Str("component", component).Msg(msg)
}

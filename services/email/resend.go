package emailsvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"

	"github.com/practrac/practrac/core"
)

const resendTimeout = 30 * time.Second

type resendService struct {
	client     *resend.Client
	from       string
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*resendService)(nil)

func NewResendService(conf *core.Config, logger core.Logger) *resendService {
	from := conf.DefaultFromEmail()
	return &resendService{
		client:     resend.NewClient(conf.ResendApiKey),
		from:       from.String(),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc resendService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
				ctx, cancel := context.WithTimeout(context.Background(), resendTimeout)
				defer cancel()
				svc.send(ctx, *msg)
			}
		}()
	}
}

func (svc resendService) prepare(msg core.EmailMessage) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    svc.from,
		To:      addressList(msg.To),
		Cc:      addressList(msg.Cc),
		Bcc:     addressList(msg.Bcc),
		Subject: svc.subjPrefix + msg.Subject,
		Text:    msg.TextContent,
		Html:    msg.HTMLContent,
	}
	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Content:     a.Content,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return req
}

func (svc resendService) send(ctx context.Context, msg core.EmailMessage) {
	sent, err := svc.client.Emails.SendWithContext(ctx, svc.prepare(msg))
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			svc.logger.Warn(fmt.Sprintf("sending email: rate limited, resets in %ss", rateLimitErr.Reset), err)
			return
		}
		svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
		return
	}
	svc.logger.Debug("email sent via resend", map[string]interface{}{"email_id": sent.Id})
}

func addressList(addrs []mail.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	res := make([]string, 0, len(addrs))
	for _, a := range addrs {
		res = append(res, a.String())
	}
	return res
}

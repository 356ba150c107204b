package emailsvc

import (
	"github.com/practrac/practrac/core"
)

// NewService returns the email service of the configured provider.
func NewService(conf *core.Config, logger core.Logger) core.EmailService {
	switch conf.EmailProvider {
	case core.EmailSendgrid:
		return NewSendgridService(conf, logger)
	case core.EmailResend:
		return NewResendService(conf, logger)
	default:
		return NewConsoleService(conf, logger)
	}
}

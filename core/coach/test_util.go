package coach

import (
	"github.com/practrac/practrac/core"
)

// MakeResetToken returns a password reset token for c, signed with the keys of conf.
func MakeResetToken(conf *core.Config, c Coach) (string, error) {
	return newTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta).MakeToken(c)
}

// CheckPasswordPolicy returns the first password policy error of pwd for c, if any.
func CheckPasswordPolicy(c Coach, pwd string) string {
	return validatePasswordPolicy(pwd, c.Name, c.Username, c.Email)
}

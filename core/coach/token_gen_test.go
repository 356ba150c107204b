package coach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

func TestMakeVerifyToken(t *testing.T) {
	tg := newTokenGenerator("secret", 3*24*time.Hour)

	now := time.Now()
	c := Coach{
		ID:        "6f8d9d38-0c39-4bd4-bd9c-5fd1a6b1c3a9",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: null.TimeFrom(now),
	}
	_ = c.SetPassword("pwd")

	validToken, err := tg.MakeToken(c)
	assert.NoError(t, err)

	// generate an expired token
	dayLate := tg.timeout + (24 * time.Hour)
	core.NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := tg.MakeToken(c)
	core.NowFunc = time.Now // reset
	assert.NoError(t, err)

	// any login invalidates issued tokens
	loggedIn := c
	loggedIn.LastLogin = null.TimeFrom(now.Add(time.Minute))

	// another secret key cannot verify the token
	otherTg := newTokenGenerator("other", tg.timeout)

	tests := []struct {
		name    string
		tg      tokenGenerator
		c       Coach
		token   string
		wantErr error
	}{
		{name: "no token", tg: tg, c: c, wantErr: ErrInvalidToken},
		{name: "invalid parts len", tg: tg, c: c, token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "invalid base32", tg: tg, c: c, token: "hahaha-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid timestamp", tg: tg, c: c, token: "NRXWY-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid token", tg: tg, c: c, token: "HE4TS-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "expired token", tg: tg, c: c, token: expiredToken, wantErr: ErrTokenExpired},
		{name: "coach logged in since", tg: tg, c: loggedIn, token: validToken, wantErr: ErrInvalidToken},
		{name: "other secret key", tg: otherTg, c: c, token: validToken, wantErr: ErrInvalidToken},
		{name: "valid token", tg: tg, c: c, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.tg.VerifyToken(tt.c, tt.token))
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	c := Coach{ID: "6f8d9d38-0c39-4bd4-bd9c-5fd1a6b1c3a9"}
	id, err := decodeUID(EncodeUID(c))
	assert.NoError(t, err)
	assert.Equal(t, c.ID, id)

	_, err = decodeUID("***")
	assert.Error(t, err)
}

package coach_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	emailsvc "github.com/practrac/practrac/services/email"
	logsvc "github.com/practrac/practrac/services/logger"
	inmemdb "github.com/practrac/practrac/storage/database/inmem"
	"github.com/practrac/practrac/tests"
)

const pwd = "Qv7#rT2m!zX"

func newService(t *testing.T) (coach.Service, *emailsvc.ConsoleServiceMock, *core.Config) {
	conf := testutil.NewConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logsvc.NewRollbarLogger(zerolog.Nop(), conf))
	// the repository lives in memory; the DB only provides transactions
	svc := coach.NewService(testutil.PrepareDB(t), inmemdb.NewCoachRepository(), mailSvc, conf)
	return svc, mailSvc, conf
}

func create(t *testing.T, svc coach.Service, name, uname, email string, roles ...string) coach.Coach {
	t.Helper()
	c, err := svc.Create(context.Background(), coach.NewCoach{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
	})
	require.NoError(t, err)
	return c
}

func TestService_CheckUniqueness(t *testing.T) {
	svc, _, _ := newService(t)
	kim := create(t, svc, "Kim", "kimmy", "kimmy@test.test")

	assert.NoError(t, svc.CheckUniqueness("leeroy", "leeroy@test.test"))
	assert.NoError(t, svc.CheckUniqueness("kimmy", "kimmy@test.test", kim))

	err := svc.CheckUniqueness("kimmy", "kimmy@test.test")
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, coach.ErrCoachExists, vErr.Err)
	assert.Equal(t, []core.FieldError{
		{Field: "username", Error: coach.ErrUsernameExists.Error()},
		{Field: "email", Error: coach.ErrEmailExists.Error()},
	}, vErr.Fields)

	err = svc.CheckUniqueness("leeroy", "kimmy@test.test")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []core.FieldError{{Field: "email", Error: coach.ErrEmailExists.Error()}}, vErr.Fields)
}

func TestService_CreateAndGet(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	kim := create(t, svc, "Kim", "kimmy", "kimmy@test.test", coach.RoleCoachHead)

	assert.True(t, kim.IsActive)
	assert.NoError(t, kim.CheckPassword(pwd))
	assert.False(t, kim.CreatedAt.IsZero())

	for _, uname := range []string{"kimmy", " KIMMY ", "kimmy@test.test"} {
		c, err := svc.GetByUsernameOrEmail(ctx, uname)
		require.NoError(t, err, uname)
		assert.Equal(t, kim.ID, c.ID)
	}

	_, err := svc.GetByUsername(ctx, "kimmy@test.test")
	assert.True(t, core.IsNotFound(err))
	_, err = svc.GetByID(ctx, "lol")
	assert.True(t, core.IsNotFound(err))
}

func TestService_Update(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	kim := create(t, svc, "Kim", "kimmy", "kimmy@test.test", coach.RoleCoachAssistant)

	inactive := false
	newPwd := "Zx9!pLm#4Rt"
	c, err := svc.Update(ctx, kim, coach.UpdateCoach{
		Name:     "Kim Lee",
		Username: "kimlee",
		Email:    "kimlee@test.test",
		IsActive: &inactive,
		Roles:    []string{coach.RoleCoachHead},
		Password: newPwd,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kim Lee", c.Name)
	assert.Equal(t, core.StringList{coach.RoleCoachHead}, c.Roles)
	assert.False(t, c.IsActive)
	assert.NoError(t, c.CheckPassword(newPwd))
	assert.True(t, c.UpdatedAt.After(kim.UpdatedAt) || c.UpdatedAt.Equal(kim.UpdatedAt))

	// nil roles keep the current ones
	c, err = svc.Update(ctx, c, coach.UpdateCoach{Name: c.Name, Username: c.Username, Email: c.Email})
	require.NoError(t, err)
	assert.Equal(t, core.StringList{coach.RoleCoachHead}, c.Roles)

	c, err = svc.SetLastLogin(ctx, c)
	require.NoError(t, err)
	assert.True(t, c.LastLogin.Valid)
}

func TestService_Query(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	create(t, svc, "Kim", "kimmy", "kimmy@test.test", coach.RoleCoachHead)
	create(t, svc, "Lee", "leeroy", "leeroy@test.test", coach.RoleAdmin)
	create(t, svc, "Joe", "joejoe", "joe@test.test", coach.RoleCoachAssistant)

	all, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	coaches, err := svc.Query(ctx, &coach.QueryFilter{Roles: []string{coach.RoleCoach}}, nil)
	require.NoError(t, err)
	assert.Len(t, coaches, 2)

	coaches, err = svc.Query(ctx, &coach.QueryFilter{Search: "LEE"}, nil)
	require.NoError(t, err)
	require.Len(t, coaches, 1)
	assert.Equal(t, "leeroy", coaches[0].Username)
}

func TestService_Delete(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	kim := create(t, svc, "Kim", "kimmy", "kimmy@test.test")
	lee := create(t, svc, "Lee", "leeroy", "leeroy@test.test")

	require.NoError(t, svc.Delete(ctx))
	require.NoError(t, svc.Delete(ctx, kim.ID, lee.ID))

	all, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestService_EnsureDefaultCoach(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	c1, err := svc.EnsureDefaultCoach(ctx)
	require.NoError(t, err)
	assert.Equal(t, coach.DefaultUsername, c1.Username)
	assert.True(t, c1.IsAdmin())

	c2, err := svc.EnsureDefaultCoach(ctx)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID)
}

func TestService_PasswordReset(t *testing.T) {
	svc, mailSvc, conf := newService(t)
	ctx := context.Background()
	kim := create(t, svc, "Kim", "kimmy", "kimmy@test.test")
	lee := create(t, svc, "Lee", "leeroy", "leeroy@test.test")
	inactive := false
	_, err := svc.Update(ctx, lee, coach.UpdateCoach{Name: lee.Name, Username: lee.Username, Email: lee.Email, IsActive: &inactive})
	require.NoError(t, err)

	t.Run("Unknown or inactive coach", func(t *testing.T) {
		assert.True(t, core.IsNotFound(svc.RequestPasswordReset(ctx, "nobody@test.test")))
		assert.True(t, core.IsNotFound(svc.RequestPasswordReset(ctx, "leeroy@test.test")))
		assert.Empty(t, mailSvc.SentMessages())
	})

	t.Run("Request", func(t *testing.T) {
		require.NoError(t, svc.RequestPasswordReset(ctx, "KIMMY@test.test"))

		sent := mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "kimmy@test.test", sent[0].To[0].Address)
		assert.Equal(t, coach.EncodeUID(kim), sent[0].TemplateData["UID"])
		assert.NotEmpty(t, sent[0].TemplateData["Token"])
	})

	token, err := coach.MakeResetToken(conf, kim)
	require.NoError(t, err)
	newPwd := "Zx9!pLm#4Rt"

	tests := []struct {
		name      string
		data      coach.ResetCoachPassword
		wantField string
	}{
		{name: "Bad UID", data: coach.ResetCoachPassword{UID: "!!", Token: token, Password: newPwd}, wantField: "uid"},
		{name: "Unknown UID", data: coach.ResetCoachPassword{UID: coach.EncodeUID(coach.Coach{ID: lee.ID + "x"}), Token: token, Password: newPwd}, wantField: "uid"},
		{name: "Bad token", data: coach.ResetCoachPassword{UID: coach.EncodeUID(kim), Token: "lol-lol", Password: newPwd}, wantField: "token"},
		{name: "Weak password", data: coach.ResetCoachPassword{UID: coach.EncodeUID(kim), Token: token, Password: "kimmy123"}, wantField: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ResetPassword(ctx, tt.data)
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.NotEmpty(t, vErr.Fields)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}

	t.Run("Reset", func(t *testing.T) {
		data := coach.ResetCoachPassword{UID: coach.EncodeUID(kim), Token: token, Password: newPwd, PasswordConfirm: newPwd}
		c, err := svc.ResetPassword(ctx, data)
		require.NoError(t, err)
		assert.NoError(t, c.CheckPassword(newPwd))

		// the token dies with the old password
		_, err = svc.ResetPassword(ctx, data)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "token", vErr.Fields[0].Field)
	})
}

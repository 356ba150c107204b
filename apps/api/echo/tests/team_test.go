package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/session"
	"github.com/practrac/practrac/core/team"
	"github.com/practrac/practrac/tests"
)

func Test_teamApi(t *testing.T) {
	env := setup(t)
	admin := env.createCoach(t, "Admin", "admin", coach.RoleAdmin)
	kim := env.createCoach(t, "Kim", "kim", coach.RoleCoachHead)
	lee := env.createCoach(t, "Lee", "lee", coach.RoleCoachHead)
	adminToken, kimToken, leeToken := env.token(t, admin), env.token(t, kim), env.token(t, lee)

	testutil.CreateTeam(t, env.teamRepo, lee.ID, "Lee's JV")

	var varsity team.Team
	t.Run("Create", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/teams", kimToken, marshalObj(t, team.NewTeam{Name: " Varsity ", Season: "2026"}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		varsity = decode[team.Team](t, rec)
		assert.Equal(t, "Varsity", varsity.Name)
		assert.Equal(t, kim.ID, varsity.CoachID)
		assert.True(t, varsity.IsActive)

		rec = env.do(http.MethodPost, "/v1/teams", kimToken, marshalObj(t, team.NewTeam{Name: "varsity"}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = env.do(http.MethodPost, "/v1/teams", kimToken, marshalObj(t, team.NewTeam{}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	teamPath := "/v1/teams/" + varsity.ID

	t.Run("Access", func(t *testing.T) {
		tests := []httpTest{
			{name: "Owner", path: teamPath, token: kimToken},
			{name: "Admin", path: teamPath, token: adminToken},
			{name: "Other coach", path: teamPath, token: leeToken, wantCode: http.StatusNotFound},
			{name: "Other coach players", path: teamPath + "/players", token: leeToken, wantCode: http.StatusNotFound},
			{name: "Unknown", path: "/v1/teams/lol", token: kimToken, wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			tt.run(t, env)
		}
	})

	t.Run("Query", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/teams", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		teams := decode[[]team.Team](t, rec)
		require.Len(t, teams, 1)
		assert.Equal(t, varsity.ID, teams[0].ID)

		// coach_id is ignored for non admins
		rec = env.do(http.MethodGet, "/v1/teams?coach_id="+lee.ID, kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]team.Team](t, rec), 1)

		rec = env.do(http.MethodGet, "/v1/teams", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]team.Team](t, rec), 2)

		rec = env.do(http.MethodGet, "/v1/teams?coach_id="+lee.ID, adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		teams = decode[[]team.Team](t, rec)
		require.Len(t, teams, 1)
		assert.Equal(t, lee.ID, teams[0].CoachID)
	})

	t.Run("Update", func(t *testing.T) {
		rec := env.do(http.MethodPut, teamPath, kimToken, marshalObj(t, team.NewTeam{Name: "Varsity A", Level: "U18"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[team.Team](t, rec)
		assert.Equal(t, "Varsity A", updated.Name)
		assert.Equal(t, "U18", updated.Level)
	})

	t.Run("Players", func(t *testing.T) {
		seven, libero := 7, team.PositionLibero
		rec := env.do(http.MethodPost, teamPath+"/players", kimToken, marshalObj(t, team.NewPlayer{
			FirstName: "Ana", LastName: "Silva", JerseyNumber: &seven, Position: &libero,
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		ana := decode[team.Player](t, rec)
		assert.Equal(t, int64(7), int64(ana.JerseyNumber.Int))
		assert.Equal(t, team.PositionLibero, ana.Position.String)

		// jersey taken
		rec = env.do(http.MethodPost, teamPath+"/players", kimToken, marshalObj(t, team.NewPlayer{FirstName: "Bea", JerseyNumber: &seven}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "jersey_number")

		// unknown position
		bad := "striker"
		rec = env.do(http.MethodPost, teamPath+"/players", kimToken, marshalObj(t, team.NewPlayer{FirstName: "Bea", Position: &bad}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodPost, teamPath+"/players", kimToken, marshalObj(t, team.NewPlayer{FirstName: "Bea"}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = env.do(http.MethodGet, teamPath+"/players?position=libero", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		players := decode[[]team.Player](t, rec)
		require.Len(t, players, 1)
		assert.Equal(t, ana.ID, players[0].ID)

		playerPath := teamPath + "/players/" + ana.ID
		rec = env.do(http.MethodDelete, playerPath, kimToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(http.MethodGet, teamPath+"/players", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]team.Player](t, rec), 1)
		rec = env.do(http.MethodGet, teamPath+"/players?include_inactive=true", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]team.Player](t, rec), 2)

		rec = env.do(http.MethodPost, playerPath+"/restore", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[team.Player](t, rec).IsActive)

		rec = env.do(http.MethodGet, playerPath+"/attendance", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		pa := decode[session.PlayerAttendance](t, rec)
		assert.Equal(t, ana.ID, pa.PlayerID)
		assert.Zero(t, pa.Counts.Total)

		// players are reached through their own team only
		leeTeam := testutil.CreateTeam(t, env.teamRepo, lee.ID, "Lee's Varsity")
		rec = env.do(http.MethodGet, "/v1/teams/"+leeTeam.ID+"/players/"+ana.ID, leeToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Deactivate and restore", func(t *testing.T) {
		rec := env.do(http.MethodDelete, teamPath, kimToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(http.MethodGet, "/v1/teams", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]team.Team](t, rec))
		rec = env.do(http.MethodGet, "/v1/teams?include_inactive=true", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]team.Team](t, rec), 1)

		rec = env.do(http.MethodPost, teamPath+"/restore", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[team.Team](t, rec).IsActive)
	})
}

func Test_listFilterBinding(t *testing.T) {
	env := setup(t)
	admin := env.createCoach(t, "Admin", "admin", coach.RoleAdmin)
	kim := env.createCoach(t, "Kim", "kim", coach.RoleCoachHead)
	adminToken, kimToken := env.token(t, admin), env.token(t, kim)
	varsity := testutil.CreateTeam(t, env.teamRepo, kim.ID, "Varsity")
	teamPath := "/v1/teams/" + varsity.ID

	tests := []struct {
		name  string
		path  string
		token string
	}{
		{"Teams", "/v1/teams?include_inactive=maybe", kimToken},
		{"Players", teamPath + "/players?include_inactive=maybe", kimToken},
		{"Drills", "/v1/drills?include_inactive=maybe", kimToken},
		{"Practices", teamPath + "/practices?from=yesterday", kimToken},
		{"Coaches", "/v1/coaches?created_from=yesterday", adminToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.path, tt.token)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	// well-formed filters still list
	rec := env.do(http.MethodGet, "/v1/teams?include_inactive=true", kimToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]team.Team](t, rec), 1)
}

package tests

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/drill"
	"github.com/practrac/practrac/core/note"
	"github.com/practrac/practrac/core/practice"
	"github.com/practrac/practrac/core/session"
	"github.com/practrac/practrac/tests"
)

func Test_practiceApi(t *testing.T) {
	env := setup(t)
	kim := env.createCoach(t, "Kim", "kim", coach.RoleCoachHead)
	lee := env.createCoach(t, "Lee", "lee", coach.RoleCoachHead)
	kimToken, leeToken := env.token(t, kim), env.token(t, lee)

	varsity := testutil.CreateTeam(t, env.teamRepo, kim.ID, "Varsity")
	pepper := testutil.CreateDrill(t, env.drillRepo, kim.ID, "Pepper", drill.CategoryWarmup)
	leeDrill := testutil.CreateDrill(t, env.drillRepo, lee.ID, "Queen of the court", drill.CategoryGamePlay)
	practicesPath := "/v1/teams/" + varsity.ID + "/practices"

	scheduled := time.Date(2026, 4, 1, 17, 30, 0, 0, time.UTC)
	np := practice.NewPractice{
		Title:       "Tuesday practice",
		ScheduledAt: &scheduled,
		Phases: []practice.NewPhase{
			{DrillID: pepper.ID, DurationMinutes: 10},
			{Name: "Scrimmage", DurationMinutes: 20},
		},
	}

	var tuesday practice.PracticeResponse
	t.Run("Create", func(t *testing.T) {
		rec := env.do(http.MethodPost, practicesPath, kimToken, marshalObj(t, np))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		tuesday = decode[practice.PracticeResponse](t, rec)
		assert.Equal(t, 30, tuesday.TotalMinutes)
		require.Len(t, tuesday.Phases, 2)
		// a phase without a name takes the name of its drill
		assert.Equal(t, "Pepper", tuesday.Phases[0].Name)
		assert.Equal(t, 1, tuesday.Phases[1].Position)

		bad := np
		bad.Phases = []practice.NewPhase{{DrillID: leeDrill.ID, DurationMinutes: 10}}
		rec = env.do(http.MethodPost, practicesPath, kimToken, marshalObj(t, bad))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "phases[0].drill_id")

		bad.Phases = []practice.NewPhase{{Name: "Too long", DurationMinutes: 241}}
		rec = env.do(http.MethodPost, practicesPath, kimToken, marshalObj(t, bad))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodPost, practicesPath, leeToken, marshalObj(t, np))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	practicePath := "/v1/practices/" + tuesday.ID

	t.Run("Access", func(t *testing.T) {
		tests := []httpTest{
			{name: "Owner", path: practicePath, token: kimToken},
			{name: "Other coach", path: practicePath, token: leeToken, wantCode: http.StatusNotFound},
			{name: "Unknown", path: "/v1/practices/nope", token: kimToken, wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			tt.run(t, env)
		}
	})

	t.Run("Update replaces phases", func(t *testing.T) {
		up := np
		up.Title = "Tuesday practice (short)"
		up.Phases = []practice.NewPhase{{Name: "Serve", DurationMinutes: 15}}
		rec := env.do(http.MethodPut, practicePath, kimToken, marshalObj(t, up))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		p := decode[practice.PracticeResponse](t, rec)
		assert.Equal(t, 15, p.TotalMinutes)
		require.Len(t, p.Phases, 1)
		assert.Equal(t, "Serve", p.Phases[0].Name)
	})

	t.Run("Duplicate", func(t *testing.T) {
		rec := env.do(http.MethodPost, practicePath+"/duplicate", kimToken)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		dup := decode[practice.PracticeResponse](t, rec)
		assert.NotEqual(t, tuesday.ID, dup.ID)
		assert.False(t, dup.ScheduledAt.Valid)
		assert.Equal(t, 15, dup.TotalMinutes)

		next := scheduled.AddDate(0, 0, 7)
		rec = env.do(http.MethodPost, practicePath+"/duplicate", kimToken, marshalObj(t, practice.DuplicateRequest{ScheduledAt: &next}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		dup = decode[practice.PracticeResponse](t, rec)
		assert.True(t, next.Equal(dup.ScheduledAt.Time))
	})

	t.Run("Query", func(t *testing.T) {
		rec := env.do(http.MethodGet, practicesPath, kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]practice.PracticeResponse](t, rec), 3)

		from := scheduled.Add(24 * time.Hour).Format(time.RFC3339)
		rec = env.do(http.MethodGet, practicesPath+"?from="+from, kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		found := decode[[]practice.PracticeResponse](t, rec)
		require.Len(t, found, 1)
		assert.True(t, scheduled.AddDate(0, 0, 7).Equal(found[0].ScheduledAt.Time))
	})

	t.Run("Delete", func(t *testing.T) {
		rec := env.do(http.MethodDelete, practicePath, kimToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = env.do(http.MethodGet, practicePath, kimToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_sessionApi(t *testing.T) {
	env := setup(t)
	kim := env.createCoach(t, "Kim", "kim", coach.RoleCoachHead)
	lee := env.createCoach(t, "Lee", "lee", coach.RoleCoachHead)
	kimToken, leeToken := env.token(t, kim), env.token(t, lee)

	varsity := testutil.CreateTeam(t, env.teamRepo, kim.ID, "Varsity")
	ana := testutil.CreatePlayer(t, env.teamRepo, varsity.ID, "Ana", "Silva", 7)
	bea := testutil.CreatePlayer(t, env.teamRepo, varsity.ID, "Bea", "Costa", 9)
	p := testutil.CreatePractice(t, env.practiceRepo, varsity.ID, "Tuesday practice", 10, 20)
	empty := testutil.CreatePractice(t, env.practiceRepo, varsity.ID, "Nothing planned")

	rec := env.do(http.MethodPost, "/v1/practices/"+empty.ID+"/sessions", kimToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/v1/practices/"+p.ID+"/sessions", kimToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[session.View](t, rec)
	assert.Equal(t, session.StatusPending, view.Status)
	assert.Equal(t, int64(30*60), view.PlannedSeconds)
	require.Len(t, view.Phases, 2)
	sessionPath := "/v1/sessions/" + view.ID

	transition := func(t *testing.T, action string, wantCode int) session.View {
		t.Helper()
		rec := env.do(http.MethodPost, sessionPath+"/"+action, kimToken)
		require.Equal(t, wantCode, rec.Code, rec.Body.String())
		if wantCode != http.StatusOK {
			return session.View{}
		}
		return decode[session.View](t, rec)
	}

	t.Run("Access", func(t *testing.T) {
		tests := []httpTest{
			{name: "Owner", path: sessionPath, token: kimToken},
			{name: "Other coach", path: sessionPath, token: leeToken, wantCode: http.StatusNotFound},
			{name: "Other coach transition", method: http.MethodPost, path: sessionPath + "/start", token: leeToken, wantCode: http.StatusNotFound},
			{name: "Unknown action", method: http.MethodPost, path: sessionPath + "/rewind", token: kimToken, wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			tt.run(t, env)
		}
	})

	t.Run("Live run", func(t *testing.T) {
		transition(t, session.ActionPause, http.StatusConflict)
		transition(t, session.ActionPrevious, http.StatusConflict)

		v := transition(t, session.ActionStart, http.StatusOK)
		assert.Equal(t, session.StatusRunning, v.Status)
		assert.Equal(t, int64(600), v.PhaseRemainingSeconds)

		env.clock.Advance(4 * time.Minute)
		v = transition(t, session.ActionPause, http.StatusOK)
		assert.Equal(t, int64(240), v.ElapsedSeconds)

		// paused time does not count
		env.clock.Advance(3 * time.Minute)
		rec := env.do(http.MethodGet, sessionPath, kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		v = decode[session.View](t, rec)
		assert.Equal(t, int64(240), v.ElapsedSeconds)
		assert.Equal(t, int64(180), v.PausedSeconds)

		v = transition(t, session.ActionResume, http.StatusOK)
		env.clock.Advance(8 * time.Minute)
		rec = env.do(http.MethodGet, sessionPath, kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		v = decode[session.View](t, rec)
		assert.Equal(t, int64(12*60), v.PhaseElapsedSeconds)
		assert.Zero(t, v.PhaseRemainingSeconds)
		assert.True(t, v.Overtime)

		v = transition(t, session.ActionNext, http.StatusOK)
		assert.Equal(t, 1, v.CurrentPhase)
		env.clock.Advance(time.Minute)
		v = transition(t, session.ActionPrevious, http.StatusOK)
		assert.Equal(t, 0, v.CurrentPhase)
		env.clock.Advance(time.Minute)
		v = transition(t, session.ActionNext, http.StatusOK)
		assert.Equal(t, 1, v.CurrentPhase)
		// the time of both visits is kept
		assert.Equal(t, int64(13*60), v.Phases[0].ElapsedSeconds)
		assert.Equal(t, int64(60), v.Phases[1].ElapsedSeconds)

		// stale version
		rec = env.do(http.MethodPost, fmt.Sprintf("%s/%s?version=%d", sessionPath, session.ActionPause, v.Version-1), kimToken)
		assert.Equal(t, http.StatusConflict, rec.Code)
		rec = env.do(http.MethodPost, fmt.Sprintf("%s/%s?version=%d", sessionPath, session.ActionPause, v.Version), kimToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		env.clock.Advance(20 * time.Minute)
		// next on the last phase completes
		v = transition(t, session.ActionNext, http.StatusOK)
		assert.Equal(t, session.StatusCompleted, v.Status)
		// 37 minutes, 23 of which paused
		assert.Equal(t, int64(14*60), v.ElapsedSeconds)

		transition(t, session.ActionCancel, http.StatusConflict)
		transition(t, session.ActionStart, http.StatusConflict)
	})

	t.Run("Summary email", func(t *testing.T) {
		sent := env.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "kim@test.test", sent[0].To[0].Address)
		require.Len(t, sent[0].Attachments, 1)
		assert.Equal(t, "attendance.csv", sent[0].Attachments[0].Filename)
	})

	t.Run("Attendance", func(t *testing.T) {
		other := testutil.CreateTeam(t, env.teamRepo, lee.ID, "Other")
		stranger := testutil.CreatePlayer(t, env.teamRepo, other.ID, "Cid", "", -1)

		au := session.AttendanceUpdate{Records: []session.AttendanceInput{{PlayerID: stranger.ID, Status: session.AttendancePresent}}}
		rec := env.do(http.MethodPut, sessionPath+"/attendance", kimToken, marshalObj(t, au))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		au.Records = []session.AttendanceInput{{PlayerID: ana.ID, Status: "sick"}}
		rec = env.do(http.MethodPut, sessionPath+"/attendance", kimToken, marshalObj(t, au))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		// allowed on completed sessions
		au.Records = []session.AttendanceInput{
			{PlayerID: ana.ID, Status: session.AttendancePresent},
			{PlayerID: bea.ID, Status: session.AttendanceLate, Note: "bus"},
		}
		rec = env.do(http.MethodPut, sessionPath+"/attendance", kimToken, marshalObj(t, au))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, decode[[]session.Attendance](t, rec), 2)

		// upsert
		au.Records = []session.AttendanceInput{{PlayerID: bea.ID, Status: session.AttendanceExcused}}
		rec = env.do(http.MethodPut, sessionPath+"/attendance", kimToken, marshalObj(t, au))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(http.MethodGet, sessionPath+"/attendance", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		records := decode[[]session.Attendance](t, rec)
		require.Len(t, records, 2)
		statuses := map[string]string{}
		for _, r := range records {
			statuses[r.PlayerID] = r.Status
		}
		assert.Equal(t, map[string]string{ana.ID: session.AttendancePresent, bea.ID: session.AttendanceExcused}, statuses)

		rec = env.do(http.MethodGet, "/v1/teams/"+varsity.ID+"/players/"+bea.ID+"/attendance", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		pa := decode[session.PlayerAttendance](t, rec)
		assert.Equal(t, 1, pa.Counts.Excused)
		assert.Equal(t, 1, pa.Counts.Total)
	})

	t.Run("Notes and summary", func(t *testing.T) {
		notesPath := "/v1/teams/" + varsity.ID + "/notes"
		rec := env.do(http.MethodPost, notesPath, kimToken, marshalObj(t, note.NewNote{Body: "Great serve receive", SessionID: view.ID, PlayerID: ana.ID}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = env.do(http.MethodGet, sessionPath+"/summary", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		sum := decode[session.Summary](t, rec)
		assert.Equal(t, int64(30*60), sum.PlannedSeconds)
		assert.Equal(t, int64(14*60), sum.ElapsedSeconds)
		assert.Equal(t, int64(-16*60), sum.DeltaSeconds)
		require.Len(t, sum.Phases, 2)
		assert.Equal(t, 1, sum.Attendance.Present)
		assert.Equal(t, 1, sum.NoteCount)
	})

	t.Run("Query", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/practices/"+p.ID+"/sessions", kimToken)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = env.do(http.MethodGet, "/v1/teams/"+varsity.ID+"/sessions?status=completed", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		views := decode[[]session.View](t, rec)
		require.Len(t, views, 1)
		assert.Equal(t, view.ID, views[0].ID)

		rec = env.do(http.MethodGet, "/v1/teams/"+varsity.ID+"/sessions", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]session.View](t, rec), 2)
	})

	t.Run("Metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(),
			`practrac_session_transitions_total{action="start",from="pending",to="running"} 1`))
	})

	t.Run("Delete", func(t *testing.T) {
		rec := env.do(http.MethodDelete, sessionPath, kimToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = env.do(http.MethodGet, sessionPath, kimToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		// notes about the session went with it
		rec = env.do(http.MethodGet, "/v1/teams/"+varsity.ID+"/notes", kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]note.Note](t, rec))
	})
}

func Test_sessionApi_transitionTimestamps(t *testing.T) {
	env := setup(t)
	kim := env.createCoach(t, "Kim", "kim", coach.RoleCoachHead)
	kimToken := env.token(t, kim)
	varsity := testutil.CreateTeam(t, env.teamRepo, kim.ID, "Varsity")
	p := testutil.CreatePractice(t, env.practiceRepo, varsity.ID, "Tuesday practice", 10, 20)

	rec := env.do(http.MethodPost, "/v1/practices/"+p.ID+"/sessions", kimToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sessionPath := "/v1/sessions/" + decode[session.View](t, rec).ID

	// every reading of the clock differs now
	env.clock.Tick(time.Second)

	rec = env.do(http.MethodPost, sessionPath+"/"+session.ActionStart, kimToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[session.View](t, rec)
	require.True(t, v.StartedAt.Valid)
	assert.True(t, v.StartedAt.Time.Equal(v.UpdatedAt), "started_at %s, updated_at %s", v.StartedAt.Time, v.UpdatedAt)

	rec = env.do(http.MethodPost, sessionPath+"/"+session.ActionCancel, kimToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decode[session.View](t, rec)
	require.True(t, v.CompletedAt.Valid)
	assert.True(t, v.CompletedAt.Time.Equal(v.UpdatedAt), "completed_at %s, updated_at %s", v.CompletedAt.Time, v.UpdatedAt)
}

func Test_noteApi(t *testing.T) {
	env := setup(t)
	kim := env.createCoach(t, "Kim", "kim", coach.RoleCoachHead)
	lee := env.createCoach(t, "Lee", "lee", coach.RoleCoachHead)
	kimToken, leeToken := env.token(t, kim), env.token(t, lee)

	varsity := testutil.CreateTeam(t, env.teamRepo, kim.ID, "Varsity")
	jv := testutil.CreateTeam(t, env.teamRepo, kim.ID, "JV")
	ana := testutil.CreatePlayer(t, env.teamRepo, varsity.ID, "Ana", "Silva", 7)
	jvPlayer := testutil.CreatePlayer(t, env.teamRepo, jv.ID, "Dee", "", -1)
	p := testutil.CreatePractice(t, env.practiceRepo, varsity.ID, "Tuesday practice", 10)
	notesPath := "/v1/teams/" + varsity.ID + "/notes"

	rec := env.do(http.MethodPost, notesPath, kimToken, marshalObj(t, note.NewNote{Body: "Work on her approach", PlayerID: ana.ID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	aboutAna := decode[note.Note](t, rec)
	assert.Equal(t, kim.ID, aboutAna.CoachID.String)

	rec = env.do(http.MethodPost, notesPath, kimToken, marshalObj(t, note.NewNote{Body: "Gym B next week", PracticeID: p.ID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tests := []httpTest{
		{
			name: "Empty body", method: http.MethodPost, path: notesPath, token: kimToken,
			body: marshalObj(t, note.NewNote{Body: "  "}), wantCode: http.StatusBadRequest,
		},
		{
			name: "Player of another team", method: http.MethodPost, path: notesPath, token: kimToken,
			body: marshalObj(t, note.NewNote{Body: "Hi", PlayerID: jvPlayer.ID}), wantCode: http.StatusBadRequest,
		},
		{name: "Other coach", path: notesPath, token: leeToken, wantCode: http.StatusNotFound},
		{
			name: "Other coach update", method: http.MethodPut, path: "/v1/notes/" + aboutAna.ID, token: leeToken,
			body: marshalObj(t, note.UpdateNote{Body: "mine"}), wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		tt.run(t, env)
	}

	t.Run("Query", func(t *testing.T) {
		rec := env.do(http.MethodGet, notesPath, kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]note.Note](t, rec), 2)

		rec = env.do(http.MethodGet, notesPath+"?player_id="+ana.ID, kimToken)
		require.Equal(t, http.StatusOK, rec.Code)
		notes := decode[[]note.Note](t, rec)
		require.Len(t, notes, 1)
		assert.Equal(t, aboutAna.ID, notes[0].ID)
	})

	t.Run("Update and delete", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/notes/"+aboutAna.ID, kimToken, marshalObj(t, note.UpdateNote{Body: "Approach is better"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[note.Note](t, rec)
		assert.Equal(t, "Approach is better", updated.Body)
		assert.Equal(t, ana.ID, updated.PlayerID.String)

		rec = env.do(http.MethodDelete, "/v1/notes/"+aboutAna.ID, kimToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = env.do(http.MethodGet, "/v1/notes/"+aboutAna.ID, kimToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

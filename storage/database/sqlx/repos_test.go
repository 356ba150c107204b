package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/drill"
	"github.com/practrac/practrac/core/note"
	"github.com/practrac/practrac/core/session"
	"github.com/practrac/practrac/core/team"
	"github.com/practrac/practrac/storage/database/sqlx"
	"github.com/practrac/practrac/tests"
)

func TestSQLiteRepositories(t *testing.T) {
	runRepositoryTests(t, func(t *testing.T) *sqlx.DB { return testutil.PrepareDB(t) })
}

// runRepositoryTests runs the repository tests, each on a fresh database returned by open.
func runRepositoryTests(t *testing.T, open func(t *testing.T) *sqlx.DB) {
	t.Run("coach", func(t *testing.T) { testCoachRepository(t, open(t)) })
	t.Run("team", func(t *testing.T) { testTeamRepository(t, open(t)) })
	t.Run("drill", func(t *testing.T) { testDrillRepository(t, open(t)) })
	t.Run("practice", func(t *testing.T) { testPracticeRepository(t, open(t)) })
	t.Run("session", func(t *testing.T) { testSessionRepository(t, open(t)) })
	t.Run("note", func(t *testing.T) { testNoteRepository(t, open(t)) })
}

func testCoachRepository(t *testing.T, db *sqlx.DB) {
	ctx := context.Background()
	repo := sqlxrepos.NewCoachRepository(db)

	now := core.Now()
	admin := testutil.CreateCoach(t, repo, "Admin", "admin", "admin@test.test", "pwd", []string{coach.RoleAdmin}, true, now.Add(-time.Hour))
	head := testutil.CreateCoach(t, repo, "Kim Head", "kim", "kim@test.test", "pwd", []string{coach.RoleCoachHead}, true, now.Add(-time.Minute))
	inactive := testutil.CreateCoach(t, repo, "Lee", "lee", "", "", []string{coach.RoleCoachAssistant}, false, now)

	t.Run("get", func(t *testing.T) {
		c, err := repo.GetCoach(ctx, coach.GetFilter{ID: head.ID})
		require.NoError(t, err)
		assert.Equal(t, head.Username, c.Username)
		assert.NoError(t, c.CheckPassword("pwd"))
		assert.Equal(t, head.CreatedAt, c.CreatedAt)

		c, err = repo.GetCoach(ctx, coach.GetFilter{UsernameOrEmail: "ADMIN@test.test"})
		require.NoError(t, err)
		assert.Equal(t, admin.ID, c.ID)

		c, err = repo.GetCoach(ctx, coach.GetFilter{Username: "lee"})
		require.NoError(t, err)
		assert.Equal(t, "", c.Email)
		assert.False(t, c.IsActive)

		_, err = repo.GetCoach(ctx, coach.GetFilter{ID: "not-a-uuid"})
		assert.Equal(t, coach.ErrNotFound, err)
		_, err = repo.GetCoach(ctx, coach.GetFilter{ID: uuid.New().String()})
		assert.Equal(t, coach.ErrNotFound, err)
	})

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, coach.ErrCoachExists, repo.CheckUsernameUniqueness(ctx, "KIM", "", nil))
		assert.Equal(t, coach.ErrCoachExists, repo.CheckUsernameUniqueness(ctx, "new", "admin@test.test", nil))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "kim", "kim@test.test", []coach.Coach{head}))
		// several coaches without email do not clash
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "other", "", nil))
	})

	t.Run("query", func(t *testing.T) {
		ordering := []core.DBOrdering{{Field: "created_at", Ascending: true}}

		coaches, err := repo.QueryCoaches(ctx, nil, ordering)
		require.NoError(t, err)
		assert.Equal(t, []string{admin.ID, head.ID, inactive.ID}, ids(coaches))

		coaches, err = repo.QueryCoaches(ctx, &coach.QueryFilter{Search: "KIM"}, ordering)
		require.NoError(t, err)
		assert.Equal(t, []string{head.ID}, ids(coaches))

		coaches, err = repo.QueryCoaches(ctx, &coach.QueryFilter{Roles: []string{"coach:"}}, ordering)
		require.NoError(t, err)
		assert.Equal(t, []string{head.ID, inactive.ID}, ids(coaches))

		active := true
		coaches, err = repo.QueryCoaches(ctx, &coach.QueryFilter{IsActive: &active, CreatedFrom: now.Add(-30 * time.Minute)}, ordering)
		require.NoError(t, err)
		assert.Equal(t, []string{head.ID}, ids(coaches))
	})

	t.Run("update and delete", func(t *testing.T) {
		c := inactive
		c.Email = "Lee@Test.test"
		c.IsActive = true
		c.LastLogin = null.TimeFrom(core.Now())
		_, err := repo.UpdateCoach(ctx, c)
		require.NoError(t, err)

		got, err := repo.GetCoach(ctx, coach.GetFilter{Email: "lee@test.test"})
		require.NoError(t, err)
		assert.True(t, got.IsActive)
		assert.Equal(t, c.LastLogin, got.LastLogin)

		n, err := repo.DeleteCoachesByID(ctx, []string{inactive.ID, "garbage"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = repo.GetCoach(ctx, coach.GetFilter{ID: inactive.ID})
		assert.True(t, core.IsNotFound(err))
	})
}

func ids(coaches []coach.Coach) []string {
	res := make([]string, 0, len(coaches))
	for _, c := range coaches {
		res = append(res, c.ID)
	}
	return res
}

func testTeamRepository(t *testing.T, db *sqlx.DB) {
	ctx := context.Background()
	coachRepo := sqlxrepos.NewCoachRepository(db)
	repo := sqlxrepos.NewTeamRepository(db)

	c := testutil.CreateCoach(t, coachRepo, "Kim", "kim", "", "", nil, true)
	other := testutil.CreateCoach(t, coachRepo, "Lee", "lee", "", "", nil, true)
	varsity := testutil.CreateTeam(t, repo, c.ID, "Varsity")
	jv := testutil.CreateTeam(t, repo, c.ID, "JV", false)
	testutil.CreateTeam(t, repo, other.ID, "Varsity")

	exists, err := repo.TeamNameExists(ctx, c.ID, "VARSITY", "")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.TeamNameExists(ctx, c.ID, "varsity", varsity.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = repo.TeamNameExists(ctx, c.ID, "jv", "")
	require.NoError(t, err)
	assert.False(t, exists, "inactive teams do not count")

	teams, err := repo.QueryTeams(ctx, &team.QueryFilter{CoachID: c.ID}, []core.DBOrdering{{Field: "name", Ascending: true}})
	require.NoError(t, err)
	assert.Len(t, teams, 1)
	teams, err = repo.QueryTeams(ctx, &team.QueryFilter{CoachID: c.ID, IncludeInactive: true}, []core.DBOrdering{{Field: "name", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, jv.ID, teams[0].ID)

	got, err := repo.GetTeam(ctx, varsity.ID)
	require.NoError(t, err)
	assert.Equal(t, varsity, got)

	p1 := testutil.CreatePlayer(t, repo, varsity.ID, "Ana", "Silva", 7)
	p2 := testutil.CreatePlayer(t, repo, varsity.ID, "Bea", "Costa", -1)

	taken, err := repo.JerseyNumberExists(ctx, varsity.ID, 7, "")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.JerseyNumberExists(ctx, varsity.ID, 7, p1.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	p2.Position = null.StringFrom(team.PositionSetter)
	p2.IsActive = false
	_, err = repo.UpdatePlayer(ctx, p2)
	require.NoError(t, err)

	players, err := repo.QueryPlayers(ctx, &team.PlayerFilter{TeamID: varsity.ID}, []core.DBOrdering{{Field: "first_name", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, p1.ID, players[0].ID)
	assert.Equal(t, null.IntFrom(7), players[0].JerseyNumber)

	players, err = repo.QueryPlayers(ctx, &team.PlayerFilter{TeamID: varsity.ID, Position: team.PositionSetter, IncludeInactive: true}, nil)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, p2.ID, players[0].ID)

	_, err = repo.GetPlayer(ctx, uuid.New().String())
	assert.Equal(t, team.ErrPlayerNotFound, err)

	t.Run("unique among active rows", func(t *testing.T) {
		now := core.Now()
		dup := team.Team{ID: uuid.New().String(), CoachID: c.ID, Name: "VARSITY", IsActive: true, CreatedAt: now, UpdatedAt: now}
		_, err := repo.CreateTeam(ctx, dup)
		assertValidationErr(t, err, team.ErrNameExists, "name")

		// the inactive JV cannot come back while renamed after an active team
		jv.Name = "varsity"
		jv.IsActive = true
		_, err = repo.UpdateTeam(ctx, jv)
		assertValidationErr(t, err, team.ErrNameExists, "name")

		dup.IsActive = false
		_, err = repo.CreateTeam(ctx, dup)
		assert.NoError(t, err, "inactive teams do not count")

		seven := team.Player{
			ID: uuid.New().String(), TeamID: varsity.ID, FirstName: "Cid", JerseyNumber: null.IntFrom(7),
			IsActive: true, CreatedAt: now, UpdatedAt: now,
		}
		_, err = repo.CreatePlayer(ctx, seven)
		assertValidationErr(t, err, team.ErrJerseyTaken, "jersey_number")

		p2.JerseyNumber = null.IntFrom(7)
		p2.IsActive = true
		_, err = repo.UpdatePlayer(ctx, p2)
		assertValidationErr(t, err, team.ErrJerseyTaken, "jersey_number")

		seven.JerseyNumber = null.Int{}
		_, err = repo.CreatePlayer(ctx, seven)
		assert.NoError(t, err, "several players may go without a number")
		testutil.CreatePlayer(t, repo, varsity.ID, "Dee", "", -1)
	})
}

func assertValidationErr(t *testing.T, err, want error, field string) {
	t.Helper()

	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, want, vErr.Err)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, field, vErr.Fields[0].Field)
}

func testDrillRepository(t *testing.T, db *sqlx.DB) {
	ctx := context.Background()
	c := testutil.CreateCoach(t, sqlxrepos.NewCoachRepository(db), "Kim", "kim", "", "", nil, true)
	repo := sqlxrepos.NewDrillRepository(db)

	pepper := testutil.CreateDrill(t, repo, c.ID, "Pepper", drill.CategoryWarmup)
	serve := testutil.CreateDrill(t, repo, c.ID, "Serve targets", drill.CategoryServing)

	serve.Diagram = null.JSONFrom([]byte(`{"court":"half","elements":[{"type":"cone","x":0.1,"y":0.9}]}`))
	_, err := repo.UpdateDrill(ctx, serve)
	require.NoError(t, err)

	got, err := repo.GetDrill(ctx, serve.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(serve.Diagram.JSON), string(got.Diagram.JSON))

	got, err = repo.GetDrill(ctx, pepper.ID)
	require.NoError(t, err)
	assert.False(t, got.Diagram.Valid)

	drills, err := repo.QueryDrills(ctx, &drill.QueryFilter{CoachID: c.ID, Search: "TARGET"}, nil)
	require.NoError(t, err)
	require.Len(t, drills, 1)
	assert.Equal(t, serve.ID, drills[0].ID)

	drills, err = repo.QueryDrills(ctx, &drill.QueryFilter{Category: drill.CategoryWarmup}, nil)
	require.NoError(t, err)
	require.Len(t, drills, 1)
	assert.Equal(t, pepper.ID, drills[0].ID)

	v, err := repo.CreateVideo(ctx, drill.Video{ID: uuid.New().String(), DrillID: pepper.ID, URL: "https://videos.test/pepper", CreatedAt: core.Now()})
	require.NoError(t, err)
	videos, err := repo.QueryVideos(ctx, []string{pepper.ID, serve.ID})
	require.NoError(t, err)
	assert.Equal(t, []drill.Video{v}, videos)

	require.NoError(t, repo.DeleteVideo(ctx, v.ID))
	assert.Equal(t, drill.ErrVideoNotFound, repo.DeleteVideo(ctx, v.ID))
}

func testPracticeRepository(t *testing.T, db *sqlx.DB) {
	ctx := context.Background()
	c := testutil.CreateCoach(t, sqlxrepos.NewCoachRepository(db), "Kim", "kim", "", "", nil, true)
	tm := testutil.CreateTeam(t, sqlxrepos.NewTeamRepository(db), c.ID, "Varsity")
	repo := sqlxrepos.NewPracticeRepository(db)

	p := testutil.CreatePractice(t, repo, tm.ID, "Tuesday", 10, 20, 15)

	got, err := repo.GetPractice(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)

	phases, err := repo.QueryPhases(ctx, []string{p.ID})
	require.NoError(t, err)
	assert.Equal(t, p.Phases, phases)

	newPhases := p.Phases[1:]
	for i := range newPhases {
		newPhases[i].ID = uuid.New().String()
		newPhases[i].Position = i
	}
	require.NoError(t, repo.ReplacePhases(ctx, p.ID, newPhases))
	phases, err = repo.QueryPhases(ctx, []string{p.ID})
	require.NoError(t, err)
	assert.Equal(t, newPhases, phases)

	scheduled := core.Now().Add(48 * time.Hour)
	p.ScheduledAt = null.TimeFrom(scheduled)
	_, err = repo.UpdatePractice(ctx, p)
	require.NoError(t, err)

	practices, err := repo.QueryPractices(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, practices, 1)
	assert.Equal(t, scheduled, practices[0].ScheduledAt.Time)

	require.NoError(t, repo.DeletePractice(ctx, p.ID))
	phases, err = repo.QueryPhases(ctx, []string{p.ID})
	require.NoError(t, err)
	assert.Empty(t, phases)
}

func newSession(teamID string, practiceID string, planned ...time.Duration) session.Session {
	now := core.Now()
	s := session.Session{
		ID:            uuid.New().String(),
		PracticeID:    null.StringFrom(practiceID),
		TeamID:        teamID,
		PracticeTitle: "Tuesday",
		Status:        session.StatusPending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, d := range planned {
		s.Phases = append(s.Phases, session.PhaseLog{SessionID: s.ID, Position: i, Name: "phase", Planned: d})
	}
	return s
}

func testSessionRepository(t *testing.T, db *sqlx.DB) {
	ctx := context.Background()
	c := testutil.CreateCoach(t, sqlxrepos.NewCoachRepository(db), "Kim", "kim", "", "", nil, true)
	teamRepo := sqlxrepos.NewTeamRepository(db)
	tm := testutil.CreateTeam(t, teamRepo, c.ID, "Varsity")
	p := testutil.CreatePractice(t, sqlxrepos.NewPracticeRepository(db), tm.ID, "Tuesday", 10, 5)
	repo := sqlxrepos.NewSessionRepository(db)

	s, err := repo.CreateSession(ctx, newSession(tm.ID, p.ID, 10*time.Minute, 5*time.Minute))
	require.NoError(t, err)

	t.Run("optimistic locking", func(t *testing.T) {
		stale := s
		require.NoError(t, s.Apply(session.ActionStart, core.Now()))
		s, err = repo.UpdateSession(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Version)

		require.NoError(t, stale.Apply(session.ActionCancel, core.Now()))
		_, err = repo.UpdateSession(ctx, stale)
		assert.Equal(t, core.ErrStaleObject, err)

		got, err := repo.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, session.StatusRunning, got.Status)
		assert.Equal(t, 2, got.Version)

		logs, err := repo.QueryPhaseLogs(ctx, []string{s.ID})
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.True(t, logs[0].StartedAt.Valid)
		assert.Equal(t, 5*time.Minute, logs[1].Planned)
	})

	t.Run("attendance", func(t *testing.T) {
		ana := testutil.CreatePlayer(t, teamRepo, tm.ID, "Ana", "Silva", 7)
		bea := testutil.CreatePlayer(t, teamRepo, tm.ID, "Bea", "Costa", 8)

		now := core.Now()
		require.NoError(t, repo.UpsertAttendance(ctx, []session.Attendance{
			{SessionID: s.ID, PlayerID: ana.ID, Status: session.AttendancePresent, RecordedAt: now},
			{SessionID: s.ID, PlayerID: bea.ID, Status: session.AttendanceAbsent, RecordedAt: now},
		}))
		require.NoError(t, repo.UpsertAttendance(ctx, []session.Attendance{
			{SessionID: s.ID, PlayerID: bea.ID, Status: session.AttendanceLate, Note: "bus", RecordedAt: now.Add(time.Second)},
		}))

		records, err := repo.QueryAttendance(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, session.AttendancePresent, records[0].Status)
		assert.Equal(t, session.AttendanceLate, records[1].Status)
		assert.Equal(t, "bus", records[1].Note)

		history, err := repo.QueryPlayerAttendance(ctx, bea.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, s.StartedAt.Time, history[0].SessionDate)
		assert.Equal(t, "Tuesday", history[0].PracticeTitle)
	})

	t.Run("delete", func(t *testing.T) {
		noteRepo := sqlxrepos.NewNoteRepository(db)
		_, err := noteRepo.CreateNote(ctx, note.Note{
			ID: uuid.New().String(), TeamID: tm.ID, SessionID: null.StringFrom(s.ID), Body: "good energy",
			CreatedAt: core.Now(), UpdatedAt: core.Now(),
		})
		require.NoError(t, err)
		count, err := repo.CountNotes(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		require.NoError(t, repo.DeleteSession(ctx, s.ID))
		count, err = repo.CountNotes(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		records, err := repo.QueryAttendance(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Equal(t, session.ErrNotFound, repo.DeleteSession(ctx, s.ID))
	})
}

func testNoteRepository(t *testing.T, db *sqlx.DB) {
	ctx := context.Background()
	c := testutil.CreateCoach(t, sqlxrepos.NewCoachRepository(db), "Kim", "kim", "", "", nil, true)
	teamRepo := sqlxrepos.NewTeamRepository(db)
	tm := testutil.CreateTeam(t, teamRepo, c.ID, "Varsity")
	ana := testutil.CreatePlayer(t, teamRepo, tm.ID, "Ana", "Silva", 7)
	repo := sqlxrepos.NewNoteRepository(db)

	now := core.Now()
	general, err := repo.CreateNote(ctx, note.Note{
		ID: uuid.New().String(), TeamID: tm.ID, CoachID: null.StringFrom(c.ID), Body: "serve receive needs work",
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	aboutAna, err := repo.CreateNote(ctx, note.Note{
		ID: uuid.New().String(), TeamID: tm.ID, CoachID: null.StringFrom(c.ID), PlayerID: null.StringFrom(ana.ID),
		Body: "great serve", CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second),
	})
	require.NoError(t, err)

	notes, err := repo.QueryNotes(ctx, &note.QueryFilter{TeamID: tm.ID}, []core.DBOrdering{{Field: "created_at"}})
	require.NoError(t, err)
	assert.Equal(t, []note.Note{aboutAna, general}, notes)

	notes, err = repo.QueryNotes(ctx, &note.QueryFilter{TeamID: tm.ID, PlayerID: ana.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, []note.Note{aboutAna}, notes)

	aboutAna.Body = "great jump serve"
	_, err = repo.UpdateNote(ctx, aboutAna)
	require.NoError(t, err)
	got, err := repo.GetNote(ctx, aboutAna.ID)
	require.NoError(t, err)
	assert.Equal(t, "great jump serve", got.Body)

	// notes go away with their player
	_, err = db.ExecContext(ctx, db.Rebind("DELETE FROM player WHERE id = ?"), ana.ID)
	require.NoError(t, err)
	_, err = repo.GetNote(ctx, aboutAna.ID)
	assert.Equal(t, note.ErrNotFound, err)
	_, err = repo.GetNote(ctx, general.ID)
	assert.NoError(t, err)
}

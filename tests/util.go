package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/drill"
	"github.com/practrac/practrac/core/practice"
	"github.com/practrac/practrac/core/team"
	"github.com/practrac/practrac/storage/database"
)

// NewConfig returns the configuration used by tests: an in-memory SQLite database, console emails.
func NewConfig() *core.Config {
	conf := &core.Config{
		Env:                 "TEST",
		Build:               "test",
		AppName:             "PracTrac",
		SecretKey:           "test-secret-key",
		TestMode:            true,
		AllowSignup:         true,
		SessionSummaryEmail: true,
		FrontendBaseURL:     "http://localhost:3000",
		EmailProvider:       core.EmailConsole,
		Server: core.ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			PasswordResetTimeoutDelta: 24 * time.Hour,
			LoginRatePer15Minutes:     1000,
			DisableReqLogs:            true,
		},
		Database: core.DatabaseConfig{
			Engine: core.EngineSQLite,
			Path:   ":memory:",
		},
	}
	conf.SetDefaultFromEmail("PracTrac <noreply@test.test>")
	return conf
}

// PrepareDB opens a fresh migrated in-memory database, closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(NewConfig())
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	return db
}

func CreateCoach(
	t *testing.T,
	repo coach.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) coach.Coach {
	t.Helper()

	tstamp := core.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	c := coach.Coach{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := c.SetPassword(pwd); err != nil {
			t.Fatalf("CreateCoach() failed: %v", err)
		}
	}
	c, err := repo.CreateCoach(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCoach() failed: %v", err)
	}
	return c
}

func CreateTeam(t *testing.T, repo team.Repository, coachID, name string, isActive ...bool) team.Team {
	t.Helper()

	now := core.Now()
	tm := team.Team{
		ID:        uuid.New().String(),
		CoachID:   coachID,
		Name:      name,
		Season:    "2024",
		IsActive:  len(isActive) == 0 || isActive[0],
		CreatedAt: now,
		UpdatedAt: now,
	}
	tm, err := repo.CreateTeam(context.Background(), tm)
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	return tm
}

// CreatePlayer adds an active player to the team. A negative jersey number means none.
func CreatePlayer(t *testing.T, repo team.Repository, teamID, firstName, lastName string, jersey int) team.Player {
	t.Helper()

	now := core.Now()
	p := team.Player{
		ID:           uuid.New().String(),
		TeamID:       teamID,
		FirstName:    firstName,
		LastName:     lastName,
		JerseyNumber: null.NewInt(jersey, jersey >= 0),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	p, err := repo.CreatePlayer(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePlayer() failed: %v", err)
	}
	return p
}

func CreateDrill(t *testing.T, repo drill.Repository, coachID, name, category string) drill.Drill {
	t.Helper()

	now := core.Now()
	d := drill.Drill{
		ID:              uuid.New().String(),
		CoachID:         coachID,
		Name:            name,
		Category:        category,
		SkillLevel:      drill.SkillIntermediate,
		MinPlayers:      2,
		MaxPlayers:      12,
		DurationMinutes: 10,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	d, err := repo.CreateDrill(context.Background(), d)
	if err != nil {
		t.Fatalf("CreateDrill() failed: %v", err)
	}
	d.Videos = []drill.Video{}
	return d
}

// CreatePractice adds a practice to the team with one phase per duration (in minutes).
func CreatePractice(t *testing.T, repo practice.Repository, teamID, title string, durations ...int) practice.Practice {
	t.Helper()

	now := core.Now()
	p := practice.Practice{
		ID:        uuid.New().String(),
		TeamID:    teamID,
		Title:     title,
		Phases:    make([]practice.Phase, 0, len(durations)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, d := range durations {
		p.Phases = append(p.Phases, practice.Phase{
			ID:              uuid.New().String(),
			PracticeID:      p.ID,
			Position:        i,
			Name:            "Phase " + string(rune('A'+i)),
			DurationMinutes: d,
		})
	}
	p, err := repo.CreatePractice(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePractice() failed: %v", err)
	}
	return p
}

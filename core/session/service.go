package session

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/mail"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/practice"
	"github.com/practrac/practrac/core/team"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("session")
)

type (
	Repository interface {
		// CreateSession inserts the session and its phase log.
		CreateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		// QuerySessions returns the sessions without their phase logs.
		QuerySessions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Session, error)
		GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (Session, error)
		// QueryPhaseLogs returns the phase logs of the given sessions ordered by session then position.
		QueryPhaseLogs(ctx context.Context, sessionIDs []string, exec ...core.DBExecutor) ([]PhaseLog, error)
		// UpdateSession saves the session and its phase log when the stored version is still s.Version,
		// and returns the session with its version bumped. core.ErrStaleObject is returned otherwise.
		UpdateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		DeleteSession(ctx context.Context, id string, exec ...core.DBExecutor) error

		QueryAttendance(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]Attendance, error)
		// UpsertAttendance inserts the records, replacing the existing record of a player in the session.
		UpsertAttendance(ctx context.Context, records []Attendance, exec ...core.DBExecutor) error
		// QueryPlayerAttendance returns the attendance history of the player, most recent session first.
		QueryPlayerAttendance(ctx context.Context, playerID string, exec ...core.DBExecutor) ([]PlayerAttendanceRecord, error)
		CountNotes(ctx context.Context, sessionID string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		// Create snapshots the practice plan into a pending session.
		Create(ctx context.Context, p practice.Practice) (Session, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error)
		GetByID(ctx context.Context, id string) (Session, error)
		// Transition applies action to the session `id`.
		// When version is set and the session moved on since, core.ErrStaleObject is returned.
		Transition(ctx context.Context, id, action string, version *int) (Session, error)
		Delete(ctx context.Context, s Session) error
		Now() time.Time

		GetAttendance(ctx context.Context, s Session) ([]Attendance, error)
		SetAttendance(ctx context.Context, s Session, au AttendanceUpdate) ([]Attendance, error)
		PlayerAttendance(ctx context.Context, p team.Player) (PlayerAttendance, error)
		Summary(ctx context.Context, s Session) (Summary, error)
	}

	// TransitionObserver is notified of every applied transition.
	TransitionObserver interface {
		ObserveTransition(from, action, to string)
	}

	Option func(*service)

	service struct {
		db       core.DB
		repo     Repository
		teamSvc  team.Service
		coachSvc coach.Service
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
		now      func() time.Time
		observer TransitionObserver
	}
)

var _ Service = (*service)(nil)

// WithClock sets the clock of the state machine.
func WithClock(now func() time.Time) Option {
	return func(svc *service) { svc.now = now }
}

func WithObserver(o TransitionObserver) Option {
	return func(svc *service) { svc.observer = o }
}

func NewService(
	db core.DB,
	repo Repository,
	teamSvc team.Service,
	coachSvc coach.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
	opts ...Option,
) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(teamSvc, "teamSvc"),
		vala.IsNotNil(coachSvc, "coachSvc"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	svc := &service{
		db:       db,
		repo:     repo,
		teamSvc:  teamSvc,
		coachSvc: coachSvc,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
		now:      core.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *service) Now() time.Time {
	return svc.now().UTC().Truncate(time.Microsecond)
}

func (svc *service) Create(ctx context.Context, p practice.Practice) (Session, error) {
	if len(p.Phases) == 0 {
		return Session{}, ErrNoPhases
	}

	now := svc.Now()
	s := Session{
		ID:            uuid.New().String(),
		PracticeID:    null.StringFrom(p.ID),
		TeamID:        p.TeamID,
		PracticeTitle: p.Title,
		Status:        StatusPending,
		Version:       1,
		Phases:        make([]PhaseLog, 0, len(p.Phases)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, ph := range p.Phases {
		s.Phases = append(s.Phases, PhaseLog{
			SessionID: s.ID,
			Position:  i,
			Name:      ph.Name,
			DrillID:   ph.DrillID,
			Planned:   ph.Duration(),
		})
	}

	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		s, err = svc.repo.CreateSession(ctx, s, tx)
		return errors.Wrap(err, "creating session")
	})
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

func (svc *service) attachPhases(ctx context.Context, sessions []Session, exec ...core.DBExecutor) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	logs, err := svc.repo.QueryPhaseLogs(ctx, ids, exec...)
	if err != nil {
		return errors.Wrap(err, "querying phase logs")
	}

	bySession := make(map[string][]PhaseLog, len(sessions))
	for _, l := range logs {
		bySession[l.SessionID] = append(bySession[l.SessionID], l)
	}
	for i := range sessions {
		sessions[i].Phases = bySession[sessions[i].ID]
		if sessions[i].Phases == nil {
			sessions[i].Phases = []PhaseLog{}
		}
	}
	return nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error) {
	ordering = core.AllowedOrderings(ordering, "status", "started_at", "completed_at", "created_at", "updated_at")
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sessions, err := svc.repo.QuerySessions(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	if err := svc.attachPhases(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (svc *service) get(ctx context.Context, id string, exec ...core.DBExecutor) (Session, error) {
	s, err := svc.repo.GetSession(ctx, id, exec...)
	if err != nil {
		return Session{}, err
	}
	sessions := []Session{s}
	if err := svc.attachPhases(ctx, sessions, exec...); err != nil {
		return Session{}, err
	}
	return sessions[0], nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Session, error) {
	return svc.get(ctx, id)
}

func (svc *service) Transition(ctx context.Context, id, action string, version *int) (Session, error) {
	ctx, span := otel.Tracer("practrac/session").Start(ctx, "session.Transition")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id), attribute.String("session.action", action))

	var (
		s    Session
		from string
	)
	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if s, err = svc.get(ctx, id, tx); err != nil {
			return err
		}
		if version != nil && *version != s.Version {
			return core.ErrStaleObject
		}

		from = s.Status
		now := svc.Now()
		if err = s.Apply(action, now); err != nil {
			return err
		}
		s.UpdatedAt = now
		s, err = svc.repo.UpdateSession(ctx, s, tx)
		return errors.Wrapf(err, "applying %s", action)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Session{}, err
	}
	span.SetAttributes(attribute.String("session.from", from), attribute.String("session.to", s.Status))

	if svc.observer != nil {
		svc.observer.ObserveTransition(from, action, s.Status)
	}
	if s.Status == StatusCompleted && from != StatusCompleted && svc.conf.SessionSummaryEmail {
		if err := svc.sendSummary(ctx, s); err != nil {
			svc.logger.Error(fmt.Sprintf("sending session summary: %v", err), err)
		}
	}
	return s, nil
}

func (svc *service) Delete(ctx context.Context, s Session) error {
	return errors.Wrap(svc.repo.DeleteSession(ctx, s.ID), "deleting session")
}

func (svc *service) GetAttendance(ctx context.Context, s Session) ([]Attendance, error) {
	records, err := svc.repo.QueryAttendance(ctx, s.ID)
	return records, errors.Wrap(err, "querying attendance")
}

func (svc *service) SetAttendance(ctx context.Context, s Session, au AttendanceUpdate) ([]Attendance, error) {
	now := svc.Now()
	records := make([]Attendance, 0, len(au.Records))
	seen := make(map[string]int, len(au.Records))
	for i, in := range au.Records {
		if _, err := svc.teamSvc.GetPlayer(ctx, s.TeamID, in.PlayerID); err != nil {
			if core.IsNotFound(err) {
				return nil, core.NewValidationError(nil, core.FieldError{
					Field: fmt.Sprintf("records[%d].player_id", i),
					Error: team.ErrPlayerNotFound.Error(),
				})
			}
			return nil, errors.Wrap(err, "finding player")
		}

		rec := Attendance{
			SessionID:  s.ID,
			PlayerID:   in.PlayerID,
			Status:     in.Status,
			Note:       in.Note,
			RecordedAt: now,
		}
		// the last record of a player wins
		if j, ok := seen[in.PlayerID]; ok {
			records[j] = rec
			continue
		}
		seen[in.PlayerID] = len(records)
		records = append(records, rec)
	}

	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		return errors.Wrap(svc.repo.UpsertAttendance(ctx, records, tx), "saving attendance")
	})
	if err != nil {
		return nil, err
	}
	return svc.GetAttendance(ctx, s)
}

func (svc *service) PlayerAttendance(ctx context.Context, p team.Player) (PlayerAttendance, error) {
	records, err := svc.repo.QueryPlayerAttendance(ctx, p.ID)
	if err != nil {
		return PlayerAttendance{}, errors.Wrap(err, "querying player attendance")
	}
	pa := PlayerAttendance{PlayerID: p.ID, Records: records}
	if pa.Records == nil {
		pa.Records = []PlayerAttendanceRecord{}
	}
	for _, r := range records {
		pa.Counts.Add(r.Status)
	}
	return pa, nil
}

func (svc *service) Summary(ctx context.Context, s Session) (Summary, error) {
	attendance, err := svc.repo.QueryAttendance(ctx, s.ID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying attendance")
	}
	notes, err := svc.repo.CountNotes(ctx, s.ID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "counting notes")
	}
	return s.Summarize(svc.Now(), attendance, notes), nil
}

type summaryMailData struct {
	CoachName string
	TeamName  string
	Summary   Summary
}

// sendSummary mails the summary of a completed session, with the attendance sheet, to the coach of the team.
func (svc *service) sendSummary(ctx context.Context, s Session) error {
	t, err := svc.teamSvc.GetByID(ctx, s.TeamID)
	if err != nil {
		return errors.Wrap(err, "finding team")
	}
	c, err := svc.coachSvc.GetByID(ctx, t.CoachID)
	if err != nil {
		return errors.Wrap(err, "finding coach")
	}
	if c.Email == "" {
		return nil
	}

	sum, err := svc.Summary(ctx, s)
	if err != nil {
		return err
	}
	sheet, err := svc.attendanceSheet(ctx, s)
	if err != nil {
		return errors.Wrap(err, "writing attendance sheet")
	}

	msg := &core.EmailMessage{
		To:              []mail.Address{{Name: c.Name, Address: c.Email}},
		Subject:         "Practice summary: " + s.PracticeTitle,
		TemplateName:    "session_summary",
		FrontendBaseURL: svc.conf.FrontendBaseURL,
		TemplateData:    summaryMailData{CoachName: c.Name, TeamName: t.Name, Summary: sum},
	}
	if err := msg.Attach(bytes.NewReader(sheet), "attendance.csv", "text/csv"); err != nil {
		return errors.Wrap(err, "attaching attendance sheet")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

// attendanceSheet writes the attendance of the session as CSV, one row per player of the team.
func (svc *service) attendanceSheet(ctx context.Context, s Session) ([]byte, error) {
	players, err := svc.teamSvc.QueryPlayers(ctx, &team.PlayerFilter{TeamID: s.TeamID, IncludeInactive: true}, nil)
	if err != nil {
		return nil, err
	}
	records, err := svc.repo.QueryAttendance(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	byPlayer := make(map[string]Attendance, len(records))
	for _, r := range records {
		byPlayer[r.PlayerID] = r
	}
	sort.SliceStable(players, func(i, j int) bool { return players[i].FullName() < players[j].FullName() })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"player", "jersey_number", "status", "note"})
	for _, p := range players {
		r, ok := byPlayer[p.ID]
		if !ok && !p.IsActive {
			continue
		}
		jersey := ""
		if p.JerseyNumber.Valid {
			jersey = strconv.Itoa(p.JerseyNumber.Int)
		}
		_ = w.Write([]string{p.FullName(), jersey, r.Status, r.Note})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

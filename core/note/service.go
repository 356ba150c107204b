package note

import (
	"context"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/practice"
	"github.com/practrac/practrac/core/session"
	"github.com/practrac/practrac/core/team"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("note")
)

type (
	Repository interface {
		CreateNote(ctx context.Context, n Note, exec ...core.DBExecutor) (Note, error)
		// QueryNotes applies AND operation on available QueryFilter fields.
		QueryNotes(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Note, error)
		GetNote(ctx context.Context, id string, exec ...core.DBExecutor) (Note, error)
		UpdateNote(ctx context.Context, n Note, exec ...core.DBExecutor) (Note, error)
		DeleteNote(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		// Create adds a note written by author to the team.
		// The referenced player, session and practice must belong to the team.
		Create(ctx context.Context, author coach.Coach, t team.Team, nn NewNote) (Note, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Note, error)
		GetByID(ctx context.Context, id string) (Note, error)
		Update(ctx context.Context, n Note, un UpdateNote) (Note, error)
		Delete(ctx context.Context, n Note) error
	}

	service struct {
		db          core.DB
		repo        Repository
		teamSvc     team.Service
		practiceSvc practice.Service
		sessionSvc  session.Service
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, teamSvc team.Service, practiceSvc practice.Service, sessionSvc session.Service) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(teamSvc, "teamSvc"),
		vala.IsNotNil(practiceSvc, "practiceSvc"),
		vala.IsNotNil(sessionSvc, "sessionSvc"),
	).CheckAndPanic()

	return &service{db: db, repo: repo, teamSvc: teamSvc, practiceSvc: practiceSvc, sessionSvc: sessionSvc}
}

func refError(field string, err error) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: err.Error()})
}

// checkRefs makes sure the references of nn exist and belong to the team.
func (svc *service) checkRefs(ctx context.Context, t team.Team, nn NewNote) error {
	if nn.PlayerID != "" {
		if _, err := svc.teamSvc.GetPlayer(ctx, t.ID, nn.PlayerID); err != nil {
			if core.IsNotFound(err) {
				return refError("player_id", team.ErrPlayerNotFound)
			}
			return errors.Wrap(err, "finding player")
		}
	}

	if nn.SessionID != "" {
		s, err := svc.sessionSvc.GetByID(ctx, nn.SessionID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "finding session")
		}
		if err != nil || s.TeamID != t.ID {
			return refError("session_id", session.ErrNotFound)
		}
	}

	if nn.PracticeID != "" {
		p, err := svc.practiceSvc.GetByID(ctx, nn.PracticeID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "finding practice")
		}
		if err != nil || p.TeamID != t.ID {
			return refError("practice_id", practice.ErrNotFound)
		}
	}
	return nil
}

func optionalID(id string) null.String {
	return null.NewString(id, id != "")
}

func (svc *service) Create(ctx context.Context, author coach.Coach, t team.Team, nn NewNote) (Note, error) {
	if err := svc.checkRefs(ctx, t, nn); err != nil {
		return Note{}, err
	}

	now := core.Now()
	n := Note{
		ID:         uuid.New().String(),
		TeamID:     t.ID,
		CoachID:    optionalID(author.ID),
		PlayerID:   optionalID(nn.PlayerID),
		SessionID:  optionalID(nn.SessionID),
		PracticeID: optionalID(nn.PracticeID),
		Body:       nn.Body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	n, err := svc.repo.CreateNote(ctx, n)
	if err != nil {
		return Note{}, errors.Wrap(err, "creating note")
	}
	return n, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Note, error) {
	ordering = core.AllowedOrderings(ordering, "created_at", "updated_at")
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	notes, err := svc.repo.QueryNotes(ctx, filter, ordering)
	return notes, errors.Wrap(err, "querying notes")
}

func (svc *service) GetByID(ctx context.Context, id string) (Note, error) {
	return svc.repo.GetNote(ctx, id)
}

func (svc *service) Update(ctx context.Context, n Note, un UpdateNote) (Note, error) {
	n.Body = un.Body
	n.UpdatedAt = core.Now()
	n, err := svc.repo.UpdateNote(ctx, n)
	if err != nil {
		return Note{}, errors.Wrap(err, "updating note")
	}
	return n, nil
}

func (svc *service) Delete(ctx context.Context, n Note) error {
	return errors.Wrap(svc.repo.DeleteNote(ctx, n.ID), "deleting note")
}

package practice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/drill"
	"github.com/practrac/practrac/core/team"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("practice")
)

type (
	Repository interface {
		// CreatePractice inserts the practice and its phases.
		CreatePractice(ctx context.Context, p Practice, exec ...core.DBExecutor) (Practice, error)
		// QueryPractices returns the practices without their phases.
		QueryPractices(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Practice, error)
		GetPractice(ctx context.Context, id string, exec ...core.DBExecutor) (Practice, error)
		// QueryPhases returns the phases of the given practices ordered by practice then position.
		QueryPhases(ctx context.Context, practiceIDs []string, exec ...core.DBExecutor) ([]Phase, error)
		UpdatePractice(ctx context.Context, p Practice, exec ...core.DBExecutor) (Practice, error)
		// ReplacePhases deletes the phases of the practice and inserts the given ones.
		ReplacePhases(ctx context.Context, practiceID string, phases []Phase, exec ...core.DBExecutor) error
		DeletePractice(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		// Create adds a practice plan to the team. actor is the coach making the request.
		Create(ctx context.Context, actor coach.Coach, t team.Team, np NewPractice) (Practice, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Practice, error)
		GetByID(ctx context.Context, id string) (Practice, error)
		// Update replaces the practice fields and its phase list in one transaction.
		Update(ctx context.Context, actor coach.Coach, t team.Team, p Practice, np NewPractice) (Practice, error)
		Delete(ctx context.Context, p Practice) error
		// Duplicate copies the practice and its phases. The copy is unscheduled unless scheduledAt is set.
		Duplicate(ctx context.Context, p Practice, req DuplicateRequest) (Practice, error)
	}

	service struct {
		db       core.DB
		repo     Repository
		drillSvc drill.Service
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, drillSvc drill.Service) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(drillSvc, "drillSvc"),
	).CheckAndPanic()

	return &service{db: db, repo: repo, drillSvc: drillSvc}
}

// buildPhases checks the drills of the phases and returns the phases to store.
// A drill must be in the library of the team's coach, unless the actor is an admin.
// A phase without a name takes the name of its drill.
func (svc *service) buildPhases(ctx context.Context, actor coach.Coach, t team.Team, practiceID string, nps []NewPhase) ([]Phase, error) {
	phases := make([]Phase, 0, len(nps))
	for i, np := range nps {
		ph := Phase{
			ID:              uuid.New().String(),
			PracticeID:      practiceID,
			Position:        i,
			Name:            np.Name,
			DurationMinutes: np.DurationMinutes,
			Notes:           np.Notes,
		}

		if np.DrillID != "" {
			d, err := svc.drillSvc.GetByID(ctx, np.DrillID)
			if err != nil && !core.IsNotFound(err) {
				return nil, errors.Wrap(err, "finding drill")
			}
			if err != nil || !(d.CoachID == t.CoachID || actor.IsAdmin()) {
				return nil, core.NewValidationError(nil, core.FieldError{
					Field: fmt.Sprintf("phases[%d].drill_id", i),
					Error: drill.ErrNotFound.Error(),
				})
			}
			ph.DrillID = null.StringFrom(d.ID)
			if ph.Name == "" {
				ph.Name = d.Name
			}
		}
		phases = append(phases, ph)
	}
	return phases, nil
}

func (svc *service) Create(ctx context.Context, actor coach.Coach, t team.Team, np NewPractice) (Practice, error) {
	now := core.Now()
	p := Practice{
		ID:          uuid.New().String(),
		TeamID:      t.ID,
		Title:       np.Title,
		ScheduledAt: scheduledAt(np.ScheduledAt),
		Location:    np.Location,
		Goals:       np.Goals,
		Notes:       np.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	phases, err := svc.buildPhases(ctx, actor, t, p.ID, np.Phases)
	if err != nil {
		return Practice{}, err
	}
	p.Phases = phases

	err = core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		p, err = svc.repo.CreatePractice(ctx, p, tx)
		return errors.Wrap(err, "creating practice")
	})
	if err != nil {
		return Practice{}, err
	}
	return p, nil
}

func scheduledAt(t *time.Time) null.Time {
	if t == nil || t.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC().Truncate(time.Microsecond))
}

func (svc *service) attachPhases(ctx context.Context, practices []Practice, exec ...core.DBExecutor) error {
	if len(practices) == 0 {
		return nil
	}
	ids := make([]string, 0, len(practices))
	for _, p := range practices {
		ids = append(ids, p.ID)
	}
	phases, err := svc.repo.QueryPhases(ctx, ids, exec...)
	if err != nil {
		return errors.Wrap(err, "querying phases")
	}

	byPractice := make(map[string][]Phase, len(practices))
	for _, ph := range phases {
		byPractice[ph.PracticeID] = append(byPractice[ph.PracticeID], ph)
	}
	for i := range practices {
		practices[i].Phases = byPractice[practices[i].ID]
		if practices[i].Phases == nil {
			practices[i].Phases = []Phase{}
		}
	}
	return nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Practice, error) {
	ordering = core.AllowedOrderings(ordering, "title", "scheduled_at", "location", "created_at", "updated_at")
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "scheduled_at"}, {Field: "created_at"}}
	}
	practices, err := svc.repo.QueryPractices(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying practices")
	}
	if err := svc.attachPhases(ctx, practices); err != nil {
		return nil, err
	}
	return practices, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Practice, error) {
	p, err := svc.repo.GetPractice(ctx, id)
	if err != nil {
		return Practice{}, err
	}
	practices := []Practice{p}
	if err := svc.attachPhases(ctx, practices); err != nil {
		return Practice{}, err
	}
	return practices[0], nil
}

func (svc *service) Update(ctx context.Context, actor coach.Coach, t team.Team, p Practice, np NewPractice) (Practice, error) {
	p.Title = np.Title
	p.ScheduledAt = scheduledAt(np.ScheduledAt)
	p.Location = np.Location
	p.Goals = np.Goals
	p.Notes = np.Notes
	p.UpdatedAt = core.Now()

	phases, err := svc.buildPhases(ctx, actor, t, p.ID, np.Phases)
	if err != nil {
		return Practice{}, err
	}

	err = core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if p, err = svc.repo.UpdatePractice(ctx, p, tx); err != nil {
			return errors.Wrap(err, "updating practice")
		}
		return errors.Wrap(svc.repo.ReplacePhases(ctx, p.ID, phases, tx), "replacing phases")
	})
	if err != nil {
		return Practice{}, err
	}
	p.Phases = phases
	return p, nil
}

func (svc *service) Delete(ctx context.Context, p Practice) error {
	return errors.Wrap(svc.repo.DeletePractice(ctx, p.ID), "deleting practice")
}

func (svc *service) Duplicate(ctx context.Context, p Practice, req DuplicateRequest) (Practice, error) {
	now := core.Now()
	dup := Practice{
		ID:          uuid.New().String(),
		TeamID:      p.TeamID,
		Title:       p.Title + " (copy)",
		ScheduledAt: scheduledAt(req.ScheduledAt),
		Location:    p.Location,
		Goals:       p.Goals,
		Notes:       p.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	dup.Phases = make([]Phase, 0, len(p.Phases))
	for _, ph := range p.Phases {
		ph.ID = uuid.New().String()
		ph.PracticeID = dup.ID
		dup.Phases = append(dup.Phases, ph)
	}

	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		dup, err = svc.repo.CreatePractice(ctx, dup, tx)
		return errors.Wrap(err, "duplicating practice")
	})
	if err != nil {
		return Practice{}, err
	}
	return dup, nil
}

package team

import (
	"context"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("team")
	ErrPlayerNotFound = core.NewNotFoundError("player")
	ErrNameExists     = errors.New("you already have an active team with this name")
	ErrJerseyTaken    = errors.New("this jersey number is already worn by an active player of the team")
)

type (
	Repository interface {
		CreateTeam(ctx context.Context, t Team, exec ...core.DBExecutor) (Team, error)
		// QueryTeams applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Team.Name, Team.Season or Team.Level.
		QueryTeams(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Team, error)
		GetTeam(ctx context.Context, id string, exec ...core.DBExecutor) (Team, error)
		UpdateTeam(ctx context.Context, t Team, exec ...core.DBExecutor) (Team, error)
		// TeamNameExists reports whether the coach owns another active team named `name` (case-insensitive).
		TeamNameExists(ctx context.Context, coachID, name, excludedID string, exec ...core.DBExecutor) (bool, error)

		CreatePlayer(ctx context.Context, p Player, exec ...core.DBExecutor) (Player, error)
		// QueryPlayers applies AND operation on available PlayerFilter fields.
		// PlayerFilter.Search does a case-insensitive match on one of Player.FirstName or Player.LastName.
		QueryPlayers(ctx context.Context, filter *PlayerFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Player, error)
		GetPlayer(ctx context.Context, id string, exec ...core.DBExecutor) (Player, error)
		UpdatePlayer(ctx context.Context, p Player, exec ...core.DBExecutor) (Player, error)
		// JerseyNumberExists reports whether another active player of the team wears `number`.
		JerseyNumberExists(ctx context.Context, teamID string, number int, excludedID string, exec ...core.DBExecutor) (bool, error)
	}

	Service interface {
		Create(ctx context.Context, coachID string, nt NewTeam) (Team, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Team, error)
		GetByID(ctx context.Context, id string) (Team, error)
		Update(ctx context.Context, t Team, nt NewTeam) (Team, error)
		Deactivate(ctx context.Context, t Team) (Team, error)
		Restore(ctx context.Context, t Team) (Team, error)

		CreatePlayer(ctx context.Context, t Team, np NewPlayer) (Player, error)
		QueryPlayers(ctx context.Context, filter *PlayerFilter, ordering []core.DBOrdering) ([]Player, error)
		// GetPlayer returns the player `id` of the team `teamID`.
		GetPlayer(ctx context.Context, teamID, id string) (Player, error)
		UpdatePlayer(ctx context.Context, p Player, np NewPlayer) (Player, error)
		DeactivatePlayer(ctx context.Context, p Player) (Player, error)
		RestorePlayer(ctx context.Context, p Player) (Player, error)
	}

	service struct {
		db   core.DB
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
	).CheckAndPanic()

	return &service{db: db, repo: repo}
}

// NameExistsError is the validation error reported when a coach already has an active team with the name.
func NameExistsError() error {
	return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
}

// JerseyTakenError is the validation error reported when an active teammate already wears the number.
func JerseyTakenError() error {
	return core.NewValidationError(ErrJerseyTaken, core.FieldError{Field: "jersey_number", Error: ErrJerseyTaken.Error()})
}

func (svc *service) checkName(ctx context.Context, exec core.DBExecutor, coachID, name, excludedID string) error {
	exists, err := svc.repo.TeamNameExists(ctx, coachID, name, excludedID, exec)
	if err != nil {
		return errors.Wrap(err, "checking team name")
	}
	if exists {
		return NameExistsError()
	}
	return nil
}

func (svc *service) checkJersey(ctx context.Context, exec core.DBExecutor, teamID string, number null.Int, excludedID string) error {
	if !number.Valid {
		return nil
	}
	exists, err := svc.repo.JerseyNumberExists(ctx, teamID, number.Int, excludedID, exec)
	if err != nil {
		return errors.Wrap(err, "checking jersey number")
	}
	if exists {
		return JerseyTakenError()
	}
	return nil
}

func (svc *service) Create(ctx context.Context, coachID string, nt NewTeam) (Team, error) {
	now := core.Now()
	t := Team{
		ID:          uuid.New().String(),
		CoachID:     coachID,
		Name:        nt.Name,
		Season:      nt.Season,
		Level:       nt.Level,
		Description: nt.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.checkName(ctx, tx, coachID, t.Name, ""); err != nil {
			return err
		}
		var err error
		t, err = svc.repo.CreateTeam(ctx, t, tx)
		return errors.Wrap(err, "creating team")
	})
	if err != nil {
		return Team{}, err
	}
	return t, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Team, error) {
	ordering = core.AllowedOrderings(ordering, "name", "season", "level", "is_active", "created_at", "updated_at")
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	teams, err := svc.repo.QueryTeams(ctx, filter, ordering)
	return teams, errors.Wrap(err, "querying teams")
}

func (svc *service) GetByID(ctx context.Context, id string) (Team, error) {
	return svc.repo.GetTeam(ctx, id)
}

func (svc *service) Update(ctx context.Context, t Team, nt NewTeam) (Team, error) {
	t.Name = nt.Name
	t.Season = nt.Season
	t.Level = nt.Level
	t.Description = nt.Description
	t.UpdatedAt = core.Now()

	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if t.IsActive {
			if err := svc.checkName(ctx, tx, t.CoachID, t.Name, t.ID); err != nil {
				return err
			}
		}
		var err error
		t, err = svc.repo.UpdateTeam(ctx, t, tx)
		return errors.Wrap(err, "updating team")
	})
	if err != nil {
		return Team{}, err
	}
	return t, nil
}

func (svc *service) Deactivate(ctx context.Context, t Team) (Team, error) {
	if !t.IsActive {
		return t, nil
	}
	t.IsActive = false
	t.UpdatedAt = core.Now()
	t, err := svc.repo.UpdateTeam(ctx, t)
	return t, errors.Wrap(err, "deactivating team")
}

// Restore reactivates a team, unless the coach created another active team with the same name meanwhile.
func (svc *service) Restore(ctx context.Context, t Team) (Team, error) {
	if t.IsActive {
		return t, nil
	}
	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.checkName(ctx, tx, t.CoachID, t.Name, t.ID); err != nil {
			return err
		}
		t.IsActive = true
		t.UpdatedAt = core.Now()
		var err error
		t, err = svc.repo.UpdateTeam(ctx, t, tx)
		return errors.Wrap(err, "restoring team")
	})
	if err != nil {
		return Team{}, err
	}
	return t, nil
}

func applyPlayer(p *Player, np NewPlayer) {
	p.FirstName = np.FirstName
	p.LastName = np.LastName
	p.JerseyNumber = null.IntFromPtr(np.JerseyNumber)
	p.Position = null.StringFromPtr(np.Position)
	p.Grade = np.Grade
	p.Email = np.Email
	p.Phone = np.Phone
	p.Notes = np.Notes
}

func (svc *service) CreatePlayer(ctx context.Context, t Team, np NewPlayer) (Player, error) {
	now := core.Now()
	p := Player{
		ID:        uuid.New().String(),
		TeamID:    t.ID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyPlayer(&p, np)

	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.checkJersey(ctx, tx, t.ID, p.JerseyNumber, ""); err != nil {
			return err
		}
		var err error
		p, err = svc.repo.CreatePlayer(ctx, p, tx)
		return errors.Wrap(err, "creating player")
	})
	if err != nil {
		return Player{}, err
	}
	return p, nil
}

func (svc *service) QueryPlayers(ctx context.Context, filter *PlayerFilter, ordering []core.DBOrdering) ([]Player, error) {
	ordering = core.AllowedOrderings(ordering, "first_name", "last_name", "jersey_number", "position", "grade", "created_at")
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "last_name", Ascending: true}, {Field: "first_name", Ascending: true}}
	}
	players, err := svc.repo.QueryPlayers(ctx, filter, ordering)
	return players, errors.Wrap(err, "querying players")
}

func (svc *service) GetPlayer(ctx context.Context, teamID, id string) (Player, error) {
	p, err := svc.repo.GetPlayer(ctx, id)
	if err != nil {
		return Player{}, err
	}
	if p.TeamID != teamID {
		return Player{}, ErrPlayerNotFound
	}
	return p, nil
}

func (svc *service) UpdatePlayer(ctx context.Context, p Player, np NewPlayer) (Player, error) {
	applyPlayer(&p, np)
	p.UpdatedAt = core.Now()

	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if p.IsActive {
			if err := svc.checkJersey(ctx, tx, p.TeamID, p.JerseyNumber, p.ID); err != nil {
				return err
			}
		}
		var err error
		p, err = svc.repo.UpdatePlayer(ctx, p, tx)
		return errors.Wrap(err, "updating player")
	})
	if err != nil {
		return Player{}, err
	}
	return p, nil
}

func (svc *service) DeactivatePlayer(ctx context.Context, p Player) (Player, error) {
	if !p.IsActive {
		return p, nil
	}
	p.IsActive = false
	p.UpdatedAt = core.Now()
	p, err := svc.repo.UpdatePlayer(ctx, p)
	return p, errors.Wrap(err, "deactivating player")
}

// RestorePlayer reactivates a player, unless their jersey number was given to another active player meanwhile.
func (svc *service) RestorePlayer(ctx context.Context, p Player) (Player, error) {
	if p.IsActive {
		return p, nil
	}
	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.checkJersey(ctx, tx, p.TeamID, p.JerseyNumber, p.ID); err != nil {
			return err
		}
		p.IsActive = true
		p.UpdatedAt = core.Now()
		var err error
		p, err = svc.repo.UpdatePlayer(ctx, p, tx)
		return errors.Wrap(err, "restoring player")
	})
	if err != nil {
		return Player{}, err
	}
	return p, nil
}

package drill

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("drill")
	ErrVideoNotFound = core.NewNotFoundError("video")
)

type (
	Repository interface {
		CreateDrill(ctx context.Context, d Drill, exec ...core.DBExecutor) (Drill, error)
		// QueryDrills applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Drill.Name, Drill.Description or Drill.Equipment.
		QueryDrills(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Drill, error)
		GetDrill(ctx context.Context, id string, exec ...core.DBExecutor) (Drill, error)
		UpdateDrill(ctx context.Context, d Drill, exec ...core.DBExecutor) (Drill, error)

		CreateVideo(ctx context.Context, v Video, exec ...core.DBExecutor) (Video, error)
		// QueryVideos returns the videos of the given drills, oldest first.
		QueryVideos(ctx context.Context, drillIDs []string, exec ...core.DBExecutor) ([]Video, error)
		GetVideo(ctx context.Context, id string, exec ...core.DBExecutor) (Video, error)
		DeleteVideo(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, coachID string, nd NewDrill) (Drill, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Drill, error)
		GetByID(ctx context.Context, id string) (Drill, error)
		Update(ctx context.Context, d Drill, nd NewDrill) (Drill, error)
		// SetDiagram replaces the court diagram of the drill. A JSON null removes it.
		SetDiagram(ctx context.Context, d Drill, raw json.RawMessage) (Drill, error)
		Deactivate(ctx context.Context, d Drill) (Drill, error)
		Restore(ctx context.Context, d Drill) (Drill, error)
		AddVideo(ctx context.Context, d Drill, nv NewVideo) (Video, error)
		DeleteVideo(ctx context.Context, d Drill, videoID string) error
		// Import creates the given drills, with their videos, in the library of the coach.
		Import(ctx context.Context, coachID string, drills []Drill) (int, error)
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

func toJSON(raw json.RawMessage) null.JSON {
	if isNullJSON(raw) {
		return null.JSON{}
	}
	return null.JSONFrom(raw)
}

func (svc *service) Create(ctx context.Context, coachID string, nd NewDrill) (Drill, error) {
	now := core.Now()
	d := Drill{
		ID:              uuid.New().String(),
		CoachID:         coachID,
		Name:            nd.Name,
		Category:        nd.Category,
		SkillLevel:      nd.SkillLevel,
		Description:     nd.Description,
		MinPlayers:      nd.MinPlayers,
		MaxPlayers:      nd.MaxPlayers,
		DurationMinutes: nd.DurationMinutes,
		Equipment:       nd.Equipment,
		Diagram:         toJSON(nd.Diagram),
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	d, err := svc.repo.CreateDrill(ctx, d)
	if err != nil {
		return Drill{}, errors.Wrap(err, "creating drill")
	}
	d.Videos = []Video{}
	return d, nil
}

func (svc *service) attachVideos(ctx context.Context, drills []Drill, exec ...core.DBExecutor) error {
	if len(drills) == 0 {
		return nil
	}
	ids := make([]string, 0, len(drills))
	for _, d := range drills {
		ids = append(ids, d.ID)
	}
	videos, err := svc.repo.QueryVideos(ctx, ids, exec...)
	if err != nil {
		return errors.Wrap(err, "querying videos")
	}

	byDrill := make(map[string][]Video, len(drills))
	for _, v := range videos {
		byDrill[v.DrillID] = append(byDrill[v.DrillID], v)
	}
	for i := range drills {
		drills[i].Videos = byDrill[drills[i].ID]
		if drills[i].Videos == nil {
			drills[i].Videos = []Video{}
		}
	}
	return nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Drill, error) {
	ordering = core.AllowedOrderings(ordering, "name", "category", "skill_level", "duration_minutes", "created_at", "updated_at")
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	drills, err := svc.repo.QueryDrills(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying drills")
	}
	if err := svc.attachVideos(ctx, drills); err != nil {
		return nil, err
	}
	return drills, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Drill, error) {
	d, err := svc.repo.GetDrill(ctx, id)
	if err != nil {
		return Drill{}, err
	}
	drills := []Drill{d}
	if err := svc.attachVideos(ctx, drills); err != nil {
		return Drill{}, err
	}
	return drills[0], nil
}

func (svc *service) save(ctx context.Context, d Drill, msg string) (Drill, error) {
	d.UpdatedAt = core.Now()
	videos := d.Videos
	d, err := svc.repo.UpdateDrill(ctx, d)
	if err != nil {
		return Drill{}, errors.Wrap(err, msg)
	}
	d.Videos = videos
	return d, nil
}

func (svc *service) Update(ctx context.Context, d Drill, nd NewDrill) (Drill, error) {
	d.Name = nd.Name
	d.Category = nd.Category
	d.SkillLevel = nd.SkillLevel
	d.Description = nd.Description
	d.MinPlayers = nd.MinPlayers
	d.MaxPlayers = nd.MaxPlayers
	d.DurationMinutes = nd.DurationMinutes
	d.Equipment = nd.Equipment
	if nd.Diagram != nil {
		d.Diagram = toJSON(nd.Diagram)
	}
	return svc.save(ctx, d, "updating drill")
}

func (svc *service) SetDiagram(ctx context.Context, d Drill, raw json.RawMessage) (Drill, error) {
	if !isNullJSON(raw) {
		if err := ValidateDiagram(raw); err != nil {
			return Drill{}, err
		}
	}
	d.Diagram = toJSON(raw)
	return svc.save(ctx, d, "setting drill diagram")
}

func (svc *service) Deactivate(ctx context.Context, d Drill) (Drill, error) {
	if !d.IsActive {
		return d, nil
	}
	d.IsActive = false
	return svc.save(ctx, d, "deactivating drill")
}

func (svc *service) Restore(ctx context.Context, d Drill) (Drill, error) {
	if d.IsActive {
		return d, nil
	}
	d.IsActive = true
	return svc.save(ctx, d, "restoring drill")
}

func (svc *service) AddVideo(ctx context.Context, d Drill, nv NewVideo) (Video, error) {
	v := Video{
		ID:        uuid.New().String(),
		DrillID:   d.ID,
		Title:     nv.Title,
		URL:       nv.URL,
		CreatedAt: core.Now(),
	}
	v, err := svc.repo.CreateVideo(ctx, v)
	return v, errors.Wrap(err, "creating video")
}

func (svc *service) DeleteVideo(ctx context.Context, d Drill, videoID string) error {
	v, err := svc.repo.GetVideo(ctx, videoID)
	if err != nil {
		return err
	}
	if v.DrillID != d.ID {
		return ErrVideoNotFound
	}
	return errors.Wrap(svc.repo.DeleteVideo(ctx, v.ID), "deleting video")
}

func (svc *service) Import(ctx context.Context, coachID string, drills []Drill) (int, error) {
	var count int
	err := core.InTx(ctx, svc.db, func(tx core.DBExecutor) error {
		for _, d := range drills {
			now := core.Now()
			d.ID = uuid.New().String()
			d.CoachID = coachID
			d.IsActive = true
			d.CreatedAt = now
			d.UpdatedAt = now
			if _, err := svc.repo.CreateDrill(ctx, d, tx); err != nil {
				return errors.Wrapf(err, "importing drill %q", d.Name)
			}
			for _, v := range d.Videos {
				v.ID = uuid.New().String()
				v.DrillID = d.ID
				v.CreatedAt = now
				if _, err := svc.repo.CreateVideo(ctx, v, tx); err != nil {
					return errors.Wrapf(err, "importing video %q", v.URL)
				}
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

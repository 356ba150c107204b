// Package inmemdb keeps coaches in memory. It backs the coach service tests.
package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
)

type coachRepository struct {
	mu    sync.RWMutex
	table map[string]coach.Coach
}

var _ coach.Repository = (*coachRepository)(nil) // interface compliance check

func NewCoachRepository() *coachRepository {
	return &coachRepository{table: make(map[string]coach.Coach)}
}

func (repo *coachRepository) query() []coach.Coach {
	coaches := make([]coach.Coach, 0, len(repo.table))
	for _, c := range repo.table {
		coaches = append(coaches, c)
	}
	return coaches
}

func (repo *coachRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excluded []coach.Coach, _ ...core.DBExecutor) error {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	username, email = strings.ToLower(username), strings.ToLower(email)
	for _, c := range repo.query() {
		if isExcluded(c, excluded) {
			continue
		}
		if (username != "" && c.Username == username) || (email != "" && c.Email == email) {
			return coach.ErrCoachExists
		}
	}
	return nil
}

func (repo *coachRepository) CreateCoach(_ context.Context, c coach.Coach, _ ...core.DBExecutor) (coach.Coach, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Username, c.Email = strings.ToLower(c.Username), strings.ToLower(c.Email)
	if c.Roles == nil {
		c.Roles = core.StringList{}
	}
	repo.table[c.ID] = c
	return c, nil
}

// QueryCoaches ignores the ordering: coaches come by creation date, then username.
func (repo *coachRepository) QueryCoaches(_ context.Context, filter *coach.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]coach.Coach, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	coaches := make([]coach.Coach, 0, len(repo.table))
	for _, c := range repo.query() {
		if matches(c, filter) {
			coaches = append(coaches, c)
		}
	}
	sort.Slice(coaches, func(i, j int) bool {
		return coaches[i].CreatedAt.Before(coaches[j].CreatedAt) ||
			(coaches[i].CreatedAt.Equal(coaches[j].CreatedAt) && coaches[i].Username < coaches[j].Username)
	})
	return coaches, nil
}

func matches(c coach.Coach, filter *coach.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if s := strings.ToLower(filter.Search); s != "" &&
		!strings.Contains(strings.ToLower(c.Name), s) && !strings.Contains(c.Username, s) && !strings.Contains(c.Email, s) {
		return false
	}
	if len(filter.Roles) > 0 {
		var found bool
		for _, role := range filter.Roles {
			if c.RoleStartsWith(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && c.IsActive != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && c.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && c.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *coachRepository) GetCoach(_ context.Context, filter coach.GetFilter, _ ...core.DBExecutor) (coach.Coach, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if filter.ID != "" {
		if c, ok := repo.table[filter.ID]; ok {
			return c, nil
		}
		return coach.Coach{}, coach.ErrNotFound
	}

	match := func(c coach.Coach) bool { return false }
	switch {
	case filter.Username != "":
		val := strings.ToLower(filter.Username)
		match = func(c coach.Coach) bool { return c.Username == val }
	case filter.Email != "":
		val := strings.ToLower(filter.Email)
		match = func(c coach.Coach) bool { return c.Email == val }
	case filter.UsernameOrEmail != "":
		val := strings.ToLower(filter.UsernameOrEmail)
		match = func(c coach.Coach) bool { return c.Username == val || c.Email == val }
	}
	for _, c := range repo.query() {
		if match(c) {
			return c, nil
		}
	}
	return coach.Coach{}, coach.ErrNotFound
}

func (repo *coachRepository) UpdateCoach(_ context.Context, c coach.Coach, _ ...core.DBExecutor) (coach.Coach, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.table[c.ID]; !ok {
		return coach.Coach{}, coach.ErrNotFound
	}
	c.Username, c.Email = strings.ToLower(c.Username), strings.ToLower(c.Email)
	repo.table[c.ID] = c
	return c, nil
}

func (repo *coachRepository) DeleteCoachesByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.table[id]; ok {
			delete(repo.table, id)
			n++
		}
	}
	return n, nil
}

func isExcluded(c coach.Coach, excluded []coach.Coach) bool {
	for _, e := range excluded {
		if e.ID == c.ID {
			return true
		}
	}
	return false
}

package memory

import (
	"context"
	"sort"
	"time"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

type apiKeys struct{ v view }

func (r apiKeys) Create(_ context.Context, key *models.APIKey) error {
	defer r.v.acquire()()
	d := r.v.s.data
	for _, k := range d.apiKeys {
		if k.KeyHash == key.KeyHash {
			return repository.ErrConflict
		}
	}
	key.ID = d.next("api_keys")
	key.Active = true
	key.UsageCount = 0
	key.LastUsedAt = nil
	key.CreatedAt = r.v.s.now()
	d.apiKeys[key.ID] = *key
	return nil
}

func (r apiKeys) Get(_ context.Context, id int64) (*models.APIKey, error) {
	defer r.v.acquire()()
	k, ok := r.v.s.data.apiKeys[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &k, nil
}

func (r apiKeys) GetByHash(_ context.Context, hash string) (*models.APIKey, error) {
	defer r.v.acquire()()
	for _, k := range r.v.s.data.apiKeys {
		if k.KeyHash == hash {
			return &k, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r apiKeys) List(_ context.Context) ([]models.APIKey, error) {
	defer r.v.acquire()()
	out := make([]models.APIKey, 0, len(r.v.s.data.apiKeys))
	for _, k := range r.v.s.data.apiKeys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r apiKeys) SetActive(_ context.Context, id int64, active bool) (*models.APIKey, error) {
	defer r.v.acquire()()
	k, ok := r.v.s.data.apiKeys[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	k.Active = active
	r.v.s.data.apiKeys[id] = k
	return &k, nil
}

func (r apiKeys) TouchUsage(_ context.Context, id int64, at time.Time) error {
	defer r.v.acquire()()
	k, ok := r.v.s.data.apiKeys[id]
	if !ok {
		return repository.ErrNotFound
	}
	used := at
	k.UsageCount++
	k.LastUsedAt = &used
	r.v.s.data.apiKeys[id] = k
	return nil
}

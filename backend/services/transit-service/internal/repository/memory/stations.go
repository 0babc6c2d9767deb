package memory

import (
	"context"
	"sort"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

type stations struct{ v view }

func (r stations) Create(_ context.Context, station *models.Station) error {
	defer r.v.acquire()()
	d := r.v.s.data
	if nameTaken(d, station.Name, 0) {
		return repository.ErrConflict
	}
	station.ID = d.next("stations")
	station.CreatedAt = r.v.s.now()
	d.stations[station.ID] = *station
	return nil
}

func (r stations) Get(_ context.Context, id int64) (*models.Station, error) {
	defer r.v.acquire()()
	s, ok := r.v.s.data.stations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r stations) List(_ context.Context) ([]models.Station, error) {
	defer r.v.acquire()()
	out := make([]models.Station, 0, len(r.v.s.data.stations))
	for _, s := range r.v.s.data.stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r stations) Rename(_ context.Context, id int64, name string) (*models.Station, error) {
	defer r.v.acquire()()
	d := r.v.s.data
	s, ok := d.stations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if nameTaken(d, name, id) {
		return nil, repository.ErrConflict
	}
	s.Name = name
	d.stations[id] = s
	return &s, nil
}

func (r stations) Delete(_ context.Context, id int64) error {
	defer r.v.acquire()()
	d := r.v.s.data
	if _, ok := d.stations[id]; !ok {
		return repository.ErrNotFound
	}
	if stationReferenced(d, id) {
		return repository.ErrConflict
	}
	delete(d.stations, id)
	return nil
}

func (r stations) IsReferenced(_ context.Context, id int64) (bool, error) {
	defer r.v.acquire()()
	return stationReferenced(r.v.s.data, id), nil
}

func nameTaken(d *dataset, name string, except int64) bool {
	for _, s := range d.stations {
		if s.Name == name && s.ID != except {
			return true
		}
	}
	return false
}

func stationReferenced(d *dataset, id int64) bool {
	for _, p := range d.prices {
		if p.Involves(id) {
			return true
		}
	}
	for _, t := range d.trips {
		if t.SourceStationID == id || (t.DestinationStationID != nil && *t.DestinationStationID == id) {
			return true
		}
	}
	for _, tx := range d.transactions {
		if tx.StationID != nil && *tx.StationID == id {
			return true
		}
	}
	return false
}

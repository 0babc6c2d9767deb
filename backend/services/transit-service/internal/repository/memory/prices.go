package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

type prices struct{ v view }

func (r prices) Create(_ context.Context, price *models.Price) error {
	defer r.v.acquire()()
	d := r.v.s.data
	if _, ok := d.stations[price.StationAID]; !ok {
		return repository.ErrConflict
	}
	if _, ok := d.stations[price.StationBID]; !ok {
		return repository.ErrConflict
	}
	if findPair(d, price.StationAID, price.StationBID) != nil {
		return repository.ErrConflict
	}
	now := r.v.s.now()
	price.ID = d.next("prices")
	price.CreatedAt = now
	price.UpdatedAt = now
	d.prices[price.ID] = *price
	return nil
}

func (r prices) Get(_ context.Context, id int64) (*models.Price, error) {
	defer r.v.acquire()()
	p, ok := r.v.s.data.prices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r prices) GetPair(_ context.Context, a, b int64) (*models.Price, error) {
	defer r.v.acquire()()
	if p := findPair(r.v.s.data, a, b); p != nil {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (r prices) UpdateAmount(_ context.Context, id int64, amount decimal.Decimal) (*models.Price, error) {
	defer r.v.acquire()()
	d := r.v.s.data
	p, ok := d.prices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Amount = amount
	p.UpdatedAt = r.v.s.now()
	d.prices[id] = p
	return &p, nil
}

func (r prices) Delete(_ context.Context, id int64) error {
	defer r.v.acquire()()
	if _, ok := r.v.s.data.prices[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.v.s.data.prices, id)
	return nil
}

func (r prices) List(_ context.Context) ([]models.Price, error) {
	defer r.v.acquire()()
	return r.collect(func(models.Price) bool { return true }), nil
}

func (r prices) ListForStation(_ context.Context, stationID int64) ([]models.Price, error) {
	defer r.v.acquire()()
	return r.collect(func(p models.Price) bool { return p.Involves(stationID) }), nil
}

func (r prices) Minimum(_ context.Context) (decimal.Decimal, error) {
	defer r.v.acquire()()
	var (
		lowest decimal.Decimal
		found  bool
	)
	for _, p := range r.v.s.data.prices {
		if !found || p.Amount.LessThan(lowest) {
			lowest = p.Amount
			found = true
		}
	}
	if !found {
		return decimal.Decimal{}, repository.ErrNotFound
	}
	return lowest, nil
}

func (r prices) collect(keep func(models.Price) bool) []models.Price {
	var out []models.Price
	for _, p := range r.v.s.data.prices {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StationAID != out[j].StationAID {
			return out[i].StationAID < out[j].StationAID
		}
		return out[i].StationBID < out[j].StationBID
	})
	return out
}

func findPair(d *dataset, a, b int64) *models.Price {
	for _, p := range d.prices {
		if p.StationAID == a && p.StationBID == b {
			return &p
		}
	}
	return nil
}

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// Memory is an in-memory store used when no database is configured.
type Memory struct {
	mu          sync.Mutex
	locations   ordered[model.Location]
	industries  ordered[model.Industry]
	cars        ordered[model.RollingStock]
	routes      ordered[model.TrainRoute]
	switchlists ordered[model.Switchlist]
}

// ordered keeps insertion order so snapshots list documents the way they
// were written.
type ordered[T any] struct {
	ids   []model.ID
	items map[model.ID]T
}

func (o *ordered[T]) get(id model.ID) (T, bool) {
	v, ok := o.items[id]
	return v, ok
}

func (o *ordered[T]) put(id model.ID, v T) {
	if o.items == nil {
		o.items = map[model.ID]T{}
	}
	if _, ok := o.items[id]; !ok {
		o.ids = append(o.ids, id)
	}
	o.items[id] = v
}

func (o *ordered[T]) list() []T {
	out := make([]T, 0, len(o.ids))
	for _, id := range o.ids {
		out = append(out, o.items[id])
	}
	return out
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) LoadLocations(ctx context.Context) ([]model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locations.list(), nil
}

func (m *Memory) LoadIndustries(ctx context.Context) ([]model.Industry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.industries.list()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (m *Memory) LoadRollingStock(ctx context.Context) ([]model.RollingStock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.cars.list()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (m *Memory) LoadTrainRoutes(ctx context.Context) ([]model.TrainRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.routes.list()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (m *Memory) LoadTrainRoute(ctx context.Context, id model.ID) (model.TrainRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes.get(id)
	if !ok {
		return model.TrainRoute{}, fmt.Errorf("train route %s: %w", id, ErrNotFound)
	}
	return r.Clone(), nil
}

func (m *Memory) GetLocation(ctx context.Context, id model.ID) (model.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations.get(id)
	if !ok {
		return model.Location{}, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	return l, nil
}

func (m *Memory) GetIndustry(ctx context.Context, id model.ID) (model.Industry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.industries.get(id)
	if !ok {
		return model.Industry{}, fmt.Errorf("industry %s: %w", id, ErrNotFound)
	}
	return i.Clone(), nil
}

func (m *Memory) GetRollingStock(ctx context.Context, id model.ID) (model.RollingStock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cars.get(id)
	if !ok {
		return model.RollingStock{}, fmt.Errorf("rolling stock %s: %w", id, ErrNotFound)
	}
	return c.Clone(), nil
}

func (m *Memory) SaveLocation(ctx context.Context, l model.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations.put(l.ID, l)
	return nil
}

func (m *Memory) SaveIndustry(ctx context.Context, i model.Industry) (model.Industry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i = i.Canonical()
	prev, _ := m.industries.get(i.ID)
	i.Version = prev.Version + 1
	m.industries.put(i.ID, i)
	return i.Clone(), nil
}

func (m *Memory) SaveRollingStock(ctx context.Context, c model.RollingStock) (model.RollingStock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c = c.Canonical()
	prev, _ := m.cars.get(c.ID)
	c.Version = prev.Version + 1
	m.cars.put(c.ID, c)
	return c.Clone(), nil
}

func (m *Memory) SaveTrainRoute(ctx context.Context, r model.TrainRoute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes.put(r.ID, r.Clone())
	return nil
}

func (m *Memory) CreateSwitchlist(ctx context.Context, sl model.Switchlist) (model.Switchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl = sl.Clone()
	if sl.ID == "" {
		sl.ID = model.ID(uuid.New().String())
	}
	if _, dup := m.switchlists.get(sl.ID); dup {
		return model.Switchlist{}, fmt.Errorf("switchlist %s: %w", sl.ID, ErrConflict)
	}
	sl.Version = 1
	m.switchlists.put(sl.ID, sl)
	return sl.Clone(), nil
}

func (m *Memory) GetSwitchlist(ctx context.Context, id model.ID) (model.Switchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl, ok := m.switchlists.get(id)
	if !ok {
		return model.Switchlist{}, fmt.Errorf("switchlist %s: %w", id, ErrNotFound)
	}
	return sl.Clone(), nil
}

func (m *Memory) ListSwitchlists(ctx context.Context) ([]model.Switchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.switchlists.list()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

func (m *Memory) UpdateSwitchlistStatus(ctx context.Context, id model.ID, status model.SwitchlistStatus) (model.Switchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.switchlists.get(id)
	if !ok {
		return model.Switchlist{}, fmt.Errorf("switchlist %s: %w", id, ErrNotFound)
	}
	next, changed, err := advanceStatus(cur, status)
	if err != nil {
		return model.Switchlist{}, err
	}
	if changed {
		next.Version++
		m.switchlists.put(id, next)
	}
	return next.Clone(), nil
}

func (m *Memory) UpdateSwitchlist(ctx context.Context, next model.Switchlist) (model.Switchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.switchlists.get(next.ID)
	if !ok {
		return model.Switchlist{}, fmt.Errorf("switchlist %s: %w", next.ID, ErrNotFound)
	}
	if cur.Version != next.Version {
		return model.Switchlist{}, fmt.Errorf("switchlist %s: %w", next.ID, ErrConflict)
	}
	merged, err := mergeProgress(cur, next)
	if err != nil {
		return model.Switchlist{}, err
	}
	merged.Version = cur.Version + 1
	m.switchlists.put(merged.ID, merged)
	return merged.Clone(), nil
}

func (m *Memory) ApplyMove(ctx context.Context, c MoveCommit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ind := range c.Industries {
		cur, ok := m.industries.get(ind.ID)
		if !ok {
			return fmt.Errorf("industry %s: %w", ind.ID, ErrNotFound)
		}
		if cur.Version != ind.Version {
			return fmt.Errorf("industry %s: %w", ind.ID, ErrConflict)
		}
	}
	for _, car := range c.Cars {
		cur, ok := m.cars.get(car.ID)
		if !ok {
			return fmt.Errorf("rolling stock %s: %w", car.ID, ErrNotFound)
		}
		if cur.Version != car.Version {
			return fmt.Errorf("rolling stock %s: %w", car.ID, ErrConflict)
		}
	}
	for _, ind := range c.Industries {
		ind = ind.Clone()
		ind.Version++
		m.industries.put(ind.ID, ind)
	}
	for _, car := range c.Cars {
		car = car.Clone()
		car.Version++
		m.cars.put(car.ID, car)
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

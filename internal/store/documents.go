package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// Collections in the generic documents table shared by the SQL backends.
const (
	collLocations   = "locations"
	collIndustries  = "industries"
	collCars        = "rolling_stock"
	collRoutes      = "train_routes"
	collSwitchlists = "switchlists"
)

type document struct {
	ID      string
	Version int64
	Body    []byte
}

// backend is the document primitive a SQL engine provides. list returns
// documents in insertion order. insert fails with ErrConflict on a duplicate
// id, swap with ErrConflict when the stored version is not expected.
type backend interface {
	get(ctx context.Context, coll, id string) (document, error)
	list(ctx context.Context, coll string) ([]document, error)
	insert(ctx context.Context, coll, id string, body []byte) error
	upsert(ctx context.Context, coll, id string, body []byte) (int64, error)
	swap(ctx context.Context, coll, id string, expected int64, body []byte) error
	inTx(ctx context.Context, fn func(backend) error) error
}

// docStore implements Store on top of a backend.
type docStore struct {
	b backend
}

func decode[T any](d document) (T, error) {
	var v T
	if err := json.Unmarshal(d.Body, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", d.ID, err)
	}
	return v, nil
}

func listAs[T any](ctx context.Context, b backend, coll string, setVersion func(*T, int64)) ([]T, error) {
	docs, err := b.list(ctx, coll)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := decode[T](d)
		if err != nil {
			return nil, err
		}
		if setVersion != nil {
			setVersion(&v, d.Version)
		}
		out = append(out, v)
	}
	return out, nil
}

func getAs[T any](ctx context.Context, b backend, coll string, id model.ID, setVersion func(*T, int64)) (T, error) {
	d, err := b.get(ctx, coll, string(id))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", coll, id, err)
	}
	v, err := decode[T](d)
	if err != nil {
		return v, err
	}
	if setVersion != nil {
		setVersion(&v, d.Version)
	}
	return v, nil
}

func industryVersion(i *model.Industry, v int64)     { i.Version = v }
func carVersion(c *model.RollingStock, v int64)      { c.Version = v }
func switchlistVersion(s *model.Switchlist, v int64) { s.Version = v }

func (s *docStore) LoadLocations(ctx context.Context) ([]model.Location, error) {
	return listAs[model.Location](ctx, s.b, collLocations, nil)
}

func (s *docStore) LoadIndustries(ctx context.Context) ([]model.Industry, error) {
	return listAs(ctx, s.b, collIndustries, industryVersion)
}

func (s *docStore) LoadRollingStock(ctx context.Context) ([]model.RollingStock, error) {
	return listAs(ctx, s.b, collCars, carVersion)
}

func (s *docStore) LoadTrainRoutes(ctx context.Context) ([]model.TrainRoute, error) {
	return listAs[model.TrainRoute](ctx, s.b, collRoutes, nil)
}

func (s *docStore) LoadTrainRoute(ctx context.Context, id model.ID) (model.TrainRoute, error) {
	return getAs[model.TrainRoute](ctx, s.b, collRoutes, id, nil)
}

func (s *docStore) GetLocation(ctx context.Context, id model.ID) (model.Location, error) {
	return getAs[model.Location](ctx, s.b, collLocations, id, nil)
}

func (s *docStore) GetIndustry(ctx context.Context, id model.ID) (model.Industry, error) {
	return getAs(ctx, s.b, collIndustries, id, industryVersion)
}

func (s *docStore) GetRollingStock(ctx context.Context, id model.ID) (model.RollingStock, error) {
	return getAs(ctx, s.b, collCars, id, carVersion)
}

func (s *docStore) SaveLocation(ctx context.Context, l model.Location) error {
	body, err := json.Marshal(l)
	if err != nil {
		return err
	}
	_, err = s.b.upsert(ctx, collLocations, string(l.ID), body)
	return err
}

func (s *docStore) SaveIndustry(ctx context.Context, i model.Industry) (model.Industry, error) {
	i = i.Canonical()
	body, err := json.Marshal(i)
	if err != nil {
		return model.Industry{}, err
	}
	v, err := s.b.upsert(ctx, collIndustries, string(i.ID), body)
	if err != nil {
		return model.Industry{}, err
	}
	i.Version = v
	return i, nil
}

func (s *docStore) SaveRollingStock(ctx context.Context, c model.RollingStock) (model.RollingStock, error) {
	c = c.Canonical()
	body, err := json.Marshal(c)
	if err != nil {
		return model.RollingStock{}, err
	}
	v, err := s.b.upsert(ctx, collCars, string(c.ID), body)
	if err != nil {
		return model.RollingStock{}, err
	}
	c.Version = v
	return c, nil
}

func (s *docStore) SaveTrainRoute(ctx context.Context, r model.TrainRoute) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.b.upsert(ctx, collRoutes, string(r.ID), body)
	return err
}

func (s *docStore) CreateSwitchlist(ctx context.Context, sl model.Switchlist) (model.Switchlist, error) {
	sl = sl.Clone()
	if sl.ID == "" {
		sl.ID = model.ID(uuid.New().String())
	}
	sl.Version = 1
	body, err := json.Marshal(sl)
	if err != nil {
		return model.Switchlist{}, err
	}
	if err := s.b.insert(ctx, collSwitchlists, string(sl.ID), body); err != nil {
		return model.Switchlist{}, fmt.Errorf("switchlist %s: %w", sl.ID, err)
	}
	return sl, nil
}

func (s *docStore) GetSwitchlist(ctx context.Context, id model.ID) (model.Switchlist, error) {
	return getAs(ctx, s.b, collSwitchlists, id, switchlistVersion)
}

func (s *docStore) ListSwitchlists(ctx context.Context) ([]model.Switchlist, error) {
	return listAs(ctx, s.b, collSwitchlists, switchlistVersion)
}

func (s *docStore) UpdateSwitchlistStatus(ctx context.Context, id model.ID, status model.SwitchlistStatus) (model.Switchlist, error) {
	var out model.Switchlist
	err := s.b.inTx(ctx, func(tx backend) error {
		cur, err := getAs(ctx, tx, collSwitchlists, id, switchlistVersion)
		if err != nil {
			return err
		}
		next, changed, err := advanceStatus(cur, status)
		if err != nil || !changed {
			out = next
			return err
		}
		out, err = swapSwitchlist(ctx, tx, next)
		return err
	})
	return out, err
}

func (s *docStore) UpdateSwitchlist(ctx context.Context, next model.Switchlist) (model.Switchlist, error) {
	var out model.Switchlist
	err := s.b.inTx(ctx, func(tx backend) error {
		cur, err := getAs(ctx, tx, collSwitchlists, next.ID, switchlistVersion)
		if err != nil {
			return err
		}
		if cur.Version != next.Version {
			return fmt.Errorf("switchlist %s: %w", next.ID, ErrConflict)
		}
		merged, err := mergeProgress(cur, next)
		if err != nil {
			return err
		}
		out, err = swapSwitchlist(ctx, tx, merged)
		return err
	})
	return out, err
}

func swapSwitchlist(ctx context.Context, tx backend, sl model.Switchlist) (model.Switchlist, error) {
	expected := sl.Version
	sl.Version++
	body, err := json.Marshal(sl)
	if err != nil {
		return model.Switchlist{}, err
	}
	if err := tx.swap(ctx, collSwitchlists, string(sl.ID), expected, body); err != nil {
		return model.Switchlist{}, fmt.Errorf("switchlist %s: %w", sl.ID, err)
	}
	return sl, nil
}

func (s *docStore) ApplyMove(ctx context.Context, c MoveCommit) error {
	return s.b.inTx(ctx, func(tx backend) error {
		for _, ind := range c.Industries {
			expected := ind.Version
			ind.Version++
			body, err := json.Marshal(ind)
			if err != nil {
				return err
			}
			if err := tx.swap(ctx, collIndustries, string(ind.ID), expected, body); err != nil {
				return fmt.Errorf("industry %s: %w", ind.ID, err)
			}
		}
		for _, car := range c.Cars {
			expected := car.Version
			car.Version++
			body, err := json.Marshal(car)
			if err != nil {
				return err
			}
			if err := tx.swap(ctx, collCars, string(car.ID), expected, body); err != nil {
				return fmt.Errorf("rolling stock %s: %w", car.ID, err)
			}
		}
		return nil
	})
}

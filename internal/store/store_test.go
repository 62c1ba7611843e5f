package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// runStoreSuite exercises the behaviour every backend must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("snapshots keep insertion order", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		seed(t, ctx, s)

		inds, err := s.LoadIndustries(ctx)
		require.NoError(t, err)
		require.Len(t, inds, 2)
		assert.Equal(t, model.ID("yard"), inds[0].ID)
		assert.Equal(t, model.ID("mill"), inds[1].ID)
		assert.Equal(t, int64(1), inds[0].Version)
		assert.Equal(t, []model.ID{"c1"}, inds[0].Tracks[0].PlacedCars)

		cars, err := s.LoadRollingStock(ctx)
		require.NoError(t, err)
		assert.Len(t, cars, 2)

		locs, err := s.LoadLocations(ctx)
		require.NoError(t, err)
		assert.Len(t, locs, 2)

		routes, err := s.LoadTrainRoutes(ctx)
		require.NoError(t, err)
		assert.Len(t, routes, 1)
	})

	t.Run("missing documents", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		_, err := s.LoadTrainRoute(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetIndustry(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetRollingStock(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetLocation(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetSwitchlist(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("saves bump versions", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		seed(t, ctx, s)

		ind, err := s.GetIndustry(ctx, "mill")
		require.NoError(t, err)
		ind.Name = "Flour Mill"
		saved, err := s.SaveIndustry(ctx, ind)
		require.NoError(t, err)
		assert.Equal(t, int64(2), saved.Version)

		got, err := s.GetIndustry(ctx, "mill")
		require.NoError(t, err)
		assert.Equal(t, "Flour Mill", got.Name)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("saves store car types canonically", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		ind, err := s.SaveIndustry(ctx, model.Industry{ID: "dock", LocationID: "sea", Tracks: []model.Track{
			{ID: "d1", MaxCars: 1, AcceptedCarTypes: []string{" xm", "*"}},
		}})
		require.NoError(t, err)
		assert.Equal(t, []string{"XM", "*"}, ind.Tracks[0].AcceptedCarTypes)
		car, err := s.SaveRollingStock(ctx, model.RollingStock{ID: "b1", AARType: "fc "})
		require.NoError(t, err)
		assert.Equal(t, "FC", car.AARType)

		got, err := s.GetIndustry(ctx, "dock")
		require.NoError(t, err)
		assert.Equal(t, []string{"XM", "*"}, got.Tracks[0].AcceptedCarTypes)
		gotCar, err := s.GetRollingStock(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "FC", gotCar.AARType)
	})

	t.Run("switchlist lifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		created, err := s.CreateSwitchlist(ctx, model.Switchlist{
			TrainRouteID: "r1", Name: "Morning", Status: model.StatusCreated, CreatedAt: now, UpdatedAt: now,
			Operations: []model.Operation{
				{CarID: "c1", Source: yardRef, Destination: millRef, Status: model.OperationPending},
				{CarID: "c2", Source: yardRef, Destination: millRef, Status: model.OperationPending},
			},
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, int64(1), created.Version)

		all, err := s.ListSwitchlists(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, created.ID, all[0].ID)

		next := created.Clone()
		next.Status = model.StatusInProgress
		next.Operations[0].Status = model.OperationExecuted
		next.Operations[0].ExecutedAt = &now
		updated, err := s.UpdateSwitchlist(ctx, next)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)
		assert.Equal(t, model.OperationExecuted, updated.Operations[0].Status)

		// stale version
		_, err = s.UpdateSwitchlist(ctx, next)
		assert.ErrorIs(t, err, ErrConflict)

		// operations cannot be rewritten
		bad := updated.Clone()
		bad.Operations[0].Destination = yardRef
		_, err = s.UpdateSwitchlist(ctx, bad)
		assert.ErrorIs(t, err, ErrImmutable)

		_, err = s.UpdateSwitchlistStatus(ctx, created.ID, model.StatusCreated)
		assert.ErrorIs(t, err, ErrBadTransition)
		_, err = s.UpdateSwitchlistStatus(ctx, created.ID, "PARKED")
		assert.ErrorIs(t, err, ErrBadTransition)
		_, err = s.UpdateSwitchlistStatus(ctx, created.ID, model.StatusCompleted)
		assert.ErrorIs(t, err, ErrIncomplete)
		same, err := s.UpdateSwitchlistStatus(ctx, created.ID, model.StatusInProgress)
		require.NoError(t, err)
		assert.Equal(t, int64(2), same.Version, "same status writes nothing")

		fin := updated.Clone()
		fin.Operations[1].Status = model.OperationExecuted
		_, err = s.UpdateSwitchlist(ctx, fin)
		require.NoError(t, err)
		done, err := s.UpdateSwitchlistStatus(ctx, created.ID, model.StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, done.Status)
		assert.Equal(t, int64(4), done.Version)

		got, err := s.GetSwitchlist(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, got.Status)
		assert.Equal(t, "Morning", got.Name)
		require.NotNil(t, got.Operations[0].ExecutedAt)
		assert.True(t, now.Equal(*got.Operations[0].ExecutedAt))
	})

	t.Run("apply move is compare and swap", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		seed(t, ctx, s)

		yard, _ := s.GetIndustry(ctx, "yard")
		mill, _ := s.GetIndustry(ctx, "mill")
		car, _ := s.GetRollingStock(ctx, "c1")

		yard.Tracks[0].PlacedCars = nil
		mill.Tracks[0].PlacedCars = []model.ID{"c1"}
		car.CurrentLocation = &millRef
		require.NoError(t, s.ApplyMove(ctx, MoveCommit{Industries: []model.Industry{yard, mill}, Cars: []model.RollingStock{car}}))

		gotMill, _ := s.GetIndustry(ctx, "mill")
		assert.Equal(t, []model.ID{"c1"}, gotMill.Tracks[0].PlacedCars)
		assert.Equal(t, int64(2), gotMill.Version)
		gotCar, _ := s.GetRollingStock(ctx, "c1")
		require.NotNil(t, gotCar.CurrentLocation)
		assert.Equal(t, millRef, *gotCar.CurrentLocation)

		// Replaying the same commit is stale and changes nothing.
		yard.Tracks[0].PlacedCars = []model.ID{"c9"}
		err := s.ApplyMove(ctx, MoveCommit{Industries: []model.Industry{yard, mill}, Cars: []model.RollingStock{car}})
		assert.ErrorIs(t, err, ErrConflict)
		gotYard, _ := s.GetIndustry(ctx, "yard")
		assert.Empty(t, gotYard.Tracks[0].PlacedCars)
	})
}

var (
	yardRef = model.TrackRef{IndustryID: "yard", TrackID: "y1"}
	millRef = model.TrackRef{IndustryID: "mill", TrackID: "m1"}
)

func seed(t *testing.T, ctx context.Context, s Store) {
	t.Helper()
	require.NoError(t, s.SaveLocation(ctx, model.Location{ID: "echo", StationName: "Echo Lake", LocationType: model.LocationOnLayout}))
	require.NoError(t, s.SaveLocation(ctx, model.Location{ID: "sea", StationName: "Seattle", LocationType: model.LocationOnLayout}))
	_, err := s.SaveIndustry(ctx, model.Industry{ID: "yard", Name: "Echo Yard", IndustryType: model.IndustryYard, LocationID: "echo",
		Tracks: []model.Track{{ID: "y1", MaxCars: 4, AcceptedCarTypes: []string{"*"}, PlacedCars: []model.ID{"c1"}}}})
	require.NoError(t, err)
	_, err = s.SaveIndustry(ctx, model.Industry{ID: "mill", Name: "Mill", IndustryType: model.IndustryFreight, LocationID: "sea",
		Tracks: []model.Track{{ID: "m1", MaxCars: 2, AcceptedCarTypes: []string{"XM"}}}})
	require.NoError(t, err)
	_, err = s.SaveRollingStock(ctx, model.RollingStock{ID: "c1", RoadName: "ATSF", RoadNumber: "100", AARType: "XM",
		CurrentLocation: &yardRef, Destination: &millRef})
	require.NoError(t, err)
	_, err = s.SaveRollingStock(ctx, model.RollingStock{ID: "c2", RoadName: "UP", RoadNumber: "7", AARType: "T"})
	require.NoError(t, err)
	require.NoError(t, s.SaveTrainRoute(ctx, model.TrainRoute{ID: "r1", Name: "Turn", OriginatingYardID: "yard",
		TerminatingYardID: "yard", Stations: []model.ID{"sea"}}))
}

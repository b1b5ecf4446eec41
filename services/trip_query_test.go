package services_test

import (
	"context"
	"testing"

	"github.com/kendall-kelly/rto-dispatch-api/models"
	"github.com/kendall-kelly/rto-dispatch-api/services"
	"github.com/kendall-kelly/rto-dispatch-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripQuery_ListScopesByRole(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	d1 := testutil.SeedProfile(t, f.db, "user_d1", models.RoleDriver, "Koramangala")
	d2 := testutil.SeedProfile(t, f.db, "user_d2", models.RoleDriver, "Whitefield")
	rto := testutil.SeedProfile(t, f.db, "user_rto", models.RoleRTO, "Koramangala")

	t1, err := f.dispatcher.Dispatch(ctx, callerFor(d1), validRequest())
	require.NoError(t, err)
	t2, err := f.dispatcher.Dispatch(ctx, callerFor(d1), validRequest())
	require.NoError(t, err)
	_, err = f.dispatcher.Dispatch(ctx, callerFor(d2), validRequest())
	require.NoError(t, err)

	mine, err := f.query.List(ctx, callerFor(d1), nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{t1.ID, t2.ID}, tripIDs(mine))

	station, err := f.query.List(ctx, callerFor(rto), nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{t1.ID, t2.ID}, tripIDs(station), "RTO sees only its own station")
}

func TestTripQuery_ListStatusFilter(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	driver := testutil.SeedProfile(t, f.db, "user_d1", models.RoleDriver, "Koramangala")
	rto := testutil.SeedProfile(t, f.db, "user_rto", models.RoleRTO, "Koramangala")

	approved, err := f.dispatcher.Dispatch(ctx, callerFor(driver), validRequest())
	require.NoError(t, err)
	pending, err := f.dispatcher.Dispatch(ctx, callerFor(driver), validRequest())
	require.NoError(t, err)
	_, err = f.lifecycle.Transition(ctx, callerFor(rto), approved.ID, models.StatusApproved)
	require.NoError(t, err)

	status := models.StatusPending
	trips, err := f.query.List(ctx, callerFor(rto), &status)
	require.NoError(t, err)
	assert.Equal(t, []string{pending.ID}, tripIDs(trips))
}

func TestTripQuery_Get(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	driver := testutil.SeedProfile(t, f.db, "user_d1", models.RoleDriver, "Koramangala")
	rto := testutil.SeedProfile(t, f.db, "user_rto", models.RoleRTO, "Koramangala")
	otherRTO := testutil.SeedProfile(t, f.db, "user_rto2", models.RoleRTO, "Whitefield")
	otherDriver := testutil.SeedProfile(t, f.db, "user_d2", models.RoleDriver, "Koramangala")

	trip, err := f.dispatcher.Dispatch(ctx, callerFor(driver), validRequest())
	require.NoError(t, err)

	view, err := f.query.Get(ctx, callerFor(rto), trip.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Driver)
	assert.Equal(t, driver.ExternalID, view.Driver.ExternalID)

	view, err = f.query.Get(ctx, callerFor(driver), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.ID, view.ID)

	_, err = f.query.Get(ctx, callerFor(otherRTO), trip.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = f.query.Get(ctx, callerFor(otherDriver), trip.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestTripQuery_OrphanedTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	driver := testutil.SeedProfile(t, f.db, "user_d1", models.RoleDriver, "Koramangala")
	rto := testutil.SeedProfile(t, f.db, "user_rto", models.RoleRTO, "Koramangala")

	trip, err := f.dispatcher.Dispatch(ctx, callerFor(driver), validRequest())
	require.NoError(t, err)
	deleted, err := f.profiles.DeleteByExternalID(ctx, driver.ExternalID)
	require.NoError(t, err)
	require.True(t, deleted)

	view, err := f.query.Get(ctx, callerFor(rto), trip.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Driver)
	assert.Equal(t, driver.ID, view.DriverID)

	trips, err := f.query.List(ctx, callerFor(rto), nil)
	require.NoError(t, err)
	assert.Len(t, trips, 1, "Orphaned trips stay visible to the station")
}

func tripIDs(trips []models.Trip) []string {
	ids := make([]string, 0, len(trips))
	for _, trip := range trips {
		ids = append(ids, trip.ID)
	}
	return ids
}

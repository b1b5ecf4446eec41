package services_test

import (
	"encoding/json"
	"testing"

	"github.com/kendall-kelly/rto-dispatch-api/config"
	"github.com/kendall-kelly/rto-dispatch-api/models"
	"github.com/kendall-kelly/rto-dispatch-api/services"
	"github.com/kendall-kelly/rto-dispatch-api/tests/testutil"
	"gorm.io/gorm"
)

type fixture struct {
	conn       *config.Connector
	db         *gorm.DB
	profiles   *services.ProfileStore
	trips      *services.TripStore
	resolver   *services.ProfileResolver
	dispatcher *services.Dispatcher
	lifecycle  *services.LifecycleController
	query      *services.TripQuery
}

func newFixture(t *testing.T, userInfo services.UserInfoFetcher) *fixture {
	t.Helper()

	conn, db := testutil.NewTestConnector(t)
	return newFixtureOn(conn, db, userInfo)
}

func newFixtureOn(conn *config.Connector, db *gorm.DB, userInfo services.UserInfoFetcher) *fixture {
	profiles := services.NewProfileStore(conn)
	trips := services.NewTripStore(conn)
	resolver := services.NewProfileResolver(profiles, userInfo, nil)
	return &fixture{
		conn:       conn,
		db:         db,
		profiles:   profiles,
		trips:      trips,
		resolver:   resolver,
		dispatcher: services.NewDispatcher(resolver, trips, nil),
		lifecycle:  services.NewLifecycleController(resolver, trips, nil),
		query:      services.NewTripQuery(resolver, profiles, trips),
	}
}

// callerFor returns a caller whose profile already exists
func callerFor(p models.Profile) services.Caller {
	return services.Caller{ExternalID: p.ExternalID}
}

func validRequest() []byte {
	return requestBody(services.TripRequest{
		StartLocation: "12.9352,77.6245",
		EndLocation:   "St. John's Hospital",
		CriticalLevel: "high",
	})
}

func requestBody(req services.TripRequest) []byte {
	body, _ := json.Marshal(req)
	return body
}

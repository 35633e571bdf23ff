package service

import (
	"context"
	"sync"

	"github.com/langchou/evroute/internal/models"
)

type fakeTripGateway struct {
	body  []byte
	err   error
	calls int
}

func (f *fakeTripGateway) PlanTrip(context.Context, string, models.TripRequest) ([]byte, error) {
	f.calls++
	return f.body, f.err
}

type fakeStationGateway struct {
	body []byte
	err  error
}

func (f *fakeStationGateway) NearbyStations(context.Context, string, float64, float64, float64) ([]byte, error) {
	return f.body, f.err
}

type sentMessage struct {
	UserID string
	Type   string
	Data   any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) SendToUser(userID, msgType string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{UserID: userID, Type: msgType, Data: data})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Type)
	}
	return out
}

func validTrip() models.TripRequest {
	trip := models.DefaultTripRequest()
	trip.Origin = "37.7749,-122.4194"
	trip.Destination = "37.3382,-121.8863"
	return trip
}

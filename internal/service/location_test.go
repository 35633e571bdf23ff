package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/apperr"
	"github.com/langchou/evroute/internal/models"
)

type fakeGeocoder struct {
	results []models.LocationSuggestion
	addr    *models.Address
	err     error
}

func (f *fakeGeocoder) Search(context.Context, string) ([]models.LocationSuggestion, error) {
	return f.results, f.err
}

func (f *fakeGeocoder) ReverseGeocode(context.Context, float64, float64) (*models.Address, error) {
	return f.addr, f.err
}

func TestLocationService_SuggestFallsBack(t *testing.T) {
	svc := NewLocationService(zap.NewNop(), &fakeGeocoder{err: errors.New("boom")})

	got, err := svc.Suggest(context.Background(), "  Mumbai ")
	require.NoError(t, err)
	assert.Equal(t, models.FallbackSuggestions("Mumbai"), got)
}

func TestLocationService_Reverse(t *testing.T) {
	addr := &models.Address{FormattedAddress: "Mumbai, India"}
	svc := NewLocationService(zap.NewNop(), &fakeGeocoder{addr: addr})

	got, err := svc.Reverse(context.Background(), 19.07, 72.87)
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	_, err = svc.Reverse(context.Background(), 100, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	failing := NewLocationService(zap.NewNop(), &fakeGeocoder{err: errors.New("down")})
	_, err = failing.Reverse(context.Background(), 1, 1)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}

func TestLocationService_Validate(t *testing.T) {
	svc := NewLocationService(zap.NewNop(), &fakeGeocoder{})

	check := svc.Validate("19.0760, 72.8777")
	assert.True(t, check.Valid)
	require.NotNil(t, check.Coordinates)
	assert.Equal(t, models.Location{Lat: 19.076, Lng: 72.8777}, *check.Coordinates)

	check = svc.Validate("Pune, India")
	assert.True(t, check.Valid)
	assert.Nil(t, check.Coordinates)

	for _, bad := range []string{"", "a", "Zürich!", "  "} {
		check = svc.Validate(bad)
		assert.False(t, check.Valid, bad)
		assert.Equal(t, "Please enter a valid location", check.Message)
	}
}

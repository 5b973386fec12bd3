package geocoding

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casualty-dispatch/internal/models"
)

// stubGeocoder resolves addresses from a fixed map
type stubGeocoder struct {
	known map[string]Result
	calls []string
}

func (s *stubGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	s.calls = append(s.calls, address)
	if r, ok := s.known[address]; ok {
		return &r, nil
	}
	return nil, &ErrGeocodingFailed{Address: address, Reason: "no results found"}
}

func (s *stubGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Geocode(ctx, address)
}

func TestReadAddressList(t *testing.T) {
	input := "  First Hospital \n\n\t\nSecond Hospital\r\nThird Hospital"

	addresses, err := ReadAddressList(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"First Hospital", "Second Hospital", "Third Hospital"}, addresses)
}

func TestBuildAddressTableKeepsFailures(t *testing.T) {
	g := &stubGeocoder{known: map[string]Result{
		"A": {Lat: 39.9, Lng: 116.4},
		"C": {Lat: 31.2, Lng: 121.5},
	}}

	entries, err := BuildAddressTable(context.Background(), g, []string{"A", "B", "C"}, 3, nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{Address: "A", Lat: 39.9, Lng: 116.4, Found: true}, entries[0])
	assert.Equal(t, Entry{Address: "B"}, entries[1])
	assert.True(t, entries[2].Found)
	assert.Equal(t, []string{"A", "B", "C"}, g.calls)
}

func TestBuildAddressTableStopsOnCancel(t *testing.T) {
	g := &stubGeocoder{known: map[string]Result{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, err := BuildAddressTable(ctx, g, []string{"A", "B"}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, entries)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTable(&buf, []Entry{
		{Address: "A", Lat: 39.9042, Lng: 116.4074, Found: true},
		{Address: "B, with comma"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Address,Latitude,Longitude\nA,39.9042,116.4074\n\"B, with comma\",,\n", buf.String())
}

func TestLoadTableRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, []Entry{
		{Address: "A", Lat: 39.9042, Lng: 116.4074, Found: true},
		{Address: "B"},
	}))

	table, err := LoadTable(&buf)
	require.NoError(t, err)

	assert.Equal(t, map[string]models.Location{"A": {X: 116.4074, Y: 39.9042}}, table)
}

func TestLoadTableErrors(t *testing.T) {
	_, err := LoadTable(strings.NewReader("Name,Lat,Lng\nA,1,2\n"))
	assert.Error(t, err)

	_, err = LoadTable(strings.NewReader("Address,Latitude,Longitude\nA,north,2\n"))
	assert.Error(t, err)

	_, err = LoadTable(strings.NewReader("Address,Latitude,Longitude\nA,1\n"))
	assert.Error(t, err)

	table, err := LoadTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table)
}

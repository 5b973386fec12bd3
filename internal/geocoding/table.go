package geocoding

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"casualty-dispatch/internal/models"
)

var tableHeader = []string{"Address", "Latitude", "Longitude"}

// Entry is one row of an address table. Found is false when the lookup failed.
type Entry struct {
	Address string
	Lat     float64
	Lng     float64
	Found   bool
}

// ReadAddressList reads one address per line, trimming whitespace and
// skipping blank lines
func ReadAddressList(r io.Reader) ([]string, error) {
	var addresses []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read address list: %w", err)
	}
	return addresses, nil
}

// BuildAddressTable geocodes every address in order. A failed lookup yields
// an entry with Found false; only context cancellation stops the run.
func BuildAddressTable(ctx context.Context, g Geocoder, addresses []string, maxRetries int, logger *zap.Logger) ([]Entry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries := make([]Entry, 0, len(addresses))
	for i, address := range addresses {
		result, err := g.GeocodeWithRetry(ctx, address, maxRetries)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return entries, ctxErr
			}
			logger.Warn("address not resolved", zap.Int("index", i), zap.String("address", address), zap.Error(err))
			entries = append(entries, Entry{Address: address})
			continue
		}

		logger.Info("address resolved",
			zap.Int("index", i),
			zap.String("address", address),
			zap.Float64("lat", result.Lat),
			zap.Float64("lng", result.Lng),
		)
		entries = append(entries, Entry{Address: address, Lat: result.Lat, Lng: result.Lng, Found: true})
	}
	return entries, nil
}

// WriteTable writes entries as CSV with an Address,Latitude,Longitude header.
// Unresolved entries have empty coordinate cells.
func WriteTable(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, e := range entries {
		row := []string{e.Address, "", ""}
		if e.Found {
			row[1] = strconv.FormatFloat(e.Lat, 'f', -1, 64)
			row[2] = strconv.FormatFloat(e.Lng, 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %q: %w", e.Address, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// LoadTable reads a table written by WriteTable into planar locations
// (X = longitude, Y = latitude). Rows without coordinates are skipped.
func LoadTable(r io.Reader) (map[string]models.Location, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(tableHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return map[string]models.Location{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, name := range tableHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), name) {
			return nil, fmt.Errorf("unexpected column %d %q, want %q", i+1, header[i], name)
		}
	}

	table := make(map[string]models.Location)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		address := strings.TrimSpace(row[0])
		latCell, lngCell := strings.TrimSpace(row[1]), strings.TrimSpace(row[2])
		if address == "" || latCell == "" || lngCell == "" {
			continue
		}

		lat, err := strconv.ParseFloat(latCell, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude for %q: %w", address, err)
		}
		lng, err := strconv.ParseFloat(lngCell, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude for %q: %w", address, err)
		}
		table[address] = models.Location{X: lng, Y: lat}
	}
	return table, nil
}

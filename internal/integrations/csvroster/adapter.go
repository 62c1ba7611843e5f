// Package csvroster reads rolling stock rosters from CSV files with a
// header row. Column names are matched loosely so exports from common
// layout tools load without editing.
package csvroster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// Adapter reads a roster from Path.
type Adapter struct {
	Path string
}

func (a Adapter) Name() string { return "csv-roster" }

func (a Adapter) FetchRoster(ctx context.Context) ([]model.RollingStock, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cars, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Path, err)
	}
	return cars, nil
}

type column int

const (
	colID column = iota
	colRoad
	colNumber
	colType
	colColor
	colDescription
	colNote
	colHomeYard
	colDestination
)

var headerAliases = map[string]column{
	"id":          colID,
	"carid":       colID,
	"road":        colRoad,
	"roadname":    colRoad,
	"number":      colNumber,
	"roadnumber":  colNumber,
	"type":        colType,
	"aartype":     colType,
	"aar":         colType,
	"color":       colColor,
	"colour":      colColor,
	"description": colDescription,
	"comment":     colNote,
	"note":        colNote,
	"homeyard":    colHomeYard,
	"home":        colHomeYard,
	"destination": colDestination,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// Parse reads the header row, then one car per row. A missing id column
// derives ids from road and number ("ATSF", "1201" -> "atsf-1201").
// Destinations are written industry/track.
func Parse(r io.Reader) ([]model.RollingStock, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty roster")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[column]int{}
	for i, h := range header {
		if c, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	_, hasID := cols[colID]
	_, hasRoad := cols[colRoad]
	_, hasNumber := cols[colNumber]
	if !hasID && !(hasRoad && hasNumber) {
		return nil, errors.New("roster needs an id column or road and number columns")
	}

	var out []model.RollingStock
	seen := map[model.ID]int{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(c column) string {
			i, ok := cols[c]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if strings.Join(rec, "") == "" {
			continue
		}
		car := model.RollingStock{
			ID:          model.ID(get(colID)),
			RoadName:    get(colRoad),
			RoadNumber:  get(colNumber),
			AARType:     model.CanonicalCarType(get(colType)),
			Color:       get(colColor),
			Description: get(colDescription),
			Note:        get(colNote),
			HomeYard:    model.ID(get(colHomeYard)),
		}
		if car.ID == "" {
			if car.RoadName == "" || car.RoadNumber == "" {
				return nil, fmt.Errorf("line %d: missing id", line)
			}
			car.ID = model.ID(strings.ToLower(car.RoadName) + "-" + car.RoadNumber)
		}
		if d := get(colDestination); d != "" {
			ind, track, ok := strings.Cut(d, "/")
			if !ok || ind == "" || track == "" {
				return nil, fmt.Errorf("line %d: destination %q, want industry/track", line, d)
			}
			car.Destination = &model.TrackRef{IndustryID: model.ID(ind), TrackID: model.ID(track)}
		}
		if prev, dup := seen[car.ID]; dup {
			return nil, fmt.Errorf("line %d: car %s already listed on line %d", line, car.ID, prev)
		}
		seen[car.ID] = line
		out = append(out, car)
	}
	return out, nil
}

package ingest

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/transitproc/gtfsproc/model"
)

type routeCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Desc      string `csv:"route_desc"`
	Type      string `csv:"route_type"`
	URL       string `csv:"route_url"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
}

func legalRouteType(t model.RouteType) bool {
	if t >= 0 && t <= 7 {
		return true
	}
	return t >= 11 && t <= 12
}

func validRouteColor(color string) bool {
	if len(color) != 6 {
		return false
	}
	_, err := hex.DecodeString(color)
	return err == nil
}

// parseRoutes reads routes.txt, appends each row to feed.Routes, and
// returns the set of known route ids for cross-checking by
// parseTrips. A malformed row (duplicate route_id, unknown or missing
// agency_id, missing name columns, invalid route_type) is logged and
// skipped rather than aborting the whole load.
func parseRoutes(log *slog.Logger, feed *RawFeed, r io.Reader, agency map[string]bool) (map[string]bool, error) {
	var rows []routeCSV
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling routes: %w", err)
	}

	routes := map[string]bool{}
	for _, row := range rows {
		if row.ID == "" {
			log.Warn("skipping route with no route_id")
			continue
		}
		if routes[row.ID] {
			log.Warn("skipping route with duplicate route_id", "route_id", row.ID)
			continue
		}
		if len(agency) > 1 && row.AgencyID == "" {
			log.Warn("skipping route with no agency_id in a multi-agency feed", "route_id", row.ID)
			continue
		}
		if row.AgencyID != "" && !agency[row.AgencyID] {
			log.Warn("skipping route referencing unknown agency_id", "route_id", row.ID, "agency_id", row.AgencyID)
			continue
		}
		if row.ShortName == "" && row.LongName == "" {
			log.Warn("skipping route with no short_name or long_name", "route_id", row.ID)
			continue
		}
		if row.Type == "" {
			log.Warn("skipping route with no route_type", "route_id", row.ID)
			continue
		}

		routeType, err := strconv.Atoi(row.Type)
		if err != nil || !legalRouteType(model.RouteType(routeType)) {
			log.Warn("skipping route with invalid route_type", "route_id", row.ID, "route_type", row.Type)
			continue
		}
		routes[row.ID] = true

		if row.Color == "" {
			row.Color = "FFFFFF"
		} else if !validRouteColor(row.Color) {
			log.Warn("invalid route_color, using default", "route_id", row.ID, "route_color", row.Color)
			row.Color = "FFFFFF"
		}
		if row.TextColor == "" {
			row.TextColor = "000000"
		} else if !validRouteColor(row.TextColor) {
			log.Warn("invalid route_text_color, using default", "route_id", row.ID, "route_text_color", row.TextColor)
			row.TextColor = "000000"
		}

		feed.Routes = append(feed.Routes, model.Route{
			ID:        row.ID,
			AgencyID:  row.AgencyID,
			ShortName: row.ShortName,
			LongName:  row.LongName,
			Desc:      row.Desc,
			Type:      model.RouteType(routeType),
			URL:       row.URL,
			Color:     row.Color,
			TextColor: row.TextColor,
		})
	}
	return routes, nil
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"concierge/cache"
	"concierge/metrics"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	GeocodeTTL = 15 * time.Minute
	RouteTTL   = 10 * time.Minute

	lookupTimeout = 8 * time.Second
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p LatLng) String() string {
	return fmt.Sprintf("%.5f,%.5f", p.Lat, p.Lng)
}

type GeocodeResult struct {
	Query     string `json:"query"`
	Formatted string `json:"formatted"`
	Location  LatLng `json:"location"`
}

type TravelMode string

const (
	ModeDriving TravelMode = "driving"
	ModeWalking TravelMode = "walking"
	ModeTransit TravelMode = "transit"
)

var TravelModes = []TravelMode{ModeDriving, ModeWalking, ModeTransit}

type ModeRoute struct {
	Mode           TravelMode    `json:"mode"`
	DistanceMeters int           `json:"distance_meters"`
	DistanceText   string        `json:"distance_text"`
	Duration       time.Duration `json:"duration"`
}

// RouteInfo holds every mode that answered, in TravelModes order.
type RouteInfo struct {
	Modes   []ModeRoute `json:"modes"`
	Primary ModeRoute   `json:"primary"`
}

// GeoClient wraps the Google Geocoding and Directions APIs. Lookups return
// nil on any failure.
type GeoClient struct {
	APIKey  string
	BaseURL string // e.g. https://maps.googleapis.com/maps/api
	HTTP    *http.Client
	Cache   cache.Store
	Limiter *rate.Limiter
}

func NewGeoClient(apiKey, baseURL string, store cache.Store) *GeoClient {
	return &GeoClient{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: lookupTimeout},
		Cache:   store,
		Limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
}

func (g *GeoClient) Enabled() bool {
	return g != nil && g.APIKey != ""
}

// GeocodePlace resolves a free-text place name.
func (g *GeoClient) GeocodePlace(ctx context.Context, place string) *GeocodeResult {
	place = strings.TrimSpace(place)
	if !g.Enabled() || place == "" {
		return nil
	}
	key := "geo:" + strings.ToLower(place)

	var cached GeocodeResult
	if ok, _ := cache.GetJSON(ctx, g.Cache, key, &cached); ok {
		metrics.Lookups.WithLabelValues("geocode", "hit").Inc()
		return &cached
	}

	var resp struct {
		Status  string `json:"status"`
		Results []struct {
			FormattedAddress string `json:"formatted_address"`
			Geometry         struct {
				Location LatLng `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	q := url.Values{}
	q.Set("address", place)
	if err := g.get(ctx, "/geocode/json", q, &resp); err != nil {
		metrics.Lookups.WithLabelValues("geocode", "error").Inc()
		log.Printf("geo: geocode %q: %v", place, err)
		return nil
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		metrics.Lookups.WithLabelValues("geocode", "error").Inc()
		log.Printf("geo: geocode %q: status=%s", place, resp.Status)
		return nil
	}
	metrics.Lookups.WithLabelValues("geocode", "miss").Inc()

	out := GeocodeResult{
		Query:     place,
		Formatted: resp.Results[0].FormattedAddress,
		Location:  resp.Results[0].Geometry.Location,
	}
	if err := cache.SetJSON(ctx, g.Cache, key, out, GeocodeTTL); err != nil {
		log.Printf("geo: cache set: %v", err)
	}
	return &out
}

// GetRouteInfo asks for every travel mode in parallel. Failed modes are
// dropped; nil means none answered.
func (g *GeoClient) GetRouteInfo(ctx context.Context, origin, dest LatLng) *RouteInfo {
	if !g.Enabled() {
		return nil
	}
	key := "route:" + origin.String() + ":" + dest.String()

	var cached RouteInfo
	if ok, _ := cache.GetJSON(ctx, g.Cache, key, &cached); ok {
		metrics.Lookups.WithLabelValues("route", "hit").Inc()
		return &cached
	}

	results := make([]*ModeRoute, len(TravelModes))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, mode := range TravelModes {
		i, mode := i, mode
		eg.Go(func() error {
			r, err := g.routeFor(egCtx, origin, dest, mode)
			if err != nil {
				log.Printf("geo: route %s: %v", mode, err)
				return nil
			}
			results[i] = r
			return nil
		})
	}
	_ = eg.Wait()

	var info RouteInfo
	for _, r := range results {
		if r != nil {
			info.Modes = append(info.Modes, *r)
		}
	}
	if len(info.Modes) == 0 {
		metrics.Lookups.WithLabelValues("route", "error").Inc()
		return nil
	}
	metrics.Lookups.WithLabelValues("route", "miss").Inc()

	info.Primary = info.Modes[0]
	for _, m := range info.Modes {
		if m.Mode == ModeDriving {
			info.Primary = m
			break
		}
	}
	if err := cache.SetJSON(ctx, g.Cache, key, info, RouteTTL); err != nil {
		log.Printf("geo: cache set: %v", err)
	}
	return &info
}

func (g *GeoClient) routeFor(ctx context.Context, origin, dest LatLng, mode TravelMode) (*ModeRoute, error) {
	var resp struct {
		Status string `json:"status"`
		Routes []struct {
			Legs []struct {
				Distance struct {
					Value int    `json:"value"`
					Text  string `json:"text"`
				} `json:"distance"`
				Duration struct {
					Value int `json:"value"`
				} `json:"duration"`
			} `json:"legs"`
		} `json:"routes"`
	}
	q := url.Values{}
	q.Set("origin", origin.String())
	q.Set("destination", dest.String())
	q.Set("mode", string(mode))
	if mode == ModeTransit {
		q.Set("departure_time", "now")
	}
	if err := g.get(ctx, "/directions/json", q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" || len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, fmt.Errorf("no route (status=%s)", resp.Status)
	}
	leg := resp.Routes[0].Legs[0]
	return &ModeRoute{
		Mode:           mode,
		DistanceMeters: leg.Distance.Value,
		DistanceText:   leg.Distance.Text,
		Duration:       time.Duration(leg.Duration.Value) * time.Second,
	}, nil
}

func (g *GeoClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	q.Set("key", g.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := g.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("maps api status=%d body=%s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Package launcher opens maps, share sheets and links through per-platform
// adapters.
package launcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wanderlens/arsync/internal/geo"
	"github.com/wanderlens/arsync/pkg/core"
)

// Supported platform names.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWeb     = "web"
)

// MapRequest is what the host map app is asked to show.
type MapRequest struct {
	Lat     float64
	Lon     float64
	Label   string
	Address string
	PlaceID string
}

// MapRequestFor builds a request from a marker descriptor.
func MapRequestFor(d core.MarkerDescriptor) (MapRequest, bool) {
	if d.Map == nil {
		return MapRequest{}, false
	}
	addr := d.Map.Address
	if addr == "" {
		addr = d.Address
	}
	return MapRequest{
		Lat:     d.Map.Lat,
		Lon:     d.Map.Lon,
		Label:   d.Title,
		Address: addr,
		PlaceID: d.Map.PlaceID,
	}, true
}

// Launcher is the platform side of user actions.
type Launcher interface {
	OpenMap(ctx context.Context, req MapRequest) error
	Share(ctx context.Context, text string) error
	OpenURL(ctx context.Context, rawURL string) error
}

// Opener hands a URI to the operating system.
type Opener interface {
	Open(uri string) error
}

// Sharer shows the native share sheet.
type Sharer interface {
	Share(text string) error
}

// ForPlatform returns the adapter for the named platform.
func ForPlatform(name string, opener Opener, sharer Sharer) (Launcher, error) {
	base := adapter{opener: opener, sharer: sharer}
	switch strings.ToLower(name) {
	case PlatformAndroid:
		base.mapURIs = androidMapURIs
	case PlatformIOS:
		base.mapURIs = appleMapURIs
	case PlatformWeb, "":
		base.mapURIs = webMapURIs
	default:
		return nil, fmt.Errorf("unsupported platform %q", name)
	}
	base.platform = strings.ToLower(name)
	if base.platform == "" {
		base.platform = PlatformWeb
	}
	return &base, nil
}

// adapter tries each map URI in order until the opener accepts one.
type adapter struct {
	platform string
	opener   Opener
	sharer   Sharer
	mapURIs  func(MapRequest) []string
}

func (a *adapter) OpenMap(ctx context.Context, req MapRequest) error {
	if err := geo.ValidateLatLon(req.Lat, req.Lon); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPlatform, err)
	}
	var lastErr error
	for _, uri := range a.mapURIs(req) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = a.open(uri); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (a *adapter) Share(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.sharer == nil {
		return fmt.Errorf("%w: no share sheet on %s", core.ErrPlatform, a.platform)
	}
	if err := a.sharer.Share(text); err != nil {
		return fmt.Errorf("%w: share: %w", core.ErrPlatform, err)
	}
	return nil
}

func (a *adapter) OpenURL(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: invalid url %q", core.ErrPlatform, rawURL)
	}
	return a.open(u.String())
}

func (a *adapter) open(uri string) error {
	if a.opener == nil {
		return fmt.Errorf("%w: no opener on %s", core.ErrPlatform, a.platform)
	}
	if err := a.opener.Open(uri); err != nil {
		return fmt.Errorf("%w: open %s: %w", core.ErrPlatform, uri, err)
	}
	return nil
}

func latLon(req MapRequest) string {
	return fmt.Sprintf("%v,%v", req.Lat, req.Lon)
}

// androidMapURIs prefers an installed map app and falls back to the browser.
func androidMapURIs(req MapRequest) []string {
	ll := latLon(req)
	return []string{
		"geo:" + ll + "?q=" + ll,
		googleSearchURL(req),
	}
}

func appleMapURIs(req MapRequest) []string {
	q := url.Values{}
	q.Set("ll", latLon(req))
	if label := firstNonEmpty(req.Label, req.Address); label != "" {
		q.Set("q", label)
	}
	if req.Address != "" {
		q.Set("address", req.Address)
	}
	return []string{"https://maps.apple.com/?" + q.Encode()}
}

func webMapURIs(req MapRequest) []string {
	return []string{googleSearchURL(req)}
}

func googleSearchURL(req MapRequest) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("query", latLon(req))
	if req.PlaceID != "" {
		q.Set("query_place_id", req.PlaceID)
	}
	return "https://www.google.com/maps/search/?" + q.Encode()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

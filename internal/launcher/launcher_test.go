package launcher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/internal/geo"
	"github.com/wanderlens/arsync/internal/launcher"
	"github.com/wanderlens/arsync/internal/testutil"
	"github.com/wanderlens/arsync/pkg/core"
)

var chocolateHills = launcher.MapRequest{Lat: 9.8297, Lon: 124.1397, Label: "Chocolate Hills", PlaceID: "ChIJ123"}

// failFirst rejects the first URI, like an Android device without a map app.
type failFirst struct {
	testutil.Opener
	calls int
}

func (f *failFirst) Open(uri string) error {
	f.calls++
	if f.calls == 1 {
		return testutil.ErrInjected
	}
	return f.Opener.Open(uri)
}

func TestForPlatform_Unknown(t *testing.T) {
	_, err := launcher.ForPlatform("symbian", nil, nil)
	assert.Error(t, err)
}

func TestAndroid_GeoURI(t *testing.T) {
	opener := &testutil.Opener{}
	l, err := launcher.ForPlatform("android", opener, nil)
	require.NoError(t, err)

	require.NoError(t, l.OpenMap(context.Background(), chocolateHills))
	assert.Equal(t, []string{"geo:9.8297,124.1397?q=9.8297,124.1397"}, opener.Opened)
}

func TestAndroid_FallsBackToBrowser(t *testing.T) {
	opener := &failFirst{}
	l, err := launcher.ForPlatform("android", opener, nil)
	require.NoError(t, err)

	require.NoError(t, l.OpenMap(context.Background(), chocolateHills))
	require.Len(t, opener.Opened, 1)
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=9.8297%2C124.1397&query_place_id=ChIJ123", opener.Opened[0])
}

func TestIOS_AppleMaps(t *testing.T) {
	opener := &testutil.Opener{}
	l, err := launcher.ForPlatform("iOS", opener, nil)
	require.NoError(t, err)

	require.NoError(t, l.OpenMap(context.Background(), chocolateHills))
	assert.Equal(t, []string{"https://maps.apple.com/?ll=9.8297%2C124.1397&q=Chocolate+Hills"}, opener.Opened)
}

func TestWeb_OpenMapFailureIsPlatformError(t *testing.T) {
	l, err := launcher.ForPlatform("web", &testutil.Opener{Fail: true}, nil)
	require.NoError(t, err)

	err = l.OpenMap(context.Background(), chocolateHills)
	assert.ErrorIs(t, err, core.ErrPlatform)
	assert.ErrorIs(t, err, testutil.ErrInjected)
}

func TestOpenMap_InvalidCoordinates(t *testing.T) {
	opener := &testutil.Opener{}
	l, err := launcher.ForPlatform("web", opener, nil)
	require.NoError(t, err)

	err = l.OpenMap(context.Background(), launcher.MapRequest{Lat: 120})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
	assert.Empty(t, opener.Opened)
}

func TestOpenURL(t *testing.T) {
	opener := &testutil.Opener{}
	l, err := launcher.ForPlatform("", opener, nil)
	require.NoError(t, err)

	require.NoError(t, l.OpenURL(context.Background(), "https://example.com/spot"))
	assert.ErrorIs(t, l.OpenURL(context.Background(), "javascript:alert(1)"), core.ErrPlatform)
	assert.ErrorIs(t, l.OpenURL(context.Background(), "not a url"), core.ErrPlatform)
	assert.Equal(t, []string{"https://example.com/spot"}, opener.Opened)
}

func TestShare(t *testing.T) {
	sharer := &testutil.Sharer{}
	l, err := launcher.ForPlatform("android", nil, sharer)
	require.NoError(t, err)
	require.NoError(t, l.Share(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, sharer.Shared)

	web, err := launcher.ForPlatform("web", nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, web.Share(context.Background(), "hello"), core.ErrPlatform)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l, err := launcher.ForPlatform("web", &testutil.Opener{}, &testutil.Sharer{})
	require.NoError(t, err)

	assert.ErrorIs(t, l.OpenMap(ctx, chocolateHills), context.Canceled)
	assert.ErrorIs(t, l.Share(ctx, "x"), context.Canceled)
	assert.ErrorIs(t, l.OpenURL(ctx, "https://example.com"), context.Canceled)
}

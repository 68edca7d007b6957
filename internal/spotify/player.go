package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNothingPlaying means the player is idle.
var ErrNothingPlaying = errors.New("nothing playing")

// NowPlaying is the current playback state.
type NowPlaying struct {
	IsPlaying  bool    `json:"is_playing"`
	TrackName  *string `json:"track_name"`
	ArtistName *string `json:"artist_name"`
	AlbumName  *string `json:"album_name"`
	AlbumArt   *string `json:"album_art"`
	ProgressMs *int    `json:"progress_ms"`
	DurationMs *int    `json:"duration_ms"`
	TrackURL   *string `json:"track_url"`
}

// RecentTrack is one recently played track.
type RecentTrack struct {
	Name     *string `json:"name"`
	Artist   string  `json:"artist"`
	AlbumArt *string `json:"album_art"`
	PlayedAt *string `json:"played_at"`
}

type image struct {
	URL string `json:"url"`
}

type track struct {
	Name       *string `json:"name"`
	DurationMs *int    `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   *string `json:"name"`
		Images []image `json:"images"`
	} `json:"album"`
	ExternalURLs struct {
		Spotify *string `json:"spotify"`
	} `json:"external_urls"`
}

func (t track) artists() string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// CurrentlyPlaying returns the track being played. The medium-sized cover
// is preferred when several are offered.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*NowPlaying, error) {
	var body struct {
		IsPlaying  bool   `json:"is_playing"`
		ProgressMs *int   `json:"progress_ms"`
		Item       *track `json:"item"`
	}
	ok, err := c.decode(ctx, "/me/player/currently-playing", &body)
	if err != nil {
		return nil, err
	}
	if !ok || body.Item == nil {
		return nil, ErrNothingPlaying
	}

	item := body.Item
	artists := item.artists()
	np := &NowPlaying{
		IsPlaying:  body.IsPlaying,
		TrackName:  item.Name,
		ArtistName: &artists,
		AlbumName:  item.Album.Name,
		ProgressMs: body.ProgressMs,
		DurationMs: item.DurationMs,
		TrackURL:   item.ExternalURLs.Spotify,
	}
	switch imgs := item.Album.Images; {
	case len(imgs) > 1:
		np.AlbumArt = &imgs[1].URL
	case len(imgs) == 1:
		np.AlbumArt = &imgs[0].URL
	}
	return np, nil
}

// Recent returns up to limit recently played tracks with their smallest
// cover.
func (c *Client) Recent(ctx context.Context, limit int) ([]RecentTrack, error) {
	var body struct {
		Items []struct {
			Track    track   `json:"track"`
			PlayedAt *string `json:"played_at"`
		} `json:"items"`
	}
	if _, err := c.decode(ctx, fmt.Sprintf("/me/player/recently-played?limit=%d", limit), &body); err != nil {
		return nil, err
	}
	tracks := make([]RecentTrack, 0, len(body.Items))
	for _, it := range body.Items {
		rt := RecentTrack{Name: it.Track.Name, Artist: it.Track.artists(), PlayedAt: it.PlayedAt}
		if imgs := it.Track.Album.Images; len(imgs) > 0 {
			rt.AlbumArt = &imgs[len(imgs)-1].URL
		}
		tracks = append(tracks, rt)
	}
	return tracks, nil
}

// Play resumes playback.
func (c *Client) Play(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPut, "/me/player/play")
	return err
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPut, "/me/player/pause")
	return err
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/me/player/next")
	return err
}

// Previous goes back to the previous track.
func (c *Client) Previous(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/me/player/previous")
	return err
}

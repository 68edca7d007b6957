package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kiwidesk/kiwi/internal/spotify"
)

const defaultRecentLimit = 5

type nowPlayingResponse struct {
	spotify.NowPlaying
	Error *string `json:"error"`
}

func errorText(err error) *string {
	if err == nil {
		return nil
	}
	s := err.Error()
	return &s
}

func spotifyRedirect(c *gin.Context, query string) {
	c.Redirect(http.StatusTemporaryRedirect, "/?"+query)
}

func (h *handler) handleSpotifyLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authURL, err := h.player.LoginURL()
		if err != nil {
			h.log.Error("spotify: login failed", "err", err)
			c.JSON(http.StatusInternalServerError, errorBody{Detail: "Spotify Client ID not configured", Type: "HTTPException"})
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, authURL)
	}
}

func (h *handler) handleSpotifyCallback() gin.HandlerFunc {
	return func(c *gin.Context) {
		if reason := c.Query("error"); reason != "" {
			spotifyRedirect(c, "spotify_error="+url.QueryEscape(reason))
			return
		}
		code := c.Query("code")
		if code == "" {
			spotifyRedirect(c, "spotify_error=no_code")
			return
		}
		err := h.player.Exchange(c.Request.Context(), c.Query("state"), code)
		switch {
		case err == nil:
			h.log.Info("spotify: connected")
			spotifyRedirect(c, "spotify_connected=true")
		case errors.Is(err, spotify.ErrBadState):
			h.log.Error("spotify: callback state mismatch")
			spotifyRedirect(c, "spotify_error=state_mismatch")
		default:
			h.log.Error("spotify: token exchange failed", "err", err)
			spotifyRedirect(c, "spotify_error=token_exchange_failed")
		}
	}
}

func (h *handler) handleSpotifyStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.player.Configured() {
			c.JSON(http.StatusOK, gin.H{"connected": false, "error": "Spotify not configured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"connected": h.player.Connected(c.Request.Context()), "error": nil})
	}
}

func (h *handler) handleSpotifyLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.player.Logout(c.Request.Context()); err != nil {
			h.log.Error("spotify: logout failed", "err", err)
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out from Spotify"})
	}
}

func (h *handler) handleNowPlaying() gin.HandlerFunc {
	return func(c *gin.Context) {
		np, err := h.player.CurrentlyPlaying(c.Request.Context())
		if err != nil {
			if !errors.Is(err, spotify.ErrNothingPlaying) {
				h.log.Error("spotify: now playing failed", "err", err)
			}
			c.JSON(http.StatusOK, nowPlayingResponse{Error: errorText(err)})
			return
		}
		c.JSON(http.StatusOK, nowPlayingResponse{NowPlaying: *np})
	}
}

func (h *handler) handleRecent() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultRecentLimit
		if raw, ok := c.GetQuery("limit"); ok {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 || v > 50 {
				c.JSON(http.StatusUnprocessableEntity, errorBody{Detail: "limit: must be between 1 and 50", Type: "ValidationError", Field: "limit"})
				return
			}
			limit = v
		}
		tracks, err := h.player.Recent(c.Request.Context(), limit)
		if err != nil {
			h.log.Error("spotify: recent failed", "err", err)
			c.JSON(http.StatusOK, gin.H{"tracks": []spotify.RecentTrack{}, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tracks": tracks})
	}
}

// handlePlayer wraps a playback control.
func (h *handler) handlePlayer(name string, control func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := control(c.Request.Context()); err != nil {
			h.log.Error("spotify: "+name+" failed", "err", err)
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

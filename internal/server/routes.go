package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// registerRoutes sets up every API route, then falls back to the web
// frontend for unmatched GET requests.
func registerRoutes(router *gin.Engine, h *handler) {
	meta := router.Group("/meta")
	meta.GET("/health", h.handleHealth())
	meta.GET("/overview", h.handleOverview())

	tasks := router.Group("/tasks")
	tasks.GET("", h.handleListTasks())
	tasks.POST("", h.handleCreateTask())
	tasks.POST("/bulk-delete", h.handleBulkDeleteTasks())
	tasks.GET("/stats/summary", h.handleTaskStats())
	tasks.GET("/:id", h.handleGetTask())
	tasks.PUT("/:id", h.handleUpdateTask())
	tasks.DELETE("/:id", h.handleDeleteTask())

	external := router.Group("/external")
	external.GET("/weather", h.handleWeather())
	external.GET("/forecast", h.handleForecast())
	external.GET("/reverse-geocode", h.handleReverseGeocode())

	hp := router.Group("/hyperplanning")
	hp.GET("/courses", h.handleCourses())
	hp.GET("/next-courses", h.handleNextCourses())
	hp.GET("/stats", h.handleCourseStats())
	hp.GET("/grades", h.handleListGrades())
	hp.POST("/grades", h.handleCreateGrade())
	hp.POST("/grades/import", h.handleImportGrades())
	hp.DELETE("/grades/clear", h.handleClearGrades())

	email := router.Group("/email")
	email.GET("/proton/unread", h.handleUnread())
	email.GET("/proton/message/:id", h.handleMessage())
	email.GET("/proton/history", h.handleHistory())
	email.POST("/proton/send", h.handleSend())
	email.GET("/summary", h.handleMailSummary())

	music := router.Group("/spotify")
	music.GET("/login", h.handleSpotifyLogin())
	music.GET("/callback", h.handleSpotifyCallback())
	music.GET("/status", h.handleSpotifyStatus())
	music.POST("/logout", h.handleSpotifyLogout())
	music.GET("/now-playing", h.handleNowPlaying())
	music.GET("/recent", h.handleRecent())
	music.POST("/play", h.handlePlayer("play", h.player.Play))
	music.POST("/pause", h.handlePlayer("pause", h.player.Pause))
	music.POST("/next", h.handlePlayer("next", h.player.Next))
	music.POST("/previous", h.handlePlayer("previous", h.player.Previous))

	router.NoRoute(h.handleWeb())
}

// handleWeb serves the frontend from the configured web directory. Missing
// files and non-GET requests get a JSON 404.
func (h *handler) handleWeb() gin.HandlerFunc {
	dir := h.cfg.Server.WebDir
	var files http.Handler
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		files = http.FileServer(http.Dir(dir))
	} else if dir != "" {
		h.log.Warn("server: web directory not found", "dir", dir)
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		if files != nil && (method == http.MethodGet || method == http.MethodHead) && h.webFileExists(dir, c.Request.URL.Path) {
			files.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.JSON(http.StatusNotFound, errorBody{Detail: "Not Found", Type: "NotFoundError"})
	}
}

func (h *handler) webFileExists(dir, urlPath string) bool {
	p := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+urlPath)))
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err = os.Stat(filepath.Join(p, "index.html"))
		return err == nil
	}
	return true
}

package server

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// timingWriter stamps X-Process-Time just before the headers go out.
type timingWriter struct {
	gin.ResponseWriter
	start time.Time
}

func (w *timingWriter) stamp() {
	if !w.ResponseWriter.Written() {
		w.Header().Set("X-Process-Time", processTime(w.start))
	}
}

func (w *timingWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timingWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

func processTime(start time.Time) string {
	return strconv.FormatFloat(time.Since(start).Seconds(), 'f', -1, 64)
}

// requestLogger logs one line per request and reports the handling time in
// the X-Process-Time header.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Writer = &timingWriter{ResponseWriter: c.Writer, start: start}

		c.Next()

		if !c.Writer.Written() {
			c.Header("X-Process-Time", processTime(start))
		}
		log.Info("http: request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
		)
	}
}

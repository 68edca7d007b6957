package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kiwidesk/kiwi/internal/mail"
)

// Mail routes always answer 200; failures travel in the error field.

const unreadLimit = 5

type unreadResponse struct {
	CountUnread int           `json:"count_unread"`
	Emails      []mail.Header `json:"emails"`
	Error       string        `json:"error"`
}

type messageResponse struct {
	mail.Message
	Error string `json:"error"`
}

type historyResponse struct {
	TotalCount int           `json:"total_count"`
	Emails     []mail.Header `json:"emails"`
	HasMore    bool          `json:"has_more"`
	Error      string        `json:"error"`
}

type sendRequest struct {
	To      string `json:"to" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func nonNil(hs []mail.Header) []mail.Header {
	if hs == nil {
		return []mail.Header{}
	}
	return hs
}

func (h *handler) handleUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, headers, err := h.mail.Unread(c.Request.Context(), unreadLimit)
		if err != nil {
			h.log.Error("email: unread failed", "err", err)
			c.JSON(http.StatusOK, unreadResponse{Emails: []mail.Header{}, Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, unreadResponse{CountUnread: count, Emails: nonNil(headers)})
	}
}

func (h *handler) handleMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		msg, err := h.mail.Message(c.Request.Context(), id)
		if err != nil {
			h.log.Error("email: fetch failed", "id", id, "err", err)
			c.JSON(http.StatusOK, messageResponse{Message: mail.Message{Header: mail.Header{ID: id}}, Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, messageResponse{Message: *msg})
	}
}

func (h *handler) handleHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage := 1, 20
		for name, dst := range map[string]*int{"page": &page, "per_page": &perPage} {
			raw, ok := c.GetQuery(name)
			if !ok {
				continue
			}
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 {
				c.JSON(http.StatusUnprocessableEntity, errorBody{
					Detail: name + ": must be a positive integer",
					Type:   "ValidationError",
					Field:  name,
				})
				return
			}
			*dst = v
		}

		total, headers, err := h.mail.History(c.Request.Context(), page, perPage)
		if err != nil {
			h.log.Error("email: history failed", "page", page, "err", err)
			c.JSON(http.StatusOK, historyResponse{Emails: []mail.Header{}, Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, historyResponse{
			TotalCount: total,
			Emails:     nonNil(headers),
			HasMore:    page*perPage < total,
		})
	}
}

func (h *handler) handleSend() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendRequest
		if err := bindJSON(c, &req); err != nil {
			h.respondError(c, "email: send", http.StatusUnprocessableEntity, err)
			return
		}
		if err := h.mail.Send(c.Request.Context(), req.To, req.Subject, req.Body); err != nil {
			h.log.Error("email: send failed", "to", req.To, "err", err)
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
			return
		}
		h.log.Info("email: sent", "to", req.To)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email sent successfully"})
	}
}

func (h *handler) handleMailSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, _, err := h.mail.Unread(c.Request.Context(), unreadLimit)
		if err != nil {
			h.log.Error("email: summary failed", "err", err)
			count = 0
		}
		c.JSON(http.StatusOK, gin.H{"outlook": 0, "proton": count, "total": count})
	}
}

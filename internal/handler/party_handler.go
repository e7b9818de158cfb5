package handler

import (
	"net/http"
	"net/url"

	"aimtrainer/backend/internal/party"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// PartyHandler serves read-only views of the live parties. Every mutation
// goes through the websocket.
type PartyHandler struct {
	Engine *party.Engine
}

// viewerID returns the socket user ID of an authenticated caller.
func viewerID(c *gin.Context) (string, bool) {
	id, ok := c.Get("userID")
	if !ok {
		return "", false
	}
	return userIDString(id.(uint)), true
}

// ListParties godoc
// @Summary      List public parties
// @Description  Lists public parties that are still waiting for players, oldest first.
// @Tags         parties
// @Produce      json
// @Success      200 {array} party.Summary
// @Router       /parties [get]
func (h *PartyHandler) ListParties(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.PublicParties())
}

// GetParty godoc
// @Summary      Get a party
// @Description  Returns a snapshot of a party. The invite code is only shown to members.
// @Tags         parties
// @Produce      json
// @Param        id path string true "Party ID"
// @Success      200 {object} party.Party
// @Failure      404 {object} ErrorResponse "Party not found"
// @Router       /parties/{id} [get]
func (h *PartyHandler) GetParty(c *gin.Context) {
	p, ok := h.Engine.Party(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return
	}

	if uid, authed := viewerID(c); !authed || !p.HasMember(uid) {
		p = p.ForViewer()
	}
	c.JSON(http.StatusOK, p)
}

// GetPartyQR godoc
// @Summary      Party invite QR code
// @Description  Renders the join link of a party as a PNG QR code. Private parties can only be shared by their members.
// @Tags         parties
// @Produce      png
// @Param        id path string true "Party ID"
// @Success      200 {file} binary
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Party not found"
// @Router       /parties/{id}/qr [get]
func (h *PartyHandler) GetPartyQR(c *gin.Context) {
	p, ok := h.Engine.Party(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return
	}

	link := joinURL(c.Request, p.ID)
	if p.IsPrivate {
		uid, authed := viewerID(c)
		if !authed || !p.HasMember(uid) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only members can share a private party"})
			return
		}
		link += "?code=" + url.QueryEscape(p.InviteCode)
	}

	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "QR generation failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// joinURL derives the public join link, respecting TLS and X-Forwarded-Proto.
func joinURL(r *http.Request, partyID string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/join/" + url.PathEscape(partyID)
}

// GetStats godoc
// @Summary      Engine statistics (Admin only)
// @Description  Counts of live parties, members, spectators, challenges and connections.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} party.Stats
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /admin/stats [get]
func (h *PartyHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.Stats())
}

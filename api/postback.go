package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// dedupTTL bounds how long a postback transaction id is remembered.
// Networks retry within minutes; a day is comfortably past that.
const dedupTTL = 24 * time.Hour

// handlePostback receives server-side completion callbacks from the ad
// network. The reward is only credited for a completed view event on the
// configured zone, and each transaction id is accepted once.
func (s *Server) handlePostback(c echo.Context) error {
	zone := c.Param("zone")
	if s.cfg.AdZoneID != "" && zone != s.cfg.AdZoneID {
		log.WithField("zone", zone).Warn("Postback for unknown zone")
		return c.String(http.StatusOK, "ignored")
	}

	if eventType := c.QueryParam("event_type"); eventType != "" && eventType != "ad_completed" {
		return c.String(http.StatusOK, "ignored")
	}

	rawID := c.QueryParam("telegram_id")
	if rawID == "" {
		rawID = c.QueryParam("ymid")
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || userID <= 0 {
		return c.String(http.StatusBadRequest, "missing user id")
	}

	if txID := c.QueryParam("tx_id"); txID != "" && s.deduper != nil {
		first, err := s.deduper.MarkOnce(c.Request().Context(), "postback:"+txID, dedupTTL)
		if err != nil {
			log.WithError(err).Warn("Postback dedup check failed, accepting event")
		} else if !first {
			log.WithFields(log.Fields{"txID": txID, "userID": userID}).Info("Dropping replayed postback")
			return c.String(http.StatusOK, "duplicate")
		}
	}

	_, err = s.ledger.RecordAdWatch(c.Request().Context(), userID)
	if err != nil {
		// Business rejections still acknowledge the callback so the
		// network does not retry
		log.WithError(err).WithField("userID", userID).Info("Postback not credited")
		return c.String(http.StatusOK, "rejected")
	}

	return c.String(http.StatusOK, "ok")
}

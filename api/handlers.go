package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"earnapp/service"
)

func parseUserID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	return id, nil
}

func (s *Server) adsRemaining(watched int) int {
	remaining := s.cfg.DailyAdLimit - watched
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (s *Server) handleGetUser(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}

	user, err := s.users.GetOrCreateUser(c.Request().Context(), userID, nil)
	if err != nil {
		log.WithError(err).WithField("userID", userID).Error("Failed to load user")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	// The stored counter may belong to an earlier day; show it as the
	// client will experience it
	watched := user.DailyAdsWatched
	if !service.IsCurrentAdDay(s.cfg.DailyResetHour, user.LastAdDate) {
		watched = 0
	}

	return c.JSON(http.StatusOK, UserResponse{
		UserID:          user.UserID,
		Balance:         user.Balance,
		DailyAdsWatched: watched,
		AdsRemaining:    s.adsRemaining(watched),
		InvitedFriends:  user.InvitedFriends,
		MinWithdrawal:   s.cfg.MinWithdrawal,
	})
}

func (s *Server) handleWatchAd(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}

	result, err := s.ledger.RecordAdWatch(c.Request().Context(), userID)
	switch {
	case errors.Is(err, service.ErrDailyLimitReached):
		return c.JSON(http.StatusOK, WatchAdResponse{Success: false, Error: "daily_limit_reached"})
	case errors.Is(err, service.ErrWatchGateClosed):
		return c.JSON(http.StatusOK, WatchAdResponse{Success: false, Error: "plan_required"})
	case err != nil:
		log.WithError(err).WithField("userID", userID).Error("Failed to record ad watch")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	return c.JSON(http.StatusOK, WatchAdResponse{
		Success:         true,
		Balance:         result.Balance,
		DailyAdsWatched: result.DailyAdsWatched,
		AdsRemaining:    s.adsRemaining(result.DailyAdsWatched),
	})
}

func (s *Server) handleWithdraw(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}

	var req WithdrawRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	withdrawal, err := s.ledger.RequestWithdrawal(c.Request().Context(), userID, req.Amount, req.Destination)
	switch {
	case errors.Is(err, service.ErrInvalidWithdrawal):
		return c.JSON(http.StatusOK, WithdrawResponse{Success: false, Error: "invalid_request"})
	case errors.Is(err, service.ErrInsufficientBalance):
		return c.JSON(http.StatusOK, WithdrawResponse{Success: false, Error: "insufficient_balance"})
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusOK, WithdrawResponse{Success: false, Error: "user_not_found"})
	case err != nil:
		log.WithError(err).WithField("userID", userID).Error("Failed to request withdrawal")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	return c.JSON(http.StatusOK, WithdrawResponse{
		Success:   true,
		Reference: withdrawal.Reference.String(),
	})
}

func (s *Server) handlePurchasePlan(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}

	expiresAt, err := s.ledger.PurchasePlan(c.Request().Context(), userID)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusOK, PlanResponse{Success: false, Error: "user_not_found"})
	case err != nil:
		log.WithError(err).WithField("userID", userID).Error("Failed to purchase plan")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	return c.JSON(http.StatusOK, PlanResponse{
		Success:       true,
		PlanExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

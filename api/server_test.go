package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnapp/config"
	"earnapp/models"
	"earnapp/service"
)

type stubUserService struct {
	user *models.User
	err  error
}

func (s *stubUserService) GetOrCreateUser(ctx context.Context, userID int64, referredBy *int64) (*models.User, error) {
	return s.user, s.err
}

func (s *stubUserService) ConfirmReferral(ctx context.Context, userID, referrerID int64) error {
	return nil
}

type stubLedgerService struct {
	watchResult *service.AdWatchResult
	watchErr    error
	watchCalls  int

	withdrawal  *models.Withdrawal
	withdrawErr error

	planExpiry time.Time
	planErr    error
}

func (s *stubLedgerService) RecordAdWatch(ctx context.Context, userID int64) (*service.AdWatchResult, error) {
	s.watchCalls++
	return s.watchResult, s.watchErr
}

func (s *stubLedgerService) RequestWithdrawal(ctx context.Context, userID int64, amount int64, destination string) (*models.Withdrawal, error) {
	return s.withdrawal, s.withdrawErr
}

func (s *stubLedgerService) PurchasePlan(ctx context.Context, userID int64) (time.Time, error) {
	return s.planExpiry, s.planErr
}

type stubDeduper struct {
	first bool
	err   error
	keys  []string
}

func (s *stubDeduper) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.first, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		ListenAddr:     ":0",
		DailyAdLimit:   30,
		MinWithdrawal:  2000,
		DailyResetHour: 0,
		AdZoneID:       "9001",
	}
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := NewServer(testConfig(), &stubUserService{}, &stubLedgerService{}, nil)
	rec := doRequest(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUser(t *testing.T) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	users := &stubUserService{user: &models.User{
		UserID:          100,
		Balance:         340,
		DailyAdsWatched: 5,
		LastAdDate:      &today,
		InvitedFriends:  2,
	}}
	s := NewServer(testConfig(), users, &stubLedgerService{}, nil)

	rec := doRequest(s, http.MethodGet, "/api/user/100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(100), resp.UserID)
	assert.Equal(t, int64(340), resp.Balance)
	assert.Equal(t, 5, resp.DailyAdsWatched)
	assert.Equal(t, 25, resp.AdsRemaining)
	assert.Equal(t, int64(2000), resp.MinWithdrawal)
}

func TestGetUser_StaleCounterShownAsZero(t *testing.T) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	users := &stubUserService{user: &models.User{
		UserID:          100,
		DailyAdsWatched: 30,
		LastAdDate:      &yesterday,
	}}
	s := NewServer(testConfig(), users, &stubLedgerService{}, nil)

	rec := doRequest(s, http.MethodGet, "/api/user/100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.DailyAdsWatched)
	assert.Equal(t, 30, resp.AdsRemaining)
}

func TestGetUser_InvalidID(t *testing.T) {
	s := NewServer(testConfig(), &stubUserService{}, &stubLedgerService{}, nil)
	rec := doRequest(s, http.MethodGet, "/api/user/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchAd_Success(t *testing.T) {
	ledger := &stubLedgerService{watchResult: &service.AdWatchResult{Balance: 60, DailyAdsWatched: 3}}
	s := NewServer(testConfig(), &stubUserService{}, ledger, nil)

	rec := doRequest(s, http.MethodPost, "/api/watch_ad/100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp WatchAdResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(60), resp.Balance)
	assert.Equal(t, 27, resp.AdsRemaining)
}

func TestWatchAd_DailyLimit(t *testing.T) {
	ledger := &stubLedgerService{watchErr: service.ErrDailyLimitReached}
	s := NewServer(testConfig(), &stubUserService{}, ledger, nil)

	rec := doRequest(s, http.MethodPost, "/api/watch_ad/100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp WatchAdResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "daily_limit_reached", resp.Error)
}

func TestWatchAd_InfraError(t *testing.T) {
	ledger := &stubLedgerService{watchErr: assert.AnError}
	s := NewServer(testConfig(), &stubUserService{}, ledger, nil)

	rec := doRequest(s, http.MethodPost, "/api/watch_ad/100", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWithdraw_Success(t *testing.T) {
	ledger := &stubLedgerService{withdrawal: &models.Withdrawal{
		Reference:   uuid.New(),
		UserID:      100,
		Amount:      2500,
		Destination: "TWalletAddr",
		Status:      models.WithdrawalStatusPending,
	}}
	s := NewServer(testConfig(), &stubUserService{}, ledger, nil)

	rec := doRequest(s, http.MethodPost, "/api/withdraw/100",
		`{"amount": 2500, "destination": "TWalletAddr"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp WithdrawResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Reference)
}

func TestWithdraw_BusinessErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"below minimum", service.ErrInvalidWithdrawal, "invalid_request"},
		{"insufficient balance", service.ErrInsufficientBalance, "insufficient_balance"},
		{"unknown user", service.ErrUserNotFound, "user_not_found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := &stubLedgerService{withdrawErr: tc.err}
			s := NewServer(testConfig(), &stubUserService{}, ledger, nil)

			rec := doRequest(s, http.MethodPost, "/api/withdraw/100",
				`{"amount": 2500, "destination": "x"}`)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp WithdrawResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tc.code, resp.Error)
		})
	}
}

func TestPurchasePlan_Success(t *testing.T) {
	expiry := time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC)
	ledger := &stubLedgerService{planExpiry: expiry}
	s := NewServer(testConfig(), &stubUserService{}, ledger, nil)

	rec := doRequest(s, http.MethodPost, "/api/purchase_plan/100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "2026-09-06T12:00:00Z", resp.PlanExpiresAt)
}

func TestPurchasePlan_UnknownUser(t *testing.T) {
	ledger := &stubLedgerService{planErr: service.ErrUserNotFound}
	s := NewServer(testConfig(), &stubUserService{}, ledger, nil)

	rec := doRequest(s, http.MethodPost, "/api/purchase_plan/100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "user_not_found", resp.Error)
}

func TestPostback_CreditsOnCompletedEvent(t *testing.T) {
	ledger := &stubLedgerService{watchResult: &service.AdWatchResult{Balance: 20, DailyAdsWatched: 1}}
	deduper := &stubDeduper{first: true}
	s := NewServer(testConfig(), &stubUserService{}, ledger, deduper)

	rec := doRequest(s, http.MethodPost, "/postback/9001?event_type=ad_completed&telegram_id=100&tx_id=abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, 1, ledger.watchCalls)
	assert.Equal(t, []string{"postback:abc123"}, deduper.keys)
}

func TestPostback_DropsReplayedTransaction(t *testing.T) {
	ledger := &stubLedgerService{watchResult: &service.AdWatchResult{}}
	deduper := &stubDeduper{first: false}
	s := NewServer(testConfig(), &stubUserService{}, ledger, deduper)

	rec := doRequest(s, http.MethodPost, "/postback/9001?telegram_id=100&tx_id=abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "duplicate", rec.Body.String())
	assert.Equal(t, 0, ledger.watchCalls)
}

func TestPostback_IgnoresOtherEvents(t *testing.T) {
	ledger := &stubLedgerService{}
	s := NewServer(testConfig(), &stubUserService{}, ledger, nil)

	rec := doRequest(s, http.MethodPost, "/postback/9001?event_type=ad_started&telegram_id=100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", rec.Body.String())
	assert.Equal(t, 0, ledger.watchCalls)
}

func TestPostback_IgnoresUnknownZone(t *testing.T) {
	ledger := &stubLedgerService{}
	s := NewServer(testConfig(), &stubUserService{}, ledger, nil)

	rec := doRequest(s, http.MethodPost, "/postback/1234?telegram_id=100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", rec.Body.String())
	assert.Equal(t, 0, ledger.watchCalls)
}

func TestPostback_LimitRejectionStillAcknowledged(t *testing.T) {
	ledger := &stubLedgerService{watchErr: service.ErrDailyLimitReached}
	s := NewServer(testConfig(), &stubUserService{}, ledger, nil)

	rec := doRequest(s, http.MethodPost, "/postback/9001?telegram_id=100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", rec.Body.String())
}

func TestPostback_MissingUserID(t *testing.T) {
	s := NewServer(testConfig(), &stubUserService{}, &stubLedgerService{}, nil)
	rec := doRequest(s, http.MethodPost, "/postback/9001", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/auth"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/ifsc"
	"github.com/honeynil/PaymentLedgerService/internal/models"
	servicemocks "github.com/honeynil/PaymentLedgerService/internal/services/mocks"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var display = time.FixedZone("display", 5*3600+30*60)

type handlerFixture struct {
	payments *servicemocks.MockPaymentService
	accounts *servicemocks.MockAccountService
	router   *mux.Router
	claims   *models.TokenClaims
}

func newHandlerFixture(ctrl *gomock.Controller) *handlerFixture {
	f := &handlerFixture{
		payments: servicemocks.NewMockPaymentService(ctrl),
		accounts: servicemocks.NewMockAccountService(ctrl),
		router:   mux.NewRouter(),
	}
	h := NewHandler(f.payments, f.accounts, display)
	h.RegisterAccountRoutes(f.router)
	h.RegisterAdminSignup(f.router)

	payments := f.router.PathPrefix("/payment").Subrouter()
	payments.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if f.claims != nil {
				r = r.WithContext(auth.WithClaims(r.Context(), f.claims))
			}
			next.ServeHTTP(w, r)
		})
	})
	h.RegisterPaymentRoutes(payments)
	h.RegisterAdminRoutes(payments)
	return f
}

func (f *handlerFixture) do(req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func multipartRequest(t *testing.T, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "receipt.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/payment/create", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler_CreatePayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newHandlerFixture(ctrl)

	owner := uuid.New()
	fields := map[string]string{
		"userId":          uuid.New().String(),
		"amount":          "500.50",
		"accountHolder":   "Asha Rao",
		"transactionType": "upi",
		"status":          "Pending",
		"upi":             "asha@upi",
	}

	t.Run("user id is taken from the session", func(t *testing.T) {
		f.claims = &models.TokenClaims{UserID: owner, Role: models.RoleUser}
		created := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

		f.payments.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in models.CreateTransactionInput) (*models.Transaction, error) {
				assert.Equal(t, owner.String(), in.UserID)
				assert.True(t, decimal.RequireFromString("500.50").Equal(in.Amount))
				assert.Equal(t, []byte("png"), in.Evidence)
				assert.Equal(t, "receipt.png", in.EvidenceName)
				return &models.Transaction{ID: uuid.New(), TrnID: "TRN1001", UserID: owner, Status: "Pending", CreatedAt: created, PaymentLogs: []models.PaymentLog{}}, nil
			})

		rec, body := f.do(multipartRequest(t, fields, []byte("png")))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", body["status"])
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "TRN1001", data["trnId"])
		assert.Equal(t, "2025-03-11T01:30:00+05:30", data["createdAt"])
	})

	t.Run("admin may create for another user", func(t *testing.T) {
		f.claims = &models.TokenClaims{UserID: uuid.New(), Role: models.RoleAdmin}
		f.payments.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in models.CreateTransactionInput) (*models.Transaction, error) {
				assert.Equal(t, fields["userId"], in.UserID)
				return &models.Transaction{ID: uuid.New(), TrnID: "TRN1002"}, nil
			})

		rec, _ := f.do(multipartRequest(t, fields, []byte("png")))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing image", func(t *testing.T) {
		f.claims = &models.TokenClaims{UserID: owner, Role: models.RoleUser}
		f.payments.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in models.CreateTransactionInput) (*models.Transaction, error) {
				assert.Empty(t, in.Evidence)
				return nil, pkgerrors.ErrEvidenceRequired
			})

		rec, body := f.do(multipartRequest(t, fields, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "fail", body["status"])
		assert.Equal(t, pkgerrors.ErrEvidenceRequired.Error(), body["message"])
	})

	t.Run("malformed amount", func(t *testing.T) {
		bad := map[string]string{"amount": "five hundred", "status": "Pending"}
		rec, _ := f.do(multipartRequest(t, bad, []byte("png")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejected bank code", func(t *testing.T) {
		f.payments.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("%w: SBIN0000000", pkgerrors.ErrExternalValidation))

		rec, _ := f.do(multipartRequest(t, fields, []byte("png")))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHandler_ListPayments(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newHandlerFixture(ctrl)
	f.claims = &models.TokenClaims{UserID: uuid.New(), Role: models.RoleAdmin}

	t.Run("getAll passes filters and returns pagination", func(t *testing.T) {
		f.payments.EXPECT().ListTransactions(gomock.Any(), models.ListQuery{
			Status: "Approved", StartDate: "2025-03-01", EndDate: "2025-03-10", Page: 2,
		}).Return(&models.Page{
			Items: []models.Transaction{{TrnID: "TRN1011"}},
			Total: 11, Page: 2, Limit: 10, Pages: 2,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/payment/getAll?status=Approved&startDate=2025-03-01&endDate=2025-03-10&page=2", nil)
		rec, body := f.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, body["data"], 1)
		assert.Equal(t, map[string]interface{}{"total": 11.0, "page": 2.0, "limit": 10.0, "pages": 2.0}, body["pagination"])
	})

	t.Run("empty page is not an error", func(t *testing.T) {
		f.payments.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).
			Return(&models.Page{Items: []models.Transaction{}, Page: 1, Limit: 10}, nil)

		rec, body := f.do(httptest.NewRequest(http.MethodGet, "/payment/getAll", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotNil(t, body["pagination"])
	})

	t.Run("user listing of an unknown user", func(t *testing.T) {
		id := uuid.New().String()
		f.payments.EXPECT().ListUserTransactions(gomock.Any(), id, gomock.Any()).Return(nil, pkgerrors.ErrUserNotFound)

		rec, _ := f.do(httptest.NewRequest(http.MethodGet, "/payment/get/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("users cannot read other accounts", func(t *testing.T) {
		f.claims = &models.TokenClaims{UserID: uuid.New(), Role: models.RoleUser}
		defer func() { f.claims = &models.TokenClaims{UserID: uuid.New(), Role: models.RoleAdmin} }()

		rec, _ := f.do(httptest.NewRequest(http.MethodGet, "/payment/get/"+uuid.New().String(), nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec, _ = f.do(httptest.NewRequest(http.MethodGet, "/payment/userSummary/"+uuid.New().String(), nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandler_UpdatePayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newHandlerFixture(ctrl)
	f.claims = &models.TokenClaims{UserID: uuid.New(), Role: models.RoleAdmin}

	id := uuid.New().String()
	update := func() *http.Request {
		return httptest.NewRequest(http.MethodPut, "/payment/update/"+id, strings.NewReader(`{"status":"Approved","remarks":"ok"}`))
	}

	t.Run("success", func(t *testing.T) {
		at := time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC)
		f.payments.EXPECT().TransitionStatus(gomock.Any(), id, "Approved", "ok").Return(&models.Transaction{
			Status:      "Approved",
			PaymentLogs: []models.PaymentLog{{Status: "Approved", Date: at, Remarks: "ok"}},
		}, nil)

		rec, body := f.do(update())
		require.Equal(t, http.StatusOK, rec.Code)
		logs := body["data"].(map[string]interface{})["paymentLogs"].([]interface{})
		require.Len(t, logs, 1)
		assert.Equal(t, "2025-03-10T12:00:00+05:30", logs[0].(map[string]interface{})["date"])
	})

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unknown status", pkgerrors.ErrInvalidStatus, http.StatusBadRequest},
		{"not found", pkgerrors.ErrTransactionNotFound, http.StatusNotFound},
		{"wallet busy", pkgerrors.ErrBalanceLocked, http.StatusConflict},
		{"database down", fmt.Errorf("%w: failed to update", pkgerrors.ErrInternal), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.payments.EXPECT().TransitionStatus(gomock.Any(), id, "Approved", "ok").Return(nil, tc.err)
			rec, body := f.do(update())
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, "fail", body["status"])
		})
	}

	t.Run("internal errors are not leaked", func(t *testing.T) {
		f.payments.EXPECT().TransitionStatus(gomock.Any(), id, "Approved", "ok").Return(nil, fmt.Errorf("pq: connection refused"))
		_, body := f.do(update())
		assert.NotContains(t, body["message"], "pq")
	})

	t.Run("bad body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/payment/update/"+id, strings.NewReader(`{`))
		rec, _ := f.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_SummariesAndRecompute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newHandlerFixture(ctrl)
	owner := uuid.New()
	f.claims = &models.TokenClaims{UserID: owner, Role: models.RoleUser}

	t.Run("own summary", func(t *testing.T) {
		f.payments.EXPECT().UserSummary(gomock.Any(), owner.String()).Return(&models.Summary{
			ApprovedAmount: decimal.NewFromInt(500), ApprovedCount: 1,
			TotalAmount: decimal.NewFromInt(500), TotalCount: 1,
		}, nil)

		rec, body := f.do(httptest.NewRequest(http.MethodGet, "/payment/userSummary/"+owner.String(), nil))
		require.Equal(t, http.StatusOK, rec.Code)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "500", data["approvedAmount"])
		assert.Equal(t, 1.0, data["approvedCount"])
	})

	t.Run("system summary", func(t *testing.T) {
		f.payments.EXPECT().SystemSummary(gomock.Any()).Return(&models.Summary{}, nil)
		rec, _ := f.do(httptest.NewRequest(http.MethodGet, "/payment/summary", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("recompute", func(t *testing.T) {
		f.payments.EXPECT().RecomputeUserWallet(gomock.Any(), "not-a-uuid").Return(nil, pkgerrors.ErrInvalidUserID)
		rec, _ := f.do(httptest.NewRequest(http.MethodPost, "/payment/recompute/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		f.payments.EXPECT().RecomputeUserWallet(gomock.Any(), owner.String()).Return([]models.Transaction{{TrnID: "TRN1001"}}, nil)
		rec, body := f.do(httptest.NewRequest(http.MethodPost, "/payment/recompute/"+owner.String(), nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, body["data"], 1)
	})

	t.Run("validate ifsc", func(t *testing.T) {
		f.payments.EXPECT().ValidateIFSC(gomock.Any(), "SBIN0000300").Return(&ifsc.BankDetails{IFSC: "SBIN0000300", Bank: "State Bank of India"}, nil)
		rec, body := f.do(httptest.NewRequest(http.MethodGet, "/payment/validate?ifsc=SBIN0000300", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "State Bank of India", body["data"].(map[string]interface{})["BANK"])
	})
}

func TestHandler_Accounts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newHandlerFixture(ctrl)

	t.Run("register", func(t *testing.T) {
		in := models.RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"}
		f.accounts.EXPECT().Register(gomock.Any(), models.RoleUser, in).
			Return(&models.User{ID: uuid.New(), Email: in.Email, PasswordHash: "hash", Role: models.RoleUser}, nil)

		req := httptest.NewRequest(http.MethodPost, "/user/create", strings.NewReader(`{"name":"Asha","email":"asha@example.com","password":"secret1"}`))
		rec, body := f.do(req)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotContains(t, rec.Body.String(), "hash")
		assert.Equal(t, "asha@example.com", body["data"].(map[string]interface{})["email"])
	})

	t.Run("admin register conflict", func(t *testing.T) {
		f.accounts.EXPECT().Register(gomock.Any(), models.RoleAdmin, gomock.Any()).Return(nil, pkgerrors.ErrUserAlreadyExists)
		req := httptest.NewRequest(http.MethodPost, "/admin/create", strings.NewReader(`{"name":"A","email":"a@example.com","password":"secret1"}`))
		rec, _ := f.do(req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("login", func(t *testing.T) {
		f.accounts.EXPECT().Login(gomock.Any(), models.RoleAdmin, "a@example.com", "secret1").
			Return("jwt-token", &models.User{ID: uuid.New(), Role: models.RoleAdmin}, nil)

		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"email":"a@example.com","password":"secret1"}`))
		rec, body := f.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "jwt-token", body["data"].(map[string]interface{})["token"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		f.accounts.EXPECT().Login(gomock.Any(), models.RoleUser, gomock.Any(), gomock.Any()).Return("", nil, pkgerrors.ErrInvalidCredentials)
		req := httptest.NewRequest(http.MethodPost, "/user/login", strings.NewReader(`{"email":"u@example.com","password":"x"}`))
		rec, _ := f.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

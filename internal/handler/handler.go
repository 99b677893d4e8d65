package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/auth"
	"github.com/honeynil/PaymentLedgerService/internal/models"
	service "github.com/honeynil/PaymentLedgerService/internal/services"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
	"github.com/shopspring/decimal"
)

const maxUploadSize = 10 << 20

type Handler struct {
	payments service.PaymentService
	accounts service.AccountService
	loc      *time.Location
}

func NewHandler(payments service.PaymentService, accounts service.AccountService, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{payments: payments, accounts: accounts, loc: loc}
}

type pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

type response struct {
	Status     string      `json:"status"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, response{Status: "fail", Message: err.Error()})
}

// writeServiceError maps domain errors to HTTP codes. Anything unknown is a 500
// and its text is not exposed.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidInput),
		errors.Is(err, pkgerrors.ErrInvalidStatus),
		errors.Is(err, pkgerrors.ErrInvalidUserID),
		errors.Is(err, pkgerrors.ErrEvidenceRequired):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, pkgerrors.ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, pkgerrors.ErrTransactionNotFound),
		errors.Is(err, pkgerrors.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, pkgerrors.ErrBalanceLocked),
		errors.Is(err, pkgerrors.ErrUserAlreadyExists):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, pkgerrors.ErrExternalValidation):
		h.writeError(w, http.StatusUnprocessableEntity, err)
	default:
		slog.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func (h *Handler) RegisterAccountRoutes(r *mux.Router) {
	r.HandleFunc("/user/create", h.register(models.RoleUser)).Methods(http.MethodPost)
	r.HandleFunc("/user/login", h.login(models.RoleUser)).Methods(http.MethodPost)
	r.HandleFunc("/admin/login", h.login(models.RoleAdmin)).Methods(http.MethodPost)
}

// RegisterAdminSignup mounts admin account creation. The caller decides
// whether r is public or behind an admin session.
func (h *Handler) RegisterAdminSignup(r *mux.Router) {
	r.HandleFunc("/admin/create", h.register(models.RoleAdmin)).Methods(http.MethodPost)
}

// RegisterPaymentRoutes expects r to be behind the auth middleware.
func (h *Handler) RegisterPaymentRoutes(r *mux.Router) {
	r.HandleFunc("/create", h.CreatePayment).Methods(http.MethodPost)
	r.HandleFunc("/get/{id}", h.GetUserPayments).Methods(http.MethodGet)
	r.HandleFunc("/userSummary/{id}", h.GetUserSummary).Methods(http.MethodGet)
	r.HandleFunc("/validate", h.ValidateIFSC).Methods(http.MethodGet)
}

// RegisterAdminRoutes expects r to be behind the auth and admin role middleware.
func (h *Handler) RegisterAdminRoutes(r *mux.Router) {
	r.HandleFunc("/getAll", h.GetAllPayments).Methods(http.MethodGet)
	r.HandleFunc("/update/{id}", h.UpdatePayment).Methods(http.MethodPut)
	r.HandleFunc("/summary", h.GetSummary).Methods(http.MethodGet)
	r.HandleFunc("/recompute/{id}", h.RecomputeWallet).Methods(http.MethodPost)
}

func (h *Handler) register(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}

		user, err := h.accounts.Register(r.Context(), role, req)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}

		h.writeJSON(w, http.StatusCreated, response{
			Status:  "ok",
			Message: string(role) + " created successfully",
			Data:    h.localUser(user),
		})
	}
}

func (h *Handler) login(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}

		token, user, err := h.accounts.Login(r.Context(), role, req.Email, req.Password)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}

		h.writeJSON(w, http.StatusOK, response{
			Status:  "ok",
			Message: "login successful",
			Data: map[string]interface{}{
				"token": token,
				"user":  h.localUser(user),
			},
		})
	}
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	in := models.CreateTransactionInput{
		UserID:          r.FormValue("userId"),
		AccountHolder:   r.FormValue("accountHolder"),
		TransactionType: models.TransactionType(r.FormValue("transactionType")),
		Status:          r.FormValue("status"),
		AccountNumber:   r.FormValue("accountNumber"),
		BankName:        r.FormValue("bankName"),
		IFSC:            r.FormValue("ifsc"),
		UPI:             r.FormValue("upi"),
	}
	if claims, ok := auth.ClaimsFrom(r.Context()); ok && claims.Role != models.RoleAdmin {
		in.UserID = claims.UserID.String()
	}

	amount, err := decimal.NewFromString(r.FormValue("amount"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("amount must be a number"))
		return
	}
	in.Amount = amount

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		in.Evidence, err = io.ReadAll(file)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		in.EvidenceName = header.Filename
	} else if !errors.Is(err, http.ErrMissingFile) {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := h.payments.CreateTransaction(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{
		Status:  "ok",
		Message: "payment created successfully",
		Data:    h.localTransaction(*tx),
	})
}

func (h *Handler) GetAllPayments(w http.ResponseWriter, r *http.Request) {
	page, err := h.payments.ListTransactions(r.Context(), listQuery(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writePage(w, "payments fetched successfully", page)
}

func (h *Handler) GetUserPayments(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.canAccess(r, id) {
		h.writeError(w, http.StatusForbidden, errors.New("access denied"))
		return
	}

	page, err := h.payments.ListUserTransactions(r.Context(), id, listQuery(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writePage(w, "user payments fetched successfully", page)
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status  string `json:"status"`
		Remarks string `json:"remarks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := h.payments.TransitionStatus(r.Context(), mux.Vars(r)["id"], req.Status, req.Remarks)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{
		Status:  "ok",
		Message: "payment updated successfully",
		Data:    h.localTransaction(*tx),
	})
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.payments.SystemSummary(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Status: "ok", Data: summary})
}

func (h *Handler) GetUserSummary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.canAccess(r, id) {
		h.writeError(w, http.StatusForbidden, errors.New("access denied"))
		return
	}

	summary, err := h.payments.UserSummary(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Status: "ok", Data: summary})
}

func (h *Handler) RecomputeWallet(w http.ResponseWriter, r *http.Request) {
	items, err := h.payments.RecomputeUserWallet(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	out := make([]models.Transaction, len(items))
	for i := range items {
		out[i] = h.localTransaction(items[i])
	}
	h.writeJSON(w, http.StatusOK, response{
		Status:  "ok",
		Message: "wallet recomputed successfully",
		Data:    out,
	})
}

func (h *Handler) ValidateIFSC(w http.ResponseWriter, r *http.Request) {
	details, err := h.payments.ValidateIFSC(r.Context(), r.URL.Query().Get("ifsc"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Status: "ok", Data: details})
}

func (h *Handler) writePage(w http.ResponseWriter, message string, page *models.Page) {
	items := make([]models.Transaction, len(page.Items))
	for i := range page.Items {
		items[i] = h.localTransaction(page.Items[i])
	}
	h.writeJSON(w, http.StatusOK, response{
		Status:  "ok",
		Message: message,
		Data:    items,
		Pagination: &pagination{
			Total: page.Total,
			Page:  page.Page,
			Limit: page.Limit,
			Pages: page.Pages,
		},
	})
}

// canAccess lets admins read any account and users only their own.
func (h *Handler) canAccess(r *http.Request, userID string) bool {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		return false
	}
	return claims.Role == models.RoleAdmin || claims.UserID.String() == userID
}

func listQuery(r *http.Request) models.ListQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	return models.ListQuery{
		Status:    q.Get("status"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Page:      page,
	}
}

func (h *Handler) localTransaction(tx models.Transaction) models.Transaction {
	tx.CreatedAt = tx.CreatedAt.In(h.loc)
	tx.UpdatedAt = tx.UpdatedAt.In(h.loc)
	logs := make([]models.PaymentLog, len(tx.PaymentLogs))
	for i, l := range tx.PaymentLogs {
		l.Date = l.Date.In(h.loc)
		logs[i] = l
	}
	tx.PaymentLogs = logs
	return tx
}

func (h *Handler) localUser(u *models.User) models.User {
	out := *u
	out.CreatedAt = out.CreatedAt.In(h.loc)
	out.UpdatedAt = out.UpdatedAt.In(h.loc)
	return out
}

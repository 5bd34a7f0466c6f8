package handler

import (
	"credit-loan-service/internal/api/handler/dto"
	"credit-loan-service/internal/domain/loan"
	"credit-loan-service/internal/pkg/apperrors"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message := http.StatusInternalServerError, "An unexpected error occurred."
	var fields map[string]string
	var validationErrors *apperrors.ValidationErrors
	var validationError *apperrors.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &validationErrors):
		status, message, fields = http.StatusBadRequest, "Validation failed.", validationErrors.FieldMap()
	case errors.As(err, &validationError):
		status, message = http.StatusBadRequest, validationError.Message
		if validationError.Field != "" {
			fields = map[string]string{validationError.Field: validationError.Message}
		}
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &appErr):
		message = appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Fields:  fields,
		},
	}
	respondJSON(w, status, resp)
}

func getLoanIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "loanID")
	if idStr == "" {
		return 0, fmt.Errorf("loanID not found in URL path")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// ListLoans returns every loan.
//
// @Summary List loans
// @Description Returns all loans with their derived payment figures. Served through the read-through cache.
// @Tags Loans
// @Produce json
// @Success 200 {array} dto.LoanResponse "Loans successfully retrieved"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [get]
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoans(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanListResponse(loans))
}

// GetLoan retrieves a single loan by ID.
//
// @Summary Retrieve loan details
// @Description Retrieves a loan by its ID, including recomputed monthly payment, total payment and total interest.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.LoanResponse "Loan details successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	domainLoan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(domainLoan))
}

// CreateLoan handles the creation of a new loan.
//
// @Summary Create a new loan
// @Description Creates a loan from customer name, amount, annual interest rate (fraction) and term in months. Status defaults to PENDING.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.LoanRequest true "Loan creation request payload"
// @Success 201 {object} dto.LoanResponse "Loan successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.LoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	created, err := h.service.CreateLoan(r.Context(), req.ToDomain())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created))
}

// UpdateLoan replaces a loan record.
//
// @Summary Update a loan
// @Description Full-record replace. The body id must match the path id and the body version must match the stored version.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.LoanRequest true "Loan update request payload"
// @Success 200 {object} dto.LoanResponse "Loan successfully updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload, id mismatch or validation error"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Version conflict"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [put]
func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.LoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if req.ID != 0 && req.ID != loanID {
		respondError(w, fmt.Errorf("%w: body id %d does not match path id %d", apperrors.ErrInvalidArgument, req.ID, loanID))
		return
	}
	req.ID = loanID

	updated, err := h.service.UpdateLoan(r.Context(), req.ToDomain())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(updated))
}

// DeleteLoan removes a loan.
//
// @Summary Delete a loan
// @Description Deletes a loan by ID. Deleting an id that does not exist returns 404, consistently across repeated calls.
// @Tags Loans
// @Param loanID path int true "Loan ID"
// @Success 204 "Loan successfully deleted"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [delete]
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.DeleteLoan(r.Context(), loanID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchLoans returns loans whose customer name contains the query term.
//
// @Summary Search loans
// @Description Substring search on customer name. Always queries the store directly, bypassing the cache. An empty term returns all loans.
// @Tags Loans
// @Produce json
// @Param q query string false "Search term"
// @Success 200 {array} dto.LoanResponse "Matching loans"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/search [get]
func (h *LoanHandler) SearchLoans(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")

	loans, err := h.service.SearchLoans(r.Context(), term)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanListResponse(loans))
}

// GetStatistics returns aggregate figures over the full loan set.
//
// @Summary Loan statistics
// @Description Count, total amount, average amount, amortization-based total interest and per-status counts, computed fresh from the store.
// @Tags Loans
// @Produce json
// @Success 200 {object} dto.StatisticsResponse "Aggregate statistics"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/statistics [get]
func (h *LoanHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStatistics(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewStatisticsResponse(stats))
}

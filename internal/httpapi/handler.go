// Package httpapi exposes CoreAPI over HTTP, in the teacher's chi-plus-
// response-envelope style.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bryanronnie/kvitta/internal/core"
	"github.com/bryanronnie/kvitta/internal/ledger"
	"github.com/bryanronnie/kvitta/internal/receipt"
	"github.com/bryanronnie/kvitta/internal/user"
	"github.com/bryanronnie/kvitta/pkg/middleware"
	"github.com/bryanronnie/kvitta/pkg/response"
)

// Handler handles HTTP requests for receipt, ledger, and balance operations.
type Handler struct {
	api      *core.API
	validate *validator.Validate
}

// NewHandler creates a new receipt/ledger/balance handler.
func NewHandler(api *core.API) *Handler {
	return &Handler{api: api, validate: validator.New()}
}

// Routes returns the router for receipt, ledger, and balance endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/receipts", h.CreateReceipt)
	r.Get("/receipts", h.ListReceipts)
	r.Get("/receipts/{id}", h.GetReceipt)
	r.Put("/receipts/{id}", h.UpdateReceipt)
	r.Delete("/receipts/{id}", h.DeleteReceipt)
	r.Post("/receipts/{id}/members", h.AddMember)
	r.Delete("/receipts/{id}/members/{userId}", h.RemoveMember)
	r.Post("/receipts/{id}/finalize", h.FinalizeReceipt)
	r.Post("/receipts/{id}/unfinalize", h.UnfinalizeReceipt)

	r.Get("/ledger/entries", h.ListLedgerEntries)
	r.Post("/ledger/entries/{id}/settle", h.SettleEntry)

	r.Get("/balances/me", h.GetMyBalance)

	return r
}

func (h *Handler) decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

func callerID(r *http.Request) int64 {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		return 1
	}
	return userID
}

func parseID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}

// CreateReceipt handles POST /receipts
// @Summary      Create a new receipt
// @Description  Create a draft receipt, optionally seeding its participants from a group
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        request body CreateReceiptRequest true "Receipt creation request"
// @Success      201 {object} response.APIResponse{data=ReceiptResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /receipts [post]
func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req CreateReceiptRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	ownerID := callerID(r)
	var rec *receipt.Receipt
	var err error
	if req.GroupID != nil {
		rec, err = h.api.CreateReceiptFromGroup(r.Context(), ownerID, *req.GroupID, req.Title, req.Description)
	} else {
		rec, err = h.api.Receipts.Create(r.Context(), ownerID, req.Title, req.Description, req.Comments, nil)
	}
	if err != nil {
		response.InternalError(w, "Failed to create receipt")
		return
	}

	response.JSON(w, http.StatusCreated, toReceiptResponse(rec))
}

// GetReceipt handles GET /receipts/{id}
// @Summary      Get receipt by ID
// @Tags         receipts
// @Produce      json
// @Param        id path int true "Receipt ID"
// @Success      200 {object} response.APIResponse{data=ReceiptResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /receipts/{id} [get]
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid receipt ID")
		return
	}

	rec, err := h.api.Receipts.Get(r.Context(), id, callerID(r))
	if err != nil {
		writeReceiptError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toReceiptResponse(rec))
}

// ListReceipts handles GET /receipts
// @Summary      List receipts the caller participates in
// @Tags         receipts
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ReceiptResponse}
// @Router       /receipts [get]
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	receipts, total, err := h.api.Receipts.List(r.Context(), callerID(r), page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list receipts")
		return
	}

	out := make([]*ReceiptResponse, len(receipts))
	for i, rec := range receipts {
		out[i] = toReceiptResponse(rec)
	}

	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	response.JSONWithMeta(w, http.StatusOK, out, &response.Meta{
		Page: page, PerPage: perPage, Total: total, TotalPages: totalPages,
	})
}

// UpdateReceipt handles PUT /receipts/{id}
// @Summary      Patch a draft receipt; fields omitted from the body keep their current value
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        id path int true "Receipt ID"
// @Param        request body UpdateReceiptRequest true "Updated receipt content"
// @Success      200 {object} response.APIResponse{data=ReceiptResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /receipts/{id} [put]
func (h *Handler) UpdateReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid receipt ID")
		return
	}

	var req UpdateReceiptRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	rec, err := h.api.Receipts.Update(r.Context(), id, callerID(r), req.Version, req.toPatch())
	if err != nil {
		writeReceiptError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toReceiptResponse(rec))
}

// DeleteReceipt handles DELETE /receipts/{id}
// @Summary      Soft-delete a receipt
// @Tags         receipts
// @Produce      json
// @Param        id path int true "Receipt ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /receipts/{id} [delete]
func (h *Handler) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid receipt ID")
		return
	}
	version, _ := strconv.ParseInt(r.URL.Query().Get("version"), 10, 64)

	if err := h.api.Receipts.SoftDelete(r.Context(), id, callerID(r), version); err != nil {
		writeReceiptError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Receipt deleted"})
}

// AddMember handles POST /receipts/{id}/members
// @Summary      Add a participant to a receipt
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        id path int true "Receipt ID"
// @Param        request body AddMemberRequest true "Member to add"
// @Success      200 {object} response.APIResponse
// @Router       /receipts/{id}/members [post]
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid receipt ID")
		return
	}

	var req AddMemberRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	rec, err := h.api.AddMember(r.Context(), id, callerID(r), req.Email)
	if err != nil {
		writeReceiptError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toReceiptResponse(rec))
}

// RemoveMember handles DELETE /receipts/{id}/members/{userId}
// @Summary      Remove a participant from a receipt
// @Description  Fails with MemberHasObligations if the member still appears in a split or payment
// @Tags         receipts
// @Produce      json
// @Param        id path int true "Receipt ID"
// @Param        userId path int true "User ID to remove"
// @Success      200 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /receipts/{id}/members/{userId} [delete]
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid receipt ID")
		return
	}
	userID, err := parseID(r, "userId")
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if err := h.api.Receipts.RemoveMember(r.Context(), id, callerID(r), userID); err != nil {
		writeReceiptError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Member removed"})
}

// FinalizeReceipt handles POST /receipts/{id}/finalize
// @Summary      Finalize a draft receipt and generate its ledger entries
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        id path int true "Receipt ID"
// @Param        request body FinalizeRequest true "Expected version"
// @Success      200 {object} response.APIResponse{data=FinalizeResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /receipts/{id}/finalize [post]
func (h *Handler) FinalizeReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid receipt ID")
		return
	}

	var req FinalizeRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	rec, entries, err := h.api.Finalize(r.Context(), id, callerID(r), req.Version)
	if err != nil {
		writeReceiptError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, &FinalizeResponse{Receipt: toReceiptResponse(rec), Entries: entries})
}

// UnfinalizeReceipt handles POST /receipts/{id}/unfinalize
// @Summary      Revert a finalized receipt to draft
// @Description  Fails with AlreadySettled if any ledger entry has received a partial payment
// @Tags         receipts
// @Accept       json
// @Produce      json
// @Param        id path int true "Receipt ID"
// @Param        request body FinalizeRequest true "Expected version"
// @Success      200 {object} response.APIResponse{data=ReceiptResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /receipts/{id}/unfinalize [post]
func (h *Handler) UnfinalizeReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid receipt ID")
		return
	}

	var req FinalizeRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	rec, err := h.api.Receipts.Unfinalize(r.Context(), id, callerID(r), req.Version)
	if err != nil {
		writeReceiptError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toReceiptResponse(rec))
}

// ListLedgerEntries handles GET /ledger/entries?receipt_id=
// @Summary      List ledger entries for a receipt
// @Tags         ledger
// @Produce      json
// @Param        receipt_id query int true "Receipt ID"
// @Success      200 {object} response.APIResponse{data=[]ledger.Entry}
// @Router       /ledger/entries [get]
func (h *Handler) ListLedgerEntries(w http.ResponseWriter, r *http.Request) {
	receiptID, err := strconv.ParseInt(r.URL.Query().Get("receipt_id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid or missing receipt_id")
		return
	}

	if _, err := h.api.Receipts.Get(r.Context(), receiptID, callerID(r)); err != nil {
		writeReceiptError(w, err)
		return
	}

	entries, err := h.api.Ledger.ListByReceipt(r.Context(), receiptID)
	if err != nil {
		response.InternalError(w, "Failed to list ledger entries")
		return
	}

	response.JSON(w, http.StatusOK, entries)
}

// SettleEntry handles POST /ledger/entries/{id}/settle
// @Summary      Apply a partial or full payment to a ledger entry
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        id path int true "Ledger entry ID"
// @Param        request body SettleRequest true "Amount to settle, in cents"
// @Success      200 {object} response.APIResponse{data=ledger.Entry}
// @Failure      400 {object} response.APIResponse
// @Router       /ledger/entries/{id}/settle [post]
func (h *Handler) SettleEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid entry ID")
		return
	}

	var req SettleRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	entry, err := h.api.Settle(r.Context(), id, callerID(r), req.AmountCents)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ledger.ErrNotDebtor):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ledger.ErrInvalidSettlementAmount), errors.Is(err, ledger.ErrAlreadyDeleted):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to settle entry")
		}
		return
	}

	response.JSON(w, http.StatusOK, entry)
}

// GetMyBalance handles GET /balances/me
// @Summary      Get the caller's aggregated balance across every receipt
// @Tags         balances
// @Produce      json
// @Success      200 {object} response.APIResponse{data=balance.Balance}
// @Router       /balances/me [get]
func (h *Handler) GetMyBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.api.Balances.Get(r.Context(), callerID(r))
	if err != nil {
		response.InternalError(w, "Failed to get balance")
		return
	}

	response.JSON(w, http.StatusOK, bal)
}

func writeReceiptError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, receipt.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, receipt.ErrForbidden), errors.Is(err, receipt.ErrNotOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, receipt.ErrVersionConflict):
		response.Conflict(w, err.Error())
	case errors.Is(err, receipt.ErrAlreadyFinalized), errors.Is(err, receipt.ErrNotFinalized), errors.Is(err, receipt.ErrAlreadySettled),
		errors.Is(err, receipt.ErrEmptyReceipt), errors.Is(err, receipt.ErrPaymentMismatch), errors.Is(err, receipt.ErrCannotRemoveOwner):
		response.Conflict(w, err.Error())
	case errors.Is(err, receipt.ErrMemberHasObligations), errors.Is(err, receipt.ErrAlreadyMember), errors.Is(err, receipt.ErrNotMember):
		response.Conflict(w, err.Error())
	case errors.Is(err, user.ErrUserNotFound):
		response.NotFound(w, "no user with that email")
	default:
		var valErrs receipt.ValidationErrors
		if errors.As(err, &valErrs) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Unexpected error")
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/pricewatch/internal/middleware"
	"github.com/hitoshi/pricewatch/internal/model"
	"github.com/hitoshi/pricewatch/internal/tracking"
)

// SelectorValidatorInterface はセレクタ検証ドライランのインターフェース。
type SelectorValidatorInterface interface {
	// ValidateSelector はURLとセレクタの組でドライランを実行する。
	// 何も永続化しない。
	ValidateSelector(ctx context.Context, rawURL, selector, fetchMode string) (*tracking.SelectorPreview, error)
}

// ValidateHandler はセレクタ検証のHTTPハンドラー。
type ValidateHandler struct {
	validator SelectorValidatorInterface
}

// NewValidateHandler はValidateHandlerを生成する。
func NewValidateHandler(validator SelectorValidatorInterface) *ValidateHandler {
	return &ValidateHandler{validator: validator}
}

// validateSelectorRequest はセレクタ検証リクエストのボディ。
type validateSelectorRequest struct {
	URL       string `json:"url"`
	Selector  string `json:"selector"`
	FetchMode string `json:"fetch_mode"`
}

// validateSelectorResponse はセレクタ検証のレスポンス。
// matched=falseはセレクタ未検出、price=nullはパース不能を表す。
type validateSelectorResponse struct {
	Matched  bool    `json:"matched"`
	RawText  string  `json:"raw_text,omitempty"`
	Price    *string `json:"price"`
	Currency string  `json:"currency,omitempty"`
}

// ValidateSelector は監視対象登録前のセレクタ検証を処理する。
// POST /api/items/validate
func (h *ValidateHandler) ValidateSelector(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorized(w)
		return
	}

	var req validateSelectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}
	if req.Selector == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidSelectorError("セレクタが指定されていません"))
		return
	}

	preview, err := h.validator.ValidateSelector(r.Context(), req.URL, req.Selector, req.FetchMode)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := validateSelectorResponse{
		Matched:  preview.Matched,
		RawText:  preview.RawText,
		Currency: preview.Currency,
	}
	if preview.Price != nil {
		price := preview.Price.String()
		resp.Price = &price
	}

	writeJSON(w, http.StatusOK, resp)
}

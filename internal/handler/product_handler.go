package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"settlement-service/internal/middleware"
	"settlement-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductHandler struct {
	purchases *usecase.PurchaseUsecase
	fileDir   string
	logger    *zap.Logger
}

func NewProductHandler(purchases *usecase.PurchaseUsecase, fileDir string, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{purchases: purchases, fileDir: fileDir, logger: logger}
}

// resolveProductPath anchors relative file paths from the catalog under the
// configured product file directory; absolute paths pass through unchanged.
func resolveProductPath(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func (h *ProductHandler) Buy(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid product id")
		return
	}

	result, err := h.purchases.Initiate(r.Context(), middleware.UserID(r.Context()), productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ProductHandler) Verify(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	outcome, err := h.purchases.Finalize(r.Context(), reference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// Download streams the purchased file as an attachment. The usecase has
// already enforced ownership, payment, access and the download limit by the
// time a grant comes back.
func (h *ProductHandler) Download(w http.ResponseWriter, r *http.Request) {
	purchaseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid purchase id")
		return
	}

	grant, err := h.purchases.Download(r.Context(), purchaseID, middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", grant.FileName))
	http.ServeFile(w, r, resolveProductPath(h.fileDir, grant.FilePath))
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tablereach/rengage-backend/internal/apperrors"
	"github.com/tablereach/rengage-backend/internal/model"
	"github.com/tablereach/rengage-backend/internal/service"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// sampleCSV is the downloadable upload template.
const sampleCSV = "name,phone,last_order_date\n" +
	"Sarah Mwangi,+254 722 000 100,2025-01-01\n" +
	"Tom Otieno,0722 000 101,2025-02-10\n"

// CampaignHandler exposes the campaign pipeline over HTTP.
type CampaignHandler struct {
	Service *service.CampaignService
	Log     *zap.Logger
}

func NewCampaignHandler(svc *service.CampaignService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{Service: svc, Log: log}
}

// Routes mounts the campaign endpoints.
func (h *CampaignHandler) Routes(r chi.Router) {
	r.Post("/campaigns", h.CreateCampaign)
	r.Post("/campaigns/preview", h.PreviewCampaign)
	r.Get("/campaigns", h.ListCampaigns)
	r.Get("/campaigns/sample-csv", h.SampleCSV)
	r.Get("/campaigns/{id}/status", h.CampaignStatus)
}

// commitResponse is the body returned for a committed (or no-op) campaign.
// A batch full of failed sends is still a 200: deliverability is data,
// not a system error.
type commitResponse struct {
	CampaignID        string           `json:"campaign_id,omitempty"`
	State             string           `json:"state,omitempty"`
	NoLapsedCustomers bool             `json:"no_lapsed_customers"`
	TotalUploaded     int              `json:"total_uploaded"`
	TotalInvalidRows  int              `json:"total_invalid_rows"`
	SegmentSize       int              `json:"segment_size"`
	MessagesSent      int              `json:"messages_sent"`
	MessagesPending   int              `json:"messages_pending"`
	MessagesFailed    int              `json:"messages_failed"`
	DeliveryRate      float64          `json:"delivery_rate"`
	TotalCost         float64          `json:"total_cost"`
	CSVErrors         []model.RowError `json:"csv_errors"`
}

// CreateCampaign accepts a multipart customer export plus campaign fields
// and commits the campaign.
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseCampaignForm(w, r)
	if !ok {
		return
	}

	result, err := h.Service.Commit(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := commitResponse{
		NoLapsedCustomers: result.NoLapsedCustomers,
		TotalUploaded:     result.TotalUploaded,
		TotalInvalidRows:  len(result.RowErrors),
		CSVErrors:         result.RowErrors,
	}
	if result.Record != nil {
		resp.CampaignID = result.Record.ID
		resp.State = string(result.Record.State)
		resp.SegmentSize = result.Record.SegmentSize
	}
	if result.Report != nil {
		resp.MessagesSent = result.Report.MessagesSent
		resp.MessagesPending = result.Report.MessagesPending
		resp.MessagesFailed = result.Report.MessagesFailed
		resp.DeliveryRate = result.Report.DeliveryRate
		resp.TotalCost = result.Report.TotalCost
	}

	writeJSON(w, http.StatusOK, resp)
}

// PreviewCampaign runs the dry-run pipeline. Same form shape as commit,
// but nothing is persisted and nothing is sent.
func (h *CampaignHandler) PreviewCampaign(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseCampaignForm(w, r)
	if !ok {
		return
	}

	preview, err := h.Service.Preview(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

// CampaignStatus returns the report recomputed from the persisted record.
func (h *CampaignHandler) CampaignStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.Service.GetStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ListCampaigns returns a paginated list of campaign records.
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	campaigns, pagination, err := h.Service.ListCampaigns(r.Context(), page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

// SampleCSV serves the static upload template. No pipeline involvement.
func (h *CampaignHandler) SampleCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="customers_sample.csv"`)
	w.Write([]byte(sampleCSV))
}

func (h *CampaignHandler) parseCampaignForm(w http.ResponseWriter, r *http.Request) (service.CampaignRequest, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return service.CampaignRequest{}, false
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing upload file", http.StatusBadRequest)
		return service.CampaignRequest{}, false
	}
	defer file.Close()

	upload, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "failed to read upload: "+err.Error(), http.StatusBadRequest)
		return service.CampaignRequest{}, false
	}

	req := service.CampaignRequest{
		RestaurantName: r.FormValue("restaurant_name"),
		Offer:          r.FormValue("offer"),
		OfferCode:      r.FormValue("offer_code"),
		Template:       r.FormValue("template"),
		Upload:         upload,
	}

	if req.RestaurantName == "" {
		http.Error(w, "restaurant_name is required", http.StatusBadRequest)
		return service.CampaignRequest{}, false
	}
	if req.OfferCode == "" {
		http.Error(w, "offer_code is required", http.StatusBadRequest)
		return service.CampaignRequest{}, false
	}

	return req, true
}

func (h *CampaignHandler) writeError(w http.ResponseWriter, err error) {
	var schemaErr *apperrors.ErrSchemaInvalid
	var emptyErr *apperrors.ErrEmptyInput
	var notFoundErr *apperrors.ErrCampaignNotFound
	var duplicateErr *apperrors.ErrDuplicateCommit

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &schemaErr), errors.As(err, &emptyErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &duplicateErr):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", zap.Error(err))
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tablereach/rengage-backend/internal/dispatch"
	"github.com/tablereach/rengage-backend/internal/idempotency"
	"github.com/tablereach/rengage-backend/internal/queue"
	"github.com/tablereach/rengage-backend/internal/repository"
	"github.com/tablereach/rengage-backend/internal/service"
	"github.com/tablereach/rengage-backend/internal/transport"
)

type alwaysSent struct{}

func (alwaysSent) Send(_ context.Context, phone, _ string) (transport.SendResult, error) {
	return transport.SendResult{ProviderMessageID: "msg-" + phone}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	asOf := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	svc := &service.CampaignService{
		Store:             repository.NewMemoryCampaignStore(),
		Dispatcher:        dispatch.New(alwaysSent{}, 4, time.Second, zap.NewNop()),
		Idempotency:       idempotency.NewMemoryStore(),
		Publisher:         queue.NopPublisher{},
		Log:               zap.NewNop(),
		ThresholdDays:     30,
		PerMessageCost:    0.5,
		IdempotencyWindow: time.Minute,
		PreviewSampleSize: 5,
		Now:               func() time.Time { return asOf },
	}

	h := NewCampaignHandler(svc, zap.NewNop())
	r := chi.NewRouter()
	r.Group(h.Routes)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func campaignForm(t *testing.T, csv string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "customers.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

var defaultFields = map[string]string{
	"restaurant_name": "Mama's Kitchen",
	"offer":           "20% off",
	"offer_code":      "COMEBACK20",
}

const uploadCSV = "name,phone,last_order_date\n" +
	"Sarah,0722000100,2025-01-01\n" +
	",0722000101,2025-01-01\n" +
	"Tom,0722000102,2025-02-14\n"

func TestCreateCampaign(t *testing.T) {
	server := newTestServer(t)

	body, contentType := campaignForm(t, uploadCSV, defaultFields)
	resp, err := http.Post(server.URL+"/campaigns", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		CampaignID     string  `json:"campaign_id"`
		State          string  `json:"state"`
		SegmentSize    int     `json:"segment_size"`
		TotalUploaded  int     `json:"total_uploaded"`
		MessagesSent   int     `json:"messages_sent"`
		MessagesFailed int     `json:"messages_failed"`
		TotalCost      float64 `json:"total_cost"`
		DeliveryRate   float64 `json:"delivery_rate"`
		CSVErrors      []struct {
			RowIndex int    `json:"row_index"`
			Reason   string `json:"reason"`
		} `json:"csv_errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	assert.NotEmpty(t, out.CampaignID)
	assert.Equal(t, "completed", out.State)
	assert.Equal(t, 3, out.TotalUploaded)
	assert.Equal(t, 1, out.SegmentSize)
	assert.Equal(t, 1, out.MessagesSent)
	assert.Equal(t, 0, out.MessagesFailed)
	assert.Equal(t, 0.5, out.TotalCost)
	require.Len(t, out.CSVErrors, 1)
	assert.Equal(t, 2, out.CSVErrors[0].RowIndex)

	// The committed campaign is queryable afterwards.
	statusResp, err := http.Get(server.URL + "/campaigns/" + out.CampaignID + "/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()
	assert.Equal(t, http.StatusOK, statusResp.StatusCode)
}

func TestCreateCampaignMissingColumn(t *testing.T) {
	server := newTestServer(t)

	body, contentType := campaignForm(t, "name,phone\nSarah,0722000100\n", defaultFields)
	resp, err := http.Post(server.URL+"/campaigns", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateCampaignDuplicateConflict(t *testing.T) {
	server := newTestServer(t)

	body, contentType := campaignForm(t, uploadCSV, defaultFields)
	resp, err := http.Post(server.URL+"/campaigns", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, contentType = campaignForm(t, uploadCSV, defaultFields)
	resp, err = http.Post(server.URL+"/campaigns", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateCampaignMissingFile(t *testing.T) {
	server := newTestServer(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("restaurant_name", "Mama's Kitchen"))
	require.NoError(t, writer.WriteField("offer_code", "X"))
	require.NoError(t, writer.Close())

	resp, err := http.Post(server.URL+"/campaigns", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewCampaign(t *testing.T) {
	server := newTestServer(t)

	body, contentType := campaignForm(t, uploadCSV, defaultFields)
	resp, err := http.Post(server.URL+"/campaigns/preview", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		SegmentSize    int `json:"segment_size"`
		TotalUploaded  int `json:"total_uploaded"`
		SampleMessages []struct {
			Body string `json:"body"`
		} `json:"sample_messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	assert.Equal(t, 1, out.SegmentSize)
	assert.Equal(t, 3, out.TotalUploaded)
	require.Len(t, out.SampleMessages, 1)
	assert.Contains(t, out.SampleMessages[0].Body, "COMEBACK20")

	// Previewing never persists anything.
	listResp, err := http.Get(server.URL + "/campaigns")
	require.NoError(t, err)
	defer listResp.Body.Close()

	var list struct {
		Pagination map[string]int `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Equal(t, 0, list.Pagination["total_count"])
}

func TestCampaignStatusNotFound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/campaigns/does-not-exist/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSampleCSVDownload(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/campaigns/sample-csv")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
}

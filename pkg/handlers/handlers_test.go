package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderscan/pkg/models"
	"orderscan/pkg/services/catalog"
	"orderscan/pkg/services/order"
	"orderscan/pkg/store"
)

type memStore struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (m *memStore) Save(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
	return nil
}

func (m *memStore) List(_ context.Context, limit, offset int) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Order
	for i := len(m.orders) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.orders[i])
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, store.ErrNotFound
}

type fakeOCR struct{ page models.Page }

func (f fakeOCR) Recognize(context.Context, string) (models.Page, error) { return f.page, nil }

func newRouter(t *testing.T, h *Handler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l := logrus.New()
	l.SetOutput(io.Discard)
	engine, err := order.New(catalog.Build([]catalog.Row{
		{ProductID: "A001", Name: "東坡肉", Unit: "KG"},
		{ProductID: "A002", Name: "牛肉", Unit: "盒"},
	}, l), order.Options{Logger: l})
	require.NoError(t, err)
	h.Engine = engine
	h.Log = l
	r := gin.New()
	h.Register(r)
	return r
}

func handwritingBody() []byte {
	body, _ := json.Marshal(OrderRequest{
		DocumentType: "handwriting",
		Pages: []models.Page{{Tokens: []models.Token{
			{Text: "東坡肉12×12 42塊", Score: 0.9, Box: models.Box{Left: 10, Top: 10, Right: 300, Bottom: 50}},
		}}},
	})
	return body
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetOrder(t *testing.T) {
	st := &memStore{}
	r := newRouter(t, &Handler{Store: st})

	w := do(r, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(handwritingBody())))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Output.Items, 1)
	require.NotNil(t, resp.Output.Items[0].ProductID)
	assert.Equal(t, "A001", *resp.Output.Items[0].ProductID)
	assert.Equal(t, "12×12 42", resp.Output.Items[0].Quantity)
	require.Len(t, st.orders, 1)

	w = do(r, httptest.NewRequest(http.MethodGet, "/orders/"+resp.Order.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/orders/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/orders?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list []OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	r := newRouter(t, &Handler{})

	w := do(r, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{"document_type":"fax","pages":[{"tokens":[]}]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`not json`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderHeaderFailure(t *testing.T) {
	r := newRouter(t, &Handler{})
	body, _ := json.Marshal(OrderRequest{
		DocumentType: "print",
		Pages: []models.Page{{Tokens: []models.Token{
			{Text: "項次", Score: 1, Box: models.Box{Left: 20, Top: 60, Right: 60, Bottom: 80}},
			{Text: "雜項", Score: 1, Box: models.Box{Left: 80, Top: 60, Right: 120, Bottom: 80}},
		}}},
	})
	w := do(r, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func multipartImage(t *testing.T) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("document_type", "handwriting"))
	fw, err := mw.CreateFormFile("image", "order.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not really a png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestScanOrder(t *testing.T) {
	page := models.Page{Tokens: []models.Token{{Text: "牛肉2盒", Score: 0.95, Box: models.Box{Left: 1, Top: 1, Right: 50, Bottom: 20}}}}
	r := newRouter(t, &Handler{OCR: fakeOCR{page: page}})

	body, ctype := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/scan-order", body)
	req.Header.Set("Content-Type", ctype)
	w := do(r, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Order.Items, 1)
	assert.Equal(t, "A002", resp.Order.Items[0].ProductID)
	assert.Empty(t, resp.ReviewImages)
}

func TestScanOrderWithoutOCR(t *testing.T) {
	r := newRouter(t, &Handler{})
	body, ctype := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/scan-order", body)
	req.Header.Set("Content-Type", ctype)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, req).Code)
}

func TestStorageRoutesWithoutStore(t *testing.T) {
	r := newRouter(t, &Handler{})
	assert.Equal(t, http.StatusServiceUnavailable, do(r, httptest.NewRequest(http.MethodGet, "/orders", nil)).Code)
}

func TestHealth(t *testing.T) {
	r := newRouter(t, &Handler{})
	w := do(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","catalog_products":2}`, w.Body.String())
}

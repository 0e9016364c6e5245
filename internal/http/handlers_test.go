package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospital-ai-desk/internal/core"
	"hospital-ai-desk/internal/llm"
	"hospital-ai-desk/internal/records"
	"hospital-ai-desk/pkg"
)

// stubClient answers every call with a fixed reply, or err when set.
type stubClient struct {
	text  string
	image string
	chat  string
	err   error
}

func (c *stubClient) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if system == core.ClassifyInstruction {
		return "tim mạch", nil
	}
	return c.text, nil
}

func (c *stubClient) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return c.image, c.err
}

func (c *stubClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return c.chat, c.err
}

func newTestServer(t *testing.T, client llm.Client) (*Server, *records.ListController) {
	t.Helper()
	logger := zap.NewNop()
	gw := core.NewGateway(client, core.WithLogger(logger))
	lab := records.NewListController(records.KindLab, nil, gw, logger)
	rad := records.NewListController(records.KindRadiology, nil, gw, logger)
	return NewServer(gw, []*records.ListController{lab, rad}, 1<<20, logger), rad
}

func do(t *testing.T, s *Server, method, path, role string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if role != "" {
		req.Header.Set(RoleHeader, role)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, &stubClient{})
	rec := do(t, s, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSymptomCheck(t *testing.T) {
	s, _ := newTestServer(t, &stubClient{text: "**Nhận định**\nCó thể do căng thẳng"})
	body, _ := json.Marshal(pkg.SymptomRequest{Symptoms: "đau ngực khi gắng sức"})

	rec := do(t, s, http.MethodPost, "/api/symptoms/check", "", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[pkg.SymptomResponse](t, rec)
	assert.Equal(t, "Tim mạch", res.Department)
	assert.Contains(t, res.AnalysisHTML, "<strong>Nhận định</strong>")

	empty, _ := json.Marshal(pkg.SymptomRequest{Symptoms: "  "})
	rec = do(t, s, http.MethodPost, "/api/symptoms/check", "", empty, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatFlow(t *testing.T) {
	s, _ := newTestServer(t, &stubClient{chat: "Các khả năng..."})

	rec := do(t, s, http.MethodPost, "/api/chat/sessions", "", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	opened := decode[pkg.ChatSessionResponse](t, rec)
	require.Len(t, opened.Messages, 1)
	assert.Equal(t, core.ChatGreeting, opened.Messages[0].Content)

	path := "/api/chat/sessions/" + opened.SessionID + "/messages"
	body, _ := json.Marshal(pkg.ChatRequest{Content: "Tôi bị đau đầu"})
	rec = do(t, s, http.MethodPost, path, "", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[pkg.ChatSessionResponse](t, rec)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, pkg.RoleUser, got.Messages[1].Role)
	assert.Equal(t, "Các khả năng...", got.Messages[2].Content)

	blank, _ := json.Marshal(pkg.ChatRequest{Content: "   "})
	rec = do(t, s, http.MethodPost, path, "", blank, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/chat/sessions/"+opened.SessionID, "", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/chat/sessions/"+opened.SessionID, "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvictIdleChats(t *testing.T) {
	s, _ := newTestServer(t, &stubClient{chat: "ok"})
	clock := time.Date(2024, 5, 17, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	open := func() string {
		rec := do(t, s, http.MethodPost, "/api/chat/sessions", "", nil, "")
		require.Equal(t, http.StatusCreated, rec.Code)
		return decode[pkg.ChatSessionResponse](t, rec).SessionID
	}
	stale := open()
	clock = clock.Add(20 * time.Minute)
	fresh := open()

	clock = clock.Add(15 * time.Minute)
	assert.Equal(t, 1, s.EvictIdleChats(30*time.Minute))
	assert.Zero(t, s.EvictIdleChats(30*time.Minute))

	rec := do(t, s, http.MethodGet, "/api/chat/sessions/"+stale, "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/chat/sessions/"+fresh, "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// the GET above counts as use
	clock = clock.Add(29 * time.Minute)
	assert.Zero(t, s.EvictIdleChats(30*time.Minute))
	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 1, s.EvictIdleChats(30*time.Minute))
}

func TestRunChatJanitorStopsWithContext(t *testing.T) {
	s, _ := newTestServer(t, &stubClient{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunChatJanitor(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestRadiologyDraftFlow(t *testing.T) {
	client := &stubClient{image: "**Finding**\nNormal"}
	s, rad := newTestServer(t, client)
	doctor := string(records.RoleDoctor)

	rec := do(t, s, http.MethodPost, "/api/radiology/drafts", doctor, nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	draft := decode[records.DraftView](t, rec)
	assert.True(t, draft.New)
	assert.Equal(t, records.StateEmpty, draft.State)
	base := "/api/radiology/drafts/" + draft.ID

	fields, _ := json.Marshal(map[string]string{"patient_name": "Nguyen Van A", "name": "X-quang ngực"})
	rec = do(t, s, http.MethodPatch, base, doctor, fields, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, base+"/analyze", doctor, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, base+"/image", doctor, []byte("not an image"), "text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = do(t, s, http.MethodPost, base+"/image", doctor, testPNG(t), "image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	draft = decode[records.DraftView](t, rec)
	assert.Equal(t, records.StateImageAttached, draft.State)
	assert.True(t, strings.HasPrefix(draft.Record.ImageURI, "data:image/png;base64,"))

	rec = do(t, s, http.MethodPost, base+"/analyze", doctor, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	draft = decode[records.DraftView](t, rec)
	assert.Equal(t, records.StateAnnotated, draft.State)
	assert.Equal(t, "**Finding**\nNormal", draft.Record.AIAnnotation)

	rec = do(t, s, http.MethodPost, base+"/save", doctor, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[records.RecordView](t, rec)
	assert.NotEmpty(t, saved.ID)
	assert.True(t, strings.HasPrefix(saved.OrderID, "CDHA-"))
	assert.Equal(t, records.StatusOrdered, saved.Status)
	assert.Equal(t, "Nguyen Van A", saved.PatientName)
	assert.Len(t, rad.List(), 1)

	rec = do(t, s, http.MethodGet, base, doctor, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeFailureShowsPlaceholder(t *testing.T) {
	s, rad := newTestServer(t, &stubClient{err: errors.New("quota exceeded")})
	rad.Add(records.Candidate{PatientName: "Nguyen Van A", Name: "X-quang ngực"})
	id := rad.List()[0].ID
	tech := string(records.RoleRadiologyTechnician)

	body, _ := json.Marshal(pkg.DraftRequest{RecordID: id})
	rec := do(t, s, http.MethodPost, "/api/radiology/drafts", tech, body, "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	draft := decode[records.DraftView](t, rec)
	assert.False(t, draft.New)
	base := "/api/radiology/drafts/" + draft.ID

	rec = do(t, s, http.MethodPost, base+"/image", tech, testPNG(t), "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodPost, base+"/analyze", tech, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	draft = decode[records.DraftView](t, rec)
	assert.Equal(t, core.AnalysisErrorText, draft.Record.AIAnnotation)
}

func TestRecordPolicy(t *testing.T) {
	s, rad := newTestServer(t, &stubClient{})
	rad.Add(records.Candidate{Name: "CT sọ não"})
	id := rad.List()[0].ID

	rec := do(t, s, http.MethodGet, "/api/radiology/records", "", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/radiology/records", string(records.RolePatient), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	views := decode[[]records.RecordView](t, rec)
	require.Len(t, views, 1)
	assert.Equal(t, "badge-ordered", views[0].BadgeClass)

	rec = do(t, s, http.MethodPost, "/api/radiology/drafts", string(records.RoleNurse), nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/radiology/records/"+id, string(records.RoleReceptionist), nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/radiology/records/"+id, string(records.RoleAdmin), nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, rad.List(), 1)

	rec = do(t, s, http.MethodDelete, "/api/radiology/records/"+id+"?confirm=true", string(records.RoleAdmin), nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rad.List())

	rec = do(t, s, http.MethodGet, "/api/pharmacy/records", string(records.RoleAdmin), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateDraftRejectsForeignStatus(t *testing.T) {
	s, _ := newTestServer(t, &stubClient{})
	doctor := string(records.RoleDoctor)

	rec := do(t, s, http.MethodPost, "/api/lab/drafts", doctor, nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	draft := decode[records.DraftView](t, rec)

	body, _ := json.Marshal(map[string]string{"status": string(records.StatusPerformed)})
	rec = do(t, s, http.MethodPatch, "/api/lab/drafts/"+draft.ID, doctor, body, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"hospital-ai-desk/internal/core"
	"hospital-ai-desk/internal/imaging"
	"hospital-ai-desk/internal/records"
	"hospital-ai-desk/pkg"
)

// RoleHeader carries the acting user's role, set by the authenticating
// proxy in front of the server.
const RoleHeader = "X-User-Role"

var errConfirmationRequired = errors.New("deletion requires confirm=true")

// Server bundles together the dependencies required by HTTP handlers. It
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Gateway       *core.Gateway
	Symptoms      *core.SymptomChecker
	Lists         map[records.Kind]*records.ListController
	MaxImageBytes int64
	Logger        *zap.Logger

	mu    sync.Mutex
	chats map[string]*chatEntry
	now   func() time.Time
}

type chatEntry struct {
	ctrl     *core.ChatSessionController
	lastUsed time.Time
}

// NewServer constructs a Server over the given list controllers.
func NewServer(gateway *core.Gateway, lists []*records.ListController, maxImageBytes int64, logger *zap.Logger) *Server {
	s := &Server{
		Gateway:       gateway,
		Symptoms:      core.NewSymptomChecker(gateway),
		Lists:         make(map[records.Kind]*records.ListController, len(lists)),
		MaxImageBytes: maxImageBytes,
		Logger:        logger,
		chats:         make(map[string]*chatEntry),
		now:           time.Now,
	}
	for _, l := range lists {
		s.Lists[l.Kind()] = l
	}
	return s
}

// ServeHTTP dispatches incoming requests based on the URL path. Minimal
// routing logic is implemented here to keep dependencies light.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "healthz" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case path == "api/symptoms/check" && r.Method == http.MethodPost:
		s.handleSymptomCheck(w, r)
	case len(parts) >= 3 && parts[0] == "api" && parts[1] == "chat" && parts[2] == "sessions":
		s.routeChat(w, r, parts[3:])
	case len(parts) >= 3 && parts[0] == "api":
		kind, ok := records.ParseKind(parts[1])
		list := s.Lists[kind]
		if !ok || list == nil {
			http.NotFound(w, r)
			return
		}
		s.routeRecords(w, r, list, parts[2:])
	default:
		http.NotFound(w, r)
	}
}

// routeChat handles /api/chat/sessions[/{id}[/messages]].
func (s *Server) routeChat(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		s.handleOpenChat(w, r)
	case len(rest) == 1 && r.Method == http.MethodGet:
		s.handleGetChat(w, r, rest[0])
	case len(rest) == 1 && r.Method == http.MethodDelete:
		s.handleCloseChat(w, r, rest[0])
	case len(rest) == 2 && rest[1] == "messages" && r.Method == http.MethodPost:
		s.handleSendChat(w, r, rest[0])
	default:
		http.NotFound(w, r)
	}
}

// routeRecords handles /api/{kind}/records... and /api/{kind}/drafts...
func (s *Server) routeRecords(w http.ResponseWriter, r *http.Request, list *records.ListController, rest []string) {
	switch rest[0] {
	case "records":
		switch {
		case len(rest) == 1 && r.Method == http.MethodGet:
			s.handleListRecords(w, r, list)
		case len(rest) == 2 && r.Method == http.MethodDelete:
			s.handleDeleteRecord(w, r, list, rest[1])
		default:
			http.NotFound(w, r)
		}
	case "drafts":
		switch {
		case len(rest) == 1 && r.Method == http.MethodPost:
			s.handleOpenDraft(w, r, list)
		case len(rest) == 2 && r.Method == http.MethodGet:
			s.withDraft(w, r, list, rest[1], records.ActionView, s.handleGetDraft)
		case len(rest) == 2 && r.Method == http.MethodPatch:
			s.withDraft(w, r, list, rest[1], "", s.handleUpdateDraft)
		case len(rest) == 2 && r.Method == http.MethodDelete:
			s.withDraft(w, r, list, rest[1], records.ActionView, func(w http.ResponseWriter, r *http.Request, list *records.ListController, d *records.Draft) {
				list.Discard(d)
				w.WriteHeader(http.StatusNoContent)
			})
		case len(rest) == 3 && rest[2] == "image" && r.Method == http.MethodPost:
			s.withDraft(w, r, list, rest[1], "", s.handleAttachImage)
		case len(rest) == 3 && rest[2] == "analyze" && r.Method == http.MethodPost:
			s.withDraft(w, r, list, rest[1], records.ActionAnalyze, s.handleAnalyze)
		case len(rest) == 3 && rest[2] == "save" && r.Method == http.MethodPost:
			s.withDraft(w, r, list, rest[1], "", s.handleSaveDraft)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

type draftHandler func(w http.ResponseWriter, r *http.Request, list *records.ListController, d *records.Draft)

// withDraft resolves the draft and checks the role. An empty action means
// "the edit action of the draft": create for new drafts, update otherwise.
func (s *Server) withDraft(w http.ResponseWriter, r *http.Request, list *records.ListController, id string, action records.Action, h draftHandler) {
	d, err := list.Draft(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if action == "" {
		action = editAction(d)
	}
	if !s.allowed(w, r, action, list.Kind()) {
		return
	}
	h(w, r, list, d)
}

func editAction(d *records.Draft) records.Action {
	if d.IsNew() {
		return records.ActionCreate
	}
	return records.ActionUpdate
}

func (s *Server) allowed(w http.ResponseWriter, r *http.Request, action records.Action, kind records.Kind) bool {
	role := records.Role(r.Header.Get(RoleHeader))
	if records.CanPerform(role, action, kind) {
		return true
	}
	s.Logger.Info("request denied",
		zap.String("role", string(role)),
		zap.String("action", string(action)),
		zap.String("kind", string(kind)),
	)
	writeJSON(w, http.StatusForbidden, pkg.ErrorResponse{Error: "forbidden"})
	return false
}

func (s *Server) handleSymptomCheck(w http.ResponseWriter, r *http.Request) {
	var req pkg.SymptomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: "invalid json"})
		return
	}
	res, err := s.Symptoms.Check(r.Context(), req.Symptoms)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg.SymptomResponse{
		Analysis:     res.Analysis,
		AnalysisHTML: core.RenderHTML(core.Format(res.Analysis)),
		Department:   res.Department,
	})
}

func (s *Server) handleOpenChat(w http.ResponseWriter, r *http.Request) {
	c := core.NewChatController(s.Gateway, s.Logger)
	s.mu.Lock()
	s.chats[c.ID()] = &chatEntry{ctrl: c, lastUsed: s.now()}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, chatResponse(c))
}

func (s *Server) chat(id string) (*core.ChatSessionController, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.chats[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = s.now()
	return e.ctrl, true
}

// EvictIdleChats closes chat sessions unused for longer than maxIdle. A
// session waiting for a reply is kept. It returns the number evicted.
func (s *Server) EvictIdleChats(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	var idle []*core.ChatSessionController
	s.mu.Lock()
	for id, e := range s.chats {
		if e.lastUsed.Before(cutoff) && !e.ctrl.Pending() {
			idle = append(idle, e.ctrl)
			delete(s.chats, id)
		}
	}
	s.mu.Unlock()
	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		s.Logger.Info("evicted idle chat sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// RunChatJanitor evicts idle chat sessions every interval until ctx is
// done.
func (s *Server) RunChatJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdleChats(maxIdle)
		}
	}
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request, id string) {
	c, ok := s.chat(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse(c))
}

func (s *Server) handleCloseChat(w http.ResponseWriter, r *http.Request, id string) {
	s.mu.Lock()
	e, ok := s.chats[id]
	delete(s.chats, id)
	s.mu.Unlock()
	if ok {
		e.ctrl.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request, id string) {
	c, ok := s.chat(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req pkg.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: "invalid json"})
		return
	}
	if err := c.Send(r.Context(), req.Content); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse(c))
}

func chatResponse(c *core.ChatSessionController) pkg.ChatSessionResponse {
	msgs := c.Messages()
	views := make([]pkg.ChatMessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, pkg.ChatMessageView{ChatMessage: m, HTML: core.RenderHTML(core.Format(m.Content))})
	}
	return pkg.ChatSessionResponse{SessionID: c.ID(), Pending: c.Pending(), Messages: views}
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request, list *records.ListController) {
	if !s.allowed(w, r, records.ActionView, list.Kind()) {
		return
	}
	recs := list.List()
	views := make([]records.RecordView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, list.Kind().View(rec))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request, list *records.ListController, id string) {
	if !s.allowed(w, r, records.ActionDelete, list.Kind()) {
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		s.writeError(w, errConfirmationRequired)
		return
	}
	list.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenDraft(w http.ResponseWriter, r *http.Request, list *records.ListController) {
	var req pkg.DraftRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: "invalid json"})
			return
		}
	}
	if req.RecordID == "" {
		if !s.allowed(w, r, records.ActionCreate, list.Kind()) {
			return
		}
		writeJSON(w, http.StatusCreated, list.NewDraft().View())
		return
	}
	if !s.allowed(w, r, records.ActionUpdate, list.Kind()) {
		return
	}
	d, err := list.OpenDraft(req.RecordID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d.View())
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request, list *records.ListController, d *records.Draft) {
	writeJSON(w, http.StatusOK, d.View())
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request, list *records.ListController, d *records.Draft) {
	var req pkg.DraftFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: "invalid json"})
		return
	}
	err := d.Update(records.FieldUpdate{
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		Name:        req.Name,
		OrderDate:   req.OrderDate,
		Status:      req.Status,
		ResultText:  req.ResultText,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

func (s *Server) handleAttachImage(w http.ResponseWriter, r *http.Request, list *records.ListController, d *records.Draft) {
	body := r.Body
	if s.MaxImageBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.MaxImageBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, pkg.ErrorResponse{Error: "image too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: "read body"})
		return
	}
	img, err := imaging.Intake(data, r.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := d.AttachImage(img.DataURI()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, list *records.ListController, d *records.Draft) {
	if err := d.Analyze(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.View())
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request, list *records.ListController, d *records.Draft) {
	rec, err := list.Save(d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list.Kind().View(rec))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, records.ErrRecordNotFound),
		errors.Is(err, records.ErrDraftNotFound),
		errors.Is(err, records.ErrDraftClosed),
		errors.Is(err, core.ErrSessionClosed):
		status = http.StatusNotFound
	case errors.Is(err, records.ErrAnalysisInFlight),
		errors.Is(err, records.ErrAnalysisDiscarded),
		errors.Is(err, core.ErrSendPending):
		status = http.StatusConflict
	case errors.Is(err, records.ErrInvalidStatus),
		errors.Is(err, records.ErrNoImage),
		errors.Is(err, records.ErrAnalysisNotAllowed),
		errors.Is(err, core.ErrEmptyMessage),
		errors.Is(err, imaging.ErrEmptyImage),
		errors.Is(err, errConfirmationRequired):
		status = http.StatusBadRequest
	case errors.Is(err, imaging.ErrUnsupportedImage):
		status = http.StatusUnsupportedMediaType
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, pkg.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

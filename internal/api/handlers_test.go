package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/unomed/psi-backend/internal/api"
	"github.com/unomed/psi-backend/internal/assessment"
	"github.com/unomed/psi-backend/internal/db"
	"github.com/unomed/psi-backend/internal/notify"
	"github.com/unomed/psi-backend/internal/recurrence"
	"github.com/unomed/psi-backend/internal/reminder"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubQuerier satisfies db.Querier with in-memory state.
// Fields may be set per-test to control behaviour.
type stubQuerier struct {
	db.Querier // embedded to panic on unimplemented methods

	assessments map[uuid.UUID]db.AssessmentInstance
	templates   map[uuid.UUID]db.QuestionnaireTemplate
	questions   map[uuid.UUID][]db.Question
	tokens      map[string]db.AccessToken
	riskConfigs map[uuid.UUID]db.RiskConfigRow
	reminders   map[uuid.UUID][]db.ReminderWorkItem

	tokenLookups int
}

func newStubQuerier() *stubQuerier {
	return &stubQuerier{
		assessments: make(map[uuid.UUID]db.AssessmentInstance),
		templates:   make(map[uuid.UUID]db.QuestionnaireTemplate),
		questions:   make(map[uuid.UUID][]db.Question),
		tokens:      make(map[string]db.AccessToken),
		riskConfigs: make(map[uuid.UUID]db.RiskConfigRow),
		reminders:   make(map[uuid.UUID][]db.ReminderWorkItem),
	}
}

func (q *stubQuerier) GetAssessmentByID(_ context.Context, id uuid.UUID) (db.AssessmentInstance, error) {
	a, ok := q.assessments[id]
	if !ok {
		return db.AssessmentInstance{}, sql.ErrNoRows
	}
	return a, nil
}

func (q *stubQuerier) CancelAssessment(_ context.Context, id uuid.UUID) (db.AssessmentInstance, error) {
	a, ok := q.assessments[id]
	if !ok || a.Status.Terminal() {
		return db.AssessmentInstance{}, sql.ErrNoRows
	}
	a.Status = assessment.StatusCancelled
	q.assessments[id] = a
	return a, nil
}

func (q *stubQuerier) GetTemplateByID(_ context.Context, id uuid.UUID) (db.QuestionnaireTemplate, error) {
	t, ok := q.templates[id]
	if !ok {
		return db.QuestionnaireTemplate{}, sql.ErrNoRows
	}
	return t, nil
}

func (q *stubQuerier) ListQuestionsByTemplate(_ context.Context, templateID uuid.UUID) ([]db.Question, error) {
	return q.questions[templateID], nil
}

func (q *stubQuerier) GetAccessToken(_ context.Context, value string) (db.AccessToken, error) {
	q.tokenLookups++
	t, ok := q.tokens[value]
	if !ok {
		return db.AccessToken{}, sql.ErrNoRows
	}
	return t, nil
}

func (q *stubQuerier) GetRiskConfig(_ context.Context, companyID uuid.UUID) (db.RiskConfigRow, error) {
	c, ok := q.riskConfigs[companyID]
	if !ok {
		return db.RiskConfigRow{}, sql.ErrNoRows
	}
	return c, nil
}

func (q *stubQuerier) UpsertRiskConfig(_ context.Context, p db.UpsertRiskConfigParams) (db.RiskConfigRow, error) {
	row := db.RiskConfigRow{
		CompanyID:          p.CompanyID,
		LowThreshold:       p.LowThreshold,
		MediumThreshold:    p.MediumThreshold,
		DefaultRecurrence:  recurrence.Unit(p.DefaultRecurrence),
		LowRecurrence:      p.LowRecurrence,
		MediumRecurrence:   p.MediumRecurrence,
		HighRecurrence:     p.HighRecurrence,
		CriticalRecurrence: p.CriticalRecurrence,
		UpdatedAt:          time.Now(),
	}
	q.riskConfigs[p.CompanyID] = row
	return row, nil
}

func (q *stubQuerier) ListRemindersByEntity(_ context.Context, p db.ListRemindersByEntityParams) ([]db.ReminderWorkItem, error) {
	return q.reminders[p.EntityID], nil
}

// stubSender captures invites without hitting the network.
type stubSender struct {
	invites []notify.InviteParams
	err     error
}

func (m *stubSender) SendNotification(_ context.Context, _ notify.Message) error { return m.err }

func (m *stubSender) SendInvite(_ context.Context, p notify.InviteParams) error {
	m.invites = append(m.invites, p)
	return m.err
}

// stubWorker records enqueued work items.
type stubWorker struct {
	enqueued []uuid.UUID
	err      error
}

func (w *stubWorker) Enqueue(_ context.Context, id uuid.UUID) error {
	w.enqueued = append(w.enqueued, id)
	return w.err
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

type testDeps struct {
	q       *stubQuerier
	sender  *stubSender
	worker  *stubWorker
	handler http.Handler
}

func newTestServer(t *testing.T, cfgOverrides ...func(*api.Config)) *testDeps {
	t.Helper()

	q := newStubQuerier()
	sender := &stubSender{}
	wk := &stubWorker{}

	cfg := api.Config{
		Env:          "development",
		BaseURL:      "http://localhost:8080",
		TokenTTLDays: 7,
	}
	for _, fn := range cfgOverrides {
		fn(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Store-backed routes are covered by the integration tests; the nil store
	// here still exercises every validation path and all read routes.
	handler := api.NewServer(q, nil, sender, wk, cfg, logger)

	return &testDeps{
		q:       q,
		sender:  sender,
		worker:  wk,
		handler: handler,
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("decode response body: %v (raw: %s)", err, rr.Body.String())
	}
}

// seedAssessment stores an instance in the stub querier.
func seedAssessment(deps *testDeps, status assessment.Status) db.AssessmentInstance {
	a := db.AssessmentInstance{
		ID:            uuid.New(),
		CompanyID:     uuid.New(),
		EmployeeID:    uuid.New(),
		EmployeeName:  "Maria Souza",
		EmployeeEmail: "maria@example.com",
		TemplateID:    uuid.New(),
		Status:        status,
		ScheduledDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	deps.q.assessments[a.ID] = a
	return a
}

// seedPortal wires a full portal fixture: template, questions, assessment,
// and a valid token. Returns the portal path for the link.
func seedPortal(deps *testDeps) (db.AssessmentInstance, string) {
	a := seedAssessment(deps, assessment.StatusSent)
	deps.q.templates[a.TemplateID] = db.QuestionnaireTemplate{
		ID:       a.TemplateID,
		Name:     "Avaliação Psicossocial",
		ScaleMax: 5,
		Version:  1,
	}
	deps.q.questions[a.TemplateID] = []db.Question{
		{ID: uuid.New(), TemplateID: a.TemplateID, Prompt: "Pergunta 1", Category: "Exigências do Trabalho", Weight: 1, Position: 1},
		{ID: uuid.New(), TemplateID: a.TemplateID, Prompt: "Pergunta 2", Category: "Apoio Social", Weight: 1, Position: 2},
	}
	tokenValue := "tok_" + uuid.NewString()
	deps.q.tokens[tokenValue] = db.AccessToken{
		Token:        tokenValue,
		AssessmentID: a.ID,
		EmployeeID:   a.EmployeeID,
		ExpiresAt:    time.Now().AddDate(0, 0, 7),
	}
	path := "/api/portal/" + a.TemplateID.String() +
		"?assessment=" + a.ID.String() +
		"&employee=" + a.EmployeeID.String() +
		"&token=" + tokenValue
	return a, path
}

// ─── GET /healthz ─────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

// ─── POST /api/assessments ───────────────────────────────────────────────────

func TestScheduleAssessment_InvalidInputReturns400(t *testing.T) {
	valid := map[string]any{
		"company_id":     uuid.NewString(),
		"employee_id":    uuid.NewString(),
		"employee_name":  "Maria Souza",
		"employee_email": "maria@example.com",
		"template_id":    uuid.NewString(),
		"scheduled_date": "2025-06-15",
	}

	tests := []struct {
		name     string
		mutate   func(m map[string]any)
	}{
		{"bad company_id", func(m map[string]any) { m["company_id"] = "not-a-uuid" }},
		{"bad employee_id", func(m map[string]any) { m["employee_id"] = "nope" }},
		{"bad template_id", func(m map[string]any) { m["template_id"] = "" }},
		{"missing name", func(m map[string]any) { m["employee_name"] = "  " }},
		{"missing email", func(m map[string]any) { m["employee_email"] = "" }},
		{"bad date", func(m map[string]any) { m["scheduled_date"] = "15/06/2025" }},
		{"bad recurrence", func(m map[string]any) { m["recurrence"] = "fortnightly" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestServer(t)
			body := make(map[string]any, len(valid)+1)
			for k, v := range valid {
				body[k] = v
			}
			tt.mutate(body)

			rr := doRequest(t, deps.handler, http.MethodPost, "/api/assessments", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestScheduleAssessment_InvalidJSONReturns400(t *testing.T) {
	deps := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/assessments", bytes.NewBufferString(`{bad json`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	deps.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

// ─── GET /api/assessments/:assessmentID ──────────────────────────────────────

func TestGetAssessment_UnknownReturns404(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/api/assessments/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetAssessment_InvalidIDReturns400(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/api/assessments/not-a-uuid", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetAssessment_ReturnsInstance(t *testing.T) {
	deps := newTestServer(t)
	a := seedAssessment(deps, assessment.StatusScheduled)

	rr := doRequest(t, deps.handler, http.MethodGet, "/api/assessments/"+a.ID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		ScheduledDate string `json:"scheduled_date"`
		EmployeeName  string `json:"employee_name"`
	}
	decodeJSON(t, rr, &resp)

	if resp.ID != a.ID.String() {
		t.Errorf("id: got %q", resp.ID)
	}
	if resp.Status != "scheduled" {
		t.Errorf("status: got %q", resp.Status)
	}
	if resp.ScheduledDate != "2025-06-15" {
		t.Errorf("scheduled_date: got %q", resp.ScheduledDate)
	}
	if resp.EmployeeName != "Maria Souza" {
		t.Errorf("employee_name: got %q", resp.EmployeeName)
	}
}

// ─── POST /api/assessments/:assessmentID/cancel ──────────────────────────────

func TestCancelAssessment_ScheduledBecomesCancelled(t *testing.T) {
	deps := newTestServer(t)
	a := seedAssessment(deps, assessment.StatusScheduled)

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/assessments/"+a.ID.String()+"/cancel", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Status != "cancelled" {
		t.Errorf("status: got %q", resp.Status)
	}
}

func TestCancelAssessment_CompletedReturns409(t *testing.T) {
	deps := newTestServer(t)
	a := seedAssessment(deps, assessment.StatusCompleted)

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/assessments/"+a.ID.String()+"/cancel", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCancelAssessment_UnknownReturns404(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/assessments/"+uuid.NewString()+"/cancel", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// ─── GET /api/assessments/:assessmentID/reminders ────────────────────────────

func TestListAssessmentReminders_ReturnsItems(t *testing.T) {
	deps := newTestServer(t)
	a := seedAssessment(deps, assessment.StatusScheduled)
	deps.q.reminders[a.ID] = []db.ReminderWorkItem{
		{
			ID:           uuid.New(),
			EntityType:   reminder.EntityAssessment,
			EntityID:     a.ID,
			ReminderType: reminder.TypeAssessmentDue,
			LeadDays:     7,
			FireAt:       time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC),
			Priority:     reminder.PriorityMedium,
			Status:       reminder.StatusScheduled,
		},
	}

	rr := doRequest(t, deps.handler, http.MethodGet, "/api/assessments/"+a.ID.String()+"/reminders", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Reminders []struct {
			ReminderType string `json:"reminder_type"`
			LeadDays     int16  `json:"lead_days"`
			Status       string `json:"status"`
		} `json:"reminders"`
	}
	decodeJSON(t, rr, &resp)

	if len(resp.Reminders) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(resp.Reminders))
	}
	if resp.Reminders[0].ReminderType != "assessment_due" {
		t.Errorf("reminder_type: got %q", resp.Reminders[0].ReminderType)
	}
	if resp.Reminders[0].LeadDays != 7 {
		t.Errorf("lead_days: got %d", resp.Reminders[0].LeadDays)
	}
}

// ─── GET /api/portal/:templateID ─────────────────────────────────────────────

func TestOpenPortal_MissingParamsRejectedBeforeTokenLookup(t *testing.T) {
	deps := newTestServer(t)
	a, _ := seedPortal(deps)
	deps.q.tokenLookups = 0

	paths := []string{
		"/api/portal/" + a.TemplateID.String(),
		"/api/portal/" + a.TemplateID.String() + "?assessment=" + a.ID.String(),
		"/api/portal/" + a.TemplateID.String() + "?assessment=" + a.ID.String() + "&employee=" + a.EmployeeID.String(),
		"/api/portal/" + a.TemplateID.String() + "?employee=" + a.EmployeeID.String() + "&token=x",
	}
	for _, path := range paths {
		rr := doRequest(t, deps.handler, http.MethodGet, path, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rr.Code)
		}
	}
	if deps.q.tokenLookups != 0 {
		t.Errorf("token looked up %d times on structurally invalid links", deps.q.tokenLookups)
	}
}

func TestOpenPortal_UnknownTokenReturns404(t *testing.T) {
	deps := newTestServer(t)
	a, _ := seedPortal(deps)

	path := "/api/portal/" + a.TemplateID.String() +
		"?assessment=" + a.ID.String() +
		"&employee=" + a.EmployeeID.String() +
		"&token=unknown"
	rr := doRequest(t, deps.handler, http.MethodGet, path, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOpenPortal_ExpiredTokenReturns410(t *testing.T) {
	deps := newTestServer(t)
	_, path := seedPortal(deps)

	for value, tok := range deps.q.tokens {
		tok.ExpiresAt = time.Now().AddDate(0, 0, -1)
		deps.q.tokens[value] = tok
	}

	rr := doRequest(t, deps.handler, http.MethodGet, path, nil)
	if rr.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOpenPortal_RedeemedTokenReturns409(t *testing.T) {
	deps := newTestServer(t)
	_, path := seedPortal(deps)

	for value, tok := range deps.q.tokens {
		tok.RedeemedAt = sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true}
		deps.q.tokens[value] = tok
	}

	rr := doRequest(t, deps.handler, http.MethodGet, path, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOpenPortal_MismatchedEmployeeReturns403(t *testing.T) {
	deps := newTestServer(t)
	a, _ := seedPortal(deps)

	var tokenValue string
	for value := range deps.q.tokens {
		tokenValue = value
	}
	path := "/api/portal/" + a.TemplateID.String() +
		"?assessment=" + a.ID.String() +
		"&employee=" + uuid.NewString() + // someone else's link
		"&token=" + tokenValue

	rr := doRequest(t, deps.handler, http.MethodGet, path, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOpenPortal_ValidLinkReturnsQuestionnaire(t *testing.T) {
	deps := newTestServer(t)
	_, path := seedPortal(deps)

	rr := doRequest(t, deps.handler, http.MethodGet, path, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		TemplateName string `json:"template_name"`
		ScaleMax     int16  `json:"scale_max"`
		Questions    []struct {
			Prompt   string `json:"prompt"`
			Category string `json:"category"`
		} `json:"questions"`
	}
	decodeJSON(t, rr, &resp)

	if resp.TemplateName != "Avaliação Psicossocial" {
		t.Errorf("template_name: got %q", resp.TemplateName)
	}
	if resp.ScaleMax != 5 {
		t.Errorf("scale_max: got %d", resp.ScaleMax)
	}
	if len(resp.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(resp.Questions))
	}
}

func TestOpenPortal_OpeningNeverRedeemsToken(t *testing.T) {
	deps := newTestServer(t)
	_, path := seedPortal(deps)

	// Open twice; both must succeed because the token is only checked, never
	// redeemed, at portal open.
	for i := 0; i < 2; i++ {
		rr := doRequest(t, deps.handler, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("open %d: expected 200, got %d", i+1, rr.Code)
		}
	}
}

// ─── POST /api/portal/:templateID/responses ──────────────────────────────────

func TestSubmitResponses_EmptyAnswersReturns400(t *testing.T) {
	deps := newTestServer(t)
	_, path := seedPortal(deps)

	// Same link components, submission route.
	submitPath := strings.Replace(path, "?", "/responses?", 1)
	rr := doRequest(t, deps.handler, http.MethodPost, submitPath,
		map[string]any{"answers": map[string]int{}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

// ─── GET /api/companies/:companyID/risk-config ───────────────────────────────

func TestGetRiskConfig_NoRowReturnsDefaults(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet,
		"/api/companies/"+uuid.NewString()+"/risk-config", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		LowThreshold    int16 `json:"low_threshold"`
		MediumThreshold int16 `json:"medium_threshold"`
		Defaults        bool  `json:"defaults"`
	}
	decodeJSON(t, rr, &resp)

	if !resp.Defaults {
		t.Error("expected defaults flag for a tenant with no stored config")
	}
	if resp.LowThreshold != 30 || resp.MediumThreshold != 60 {
		t.Errorf("thresholds: got %d/%d, want 30/60", resp.LowThreshold, resp.MediumThreshold)
	}
}

// ─── PUT /api/companies/:companyID/risk-config ───────────────────────────────

func TestPutRiskConfig_InvalidThresholdsReturns400(t *testing.T) {
	tests := []struct {
		name string
		low  int16
		med  int16
	}{
		{"low above medium", 70, 60},
		{"low equals medium", 50, 50},
		{"medium at ceiling", 10, 100},
		{"negative low", -1, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestServer(t)
			rr := doRequest(t, deps.handler, http.MethodPut,
				"/api/companies/"+uuid.NewString()+"/risk-config",
				map[string]any{"low_threshold": tt.low, "medium_threshold": tt.med})
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestPutRiskConfig_InvalidRecurrenceReturns400(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPut,
		"/api/companies/"+uuid.NewString()+"/risk-config",
		map[string]any{
			"low_threshold":   30,
			"medium_threshold": 60,
			"high_recurrence": "weekly",
		})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestPutRiskConfig_RoundTrip(t *testing.T) {
	deps := newTestServer(t)
	companyID := uuid.NewString()

	rr := doRequest(t, deps.handler, http.MethodPut,
		"/api/companies/"+companyID+"/risk-config",
		map[string]any{
			"low_threshold":      25,
			"medium_threshold":   55,
			"default_recurrence": "annual",
			"critical_recurrence": "monthly",
		})
	if rr.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, deps.handler, http.MethodGet,
		"/api/companies/"+companyID+"/risk-config", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rr.Code)
	}

	var resp struct {
		LowThreshold       int16  `json:"low_threshold"`
		MediumThreshold    int16  `json:"medium_threshold"`
		DefaultRecurrence  string `json:"default_recurrence"`
		CriticalRecurrence string `json:"critical_recurrence"`
		Defaults           bool   `json:"defaults"`
	}
	decodeJSON(t, rr, &resp)

	if resp.Defaults {
		t.Error("stored config must not report defaults")
	}
	if resp.LowThreshold != 25 || resp.MediumThreshold != 55 {
		t.Errorf("thresholds: got %d/%d", resp.LowThreshold, resp.MediumThreshold)
	}
	if resp.DefaultRecurrence != "annual" {
		t.Errorf("default_recurrence: got %q", resp.DefaultRecurrence)
	}
	if resp.CriticalRecurrence != "monthly" {
		t.Errorf("critical_recurrence: got %q", resp.CriticalRecurrence)
	}
}

// ─── POST /api/templates ─────────────────────────────────────────────────────

func TestCreateTemplate_InvalidInputReturns400(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{
			"name": "", "scale_max": 5,
			"questions": []map[string]any{{"prompt": "P", "category": "C"}},
		}},
		{"scale too small", map[string]any{
			"name": "T", "scale_max": 1,
			"questions": []map[string]any{{"prompt": "P", "category": "C"}},
		}},
		{"no questions", map[string]any{
			"name": "T", "scale_max": 5, "questions": []map[string]any{},
		}},
		{"question without category", map[string]any{
			"name": "T", "scale_max": 5,
			"questions": []map[string]any{{"prompt": "P", "category": ""}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestServer(t)
			rr := doRequest(t, deps.handler, http.MethodPost, "/api/templates", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

// ─── POST /api/action-plans ──────────────────────────────────────────────────

func TestCreateActionPlan_InvalidInputReturns400(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad company_id", map[string]any{
			"company_id": "nope", "title": "Plano", "due_date": "2025-07-01",
		}},
		{"missing title", map[string]any{
			"company_id": uuid.NewString(), "title": " ", "due_date": "2025-07-01",
		}},
		{"bad due_date", map[string]any{
			"company_id": uuid.NewString(), "title": "Plano", "due_date": "01/07/2025",
		}},
		{"bad assessment_id", map[string]any{
			"company_id": uuid.NewString(), "title": "Plano",
			"due_date": "2025-07-01", "assessment_id": "nope",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestServer(t)
			rr := doRequest(t, deps.handler, http.MethodPost, "/api/action-plans", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

// ─── CORS ─────────────────────────────────────────────────────────────────────

func TestCORS_PreflightReturns204(t *testing.T) {
	deps := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/assessments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	deps.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing Access-Control-Allow-Origin header")
	}
}

func TestCORS_NoOriginHeader_SkipsCORSHeaders(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("should not set CORS headers when no Origin present")
	}
}

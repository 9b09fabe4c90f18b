package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medbot-server/internal/accounts"
	"medbot-server/internal/appointments"
	"medbot-server/internal/classifier"
	"medbot-server/internal/config"
	"medbot-server/internal/conversation"
	"medbot-server/internal/directory"
	"medbot-server/internal/handlers"
	"medbot-server/internal/history"
	"medbot-server/internal/logging"
	"medbot-server/internal/metrics"
	"medbot-server/internal/models"
	"medbot-server/internal/specialty"
	"medbot-server/internal/store"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	router *gin.Engine
	dir    *directory.Directory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logging.Discard()

	cfg := &config.Config{
		Origin:                    "http://localhost:4200",
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      5,
		JWTRefreshExpirationHours: 1,
		RecommendTopN:             3,
	}

	tmp := t.TempDir()
	appts, err := store.NewCSVAppointmentStore(filepath.Join(tmp, "appointments.csv"))
	require.NoError(t, err)
	records, err := store.NewCSVHistoryStore(filepath.Join(tmp, "history.csv"))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	resolver := specialty.Default()
	dir := directory.New([]models.Doctor{
		{Name: "Dr. Low GP", Specialty: "General Physician", Rating: 4.2},
		{Name: "Dr. High GP", Specialty: "General Physician", Rating: 4.8, Slots: models.SlotList{"9:00 AM", "11:00 AM"}},
		{Name: "Dr. Skin", Specialty: "Dermatologist", Rating: 4.5},
	}, nil, logger)

	corpus := &classifier.Corpus{Intents: []classifier.Intent{{
		Tag:               "fever",
		Patterns:          []string{"i have a fever"},
		Responses:         []string{"Sorry to hear that."},
		FollowUpQuestions: []string{"How long have you had it?"},
	}}}
	adapter := classifier.NewAdapter(corpus, nil, logger, classifier.WithPicker(func(int) int { return 0 }))
	conversations := conversation.NewService(conversation.NewController(adapter), conversation.NewMemorySessionStore(), logger, m)

	mgr := appointments.NewManager(appts, records, logger, m)
	accts, err := accounts.NewRegistry(accounts.Credentials{
		AdminPassword:   "admin_pass",
		PatientPassword: "patient_pass",
		DoctorPassword:  "doctor_pass",
		BcryptCost:      4,
	}, dir.List(), logger)
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, Services{
		Accounts:      accts,
		Appointments:  mgr,
		Conversations: conversations,
		Directory:     dir,
		Ranker:        directory.NewRanker(dir, resolver, m),
		Resolver:      resolver,
		History:       history.NewService(mgr, records),
		Logger:        logger,
		Gatherer:      reg,
	}, cfg)
	return &testServer{router: router, dir: dir}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (s *testServer) login(t *testing.T, username, password string, role models.Role) string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username, "password": password, "role": string(role),
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestPatientToDoctorFlow(t *testing.T) {
	s := newTestServer(t)
	patient := s.login(t, "patient_user", "patient_pass", models.RolePatient)

	code, _ := s.do(t, http.MethodGet, "/api/v1/doctors/recommended", patient, nil)
	assert.Equal(t, http.StatusConflict, code, "no symptom yet")

	code, env := s.do(t, http.MethodPost, "/api/v1/chat/symptom", patient, map[string]string{"text": "I have a fever"})
	require.Equal(t, http.StatusOK, code, env.Error)
	ex := decode[conversation.Exchange](t, env)
	assert.Equal(t, "How long have you had it?", ex.Reply.Question)
	assert.True(t, ex.State.AskingFollowUp)

	code, _ = s.do(t, http.MethodPost, "/api/v1/chat/symptom", patient, map[string]string{"text": "and a cough"})
	assert.Equal(t, http.StatusConflict, code, "question still pending")

	code, env = s.do(t, http.MethodPost, "/api/v1/chat/answer", patient, map[string]string{"answer": "two days"})
	require.Equal(t, http.StatusOK, code, env.Error)
	ex = decode[conversation.Exchange](t, env)
	assert.True(t, ex.Reply.Resolved)
	assert.Equal(t, "fever", ex.Reply.Symptom)

	code, env = s.do(t, http.MethodGet, "/api/v1/doctors/recommended", patient, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var rec struct {
		Specialty string `json:"specialty"`
		Fallback  bool   `json:"fallback"`
		Doctors   []struct {
			Username      string   `json:"username"`
			BookableSlots []string `json:"bookableSlots"`
		} `json:"doctors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "General Physician", rec.Specialty)
	assert.False(t, rec.Fallback)
	require.Len(t, rec.Doctors, 2)
	assert.Equal(t, "dr_high_gp", rec.Doctors[0].Username)
	assert.Equal(t, []string{"9:00 AM", "11:00 AM"}, rec.Doctors[0].BookableSlots)
	assert.Equal(t, []string{"Any time"}, rec.Doctors[1].BookableSlots)

	code, _ = s.do(t, http.MethodPost, "/api/v1/appointments", patient, map[string]string{"doctorUsername": "dr_high_gp", "time": "3:00 PM"})
	assert.Equal(t, http.StatusBadRequest, code, "slot not offered")

	code, env = s.do(t, http.MethodPost, "/api/v1/appointments", patient, map[string]string{"doctorUsername": "dr_high_gp", "time": "11:00 AM"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	booked := decode[models.Appointment](t, env)
	assert.Equal(t, models.StatusPending, booked.Status)
	assert.Equal(t, "fever", booked.Symptom)
	assert.Equal(t, "Dr. High GP", booked.Doctor)

	code, env = s.do(t, http.MethodGet, "/api/v1/chat", patient, nil)
	require.Equal(t, http.StatusOK, code)
	st := decode[conversation.State](t, env)
	assert.Empty(t, st.SymptomsCollected, "booking clears the resolved symptom")
	assert.NotEmpty(t, st.Transcript, "transcript survives booking")

	code, env = s.do(t, http.MethodGet, "/api/v1/appointments/latest", patient, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, booked.ID, decode[models.Appointment](t, env).ID)

	other := s.login(t, "dr_low_gp", "doctor_pass", models.RoleDoctor)
	code, _ = s.do(t, http.MethodPatch, "/api/v1/doctor/appointments/"+booked.ID+"/status", other, map[string]string{"status": "Accepted"})
	assert.Equal(t, http.StatusForbidden, code)

	doctor := s.login(t, "Dr. High GP", "doctor_pass", models.RoleDoctor)
	code, env = s.do(t, http.MethodGet, "/api/v1/doctor/appointments", doctor, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.Appointment](t, env), 1)

	code, _ = s.do(t, http.MethodPatch, "/api/v1/doctor/appointments/"+booked.ID+"/status", doctor, map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusConflict, code, "pending cannot complete")

	code, _ = s.do(t, http.MethodPatch, "/api/v1/doctor/appointments/"+booked.ID+"/status", doctor, map[string]string{"status": "Cancelled"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPatch, "/api/v1/doctor/appointments/"+booked.ID+"/status", doctor, map[string]string{"status": "accepted"})
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, models.StatusAccepted, decode[models.Appointment](t, env).Status)

	code, env = s.do(t, http.MethodPatch, "/api/v1/doctor/appointments/status", doctor, map[string]string{
		"patient": "patient_user", "time": "11:00 AM", "status": "Completed",
	})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = s.do(t, http.MethodGet, "/api/v1/history", patient, nil)
	require.Equal(t, http.StatusOK, code)
	visits := decode[[]history.Visit](t, env)
	var sources []history.Source
	for _, v := range visits {
		sources = append(sources, v.Source)
	}
	assert.Contains(t, sources, history.SourceHistory)
	assert.Contains(t, sources, history.SourceAppointment)

	code, _ = s.do(t, http.MethodGet, "/api/v1/doctor/patients/patient_user/history", doctor, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/doctor/patients/patient_user/history", other, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestDoctorBulkDeleteValidation(t *testing.T) {
	s := newTestServer(t)
	doctor := s.login(t, "dr_high_gp", "doctor_pass", models.RoleDoctor)
	patient := s.login(t, "patient_user", "patient_pass", models.RolePatient)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments", patient, map[string]string{"doctorUsername": "dr_high_gp", "symptom": "fever"})
	require.Equal(t, http.StatusCreated, code, env.Error)

	for _, query := range []string{"", "?olderThanDays=0", "?olderThanDays=abc", "?olderThanDays=213504"} {
		code, _ := s.do(t, http.MethodDelete, "/api/v1/doctor/appointments"+query, doctor, nil)
		assert.Equal(t, http.StatusBadRequest, code, query)
	}

	code, env = s.do(t, http.MethodGet, "/api/v1/doctor/appointments", doctor, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.Appointment](t, env), 1, "rejected cutoffs delete nothing")

	code, env = s.do(t, http.MethodDelete, "/api/v1/doctor/appointments?olderThanDays=30", doctor, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var res struct {
		Removed int `json:"removed"`
		Days    int `json:"days"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 0, res.Removed)
	assert.Equal(t, 30, res.Days)
}

func TestAdminManagesDirectory(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, accounts.AdminUsername, "admin_pass", models.RoleAdmin)
	patient := s.login(t, "alice", "secret", models.RolePatient)

	code, _ := s.do(t, http.MethodGet, "/api/v1/admin/doctors", patient, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(t, http.MethodGet, "/api/v1/admin/specialties", admin, nil)
	require.Equal(t, http.StatusOK, code)
	specs := decode[[]string](t, env)
	assert.Equal(t, "General Physician", specs[0])

	code, env = s.do(t, http.MethodPost, "/api/v1/admin/doctors", admin, map[string]any{
		"name": "Dr. New Heart", "specialty": "Cardiologist", "rating": 4.6, "slots": "10:00 AM, 2:00 PM",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	added := decode[models.Doctor](t, env)
	assert.Equal(t, "dr_new_heart", added.Username)
	assert.Equal(t, models.SlotList{"10:00 AM", "2:00 PM"}, added.Slots)
	s.login(t, "dr_new_heart", "doctor_pass", models.RoleDoctor)

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/doctors", admin, map[string]any{
		"name": "Dr. New Heart", "specialty": "Cardiologist", "rating": 4.0,
	})
	assert.Equal(t, http.StatusConflict, code, "duplicate username")

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/doctors", admin, map[string]any{
		"name": "Dr. Bad", "specialty": "Cardiologist", "rating": 7,
	})
	assert.Equal(t, http.StatusBadRequest, code, "rating out of range")

	code, env = s.do(t, http.MethodPut, "/api/v1/admin/doctors/3", admin, map[string]any{
		"name": "Dr. New Heart", "specialty": "Cardiologist", "rating": 4.7, "slots": []string{"8:00 AM"}, "username": "heart_doc",
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	s.login(t, "heart_doc", "doctor_pass", models.RoleDoctor)
	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "dr_new_heart", "password": "doctor_pass", "role": "Doctor"})
	assert.Equal(t, http.StatusUnauthorized, code, "old login moved")

	// alice books the renamed doctor, then the doctor is removed
	code, env = s.do(t, http.MethodPost, "/api/v1/appointments", patient, map[string]string{"doctorUsername": "heart_doc", "symptom": "chest pain"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	assert.Equal(t, "8:00 AM", decode[models.Appointment](t, env).Time)

	code, _ = s.do(t, http.MethodPut, "/api/v1/admin/doctors/99", admin, map[string]any{"name": "X", "specialty": "Y"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, http.MethodDelete, "/api/v1/admin/doctors/3", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var removal struct {
		RemovedAppointments int `json:"removedAppointments"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &removal))
	assert.Equal(t, 1, removal.RemovedAppointments)
	assert.Equal(t, 3, s.dir.Len())

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/appointments", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]models.Appointment](t, env))

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "heart_doc", "password": "doctor_pass", "role": "Doctor"})
	assert.Equal(t, http.StatusUnauthorized, code, "login removed with the doctor")
}

func TestAdminAppointmentOperations(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, accounts.AdminUsername, "admin_pass", models.RoleAdmin)
	patient := s.login(t, "patient_user", "patient_pass", models.RolePatient)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments", patient, map[string]string{"doctorUsername": "dr_skin", "symptom": "rash"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	booked := decode[models.Appointment](t, env)
	assert.Equal(t, "Any time", booked.Time)

	code, _ = s.do(t, http.MethodPatch, "/api/v1/admin/appointments/"+booked.ID+"/status", admin, map[string]string{"status": "Rejected"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPatch, "/api/v1/admin/appointments/"+booked.ID+"/status", admin, map[string]string{"status": "Accepted"})
	assert.Equal(t, http.StatusConflict, code, "rejected is terminal")

	code, _ = s.do(t, http.MethodDelete, "/api/v1/admin/appointments/index/5/if-older?days=0", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodDelete, "/api/v1/admin/appointments/index/0/if-older?days=-1", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodDelete, "/api/v1/admin/appointments/index/0/if-older?days=213504", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodDelete, "/api/v1/admin/appointments/index/0/if-older?days=30", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var cond struct {
		Deleted bool `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cond))
	assert.False(t, cond.Deleted, "booked just now")

	code, _ = s.do(t, http.MethodDelete, "/api/v1/admin/appointments/index/x", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, env = s.do(t, http.MethodDelete, "/api/v1/admin/appointments/index/0", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, booked.ID, decode[models.Appointment](t, env).ID)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/admin/appointments/"+booked.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())

	s.login(t, "patient_user", "patient_pass", models.RolePatient)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "medbot_")
}

func TestChatStream(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "patient_user", "patient_pass", models.RolePatient)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	roundTrip := func(msg handlers.StreamMessage) handlers.StreamReply {
		t.Helper()
		require.NoError(t, conn.WriteJSON(msg))
		var reply handlers.StreamReply
		require.NoError(t, conn.ReadJSON(&reply))
		return reply
	}

	reply := roundTrip(handlers.StreamMessage{Type: "symptom", Text: "I have a fever"})
	require.Empty(t, reply.Error)
	assert.Equal(t, "How long have you had it?", reply.Exchange.Reply.Question)

	reply = roundTrip(handlers.StreamMessage{Type: "answer", Text: "   "})
	assert.Equal(t, conversation.ErrBlankAnswer.Error(), reply.Error)

	reply = roundTrip(handlers.StreamMessage{Type: "answer", Text: "since yesterday"})
	require.Empty(t, reply.Error)
	assert.True(t, reply.Exchange.Reply.Resolved)

	reply = roundTrip(handlers.StreamMessage{Type: "shout"})
	assert.NotEmpty(t, reply.Error)

	reply = roundTrip(handlers.StreamMessage{Type: "clear"})
	require.Empty(t, reply.Error)
	assert.Empty(t, reply.Exchange.State.Transcript)
}

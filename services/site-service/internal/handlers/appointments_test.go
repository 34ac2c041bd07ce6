package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/seiflawfirm/site/services/site-service/internal/model"
	"github.com/seiflawfirm/site/services/site-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func existing(id, date, slot string, st model.Status) model.Appointment {
	return model.Appointment{
		ID: id, ClientName: "Client " + id, Email: id + "@example.com",
		Date: mustDate(date), Time: slot, Service: "Business Law", Status: st,
	}
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestCreateAppointmentIsPublicAndPending(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/appointments",
		`{"clientName":"Jane","email":"jane@example.com","date":"2025-03-27","time":"10:00","service":"Business Law","status":"confirmed"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decode(t, rr.Body.Bytes())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Appointment created successfully", body["message"])

	a, err := env.appts.Get(t.Context(), body["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, a.Status)
}

func TestCreateAppointmentMissingField(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/appointments", `{"email":"jane@example.com","date":"2025-03-27","time":"10:00","service":"x"}`, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode(t, rr.Body.Bytes())
	assert.Equal(t, "Missing required fields", body["error"])
	assert.Equal(t, "clientName", body["field"])

	rr = env.do(t, http.MethodPost, "/api/appointments", `{`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateAppointmentIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	payload := `{"clientName":"Jane","email":"jane@example.com","date":"2025-03-27","time":"10:00","service":"Business Law"}`

	send := func() (int, string, string) {
		req := newJSONRequest(http.MethodPost, "/api/appointments", payload)
		req.Header.Set(IdempotencyKeyHeader, "abc")
		rr := serve(env, req)
		return rr.Code, decode(t, rr.Body.Bytes())["id"].(string), rr.Header().Get("Idempotent-Replayed")
	}
	code1, id1, replay1 := send()
	code2, id2, replay2 := send()
	assert.Equal(t, http.StatusCreated, code1)
	assert.Equal(t, http.StatusCreated, code2)
	assert.Equal(t, id1, id2)
	assert.Empty(t, replay1)
	assert.Equal(t, "true", replay2)

	list, _ := env.appts.List(t.Context(), storage.Filter{})
	assert.Len(t, list, 1)
}

func TestAppointmentAdminRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t, existing("a1", "2025-03-27", "09:00", model.StatusPending))

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/appointments", ""},
		{http.MethodGet, "/api/appointments/a1", ""},
		{http.MethodPut, "/api/appointments/a1", `{}`},
		{http.MethodPatch, "/api/appointments/a1/status", `{"status":"confirmed"}`},
	} {
		rr := env.do(t, tc.method, tc.path, tc.body, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.method+" "+tc.path)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rr.Body.String())
	}
}

func TestListAndGetAppointments(t *testing.T) {
	env := newTestEnv(t,
		existing("a1", "2025-03-27", "14:00", model.StatusPending),
		existing("a2", "2025-03-27", "09:00", model.StatusConfirmed),
		existing("a3", "2025-03-28", "09:00", model.StatusPending),
	)
	tok := env.token(t)

	rr := env.do(t, http.MethodGet, "/api/appointments?date=2025-03-27", "", tok)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Appointments []model.Appointment `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Appointments, 2)
	assert.Equal(t, "a2", list.Appointments[0].ID)

	rr = env.do(t, http.MethodGet, "/api/appointments?status=pending", "", tok)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list.Appointments, 2)

	rr = env.do(t, http.MethodGet, "/api/appointments?status=archived", "", tok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/appointments/a3", "", tok)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"appointment":`)

	rr = env.do(t, http.MethodGet, "/api/appointments/missing", "", tok)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Appointment not found"}`, rr.Body.String())
}

func TestUpdateAppointmentRequiresStatus(t *testing.T) {
	env := newTestEnv(t, existing("a1", "2025-03-27", "09:00", model.StatusPending))
	tok := env.token(t)

	rr := env.do(t, http.MethodPut, "/api/appointments/a1",
		`{"clientName":"Jane","email":"jane@example.com","date":"2025-03-27","time":"10:00","service":"Business Law"}`, tok)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "status", decode(t, rr.Body.Bytes())["field"])

	rr = env.do(t, http.MethodPut, "/api/appointments/a1",
		`{"clientName":"Jane","email":"jane@example.com","date":"2025-03-27","time":"10:00","service":"Business Law","status":"confirmed"}`, tok)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Appointment updated successfully", decode(t, rr.Body.Bytes())["message"])

	rr = env.do(t, http.MethodPut, "/api/appointments/nope",
		`{"clientName":"Jane","email":"jane@example.com","date":"2025-03-27","time":"10:00","service":"Business Law","status":"confirmed"}`, tok)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSetStatusIsIdempotent(t *testing.T) {
	env := newTestEnv(t, existing("a1", "2025-03-27", "09:00", model.StatusPending))
	tok := env.token(t)

	rr := env.do(t, http.MethodPatch, "/api/appointments/a1/status", `{"status":"confirmed"}`, tok)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr.Body.Bytes())["changed"])

	rr = env.do(t, http.MethodPatch, "/api/appointments/a1/status", `{"status":"confirmed"}`, tok)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr.Body.Bytes())["changed"])

	rr = env.do(t, http.MethodPatch, "/api/appointments/a1/status", `{"status":""}`, tok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/seiflawfirm/site/services/site-service/internal/availability"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthGrid(t *testing.T) {
	env := newTestEnv(t,
		existing("a1", "2025-03-27", "09:00", model.StatusPending),
		existing("a2", "2025-03-27", "14:00", model.StatusPending),
	)

	rr := env.do(t, http.MethodGet, "/api/availability?month=2025-03", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp monthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.Equal(t, "2025-03", resp.Month)
	assert.False(t, resp.CanGoBack)
	assert.Equal(t, "2025-04", resp.Next)
	require.Len(t, resp.Days, 42)
	assert.Equal(t, "2025-02-24", resp.Days[0].Date.String())
	assert.False(t, resp.Days[0].InMonth)

	byDate := map[string]availability.Status{}
	for _, d := range resp.Days {
		byDate[d.Date.String()] = d.Status
	}
	assert.Equal(t, availability.Unavailable, byDate["2025-03-19"])
	assert.Equal(t, availability.Unavailable, byDate["2025-03-22"])
	assert.Equal(t, availability.Available, byDate["2025-03-20"])
	assert.Equal(t, availability.PartiallyBooked, byDate["2025-03-27"])
	assert.NotContains(t, rr.Body.String(), "a1@example.com")
}

func TestMonthRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/availability?month=March", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSlotsForPartialAndFullDays(t *testing.T) {
	env := newTestEnv(t,
		existing("a1", "2025-03-27", "09:00", model.StatusPending),
		existing("a2", "2025-03-27", "14:00", model.StatusPending),
		existing("b1", "2025-03-28", "09:00", model.StatusPending),
		existing("b2", "2025-03-28", "10:00", model.StatusConfirmed),
		existing("b3", "2025-03-28", "11:00", model.StatusPending),
	)

	rr := env.do(t, http.MethodGet, "/api/availability/slots?date=2025-03-27", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp slotsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, availability.PartiallyBooked, resp.Status)
	values := make([]string, 0, len(resp.Slots))
	for _, s := range resp.Slots {
		values = append(values, s.Value)
	}
	assert.Equal(t, []string{"10:00", "11:00", "13:00", "15:00", "16:00"}, values)
	assert.Equal(t, "01:00 PM", resp.Slots[2].Label)

	rr = env.do(t, http.MethodGet, "/api/availability/slots?date=2025-03-28", "", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, availability.FullyBooked, resp.Status)
	require.Len(t, resp.Slots, 4)
	assert.Equal(t, "13:00", resp.Slots[0].Value)

	rr = env.do(t, http.MethodGet, "/api/availability/slots", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBlockedDatesAffectClassification(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t)

	rr := env.do(t, http.MethodPost, "/api/availability/blocked", `{"date":"2025-03-26","reason":"Court"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/availability/blocked", `{"date":"2025-03-26","reason":"Court"}`, tok)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/availability/slots?date=2025-03-26", "", "")
	var resp slotsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, availability.Unavailable, resp.Status)
	assert.Empty(t, resp.Slots)

	rr = env.do(t, http.MethodGet, "/api/availability/blocked", "", tok)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2025-03-26")

	rr = env.do(t, http.MethodDelete, "/api/availability/blocked/2025-03-26", "", tok)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodDelete, "/api/availability/blocked/2025-03-26", "", tok)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

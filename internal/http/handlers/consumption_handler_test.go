package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-water-backend/internal/domain"
	"github.com/tbourn/go-water-backend/internal/repo"
	"github.com/tbourn/go-water-backend/internal/services"
)

func TestWaterConsumptionData_OK(t *testing.T) {
	svc := &fakeSvc{series: domain.NewConsumptionSeries([]domain.ConsumptionRecord{
		{ConsumptionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), WaterConsumption: ptrF(1.5), Status: ptrS("OK")},
		{ConsumptionDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), WaterConsumption: nil, Status: nil},
	})}
	w := doGET(newEngine(svc), "/api/water-consumption-data?page=100")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, svc.gotPage, "page is passed through as the offset")
	assert.JSONEq(t,
		`{"xValues":["2024-01-01T00:00:00","2024-01-02T00:00:00"],"yValues":[1.5,null],"statuses":["OK",null]}`,
		w.Body.String())
}

func TestWaterConsumptionData_DefaultPageIsZero(t *testing.T) {
	svc := &fakeSvc{series: domain.NewConsumptionSeries(nil)}
	w := doGET(newEngine(svc), "/api/water-consumption-data")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, svc.gotPage)
	assert.JSONEq(t, `{"xValues":[],"yValues":[],"statuses":[]}`, w.Body.String())
}

func TestWaterConsumptionData_BadPage(t *testing.T) {
	for _, q := range []string{"abc", "-1", "1.5"} {
		svc := &fakeSvc{}
		w := doGET(newEngine(svc), "/api/water-consumption-data?page="+q)
		require.Equal(t, http.StatusBadRequest, w.Code, "page=%s", q)
		assert.Zero(t, svc.calls, "no database work for page=%s", q)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, ErrCodeBadRequest, body.Code)
		assert.NotEmpty(t, body.Error)
	}
}

func TestWaterConsumptionData_DBErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"connection", &repo.ConnectionError{Driver: "oracle", Err: errors.New("ORA-12541: TNS:no listener")}, ErrCodeDBUnavailable},
		{"query", errors.New("ORA-00942: table or view does not exist"), ErrCodeQueryFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doGET(newEngine(&fakeSvc{err: tc.err}), "/api/water-consumption-data?page=0")
			require.Equal(t, http.StatusInternalServerError, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.err.Error(), body["error"])
			assert.Equal(t, tc.code, body["code"])
		})
	}
}

func TestWaterConsumptionData_ServiceRejectsPage(t *testing.T) {
	w := doGET(newEngine(&fakeSvc{err: services.ErrInvalidPage}), "/api/water-consumption-data?page=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetchViewData_OK(t *testing.T) {
	svc := &fakeSvc{rows: []domain.Row{
		{"CONSUMPTION_DATE": "2024-01-01T00:00:00", "WATER_CONSUMPTION": 3.0, "STATUS": "OK"},
	}}
	w := doGET(newEngine(svc), "/fetch-view-data")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"CONSUMPTION_DATE":"2024-01-01T00:00:00","STATUS":"OK","WATER_CONSUMPTION":3}]`, w.Body.String())
}

func TestFetchViewData_EmptyIsArray(t *testing.T) {
	w := doGET(newEngine(&fakeSvc{rows: []domain.Row{}}), "/fetch-view-data")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestFetchViewData_Error(t *testing.T) {
	w := doGET(newEngine(&fakeSvc{err: errors.New("ORA-01017: invalid username/password; logon denied")}), "/fetch-view-data")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ORA-01017: invalid username/password; logon denied", body["error"])
}

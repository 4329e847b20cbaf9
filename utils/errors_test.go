package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{Validation("bad input"), http.StatusBadRequest, "VALIDATION"},
		{NotFound("missing"), http.StatusNotFound, "NOT_FOUND"},
		{Forbidden("no"), http.StatusForbidden, "FORBIDDEN"},
		{Conflict("already done"), http.StatusConflict, "CONFLICT"},
		{Unauthorized("who"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)
		assert.Equal(t, tc.wantStatus, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.wantKind, body["kind"])
	}
}

func TestWriteErrorMasksInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("dial tcp 10.0.0.5:27017: connection refused"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
}

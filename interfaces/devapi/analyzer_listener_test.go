package devapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_HandleAnalysisResult(t *testing.T) {
	f := newDevFixture(t)
	f.signupAndLogin(t)
	recordID := f.upload(t, "monday.mp4")

	user, err := f.api.repo.UserByEmail(context.Background(), "mina@example.com")
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
	}{
		{"undecodable", `not json`},
		{"missing user", `{"record_id":"` + recordID + `"}`},
		{"unknown record", `{"record_id":"nope","user_id":"` + user.ID + `"}`},
		{"other user", `{"record_id":"` + recordID + `","user_id":"someone-else"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.api.HandleAnalysisResult(context.Background(), []byte(tt.payload))

			_, body := f.call(t, http.MethodGet, "/records/latest-status", "")
			assert.Equal(t, "processing", body["status"])
		})
	}

	f.api.HandleAnalysisResult(context.Background(), []byte(`{"record_id":"`+recordID+`","user_id":"`+user.ID+`"}`))

	_, body := f.call(t, http.MethodGet, "/records/latest-status", "")
	assert.Equal(t, recordID, body["record_id"])
	assert.Equal(t, "completed", body["status"])

	_, body = f.call(t, http.MethodGet, "/dashboard", "")
	assert.Len(t, body["reports"], 1)
}

package validator_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/bookcatalog/pkg/httpx"
	pkgvalidator "github.com/ghuser/bookcatalog/pkg/validator"
)

type authorReq struct {
	Name      string   `json:"name" validate:"required,max=16"`
	BirthDate string   `json:"birthDate" validate:"required,datetime=2006-01-02"`
	BookIDs   []string `json:"bookIds" validate:"omitempty,dive,uuid"`
	Status    string   `json:"status" validate:"omitempty,oneof=UNPUBLISHED PUBLISHED"`
}

const validBookID = "550e8400-e29b-41d4-a716-446655440000"

func TestFormatValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input authorReq
		field string
		want  string
	}{
		{"required", authorReq{BirthDate: "1980-01-01"}, "name", "This field is required"},
		{"max", authorReq{Name: strings.Repeat("x", 17), BirthDate: "1980-01-01"}, "name", "Maximum length is 16"},
		{"datetime", authorReq{Name: "Jane", BirthDate: "01/02/1980"}, "birthDate", "Must be a date in YYYY-MM-DD format"},
		{"dive uuid", authorReq{Name: "Jane", BirthDate: "1980-01-01", BookIDs: []string{validBookID, "nope"}}, "bookIds[1]", "Must be a valid UUID"},
		{"oneof", authorReq{Name: "Jane", BirthDate: "1980-01-01", Status: "DRAFT"}, "status", "Must be one of: UNPUBLISHED, PUBLISHED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pkgvalidator.Validate(&tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.want, pkgvalidator.FormatValidationErrors(err)[tt.field])
		})
	}
}

func TestFormatValidationErrors_NonValidationError(t *testing.T) {
	assert.Empty(t, pkgvalidator.FormatValidationErrors(errors.New("boom")))
}

func TestValidate_Valid(t *testing.T) {
	req := authorReq{Name: "Jane", BirthDate: "1980-01-01", BookIDs: []string{validBookID}}
	assert.NoError(t, pkgvalidator.Validate(&req))
}

func post(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/authors", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestValidateRequest_Valid(t *testing.T) {
	w := httptest.NewRecorder()
	req, ok := pkgvalidator.ValidateRequest[authorReq](w, post(`{"name":"Jane Doe","birthDate":"1980-01-01","bookIds":["`+validBookID+`"]}`))

	require.True(t, ok, w.Body.String())
	assert.Equal(t, "Jane Doe", req.Name)
	assert.Equal(t, []string{validBookID}, req.BookIDs)
}

func TestValidateRequest_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed json", "{bad json", "Invalid JSON"},
		{"empty body", "", "Request body is empty"},
		{"missing field", `{"name":"Jane Doe"}`, "Validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			_, ok := pkgvalidator.ValidateRequest[authorReq](w, post(tt.body))

			require.False(t, ok)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantErr, errorBody(t, w)["error"])
		})
	}
}

func TestValidateRequest_FieldsListed(t *testing.T) {
	w := httptest.NewRecorder()
	_, ok := pkgvalidator.ValidateRequest[authorReq](w, post(`{"name":"Jane","birthDate":"1980-13-01","bookIds":["x"]}`))

	require.False(t, ok)
	fields, _ := errorBody(t, w)["fields"].(map[string]any)
	assert.Contains(t, fields, "birthDate")
	assert.Contains(t, fields, "bookIds[0]")
}

func TestValidateRequest_BodyTooLarge(t *testing.T) {
	var (
		w  = httptest.NewRecorder()
		ok = true
	)
	h := httpx.RequestBodyLimit(32)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = pkgvalidator.ValidateRequest[authorReq](w, r)
	}))
	h.ServeHTTP(w, post(`{"name":"`+strings.Repeat("a", 64)+`","birthDate":"1980-01-01"}`))

	assert.False(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Request body exceeds 32 bytes", errorBody(t, w)["error"])
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imageRequest struct {
	URL    string `json:"url" validate:"required,url"`
	Width  int    `json:"width" validate:"gte=0"`
	Height int    `json:"height" validate:"gte=0"`
}

type itemRequest struct {
	PostType string `json:"post_type" validate:"required,post_type"`
	Status   string `json:"status" validate:"omitempty,post_status"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := imageRequest{URL: "https://example.com/a.jpg", Width: 800, Height: 600}
		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("missing required field uses json name", func(t *testing.T) {
		err := ValidateStruct(&imageRequest{Width: 1})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "url is required", fields["url"])
	})

	t.Run("negative size", func(t *testing.T) {
		err := ValidateStruct(&imageRequest{URL: "https://example.com/a.jpg", Width: -1, Height: -5})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "width must be greater than or equal to 0", fields["width"])
		assert.Contains(t, fields, "height")
	})

	t.Run("invalid url", func(t *testing.T) {
		err := ValidateStruct(&imageRequest{URL: "not a url"})
		require.Error(t, err)
		assert.Equal(t, "url must be a valid URL", GetValidationFields(err)["url"])
	})
}

func TestValidateStruct_CustomTags(t *testing.T) {
	tests := []struct {
		name       string
		req        itemRequest
		wantFields []string
	}{
		{name: "valid", req: itemRequest{PostType: "post", Status: "publish"}},
		{name: "status optional", req: itemRequest{PostType: "product_v2"}},
		{name: "uppercase type", req: itemRequest{PostType: "Post"}, wantFields: []string{"post_type"}},
		{name: "type with spaces", req: itemRequest{PostType: "my type"}, wantFields: []string{"post_type"}},
		{name: "unknown status", req: itemRequest{PostType: "post", Status: "published"}, wantFields: []string{"status"}},
		{name: "auto draft is known", req: itemRequest{PostType: "post", Status: "auto-draft"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			fields := GetValidationFields(err)
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestParseUUID(t *testing.T) {
	tests := []struct {
		name      string
		uuid      string
		wantError bool
	}{
		{name: "valid UUID", uuid: "550e8400-e29b-41d4-a716-446655440000"},
		{name: "wrong format", uuid: "not-a-uuid", wantError: true},
		{name: "empty string", uuid: "", wantError: true},
		{name: "missing parts", uuid: "550e8400-e29b-41d4", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseUUID(tt.uuid)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.uuid, id.String())
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "Test validation error", Fields: map[string]string{"field1": "error1"}}
	assert.Equal(t, "Test validation error", err.Error())
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Message: "test"}))
	assert.False(t, IsValidationError(assert.AnError))
}

func TestGetValidationFields(t *testing.T) {
	t.Run("gets fields from validation error", func(t *testing.T) {
		fields := map[string]string{"field1": "error1", "field2": "error2"}
		err := &ValidationError{Message: "test", Fields: fields}

		assert.Equal(t, fields, GetValidationFields(err))
	})

	t.Run("returns nil for non-validation error", func(t *testing.T) {
		assert.Nil(t, GetValidationFields(assert.AnError))
	})
}

package shared

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test",
			strings.NewReader(`{"front": "What is spaced repetition?", "chunk_index": 3}`))

		var target struct {
			Front      string `json:"front"`
			ChunkIndex int    `json:"chunk_index"`
		}
		require.NoError(t, DecodeJSON(req, &target))
		assert.Equal(t, "What is spaced repetition?", target.Front)
		assert.Equal(t, 3, target.ChunkIndex)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test",
			strings.NewReader(`{"front": "x",}`))

		var target struct{}
		err := DecodeJSON(req, &target)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid character")
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

		var target struct{}
		err := DecodeJSON(req, &target)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EOF")
	})
}

type brokenBody struct{}

func (brokenBody) Read(p []byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestDecodeJSONReadError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", brokenBody{})

	var target struct{}
	err := DecodeJSON(req, &target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected EOF")
}

// selfValidating exercises the Validate() fast path of ValidateRequest.
type selfValidating struct {
	Name string `validate:"required"`
	Age  int    `validate:"gte=18"`
}

func (v *selfValidating) Validate() error {
	if v.Name == "invalid" {
		return &validator.ValidationErrors{}
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	t.Run("custom Validate passing", func(t *testing.T) {
		assert.NoError(t, ValidateRequest(&selfValidating{Name: "test", Age: 20}))
	})

	t.Run("custom Validate failing", func(t *testing.T) {
		assert.Error(t, ValidateRequest(&selfValidating{Name: "invalid", Age: 20}))
	})

	t.Run("struct without Validate passes through tag validation", func(t *testing.T) {
		assert.NoError(t, ValidateRequest(&struct{ Name string }{"test"}))
	})
}

package handler

import (
	"bytes"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserQuery_PageBound(t *testing.T) {
	tests := []struct {
		query string
		page  int
		limit int
	}{
		{"page=9223372036854775807&limit=2", math.MaxInt / 2, 2},
		{"page=9223372036854775807", math.MaxInt / defaultLimit, defaultLimit},
		{"page=9223372036854775807&limit=1", math.MaxInt, 1},
		{"page=99999999999999999999", defaultPage, defaultLimit},
		{"page=3&limit=500", 3, maxLimit},
	}
	for _, tt := range tests {
		values, err := url.ParseQuery(tt.query)
		require.NoError(t, err)

		q, _, err := parseUserQuery(values)
		require.NoError(t, err, tt.query)
		assert.Equal(t, tt.page, q.Page, tt.query)
		assert.Equal(t, tt.limit, q.Limit, tt.query)
		assert.GreaterOrEqual(t, q.Offset(), 0, tt.query)
	}
}

func TestFormFile(t *testing.T) {
	t.Run("not multipart", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader("{}"))
		r.Header.Set("Content-Type", "application/json")

		fh, err := formFile(r, "file")
		assert.NoError(t, err)
		assert.Nil(t, fh)
	})

	t.Run("missing boundary", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(""))
		r.Header.Set("Content-Type", "multipart/form-data")

		fh, err := formFile(r, "file")
		assert.NoError(t, err)
		assert.Nil(t, fh)
	})

	t.Run("other field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("image", "a.png")
		require.NoError(t, err)
		_, _ = fw.Write([]byte("png"))
		require.NoError(t, mw.Close())

		r := httptest.NewRequest(http.MethodPut, "/", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())

		fh, err := formFile(r, "file")
		assert.NoError(t, err)
		assert.Nil(t, fh)
	})

	t.Run("read failure", func(t *testing.T) {
		readErr := errors.New("connection reset")
		var head bytes.Buffer
		mw := multipart.NewWriter(&head)
		fw, err := mw.CreateFormFile("file", "a.png")
		require.NoError(t, err)
		_, _ = fw.Write([]byte("partial"))

		body := io.MultiReader(&head, iotest.ErrReader(readErr))
		r := httptest.NewRequest(http.MethodPut, "/", body)
		r.Header.Set("Content-Type", mw.FormDataContentType())

		fh, err := formFile(r, "file")
		assert.ErrorIs(t, err, readErr)
		assert.Nil(t, fh)
	})
}

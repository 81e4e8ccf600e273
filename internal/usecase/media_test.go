package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

// minimal EBML header declaring a webm doctype
var webmHeader = []byte("\x1A\x45\xDF\xA3\x9F\x42\x82\x84webm\x42\x87\x81\x02")

func TestMediaUpload_StoresWebm(t *testing.T) {
	store := &stubMediaStore{}
	svc := NewMediaService(store, 1<<20)

	obj, err := svc.Upload(bg, "user-1", "answer.webm", webmHeader)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.Ref, "user-1/"))
	assert.True(t, strings.HasSuffix(obj.Ref, ".webm"))
	assert.Equal(t, "video/webm", obj.ContentType)
	assert.Equal(t, int64(len(webmHeader)), obj.Size)
	assert.Equal(t, []string{obj.Ref}, store.keys)
}

func TestMediaUpload_Rejects(t *testing.T) {
	svc := NewMediaService(&stubMediaStore{}, 8)

	_, err := svc.Upload(bg, "", "a.webm", webmHeader)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = svc.Upload(bg, "u", "a.webm", nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.Upload(bg, "u", "a.webm", webmHeader)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	svc = NewMediaService(&stubMediaStore{}, 0)
	_, err = svc.Upload(bg, "u", "notes.txt", []byte("just some text"))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	svc = NewMediaService(&stubMediaStore{err: errBoom}, 0)
	_, err = svc.Upload(bg, "u", "a.webm", webmHeader)
	require.ErrorIs(t, err, domain.ErrPersistence)
}

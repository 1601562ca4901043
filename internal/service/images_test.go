package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakeObjectStore) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.objects[key] = data
	f.types[key] = contentType
	return "https://bucket.example/" + key, nil
}

type part struct {
	name, contentType, content string
}

func fileHeaders(t *testing.T, parts ...part) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+p.name+`"`)
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

func TestUploadStoresEveryFile(t *testing.T) {
	store := &fakeObjectStore{}
	svc := NewImageService(store, 1024, zap.NewNop())

	files := fileHeaders(t,
		part{name: "cat.png", contentType: "image/png", content: "png-bytes"},
		part{name: "dog.jpg", contentType: "image/jpeg", content: "jpg-bytes"},
	)

	out, err := svc.Upload(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "cat.png", out[0].Name)
	assert.Equal(t, "dog.jpg", out[1].Name)

	require.Len(t, store.objects, 2)
	for key, data := range store.objects {
		assert.True(t, strings.HasPrefix(key, "images/"))
		if strings.HasSuffix(key, "-cat.png") {
			assert.Equal(t, "png-bytes", string(data))
			assert.Equal(t, "image/png", store.types[key])
		}
	}
	assert.True(t, strings.HasPrefix(out[0].Location, "https://bucket.example/images/"))
}

func TestUploadErrors(t *testing.T) {
	svc := NewImageService(&fakeObjectStore{}, 4, zap.NewNop())

	_, err := svc.Upload(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = svc.Upload(context.Background(), fileHeaders(t, part{name: "big.png", contentType: "image/png", content: "12345"}))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	failing := NewImageService(&fakeObjectStore{err: errors.New("s3 down")}, 1024, zap.NewNop())
	_, err = failing.Upload(context.Background(), fileHeaders(t, part{name: "a.png", contentType: "image/png", content: "x"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFiles)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "a.png", baseName("a.png"))
	assert.Equal(t, "a.png", baseName("../../etc/a.png"))
	assert.Equal(t, "a.png", baseName(`C:\Users\me\a.png`))
	assert.Equal(t, "file", baseName(""))
}

package storage

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a minimal path-style S3 server keeping objects in memory.
type fakeS3 struct {
	mu           sync.Mutex
	bucket       string
	bucketExists bool
	objects      map[string][]byte
	contentTypes map[string]string
}

type listResult struct {
	XMLName     xml.Name      `xml:"ListBucketResult"`
	Name        string        `xml:"Name"`
	KeyCount    int           `xml:"KeyCount"`
	IsTruncated bool          `xml:"IsTruncated"`
	Contents    []listContent `xml:"Contents"`
}

type listContent struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	Size         int    `xml:"Size"`
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message><RequestId>test</RequestId></Error>`, code, code)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket != f.bucket {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}

	switch {
	case r.Method == http.MethodPut && key == "":
		f.bucketExists = true
		w.WriteHeader(http.StatusOK)
	case !f.bucketExists:
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.contentTypes[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && key == "":
		res := listResult{Name: f.bucket}
		keys := make([]string, 0, len(f.objects))
		for k := range f.objects {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			res.Contents = append(res.Contents, listContent{
				Key:          k,
				LastModified: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
				Size:         len(f.objects[k]),
			})
		}
		res.KeyCount = len(res.Contents)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		_ = xml.NewEncoder(w).Encode(res)
	case r.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", f.contentTypes[key])
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func newTestS3Store(t *testing.T) (*S3Store, *fakeS3) {
	fake := &fakeS3{bucket: "gallery", objects: map[string][]byte{}, contentTypes: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:    "gallery",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	return store, fake
}

func TestS3StoreCreatesBucketOnFirstSave(t *testing.T) {
	store, fake := newTestS3Store(t)
	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 16)

	n, err := store.Save(context.Background(), "photo.png", strings.NewReader(png))
	require.NoError(t, err)
	assert.EqualValues(t, len(png), n)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.True(t, fake.bucketExists)
	assert.Equal(t, []byte(png), fake.objects["photo.png"])
	assert.Equal(t, "image/png", fake.contentTypes["photo.png"])
}

func TestS3StoreOpenListRemove(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestS3Store(t)

	_, err := store.Save(ctx, "a.txt", strings.NewReader("alpha"))
	require.NoError(t, err)
	_, err = store.Save(ctx, "b.txt", strings.NewReader("beta"))
	require.NoError(t, err)

	f, err := store.Open(ctx, "a.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(f.Body)
	f.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(body))
	assert.True(t, strings.HasPrefix(f.ContentType, "text/plain"))

	objects, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "a.txt", objects[0].Name)
	assert.EqualValues(t, 5, objects[0].Size)
	assert.Equal(t, "b.txt", objects[1].Name)

	require.NoError(t, store.Remove(ctx, "a.txt"))
	_, err = store.Open(ctx, "a.txt")
	assert.ErrorIs(t, err, ErrNotExist)
	assert.NoError(t, store.Remove(ctx, "a.txt"))
}

func TestS3StoreRejectsPaths(t *testing.T) {
	store, _ := newTestS3Store(t)
	_, err := store.Save(context.Background(), "../escape.png", strings.NewReader("x"))
	assert.Error(t, err)
}

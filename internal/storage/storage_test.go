package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "exports/3/14/", ExportPrefix(3, 14))
	assert.Equal(t, "exports/3/14/abc.pdf", ExportKey(3, 14, "abc"))
	assert.Equal(t, "thumbnails/layout/layout1/preview.jpg", LayoutPreviewKey("layout1"))
}

func TestErrorClassification(t *testing.T) {
	noKey := fmt.Errorf("get: %w", minio.ErrorResponse{Code: "NoSuchKey"})
	noBucket := minio.ErrorResponse{Code: "NoSuchBucket"}

	assert.True(t, IsNoSuchKey(noKey))
	assert.False(t, IsNoSuchKey(nil))
	assert.True(t, IsNoSuchBucket(noBucket))
	assert.False(t, IsNoSuchBucket(errors.New("connection reset")))
	assert.False(t, IsNoSuchKey(noBucket))
	assert.True(t, IsNoSuchKey(errors.New("The specified key does not exist.")))
}

func TestParseBucketLookup(t *testing.T) {
	for raw, want := range map[string]minio.BucketLookupType{
		"":      minio.BucketLookupAuto,
		"AUTO":  minio.BucketLookupAuto,
		"dns":   minio.BucketLookupDNS,
		" path": minio.BucketLookupPath,
	} {
		got, err := parseBucketLookup(raw)
		assert.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := parseBucketLookup("virtual")
	assert.Error(t, err)
}

func TestPublicEndpoint(t *testing.T) {
	host, secure, err := publicEndpoint("https://files.example.com")
	assert.NoError(t, err)
	assert.Equal(t, "files.example.com", host)
	assert.True(t, secure)

	host, secure, err = publicEndpoint("http://localhost:9000")
	assert.NoError(t, err)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, secure)

	_, _, err = publicEndpoint("localhost:9000")
	assert.Error(t, err)
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, "attachment; filename=my_cv.pdf", ContentDisposition("my_cv.pdf"))
	assert.Equal(t, `attachment; filename="Ada Lovelace.pdf"`, ContentDisposition("Ada Lovelace.pdf"))
	assert.Equal(t, "attachment; filename*=utf-8''%E6%9D%8E%E9%9B%B7.pdf", ContentDisposition("李雷.pdf"))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, "3333", c.AppPort)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "local", c.StorageBackend)
	assert.Equal(t, "uploads", c.UploadDir)
	assert.Equal(t, "/uploads/", c.UploadURLPrefix)
	assert.EqualValues(t, 5*1024*1024, c.UploadMaxBytes)
	assert.Equal(t, 12, c.GalleryDefaultLimit)
	assert.Equal(t, 100, c.GalleryMaxLimit)
	assert.Equal(t, "all", c.GalleryDefaultStatus)
	assert.Equal(t, 60, c.ReadTimeoutSec)
	assert.Equal(t, 120, c.WriteTimeoutSec)
	assert.False(t, c.CacheEnabled)
}

func TestApplyDefaultsKeepsValuesAndFixesPrefix(t *testing.T) {
	c := AppConfig{AppPort: "8080", UploadURLPrefix: "/media", GalleryDefaultLimit: 20}
	applyDefaults(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "/media/", c.UploadURLPrefix)
	assert.Equal(t, 20, c.GalleryDefaultLimit)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/g.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("UPLOAD_MAX_BYTES", "1048576")
	t.Setenv("STORAGE_BACKEND", "S3")
	t.Setenv("S3_BUCKET", "photos")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("GALLERY_MAX_LIMIT", "50")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "/tmp/g.db", c.SQLitePath)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.AllowedOrigins)
	assert.EqualValues(t, 1048576, c.UploadMaxBytes)
	assert.Equal(t, "s3", c.StorageBackend)
	assert.Equal(t, "photos", c.S3Bucket)
	assert.True(t, c.CacheEnabled)
	assert.Equal(t, 50, c.GalleryMaxLimit)
}

func TestLoadJSONConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"AppPort": "4000", "AllowedOrigins": ["*"], "RateLimitPerMinute": 30},
		"database": {"Driver": "sqlite", "SQLitePath": "data.db"},
		"redis": {"CacheEnabled": true, "CacheTTLSeconds": 60},
		"log": {"Level": "debug", "Compress": true},
		"storage": {"Backend": "s3", "S3Bucket": "gallery", "MaxBytes": 2048, "OrphanGraceMinutes": 5},
		"gallery": {"DefaultLimit": 24, "DefaultStatus": "active"}
	}`), 0o644))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))

	assert.Equal(t, "4000", c.AppPort)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, 30, c.RateLimitPerMinute)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "data.db", c.SQLitePath)
	assert.True(t, c.CacheEnabled)
	assert.Equal(t, 60, c.CacheTTLSeconds)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.LogCompress)
	assert.Equal(t, "s3", c.StorageBackend)
	assert.Equal(t, "gallery", c.S3Bucket)
	assert.EqualValues(t, 2048, c.UploadMaxBytes)
	assert.Equal(t, 5, c.OrphanGraceMinutes)
	assert.Equal(t, 24, c.GalleryDefaultLimit)
	assert.Equal(t, "active", c.GalleryDefaultStatus)
}

func TestLoadJSONConfigMissingAndInvalid(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	assert.Error(t, loadJSONConfig(bad, &c))
}

func TestOpenDatabaseSQLite(t *testing.T) {
	type widget struct {
		ID   uint
		Name string
	}
	db, err := OpenDatabase(AppConfig{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:   "silent",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db, &widget{}))
	require.NoError(t, db.Create(&widget{Name: "a"}).Error)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, err = OpenDatabase(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/cppla/gallery/models"
	"github.com/cppla/gallery/storage"
	"github.com/cppla/gallery/utils"
)

const maxTitleLength = 255

// Options configures a GalleryService.
type Options struct {
	URLPrefix      string // prepended to the stored filename to build Gallery.URL
	MaxUploadBytes int64
	OrphanGrace    time.Duration // files younger than this are never swept
	List           ListDefaults
}

// Upload is one incoming file. Size is the size declared by the client, or -1 when unknown.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// ListResult is a page of galleries.
type ListResult struct {
	Data       []models.GallerySummary `json:"data"`
	Pagination Pagination              `json:"pagination"`
}

// GalleryService coordinates gallery rows with their files. It holds no mutable state and is safe for concurrent use.
type GalleryService struct {
	db    *gorm.DB
	store storage.Store
	opts  Options
}

func NewGalleryService(db *gorm.DB, store storage.Store, opts Options) *GalleryService {
	if opts.URLPrefix == "" {
		opts.URLPrefix = "/uploads/"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 * 1024 * 1024
	}
	if opts.List.Limit <= 0 {
		opts.List.Limit = 12
	}
	if opts.List.Status == "" {
		opts.List.Status = StatusAll
	}
	return &GalleryService{db: db, store: store, opts: opts}
}

// Defaults returns the listing defaults, for parsing raw queries at the HTTP boundary.
func (s *GalleryService) Defaults() ListDefaults {
	return s.opts.List
}

// Create inserts a gallery without a file. Titles are unique; the unique index catches
// concurrent creates that both pass the pre-check.
func (s *GalleryService) Create(ctx context.Context, title string) (*models.Gallery, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	taken, err := s.titleTaken(ctx, title, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflict(msgTitleExists, nil)
	}

	g := models.Gallery{Title: title, TitleFolded: foldTitle(title), Active: true}
	if err := s.db.WithContext(ctx).Create(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict(msgTitleExists, err)
		}
		return nil, internal("create gallery", err)
	}
	return &g, nil
}

// Upload stores a new file for the gallery and points the row at it.
//
// The new file is written first, then the row is updated, then the previous file is removed.
// A crash between the write and the update leaves an unreferenced file, which SweepOrphans removes.
func (s *GalleryService) Upload(ctx context.Context, id uint, up *Upload) (*models.Gallery, error) {
	g, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if up == nil || up.Body == nil {
		return nil, badRequest(msgNoFile)
	}
	limit := s.opts.MaxUploadBytes
	if up.Size > limit {
		return nil, s.tooLarge()
	}

	name := uuid.NewString() + fileExtension(up.Filename)
	written, err := s.store.Save(ctx, name, io.LimitReader(up.Body, limit+1))
	if err != nil {
		s.removeFile(ctx, name)
		return nil, internal("save upload", err)
	}
	if written > limit {
		s.removeFile(ctx, name)
		return nil, s.tooLarge()
	}

	res := s.db.WithContext(ctx).Model(&models.Gallery{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
		"filename": name,
		"url":      s.opts.URLPrefix + name,
	})
	if res.Error != nil {
		s.removeFile(ctx, name)
		return nil, internal("update gallery file", res.Error)
	}
	if res.RowsAffected == 0 {
		// deleted while the upload was in flight
		s.removeFile(ctx, name)
		return nil, notFound()
	}

	if g.HasFile() && g.Filename != name {
		s.removeFile(ctx, g.Filename)
	}
	return s.find(ctx, id)
}

// Update changes the title only.
func (s *GalleryService) Update(ctx context.Context, id uint, title string) (*models.Gallery, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	g, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	taken, err := s.titleTaken(ctx, title, g.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflict(msgTitleTaken, nil)
	}

	if err := s.db.WithContext(ctx).Model(&models.Gallery{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
		"title":        title,
		"title_folded": foldTitle(title),
	}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict(msgTitleTaken, err)
		}
		return nil, internal("update gallery", err)
	}
	return s.find(ctx, id)
}

// List returns a page of galleries ordered by id.
func (s *GalleryService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.Limit <= 0 {
		q.Limit = s.opts.List.Limit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	filtered := func() *gorm.DB {
		tx := s.db.WithContext(ctx).Model(&models.Gallery{})
		if q.Search != "" {
			tx = tx.Where("title_folded LIKE ? ESCAPE '!'", "%"+escapeLike(foldTitle(q.Search))+"%")
		}
		switch q.Status {
		case StatusActive:
			tx = tx.Where("active = ?", true)
		case StatusInactive:
			tx = tx.Where("active = ?", false)
		}
		return tx
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, internal("count galleries", err)
	}

	rows := make([]models.GallerySummary, 0, q.Limit)
	if err := filtered().
		Select("id", "title", "url", "active").
		Order("id ASC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&rows).Error; err != nil {
		return nil, internal("list galleries", err)
	}

	return &ListResult{Data: rows, Pagination: NewPagination(q.Limit, q.Offset, total)}, nil
}

// Delete removes the row, then its file. A file that cannot be removed is logged and left for the sweeper.
func (s *GalleryService) Delete(ctx context.Context, id uint) error {
	g, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&models.Gallery{}, g.ID)
	if res.Error != nil {
		return internal("delete gallery", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound()
	}
	if g.HasFile() {
		s.removeFile(ctx, g.Filename)
	}
	return nil
}

// ToggleActive flips the active flag in a single statement.
func (s *GalleryService) ToggleActive(ctx context.Context, id uint) (*models.Gallery, error) {
	res := s.db.WithContext(ctx).Model(&models.Gallery{}).Where("id = ?", id).Update("active", gorm.Expr("NOT active"))
	if res.Error != nil {
		return nil, internal("toggle gallery", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound()
	}
	return s.find(ctx, id)
}

// Get returns the full record.
func (s *GalleryService) Get(ctx context.Context, id uint) (*models.Gallery, error) {
	return s.find(ctx, id)
}

// SweepOrphans removes stored files that no gallery references and that are older than the grace period.
// It returns how many files were removed.
func (s *GalleryService) SweepOrphans(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored files: %w", err)
	}
	cutoff := time.Now().Add(-s.opts.OrphanGrace)
	var candidates []string
	for _, o := range objects {
		if o.ModTime.Before(cutoff) {
			candidates = append(candidates, o.Name)
		}
	}

	removed := 0
	const batchSize = 500
	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		var used []string
		if err := s.db.WithContext(ctx).Model(&models.Gallery{}).Where("filename IN ?", batch).Pluck("filename", &used).Error; err != nil {
			return removed, fmt.Errorf("load referenced files: %w", err)
		}
		referenced := make(map[string]struct{}, len(used))
		for _, name := range used {
			referenced[name] = struct{}{}
		}

		for _, name := range batch {
			if _, ok := referenced[name]; ok {
				continue
			}
			if err := s.store.Remove(ctx, name); err != nil {
				utils.Logger.Warn("failed to remove orphaned file", zap.String("file", name), zap.Error(err))
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// BackfillFoldedTitles fills the folded title of rows written before that column existed.
func (s *GalleryService) BackfillFoldedTitles(ctx context.Context) (int, error) {
	var rows []models.Gallery
	if err := s.db.WithContext(ctx).Select("id", "title").Where("title_folded = ?", "").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("load unfolded titles: %w", err)
	}
	for _, g := range rows {
		if err := s.db.WithContext(ctx).Model(&models.Gallery{}).Where("id = ?", g.ID).
			UpdateColumn("title_folded", foldTitle(g.Title)).Error; err != nil {
			return 0, fmt.Errorf("fold title of gallery %d: %w", g.ID, err)
		}
	}
	return len(rows), nil
}

func (s *GalleryService) find(ctx context.Context, id uint) (*models.Gallery, error) {
	var g models.Gallery
	if err := s.db.WithContext(ctx).First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, internal("load gallery", err)
	}
	return &g, nil
}

// titleTaken reports whether a gallery other than exceptID already uses title.
func (s *GalleryService) titleTaken(ctx context.Context, title string, exceptID uint) (bool, error) {
	tx := s.db.WithContext(ctx).Model(&models.Gallery{}).Where("title = ?", title)
	if exceptID != 0 {
		tx = tx.Where("id <> ?", exceptID)
	}
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, internal("check title", err)
	}
	return count > 0, nil
}

// removeFile is best effort and survives a cancelled request context.
func (s *GalleryService) removeFile(ctx context.Context, name string) {
	if err := s.store.Remove(context.WithoutCancel(ctx), name); err != nil {
		utils.Logger.Warn("failed to remove gallery file", zap.String("file", name), zap.Error(err))
	}
}

func (s *GalleryService) tooLarge() error {
	return badRequest(fmt.Sprintf(msgFileTooLargeFm, humanSize(s.opts.MaxUploadBytes)))
}

func normalizeTitle(raw string) (string, error) {
	title := utils.SanitizeText(raw)
	if title == "" {
		return "", badRequest(msgTitleRequired)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", badRequest(msgTitleTooLong)
	}
	return title, nil
}

// foldTitle applies full Unicode case folding. A Caser is stateful, so one is built per call.
func foldTitle(s string) string {
	return cases.Fold().String(s)
}

// fileExtension keeps the client's extension, restricted to a safe character set.
func fileExtension(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := filepath.Ext(base)
	if len(ext) <= 1 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}

func humanSize(n int64) string {
	switch {
	case n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

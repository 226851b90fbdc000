package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/gallery/models"
	"github.com/cppla/gallery/services"
	"github.com/cppla/gallery/storage"
	"github.com/cppla/gallery/utils"
)

const (
	cachePrefix       = "cache:gallery:"
	listCachePrefix   = cachePrefix + "list:"
	detailCachePrefix = cachePrefix + "detail:"

	// room for multipart boundaries and headers on top of the file limit
	multipartOverhead = 1 << 20
)

// GalleryController exposes GalleryService over HTTP.
type GalleryController struct {
	svc       *services.GalleryService
	store     storage.Store
	maxUpload int64
	cacheTTL  time.Duration
}

// NewGalleryController creates a GalleryController. maxUpload must match the service limit.
func NewGalleryController(svc *services.GalleryService, store storage.Store, maxUpload int64, cacheTTL time.Duration) *GalleryController {
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	return &GalleryController{svc: svc, store: store, maxUpload: maxUpload, cacheTTL: cacheTTL}
}

// UploadBodyLimit caps the request body of an upload of at most maxUpload bytes.
// The engine's MaxMultipartMemory must be at least this, so uploads are never spooled to disk.
func UploadBodyLimit(maxUpload int64) int64 {
	return maxUpload + multipartOverhead
}

type galleryURI struct {
	ID uint `uri:"id" binding:"required,min=1"`
}

type galleryRequest struct {
	Title string `json:"title" binding:"required,min=1,max=255"`
}

type listRequest struct {
	Limit  string `form:"limit"`
	Offset string `form:"offset"`
	Search string `form:"search"`
	Status string `form:"status"`
}

// List returns a page of galleries with pagination metadata.
func (g *GalleryController) List(ctx *gin.Context) {
	var req listRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "parâmetros de consulta inválidos")
		return
	}
	q := services.ParseListQuery(req.Limit, req.Offset, req.Search, req.Status, g.svc.Defaults())

	cacheKey := fmt.Sprintf("%slimit=%d:offset=%d:status=%s:search=%s", listCachePrefix, q.Limit, q.Offset, q.Status, q.Search)
	if b, ok := utils.CacheGetBytes(ctx.Request.Context(), cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	res, err := g.svc.List(ctx.Request.Context(), q)
	if err != nil {
		g.fail(ctx, err)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), cacheKey, res, g.cacheTTL)
	utils.Success(ctx, res)
}

// Create adds a gallery without a file.
func (g *GalleryController) Create(ctx *gin.Context) {
	var req galleryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, titleBindingMessage(err))
		return
	}

	gallery, err := g.svc.Create(ctx.Request.Context(), req.Title)
	if err != nil {
		g.fail(ctx, err)
		return
	}
	invalidateGalleryCache(ctx)
	utils.Respond(ctx, http.StatusCreated, utils.MessageResponse{Message: "Galeria criada com sucesso", Gallery: gallery})
}

// Upload attaches an image to a gallery, replacing the previous one.
func (g *GalleryController) Upload(ctx *gin.Context) {
	id, ok := bindID(ctx)
	if !ok {
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, UploadBodyLimit(g.maxUpload))
	up, cleanup := g.readUpload(ctx)
	defer cleanup()

	gallery, err := g.svc.Upload(ctx.Request.Context(), id, up)
	if err != nil {
		g.fail(ctx, err)
		return
	}
	invalidateGalleryCache(ctx)
	utils.Success(ctx, utils.MessageResponse{Message: "Upload realizado com sucesso", Gallery: gallery})
}

// readUpload extracts the `file` part, or the first file part of the form.
// A nil upload means no file was sent.
func (g *GalleryController) readUpload(ctx *gin.Context) (*services.Upload, func()) {
	noop := func() {}

	form, err := ctx.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return &services.Upload{Size: g.maxUpload + 1, Body: strings.NewReader("")}, noop
		}
		return nil, noop
	}

	header := firstFile(form)
	if header == nil {
		return nil, noop
	}
	f, err := header.Open()
	if err != nil {
		utils.Logger.Warn("failed to open multipart file", zap.String("file", header.Filename), zap.Error(err))
		return nil, noop
	}
	return &services.Upload{Filename: header.Filename, Size: header.Size, Body: f}, func() { f.Close() }
}

func firstFile(form *multipart.Form) *multipart.FileHeader {
	if files := form.File["file"]; len(files) > 0 {
		return files[0]
	}
	for _, files := range form.File {
		if len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

// Get returns the full record.
func (g *GalleryController) Get(ctx *gin.Context) {
	id, ok := bindID(ctx)
	if !ok {
		return
	}

	cacheKey := detailCachePrefix + strconv.FormatUint(uint64(id), 10)
	if b, ok := utils.CacheGetBytes(ctx.Request.Context(), cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	gallery, err := g.svc.Get(ctx.Request.Context(), id)
	if err != nil {
		g.fail(ctx, err)
		return
	}
	utils.CacheSetJSON(ctx.Request.Context(), cacheKey, gallery, g.cacheTTL)
	utils.Success(ctx, gallery)
}

// Update changes the title of a gallery.
func (g *GalleryController) Update(ctx *gin.Context) {
	id, ok := bindID(ctx)
	if !ok {
		return
	}
	var req galleryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, titleBindingMessage(err))
		return
	}

	gallery, err := g.svc.Update(ctx.Request.Context(), id, req.Title)
	if err != nil {
		g.fail(ctx, err)
		return
	}
	invalidateGalleryCache(ctx)
	utils.Success(ctx, utils.MessageResponse{Message: "Galeria atualizada com sucesso", Gallery: gallery})
}

// Delete removes a gallery and its file.
func (g *GalleryController) Delete(ctx *gin.Context) {
	id, ok := bindID(ctx)
	if !ok {
		return
	}
	if err := g.svc.Delete(ctx.Request.Context(), id); err != nil {
		g.fail(ctx, err)
		return
	}
	invalidateGalleryCache(ctx)
	utils.Success(ctx, utils.MessageResponse{Message: "Galeria deletada com sucesso"})
}

// ToggleActive flips the active flag.
func (g *GalleryController) ToggleActive(ctx *gin.Context) {
	id, ok := bindID(ctx)
	if !ok {
		return
	}
	gallery, err := g.svc.ToggleActive(ctx.Request.Context(), id)
	if err != nil {
		g.fail(ctx, err)
		return
	}
	invalidateGalleryCache(ctx)
	utils.Success(ctx, utils.MessageResponse{Message: toggleMessage(gallery), Gallery: gallery})
}

// ServeFile streams an uploaded file from the file store. Used when files do not live on local disk.
func (g *GalleryController) ServeFile(ctx *gin.Context) {
	f, err := g.store.Open(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			utils.Error(ctx, http.StatusNotFound, "arquivo não encontrado")
			return
		}
		utils.Logger.Error("failed to open stored file", zap.String("file", ctx.Param("name")), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, "falha ao ler arquivo")
		return
	}
	defer f.Body.Close()

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{}
	if !f.ModTime.IsZero() {
		headers["Last-Modified"] = f.ModTime.UTC().Format(http.TimeFormat)
	}
	ctx.DataFromReader(http.StatusOK, f.Size, contentType, f.Body, headers)
}

func bindID(ctx *gin.Context) (uint, bool) {
	var uri galleryURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "ID inválido")
		return 0, false
	}
	return uri.ID, true
}

func titleBindingMessage(err error) string {
	if strings.Contains(err.Error(), "'max'") {
		return "O título deve ter no máximo 255 caracteres"
	}
	return "O título é obrigatório"
}

func toggleMessage(g *models.Gallery) string {
	if g.Active {
		return "Galeria ativada com sucesso"
	}
	return "Galeria desativada com sucesso"
}

// fail maps service errors to HTTP responses.
func (g *GalleryController) fail(ctx *gin.Context, err error) {
	message := err.Error()
	var se *services.Error
	if errors.As(err, &se) {
		message = se.Message
	}

	switch services.KindOf(err) {
	case services.KindNotFound:
		utils.Error(ctx, http.StatusNotFound, message)
	case services.KindConflict, services.KindBadRequest:
		utils.Error(ctx, http.StatusBadRequest, message)
	default:
		utils.Logger.Error("gallery request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, message)
	}
}

func invalidateGalleryCache(ctx *gin.Context) {
	utils.InvalidateByPrefix(ctx.Request.Context(), cachePrefix)
}

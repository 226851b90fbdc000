package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cppla/gallery/models"
	"github.com/cppla/gallery/services"
)

func TestFailMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := &GalleryController{}

	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"not found", &services.Error{Kind: services.KindNotFound, Message: "Galeria não encontrada"}, http.StatusNotFound, `{"error":"Not Found","message":"Galeria não encontrada"}`},
		{"conflict", &services.Error{Kind: services.KindConflict, Message: "Título já existe"}, http.StatusBadRequest, `{"error":"Bad Request","message":"Título já existe"}`},
		{"bad request", &services.Error{Kind: services.KindBadRequest, Message: "Nenhum arquivo enviado"}, http.StatusBadRequest, `{"error":"Bad Request","message":"Nenhum arquivo enviado"}`},
		{"internal", &services.Error{Kind: services.KindInternal, Message: "disk full", Err: errors.New("save: disk full")}, http.StatusInternalServerError, `{"error":"Internal Server Error","message":"disk full"}`},
		{"foreign error", errors.New("boom"), http.StatusInternalServerError, `{"error":"Internal Server Error","message":"boom"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/gallery/1", nil)

			g.fail(ctx, tc.err)

			assert.Equal(t, tc.code, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestToggleMessage(t *testing.T) {
	assert.Equal(t, "Galeria ativada com sucesso", toggleMessage(&models.Gallery{Active: true}))
	assert.Equal(t, "Galeria desativada com sucesso", toggleMessage(&models.Gallery{Active: false}))
}

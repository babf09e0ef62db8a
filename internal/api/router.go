package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "sheet-image-fetcher/internal/api/docs"
	"sheet-image-fetcher/internal/api/handler"
	"sheet-image-fetcher/pkg/router"
)

// @title Sheet Image Fetcher API
// @version 1.0
// @description Upload a spreadsheet, pick a sheet and download the images it links to.
// @BasePath /
func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.GET("/", h.Index)
	r.POST("/upload", h.Upload)
	r.POST("/download", h.Download)
	r.GET("/swagger/*", router.HandlerFunc(httpSwagger.WrapHandler))
}

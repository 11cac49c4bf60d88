// controllers/asset_controller.go
package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"Gin_postgres_redis_asset_tracker/app"
	"Gin_postgres_redis_asset_tracker/db"

	"github.com/gin-gonic/gin"
)

type AssetController struct{ *Srv }

func NewAssetController(s *Srv) *AssetController { return &AssetController{Srv: s} }

// GET /api/assets?search=
func (ac *AssetController) ListAssets(c *gin.Context) {
	assets, err := ac.Repo.ListAssets(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": assets})
}

// GET /api/assets/borrowed?search=
func (ac *AssetController) ListBorrowed(c *gin.Context) {
	items, err := ac.Repo.ListBorrowed(c.Request.Context(), c.Query("search"), ac.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}

// GET /api/assets/:id
func (ac *AssetController) GetAsset(c *gin.Context) {
	a, err := ac.Repo.FindAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// POST /api/assets (multipart)
func (ac *AssetController) CreateAsset(c *gin.Context) {
	in := db.CreateAssetInput{
		Name:         c.PostForm("name"),
		Type:         c.PostForm("type"),
		SerialNumber: c.PostForm("serial_number"),
		AssetNumber:  c.PostForm("asset_number"),
	}
	// 先校验再落盘，避免无主照片
	if err := in.Validate(); err != nil {
		respondError(c, err)
		return
	}

	fh, err := c.FormFile("photo")
	switch {
	case err == nil && fh.Filename != "":
		f, err := fh.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()
		p, err := ac.Photos.Save(c.Request.Context(), fh.Filename, f)
		if err != nil {
			respondError(c, err)
			return
		}
		in.PhotoPath = p
	case err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	a, err := ac.Repo.CreateAsset(c.Request.Context(), app.ActorFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"id": a.ID, "asset": a})
}

type borrowReq struct {
	BorrowerName string `json:"borrower_name" form:"borrower_name"`
	BorrowDate   string `json:"borrow_date" form:"borrow_date"`
	BorrowLength int    `json:"borrow_length" form:"borrow_length"`
}

// POST /api/assets/:id/borrow
func (ac *AssetController) Borrow(c *gin.Context) {
	var req borrowReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"success": false, "error": "bad request"})
		return
	}
	a, err := ac.Repo.BorrowAsset(c.Request.Context(), app.ActorFrom(c), c.Param("id"), db.BorrowInput{
		BorrowerName: req.BorrowerName,
		BorrowDate:   req.BorrowDate,
		BorrowLength: req.BorrowLength,
	})
	if err != nil {
		if errors.Is(err, db.ErrNotAvailable) {
			c.JSON(http.StatusBadRequest, app.H{
				"success": false,
				"error":   "Asset not available",
				"reason":  unavailableReason(err),
			})
			return
		}
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			respondError(c, err)
			return
		}
		c.JSON(status, app.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"success": true, "asset": a})
}

// POST /api/assets/:id/return
func (ac *AssetController) Return(c *gin.Context) {
	if _, err := ac.Repo.ReturnAsset(c.Request.Context(), app.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// DELETE /api/assets/:id
// 存储失败不报 500：回滚后给出 flash 提示并重定向回列表
func (ac *AssetController) Delete(c *gin.Context) {
	a, err := ac.Repo.DeleteAsset(c.Request.Context(), app.ActorFrom(c), c.Param("id"))
	var se *db.StorageError
	switch {
	case err == nil:
		msg := fmt.Sprintf("Asset %s has been successfully deleted.", a.Name)
		c.JSON(http.StatusOK, app.H{"flash": flash{"success", msg}, "redirect": "/"})
	case errors.As(err, &se):
		slog.Error("delete asset failed", "id", c.Param("id"), "err", err)
		c.JSON(http.StatusOK, app.H{"flash": flash{"danger", "Error deleting asset"}, "redirect": "/"})
	default:
		respondError(c, err)
	}
}

// GET /api/statistics
func (ac *AssetController) Statistics(c *gin.Context) {
	types, err := ac.Repo.AggregateByType(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"types": types})
}

package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxMultipartMemory = 8 << 20

// bindCake reads a cake form. Multipart requests may carry the photo file in the "photo" field;
// JSON requests reference an already uploaded photo by URL.
func bindCake(c *gin.Context) (models.NewCake, []byte, error) {
	var input models.NewCake
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&input); err != nil {
			return input, nil, utils.Validation("invalid request body")
		}
		return input, nil, nil
	}

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		return input, nil, utils.Validation("invalid multipart form")
	}
	input.Name = c.PostForm("name")
	input.Description = c.PostForm("description")
	input.Photo = c.PostForm("photo")

	var err error
	if input.Price, err = formDecimal(c, "price"); err != nil {
		return input, nil, err
	}
	if input.Kcal, err = formDecimal(c, "kcal"); err != nil {
		return input, nil, err
	}
	if v := strings.TrimSpace(c.PostForm("grams_per_piece")); v != "" {
		if input.GramsPerPiece, err = strconv.Atoi(v); err != nil {
			return input, nil, utils.Validation("grams_per_piece must be a whole number")
		}
	}

	photo, err := formFile(c, "photo")
	return input, photo, err
}

func formDecimal(c *gin.Context, field string) (decimal.Decimal, error) {
	v := strings.TrimSpace(c.PostForm(field))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, utils.Validation("%s must be a number", field)
	}
	return d, nil
}

// formFile returns nil when the field is absent.
func formFile(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, utils.Validation("invalid %s upload", field)
	}
	if header.Size > utils.MaxPhotoSizeBytes {
		return nil, utils.Validation("%s is larger than %d bytes", field, utils.MaxPhotoSizeBytes)
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) createCake(c *gin.Context) {
	input, photo, err := bindCake(c)
	if err != nil {
		respondError(c, err)
		return
	}
	cake, err := h.Catalog.CreateCake(c.Request.Context(), principal(c), input, photo)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Cake added", cake)
}

func (h *Handler) updateCake(c *gin.Context) {
	id, ok := pathId(c, "cakeId")
	if !ok {
		return
	}
	input, photo, err := bindCake(c)
	if err != nil {
		respondError(c, err)
		return
	}
	cake, err := h.Catalog.UpdateCake(c.Request.Context(), principal(c), id, input, photo)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cake updated", cake)
}

func (h *Handler) deleteCake(c *gin.Context) {
	id, ok := pathId(c, "cakeId")
	if !ok {
		return
	}
	cake, err := h.Catalog.DeleteCake(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cake deleted", cake)
}

func (h *Handler) getCake(c *gin.Context) {
	id, ok := pathId(c, "cakeId")
	if !ok {
		return
	}
	cake, err := h.Catalog.GetCake(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cake", cake)
}

func (h *Handler) listCakes(c *gin.Context) {
	cakes, err := h.Catalog.ListCakes(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cakes", cakes)
}

func (h *Handler) listAvailableCakes(c *gin.Context) {
	cakes, err := h.Catalog.ListAvailableCakes(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Available cakes", cakes)
}

func (h *Handler) listRemainingCakes(c *gin.Context) {
	cakes, err := h.Catalog.ListRemainingCakes(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Remaining cakes", cakes)
}

func (h *Handler) uploadCakePhoto(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		badRequest(c, "invalid multipart form")
		return
	}
	photo, err := formFile(c, "photo")
	if err != nil {
		respondError(c, err)
		return
	}
	stored, err := h.Catalog.UploadCakePhoto(c.Request.Context(), principal(c), photo)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Photo uploaded", stored)
}

type produceRequest struct {
	BatchSize *int `json:"batch_size"`
}

func (h *Handler) produce(c *gin.Context) {
	id, ok := pathId(c, "cakeId")
	if !ok {
		return
	}
	var req produceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BatchSize == nil {
		badRequest(c, "batch_size is required")
		return
	}
	result, err := h.Production.Produce(c.Request.Context(), principal(c), id, *req.BatchSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Batch produced", result)
}

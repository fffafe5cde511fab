package handler

import (
	"github.com/gofiber/fiber/v2"

	"assetapi/internal/service"
	"assetapi/internal/validation"
)

// UploadAsset godoc
// @Summary      Upload an asset
// @Description  Stores a file and its metadata. Tags are a comma-separated string.
// @Tags         assets
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file    true   "Asset file"
// @Param        tags  formData  string  false  "Comma-separated tags"
// @Success      201   {object}  uploadResponse
// @Failure      400   {object}  errorPayload
// @Failure      500   {object}  errorPayload
// @Router       /api/assets/upload [post]
func UploadAsset(svc service.AssetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.IngestInput

		// A request that is not multipart simply carries no file.
		if form, err := c.MultipartForm(); err == nil {
			in.RawTags = form.Value["tags"]
			if files := form.File["file"]; len(files) > 0 {
				fh := files[0]
				f, err := fh.Open()
				if err != nil {
					return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
				}
				defer f.Close()

				ct := fh.Header.Get("Content-Type")
				if ct == "" {
					ct = "application/octet-stream"
				}
				in.File = &service.FileUpload{
					Reader:      f,
					Filename:    fh.Filename,
					ContentType: ct,
					Size:        fh.Size,
				}
			}
		}

		view, err := svc.Ingest(c.UserContext(), in)
		if err != nil {
			return writeAppError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(uploadResponse{
			Message: "Asset uploaded successfully",
			Asset:   *view,
		})
	}
}

// ListAssets godoc
// @Summary      List assets
// @Description  Returns every matching asset, newest first.
// @Tags         assets
// @Produce      json
// @Param        type        query  string  false  "Partial mime type, e.g. image"
// @Param        uploadDate  query  string  false  "Upload day, YYYY-MM-DD"
// @Param        tags        query  string  false  "Comma-separated tags, any of"
// @Success      200  {object}  service.AssetListResult
// @Failure      400  {object}  errorPayload
// @Router       /api/assets [get]
func ListAssets(svc service.AssetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.List(c.UserContext(), validation.Filter{
			Type:       c.Query("type"),
			UploadDate: c.Query("uploadDate"),
			Tags:       c.Query("tags"),
		})
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(res)
	}
}

// DownloadAsset godoc
// @Summary      Download an asset
// @Tags         assets
// @Produce      octet-stream
// @Param        id   path  string  true  "Asset ID"
// @Success      200  {file}    binary
// @Failure      400  {object}  errorPayload
// @Failure      404  {object}  errorPayload
// @Router       /api/assets/{id}/download [get]
func DownloadAsset(svc service.AssetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dl, err := svc.Retrieve(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeAppError(c, err)
		}

		c.Attachment(dl.Filename)
		if dl.ContentType != "" {
			c.Set(fiber.HeaderContentType, dl.ContentType)
		}
		// fasthttp closes the body once it has been written out.
		if dl.Size > 0 {
			return c.SendStream(dl.Body, int(dl.Size))
		}
		return c.SendStream(dl.Body)
	}
}

// DeleteAsset godoc
// @Summary      Delete an asset
// @Tags         assets
// @Produce      json
// @Param        id   path  string  true  "Asset ID"
// @Success      200  {object}  deleteResponse
// @Failure      400  {object}  errorPayload
// @Failure      404  {object}  errorPayload
// @Failure      500  {object}  errorPayload
// @Router       /api/assets/{id} [delete]
func DeleteAsset(svc service.AssetService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Remove(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeAppError(c, err)
		}
		return c.JSON(deleteResponse{
			Message: "Asset deleted successfully",
			Details: *res,
		})
	}
}

type uploadResponse struct {
	Message string            `json:"message"`
	Asset   service.AssetView `json:"asset"`
}

type deleteResponse struct {
	Message string          `json:"message"`
	Details service.Deleted `json:"details"`
}

package users

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"strconv"
	"time"

	"pixelmuse/database"
	"pixelmuse/middleware"
	"pixelmuse/models"
	"pixelmuse/services"
	"pixelmuse/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const uploadURLExpiry = 15 * time.Minute
const downloadURLExpiry = 10 * time.Minute

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UploadRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,oneof=image/jpeg image/png image/webp"`
}

// POST /v1/upload
// Issues a time-limited presigned PUT URL for a browser-side image upload
// and records the asset row. The object key is server-generated; the client
// filename only contributes its extension when it matches the declared
// content type.
func UploadHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req UploadRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	ext, ok := allowedContentTypes[req.ContentType]
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Unsupported content type")
		return
	}
	if e := path.Ext(req.Filename); e == ".jpeg" && req.ContentType == "image/jpeg" {
		ext = ".jpeg"
	}

	objectKey := fmt.Sprintf("uploads/%d/%s%s", uid, uuid.NewString(), ext)

	uploadURL, err := utils.GenerateUploadURL(r.Context(), objectKey, req.ContentType, uploadURLExpiry)
	if err != nil {
		log.Printf("[upload] presign user=%d: %v", uid, err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	publicURL := utils.PublicAssetURL(objectKey)

	asset := models.Asset{
		UserID:      uid,
		ObjectKey:   objectKey,
		ContentType: req.ContentType,
		PublicURL:   publicURL,
	}
	if err := database.DB.Create(&asset).Error; err != nil {
		log.Printf("[upload] record asset user=%d: %v", uid, err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"upload_url":         uploadURL,
			"public_url":         publicURL,
			"object_key":         objectKey,
			"expires_in_seconds": int(uploadURLExpiry.Seconds()),
		},
	})
}

// GET /v1/assets
func ListAssetsHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var assets []models.Asset
	if err := database.DB.Where("user_id = ?", uid).
		Order("id DESC").
		Limit(services.MaxJobLimit).
		Find(&assets).Error; err != nil {
		log.Printf("[upload] list assets user=%d: %v", uid, err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    assets,
	})
}

// ownedAsset loads an asset only when it belongs to the caller. Missing and
// not-owned both come back as a 404 response.
func ownedAsset(w http.ResponseWriter, r *http.Request, uid uint) (*models.Asset, bool) {
	idStr := mux.Vars(r)["id"]
	assetID, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || assetID == 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid asset id")
		return nil, false
	}

	var asset models.Asset
	if err := database.DB.Where("id = ? AND user_id = ?", assetID, uid).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Asset not found")
			return nil, false
		}
		log.Printf("[assets] load user=%d asset=%d: %v", uid, assetID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return &asset, true
}

// GET /v1/assets/{id}/download
// Returns a short-lived presigned GET URL for the raw object, for assets the
// CDN doesn't front.
func AssetDownloadHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	asset, ok := ownedAsset(w, r, uid)
	if !ok {
		return
	}

	downloadURL, err := utils.GenerateSignedURL(r.Context(), asset.ObjectKey, downloadURLExpiry)
	if err != nil {
		log.Printf("[assets] presign download user=%d asset=%d: %v", uid, asset.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"download_url":       downloadURL,
			"expires_in_seconds": int(downloadURLExpiry.Seconds()),
		},
	})
}

// DELETE /v1/assets/{id}
// The row is authoritative; object removal is best-effort and an orphaned
// object is swept by the storage lifecycle rule.
func DeleteAssetHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	asset, ok := ownedAsset(w, r, uid)
	if !ok {
		return
	}

	if err := utils.DeleteFromS3(r.Context(), asset.ObjectKey); err != nil {
		log.Printf("[assets] storage delete user=%d key=%s: %v", uid, asset.ObjectKey, err)
	}

	if err := database.DB.Delete(&models.Asset{}, asset.ID).Error; err != nil {
		log.Printf("[assets] delete user=%d asset=%d: %v", uid, asset.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully"})
}

package users

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"pixelmuse/database"
	"pixelmuse/models"
	"pixelmuse/services"
	"pixelmuse/utils"

	"github.com/gorilla/mux"
)

type jobSummaryDTO struct {
	ID           uint    `json:"id"`
	Status       string  `json:"status"`
	Prompt       string  `json:"prompt"`
	Model        string  `json:"model"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func jobSummaries(jobs []models.GenerationJob) []jobSummaryDTO {
	items := make([]jobSummaryDTO, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, jobSummaryDTO{
			ID:           j.ID,
			Status:       j.Status,
			Prompt:       j.Prompt,
			Model:        j.Model,
			ThumbnailURL: j.ThumbnailURL,
			CreatedAt:    j.CreatedAt.Format(time.RFC3339),
		})
	}
	return items
}

func listJobs(w http.ResponseWriter, r *http.Request, defaultLimit int) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	// Normalize here too so the pagination metadata below reflects the
	// limit/offset the query actually ran with, not the raw client input.
	opts := services.JobQueryOptions{
		Limit:  limit,
		Offset: offset,
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}.Normalized()

	jobs, total, err := services.ListJobs(database.DB, uid, opts)
	if err != nil {
		log.Printf("[jobs] list user=%d: %v", uid, err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"data": jobSummaries(jobs),
			"pagination": map[string]interface{}{
				"limit":       opts.Limit,
				"offset":      opts.Offset,
				"total_rows":  total,
				"total_pages": int(math.Ceil(float64(total) / float64(opts.Limit))),
			},
		},
	})
}

// GET /v1/jobs
func ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	listJobs(w, r, services.DefaultJobLimit)
}

// GET /v1/jobs/recent
// Same shape as the full list with a smaller default page.
func RecentJobsHandler(w http.ResponseWriter, r *http.Request) {
	listJobs(w, r, 10)
}

// GET /v1/jobs/{id}
func GetJobHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	idStr := mux.Vars(r)["id"]
	jobID, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || jobID == 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid job id")
		return
	}

	job, err := services.GetJob(database.DB, uid, uint(jobID))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		log.Printf("[jobs] get user=%d job=%d: %v", uid, jobID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    job,
	})
}

package handlers

import (
	"io"
	"net/http"

	"subsidy-crm/crm-service/models"
	"subsidy-crm/crm-service/services"
	"subsidy-crm/crm-service/utils"

	"github.com/gorilla/mux"
)

type ProjectHandler struct {
	service *services.ProjectService
	storage *services.StorageService
}

func NewProjectHandler(service *services.ProjectService, storage *services.StorageService) *ProjectHandler {
	return &ProjectHandler{service: service, storage: storage}
}

func (h *ProjectHandler) guard(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return models.Actor{}, false
	}
	if err := services.RequireModule(actor, models.ModuleProjects); err != nil {
		utils.WriteError(w, err)
		return models.Actor{}, false
	}
	return actor, true
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var input services.CreateProjectInput
	if !decodeBody(w, r, &input) {
		return
	}

	project, err := h.service.CreateProject(r.Context(), actor, input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	projects, err := h.service.GetAllProjects(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard(w, r); !ok {
		return
	}
	project, err := h.service.GetProjectByID(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) ChangeStage(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var req struct {
		Stage models.ProjectStage `json:"stage"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	project, err := h.service.ChangeStage(r.Context(), actor, mux.Vars(r)["projectID"], req.Stage)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) AddMilestone(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var input services.MilestoneInput
	if !decodeBody(w, r, &input) {
		return
	}

	project, err := h.service.AddMilestone(r.Context(), actor, mux.Vars(r)["projectID"], input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var patch services.MilestonePatch
	if !decodeBody(w, r, &patch) {
		return
	}

	vars := mux.Vars(r)
	project, err := h.service.UpdateMilestone(r.Context(), actor, vars["projectID"], vars["milestoneID"], patch)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) SkipMilestone(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	project, err := h.service.SkipMilestone(r.Context(), actor, vars["projectID"], vars["milestoneID"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var input services.TaskInput
	if !decodeBody(w, r, &input) {
		return
	}

	vars := mux.Vars(r)
	project, err := h.service.AddTask(r.Context(), actor, vars["projectID"], vars["milestoneID"], input)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var patch services.TaskPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	vars := mux.Vars(r)
	project, err := h.service.UpdateTask(r.Context(), actor, vars["projectID"], vars["milestoneID"], vars["taskID"], patch)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	project, err := h.service.CompleteTask(r.Context(), actor, vars["projectID"], vars["milestoneID"], vars["taskID"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	project, err := h.service.AddComment(r.Context(), actor, vars["projectID"], vars["milestoneID"], vars["taskID"], req.Text)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// UploadAttachment stores a PDF and records it on the task. The execution
// gate inside AddAttachment covers the access rule, so a rejected upload
// leaves no orphaned file reference on the task.
func (h *ProjectHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, utils.Validation("a file upload is required"))
		return
	}
	defer file.Close()

	ref, err := h.storage.Store(header.Filename, file)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	vars := mux.Vars(r)
	project, err := h.service.AddAttachment(r.Context(), actor, vars["projectID"], vars["milestoneID"], vars["taskID"], header.Filename, ref)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// DownloadAttachment serves a stored PDF, re-checking the task execution
// rule against the task that owns the reference.
func (h *ProjectHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.guard(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	task, attachment, err := h.service.FindAttachment(r.Context(), vars["projectID"], vars["ref"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := services.RequireTaskExecution(actor, task); err != nil {
		utils.WriteError(w, err)
		return
	}

	f, err := h.storage.Open(attachment.Ref)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+attachment.FileName+"\"")
	io.Copy(w, f)
}

package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/voice-audit/internal/promptgen"
	"github.com/jonathan/voice-audit/internal/store"
	"github.com/jonathan/voice-audit/internal/types"
)

var validate = validator.New()

// BootstrapRequest is the request body for /profiles/{id}/bootstrap.
type BootstrapRequest struct {
	CompanyName string   `json:"companyName" validate:"required"`
	CompanyURL  string   `json:"companyUrl" validate:"required,url"`
	Competitors []string `json:"competitors" validate:"dive,url"`
	Region      string   `json:"region,omitempty"`
}

// BootstrapResponse is the 202 body for /profiles/{id}/bootstrap.
type BootstrapResponse struct {
	ProfileID string `json:"profileId"`
	RunID     string `json:"runId"`
	Status    string `json:"status"`
}

// AddPromptRequest is the request body for /profiles/{id}/prompts.
type AddPromptRequest struct {
	Category string `json:"category" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

// GeneratePromptsRequest is the request body for /profiles/{id}/prompts/generate.
type GeneratePromptsRequest struct {
	Category string `json:"category" validate:"required"`
	Count    int    `json:"count,omitempty" validate:"omitempty,min=1,max=25"`
}

// StatusResponse is the response for /profiles/{id}/status.
type StatusResponse struct {
	ProfileID string `json:"profileId"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	LastError string `json:"lastError,omitempty"`
}

func (s *Server) decodeAndValidate(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := validate.Struct(dest); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return &ErrValidation{Field: first.Field(), Message: "failed " + first.Tag() + " validation"}
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

func parseCategory(raw string) (types.Category, error) {
	category := types.Category(raw)
	if !category.Valid() {
		return "", &ErrValidation{Field: "category", Message: "unknown category " + raw}
	}
	return category, nil
}

// handleBootstrap stores the profile and kicks the full pipeline in the
// background. Responds 202 immediately; progress is observable via
// /status and /events.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")

	var req BootstrapRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	profile := types.Profile{
		ID:          profileID,
		CompanyName: req.CompanyName,
		CompanyURL:  req.CompanyURL,
		Competitors: req.Competitors,
		Region:      req.Region,
	}
	runID, err := s.runner.Bootstrap(r.Context(), profile)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	go func() {
		if err := s.runner.Run(context.Background(), profileID, runID); err != nil {
			log.Printf("Pipeline run %s failed: %v", runID, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, BootstrapResponse{
		ProfileID: profileID,
		RunID:     runID,
		Status:    "started",
	})
}

// handleAddPrompt stores a manual prompt and checks it synchronously.
func (s *Server) handleAddPrompt(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")

	var req AddPromptRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	category, err := parseCategory(req.Category)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	prompt, err := s.runner.AddPrompt(r.Context(), profileID, category, req.Text)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, prompt)
}

// handleGeneratePrompts generates a batch of prompts for one category and
// checks each one.
func (s *Server) handleGeneratePrompts(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")

	var req GeneratePromptsRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	category, err := parseCategory(req.Category)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	prompts, err := s.runner.GeneratePrompts(r.Context(), profileID, category, req.Count)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{"prompts": prompts})
}

// handleRefreshReport recomputes the report from stored results. Responds
// 409 while any prompt is still being checked.
func (s *Server) handleRefreshReport(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")

	rep, err := s.runner.RefreshReport(r.Context(), profileID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, rep)
}

// handleListPrompts returns every prompt for the profile in canonical order.
func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")

	prompts, err := promptgen.ListPrompts(r.Context(), s.store, profileID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"prompts": prompts})
}

// handleGetReport returns the stored overall report.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")

	var rep types.OverallReport
	found, err := s.store.Get(r.Context(), store.ReportPath(profileID), &rep)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		s.errorResponse(w, http.StatusNotFound, "report not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, rep)
}

// handleStatus returns the profile's pipeline status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")

	var profile types.Profile
	found, err := s.store.Get(r.Context(), store.ProfilePath(profileID), &profile)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		s.errorResponse(w, http.StatusNotFound, "profile not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, StatusResponse{
		ProfileID: profileID,
		Status:    string(profile.Status),
		Progress:  profile.Progress,
		LastError: profile.LastError,
	})
}

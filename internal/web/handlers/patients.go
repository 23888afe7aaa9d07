package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/patient-face-id/internal/patient"
)

// MaxRequestBodyBytes bounds uploaded request bodies. Base64 inflates images by a third.
const MaxRequestBodyBytes = 20 << 20

// PatientService runs the patient operations.
type PatientService interface {
	Register(ctx context.Context, req patient.Request) patient.Response
	Identify(ctx context.Context, req patient.Request) patient.Response
}

// PatientsHandler serves patient registration and identification.
type PatientsHandler struct {
	service PatientService
}

// NewPatientsHandler creates a new patients handler
func NewPatientsHandler(service PatientService) *PatientsHandler {
	return &PatientsHandler{service: service}
}

// Register handles POST /patients/register.
func (h *PatientsHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.Register)
}

// Identify handles POST /patients/identify.
func (h *PatientsHandler) Identify(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.Identify)
}

func (h *PatientsHandler) serve(
	w http.ResponseWriter, r *http.Request, op func(context.Context, patient.Request) patient.Response,
) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}

	req := patient.Request{}
	if len(body) > 0 {
		req.Body = body
	}

	resp := op(r.Context(), req)
	if resp.StatusCode >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %d", middleware.GetReqID(r.Context()), r.Method,
			sanitizeForLog(r.URL.Path), resp.StatusCode)
	}
	writeResponse(w, resp)
}

package patient

import (
	"encoding/json"
	"net/http"
)

// Response is a transport-neutral handler result carrying a JSON body.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Wire messages for business rejections.
const (
	MessageNoFace          = "No face detected or poor quality."
	MessageNoMatch         = "No confident match"
	MessageNoPatientRecord = "Face mapped but no patient record"
)

func jsonResponse(status int, payload any) Response {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func messageResponse(status int, message string) Response {
	return jsonResponse(status, map[string]string{"message": message})
}

// ErrorResponse builds the 500 failure response carrying the error text.
func ErrorResponse(err error) Response {
	return jsonResponse(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

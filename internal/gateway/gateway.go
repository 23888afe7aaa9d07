// Package gateway adapts the patient handlers to AWS Lambda invocations.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/kozaktomas/patient-face-id/internal/patient"
)

// HandlerFunc is a patient operation such as (*patient.Service).Register.
type HandlerFunc func(ctx context.Context, req patient.Request) patient.Response

// Event is the part of an invocation payload the handlers read. It matches API Gateway
// proxy events, where body is a string, and direct invocations carrying a JSON object body.
type Event struct {
	Body            json.RawMessage `json:"body,omitempty"`
	IsBase64Encoded bool            `json:"isBase64Encoded,omitempty"`
}

// Handler wraps h for lambda.Start. It never returns an error: failures are responses.
func Handler(h HandlerFunc) func(ctx context.Context, event Event) (events.APIGatewayV2HTTPResponse, error) {
	return func(ctx context.Context, event Event) (events.APIGatewayV2HTTPResponse, error) {
		body, err := requestBody(event)
		if err != nil {
			return toAPIGateway(patient.ErrorResponse(err)), nil
		}
		return toAPIGateway(h(ctx, patient.Request{Body: body})), nil
	}
}

// requestBody converts the event body into a patient request body. An empty or null body
// is absent, a string is the JSON document and anything else is passed on as raw JSON.
func requestBody(event Event) (any, error) {
	raw := bytes.TrimSpace(event.Body)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] != '"' {
		return json.RawMessage(raw), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: body: %w", patient.ErrInvalidRequest, err)
	}
	if s == "" {
		return nil, nil
	}
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: base64 body: %w", patient.ErrInvalidRequest, err)
		}
		return decoded, nil
	}
	return s, nil
}

func toAPIGateway(resp patient.Response) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}
}

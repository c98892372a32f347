package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/xid"

	"pdfmailer/internal/infra/logging"
)

// HandleAPIGateway serves the same contract as HandleSend for API Gateway
// REST proxy events (payload format 1.0) and Netlify Functions.
func (svc *SendService) HandleAPIGateway(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := lambdaRequestID(req.RequestContext.RequestID)
	res := svc.Process(WithRequestID(ctx, requestID), req.HTTPMethod, lambdaBody(req.Body, req.IsBase64Encoded, requestID))

	payload, err := json.Marshal(res.Body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: res.Status,
		Headers:    lambdaHeaders(requestID),
		Body:       string(payload),
	}, nil
}

// HandleAPIGatewayV2 serves HTTP API events using payload format 2.0, where
// the method lives in the request context.
func (svc *SendService) HandleAPIGatewayV2(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	requestID := lambdaRequestID(req.RequestContext.RequestID)
	res := svc.Process(WithRequestID(ctx, requestID), req.RequestContext.HTTP.Method, lambdaBody(req.Body, req.IsBase64Encoded, requestID))

	payload, err := json.Marshal(res.Body)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: res.Status,
		Headers:    lambdaHeaders(requestID),
		Body:       string(payload),
	}, nil
}

// HandleProxyEvent accepts either payload format and dispatches on its
// "version" field.
func (svc *SendService) HandleProxyEvent(ctx context.Context, raw json.RawMessage) (any, error) {
	var probe struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	if probe.Version == "2.0" {
		var req events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		return svc.HandleAPIGatewayV2(ctx, req)
	}

	var req events.APIGatewayProxyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return svc.HandleAPIGateway(ctx, req)
}

func lambdaRequestID(id string) string {
	if id == "" {
		return xid.New().String()
	}
	return id
}

func lambdaBody(body string, isBase64 bool, requestID string) []byte {
	if !isBase64 {
		return []byte(body)
	}
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		logging.Warn("Dropping undecodable request body", "request_id", requestID, "error", err)
		return nil
	}
	return decoded
}

func lambdaHeaders(requestID string) map[string]string {
	return map[string]string{
		fiber.HeaderContentType: fiber.MIMEApplicationJSON,
		fiber.HeaderXRequestID:  requestID,
	}
}

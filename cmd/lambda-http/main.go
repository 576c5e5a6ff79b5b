package main

// Build the API Gateway (HTTP API) handler:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"tdm-diagnostic/internal/bootstrap"
	"tdm-diagnostic/internal/shared/config"
	"tdm-diagnostic/internal/shared/server/respond"
	"tdm-diagnostic/internal/shared/telemetry"
)

type runtime struct {
	app   *bootstrap.App
	proxy *ginadapter.GinLambdaV2
}

var (
	current  *runtime
	buildErr error
	once     sync.Once
)

func load() (*runtime, error) {
	once.Do(func() {
		app, err := bootstrap.Build(config.Load())
		if err != nil {
			buildErr = err
			return
		}
		current = &runtime{app: app, proxy: ginadapter.NewV2(app.Router)}
	})
	return current, buildErr
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	rt, err := load()
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error()})
		return unavailable(), nil
	}
	return rt.serve(ctx, req)
}

// serve proxies one request. Without a queue, reports are delivered
// in-process and the sandbox freezes once the handler returns, so the
// invocation waits for them within its own deadline.
func (rt *runtime) serve(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := rt.proxy.ProxyWithContext(ctx, req)
	if rt.app.Queue == nil {
		if waitErr := rt.app.DiagnosesService.Wait(ctx); waitErr != nil {
			telemetry.Warn("lambda.report_wait_cut", map[string]any{
				"request_id": req.RequestContext.RequestID,
				"error":      waitErr.Error(),
			})
		}
	}
	return resp, err
}

func unavailable() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:    "unavailable",
		Message: "service is starting or misconfigured",
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	lambda.Start(handler)
}

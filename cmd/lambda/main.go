package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cmseditor/infrastructure/config"
	"cmseditor/infrastructure/di"
	"cmseditor/interfaces/http/rest/middleware"
)

// Global variables for Lambda lifecycle management
var (
	// chiLambda wraps the Chi router for AWS Lambda integration
	chiLambda *chiadapter.ChiLambdaV2

	// container holds the dependency injection container
	container *di.Container

	// coldStart tracks whether this is a cold start invocation
	coldStart = true

	// coldStartTime records when the cold start began
	coldStartTime time.Time
)

// Claims carrying roles, the first one present wins
var roleClaims = []string{"roles", "custom:roles", "cognito:groups"}

// setup runs once per execution environment, during cold start
func setup() {
	coldStartTime = time.Now()
	log.Println("Lambda cold start initiated")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.IsLambda = true

	// The container lives as long as the execution environment, there is no
	// point where cleanup could run
	container, _, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	chiRouter, ok := container.Router.Setup().(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	log.Printf("Lambda cold start completed in %v", time.Since(coldStartTime))
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req.Headers = applyAuthorizer(req)

	container.Logger.Debug("Lambda received request",
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("request_id", req.RequestContext.RequestID),
		zap.Bool("authorized", req.Headers[middleware.HeaderGatewayAuthorized] == "true"),
	)

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		resp.Headers["X-Cold-Start-Duration"] = time.Since(coldStartTime).String()
		coldStart = false
	} else {
		resp.Headers["X-Cold-Start"] = "false"
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	// the environment may be frozen once the response is returned
	if flushErr := container.Metrics.Flush(ctx); flushErr != nil {
		container.Logger.Debug("Metrics flush failed", zap.Error(flushErr))
	}

	if resp.StatusCode >= 500 {
		container.Logger.Error("Lambda error response",
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Int("status_code", resp.StatusCode),
		)
	}
	return resp, err
}

// applyAuthorizer replaces client supplied identity headers by the claims
// the API Gateway JWT authorizer verified
func applyAuthorizer(req events.APIGatewayV2HTTPRequest) map[string]string {
	headers := make(map[string]string, len(req.Headers)+4)
	for k, v := range req.Headers {
		switch strings.ToLower(k) {
		case strings.ToLower(middleware.HeaderGatewayAuthorized),
			strings.ToLower(middleware.HeaderUserID),
			strings.ToLower(middleware.HeaderUserEmail),
			strings.ToLower(middleware.HeaderUserRoles):
			continue
		}
		headers[k] = v
	}

	authorizer := req.RequestContext.Authorizer
	if authorizer == nil || authorizer.JWT == nil {
		return headers
	}
	claims := authorizer.JWT.Claims
	if claims["sub"] == "" {
		return headers
	}

	headers[middleware.HeaderGatewayAuthorized] = "true"
	headers[middleware.HeaderUserID] = claims["sub"]
	if email := claims["email"]; email != "" {
		headers[middleware.HeaderUserEmail] = email
	}
	for _, name := range roleClaims {
		if roles := normalizeRoles(claims[name]); roles != "" {
			headers[middleware.HeaderUserRoles] = roles
			break
		}
	}
	return headers
}

// normalizeRoles turns "[a b]" or "a,b" claim renderings into "a,b"
func normalizeRoles(v string) string {
	v = strings.Trim(strings.TrimSpace(v), "[]")
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	return strings.Join(fields, ",")
}

// main is the entry point for the Lambda function
func main() {
	setup()
	lambda.Start(Handler)
}

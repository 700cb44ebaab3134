package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	fiberadapter "github.com/awslabs/aws-lambda-go-api-proxy/fiber"

	"github.com/dns-automate/zone-manager/internal/app"
	"github.com/dns-automate/zone-manager/internal/config"
)

var fiberLambda *fiberadapter.FiberLambda

func initApp(opts ...app.Option) *app.App {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	a, err := app.New(context.Background(), cfg, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	return a
}

func init() {
	// Build the Lambda adapter once per execution environment.
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		a := initApp(app.WithProxyHeader("X-Forwarded-For"))
		fiberLambda = fiberadapter.New(a.HTTP())
	}
}

// Handler is the Lambda handler function for HTTP API v2
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return fiberLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(Handler)
		return
	}

	// Local mode
	a := initApp()
	defer a.Close()

	server := a.HTTP()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		a.Log.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			a.Log.Error(err, "shutdown failed")
		}
	}()

	a.Log.Info("starting server", "addr", a.Config.ListenAddr, "store", a.Config.Store.Driver)
	if err := server.Listen(a.Config.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Log.Error(err, "server stopped")
		a.Close()
		os.Exit(1)
	}
}

// Lambda entrypoint serving the processing log API behind API Gateway.
package main

import (
	"context"
	"log"

	"proclog-backend/internal/archive"
	"proclog-backend/internal/config"
	"proclog-backend/internal/handlers"
	appmiddleware "proclog-backend/internal/middleware"
	"proclog-backend/internal/messaging/eventbridge"
	"proclog-backend/internal/repository/ddb"
	"proclog-backend/internal/service/actions"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsEventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

var chiLambda *chiadapter.ChiLambdaV2

func init() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Fatal("unable to load SDK config", zap.Error(err))
	}

	dbClient := dynamodb.NewFromConfig(awsCfg)
	repo := ddb.NewRepository(dbClient, cfg.TableName, cfg.ObjectKeyIndex, cfg.ProcessingIndex)
	identities := ddb.NewIdentityStore(dbClient, cfg.TableName)

	var archiver actions.Archiver
	if cfg.ArchiveBucket != "" {
		archiver = archive.NewS3Archiver(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, logger)
	}
	var publisher actions.Publisher
	if cfg.EventBusName != "" {
		publisher = eventbridge.NewPublisher(awsEventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
	}

	svc := actions.NewService(repo, identities, archiver, publisher, logger)
	handler := handlers.NewActionHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(appmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Mount("/processing-actions", handler.Routes())

	chiLambda = chiadapter.NewV2(r)

	logger.Info("service initialized")
}

func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}

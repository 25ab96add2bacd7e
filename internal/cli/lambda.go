package cli

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-user-records/internal/app"
	"github.com/tbourn/go-user-records/internal/config"
	"github.com/tbourn/go-user-records/internal/observability"
)

// startLambda enters the Lambda runtime loop. It only returns in tests.
var startLambda = lambda.StartWithOptions

// NewLambdaCommand creates the lambda command.
func NewLambdaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve API Gateway events in the AWS Lambda runtime",
		Long: `Serve API Gateway REST proxy events (health check reports "AWS Lambda").

Dependencies are built once per execution environment and reused across
invocations. API_GATEWAY_BASE_PATH is stripped from incoming paths.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rootOpts.Config.Runtime.Mode = config.ModeEvent
			return runLambda(cmd.Context(), rootOpts)
		},
	}
}

func runLambda(ctx context.Context, opts *RootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, cfg.Runtime.Mode, opts.Version)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		flushTracing(shutdownTracing, cfg)
		return err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			flushTracing(shutdownTracing, cfg)
			if err := a.Close(); err != nil {
				log.Warn().Err(err).Msg("close database")
			}
		})
	}

	log.Info().Str("version", opts.Version).Str("base_path", cfg.APIBasePath).Msg("lambda runtime starting")
	startLambda(a.Lambda().Handle,
		lambda.WithContext(ctx),
		lambda.WithEnableSIGTERM(release),
	)
	release()
	return nil
}

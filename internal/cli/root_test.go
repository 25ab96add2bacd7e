package cli

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-user-records/internal/config"
)

// testEnv points the configuration at a temp SQLite file with archival
// degraded, so commands run without external services.
func testEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ARCHIVE_DEGRADED", "true")
	t.Setenv("PORT", "0")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("GIN_MODE", "test")
	t.Setenv("RUNTIME_MODE", "")
	t.Setenv("OTEL_ENABLED", "false")
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("v1.2.3")
	require.NotNil(t, cmd)
	assert.Equal(t, "userapi", cmd.Use)
	assert.Equal(t, "v1.2.3", cmd.Version)
	assert.Contains(t, cmd.Long, "AWS Lambda")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("dev")
	for _, name := range []string{"serve", "lambda"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand("dev")
	f := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, f)
	assert.Equal(t, defaultEnvFile, f.DefValue)
}

func TestLoad_MissingDefaultEnvFileIsIgnored(t *testing.T) {
	testEnv(t)
	t.Chdir(t.TempDir())

	opts := &RootOptions{EnvFile: defaultEnvFile}
	require.NoError(t, opts.load(false))
	assert.Equal(t, "sqlite", opts.Config.Database.Driver)
}

func TestLoad_ExplicitMissingEnvFileFails(t *testing.T) {
	testEnv(t)
	opts := &RootOptions{EnvFile: filepath.Join(t.TempDir(), "nope.env")}
	err := opts.load(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.env")
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	testEnv(t)
	t.Setenv("S3_BUCKET_NAME", "from-env")
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("S3_BUCKET_NAME=from-file\nAPI_GATEWAY_BASE_PATH=/api\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("API_GATEWAY_BASE_PATH") })

	opts := &RootOptions{EnvFile: path}
	require.NoError(t, opts.load(true))
	assert.Equal(t, "from-env", opts.Config.S3.Bucket)
	assert.Equal(t, "/api", opts.Config.APIBasePath)
}

func TestLoad_InvalidConfig(t *testing.T) {
	testEnv(t)
	t.Setenv("RUNTIME_MODE", "batch")
	opts := &RootOptions{EnvFile: defaultEnvFile}
	err := opts.load(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RUNTIME_MODE")
}

func TestServe_StopsWhenContextCanceled(t *testing.T) {
	testEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand("test")
	cmd.SetArgs([]string{"serve", "--env-file", filepath.Join(t.TempDir(), "absent.env")})
	// an explicit but missing env file is an error
	require.Error(t, cmd.ExecuteContext(ctx))

	cmd = NewRootCommand("test")
	cmd.SetArgs([]string{"serve"})
	t.Chdir(t.TempDir())
	require.NoError(t, cmd.ExecuteContext(ctx))
}

func TestLambda_StartsRuntimeWithEventHandler(t *testing.T) {
	testEnv(t)
	t.Chdir(t.TempDir())

	var handler func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
	prev := startLambda
	t.Cleanup(func() { startLambda = prev })
	startLambda = func(h interface{}, _ ...lambda.Option) {
		handler = h.(func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error))
		// invoke while the runtime "runs"; resources are released on return
		out, err := handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/healthcheck"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, out.StatusCode)
		assert.Contains(t, out.Body, config.ModeEvent.Environment())
	}

	cmd := NewRootCommand("test")
	cmd.SetArgs([]string{"lambda"})
	require.NoError(t, cmd.Execute())
	require.NotNil(t, handler)
}

func TestRoot_RunsConfiguredMode(t *testing.T) {
	testEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("RUNTIME_MODE", "event")

	called := false
	prev := startLambda
	t.Cleanup(func() { startLambda = prev })
	startLambda = func(interface{}, ...lambda.Option) { called = true }

	cmd := NewRootCommand("test")
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.True(t, called)
}

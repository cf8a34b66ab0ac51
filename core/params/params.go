package params

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/cockroachdb/errors"
)

// Config holds configuration for the parameter store.
type Config struct {
	// Enabled reads parameters at startup.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Prefix is the parameter path. Empty derives "/<env>/<app>".
	Prefix string `mapstructure:"prefix" default:""`
}

// Path returns the configured prefix or the one derived from env and app.
func (c Config) Path(env, app string) string {
	if c.Prefix != "" {
		return "/" + strings.Trim(c.Prefix, "/")
	}
	return "/" + env + "/" + app
}

// Loader reads configuration overrides from SSM Parameter Store.
type Loader struct {
	client ssm.GetParametersByPathAPIClient
}

// NewLoader creates a loader on client.
func NewLoader(client ssm.GetParametersByPathAPIClient) *Loader {
	return &Loader{client: client}
}

// Load reads every parameter under path with decryption and maps it to a config
// key: "/Dev/app/storage/secret_key" becomes "storage.secret_key".
func (l *Loader) Load(ctx context.Context, path string) (map[string]any, error) {
	path = "/" + strings.Trim(path, "/")
	out := make(map[string]any)

	pager := ssm.NewGetParametersByPathPaginator(l.client, &ssm.GetParametersByPathInput{
		Path:           aws.String(path),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "get parameters by path %s", path)
		}
		for _, p := range page.Parameters {
			key := Key(path, aws.ToString(p.Name))
			if key == "" {
				continue
			}
			out[key] = aws.ToString(p.Value)
		}
	}
	return out, nil
}

// Key maps a parameter name below path to a dotted, lowercase config key.
func Key(path, name string) string {
	rel := strings.TrimPrefix(name, strings.TrimSuffix(path, "/")+"/")
	if rel == name {
		return ""
	}
	rel = strings.Trim(rel, "/")
	return strings.ToLower(strings.ReplaceAll(rel, "/", "."))
}

package inicreds

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/logging"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestProvider_RetrieveReadsDefaultProfile(t *testing.T) {
	dir := t.TempDir()
	credPath := writeFile(t, dir, "credentials", "[default]\naws_access_key_id = AWSACCESSKEYID\naws_secret_access_key = AWSSECRETACCESSKEY\n")

	p := &Provider{CredentialsFile: credPath, ConfigFile: filepath.Join(dir, "config")}
	got, err := p.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "AWSACCESSKEYID", got.AccessKeyID)
	require.Equal(t, "AWSSECRETACCESSKEY", got.SecretAccessKey)
	require.Empty(t, got.SessionToken)
}

func TestProvider_RetrieveNamedProfileMergesConfigFile(t *testing.T) {
	dir := t.TempDir()
	credPath := writeFile(t, dir, "credentials", "[work]\naws_access_key_id = WORKKEY\naws_secret_access_key = WORKSECRET\n")
	cfgPath := writeFile(t, dir, "config", "[profile work]\nregion = eu-west-1\nrole_arn = arn:aws:iam::111122223333:role/demo\n")

	p := &Provider{CredentialsFile: credPath, ConfigFile: cfgPath, ProfileName: "work"}
	profile, err := p.LoadProfile()
	require.NoError(t, err)
	require.Equal(t, "WORKKEY", profile.AccessKeyID)
	require.Equal(t, "eu-west-1", profile.Region)
	require.Equal(t, "arn:aws:iam::111122223333:role/demo", profile.RoleARN)
}

func TestProvider_RetrieveMissingProfileErrors(t *testing.T) {
	dir := t.TempDir()
	credPath := writeFile(t, dir, "credentials", "[default]\naws_access_key_id = x\naws_secret_access_key = y\n")

	p := &Provider{CredentialsFile: credPath, ConfigFile: filepath.Join(dir, "config"), ProfileName: "missing"}
	_, err := p.Retrieve(context.Background(), logging.Nop())
	require.Error(t, err)

	var missing *MissingProfileError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "missing", missing.Profile)
}

func TestProvider_RetrieveMissingSecretKeyErrors(t *testing.T) {
	dir := t.TempDir()
	credPath := writeFile(t, dir, "credentials", "[default]\naws_access_key_id = onlykey\n")

	p := &Provider{CredentialsFile: credPath, ConfigFile: filepath.Join(dir, "config")}
	_, err := p.Retrieve(context.Background(), logging.Nop())
	require.True(t, errors.Is(err, ErrMissingSecretAccessKey))
}

func TestProvider_InvalidINIFileWraps(t *testing.T) {
	dir := t.TempDir()
	credPath := writeFile(t, dir, "credentials", "[default\nbroken")

	p := &Provider{CredentialsFile: credPath, ConfigFile: filepath.Join(dir, "config")}
	_, err := p.Retrieve(context.Background(), logging.Nop())
	require.True(t, errors.Is(err, ErrInvalidINIFile))
}

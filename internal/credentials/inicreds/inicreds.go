// Package inicreds implements the shared-config-file credential
// provider: reading ~/.aws/credentials and ~/.aws/config with
// gopkg.in/ini.v1 and expanding "~/" via github.com/mitchellh/go-homedir
// for the same cross-platform home-directory resolution AWS's own SDKs
// rely on.
package inicreds

import (
	"context"
	"fmt"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/ini.v1"

	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/logging"
)

// Parse-failure kinds. Each wraps the profile/file name where
// relevant so callers can format a precise message.
var (
	ErrInvalidCredentialFile  = fmt.Errorf("inicreds: invalid credential file")
	ErrInvalidINIFile         = fmt.Errorf("inicreds: invalid ini file")
	ErrMissingAccessKeyID     = fmt.Errorf("inicreds: missing aws_access_key_id")
	ErrMissingSecretAccessKey = fmt.Errorf("inicreds: missing aws_secret_access_key")
)

// MissingProfileError reports that name has no matching section in
// either file.
type MissingProfileError struct{ Profile string }

func (e *MissingProfileError) Error() string {
	return fmt.Sprintf("inicreds: missing profile %q", e.Profile)
}

const (
	envSharedCredentialsFile = "AWS_SHARED_CREDENTIALS_FILE"
	envConfigFile            = "AWS_CONFIG_FILE"
	envProfile               = "AWS_PROFILE"

	defaultCredentialsRelPath = "~/.aws/credentials"
	defaultConfigRelPath      = "~/.aws/config"
)

// Profile is the merged view of a credentials-file section and its
// corresponding config-file section.
type Profile struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	RoleARN         string
	SourceProfile   string
	SSOSession      string
	SSOStartURL     string
	SSOAccountID    string
	SSORoleName     string
	SSORegion       string
}

// Provider resolves a profile out of the AWS shared credentials/config
// files.
type Provider struct {
	// CredentialsFile and ConfigFile override the default ~/.aws paths;
	// empty means fall back to the env vars and then the defaults.
	CredentialsFile string
	ConfigFile      string
	// ProfileName overrides AWS_PROFILE/"default" profile selection.
	ProfileName string
}

// New returns a ConfigFile provider using the standard AWS file
// locations and profile-selection rules.
func New() *Provider { return &Provider{} }

func (p *Provider) credentialsPath() string {
	if p.CredentialsFile != "" {
		return p.CredentialsFile
	}
	if v := os.Getenv(envSharedCredentialsFile); v != "" {
		return v
	}
	return defaultCredentialsRelPath
}

func (p *Provider) configPath() string {
	if p.ConfigFile != "" {
		return p.ConfigFile
	}
	if v := os.Getenv(envConfigFile); v != "" {
		return v
	}
	return defaultConfigRelPath
}

func (p *Provider) profileName() string {
	if p.ProfileName != "" {
		return p.ProfileName
	}
	if v := os.Getenv(envProfile); v != "" {
		return v
	}
	return "default"
}

func expandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("inicreds: expand %q: %w", path, err)
	}
	return expanded, nil
}

// Retrieve loads the selected profile and returns its access key,
// secret key, and session token.
func (p *Provider) Retrieve(_ context.Context, _ logging.Logger) (credentials.ExpiringCredential, error) {
	profile, err := p.LoadProfile()
	if err != nil {
		return credentials.ExpiringCredential{}, err
	}
	if profile.AccessKeyID == "" {
		return credentials.ExpiringCredential{}, ErrMissingAccessKeyID
	}
	if profile.SecretAccessKey == "" {
		return credentials.ExpiringCredential{}, ErrMissingSecretAccessKey
	}
	return credentials.ExpiringCredential{
		Credential: credentials.Credential{
			AccessKeyID:     profile.AccessKeyID,
			SecretAccessKey: profile.SecretAccessKey,
			SessionToken:    profile.SessionToken,
		},
		Expiration: farFuture(),
	}, nil
}

// Shutdown is a no-op; this provider holds no long-lived resources.
func (p *Provider) Shutdown() error { return nil }

// LoadProfile parses the credentials and (if present) config files and
// merges the named profile's fields: credentials-file
// values win for access/secret/session, other fields fall through from
// the config file. When neither file exists it returns
// credentials.ErrNoProvider, so the chain selector advances.
func (p *Provider) LoadProfile() (Profile, error) {
	name := p.profileName()

	var out Profile
	var sawFile, found bool

	credPath, err := expandPath(p.credentialsPath())
	if err != nil {
		return Profile{}, err
	}
	if fileExists(credPath) {
		sawFile = true
		credFile, err := ini.Load(credPath)
		if err != nil {
			return Profile{}, fmt.Errorf("%w: %s: %v", ErrInvalidINIFile, credPath, err)
		}
		if credFile.HasSection(name) {
			applyCredentialsSection(&out, credFile.Section(name))
			found = true
		}
	}

	cfgPath, err := expandPath(p.configPath())
	if err != nil {
		return Profile{}, err
	}
	if fileExists(cfgPath) {
		sawFile = true
		cfgFile, err := ini.Load(cfgPath)
		if err != nil {
			return Profile{}, fmt.Errorf("%w: %s: %v", ErrInvalidINIFile, cfgPath, err)
		}
		sectionName := name
		if name != "default" {
			sectionName = "profile " + name
		}
		if sec, err := cfgFile.GetSection(sectionName); err == nil {
			applyConfigSection(&out, sec)
			found = true
		}
	}

	if !sawFile {
		return Profile{}, credentials.ErrNoProvider
	}
	if !found && name != "default" {
		return Profile{}, &MissingProfileError{Profile: name}
	}
	return out, nil
}

func applyCredentialsSection(p *Profile, sec *ini.Section) {
	p.AccessKeyID = sec.Key("aws_access_key_id").String()
	p.SecretAccessKey = sec.Key("aws_secret_access_key").String()
	p.SessionToken = sec.Key("aws_session_token").String()
	if p.Region == "" {
		p.Region = sec.Key("region").String()
	}
}

func applyConfigSection(p *Profile, sec *ini.Section) {
	if p.Region == "" {
		p.Region = sec.Key("region").String()
	}
	if p.RoleARN == "" {
		p.RoleARN = sec.Key("role_arn").String()
	}
	if p.SourceProfile == "" {
		p.SourceProfile = sec.Key("source_profile").String()
	}
	if p.SSOSession == "" {
		p.SSOSession = sec.Key("sso_session").String()
	}
	if p.SSOStartURL == "" {
		p.SSOStartURL = sec.Key("sso_start_url").String()
	}
	if p.SSOAccountID == "" {
		p.SSOAccountID = sec.Key("sso_account_id").String()
	}
	if p.SSORoleName == "" {
		p.SSORoleName = sec.Key("sso_role_name").String()
	}
	if p.SSORegion == "" {
		p.SSORegion = sec.Key("sso_region").String()
	}
}

// SSOSessionSection resolves the `[sso-session <name>]` section from the
// config file, returning ErrSSOSessionNotFound when absent.
func (p *Provider) SSOSessionSection(name string) (*ini.Section, error) {
	cfgPath, err := expandPath(p.configPath())
	if err != nil {
		return nil, err
	}
	cfgFile, err := ini.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidINIFile, cfgPath, err)
	}
	sec, err := cfgFile.GetSection("sso-session " + name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSSOSessionNotFound, name)
	}
	return sec, nil
}

// ErrSSOSessionNotFound signals that an [sso-session <name>] section was
// referenced but not present in the config file.
var ErrSSOSessionNotFound = fmt.Errorf("inicreds: sso session not found")

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func farFuture() time.Time { return time.Now().Add(24 * 365 * time.Hour) }

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/azstore"
	"github.com/sagarc03/azstore/config"
)

var version = "dev"

var (
	cfgFile     string
	profileName string
	accountFlag string
	keyFlag     string
	endpoint    string
	development bool
	jsonOutput  bool
	quiet       bool
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:     "azstore",
	Version: version,
	Short:   "Client and local emulator for SharedKey-authenticated storage accounts",
	Long: `azstore talks to blob and queue storage endpoints using SharedKey
request signing, and can serve a local in-memory emulator speaking the
same wire protocol.

Connection settings come from profiles (~/.azstore/config.yaml), from
AZSTORE_* environment variables, or from flags; flags win.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(logLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.azstore/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "profile name (env: AZSTORE_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&accountFlag, "account", "a", "", "storage account name (env: AZSTORE_ACCOUNT)")
	rootCmd.PersistentFlags().StringVarP(&keyFlag, "key", "k", "", "base64 account key (env: AZSTORE_KEY)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "endpoint URL override (env: AZSTORE_ENDPOINT)")
	rootCmd.PersistentFlags().BoolVar(&development, "dev", false, "target the local development emulator")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(containerCmd)
	rootCmd.AddCommand(blobCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveProfile merges profile file, environment and flags into one profile.
// Flags take precedence over environment, environment over the profile file.
func resolveProfile() (*config.Profile, error) {
	var profiles []*config.Profile

	path := cfgFile
	if path == "" {
		path = config.ProfilePathFromEnv()
	}
	if path == "" {
		path = config.DefaultProfilePath()
	}

	name := profileName
	if name == "" {
		name = config.ProfileFromEnv()
	}

	if path != "" {
		file, err := config.LoadProfileFile(path)
		switch {
		case err == nil:
			p, profErr := file.GetProfile(name)
			if profErr != nil && !errors.Is(profErr, config.ErrNoProfiles) {
				return nil, profErr
			}
			if profErr == nil {
				profiles = append(profiles, p)
			}
		case cfgFile != "":
			// only error when the user named the file explicitly
			return nil, err
		}
	}

	env := config.EnvProfile()
	profiles = append(profiles, &env)

	profiles = append(profiles, &config.Profile{
		Account:     accountFlag,
		Key:         keyFlag,
		Endpoint:    endpoint,
		Development: development,
	})

	return config.MergeProfiles(profiles...), nil
}

// coreClient builds a signed client from the resolved profile.
func coreClient() (*azstore.Client, error) {
	p, err := resolveProfile()
	if err != nil {
		return nil, err
	}

	var creds azstore.Credentials
	switch {
	case p.Development:
		creds = azstore.DevelopmentCredentials()
	case p.Account != "" && p.Key != "":
		creds = azstore.SharedKeyCredentials(p.Account, p.Key)
	default:
		return nil, fmt.Errorf("no credentials: set --account and --key, use --dev, or configure a profile: %w", azstore.ErrCredentialConfig)
	}

	opts := []azstore.Option{azstore.WithTimeout(30 * time.Second)}
	if p.Endpoint != "" {
		opts = append(opts, azstore.WithEndpoint(p.Endpoint))
	}

	return azstore.New(creds, opts...)
}

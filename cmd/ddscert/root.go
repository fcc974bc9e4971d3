package main

import (
	"fmt"
	"strings"

	"github.com/sensiblebit/ddscert/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	logLevel     string
	logFormat    string
	password     string
	passwordFile string
)

var rootCmd = &cobra.Command{
	Use:   "ddscert",
	Short: "Identity certificate loader for secure DDS participants",
	Long: `Resolve participant identity certificates from URIs (file:, data:, pkcs11:),
inspect them, and check a participants configuration before deployment.

Every persistent flag can also be set with a DDSCERT_ environment variable,
for example DDSCERT_PASSWORD or DDSCERT_LOG_LEVEL.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "Log format: auto, text, json")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "Password for protected certificate containers")
	rootCmd.PersistentFlags().StringVar(&passwordFile, "password-file", "", "File whose first line is the container password")

	registerCompletion(rootCmd, completionInput{"log-level", fixedCompletion("debug", "info", "warn", "error")})
	registerCompletion(rootCmd, completionInput{"log-format", fixedCompletion("auto", "text", "json")})
	registerCompletion(rootCmd, completionInput{"password-file", fileCompletion})

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(checkCmd)
}

func initConfig(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	if err := bindEnv(v, cmd.Flags()); err != nil {
		return err
	}
	logLevel = v.GetString("log-level")
	logFormat = v.GetString("log-format")
	password = v.GetString("password")
	passwordFile = v.GetString("password-file")

	internal.SetupLogger(logLevel, logFormat)
	return nil
}

// bindEnv binds every flag in fs to viper with DDSCERT_ environment
// overrides. Explicitly set flags win over the environment.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) error {
	v.SetEnvPrefix("DDSCERT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// resolvePassword applies the --password / --password-file precedence.
func resolvePassword() (string, error) {
	pw, err := internal.ResolvePassword(password, passwordFile)
	if err != nil {
		return "", fmt.Errorf("loading passwords: %w", err)
	}
	return pw, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/SceneBridge/internal/api"
	"github.com/AaronLay10/SceneBridge/internal/config"
	"github.com/AaronLay10/SceneBridge/internal/events"
	"github.com/AaronLay10/SceneBridge/internal/loader"
	"github.com/AaronLay10/SceneBridge/internal/version"
)

type rootOptions struct {
	configPath string
	envFile    string
}

// loadConfig returns the file config, or the defaults when no file is
// given.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}

func libraryOptions(cfg *config.Config) ([]loader.Option, error) {
	sv, err := cfg.SupportedVersion()
	if err != nil {
		return nil, err
	}
	mv, err := cfg.MinVersion()
	if err != nil {
		return nil, err
	}
	return []loader.Option{
		loader.WithSupportedVersion(sv),
		loader.WithMinVersion(mv),
		loader.WithMaxLiveObjects(cfg.Runtime.MaxLiveObjects),
	}, nil
}

// newLibrary creates the loader with lifecycle messages going to the
// event log.
func newLibrary(cfg *config.Config) (*loader.Library, error) {
	opts, err := libraryOptions(cfg)
	if err != nil {
		return nil, err
	}
	return loader.New(events.LifecycleReporter{BasePath: cfg.Runtime.BasePath}, opts...), nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "scenebridge",
		Short:         "Load FBX scenes and stream their transforms, cameras and lights",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// a missing .env is fine
			if err := godotenv.Load(opts.envFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load %s: %w", opts.envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to scenebridge.yaml")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "environment file to load")

	root.AddCommand(
		newLoadCmd(opts),
		newServeCmd(opts),
		newSampleCmd(),
		newVersionCmd(),
	)
	return root
}

func newLoadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>...",
		Short: "Load files and print their events as JSON lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			events.SetOutput(cmd.OutOrStdout())
			defer events.SetOutput(nil)

			lib, err := newLibrary(cfg)
			if err != nil {
				return err
			}
			svc := api.NewLoadService(lib)
			defer svc.Close()
			if lib.Status() != loader.Initialized {
				return fmt.Errorf("loader %s", lib.Status())
			}

			failed := 0
			for _, path := range args {
				if res, err := svc.Load(path, ""); err != nil || !res.OK {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d loads failed", failed, len(args))
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scenebridge %s\n", version.Version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

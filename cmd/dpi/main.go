package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/siblount/DazProductInstaller/internal/catalog"
	"github.com/siblount/DazProductInstaller/internal/config"
	"github.com/siblount/DazProductInstaller/internal/engine"
	"github.com/siblount/DazProductInstaller/internal/format"
	"github.com/siblount/DazProductInstaller/internal/images"
	"github.com/siblount/DazProductInstaller/internal/lock"
	"github.com/siblount/DazProductInstaller/internal/logging"
	"github.com/siblount/DazProductInstaller/internal/version"
)

type rootFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

type overrideFlags struct {
	Destination    string
	TempRoot       string
	MaxParallelism int
	ContentFolders []string
	CatalogBackend string
	CatalogPath    string
	S3Endpoint     string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3Region       string
	ImagesMode     string
	ImagesBaseURL  string
}

func main() {
	root := &rootFlags{}
	overrides := &overrideFlags{}

	rootCmd := &cobra.Command{
		Use:   "dpi",
		Short: "DAZ product package installer and cataloger",
	}

	rootCmd.PersistentFlags().StringVar(&root.ConfigPath, "config", "", "Path to config file (yaml/toml/json or .enc)")
	rootCmd.PersistentFlags().StringVar(&root.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&root.LogFormat, "log-format", "", "Log format (json, console)")

	rootCmd.PersistentFlags().StringVar(&overrides.Destination, "destination", "", "Library root to install content under")
	rootCmd.PersistentFlags().StringVar(&overrides.TempRoot, "temp-root", "", "Scratch directory for descriptor reads")
	rootCmd.PersistentFlags().IntVar(&overrides.MaxParallelism, "parallelism", 0, "Max archives processed in parallel")
	rootCmd.PersistentFlags().StringSliceVar(&overrides.ContentFolders, "content-folders", nil, "Extra folder names treated as content folders")
	rootCmd.PersistentFlags().StringVar(&overrides.CatalogBackend, "catalog", "", "Catalog backend (local, s3)")
	rootCmd.PersistentFlags().StringVar(&overrides.CatalogPath, "catalog-path", "", "Local catalog records directory")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Endpoint, "s3-endpoint", "", "S3 endpoint (MinIO/OSS)")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Bucket, "s3-bucket", "", "S3 bucket")
	rootCmd.PersistentFlags().StringVar(&overrides.S3AccessKey, "s3-access-key", "", "S3 access key")
	rootCmd.PersistentFlags().StringVar(&overrides.S3SecretKey, "s3-secret-key", "", "S3 secret key")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Region, "s3-region", "", "S3 region")
	rootCmd.PersistentFlags().StringVar(&overrides.ImagesMode, "images", "", "Thumbnail mode (yes, no, prompt)")
	rootCmd.PersistentFlags().StringVar(&overrides.ImagesBaseURL, "images-url", "", "Thumbnail endpoint base URL")

	rootCmd.AddCommand(newIngestCmd(root, overrides))
	rootCmd.AddCommand(newPeekCmd(root, overrides))
	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newIngestCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <archive>...",
		Short: "Extract, classify, and catalog product archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)

			pctx, err := buildContext(cfg, logger)
			if err != nil {
				return err
			}

			guard, err := lock.Acquire(cfg.Global.LockFile)
			if err != nil {
				return err
			}
			defer guard.Release()

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
			defer cancel()

			// Independent archives run in parallel workers; a failure in
			// one archive never aborts its siblings.
			var failed atomic.Int64
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(cfg.Extraction.MaxParallelism)
			for _, archivePath := range args {
				archivePath := archivePath
				g.Go(func() error {
					eng, err := engine.New(pctx, archivePath)
					if err != nil {
						logger.Error().Err(err).Str("archive", archivePath).Msg("archive rejected")
						failed.Add(1)
						return nil
					}
					defer eng.Close()
					if err := eng.Process(gctx); err != nil {
						logger.Error().Err(err).Str("archive", archivePath).Msg("archive failed")
						failed.Add(1)
						return nil
					}
					logger.Info().Str("archive", archivePath).Str("class", eng.Class.String()).Msg("archive ingested")
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			if n := failed.Load(); n > 0 {
				return fmt.Errorf("%d of %d archives failed", n, len(args))
			}
			return nil
		},
	}
}

func newPeekCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "peek <archive>",
		Short: "Enumerate an archive and classify it without extracting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)

			pctx, err := buildContext(cfg, logger)
			if err != nil {
				return err
			}
			eng, err := engine.New(pctx, args[0])
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
			defer cancel()

			if err := eng.Peek(ctx); err != nil {
				return err
			}
			eng.DetermineArchiveType()

			fmt.Printf("%s\t%s\t%s\n", eng.DisplayName, eng.Format, eng.Class)
			for _, entry := range eng.Hier.Entries {
				fmt.Printf("  %s\t%s\t%d\n", entry.Path, entry.Kind, entry.Size)
			}
			return nil
		},
	}
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>",
		Short: "Detect an archive's format by magic bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := format.DetectPath(args[0])
			if err != nil {
				return err
			}
			fmt.Println(f)
			if f == format.Unknown {
				return fmt.Errorf("unknown format: %s", args[0])
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	var input string
	var output string
	var key string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config utilities",
	}

	encrypt := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" || key == "" {
				return fmt.Errorf("--input, --output, and --key are required")
			}
			return config.EncryptConfigFile(input, output, key)
		},
	}
	encrypt.Flags().StringVar(&input, "input", "", "Input config file")
	encrypt.Flags().StringVar(&output, "output", "", "Output encrypted config file")
	encrypt.Flags().StringVar(&key, "key", "", "Encryption key (base64 or hex)")

	cmd.AddCommand(encrypt)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dpi %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

// buildContext wires the collaborators into one processing context.
func buildContext(cfg *config.Config, logger zerolog.Logger) (*engine.Context, error) {
	store, err := catalog.New(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	mode, err := images.ParseMode(cfg.Images.Mode)
	if err != nil {
		return nil, err
	}

	pctx := engine.NewContext(cfg.Extraction.Destination, cfg.Extraction.TempRoot, cfg.Extraction.MaxParallelism, logger)
	pctx.Catalog = store
	pctx.ContentFolders = cfg.Extraction.ContentFolders
	pctx.ImageMode = mode
	if cfg.Images.BaseURL != "" {
		pctx.Images = images.NewHTTP(cfg.Images.BaseURL, cfg.Images.Dir, cfg.Images.RetryCount, cfg.Images.RetryBackoff)
	}
	if mode == images.ModePrompt {
		pctx.Decide = images.Serialize(promptDecision(bufio.NewReader(os.Stdin)))
	}
	return pctx, nil
}

func loadConfig(root *rootFlags, overrides *overrideFlags) (*config.Config, error) {
	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, root, overrides)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, root *rootFlags, overrides *overrideFlags) {
	if root.LogLevel != "" {
		cfg.Global.LogLevel = root.LogLevel
	}
	if root.LogFormat != "" {
		cfg.Global.LogFormat = root.LogFormat
	}

	if overrides.Destination != "" {
		cfg.Extraction.Destination = overrides.Destination
	}
	if overrides.TempRoot != "" {
		cfg.Extraction.TempRoot = overrides.TempRoot
	}
	if overrides.MaxParallelism > 0 {
		cfg.Extraction.MaxParallelism = overrides.MaxParallelism
	}
	if len(overrides.ContentFolders) > 0 {
		cfg.Extraction.ContentFolders = append(cfg.Extraction.ContentFolders, overrides.ContentFolders...)
	}

	if overrides.CatalogBackend != "" {
		cfg.Catalog.Backend = overrides.CatalogBackend
	}
	if overrides.CatalogPath != "" {
		cfg.Catalog.Local.Path = overrides.CatalogPath
	}
	if overrides.S3Endpoint != "" {
		cfg.Catalog.S3.Endpoint = overrides.S3Endpoint
	}
	if overrides.S3Bucket != "" {
		cfg.Catalog.S3.Bucket = overrides.S3Bucket
	}
	if overrides.S3AccessKey != "" {
		cfg.Catalog.S3.AccessKey = overrides.S3AccessKey
	}
	if overrides.S3SecretKey != "" {
		cfg.Catalog.S3.SecretKey = overrides.S3SecretKey
	}
	if overrides.S3Region != "" {
		cfg.Catalog.S3.Region = overrides.S3Region
	}

	if overrides.ImagesMode != "" {
		cfg.Images.Mode = overrides.ImagesMode
	}
	if overrides.ImagesBaseURL != "" {
		cfg.Images.BaseURL = overrides.ImagesBaseURL
	}

	cfg.Catalog.Backend = strings.ToLower(cfg.Catalog.Backend)
	cfg.Images.Mode = strings.ToLower(cfg.Images.Mode)
}

// promptDecision answers image prompts synchronously from stdin. This is
// the caller-side decision callback; the engine never blocks on UI.
func promptDecision(in *bufio.Reader) images.Decision {
	return func(archiveFileName string) bool {
		fmt.Printf("download thumbnail for %s? [y/N] ", archiveFileName)
		line, err := in.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

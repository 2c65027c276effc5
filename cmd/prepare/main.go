package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Brownie44l1/screen-detect/internal/config"
	"github.com/Brownie44l1/screen-detect/internal/dataset"
	"github.com/Brownie44l1/screen-detect/internal/logging"
)

var (
	configPath string
	verbose    bool
	seed       int64
)

var rootCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Split the raw photo archive into train/val/test directories",
	Long: `Extracts the dataset archive (unless the raw directory is already populated),
labels every image by file name and copies it into

  <split_dir>/{train,val,test}/{real,screen}/<file>

The split is reproducible for a given seed. The split directory is replaced
on every run.`,
	SilenceUsage: true,
	RunE:         runPrepare,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "override the shuffle seed")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPrepare(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Dataset.Seed = seed
	}
	logger, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	fs := afero.NewOsFs()
	p := &dataset.Pipeline{
		Fs:          fs,
		Extractor:   dataset.ArchiveExtractor{Logger: logger.Named("extract")},
		ArchivePath: cfg.Dataset.ArchivePath,
		RawDir:      cfg.Dataset.RawDir,
		SplitDir:    cfg.Dataset.SplitDir,
		Partitioner: cfg.Partitioner(),
		Logger:      logger,
	}
	report, err := p.Run()
	if err != nil {
		logger.Error("data preparation failed", zap.Error(err))
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "prepared %d images in %s\n", report.Total(), cfg.Dataset.SplitDir)
	return nil
}

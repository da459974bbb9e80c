package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jask/mtxshell/internal/config"
	"github.com/jask/mtxshell/internal/database"
	"github.com/jask/mtxshell/internal/database/repository"
	"github.com/jask/mtxshell/internal/plot"
	"github.com/jask/mtxshell/internal/render"
	"github.com/jask/mtxshell/internal/service"
	"github.com/jask/mtxshell/internal/shell"
	"github.com/jask/mtxshell/internal/sparse"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	logLevel   string
	format     string
	file       string
	to         string
}

// matrixFlags registers the options that name a matrix file.
func matrixFlags(cmd *cobra.Command, f *rootFlags) {
	cmd.Flags().StringVar(&f.format, "format", "", "matrix file format: "+strings.Join(service.SourceFormats(), ", "))
	cmd.Flags().StringVar(&f.file, "file", "", "matrix file to load")
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "mtxshell",
		Short: "Browse the SuiteSparse matrix collection and inspect a local matrix",
		Long: "Without flags mtxshell starts a catalog session. With --format, --file and --to\n" +
			"it loads the matrix first and adds the r, c, v, info and spy commands.",
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if f.file == "" {
				return nil
			}
			if _, err := service.ParseSourceFormat(f.format); err != nil {
				return err
			}
			_, err := sparse.ParseFormat(f.to)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return runSession(cmd, f)
		},
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "override log.level")
	matrixFlags(root, f)
	root.Flags().StringVar(&f.to, "to", "", "storage layout: "+strings.Join(sparse.FormatNames(), ", "))
	root.MarkFlagsRequiredTogether("format", "file", "to")

	root.AddCommand(newInfoCmd(f), newPlotCmd(f), newIndexCmd(f), newConfigCmd(f))
	return root
}

// setup loads config and builds the stderr logger.
func setup(f *rootFlags) (config.Config, *log.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	logger, err := render.NewLogger(os.Stderr, cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// loadMatrix reads path from the local disk.
func loadMatrix(format, path string) (*sparse.Coordinate, sparse.MetaInfo, error) {
	src, err := service.ParseSourceFormat(format)
	if err != nil {
		return nil, sparse.MetaInfo{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, sparse.MetaInfo{}, err
	}
	loader := service.MatrixLoader{FS: osfs.New(filepath.Dir(abs))}
	return loader.Load(src, filepath.Base(abs))
}

func newCatalog(cfg config.Config, logger *log.Logger) (*service.CatalogService, func() error, error) {
	db, err := database.OpenMemory()
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewCatalogService(repository.NewMatrixRepo(db), service.CatalogOptions{
		BaseURL:           cfg.Catalog.BaseURL,
		IndexURL:          cfg.Catalog.IndexURL,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Timeout:           cfg.Catalog.Timeout,
	}, logger)
	return svc, db.Close, nil
}

func runSession(cmd *cobra.Command, f *rootFlags) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(f)
	if err != nil {
		return err
	}

	var m *shell.Matrix
	if f.file != "" {
		layout, err := sparse.ParseFormat(f.to)
		if err != nil {
			return err
		}
		coo, meta, err := loadMatrix(f.format, f.file)
		if err != nil {
			return fmt.Errorf("load %s: %w", f.file, err)
		}
		view, err := sparse.FromCoordinate(coo, layout)
		if err != nil {
			return fmt.Errorf("convert %s to %s: %w", f.file, layout, err)
		}
		m = &shell.Matrix{Coordinate: coo, View: view, Meta: meta}
		fmt.Fprintln(cmd.OutOrStdout(), render.Meta(meta))
	}

	catalog, closeDB, err := newCatalog(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	s := shell.NewSession(shell.Options{
		Config:  cfg,
		Out:     cmd.OutOrStdout(),
		Log:     logger,
		Catalog: catalog,
		Matrix:  m,
	})

	var in shell.LineReader
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		in = shell.NewPromptReader(os.Stdin, cmd.OutOrStdout())
	} else {
		in = shell.NewScannerReader(os.Stdin)
	}
	logger.Debug("session started", "matrix", m != nil)
	if err := s.Run(ctx, in); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newInfoCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print a matrix summary and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			if _, _, err := setup(f); err != nil {
				return err
			}
			_, meta, err := loadMatrix(f.format, f.file)
			if err != nil {
				return fmt.Errorf("load %s: %w", f.file, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Meta(meta))
			return nil
		},
	}
	matrixFlags(cmd, f)
	_ = cmd.MarkFlagRequired("format")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newPlotCmd(f *rootFlags) *cobra.Command {
	var width, height int
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Draw a matrix sparsity pattern and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			if _, _, err := setup(f); err != nil {
				return err
			}
			coo, meta, err := loadMatrix(f.format, f.file)
			if err != nil {
				return fmt.Errorf("load %s: %w", f.file, err)
			}
			lines, err := plot.Spy(coo, width, height)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Plot(meta.Name, lines, plot.Dot))
			return nil
		},
	}
	matrixFlags(cmd, f)
	cmd.Flags().IntVarP(&width, "width", "W", 60, "canvas width in cells")
	cmd.Flags().IntVarP(&height, "height", "H", 30, "canvas height in cells")
	_ = cmd.MarkFlagRequired("format")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newIndexCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Fetch the collection index and report its size and date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, logger, err := setup(f)
			if err != nil {
				return err
			}
			catalog, closeDB, err := newCatalog(cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()
			n, err := catalog.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			date, _, err := catalog.IndexDate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d matrices, index dated %s\n", n, date)
			return nil
		},
	}
}

func newConfigCmd(f *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Manage the config file"}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a TOML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			path := config.DefaultPath()
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			if err := config.Write(path, cfg, force); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)
	return cfgCmd
}

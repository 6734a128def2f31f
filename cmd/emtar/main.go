// cmd/emtar/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"emtar/internal/archive"
	"emtar/internal/codec"
	"emtar/internal/config"
	"emtar/internal/encoding"
	"emtar/internal/logging"
	"emtar/internal/vault"
	"emtar/internal/watch"
	"emtar/internal/workspace"

	"github.com/dgraph-io/badger/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "emtar",
	Short: "emtar works with extended text archives",
	Long: `emtar packs files into a single text archive and back. Archives are
plain text: binary files travel base64-encoded, snippet entries excerpt
larger sources, and edit entries carry search/replace programs that can
be applied to files on disk.`,
	SilenceUsage: true,
}

func init() {
	var createCmd = &cobra.Command{
		Use:   "create [paths...]",
		Short: "Pack files and directories into an archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			comment, _ := cmd.Flags().GetString("comment")

			cfg, logger, err := initRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a := archive.WithComment(comment)
			ws := workspace.New(encodingConfig(cfg), logger.Logger)
			if err := ws.PackPaths(a, args); err != nil {
				return fmt.Errorf("packing files: %w", err)
			}

			encoded, err := codec.NewEncoder().Encode(a)
			if err != nil {
				return fmt.Errorf("encoding archive: %w", err)
			}

			if out == "" || out == "-" {
				fmt.Print(encoded)
				return nil
			}
			if err := os.WriteFile(out, []byte(encoded), 0644); err != nil {
				return fmt.Errorf("writing archive: %w", err)
			}
			fmt.Printf("Wrote %d files to %s\n", len(a.Files), out)
			return nil
		},
	}
	createCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	createCmd.Flags().StringP("comment", "m", "", "Archive comment")

	var extractCmd = &cobra.Command{
		Use:     "extract [archive]",
		Aliases: []string{"x"},
		Short:   "Extract an archive to disk",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("directory")
			includeSnippets, _ := cmd.Flags().GetBool("include-snippets")

			cfg, logger, err := initRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := decodeArchiveArg(cfg, logger, args)
			if err != nil {
				return err
			}

			ws := workspace.New(encodingConfig(cfg), logger.Logger)
			opts := workspace.ExtractOptions{IncludeSnippets: includeSnippets}
			if err := ws.Extract(a, dir, opts); err != nil {
				return fmt.Errorf("extracting archive: %w", err)
			}

			fmt.Printf("Extracted %d files to %s\n", countExtractable(a, includeSnippets), dir)
			return nil
		},
	}
	extractCmd.Flags().StringP("directory", "C", ".", "Directory to extract into")
	extractCmd.Flags().Bool("include-snippets", false, "Also write snippet entries to disk")

	var listCmd = &cobra.Command{
		Use:     "list [archive]",
		Aliases: []string{"t"},
		Short:   "List the contents of an archive",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")

			cfg, logger, err := initRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := decodeArchiveArg(cfg, logger, args)
			if err != nil {
				return err
			}

			printListing(a, verbose)
			return nil
		},
	}
	listCmd.Flags().BoolP("verbose", "v", false, "Show entry kinds, sizes and command links")

	var applyCmd = &cobra.Command{
		Use:   "apply [archive]",
		Short: "Apply an archive's edit entries to files on disk",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("directory")
			strict, _ := cmd.Flags().GetBool("strict")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			cfg, logger, err := initRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := decodeArchiveArg(cfg, logger, args)
			if err != nil {
				return err
			}

			ws := workspace.New(encodingConfig(cfg), logger.Logger)
			applied, err := ws.ApplyEdits(a, dir, workspace.ApplyOptions{
				Strict: strict,
				DryRun: dryRun,
			})
			if err != nil {
				return fmt.Errorf("applying edits: %w", err)
			}

			green := color.New(color.FgGreen).SprintFunc()
			for _, ae := range applied {
				target := ae.Target
				if ae.InArchive {
					target += " (in archive)"
				}
				if dryRun {
					fmt.Printf("would patch %s\n", target)
				} else {
					fmt.Printf("%s patched %s\n", green("✓"), target)
				}
			}
			if len(applied) == 0 {
				fmt.Println("No edit entries in archive")
			}
			return nil
		},
	}
	applyCmd.Flags().StringP("directory", "C", ".", "Directory holding the edit targets")
	applyCmd.Flags().Bool("strict", false, "Fail when a search block matches more than once")
	applyCmd.Flags().Bool("dry-run", false, "Resolve and match edits without writing")

	var checkCmd = &cobra.Command{
		Use:   "check [archive]",
		Short: "Validate an archive and report problems",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := initRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := decodeArchiveArg(cfg, logger, args)
			if err != nil {
				return err
			}

			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()

			problems := a.ValidateSnippetRefs()
			if len(problems) == 0 {
				fmt.Printf("%s %d files, %d commands, all snippet references resolve\n",
					green("✓"), len(a.Files), len(a.Commands))
				return nil
			}

			for _, p := range problems {
				fmt.Printf("%s %s references missing command #%s\n",
					red("✗"), p.File, p.MissingCommand)
			}
			return fmt.Errorf("%d unresolved snippet references", len(problems))
		},
	}

	var watchCmd = &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and snapshot it on change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			cfg, logger, err := initRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync()

			v, db, err := openVault(cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer db.Close()
			defer v.Close()

			ws := workspace.New(encodingConfig(cfg), logger.Logger)
			w, err := watch.New(ws, v, watch.Options{
				Root:   dir,
				Logger: logger.Logger,
			})
			if err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			defer w.Close()

			fmt.Printf("Watching %s (Ctrl-C to stop)\n", dir)
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			fmt.Println("\nStopping watcher")
			return nil
		},
	}

	var snapCmd = &cobra.Command{
		Use:   "snap",
		Short: "Work with stored archive snapshots",
	}

	var snapListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := initRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync()

			v, db, err := openVault(cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer db.Close()
			defer v.Close()

			snaps, err := v.List()
			if err != nil {
				return fmt.Errorf("listing snapshots: %w", err)
			}
			if len(snaps) == 0 {
				fmt.Println("No snapshots stored")
				return nil
			}

			for _, s := range snaps {
				fmt.Printf("%s  %s  %4d files  %7d bytes  [%s]\n",
					s.ID[:8],
					s.CreatedAt.Format(time.RFC3339),
					s.FileCount,
					s.Size,
					s.Label,
				)
			}
			return nil
		},
	}

	var snapRestoreCmd = &cobra.Command{
		Use:   "restore <id>",
		Short: "Write a snapshot's archive to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")

			cfg, logger, err := initRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync()

			v, db, err := openVault(cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer db.Close()
			defer v.Close()

			id, err := resolveSnapshotID(v, args[0])
			if err != nil {
				return err
			}
			snap, content, err := v.Get(id)
			if err != nil {
				return fmt.Errorf("reading snapshot: %w", err)
			}

			if out == "" || out == "-" {
				os.Stdout.Write(content)
				return nil
			}
			if err := os.WriteFile(out, content, 0644); err != nil {
				return fmt.Errorf("writing archive: %w", err)
			}
			fmt.Printf("Restored snapshot %s (%d files) to %s\n", snap.ID[:8], snap.FileCount, out)
			return nil
		},
	}
	snapRestoreCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")

	var snapRmCmd = &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := initRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync()

			v, db, err := openVault(cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer db.Close()
			defer v.Close()

			id, err := resolveSnapshotID(v, args[0])
			if err != nil {
				return err
			}
			if err := v.Delete(id); err != nil {
				return fmt.Errorf("deleting snapshot: %w", err)
			}
			fmt.Printf("Deleted snapshot %s\n", id[:8])
			return nil
		},
	}

	var snapVerifyCmd = &cobra.Command{
		Use:   "verify <id>",
		Short: "Check a snapshot's stored content against its hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := initRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync()

			v, db, err := openVault(cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer db.Close()
			defer v.Close()

			id, err := resolveSnapshotID(v, args[0])
			if err != nil {
				return err
			}
			if err := v.Verify(id); err != nil {
				return fmt.Errorf("verifying snapshot: %w", err)
			}
			fmt.Printf("%s snapshot %s is intact\n",
				color.New(color.FgGreen).Sprint("✓"), id[:8])
			return nil
		},
	}

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(snapCmd)

	snapCmd.AddCommand(snapListCmd)
	snapCmd.AddCommand(snapRestoreCmd)
	snapCmd.AddCommand(snapRmCmd)
	snapCmd.AddCommand(snapVerifyCmd)
}

// initRuntime loads the config file and builds the logger from it.
func initRuntime() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, logger, nil
}

func encodingConfig(cfg *config.Config) encoding.Config {
	return encoding.Config{
		CheckContentMarkers: cfg.Encoding.CheckContentMarkers,
		ValidateUTF8:        cfg.Encoding.ValidateUTF8,
	}
}

// decodeArchiveArg reads the archive named by args, or stdin when no
// argument was given. Edit targets missing from the archive resolve
// against the filesystem.
func decodeArchiveArg(cfg *config.Config, logger *logging.Logger, args []string) (*archive.Archive, error) {
	var (
		input []byte
		err   error
		path  string
	)
	if len(args) == 1 && args[0] != "-" {
		path = args[0]
		input, err = os.ReadFile(path)
	} else {
		input, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	dec := codec.NewDecoder(codec.DecoderOptions{
		StrictTags: cfg.Decoder.StrictTags,
		Checker:    workspace.Checker{},
		Logger:     logger.WithArchive(path),
	})
	a, err := dec.Decode(string(input))
	if err != nil {
		return nil, fmt.Errorf("decoding archive: %w", err)
	}
	return a, nil
}

// openVault opens the snapshot store configured in cfg. The returned
// badger handle must be closed by the caller after the vault.
func openVault(cfg *config.Config, logger *zap.Logger) (*vault.Vault, *badger.DB, error) {
	metaDir := filepath.Join(cfg.Vault.Root, "meta")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating vault directory: %w", err)
	}

	opts := badger.DefaultOptions(metaDir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("opening vault database: %w", err)
	}

	v, err := vault.New(db, vault.Options{
		Root:      filepath.Join(cfg.Vault.Root, "blobs"),
		CacheSize: cfg.Vault.CacheSize,
		Logger:    logger,
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("opening vault: %w", err)
	}
	return v, db, nil
}

// resolveSnapshotID accepts a full snapshot ID or a unique prefix.
func resolveSnapshotID(v *vault.Vault, ref string) (string, error) {
	snaps, err := v.List()
	if err != nil {
		return "", fmt.Errorf("listing snapshots: %w", err)
	}

	var match string
	for _, s := range snaps {
		if s.ID == ref {
			return s.ID, nil
		}
		if len(ref) >= 4 && len(ref) < len(s.ID) && s.ID[:len(ref)] == ref {
			if match != "" {
				return "", fmt.Errorf("snapshot prefix %q is ambiguous", ref)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no snapshot matches %q", ref)
	}
	return match, nil
}

func countExtractable(a *archive.Archive, includeSnippets bool) int {
	n := 0
	for i := range a.Files {
		f := &a.Files[i]
		if f.EditRef != nil {
			continue
		}
		if f.SnippetRef != nil && !includeSnippets {
			continue
		}
		n++
	}
	return n
}

func printListing(a *archive.Archive, verbose bool) {
	yellow := color.New(color.FgYellow).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if verbose && len(a.Commands) > 0 {
		fmt.Println("Commands:")
		for _, c := range a.Commands {
			fmt.Printf("  %s -> #%s\n", c.Name, c.Href)
		}
		fmt.Println()
	}

	for i := range a.Files {
		f := &a.Files[i]
		if !verbose {
			fmt.Println(f.Name)
			continue
		}

		kind := "text"
		switch {
		case f.EditRef != nil:
			kind = yellow("edit")
		case f.SnippetRef != nil:
			kind = cyan("snip")
		case f.IsBinary:
			kind = blue("bin")
		}

		detail := ""
		switch {
		case f.EditRef != nil && f.EditRef.CommandHref != "":
			detail = fmt.Sprintf("  #%s:%d", f.EditRef.CommandHref, f.EditRef.StartLine)
		case f.SnippetRef != nil && f.SnippetRef.CommandHref != "":
			detail = fmt.Sprintf("  #%s:%d", f.SnippetRef.CommandHref, f.SnippetRef.Line)
		case f.SnippetRef != nil:
			detail = fmt.Sprintf("  :%d", f.SnippetRef.Line)
		}
		fmt.Printf("%-4s  %7d  %s%s\n", kind, len(f.Data), f.Name, detail)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

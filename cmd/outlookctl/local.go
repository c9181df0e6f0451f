package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/automation/localstore"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/folder"
	"github.com/daviddao/outlookctl/internal/types"
)

type importResult struct {
	Version  string           `json:"version"`
	Folder   types.FolderInfo `json:"folder"`
	Imported []types.ItemID   `json:"imported"`
}

type mkdirResult struct {
	Version string           `json:"version"`
	Folder  types.FolderInfo `json:"folder"`
}

var (
	importFolder string
	mkdirParent  string
)

// openLocal opens the configured SQLite mailbox whatever --backend says.
func openLocal() (*localstore.Store, error) {
	s, err := localstore.Open(cfg.Local.Path, owner())
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "open local store", err)
	}
	return s, nil
}

func info(f automation.Folder) types.FolderInfo {
	return types.FolderInfo{Name: f.Name, Path: f.Path, StoreID: f.StoreID}
}

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Seed the local SQLite mailbox",
	Long: `Commands for the local backend's mailbox file (local.path in the config).
They work on that file whichever backend is selected.`,
}

var localImportCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import .eml files as unread messages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started = true
		ctx := cmd.Context()
		s, err := openLocal()
		if err != nil {
			return err
		}
		defer s.Close()

		f, err := folder.ResolveString(ctx, s, importFolder)
		if err != nil {
			return err
		}
		res := importResult{Version: types.Version, Folder: info(f)}
		for _, path := range args {
			file, err := os.Open(path)
			if err != nil {
				return errs.Wrap(errs.Validation, "local import", err)
			}
			id, err := s.Import(ctx, f, file)
			file.Close()
			if err != nil {
				return errs.Wrap(errs.Operation, "local import", fmt.Errorf("%s: %w", path, err))
			}
			logger.Debug("imported message", "file", path, "entry_id", id.EntryID)
			res.Imported = append(res.Imported, id)
		}
		return emit(cmd.OutOrStdout(), res)
	},
}

var localMkdirCmd = &cobra.Command{
	Use:   "mkdir NAME",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started = true
		ctx := cmd.Context()
		s, err := openLocal()
		if err != nil {
			return err
		}
		defer s.Close()

		var parent *automation.Folder
		if mkdirParent != "" {
			p, err := folder.ResolveString(ctx, s, mkdirParent)
			if err != nil {
				return err
			}
			parent = &p
		}
		f, err := s.AddFolder(ctx, parent, args[0])
		if err != nil {
			return errs.Wrap(errs.Operation, "local mkdir", err)
		}
		return emit(cmd.OutOrStdout(), mkdirResult{Version: types.Version, Folder: info(f)})
	},
}

func init() {
	localImportCmd.Flags().StringVar(&importFolder, "folder", "inbox", "Folder to import into")
	localMkdirCmd.Flags().StringVar(&mkdirParent, "parent", "", "Parent folder (default: top level)")

	localCmd.AddCommand(localImportCmd, localMkdirCmd)
	rootCmd.AddCommand(localCmd)
}

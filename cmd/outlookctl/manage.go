package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/daviddao/outlookctl/internal/bridge"
	"github.com/daviddao/outlookctl/internal/types"
)

var (
	destFlag   string
	markIDs    []string
	unreadFlag bool
)

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move a message to another folder",
	Long: `Move a message to another folder. The backend may assign the moved
message a new id; use the one in the result from now on.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.Move(ctx, itemID(idFlag, storeFlag), destFlag)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Move a message to Deleted Items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.Delete(ctx, itemID(idFlag, storeFlag))
		})
	},
}

var markReadCmd = &cobra.Command{
	Use:   "mark-read",
	Short: "Mark messages read or unread",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]types.ItemID, 0, len(markIDs))
		for _, id := range markIDs {
			ids = append(ids, itemID(id, storeFlag))
		}
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.MarkRead(ctx, ids, unreadFlag)
		})
	},
}

var attachmentsCmd = &cobra.Command{
	Use:   "attachments",
	Short: "Work with message attachments",
}

var attachmentsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save every attachment of a message to a directory",
	Long: `Save every attachment of a message to --dest. File names are sanitised
and never overwrite an existing file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.SaveAttachments(ctx, itemID(idFlag, storeFlag), destFlag)
		})
	},
}

func init() {
	addIDFlags(moveCmd, "Message")
	moveCmd.Flags().StringVar(&destFlag, "dest", "", "Destination folder (inbox, by-name:<name>, by-path:<a/b>, ...)")
	moveCmd.MarkFlagRequired("dest")

	addIDFlags(deleteCmd, "Message")

	markReadCmd.Flags().StringSliceVar(&markIDs, "id", nil, "Entry ids (comma-separated or repeated)")
	markReadCmd.Flags().StringVar(&storeFlag, "store", "", "Store id shared by the messages")
	markReadCmd.Flags().BoolVar(&unreadFlag, "unread", false, "Mark unread instead")
	markReadCmd.MarkFlagRequired("id")

	addIDFlags(attachmentsSaveCmd, "Message")
	attachmentsSaveCmd.Flags().StringVar(&destFlag, "dest", "", "Directory to save into")
	attachmentsSaveCmd.MarkFlagRequired("dest")
	attachmentsCmd.AddCommand(attachmentsSaveCmd)

	rootCmd.AddCommand(moveCmd, deleteCmd, markReadCmd, attachmentsCmd)
}

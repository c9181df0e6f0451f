package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/daviddao/outlookctl/internal/bridge"
	"github.com/daviddao/outlookctl/internal/confirm"
)

var (
	toList      []string
	ccList      []string
	bccList     []string
	subjectText string
	bodyText    string
	bodyHTML    string
	attachPaths []string

	replyToID    string
	replyToStore string
	replyAll     bool

	draftID     string
	draftStore  string
	confirmSend string
	confirmFile string
	unsafeNew   bool
	logBody     bool

	forwardNote string
)

func draftRequest() bridge.DraftRequest {
	return bridge.DraftRequest{
		To:          toList,
		CC:          ccList,
		BCC:         bccList,
		Subject:     subjectText,
		Body:        bodyText,
		HTMLBody:    bodyHTML,
		Attachments: attachPaths,
	}
}

func confirmation() confirm.Confirmation {
	return confirm.Confirmation{Value: confirmSend, File: confirmFile}
}

func addRecipientFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&toList, "to", nil, "To recipients (comma-separated or repeated)")
	cmd.Flags().StringSliceVar(&ccList, "cc", nil, "CC recipients")
	cmd.Flags().StringSliceVar(&bccList, "bcc", nil, "BCC recipients")
}

func addComposeFlags(cmd *cobra.Command) {
	addRecipientFlags(cmd)
	cmd.Flags().StringVar(&subjectText, "subject", "", "Subject line")
	cmd.Flags().StringVar(&bodyText, "body-text", "", "Plain-text body")
	cmd.Flags().StringVar(&bodyHTML, "body-html", "", "HTML body")
	cmd.Flags().StringArrayVar(&attachPaths, "attach", nil, "File to attach (repeatable)")
}

func addConfirmFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&confirmSend, "confirm-send", "", "Must be exactly YES to send")
	cmd.Flags().StringVar(&confirmFile, "confirm-send-file", "", "File whose content is YES")
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Save a new draft, reply or reply-all",
	Long: `Save a draft to the Drafts folder. Nothing is sent.

With --reply-to-id the draft is a reply to that message, addressed to its
sender (or everyone with --reply-all); extra recipients and a body are added
on top of the quoted original.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			if replyToID != "" {
				return b.Reply(ctx, itemID(replyToID, replyToStore), replyAll, draftRequest())
			}
			return b.CreateDraft(ctx, draftRequest())
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a draft",
	Long: `Send an existing draft. --confirm-send YES (or --confirm-send-file) is
required.

Sending a new message without a draft also needs --unsafe-send-new; prefer
'outlookctl draft' followed by 'outlookctl send --draft-id'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			if draftID != "" {
				return b.Send(ctx, bridge.SendRequest{
					ID:      itemID(draftID, draftStore),
					Confirm: confirmation(),
					LogBody: logBody,
				})
			}
			return b.SendNew(ctx, bridge.SendNewRequest{
				DraftRequest: draftRequest(),
				UnsafeNew:    unsafeNew,
				Confirm:      confirmation(),
				LogBody:      logBody,
			})
		})
	},
}

var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Save a forward of a message as a draft",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			req := bridge.DraftRequest{To: toList, CC: ccList, BCC: bccList, Body: forwardNote}
			return b.Forward(ctx, itemID(idFlag, storeFlag), req)
		})
	},
}

func init() {
	addComposeFlags(draftCmd)
	draftCmd.Flags().StringVar(&replyToID, "reply-to-id", "", "Entry id of the message to reply to")
	draftCmd.Flags().StringVar(&replyToStore, "reply-to-store", "", "Store id of the message to reply to")
	draftCmd.Flags().BoolVar(&replyAll, "reply-all", false, "Reply to all recipients")

	addComposeFlags(sendCmd)
	sendCmd.Flags().StringVar(&draftID, "draft-id", "", "Entry id of the draft to send")
	sendCmd.Flags().StringVar(&draftStore, "draft-store", "", "Store id of the draft")
	addConfirmFlags(sendCmd)
	sendCmd.Flags().BoolVar(&unsafeNew, "unsafe-send-new", false, "Allow sending a new message without a draft")
	sendCmd.Flags().BoolVar(&logBody, "log-body", false, "Copy the body into the audit log")

	addIDFlags(forwardCmd, "Message")
	addRecipientFlags(forwardCmd)
	forwardCmd.Flags().StringVar(&forwardNote, "message", "", "Text placed above the forwarded message")

	rootCmd.AddCommand(draftCmd, sendCmd, forwardCmd)
}

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/daviddao/outlookctl/internal/bridge"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/filter"
	"github.com/daviddao/outlookctl/internal/record"
)

// Flags shared between commands only where their defaults agree.
var (
	folderFlag     string
	listCount      int
	unreadOnlyFlag bool
	sinceFlag      string
	untilFlag      string
	snippetFlag    bool
	snippetChars   int

	idFlag      string
	storeFlag   string
	bodyFlag    bool
	headersFlag bool
	maxBodyFlag int

	queryFlag       string
	fromFlag        string
	toFlag          string
	ccFlag          string
	subjectFlag     string
	searchCount     int
	withAttachments bool
	noAttachments   bool
)

// snippetLen is 0 unless snippets were asked for.
func snippetLen() int {
	if !snippetFlag {
		return 0
	}
	if snippetChars > 0 {
		return snippetChars
	}
	return cfg.SnippetChars
}

// bounds parses --since and --until. A date-only until covers the day.
func bounds() (since, until time.Time, err error) {
	if since, err = filter.ParseBound(sinceFlag, false, time.Local); err != nil {
		return
	}
	until, err = filter.ParseBound(untilFlag, true, time.Local)
	return
}

func addSnippetFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&snippetFlag, "include-body-snippet", false, "Add a plain-text body snippet to each item")
	cmd.Flags().IntVar(&snippetChars, "body-snippet-chars", 0, "Snippet length in characters (default: snippet_chars from config)")
}

func addIDFlags(cmd *cobra.Command, what string) {
	cmd.Flags().StringVar(&idFlag, "id", "", what+" entry id")
	cmd.Flags().StringVar(&storeFlag, "store", "", what+" store id")
	cmd.MarkFlagRequired("id")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest messages in a folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, until, err := bounds()
		if err != nil {
			return err
		}
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.List(ctx, bridge.ListRequest{
				Folder:       folderFlag,
				Count:        listCount,
				UnreadOnly:   unreadOnlyFlag,
				Since:        since,
				Until:        until,
				SnippetChars: snippetLen(),
			})
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Show one message",
	Long: `Show one message by id. Body and headers are only included when asked
for with --include-body and --include-headers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if maxBodyFlag < 0 {
			return errs.New(errs.Validation, "get", "--max-body-chars must not be negative")
		}
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.GetMessage(ctx, itemID(idFlag, storeFlag), record.DetailOptions{
				IncludeBody:    bodyFlag,
				IncludeHeaders: headersFlag,
				MaxBodyChars:   maxBodyFlag,
			})
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a folder",
	Long: `Search a folder by sender, recipients, subject, free text, read state,
attachments and date range. All given criteria must match.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if withAttachments && noAttachments {
			return errs.New(errs.Validation, "search", "--has-attachments and --no-attachments are exclusive")
		}
		since, until, err := bounds()
		if err != nil {
			return err
		}
		p := filter.Predicate{
			From:       fromFlag,
			To:         toFlag,
			CC:         ccFlag,
			Subject:    subjectFlag,
			Text:       queryFlag,
			UnreadOnly: unreadOnlyFlag,
			Since:      since,
			Until:      until,
		}
		if withAttachments || noAttachments {
			p.HasAttachments = &withAttachments
		}
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.Search(ctx, bridge.SearchRequest{
				Folder:       folderFlag,
				Predicate:    p,
				Limit:        searchCount,
				SnippetChars: snippetLen(),
			})
		})
	},
}

func init() {
	listCmd.Flags().StringVar(&folderFlag, "folder", "inbox", "Folder: inbox, sent, drafts, deleted, outbox, junk, by-name:<name> or by-path:<a/b>")
	listCmd.Flags().IntVar(&listCount, "count", bridge.DefaultListCount, "Maximum number of messages")
	listCmd.Flags().BoolVar(&unreadOnlyFlag, "unread-only", false, "Only unread messages")
	listCmd.Flags().StringVar(&sinceFlag, "since", "", "Received on or after (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")
	listCmd.Flags().StringVar(&untilFlag, "until", "", "Received on or before (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")
	addSnippetFlags(listCmd)

	addIDFlags(getCmd, "Message")
	getCmd.Flags().BoolVar(&bodyFlag, "include-body", false, "Include the message body")
	getCmd.Flags().BoolVar(&headersFlag, "include-headers", false, "Include the transport headers")
	getCmd.Flags().IntVar(&maxBodyFlag, "max-body-chars", 0, "Cut the body to this many characters (0: no limit)")

	searchCmd.Flags().StringVar(&folderFlag, "folder", "inbox", "Folder to search")
	searchCmd.Flags().StringVar(&queryFlag, "query", "", "Text in subject or body")
	searchCmd.Flags().StringVar(&fromFlag, "from", "", "Sender name or address contains")
	searchCmd.Flags().StringVar(&toFlag, "to", "", "A To recipient contains")
	searchCmd.Flags().StringVar(&ccFlag, "cc", "", "A CC recipient contains")
	searchCmd.Flags().StringVar(&subjectFlag, "subject-contains", "", "Subject contains")
	searchCmd.Flags().BoolVar(&unreadOnlyFlag, "unread-only", false, "Only unread messages")
	searchCmd.Flags().BoolVar(&withAttachments, "has-attachments", false, "Only messages with attachments")
	searchCmd.Flags().BoolVar(&noAttachments, "no-attachments", false, "Only messages without attachments")
	searchCmd.Flags().StringVar(&sinceFlag, "since", "", "Received on or after")
	searchCmd.Flags().StringVar(&untilFlag, "until", "", "Received on or before")
	searchCmd.Flags().IntVar(&searchCount, "count", bridge.DefaultSearchLimit, "Maximum number of results")
	addSnippetFlags(searchCmd)

	rootCmd.AddCommand(listCmd, getCmd, searchCmd)
}

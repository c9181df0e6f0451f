package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/daviddao/outlookctl/internal/bridge"
	"github.com/daviddao/outlookctl/internal/filter"
)

var (
	evStart    string
	evEnd      string
	evDays     int
	evCount    int
	evSubject  string
	evDuration int
	evLocation string
	evBody     string
	evRequired []string
	evOptional []string
	evAllDay   bool
	evReminder int
	evBusy     string
	evRecur    string
	evSendNow  bool

	responseFlag string
	noResponse   bool
	noCancel     bool
)

func parseStart() (time.Time, error) {
	return filter.ParseBound(evStart, false, time.Local)
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "List, create and manage calendar events",
}

var calListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events in a date window",
	Long: `List events that start inside the window. The window starts at --start
(default: start of today) and ends at --end, or --days later. Recurring series are
expanded into occurrences.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseStart()
		if err != nil {
			return err
		}
		end, err := filter.ParseBound(evEnd, true, time.Local)
		if err != nil {
			return err
		}
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.ListEvents(ctx, bridge.EventListRequest{Start: start, End: end, Days: evDays, Count: evCount})
		})
	},
}

var calGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show one event",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.GetEvent(ctx, itemID(idFlag, storeFlag), bodyFlag)
		})
	},
}

var calCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an event or meeting",
	Long: `Create a calendar entry. With attendees it is saved as a draft meeting;
invitations go out with 'outlookctl calendar send', or right away with
--send-now --confirm-send YES.

Recurrence: daily, weekly:monday,wednesday or monthly:15, optionally
followed by :count:N or :until:YYYY-MM-DD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseStart()
		if err != nil {
			return err
		}
		end, err := filter.ParseBound(evEnd, false, time.Local)
		if err != nil {
			return err
		}
		req := bridge.EventRequest{
			Subject:           evSubject,
			Start:             start,
			End:               end,
			Duration:          minutes(evDuration),
			Location:          evLocation,
			Body:              evBody,
			Attendees:         evRequired,
			OptionalAttendees: evOptional,
			AllDay:            evAllDay,
			BusyStatus:        evBusy,
			Recurrence:        evRecur,
			SendNow:           evSendNow,
			Confirm:           confirmation(),
		}
		if cmd.Flags().Changed("reminder") {
			req.ReminderMinutes = &evReminder
		}
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.CreateEvent(ctx, req)
		})
	},
}

var calSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send the invitations of a draft meeting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.SendInvites(ctx, itemID(idFlag, storeFlag), confirmation())
		})
	},
}

var calRespondCmd = &cobra.Command{
	Use:   "respond",
	Short: "Accept, decline or tentatively accept an invitation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.Respond(ctx, itemID(idFlag, storeFlag), responseFlag, !noResponse)
		})
	},
}

var calUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change fields of an event",
	Long: `Change the given fields of an event; anything not passed is kept. Moving
--start alone keeps the event's length.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var ch bridge.EventChanges
		flags := cmd.Flags()
		if flags.Changed("subject") {
			ch.Subject = &evSubject
		}
		if flags.Changed("start") {
			start, err := parseStart()
			if err != nil {
				return err
			}
			ch.Start = &start
		}
		if flags.Changed("end") {
			end, err := filter.ParseBound(evEnd, false, time.Local)
			if err != nil {
				return err
			}
			ch.End = &end
		}
		if flags.Changed("duration") {
			d := minutes(evDuration)
			ch.Duration = &d
		}
		if flags.Changed("location") {
			ch.Location = &evLocation
		}
		if flags.Changed("body") {
			ch.Body = &evBody
		}
		if flags.Changed("reminder") {
			ch.ReminderMinutes = &evReminder
		}
		if flags.Changed("busy-status") {
			ch.BusyStatus = &evBusy
		}
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.UpdateEvent(ctx, itemID(idFlag, storeFlag), ch)
		})
	},
}

var calDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an event",
	Long: `Delete an event. For a meeting you organized whose invitations went out,
attendees get a cancellation unless --no-cancel is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(cmd, func(ctx context.Context, b *bridge.Bridge) (any, error) {
			return b.DeleteEvent(ctx, itemID(idFlag, storeFlag), !noCancel)
		})
	},
}

func addEventFields(cmd *cobra.Command) {
	cmd.Flags().StringVar(&evSubject, "subject", "", "Event subject")
	cmd.Flags().StringVar(&evStart, "start", "", "Start (YYYY-MM-DDTHH:MM, or YYYY-MM-DD for all-day)")
	cmd.Flags().StringVar(&evEnd, "end", "", "End (overrides --duration)")
	cmd.Flags().IntVar(&evDuration, "duration", 0, "Length in minutes (default 60)")
	cmd.Flags().StringVar(&evLocation, "location", "", "Location")
	cmd.Flags().StringVar(&evBody, "body", "", "Description")
	cmd.Flags().IntVar(&evReminder, "reminder", 0, "Reminder in minutes before the start")
	cmd.Flags().StringVar(&evBusy, "busy-status", "", "free, tentative, busy, out_of_office or working_elsewhere")
}

func init() {
	calListCmd.Flags().StringVar(&evStart, "start", "", "Window start (default: today)")
	calListCmd.Flags().StringVar(&evEnd, "end", "", "Window end, inclusive")
	calListCmd.Flags().IntVar(&evDays, "days", bridge.DefaultEventDays, "Window length in days when --end is not given")
	calListCmd.Flags().IntVar(&evCount, "count", bridge.DefaultEventCount, "Maximum number of events")

	addIDFlags(calGetCmd, "Event")
	calGetCmd.Flags().BoolVar(&bodyFlag, "include-body", false, "Include the description")

	addEventFields(calCreateCmd)
	calCreateCmd.Flags().StringSliceVar(&evRequired, "attendees", nil, "Required attendees (comma-separated)")
	calCreateCmd.Flags().StringSliceVar(&evOptional, "optional-attendees", nil, "Optional attendees (comma-separated)")
	calCreateCmd.Flags().BoolVar(&evAllDay, "all-day", false, "All-day event")
	calCreateCmd.Flags().StringVar(&evRecur, "recurrence", "", "Recurrence rule, e.g. weekly:monday:count:4")
	calCreateCmd.Flags().BoolVar(&evSendNow, "send-now", false, "Send invitations immediately (needs --confirm-send)")
	addConfirmFlags(calCreateCmd)
	calCreateCmd.MarkFlagRequired("subject")
	calCreateCmd.MarkFlagRequired("start")

	addIDFlags(calSendCmd, "Event")
	addConfirmFlags(calSendCmd)

	addIDFlags(calRespondCmd, "Event")
	calRespondCmd.Flags().StringVar(&responseFlag, "response", "", "accept, decline or tentative")
	calRespondCmd.Flags().BoolVar(&noResponse, "no-response", false, "Record the answer without notifying the organizer")
	calRespondCmd.MarkFlagRequired("response")

	addIDFlags(calUpdateCmd, "Event")
	addEventFields(calUpdateCmd)

	addIDFlags(calDeleteCmd, "Event")
	calDeleteCmd.Flags().BoolVar(&noCancel, "no-cancel", false, "Do not send a cancellation to attendees")

	calendarCmd.AddCommand(calListCmd, calGetCmd, calCreateCmd, calSendCmd, calRespondCmd, calUpdateCmd, calDeleteCmd)
	rootCmd.AddCommand(calendarCmd)
}

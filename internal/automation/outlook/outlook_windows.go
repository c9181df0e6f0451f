//go:build windows

package outlook

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/daviddao/outlookctl/internal/automation"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

// object is a borrowed IDispatch with typed property helpers. Every object
// obtained from get or call must be released by the caller.
type object struct {
	d *ole.IDispatch
}

func (o object) release() {
	if o.d != nil {
		o.d.Release()
	}
}

func (o object) value(name string, args ...any) (any, error) {
	v, err := oleutil.GetProperty(o.d, name, args...)
	if err != nil {
		return nil, err
	}
	defer v.Clear()
	return v.Value(), nil
}

func (o object) str(name string) string {
	v, _ := o.value(name)
	s, _ := v.(string)
	return s
}

func (o object) num(name string) int {
	v, _ := o.value(name)
	return toInt(v)
}

func (o object) flag(name string) bool {
	v, _ := o.value(name)
	b, _ := v.(bool)
	return b
}

func (o object) date(name string) time.Time {
	v, _ := o.value(name)
	t, _ := v.(time.Time)
	return wall(t)
}

func dispatch(v *ole.VARIANT, name string) (object, error) {
	d := v.ToIDispatch()
	if d == nil {
		v.Clear()
		return object{}, fmt.Errorf("%s returned no object", name)
	}
	return object{d}, nil
}

func (o object) get(name string, args ...any) (object, error) {
	v, err := oleutil.GetProperty(o.d, name, args...)
	if err != nil {
		return object{}, err
	}
	return dispatch(v, name)
}

func (o object) call(name string, args ...any) (object, error) {
	v, err := oleutil.CallMethod(o.d, name, args...)
	if err != nil {
		return object{}, err
	}
	return dispatch(v, name)
}

func (o object) do(name string, args ...any) error {
	v, err := oleutil.CallMethod(o.d, name, args...)
	if err != nil {
		return err
	}
	v.Clear()
	return nil
}

func (o object) set(name string, value any) error {
	v, err := oleutil.PutProperty(o.d, name, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	v.Clear()
	return nil
}

// each visits a 1-based COM collection.
func (o object) each(collection string, fn func(item object) error) error {
	c, err := o.get(collection)
	if err != nil {
		return err
	}
	defer c.release()
	n := c.num("Count")
	for i := 1; i <= n; i++ {
		item, err := c.get("Item", i)
		if err != nil {
			return err
		}
		err = fn(item)
		item.release()
		if err != nil {
			return err
		}
	}
	return nil
}

// mapiProp reads a MAPI property; failures read as nil.
func (o object) mapiProp(tag string) any {
	pa, err := o.get("PropertyAccessor")
	if err != nil {
		return nil
	}
	defer pa.release()
	v, err := oleutil.CallMethod(pa.d, "GetProperty", tag)
	if err != nil {
		return nil
	}
	defer v.Clear()
	return v.Value()
}

// Dial implements automation.Dialer. The calling goroutine is pinned to its
// OS thread until the connection is closed, since COM objects belong to the
// apartment that created them.
func (d Dialer) Dial(ctx context.Context) (automation.Conn, error) {
	runtime.LockOSThread()
	conn, err := d.dial()
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return conn, nil
}

func comInit() error {
	err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED)
	var oleErr *ole.OleError
	if errors.As(err, &oleErr) && oleErr.Code() == 1 { // S_FALSE: already initialized
		return nil
	}
	return err
}

func unavailable(err error) error {
	hint := "Start Classic Outlook and try again; 'outlookctl doctor' checks the prerequisites."
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "class not registered") || strings.Contains(msg, "invalid class string") {
		hint = "Outlook COM objects are not registered. New Outlook has no COM automation; switch to Classic Outlook."
	}
	return &errs.Error{Kind: errs.Unavailable, Op: "connect outlook", Err: err, Remediation: hint}
}

func (d Dialer) dial() (*Client, error) {
	if err := comInit(); err != nil {
		return nil, unavailable(fmt.Errorf("initialize COM: %w", err))
	}
	unknown, err := oleutil.GetActiveObject(progID)
	if err != nil {
		d.logger().Debug("no running outlook, creating one", "err", err)
		unknown, err = oleutil.CreateObject(progID)
	}
	if err != nil {
		ole.CoUninitialize()
		return nil, unavailable(err)
	}
	appDisp, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		ole.CoUninitialize()
		return nil, unavailable(err)
	}
	app := object{appDisp}
	if app.str("Name") == "" {
		app.release()
		ole.CoUninitialize()
		return nil, unavailable(errors.New("Outlook.Application did not answer"))
	}
	ns, err := app.call("GetNamespace", "MAPI")
	if err != nil {
		app.release()
		ole.CoUninitialize()
		return nil, unavailable(fmt.Errorf("open MAPI namespace: %w", err))
	}
	d.logger().Debug("outlook connected", "version", app.str("Version"))
	return &Client{app: app, ns: ns}, nil
}

func bindingCheck() types.DoctorCheck {
	return types.DoctorCheck{Name: automation.CheckBinding, Passed: true, Message: "github.com/go-ole/go-ole linked"}
}

func (d Dialer) interfaceCheck(ctx context.Context) types.DoctorCheck {
	c := types.DoctorCheck{Name: automation.CheckInterface}
	conn, err := d.Dial(ctx)
	if err != nil {
		c.Message = err.Error()
		c.Remediation = errs.Remediation(err)
		return c
	}
	defer conn.Close()
	c.Passed = true
	c.Message = progID + " is available"
	return c
}

// Client is a live Outlook session.
type Client struct {
	app object
	ns  object
}

var (
	_ automation.Conn           = (*Client)(nil)
	_ automation.CalendarClient = (*Client)(nil)
)

// Close implements automation.Conn.
func (c *Client) Close() error {
	c.ns.release()
	c.app.release()
	ole.CoUninitialize()
	runtime.UnlockOSThread()
	return nil
}

func hostErr(kind errs.Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return errs.Wrap(kind, op, err)
}

func toFolder(f object) automation.Folder {
	return automation.Folder{
		ID:      f.str("EntryID"),
		Name:    f.str("Name"),
		Path:    folderPath(f.str("FolderPath")),
		StoreID: f.str("StoreID"),
	}
}

func (c *Client) folder(f automation.Folder) (object, error) {
	o, err := c.ns.call("GetFolderFromID", f.ID, f.StoreID)
	if err != nil {
		return object{}, errs.New(errs.FolderNotFound, "resolve folder", "folder %s is gone", f.Path)
	}
	return o, nil
}

// DefaultFolder implements automation.MailClient.
func (c *Client) DefaultFolder(ctx context.Context, name automation.WellKnown) (automation.Folder, error) {
	num, ok := defaultFolders[name]
	if !ok {
		return automation.Folder{}, errs.New(errs.FolderNotFound, "resolve folder", "unknown folder %q", name)
	}
	f, err := c.ns.call("GetDefaultFolder", num)
	if err != nil {
		return automation.Folder{}, errs.Wrap(errs.FolderNotFound, "resolve folder", err)
	}
	defer f.release()
	return toFolder(f), nil
}

func children(parent object) ([]automation.Folder, error) {
	var out []automation.Folder
	err := parent.each("Folders", func(f object) error {
		out = append(out, toFolder(f))
		return nil
	})
	return out, hostErr(errs.Operation, "list folders", err)
}

// RootFolders implements automation.MailClient: the top-level folders of
// the default store.
func (c *Client) RootFolders(ctx context.Context) ([]automation.Folder, error) {
	stores, err := c.ns.get("Folders")
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "list folders", err)
	}
	defer stores.release()
	root, err := stores.get("Item", 1)
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "list folders", err)
	}
	defer root.release()
	return children(root)
}

// Subfolders implements automation.MailClient.
func (c *Client) Subfolders(ctx context.Context, parent automation.Folder) ([]automation.Folder, error) {
	f, err := c.folder(parent)
	if err != nil {
		return nil, err
	}
	defer f.release()
	return children(f)
}

func storeOf(item object) string {
	parent, err := item.get("Parent")
	if err != nil {
		return ""
	}
	defer parent.release()
	return parent.str("StoreID")
}

// smtp resolves an Exchange address entry to its SMTP form.
func smtp(entry object, fallback string) string {
	if s, ok := entry.mapiProp(propSMTPAddress).(string); ok && s != "" {
		return s
	}
	return fallback
}

func sender(item object) types.EmailAddress {
	addr := types.EmailAddress{Name: item.str("SenderName"), Email: item.str("SenderEmailAddress")}
	if item.str("SenderEmailType") == "EX" {
		if s, err := item.get("Sender"); err == nil {
			addr.Email = smtp(s, addr.Email)
			s.release()
		}
	}
	return addr
}

func recipientAddress(r object) string {
	addr := r.str("Address")
	if ae, err := r.get("AddressEntry"); err == nil {
		addr = smtp(ae, addr)
		ae.release()
	}
	if addr == "" {
		addr = r.str("Name")
	}
	return addr
}

func toMail(item object) automation.Mail {
	m := automation.Mail{
		ID:          types.ItemID{EntryID: item.str("EntryID"), StoreID: storeOf(item)},
		ReceivedAt:  item.date("ReceivedTime"),
		Subject:     item.str("Subject"),
		From:        sender(item),
		Unread:      item.flag("UnRead"),
		Sent:        item.flag("Sent"),
		Attachments: []string{},
		Body:        item.str("Body"),
		HTMLBody:    item.str("HTMLBody"),
	}
	if h, ok := item.mapiProp(propTransportHeaders).(string); ok {
		m.RawHeaders = h
	}
	_ = item.each("Recipients", func(r object) error {
		kind := automation.To
		switch r.num("Type") {
		case olCC:
			kind = automation.CC
		case olBCC:
			kind = automation.BCC
		}
		m.Recipients = append(m.Recipients, automation.Recipient{Kind: kind, Name: r.str("Name"), Address: recipientAddress(r)})
		return nil
	})
	_ = item.each("Attachments", func(a object) error {
		m.Attachments = append(m.Attachments, a.str("FileName"))
		return nil
	})
	return m
}

// ListMail implements automation.MailClient, newest first.
func (c *Client) ListMail(ctx context.Context, folder automation.Folder, q automation.Query) ([]automation.Mail, error) {
	f, err := c.folder(folder)
	if err != nil {
		return nil, err
	}
	defer f.release()
	items, err := f.get("Items")
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "list messages", err)
	}
	defer items.release()
	if err := items.do("Sort", "[ReceivedTime]", true); err != nil {
		return nil, errs.Wrap(errs.Operation, "list messages", err)
	}
	if filter := mailRestriction(q); filter != "" {
		restricted, err := items.call("Restrict", filter)
		if err != nil {
			return nil, errs.Wrap(errs.Operation, "list messages", fmt.Errorf("restrict %q: %w", filter, err))
		}
		defer restricted.release()
		items = restricted
	}

	var out []automation.Mail
	limit := candidateCap(q)
	n := items.num("Count")
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.Operation, "list messages", err)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		item, err := items.get("Item", i)
		if err != nil {
			continue
		}
		if item.num("Class") == olClassMail {
			out = append(out, toMail(item))
		}
		item.release()
	}
	return out, nil
}

func (c *Client) item(id types.ItemID, class int) (object, error) {
	notFound := func() error {
		if class == olClassAppointment {
			return errs.New(errs.EventNotFound, "get event", "no event with entry_id=%s", id.EntryID)
		}
		return errs.New(errs.MessageNotFound, "get message", "no message with entry_id=%s", id.EntryID)
	}
	o, err := c.ns.call("GetItemFromID", id.EntryID, id.StoreID)
	if err != nil {
		return object{}, notFound()
	}
	if o.num("Class") != class {
		o.release()
		return object{}, notFound()
	}
	return o, nil
}

// GetMail implements automation.MailClient.
func (c *Client) GetMail(ctx context.Context, id types.ItemID) (*automation.Mail, error) {
	item, err := c.item(id, olClassMail)
	if err != nil {
		return nil, err
	}
	defer item.release()
	m := toMail(item)
	return &m, nil
}

func addRecipients(item object, kind int, addrs []string) error {
	if len(addrs) == 0 {
		return nil
	}
	recips, err := item.get("Recipients")
	if err != nil {
		return err
	}
	defer recips.release()
	for _, a := range addrs {
		r, err := recips.call("Add", a)
		if err != nil {
			return fmt.Errorf("add recipient %s: %w", a, err)
		}
		err = r.set("Type", kind)
		r.release()
		if err != nil {
			return err
		}
	}
	return recips.do("ResolveAll")
}

func addAttachments(item object, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	atts, err := item.get("Attachments")
	if err != nil {
		return err
	}
	defer atts.release()
	for _, p := range paths {
		if err := atts.do("Add", p); err != nil {
			return errs.Wrap(errs.Attachment, "attach", fmt.Errorf("%s: %w", p, err))
		}
	}
	return nil
}

// fill writes a DraftSpec onto a new or reply mail item. Reply and forward
// bodies are prepended to the quoted original.
func fill(item object, spec automation.DraftSpec, prepend bool) error {
	for _, line := range []struct {
		kind  int
		addrs []string
	}{{olTo, spec.To}, {olCC, spec.CC}, {olBCC, spec.BCC}} {
		if err := addRecipients(item, line.kind, line.addrs); err != nil {
			return err
		}
	}
	if spec.Subject != "" {
		if err := item.set("Subject", spec.Subject); err != nil {
			return err
		}
	}
	switch {
	case spec.HTMLBody != "" && prepend:
		if err := item.set("HTMLBody", spec.HTMLBody+item.str("HTMLBody")); err != nil {
			return err
		}
	case spec.HTMLBody != "":
		if err := item.set("HTMLBody", spec.HTMLBody); err != nil {
			return err
		}
	case spec.Body != "" && prepend:
		if err := item.set("Body", spec.Body+"\n\n"+item.str("Body")); err != nil {
			return err
		}
	case spec.Body != "":
		if err := item.set("Body", spec.Body); err != nil {
			return err
		}
	}
	return addAttachments(item, spec.Attachments)
}

func (c *Client) saveDraft(item object, spec automation.DraftSpec, prepend bool) (*automation.Mail, error) {
	defer item.release()
	if err := fill(item, spec, prepend); err != nil {
		if errs.Is(err, errs.Attachment) {
			return nil, err
		}
		return nil, errs.Wrap(errs.Draft, "save draft", err)
	}
	if err := item.do("Save"); err != nil {
		return nil, errs.Wrap(errs.Draft, "save draft", err)
	}
	m := toMail(item)
	return &m, nil
}

// CreateDraft implements automation.MailClient.
func (c *Client) CreateDraft(ctx context.Context, spec automation.DraftSpec) (*automation.Mail, error) {
	item, err := c.app.call("CreateItem", olMailItem)
	if err != nil {
		return nil, errs.Wrap(errs.Draft, "save draft", err)
	}
	return c.saveDraft(item, spec, false)
}

// ReplyDraft implements automation.MailClient.
func (c *Client) ReplyDraft(ctx context.Context, id types.ItemID, all bool, spec automation.DraftSpec) (*automation.Mail, error) {
	orig, err := c.item(id, olClassMail)
	if err != nil {
		return nil, err
	}
	defer orig.release()
	verb := "Reply"
	if all {
		verb = "ReplyAll"
	}
	reply, err := orig.call(verb)
	if err != nil {
		return nil, errs.Wrap(errs.Draft, strings.ToLower(verb), err)
	}
	spec.Subject = ""
	return c.saveDraft(reply, spec, true)
}

// ForwardDraft implements automation.MailClient.
func (c *Client) ForwardDraft(ctx context.Context, id types.ItemID, spec automation.DraftSpec) (*automation.Mail, error) {
	orig, err := c.item(id, olClassMail)
	if err != nil {
		return nil, err
	}
	defer orig.release()
	fwd, err := orig.call("Forward")
	if err != nil {
		return nil, errs.Wrap(errs.Draft, "forward", err)
	}
	spec.Subject = ""
	return c.saveDraft(fwd, spec, true)
}

// SendDraft implements automation.MailClient.
func (c *Client) SendDraft(ctx context.Context, id types.ItemID) error {
	item, err := c.item(id, olClassMail)
	if err != nil {
		return err
	}
	defer item.release()
	return hostErr(errs.Send, "send", item.do("Send"))
}

// SendNew implements automation.MailClient.
func (c *Client) SendNew(ctx context.Context, spec automation.DraftSpec) error {
	item, err := c.app.call("CreateItem", olMailItem)
	if err != nil {
		return errs.Wrap(errs.Send, "send", err)
	}
	defer item.release()
	if err := fill(item, spec, false); err != nil {
		if errs.Is(err, errs.Attachment) {
			return err
		}
		return errs.Wrap(errs.Send, "send", err)
	}
	return hostErr(errs.Send, "send", item.do("Send"))
}

// MoveMail implements automation.MailClient. Outlook assigns a new entry
// id in the destination store.
func (c *Client) MoveMail(ctx context.Context, id types.ItemID, dest automation.Folder) (*automation.Mail, error) {
	item, err := c.item(id, olClassMail)
	if err != nil {
		return nil, err
	}
	defer item.release()
	target, err := c.folder(dest)
	if err != nil {
		return nil, err
	}
	defer target.release()
	moved, err := item.call("Move", target.d)
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "move", err)
	}
	defer moved.release()
	m := toMail(moved)
	return &m, nil
}

// DeleteMail implements automation.MailClient; Outlook moves the item to
// Deleted Items.
func (c *Client) DeleteMail(ctx context.Context, id types.ItemID) error {
	item, err := c.item(id, olClassMail)
	if err != nil {
		return err
	}
	defer item.release()
	return hostErr(errs.Operation, "delete", item.do("Delete"))
}

// SetUnread implements automation.MailClient.
func (c *Client) SetUnread(ctx context.Context, id types.ItemID, unread bool) error {
	item, err := c.item(id, olClassMail)
	if err != nil {
		return err
	}
	defer item.release()
	if err := item.set("UnRead", unread); err != nil {
		return errs.Wrap(errs.Operation, "mark read", err)
	}
	return hostErr(errs.Operation, "mark read", item.do("Save"))
}

// SaveAttachments implements automation.MailClient.
func (c *Client) SaveAttachments(ctx context.Context, id types.ItemID, dir string) ([]string, error) {
	item, err := c.item(id, olClassMail)
	if err != nil {
		return nil, err
	}
	defer item.release()
	if err := automation.PrepareDir(dir); err != nil {
		return nil, err
	}
	saved := []string{}
	i := 0
	err = item.each("Attachments", func(a object) error {
		i++
		path := automation.UniquePath(dir, automation.SafeFileName(a.str("FileName"), i))
		if err := a.do("SaveAsFile", path); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		saved = append(saved, path)
		return nil
	})
	if err != nil {
		return saved, errs.Wrap(errs.Attachment, "save attachments", err)
	}
	return saved, nil
}

func toEvent(item object) automation.Event {
	e := automation.Event{
		ID:          types.ItemID{EntryID: item.str("EntryID"), StoreID: storeOf(item)},
		Subject:     item.str("Subject"),
		Start:       item.date("Start"),
		End:         item.date("End"),
		Location:    item.str("Location"),
		Organizer:   item.str("Organizer"),
		AllDay:      item.flag("AllDayEvent"),
		IsMeeting:   item.num("MeetingStatus") != olNonMeeting,
		BusyStatus:  busyName(item.num("BusyStatus")),
		Body:        item.str("Body"),
		Attendees:   []types.Attendee{},
		Categories:  []string{},
		IsRecurring: item.flag("IsRecurring"),
	}
	e.ResponseStatus = responseName(item.num("ResponseStatus"))
	if e.IsMeeting {
		// An unreadable flag reads as not yet sent.
		e.InvitesSent, _ = item.mapiProp(propInvited).(bool)
	}
	if item.flag("ReminderSet") {
		n := item.num("ReminderMinutesBeforeStart")
		e.ReminderMinutes = &n
	}
	if cats := item.str("Categories"); cats != "" {
		for _, c := range strings.Split(cats, ",") {
			e.Categories = append(e.Categories, strings.TrimSpace(c))
		}
	}
	if e.IsMeeting {
		_ = item.each("Recipients", func(r object) error {
			e.Attendees = append(e.Attendees, types.Attendee{
				Name:     r.str("Name"),
				Email:    recipientAddress(r),
				Type:     attendeeKind(r.num("Type")),
				Response: responseName(r.num("MeetingResponseStatus")),
			})
			return nil
		})
	}
	if e.IsRecurring {
		if rp, err := item.call("GetRecurrencePattern"); err == nil {
			r := rule{
				Type:        rp.num("RecurrenceType"),
				DayMask:     rp.num("DayOfWeekMask"),
				DayOfMonth:  rp.num("DayOfMonth"),
				NoEnd:       rp.flag("NoEndDate"),
				Occurrences: rp.num("Occurrences"),
				EndDate:     rp.date("PatternEndDate"),
			}
			e.Recurrence = r.pattern()
			rp.release()
		}
	}
	return e
}

// maxExpanded bounds the walk over an expanded recurring series.
const maxExpanded = 5000

// ListEvents implements automation.CalendarClient. Recurring series are
// expanded into their occurrences.
func (c *Client) ListEvents(ctx context.Context, start, end time.Time) ([]automation.Event, error) {
	cal, err := c.ns.call("GetDefaultFolder", olFolderCalendar)
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "list events", err)
	}
	defer cal.release()
	items, err := cal.get("Items")
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "list events", err)
	}
	defer items.release()
	// IncludeRecurrences only takes effect when set before Sort.
	if err := items.set("IncludeRecurrences", true); err != nil {
		return nil, errs.Wrap(errs.Operation, "list events", err)
	}
	if err := items.do("Sort", "[Start]"); err != nil {
		return nil, errs.Wrap(errs.Operation, "list events", err)
	}
	restricted, err := items.call("Restrict", eventRestriction(start, end))
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "list events", err)
	}
	defer restricted.release()

	// Count is meaningless with IncludeRecurrences, so walk with GetNext.
	out := []automation.Event{}
	item, err := restricted.call("GetFirst")
	for n := 0; err == nil && n < maxExpanded; n++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			item.release()
			return nil, errs.Wrap(errs.Operation, "list events", ctxErr)
		}
		if item.num("Class") == olClassAppointment {
			e := toEvent(item)
			if !e.Start.Before(start) && !e.Start.After(end) {
				out = append(out, e)
			}
		}
		item.release()
		item, err = restricted.call("GetNext")
	}
	if err == nil {
		item.release()
	}
	return out, nil
}

// GetEvent implements automation.CalendarClient.
func (c *Client) GetEvent(ctx context.Context, id types.ItemID) (*automation.Event, error) {
	item, err := c.item(id, olClassAppointment)
	if err != nil {
		return nil, err
	}
	defer item.release()
	e := toEvent(item)
	return &e, nil
}

func setReminder(item object, minutes *int) error {
	if minutes == nil {
		return nil
	}
	if err := item.set("ReminderSet", true); err != nil {
		return err
	}
	return item.set("ReminderMinutesBeforeStart", *minutes)
}

func setRecurrence(item object, r rule) error {
	rp, err := item.call("GetRecurrencePattern")
	if err != nil {
		return err
	}
	defer rp.release()
	if err := rp.set("RecurrenceType", r.Type); err != nil {
		return err
	}
	switch r.Type {
	case olRecursWeekly:
		if err := rp.set("DayOfWeekMask", r.DayMask); err != nil {
			return err
		}
	case olRecursMonthly:
		if err := rp.set("DayOfMonth", r.DayOfMonth); err != nil {
			return err
		}
	}
	switch {
	case r.Occurrences > 0:
		return rp.set("Occurrences", r.Occurrences)
	case !r.EndDate.IsZero():
		return rp.set("PatternEndDate", r.EndDate)
	default:
		return rp.set("NoEndDate", true)
	}
}

// CreateEvent implements automation.CalendarClient. The item is saved,
// never sent.
func (c *Client) CreateEvent(ctx context.Context, spec automation.EventSpec) (*automation.Event, error) {
	item, err := c.app.call("CreateItem", olAppointmentItem)
	if err != nil {
		return nil, errs.Wrap(errs.Operation, "create event", err)
	}
	defer item.release()

	steps := []func() error{
		func() error { return item.set("Subject", spec.Subject) },
		func() error { return item.set("Location", spec.Location) },
		func() error { return item.set("Body", spec.Body) },
		func() error { return item.set("AllDayEvent", spec.AllDay) },
		func() error { return item.set("Start", spec.Start.In(time.Local)) },
		func() error { return item.set("End", spec.End.In(time.Local)) },
		func() error { return setReminder(item, spec.ReminderMinutes) },
	}
	if spec.BusyStatus != "" {
		steps = append(steps, func() error { return item.set("BusyStatus", busyCode(spec.BusyStatus)) })
	}
	if len(spec.Attendees)+len(spec.OptionalAttendees) > 0 {
		steps = append(steps,
			func() error { return item.set("MeetingStatus", olMeeting) },
			func() error { return addRecipients(item, olTo, spec.Attendees) },
			func() error { return addRecipients(item, olCC, spec.OptionalAttendees) },
		)
	}
	if spec.Recurrence != nil {
		steps = append(steps, func() error { return setRecurrence(item, ruleOf(spec.Recurrence)) })
	}
	steps = append(steps, func() error { return item.do("Save") })
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, errs.Wrap(errs.Operation, "create event", err)
		}
	}
	e := toEvent(item)
	return &e, nil
}

// SendInvites implements automation.CalendarClient.
func (c *Client) SendInvites(ctx context.Context, id types.ItemID) error {
	item, err := c.item(id, olClassAppointment)
	if err != nil {
		return err
	}
	defer item.release()
	if item.num("MeetingStatus") == olNonMeeting {
		return errs.New(errs.Validation, "send invites", "event has no attendees")
	}
	return hostErr(errs.Send, "send invites", item.do("Send"))
}

// Respond implements automation.CalendarClient.
func (c *Client) Respond(ctx context.Context, id types.ItemID, response string, notify bool) error {
	code, ok := responseCodes[response]
	if !ok {
		return errs.New(errs.Validation, "respond", "unknown response %q", response)
	}
	item, err := c.item(id, olClassAppointment)
	if err != nil {
		return err
	}
	defer item.release()
	if item.num("ResponseStatus") == olResponseOrganized {
		return errs.New(errs.Validation, "respond", "cannot respond to a meeting you organized")
	}
	reply, err := item.call("Respond", code, true)
	if err != nil {
		return errs.Wrap(errs.Operation, "respond", err)
	}
	defer reply.release()
	if notify {
		return hostErr(errs.Send, "respond", reply.do("Send"))
	}
	return hostErr(errs.Operation, "respond", item.do("Save"))
}

// UpdateEvent implements automation.CalendarClient.
func (c *Client) UpdateEvent(ctx context.Context, id types.ItemID, upd automation.EventUpdate) (*automation.Event, error) {
	item, err := c.item(id, olClassAppointment)
	if err != nil {
		return nil, err
	}
	defer item.release()

	var steps []func() error
	if upd.Subject != nil {
		steps = append(steps, func() error { return item.set("Subject", *upd.Subject) })
	}
	if upd.Start != nil {
		steps = append(steps, func() error { return item.set("Start", upd.Start.In(time.Local)) })
	}
	if upd.End != nil {
		steps = append(steps, func() error { return item.set("End", upd.End.In(time.Local)) })
	}
	if upd.Location != nil {
		steps = append(steps, func() error { return item.set("Location", *upd.Location) })
	}
	if upd.Body != nil {
		steps = append(steps, func() error { return item.set("Body", *upd.Body) })
	}
	if upd.ReminderMinutes != nil {
		steps = append(steps, func() error { return setReminder(item, upd.ReminderMinutes) })
	}
	if upd.BusyStatus != nil {
		steps = append(steps, func() error { return item.set("BusyStatus", busyCode(*upd.BusyStatus)) })
	}
	if len(steps) > 0 {
		steps = append(steps, func() error { return item.do("Save") })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, errs.Wrap(errs.Operation, "update event", err)
		}
	}
	e := toEvent(item)
	return &e, nil
}

// DeleteEvent implements automation.CalendarClient. With notify the
// meeting is cancelled and the cancellation sent before the item is
// removed.
func (c *Client) DeleteEvent(ctx context.Context, id types.ItemID, notify bool) error {
	item, err := c.item(id, olClassAppointment)
	if err != nil {
		return err
	}
	defer item.release()
	if notify {
		if err := item.set("MeetingStatus", olMeetingCancelled); err != nil {
			return errs.Wrap(errs.Send, "cancel meeting", err)
		}
		if err := item.do("Save"); err != nil {
			return errs.Wrap(errs.Send, "cancel meeting", err)
		}
		if err := item.do("Send"); err != nil {
			return errs.Wrap(errs.Send, "cancel meeting", err)
		}
	}
	return hostErr(errs.Operation, "delete event", item.do("Delete"))
}

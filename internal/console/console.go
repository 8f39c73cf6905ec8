// Package console is the line-oriented terminal front end for the customer
// and supplier managers.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/odyssey-erp/partnerdesk/internal/partners"
)

const helpText = `Commands:
  use customer|supplier          switch the active collection
  list                           show the active collection
  search name=<q> tax=<q>        filter by name and tax id (no arguments clears)
  new                            start a new record
  edit <id>                      edit an existing record
  set name|tax|contact|address <value>
                                 change a field of the record being edited
  save                           validate and save the record being edited
  cancel                         discard the record being edited
  delete <id>                    delete a record
  reload                         fetch the collection again
  help                           show this text
  quit                           leave
`

// Config wires a Session. Out defaults to the prompter's writer.
type Config struct {
	Prompter *Prompter
	Out      io.Writer
	Managers []*partners.Manager
	Logger   *slog.Logger
}

// Session runs the command loop. The first manager is active initially.
type Session struct {
	prompter *Prompter
	out      io.Writer
	styles   styles
	logger   *slog.Logger
	managers map[partners.Kind]*partners.Manager
	active   atomic.Pointer[partners.Manager]
	draft    partners.Draft
}

// New validates cfg and constructs a Session.
func New(cfg Config) (*Session, error) {
	if cfg.Prompter == nil {
		return nil, errors.New("console: prompter required")
	}
	out := cfg.Out
	if out == nil {
		out = cfg.Prompter.Writer()
	}
	if len(cfg.Managers) == 0 {
		return nil, errors.New("console: at least one manager required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		prompter: cfg.Prompter,
		out:      out,
		styles:   newStyles(unwrap(out)),
		logger:   logger,
		managers: make(map[partners.Kind]*partners.Manager, len(cfg.Managers)),
	}
	s.active.Store(cfg.Managers[0])
	for _, m := range cfg.Managers {
		s.managers[m.Schema().Kind] = m
	}
	return s, nil
}

// Run reads commands until quit, end of input or ctx cancellation.
func (s *Session) Run(ctx context.Context) error {
	s.printf("%s", s.styles.collection(s.current()))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, ok := s.prompter.ReadLine(s.prompt())
		if !ok {
			return s.prompter.Err()
		}
		if line == "" {
			continue
		}
		if quit := s.Execute(ctx, line); quit {
			return nil
		}
	}
}

func (s *Session) current() *partners.Manager {
	return s.active.Load()
}

// NotificationCleared redraws the prompt once a notification of kind expires
// while that collection is on screen. It is safe to call from a timer
// goroutine.
func (s *Session) NotificationCleared(kind partners.Kind) {
	if s.current().Schema().Kind != kind {
		return
	}
	s.printf("\n%s\n%s", s.styles.muted.Render("(notification cleared)"), s.prompt())
}

func (s *Session) prompt() string {
	label := strings.ToLower(s.current().Schema().Label)
	if mode := s.current().Mode(); mode != partners.ModeIdle {
		return fmt.Sprintf("%s (%s)> ", label, mode)
	}
	return label + "> "
}

// Execute runs one command line and reports whether the session should end.
func (s *Session) Execute(ctx context.Context, line string) (quit bool) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	s.logger.Debug("console command", slog.String("cmd", cmd))

	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true
	case "help", "?":
		s.printf("%s", helpText)
	case "use":
		s.use(rest)
	case "list", "ls":
		s.printf("%s", s.styles.collection(s.current()))
	case "search":
		s.search(rest)
	case "new":
		s.current().RequestCreate()
		s.draft = partners.Draft{}
		s.printf("%s", s.styles.form(s.current(), s.draft))
	case "edit":
		s.edit(rest)
	case "set":
		s.set(rest)
	case "save":
		s.save(ctx)
	case "cancel":
		s.current().Cancel()
		s.draft = partners.Draft{}
		s.printf("%s", s.styles.collection(s.current()))
	case "delete", "rm":
		s.delete(ctx, rest)
	case "reload":
		if err := s.current().Load(ctx); err == nil {
			s.printf("%s", s.styles.collection(s.current()))
		}
		s.showNotification()
	default:
		s.printf("unknown command %q, type help for the list\n", cmd)
	}
	return false
}

func (s *Session) use(arg string) {
	schema, err := partners.SchemaFor(arg)
	if err != nil {
		s.printf("usage: use customer|supplier\n")
		return
	}
	m, ok := s.managers[schema.Kind]
	if !ok {
		s.printf("%s collection not available\n", schema.Label)
		return
	}
	if m != s.current() {
		s.active.Store(m)
		s.draft = partners.Draft{}
		if sel, ok := m.Selection(); ok {
			s.draft = sel.Draft()
		}
	}
	s.printf("%s", s.styles.collection(s.current()))
}

// search parses name=<q> and tax=<q>. Words without a key continue the
// previous value so queries may contain spaces.
func (s *Session) search(arg string) {
	var name, tax string
	var current *string
	for _, word := range strings.Fields(arg) {
		key, value, found := strings.Cut(word, "=")
		switch {
		case found && strings.EqualFold(key, "name"):
			name, current = value, &name
		case found && strings.EqualFold(key, "tax"):
			tax, current = value, &tax
		case current != nil:
			*current += " " + word
		default:
			s.printf("usage: search name=<q> tax=<q>\n")
			return
		}
	}
	s.current().SetSearch(name, tax)
	s.printf("%s", s.styles.collection(s.current()))
}

func (s *Session) edit(arg string) {
	id, ok := s.parseID(arg, "edit")
	if !ok {
		return
	}
	rec, ok := s.current().RequestEdit(id)
	if !ok {
		s.printf("no %s with id %d\n", strings.ToLower(s.current().Schema().Label), id)
		return
	}
	s.draft = rec.Draft()
	s.printf("%s", s.styles.form(s.current(), s.draft))
}

func (s *Session) set(arg string) {
	if _, ok := s.current().Selection(); !ok {
		s.printf("nothing to edit, use new or edit <id> first\n")
		return
	}
	field, value, _ := strings.Cut(arg, " ")
	value = strings.TrimSpace(value)
	switch strings.ToLower(field) {
	case "name":
		s.draft.Name = value
	case "tax":
		s.draft.TaxID = value
	case "contact":
		s.draft.Contact = value
	case "address":
		s.draft.Address = value
	default:
		s.printf("usage: set name|tax|contact|address <value>\n")
		return
	}
	s.printf("%s", s.styles.form(s.current(), s.draft))
}

func (s *Session) save(ctx context.Context) {
	err := s.current().Save(ctx, s.draft)
	switch {
	case err == nil:
		s.draft = partners.Draft{}
		s.showNotification()
		s.printf("%s", s.styles.collection(s.current()))
	case errors.Is(err, partners.ErrNoSelection):
		s.printf("nothing to save, use new or edit <id> first\n")
	case errors.Is(err, partners.ErrMissingField), errors.Is(err, partners.ErrDuplicateTaxID):
		s.printf("%s", s.styles.form(s.current(), s.draft))
	default:
		s.showNotification()
	}
}

func (s *Session) delete(ctx context.Context, arg string) {
	id, ok := s.parseID(arg, "delete")
	if !ok {
		return
	}
	deleted, err := s.current().RequestDelete(ctx, id)
	if err == nil && !deleted {
		return
	}
	s.showNotification()
	if deleted {
		s.printf("%s", s.styles.collection(s.current()))
	}
}

func (s *Session) parseID(arg, cmd string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		s.printf("usage: %s <id>\n", cmd)
		return 0, false
	}
	return id, true
}

func (s *Session) showNotification() {
	if n, ok := s.current().Notification(); ok {
		s.printf("%s", s.styles.notification(n))
	}
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

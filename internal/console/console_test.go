package console

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/partnerdesk/internal/collection"
	"github.com/odyssey-erp/partnerdesk/internal/partners"
)

type fixture struct {
	session   *Session
	out       *bytes.Buffer
	customers *partners.Manager
	suppliers *partners.Manager
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	for _, schema := range partners.Schemas() {
		svc, err := collection.NewService(collection.ServiceConfig{Schema: schema, Repo: collection.NewMemoryRepository()})
		require.NoError(t, err)
		r.Route("/api/v1/"+schema.Segment, collection.NewHandler(svc, nil).MountRoutes)
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newFixture(t *testing.T, baseURL, script string) fixture {
	t.Helper()
	out := &bytes.Buffer{}
	prompter := NewPrompter(strings.NewReader(script), out)

	managers := make([]*partners.Manager, 0, 2)
	for _, schema := range partners.Schemas() {
		m, err := partners.NewManager(partners.ManagerConfig{
			Schema:    schema,
			Gateway:   partners.NewHTTPGateway(baseURL, schema, nil),
			Confirmer: prompter,
		})
		require.NoError(t, err)
		managers = append(managers, m)
	}
	session, err := New(Config{Prompter: prompter, Managers: managers})
	require.NoError(t, err)
	return fixture{session: session, out: out, customers: managers[0], suppliers: managers[1]}
}

func TestSessionCreateSearchDelete(t *testing.T) {
	srv := newBackend(t)
	script := strings.Join([]string{
		"new",
		"set name Ana Maria",
		"set tax 111",
		"set contact ana@x",
		"save",
		"new",
		"set name Bruno",
		"set tax 222",
		"set contact b@x",
		"set address Rua 2",
		"save",
		"search name=ana",
		"search",
		"delete 1",
		"n",
		"delete 1",
		"y",
		"quit",
		"list",
	}, "\n")
	fx := newFixture(t, srv.URL, script)

	require.NoError(t, fx.session.Run(context.Background()))
	out := fx.out.String()

	assert.Contains(t, out, "Customer added successfully.")
	assert.Contains(t, out, "Ana Maria")
	assert.Contains(t, out, `(name="ana" cpf/cnpj="")`)
	assert.Equal(t, 2, strings.Count(out, "Are you sure you want to delete this customer? [y/N]"))
	assert.Contains(t, out, "Customer deleted successfully.")

	records := fx.customers.Records()
	require.Len(t, records, 1)
	assert.Equal(t, partners.Record{ID: 2, Name: "Bruno", TaxID: "222", Contact: "b@x", Address: "Rua 2"}, records[0])
	assert.Empty(t, fx.customers.Filter().Name)
}

func TestSessionValidationShowsFieldError(t *testing.T) {
	srv := newBackend(t)
	fx := newFixture(t, srv.URL, "use supplier\nnew\nset name Acme\nsave\ncancel\n")

	require.NoError(t, fx.session.Run(context.Background()))
	out := fx.out.String()

	assert.Contains(t, out, "Name, CNPJ and Contact are required.")
	assert.Contains(t, out, "supplier (creating)> ")
	assert.Equal(t, partners.ModeIdle, fx.suppliers.Mode())
	assert.Empty(t, fx.suppliers.Records())
}

func TestSessionDuplicateTaxID(t *testing.T) {
	srv := newBackend(t)
	fx := newFixture(t, srv.URL, strings.Join([]string{
		"new", "set name A", "set tax 9", "set contact a", "save",
		"new", "set name B", "set tax 9", "set contact b", "save",
	}, "\n"))

	require.NoError(t, fx.session.Run(context.Background()))
	assert.Contains(t, fx.out.String(), "CPF/CNPJ already registered.")
	assert.Len(t, fx.customers.Records(), 1)
}

func TestSessionEditAndReload(t *testing.T) {
	srv := newBackend(t)
	fx := newFixture(t, srv.URL, strings.Join([]string{
		"new", "set name A", "set tax 9", "set contact a", "save",
		"edit 1", "set contact new@x", "save",
		"edit 42",
		"reload",
	}, "\n"))

	require.NoError(t, fx.session.Run(context.Background()))
	out := fx.out.String()
	assert.Contains(t, out, "Edit customer #1")
	assert.Contains(t, out, "Customer updated successfully.")
	assert.Contains(t, out, "no customer with id 42")
	assert.Equal(t, "new@x", fx.customers.Records()[0].Contact)
}

func TestSessionRemoteFailure(t *testing.T) {
	srv := newBackend(t)
	url := srv.URL
	srv.Close()

	fx := newFixture(t, url, "reload\nnew\nset name A\nset tax 1\nset contact c\nsave\n")
	require.NoError(t, fx.session.Run(context.Background()))

	out := fx.out.String()
	assert.Contains(t, out, "Failed to load customers.")
	assert.Contains(t, out, "Failed to save customer.")
	assert.Equal(t, partners.ModeCreating, fx.customers.Mode(), "the user may retry")
}

func TestSessionUsageMessages(t *testing.T) {
	srv := newBackend(t)
	fx := newFixture(t, srv.URL, "frobnicate\nuse widget\nedit abc\nset name x\nsave\nsearch foo\nhelp\n")

	require.NoError(t, fx.session.Run(context.Background()))
	out := fx.out.String()
	assert.Contains(t, out, `unknown command "frobnicate"`)
	assert.Contains(t, out, "usage: use customer|supplier")
	assert.Contains(t, out, "usage: edit <id>")
	assert.Contains(t, out, "nothing to edit")
	assert.Contains(t, out, "nothing to save")
	assert.Contains(t, out, "usage: search name=<q> tax=<q>")
	assert.Contains(t, out, "set name|tax|contact|address <value>")
}

func TestSessionStopsOnCancelledContext(t *testing.T) {
	fx := newFixture(t, "http://127.0.0.1:0", "list\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, fx.session.Run(ctx), context.Canceled)
}

func TestPrompterConfirm(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewPrompter(strings.NewReader("yes\nY\nno\n\n"), out)

	assert.True(t, p.Confirm("sure?"))
	assert.True(t, p.Confirm("sure?"))
	assert.False(t, p.Confirm("sure?"))
	assert.False(t, p.Confirm("sure?"))
	assert.False(t, p.Confirm("sure?"), "end of input declines")
	assert.Equal(t, 5, strings.Count(out.String(), "sure? [y/N] "))
}

func TestNewRequiresManagers(t *testing.T) {
	_, err := New(Config{Prompter: NewPrompter(strings.NewReader(""), &bytes.Buffer{}), Out: &bytes.Buffer{}})
	assert.Error(t, err)
}

type pendingTimers struct {
	mu  sync.Mutex
	fns []func()
}

func (p *pendingTimers) AfterFunc(_ time.Duration, fn func()) partners.Timer {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fns = append(p.fns, fn)
	return stoppedTimer{}
}

type stoppedTimer struct{}

func (stoppedTimer) Stop() bool { return false }

func (p *pendingTimers) fireAll() {
	p.mu.Lock()
	fns := p.fns
	p.fns = nil
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func TestSessionRedrawsPromptWhenNotificationExpires(t *testing.T) {
	srv := newBackend(t)
	out := &bytes.Buffer{}
	prompter := NewPrompter(strings.NewReader("new\nset name A\nset tax 1\nset contact c\nsave\n"), out)

	var session *Session
	timers := map[partners.Kind]*pendingTimers{}
	managers := make([]*partners.Manager, 0, 2)
	for _, schema := range partners.Schemas() {
		kind := schema.Kind
		pending := &pendingTimers{}
		timers[kind] = pending
		m, err := partners.NewManager(partners.ManagerConfig{
			Schema:    schema,
			Gateway:   partners.NewHTTPGateway(srv.URL, schema, nil),
			Confirmer: prompter,
			Notifier: partners.NewNotifier(partners.NotifierConfig{
				AfterFunc: pending.AfterFunc,
				OnChange: func(current *partners.Notification) {
					if current == nil {
						session.NotificationCleared(kind)
					}
				},
			}),
		})
		require.NoError(t, err)
		managers = append(managers, m)
	}
	var err error
	session, err = New(Config{Prompter: prompter, Managers: managers})
	require.NoError(t, err)
	require.NoError(t, session.Run(context.Background()))
	require.Contains(t, out.String(), "Customer added successfully.")

	session.NotificationCleared(partners.KindSupplier)
	assert.NotContains(t, out.String(), "(notification cleared)")

	timers[partners.KindCustomer].fireAll()
	assert.True(t, strings.HasSuffix(out.String(), "(notification cleared)\ncustomer> "), out.String())
	_, ok := managers[0].Notification()
	assert.False(t, ok)
}

// Package tui is the interactive terminal front end of the field CLI.
//
// OrderModel drives an order.Wizard with bubbletea. Wizard calls that may
// reach the gateway run as commands; while one is in flight the model does
// not touch the wizard and only renders a spinner.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/money"
	"github.com/medisupply/field-app/internal/order"
	"github.com/medisupply/field-app/internal/selector"
)

// CustomerLoader lists the customers an account manager may order for.
type CustomerLoader func(ctx context.Context) ([]model.Customer, error)

type inputMode int

const (
	modeBrowse   inputMode = iota // search box takes typing
	modeQuantity                  // quantity prompt for a product
	modeNotes                     // order notes
)

type openedMsg struct {
	customers []model.Customer
	err       error
}

type wizardMsg struct {
	done string
	err  error
}

type customerItem model.Customer

func (c customerItem) Title() string { return c.TradeName }

func (c customerItem) Description() string {
	parts := []string{"NIT " + c.NIT}
	if c.City != "" {
		parts = append(parts, c.City)
	}
	if c.InstitutionType != "" {
		parts = append(parts, c.InstitutionType)
	}
	return strings.Join(parts, " · ")
}

func (c customerItem) FilterValue() string { return c.TradeName }

// OrderModel is the bubbletea model of the order wizard.
type OrderModel struct {
	ctx             context.Context
	wizard          *order.Wizard
	loadCustomers   CustomerLoader
	money           *money.Formatter
	customerSession bool

	state  order.State
	mode   inputMode
	busy   bool
	status string
	err    error
	quit   bool

	customers    []model.Customer
	shown        []model.Customer
	customerList list.Model

	products      []order.Product
	productTable  table.Model
	cartTable     table.Model
	pending       order.Product
	search        textinput.Model
	quantityInput textinput.Model
	notesInput    textinput.Model
	spinner       spinner.Model
	help          help.Model
}

// NewOrderModel builds the wizard UI. customers may be nil for
// institutional users, who order for their own institution.
func NewOrderModel(ctx context.Context, w *order.Wizard, customers CustomerLoader, f *money.Formatter) *OrderModel {
	if f == nil {
		f = money.NewFormatter("es")
	}

	cl := list.New(nil, list.NewDefaultDelegate(), 72, 14)
	cl.Title = "Customers"
	cl.SetShowStatusBar(false)
	cl.SetShowHelp(false)
	cl.SetFilteringEnabled(false)

	pt := table.New(
		table.WithColumns([]table.Column{
			{Title: "SKU", Width: 12},
			{Title: "Product", Width: 32},
			{Title: "Price", Width: 12},
			{Title: "Available", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	ct := table.New(
		table.WithColumns([]table.Column{
			{Title: "SKU", Width: 12},
			{Title: "Product", Width: 28},
			{Title: "Qty", Width: 6},
			{Title: "Unit", Width: 12},
			{Title: "Subtotal", Width: 14},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &OrderModel{
		ctx:             ctx,
		wizard:          w,
		loadCustomers:   customers,
		money:           f,
		customerSession: w.CustomerSession(),
		state:           order.StateClosed,
		customerList:    cl,
		productTable:    pt,
		cartTable:       ct,
		search:          newInput("search: ", "name, SKU or NIT", 64),
		quantityInput:   newInput("quantity: ", "1", 6),
		notesInput:      newInput("notes: ", "delivery notes", 240),
		spinner:         sp,
		help:            help.New(),
	}
}

func newInput(prompt, placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(prompt)
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Created reports the order placed in this session, if any.
func (m *OrderModel) Created() (model.OrderCreated, bool) {
	if m.busy {
		return model.OrderCreated{}, false
	}
	return m.wizard.Created()
}

func (m *OrderModel) Init() tea.Cmd {
	m.busy = true
	return tea.Batch(m.spinner.Tick, m.open())
}

func (m *OrderModel) open() tea.Cmd {
	ctx, w, load := m.ctx, m.wizard, m.loadCustomers
	return func() tea.Msg {
		if err := w.Open(ctx); err != nil {
			return openedMsg{err: err}
		}
		if w.CustomerSession() || load == nil {
			return openedMsg{}
		}
		cs, err := load(ctx)
		return openedMsg{customers: cs, err: err}
	}
}

// run executes a wizard operation off the update loop.
func (m *OrderModel) run(done string, op func(context.Context) error) (tea.Model, tea.Cmd) {
	m.busy = true
	m.err = nil
	m.status = ""
	ctx := m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return wizardMsg{done: done, err: op(ctx)}
	})
}

func (m *OrderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.customerList.SetSize(max(20, msg.Width-8), max(6, msg.Height-12))
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case openedMsg:
		m.busy = false
		m.err = msg.err
		if msg.customers != nil {
			m.customers = msg.customers
		}
		m.sync()
		return m, nil

	case wizardMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.done
		}
		m.sync()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m.stop()
		}
		if m.busy {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *OrderModel) stop() (tea.Model, tea.Cmd) {
	if !m.busy {
		if err := m.wizard.Close(); err != nil {
			m.err = err
		}
	}
	m.quit = true
	return m, tea.Quit
}

func (m *OrderModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeQuantity:
		return m.quantityKey(msg)
	case modeNotes:
		return m.notesKey(msg)
	}

	switch m.state {
	case order.StateSelectingCustomer:
		return m.customerKey(msg)
	case order.StateSelectingProducts:
		return m.productKey(msg)
	case order.StateReviewing:
		return m.reviewKey(msg)
	case order.StateClosed:
		if key.Matches(msg, keys.New) {
			m.busy = true
			m.err = nil
			m.status = ""
			return m, tea.Batch(m.spinner.Tick, m.open())
		}
	}
	return m, nil
}

func (m *OrderModel) customerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up, keys.Down):
		var cmd tea.Cmd
		m.customerList, cmd = m.customerList.Update(msg)
		return m, cmd
	case key.Matches(msg, keys.Select):
		i := m.customerList.Index()
		if i < 0 || i >= len(m.shown) {
			return m, nil
		}
		if err := m.wizard.SelectCustomer(m.shown[i]); err != nil {
			m.err = err
			return m, nil
		}
		return m.run("", m.wizard.Advance)
	case key.Matches(msg, keys.Back):
		m.clearSearch()
		return m, nil
	}
	return m.typeSearch(msg)
}

func (m *OrderModel) productKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up, keys.Down):
		var cmd tea.Cmd
		m.productTable, cmd = m.productTable.Update(msg)
		return m, cmd
	case key.Matches(msg, keys.Select):
		i := m.productTable.Cursor()
		if i < 0 || i >= len(m.products) {
			return m, nil
		}
		m.pending = m.products[i]
		m.mode = modeQuantity
		m.search.Blur()
		m.quantityInput.SetValue("1")
		m.quantityInput.CursorEnd()
		m.quantityInput.Focus()
		return m, nil
	case key.Matches(msg, keys.Next):
		return m.run("", m.wizard.Advance)
	case key.Matches(msg, keys.Refresh):
		return m.run("stock reloaded", m.wizard.Refresh)
	case key.Matches(msg, keys.Back):
		if m.search.Value() != "" {
			m.clearSearch()
			return m, nil
		}
		m.back()
		return m, nil
	}
	return m.typeSearch(msg)
}

func (m *OrderModel) quantityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Select):
		qty, err := strconv.Atoi(strings.TrimSpace(m.quantityInput.Value()))
		if err != nil || qty <= 0 {
			m.err = order.ErrInvalidQuantity
			return m, nil
		}
		p := m.pending.Product
		m.leaveInput()
		done := fmt.Sprintf("added %s × %s", m.money.Count(qty), p.Name)
		return m.run(done, func(ctx context.Context) error {
			return m.wizard.AddItem(ctx, p, qty)
		})
	case key.Matches(msg, keys.Back):
		m.leaveInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.quantityInput, cmd = m.quantityInput.Update(msg)
	return m, cmd
}

func (m *OrderModel) reviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up, keys.Down):
		var cmd tea.Cmd
		m.cartTable, cmd = m.cartTable.Update(msg)
		return m, cmd
	case key.Matches(msg, keys.Select):
		return m.run("", m.wizard.Advance)
	case key.Matches(msg, keys.Inc, keys.Dec):
		line, ok := m.selectedLine()
		if !ok {
			return m, nil
		}
		qty := line.Quantity + 1
		if key.Matches(msg, keys.Dec) {
			qty = line.Quantity - 1
		}
		return m.run("", func(ctx context.Context) error {
			return m.wizard.UpdateQuantity(ctx, line.SKU, qty)
		})
	case key.Matches(msg, keys.Remove):
		line, ok := m.selectedLine()
		if !ok {
			return m, nil
		}
		m.err = m.wizard.RemoveItem(line.SKU)
		if m.err == nil {
			m.status = "removed " + line.Name
		}
		m.sync()
		return m, nil
	case key.Matches(msg, keys.Notes):
		m.mode = modeNotes
		m.notesInput.SetValue(m.wizard.Notes())
		m.notesInput.CursorEnd()
		m.notesInput.Focus()
		return m, nil
	case key.Matches(msg, keys.Refresh):
		return m.run("stock reloaded", m.wizard.Refresh)
	case key.Matches(msg, keys.Back):
		m.back()
		return m, nil
	}
	return m, nil
}

func (m *OrderModel) notesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Select):
		m.wizard.SetNotes(strings.TrimSpace(m.notesInput.Value()))
		m.leaveInput()
		return m, nil
	case key.Matches(msg, keys.Back):
		m.leaveInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.notesInput, cmd = m.notesInput.Update(msg)
	return m, cmd
}

func (m *OrderModel) typeSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.sync()
	return m, cmd
}

func (m *OrderModel) clearSearch() {
	m.search.SetValue("")
	m.sync()
}

func (m *OrderModel) back() {
	m.err = m.wizard.Back()
	m.status = ""
	m.sync()
}

func (m *OrderModel) leaveInput() {
	m.mode = modeBrowse
	m.quantityInput.Blur()
	m.notesInput.Blur()
	m.sync()
}

func (m *OrderModel) selectedLine() (order.LineItem, bool) {
	lines := m.wizard.Cart().Lines()
	i := m.cartTable.Cursor()
	if i < 0 || i >= len(lines) {
		return order.LineItem{}, false
	}
	return lines[i], true
}

// sync copies wizard state into the widgets. Only called when no command
// is in flight.
func (m *OrderModel) sync() {
	if s := m.wizard.State(); s != m.state {
		m.state = s
		m.search.SetValue("")
	}

	switch m.state {
	case order.StateSelectingCustomer:
		m.shown = selector.Customers(m.customers, m.search.Value())
		items := make([]list.Item, len(m.shown))
		for i, c := range m.shown {
			items[i] = customerItem(c)
		}
		m.customerList.SetItems(items)
	case order.StateSelectingProducts:
		var all []order.Product
		if l := m.wizard.Ledger(); l != nil {
			all = l.Products()
		}
		m.products = selector.Products(all, m.search.Value())
		rows := make([]table.Row, len(m.products))
		for i, p := range m.products {
			rows[i] = table.Row{p.SKU, p.Name, m.money.Amount(p.UnitPrice), m.money.Count(p.LocalStock)}
		}
		setRows(&m.productTable, rows)
	case order.StateReviewing:
		lines := m.wizard.Cart().Lines()
		rows := make([]table.Row, len(lines))
		for i, li := range lines {
			rows[i] = table.Row{li.SKU, li.Name, m.money.Count(li.Quantity), m.money.Amount(li.UnitPrice), m.money.Amount(li.Subtotal())}
		}
		setRows(&m.cartTable, rows)
	}

	if m.mode == modeBrowse && (m.state == order.StateSelectingCustomer || m.state == order.StateSelectingProducts) {
		m.search.Focus()
	} else {
		m.search.Blur()
	}
}

func setRows(t *table.Model, rows []table.Row) {
	t.SetRows(rows)
	if n := len(rows); n > 0 && t.Cursor() >= n {
		t.SetCursor(n - 1)
	}
}

func (m *OrderModel) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("MediSupply · New order"))
	b.WriteString("\n")
	b.WriteString(m.steps())
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(m.spinner.View() + " talking to the gateway…\n")
		return appStyle.Render(b.String())
	}

	var bindings []key.Binding
	switch m.state {
	case order.StateSelectingCustomer:
		b.WriteString(m.search.View() + "\n\n")
		if len(m.shown) == 0 {
			b.WriteString(mutedStyle.Render("No customers match.") + "\n")
		} else {
			b.WriteString(m.customerList.View() + "\n")
		}
		bindings = keys.customerHelp()
	case order.StateSelectingProducts:
		b.WriteString(m.customerLine())
		b.WriteString(m.search.View() + "\n\n")
		b.WriteString(m.productTable.View() + "\n")
		b.WriteString(m.cartSummary() + "\n")
		if m.mode == modeQuantity {
			b.WriteString("\n" + m.pending.Name + "\n" + m.quantityInput.View() + "\n")
		}
		bindings = keys.productHelp()
	case order.StateReviewing:
		b.WriteString(m.customerLine())
		b.WriteString(boxStyle.Render(m.cartTable.View()) + "\n")
		b.WriteString(m.cartSummary() + "\n")
		if m.mode == modeNotes {
			b.WriteString(m.notesInput.View() + "\n")
		} else if notes := m.wizard.Notes(); notes != "" {
			b.WriteString(mutedStyle.Render("Notes: "+notes) + "\n")
		}
		b.WriteString(mutedStyle.Render("enter places the order") + "\n")
		bindings = keys.reviewHelp()
	case order.StateClosed:
		if created, ok := m.wizard.Created(); ok {
			b.WriteString(okStyle.Render(fmt.Sprintf("Order %s created", created.ReferenceNumber)) + "\n")
			b.WriteString(fmt.Sprintf("Status: %s  Total: %s\n", created.Status, m.money.Amount(created.Total)))
		}
		bindings = keys.doneHelp()
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(errorText(m.err)) + "\n")
	} else if m.status != "" {
		b.WriteString("\n" + okStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.help.ShortHelpView(bindings))
	return appStyle.Render(b.String())
}

func (m *OrderModel) steps() string {
	type step struct {
		label string
		state order.State
	}
	all := []step{
		{"Customer", order.StateSelectingCustomer},
		{"Products", order.StateSelectingProducts},
		{"Review", order.StateReviewing},
		{"Confirm", order.StateConfirming},
	}
	if m.customerSession {
		all = all[1:]
	}
	current := m.state
	if m.busy && current == order.StateReviewing {
		current = order.StateConfirming
	}
	parts := make([]string, len(all))
	for i, s := range all {
		label := fmt.Sprintf("%d. %s", i+1, s.label)
		if s.state == current {
			parts[i] = activeStep.Render(label)
		} else {
			parts[i] = stepStyle.Render(label)
		}
	}
	return strings.Join(parts, stepStyle.Render("  ›  "))
}

func (m *OrderModel) customerLine() string {
	c, ok := m.wizard.Customer()
	if !ok {
		return ""
	}
	return mutedStyle.Render(fmt.Sprintf("For %s (NIT %s)", c.Name, c.NIT)) + "\n"
}

func (m *OrderModel) cartSummary() string {
	t := m.wizard.Cart().Totals()
	if t.Lines == 0 {
		return mutedStyle.Render("Cart is empty")
	}
	return totalStyle.Render(fmt.Sprintf("%d lines · %s units · %s",
		t.Lines, m.money.Count(t.Units), m.money.Amount(t.Total)))
}

// errorText is what the status line shows for err. Local wizard errors
// keep their own text instead of the generic transport message.
func errorText(err error) string {
	f := order.Classify(err)
	if f.Kind == order.KindTransport && !api.IsTransport(err) {
		return err.Error()
	}
	return f.Message
}

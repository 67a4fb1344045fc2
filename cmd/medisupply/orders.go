package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/tui"
	"github.com/urfave/cli/v2"
)

// orderCustomerLimit caps how many assigned customers the wizard lists.
const orderCustomerLimit = 200

func (e *env) orderCommand() *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "place an order with the interactive wizard",
		Action: func(c *cli.Context) error {
			u, err := e.user(c)
			if err != nil {
				return err
			}

			var created *model.OrderCreated
			w := e.app.Wizard(*u, func(oc model.OrderCreated) { created = &oc })
			m := tui.NewOrderModel(c.Context, w, e.customerLoader(*u), e.app.Money)

			// The wizard's logger would scribble over the alternate screen.
			log := e.app.Log
			prev := log.Out
			log.SetOutput(io.Discard)
			defer log.SetOutput(prev)

			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(c.Context))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("order wizard: %w", err)
			}
			if created == nil {
				e.printf("No order placed\n")
				return nil
			}
			e.printf("Order %s created: %s, total %s\n", created.ReferenceNumber, created.Status, e.app.Money.Amount(created.Total))
			return nil
		},
	}
}

// customerLoader lists the active customers u may order for. Admins see
// every customer.
func (e *env) customerLoader(u auth.User) tui.CustomerLoader {
	managerID := u.ID
	if u.HasRole(enum.RoleAdmin) {
		managerID = ""
	}
	return func(ctx context.Context) ([]model.Customer, error) {
		active := true
		page, err := e.app.Client.Customers().Mine(ctx, api.CustomerFilter{
			ManagerID: managerID,
			Active:    &active,
			Limit:     orderCustomerLimit,
		})
		if err != nil {
			return nil, err
		}
		return page.Customers, nil
	}
}

func (e *env) ordersCommand() *cli.Command {
	return &cli.Command{
		Name:    "orders",
		Aliases: []string{"pedidos"},
		Usage:   "list orders",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "pendiente, enviado, entregado or cancelado"},
			&cli.StringFlag{Name: "nit", Usage: "only orders of this NIT"},
			&cli.IntFlag{Name: "page", Value: 1},
			&cli.IntFlag{Name: "per-page", Value: api.DefaultOrdersPerPage},
		},
		Action: func(c *cli.Context) error {
			if _, err := e.user(c); err != nil {
				return err
			}
			page, err := e.app.Client.Orders().List(c.Context, api.OrderFilter{
				Status:  c.String("status"),
				NIT:     c.String("nit"),
				Page:    c.Int("page"),
				PerPage: c.Int("per-page"),
			})
			if err != nil {
				return err
			}
			rows := make([][]string, len(page.Orders))
			for i, o := range page.Orders {
				rows[i] = []string{o.Reference, o.ID, o.NIT, o.Status, e.app.Money.Count(o.Units()), e.app.Money.Amount(o.Total), stamp(o.CreatedAt)}
			}
			printTable(e.out, []string{"Reference", "ID", "NIT", "Status", "Units", "Total", "Created"}, rows)
			e.printf("page %d, %d of %d orders\n", page.Page, len(page.Orders), page.Total)
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "order detail",
				ArgsUsage: "ORDER_ID",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					o, err := e.app.Client.Orders().Get(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					heading(e.out, "%s (%s)", o.Reference, o.Status)
					e.printf("customer %d, NIT %s, created %s\n", o.CustomerID, o.NIT, stamp(o.CreatedAt))
					if o.Notes != "" {
						e.printf("notes: %s\n", o.Notes)
					}
					rows := make([][]string, len(o.Lines))
					for i, l := range o.Lines {
						rows[i] = []string{l.ProductName, e.app.Money.Count(l.Quantity), e.app.Money.Amount(l.UnitPrice), e.app.Money.Amount(l.Subtotal)}
					}
					printTable(e.out, []string{"Product", "Qty", "Unit", "Subtotal"}, rows)
					e.printf("total %s\n", e.app.Money.Amount(o.Total))
					return nil
				},
			},
			{
				Name:      "history",
				Usage:     "status changes of an order",
				ArgsUsage: "ORDER_ID",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					h, err := e.app.Client.Orders().History(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					rows := make([][]string, len(h.Changes))
					for i, ch := range h.Changes {
						rows[i] = []string{stamp(ch.At), ch.Status, orDash(ch.Comment)}
					}
					printTable(e.out, []string{"When", "Status", "Comment"}, rows)
					return nil
				},
			},
		},
	}
}

package main

import (
	"errors"

	"github.com/medisupply/field-app/internal/auth"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/tracking"
	"github.com/urfave/cli/v2"
)

var nitFlag = &cli.StringFlag{Name: "nit", Usage: "institution NIT (defaults to your own)"}

// deliveryNIT picks the NIT to follow: the flag, else the user's own.
func deliveryNIT(c *cli.Context, u *auth.User) (string, error) {
	if nit := c.String("nit"); nit != "" {
		return nit, nil
	}
	if u.NIT == "" {
		return "", errors.New("--nit is required for accounts without an institution")
	}
	return u.NIT, nil
}

func (e *env) deliveriesCommand() *cli.Command {
	return &cli.Command{
		Name:    "deliveries",
		Aliases: []string{"entregas"},
		Usage:   "delivery board grouped by status",
		Flags:   []cli.Flag{nitFlag},
		Action: func(c *cli.Context) error {
			u, err := e.user(c)
			if err != nil {
				return err
			}
			nit, err := deliveryNIT(c, u)
			if err != nil {
				return err
			}
			board, err := tracking.LoadBoard(c.Context, e.app.Client.Deliveries(), nit)
			if err != nil {
				return err
			}
			e.printBoard(board)
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:      "track",
				Usage:     "tracking events of a delivery",
				ArgsUsage: "DELIVERY_ID",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					t, err := tracking.Detail(c.Context, e.app.Client.Deliveries(), c.Args().First())
					if err != nil {
						return err
					}
					d := t.Delivery
					heading(e.out, "%s for order %s: %s", d.ID, orDash(d.OrderRef), d.Status)
					e.printf("scheduled %s at %s\n", stamp(d.ScheduledFor), d.Address)
					if d.Driver != "" {
						e.printf("driver %s, vehicle %s\n", d.Driver, orDash(d.Vehicle))
					}
					rows := make([][]string, len(t.Events))
					for i, ev := range t.Events {
						rows[i] = []string{stamp(ev.At), ev.Status, orDash(ev.Location), orDash(ev.Description)}
					}
					printTable(e.out, []string{"When", "Status", "Location", "Note"}, rows)
					return nil
				},
			},
			{
				Name:  "watch",
				Usage: "follow live delivery updates until interrupted",
				Flags: []cli.Flag{nitFlag},
				Action: func(c *cli.Context) error {
					u, err := e.user(c)
					if err != nil {
						return err
					}
					nit, err := deliveryNIT(c, u)
					if err != nil {
						return err
					}
					e.printf("Following deliveries of %s, Ctrl+C to stop\n", nit)
					return e.app.Watcher().Watch(c.Context, e.app.Client.Deliveries().FeedURL(nit), func(ev model.DeliveryEvent) {
						d := ev.Delivery
						e.printf("%s  %s  %s -> %s\n", stamp(e.now()), ev.Type, d.ID, d.Status)
					})
				},
			},
		},
	}
}

func (e *env) printBoard(b *tracking.Board) {
	heading(e.out, "Deliveries of %s (%d)", b.NIT, b.Total())
	for _, status := range enum.DeliveryStatuses {
		col := b.Column(status)
		e.printf("\n")
		heading(e.out, "%s (%d)", status, len(col))
		rows := make([][]string, len(col))
		for i, d := range col {
			rows[i] = []string{d.ID, orDash(d.OrderRef), stamp(d.ScheduledFor), d.Address, orDash(d.Driver)}
		}
		printTable(e.out, []string{"ID", "Order", "Scheduled", "Address", "Driver"}, rows)
	}
}

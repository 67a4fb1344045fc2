package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/routes"
	"github.com/medisupply/field-app/internal/validation"
	"github.com/medisupply/field-app/internal/visits"
	"github.com/urfave/cli/v2"
)

func (e *env) routeCommand() *cli.Command {
	return &cli.Command{
		Name:    "route",
		Aliases: []string{"ruta"},
		Usage:   "the day's visit route",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "YYYY-MM-DD, default today"},
			&cli.StringFlag{Name: "manager", Usage: "account manager id (admins only)"},
		},
		Action: func(c *cli.Context) error {
			u, err := e.user(c)
			if err != nil {
				return err
			}
			day, err := routes.ParseDay(c.String("date"), e.now())
			if err != nil {
				return err
			}
			managerID := u.ID
			if m := c.String("manager"); m != "" {
				managerID = m
			}

			plan, err := routes.Load(c.Context, e.app.Client.Routes(), managerID, day)
			if err != nil {
				return err
			}
			r := plan.Route
			heading(e.out, "Route %s, %d visits", r.Date, len(plan.Visits))
			e.printf("%s to %s, %.1f km, %s\n",
				routes.FormatHour(r.SuggestedStart), routes.FormatHour(r.SuggestedEnd),
				r.TotalKm, routes.FormatDuration(r.TotalMinutes, false))
			counts := plan.CountByPriority()
			e.printf("priority: %d high, %d medium, %d low\n",
				counts[enum.VisitPriorityHigh], counts[enum.VisitPriorityMedium], counts[enum.VisitPriorityLow])

			rows := make([][]string, len(plan.Visits))
			for i, v := range plan.Visits {
				rows[i] = []string{
					strconv.Itoa(v.Order),
					routes.FormatHour(v.SuggestedStart),
					v.CustomerName,
					v.CustomerAddress,
					routes.FormatDuration(v.EstimatedMinutes, true),
					v.Priority,
				}
			}
			printTable(e.out, []string{"#", "Start", "Customer", "Address", "Duration", "Priority"}, rows)
			return nil
		},
	}
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", what, s)
	}
	return id, nil
}

func (e *env) visitsCommand() *cli.Command {
	return &cli.Command{
		Name:    "visits",
		Aliases: []string{"visitas"},
		Usage:   "register visits and their evidence",
		Subcommands: []*cli.Command{
			{
				Name:  "new",
				Usage: "register a visit",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "client", Required: true, Usage: "customer id"},
					&cli.StringFlag{Name: "date", Required: true, Usage: "YYYY-MM-DD"},
					&cli.StringFlag{Name: "time", Required: true, Usage: "HH:MM"},
					&cli.StringFlag{Name: "contact", Required: true, Usage: "person met"},
					&cli.StringFlag{Name: "type", Required: true, Usage: strings.Join(enum.VisitTypes, ", ")},
					&cli.StringFlag{Name: "objective", Required: true},
					&cli.StringFlag{Name: "notes"},
					&cli.StringFlag{Name: "title"},
				},
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					form := visits.Form{
						ClientID:    c.Int64("client"),
						Date:        c.String("date"),
						Time:        c.String("time"),
						ContactName: c.String("contact"),
						VisitType:   c.String("type"),
						Objective:   c.String("objective"),
						Notes:       c.String("notes"),
						Title:       c.String("title"),
					}
					created, err := e.app.Visits().Register(c.Context, form)
					if err != nil {
						var fe validation.FieldErrors
						if errors.As(err, &fe) {
							return fmt.Errorf("visit form: %w", err)
						}
						return err
					}
					e.printf("%s (visit %d)\n", created.Message, created.ID)
					return nil
				},
			},
			{
				Name:      "list",
				Usage:     "visits of a customer, newest first",
				ArgsUsage: "CLIENT_ID",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					id, err := parseID(c.Args().First(), "client id")
					if err != nil {
						return err
					}
					vs, err := e.app.Visits().History(c.Context, id)
					if err != nil {
						return err
					}
					rows := make([][]string, len(vs))
					for i, v := range vs {
						rows[i] = []string{strconv.FormatInt(v.ID, 10), stamp(v.VisitDatetime), orDash(v.VisitType), orDash(v.ContactName), orDash(v.VisitObjective), strconv.Itoa(len(v.Evidences))}
					}
					printTable(e.out, []string{"ID", "When", "Type", "Contact", "Objective", "Files"}, rows)
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "visit detail with evidence",
				ArgsUsage: "VISIT_ID",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					id, err := parseID(c.Args().First(), "visit id")
					if err != nil {
						return err
					}
					v, err := e.app.Visits().Get(c.Context, id)
					if err != nil {
						return err
					}
					heading(e.out, "Visit %d, %s", v.ID, stamp(v.VisitDatetime))
					e.printf("customer:  %d\n", v.ClientID)
					e.printf("type:      %s\n", orDash(v.VisitType))
					e.printf("contact:   %s\n", orDash(v.ContactName))
					e.printf("objective: %s\n", orDash(v.VisitObjective))
					if v.Notes != "" {
						e.printf("notes:     %s\n", v.Notes)
					}
					rows := make([][]string, len(v.Evidences))
					for i, ev := range v.Evidences {
						kind := "file"
						switch {
						case visits.IsImage(ev):
							kind = "photo"
						case visits.IsVideo(ev):
							kind = "video"
						}
						rows[i] = []string{strconv.FormatInt(ev.ID, 10), kind, ev.Filename, visits.FormatSize(ev.SizeBytes)}
					}
					printTable(e.out, []string{"ID", "Kind", "File", "Size"}, rows)
					return nil
				},
			},
			{
				Name:      "attach",
				Usage:     "upload photos, videos or documents to a visit",
				ArgsUsage: "VISIT_ID FILE...",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					if c.Args().Len() < 2 {
						return fmt.Errorf("usage: visits attach %s", c.Command.ArgsUsage)
					}
					id, err := parseID(c.Args().First(), "visit id")
					if err != nil {
						return err
					}
					svc := e.app.Visits()
					for _, path := range c.Args().Tail() {
						up, err := svc.AttachFile(c.Context, id, path)
						if err != nil {
							return fmt.Errorf("%s: %w", path, err)
						}
						for _, ev := range up.Items {
							e.printf("uploaded %s (%s, %s) as evidence %d\n", ev.Filename, ev.ContentType, visits.FormatSize(ev.SizeBytes), ev.ID)
						}
					}
					return nil
				},
			},
			{
				Name:      "url",
				Usage:     "fresh download link for an evidence file",
				ArgsUsage: "VISIT_ID EVIDENCE_ID",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					visitID, err := parseID(c.Args().Get(0), "visit id")
					if err != nil {
						return err
					}
					evidenceID, err := parseID(c.Args().Get(1), "evidence id")
					if err != nil {
						return err
					}
					link, err := e.app.Visits().EvidenceURL(c.Context, visitID, evidenceID)
					if err != nil {
						return err
					}
					e.printf("%s\nexpires %s\n", link.URL, stamp(link.ExpiresAt))
					return nil
				},
			},
		},
	}
}

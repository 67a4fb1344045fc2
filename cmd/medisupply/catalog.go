package main

import (
	"fmt"
	"strconv"

	"github.com/medisupply/field-app/internal/accounts"
	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/urfave/cli/v2"
)

func (e *env) productsCommand() *cli.Command {
	return &cli.Command{
		Name:  "products",
		Usage: "browse the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sku", Usage: "only this SKU"},
			&cli.IntFlag{Name: "page", Value: 1},
			&cli.IntFlag{Name: "page-size", Value: api.DefaultProductPageSize},
		},
		Action: func(c *cli.Context) error {
			if _, err := e.user(c); err != nil {
				return err
			}
			page, err := e.app.Client.Products().List(c.Context, api.ProductQuery{
				SKU:      c.String("sku"),
				Page:     c.Int("page"),
				PageSize: c.Int("page-size"),
			})
			if err != nil {
				return err
			}
			rows := make([][]string, len(page.Items))
			for i, p := range page.Items {
				rows[i] = []string{p.SKU, p.Name, e.app.Money.Amount(p.UnitPrice), e.app.Money.Count(p.Stock), p.StockStatus, orDash(p.ExpirationDate)}
			}
			printTable(e.out, []string{"SKU", "Product", "Price", "Stock", "Status", "Expires"}, rows)
			e.printf("page %d, %d of %d products\n", page.Page, len(page.Items), page.Total)
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:      "stock",
				Usage:     "check whether a quantity is available",
				ArgsUsage: "SKU QUANTITY",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					if c.Args().Len() != 2 {
						return fmt.Errorf("usage: products stock %s", c.Command.ArgsUsage)
					}
					qty, err := strconv.Atoi(c.Args().Get(1))
					if err != nil || qty <= 0 {
						return fmt.Errorf("quantity must be a positive number, got %q", c.Args().Get(1))
					}
					products := e.app.Client.Products()
					p, err := products.BySKU(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					check, err := products.CheckStock(c.Context, p.ProductID, qty)
					if err != nil {
						return err
					}
					if check.Valid {
						e.printf("%s: %d available, %d can be ordered\n", p.Name, check.Available, qty)
						return nil
					}
					e.printf("%s: only %d available (%s)\n", p.Name, check.Available, orDash(check.Message))
					return nil
				},
			},
		},
	}
}

func (e *env) customersCommand() *cli.Command {
	return &cli.Command{
		Name:    "customers",
		Aliases: []string{"clientes"},
		Usage:   "list and look up customers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "name, city or NIT"},
			&cli.StringFlag{Name: "type", Usage: "institution type"},
			&cli.StringFlag{Name: "manager", Usage: "account manager id (admins only)"},
			&cli.BoolFlag{Name: "inactive", Usage: "include inactive customers"},
			&cli.IntFlag{Name: "page", Value: 1},
		},
		Action: func(c *cli.Context) error {
			u, err := e.user(c)
			if err != nil {
				return err
			}
			managerID := u.ID
			if u.HasRole(enum.RoleAdmin) {
				managerID = ""
			}
			if m := c.String("manager"); m != "" {
				managerID = m
			}

			var found []model.Customer
			if term := c.String("search"); term != "" {
				found, err = accounts.Find(c.Context, e.app.Client.Customers(), managerID, term)
				if err != nil {
					return err
				}
			} else {
				f := api.CustomerFilter{ManagerID: managerID, InstitutionType: c.String("type"), Page: c.Int("page")}
				if !c.Bool("inactive") {
					active := true
					f.Active = &active
				}
				page, err := e.app.Client.Customers().Mine(c.Context, f)
				if err != nil {
					return err
				}
				found = page.Customers
			}
			e.printCustomers(found)
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "customer detail with visit history",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					id, err := strconv.ParseInt(c.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("customer id must be a number, got %q", c.Args().First())
					}
					p, err := accounts.LoadProfile(c.Context, e.app.Client.Customers(), e.app.Client.Visits(), id)
					if err != nil {
						return err
					}
					e.printProfile(p)
					return nil
				},
			},
			{
				Name:      "nit",
				Usage:     "find customer sites by NIT",
				ArgsUsage: "NIT",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					found, err := e.app.Client.Customers().ByNIT(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					e.printCustomers(found)
					return nil
				},
			},
			{
				Name:  "types",
				Usage: "list institution types",
				Action: func(c *cli.Context) error {
					if _, err := e.user(c); err != nil {
						return err
					}
					types, err := e.app.Client.Customers().InstitutionTypes(c.Context)
					if err != nil {
						return err
					}
					for _, t := range types {
						e.printf("%s\n", t)
					}
					return nil
				},
			},
		},
	}
}

func (e *env) printCustomers(cs []model.Customer) {
	rows := make([][]string, len(cs))
	for i, c := range cs {
		status := "active"
		if !c.Active {
			status = "inactive"
		}
		rows[i] = []string{strconv.FormatInt(c.ID, 10), c.NIT, c.TradeName, c.InstitutionType, orDash(c.City), status}
	}
	printTable(e.out, []string{"ID", "NIT", "Name", "Type", "City", "Status"}, rows)
}

func (e *env) printProfile(p *accounts.Profile) {
	c := p.Customer
	heading(e.out, "%s (NIT %s)", c.TradeName, c.NIT)
	e.printf("legal name: %s\n", orDash(c.LegalName))
	e.printf("type:       %s\n", orDash(c.InstitutionType))
	e.printf("address:    %s, %s\n", orDash(c.Address), orDash(c.City))
	e.printf("contact:    %s %s\n", orDash(c.MainContact), orDash(c.Phone))
	if last := p.LastVisit(); last != nil {
		e.printf("last visit: %s (%s)\n", stamp(last.VisitDatetime), orDash(last.VisitType))
	}

	rows := make([][]string, len(p.Visits))
	for i, v := range p.Visits {
		rows[i] = []string{strconv.FormatInt(v.ID, 10), stamp(v.VisitDatetime), orDash(v.VisitType), orDash(v.ContactName), strconv.Itoa(len(v.Evidences))}
	}
	e.printf("\n")
	heading(e.out, "Visits")
	printTable(e.out, []string{"ID", "When", "Type", "Contact", "Files"}, rows)
}

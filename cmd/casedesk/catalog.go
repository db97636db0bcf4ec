package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"casedesk/internal/catalog"
)

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "validate a case type catalog and print it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", EnvVars: []string{"CATALOG_PATH"}, Usage: "catalog YAML file; the built-in catalog when empty"},
		},
		Action: func(c *cli.Context) error {
			cat, err := loadCatalog(c.String("path"))
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(map[string]any{"types": cat.ListTypes()})
			if err != nil {
				return fmt.Errorf("encode catalog: %w", err)
			}
			_, err = c.App.Writer.Write(out)
			return err
		},
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

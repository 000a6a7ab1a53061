package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/delaneyj/livedoc/app"
	"github.com/delaneyj/livedoc/directive"
	"github.com/delaneyj/livedoc/loop"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	configKey   = "config"
	waitKey     = "wait"
	prefixKey   = "prefix"
	baseURLKey  = "base-url"
	logLevelKey = "log-level"
)

func main() {
	cmd := &cli.Command{
		Name:  "livedoc",
		Usage: "Render reactive documents without a browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configKey,
				Usage: "YAML config file",
			},
			&cli.StringFlag{
				Name:  prefixKey,
				Usage: "Directive attribute prefix",
			},
			&cli.StringFlag{
				Name:  logLevelKey,
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "render",
				Usage:     "Mount a document, let it settle and print the resulting HTML",
				ArgsUsage: "<file.html>",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  waitKey,
						Usage: "Virtual time to advance after mounting",
						Value: time.Second,
					},
					&cli.StringFlag{
						Name:  baseURLKey,
						Usage: "Base URL for relative fetches",
					},
				},
				Action: render,
			},
			{
				Name:   "directives",
				Usage:  "List the built-in directives",
				Action: directives,
			},
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func config(cmd *cli.Command) (app.Config, error) {
	cfg := app.DefaultConfig()
	if path := cmd.String(configKey); path != "" {
		var err error
		if cfg, err = app.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if v := cmd.String(prefixKey); v != "" {
		cfg.Prefix = v
	}
	if v := cmd.String(logLevelKey); v != "" {
		cfg.LogLevel = v
	}
	if v := cmd.String(baseURLKey); v != "" {
		cfg.BaseURL = v
	}
	return cfg, nil
}

func render(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("render needs a file")
	}
	cfg, err := config(cmd)
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	markup, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	a := app.New(cfg,
		app.WithLoop(loop.NewVirtual()),
		app.WithLogger(logger.Sugar()),
	)
	if err := a.Mount(string(markup)); err != nil {
		return fmt.Errorf("mounting %s: %w", path, err)
	}
	if err := a.Loop().Advance(cmd.Duration(waitKey)); err != nil {
		return err
	}
	fmt.Println(a.HTML())
	return nil
}

func directives(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config(cmd)
	if err != nil {
		return err
	}
	reg := directive.Builtins(&directive.Env{Prefix: cfg.Prefix})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"directive", "usage"})
	table.SetAutoWrapText(false)
	for _, name := range reg.Names() {
		table.Append([]string{cfg.Prefix + name, reg.Usage(name)})
	}
	table.Render()
	return nil
}

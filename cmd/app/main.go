// HeartForm serves the heart disease prediction form.
//
// Usage:
//
//	heartform serve --config config/config.yaml
//	heartform predict --set Age=54 --set Sex=F
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"HeartForm/internal/di"
	"HeartForm/internal/domain/models"
	"HeartForm/internal/usecase"
	"HeartForm/internal/view"
	"HeartForm/pkg/config"
	applogger "HeartForm/pkg/logger"
	"HeartForm/pkg/util"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "heartform",
		Usage:   "Heart disease prediction form",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/config.yaml",
				Usage:   "config file path",
				EnvVars: []string{"HEARTFORM_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			predictCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			return app.Run(c.Context)
		},
	}
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Submit one prediction from the terminal",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "set",
				Aliases: []string{"s"},
				Usage:   "field value as Field=value, repeatable",
			},
			&cli.StringFlag{
				Name:    "backend-url",
				Usage:   "prediction service base URL",
				EnvVars: []string{"BACKEND_URL"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "output format (text, json)",
			},
			&cli.DurationFlag{
				Name:  "wait",
				Value: 2 * time.Minute,
				Usage: "how long to wait for the prediction",
			},
		},
		Action: runPredict,
	}
}

func runPredict(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if u := c.String("backend-url"); u != "" {
		cfg.Predictor.BaseURL = u
	}

	log, err := di.ProvideLogger(cfg)
	if err != nil {
		return err
	}

	form := usecase.NewPredictionForm("cli", di.ProvidePredictor(cfg, log), usecase.WithFormLogger(log))
	go form.Run(c.Context)
	defer form.Close()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("wait"))
	defer cancel()

	for _, pair := range c.StringSlice("set") {
		field, value, ok := util.SplitPair(pair)
		if !ok {
			return cli.Exit(fmt.Sprintf("invalid --set %q, want Field=value", pair), 2)
		}
		spec, known := models.LookupField(field)
		if !known {
			return cli.Exit(fmt.Sprintf("unknown field %q", field), 2)
		}
		if _, err := form.Change(ctx, field, value, spec.Kind); err != nil {
			return err
		}
	}

	log.Debug("submitting prediction", applogger.String("form", fmt.Sprintf("%+v", form.Snapshot().Form)))
	st, err := form.SubmitAndWait(ctx)
	if err != nil {
		return err
	}

	out := view.Render(st)
	switch c.String("format") {
	case "json":
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]interface{}{"state": st, "view": out}); err != nil {
			return err
		}
	default:
		if err := view.WriteText(c.App.Writer, out); err != nil {
			return err
		}
	}

	if st.Error != "" {
		return cli.Exit("", 1)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"spotify-cli/internal/shared"
	"spotify-cli/internal/ui"
)

func main() {
	shared.LoadDotenv()

	logger := shared.NewLogger(nil)
	shared.SetLogLevel(logger, log.WarnLevel)

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "spotify-cli",
		Usage:    "Control Spotify playback and a managed recommendations playlist",
		Version:  "0.3.0",
		Flags:    globalFlags(),
		Before:   runner.configure,
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	runner.Close()

	if err != nil {
		logger.Debug("command failed", "error", err)
		fmt.Fprintln(os.Stderr, ui.Failure(err.Error()))
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "token-path",
			Usage: "Path to the saved token file",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Machine readable output where supported",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the local database",
		Action: r.Setup,
	}
}

// Setup scaffolds a config file when none exists and brings the run history
// database up to date.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configFile()

	if _, err := os.Stat(configPath); err != nil {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("%s\n", ui.Success(fmt.Sprintf("Config file created at %s", configPath)))
		r.writePlain("Fill in [credentials.spotify] before running `spotify-cli auth login`.\n")
	} else {
		r.writePlain("Config file already exists at %s\n", configPath)
	}

	if _, err := r.openDatabase(); err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Success(fmt.Sprintf("Database ready at %s", r.config.Database.Path)))
	return nil
}

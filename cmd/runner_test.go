package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"spotify-cli/internal/auth"
	"spotify-cli/internal/shared"
	th "spotify-cli/internal/testing"
)

// newTestRunner builds a Runner writing to a buffer with a quiet logger.
func newTestRunner(opts RunnerOpts) (*Runner, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	if opts.Output == nil {
		opts.Output = buf
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Config == nil {
		opts.Config = &shared.Config{}
	}
	return NewRunner(opts), buf
}

func configWithCredentials() *shared.Config {
	config := &shared.Config{}
	config.Credentials.Spotify.ClientID = "client-id"
	config.Credentials.Spotify.ClientSecret = "client-secret"
	return config
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("applies defaults", func(t *testing.T) {
			r := NewRunner(RunnerOpts{})

			if r.config == nil {
				t.Error("config should default")
			}
			if r.logger == nil {
				t.Error("logger should default")
			}
			if r.output != os.Stdout {
				t.Error("output should default to stdout")
			}
			if r.authorize == nil {
				t.Error("authorize should default to the interactive flow")
			}
		})

		t.Run("keeps injected dependencies", func(t *testing.T) {
			player := &th.MockPlayerService{}
			library := &th.MockLibraryService{}
			store := auth.NewStore("token.json", auth.NewOAuthConfig("id", "secret"), shared.NewLogger(io.Discard))

			r, _ := newTestRunner(RunnerOpts{Player: player, Library: library, Store: store})

			if r.player != player {
				t.Error("player should be the injected mock")
			}
			if r.library != library {
				t.Error("library should be the injected mock")
			}
			if r.store != store {
				t.Error("store should be the injected store")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		r, _ := newTestRunner(RunnerOpts{})
		commands := r.register()

		if len(commands) != 5 {
			t.Fatalf("register() returned %d commands, want 5", len(commands))
		}

		want := []string{"auth", "playback", "queue", "rec", "setup"}
		for i, name := range want {
			if commands[i] == nil {
				t.Fatalf("command %d is nil", i)
			}
			if commands[i].Name != name {
				t.Errorf("command %d = %q, want %q", i, commands[i].Name, name)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("pretty prints with indentation", func(t *testing.T) {
			r, buf := newTestRunner(RunnerOpts{})

			if err := r.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("writeJSON() error = %v", err)
			}

			out := buf.String()
			if !strings.Contains(out, "  \"key\": \"value\"") {
				t.Errorf("output not indented: %q", out)
			}
			if !strings.HasSuffix(out, "\n") {
				t.Error("output should end with a newline")
			}
		})

		t.Run("compact output", func(t *testing.T) {
			r, buf := newTestRunner(RunnerOpts{})

			if err := r.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("writeJSON() error = %v", err)
			}

			if buf.String() != "{\"key\":\"value\"}\n" {
				t.Errorf("unexpected output: %q", buf.String())
			}
		})

		t.Run("returns error for unmarshalable data", func(t *testing.T) {
			r, _ := newTestRunner(RunnerOpts{})

			if err := r.writeJSON(make(chan int), true); err == nil {
				t.Error("expected marshal error")
			}
		})

		t.Run("returns error when write fails", func(t *testing.T) {
			r, _ := newTestRunner(RunnerOpts{Output: &th.FWriter{}})

			if err := r.writeJSON(map[string]string{"key": "value"}, true); err == nil {
				t.Error("expected write error")
			}
		})

		t.Run("returns error when newline write fails", func(t *testing.T) {
			lw := th.NewLimitedWriter(1, 0, &bytes.Buffer{})
			r, _ := newTestRunner(RunnerOpts{Output: &lw})

			if err := r.writeJSON(map[string]string{"key": "value"}, true); err == nil {
				t.Error("expected newline write error")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		r, buf := newTestRunner(RunnerOpts{})

		if err := r.writePlain("count: %d", 3); err != nil {
			t.Fatalf("writePlain() error = %v", err)
		}
		if buf.String() != "count: 3" {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})

	t.Run("writePlainln", func(t *testing.T) {
		r, buf := newTestRunner(RunnerOpts{})

		if err := r.writePlainln("done"); err != nil {
			t.Fatalf("writePlainln() error = %v", err)
		}
		if buf.String() != "\ndone\n" {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})

	t.Run("writePlainHeader", func(t *testing.T) {
		r, buf := newTestRunner(RunnerOpts{})

		r.writePlainHeader("Summary")

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("header has %d lines, want 3", len(lines))
		}
		if lines[1] != "Summary" {
			t.Errorf("title line = %q, want %q", lines[1], "Summary")
		}
		if !strings.Contains(lines[0], "═") || lines[0] != lines[2] {
			t.Error("title should sit between two matching bars")
		}
	})

	t.Run("requireCredentials", func(t *testing.T) {
		t.Run("fails without credentials", func(t *testing.T) {
			t.Setenv(shared.EnvClientID, "")
			t.Setenv(shared.EnvClientSecret, "")
			r, _ := newTestRunner(RunnerOpts{})

			err := r.requireCredentials()
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Fatalf("requireCredentials() error = %v, want ErrMissingCredentials", err)
			}
			for _, name := range []string{"SPOTIFY_CLI_CLIENT_ID", "SPOTIFY_CLI_CLIENT_SECRET"} {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("error should name %s: %v", name, err)
				}
			}
		})

		t.Run("passes with credentials", func(t *testing.T) {
			r, _ := newTestRunner(RunnerOpts{Config: configWithCredentials()})

			if err := r.requireCredentials(); err != nil {
				t.Errorf("requireCredentials() error = %v", err)
			}
		})
	})

	t.Run("tokenStore", func(t *testing.T) {
		t.Run("prefers the flag path", func(t *testing.T) {
			r, _ := newTestRunner(RunnerOpts{Config: configWithCredentials(), TokenPath: "/tmp/flag-token.json"})

			store, err := r.tokenStore()
			if err != nil {
				t.Fatalf("tokenStore() error = %v", err)
			}
			if store.Path() != "/tmp/flag-token.json" {
				t.Errorf("path = %q, want the flag value", store.Path())
			}
		})

		t.Run("falls back to the env var then the config", func(t *testing.T) {
			t.Setenv(shared.EnvTokenFile, "/tmp/env-token.json")
			config := configWithCredentials()
			config.Auth.TokenPath = "/tmp/config-token.json"
			r, _ := newTestRunner(RunnerOpts{Config: config})

			store, err := r.tokenStore()
			if err != nil {
				t.Fatalf("tokenStore() error = %v", err)
			}
			if store.Path() != "/tmp/env-token.json" {
				t.Errorf("path = %q, want the env value", store.Path())
			}
		})

		t.Run("uses the config path", func(t *testing.T) {
			t.Setenv(shared.EnvTokenFile, "")
			config := configWithCredentials()
			config.Auth.TokenPath = "/tmp/config-token.json"
			r, _ := newTestRunner(RunnerOpts{Config: config})

			store, err := r.tokenStore()
			if err != nil {
				t.Fatalf("tokenStore() error = %v", err)
			}
			if store.Path() != "/tmp/config-token.json" {
				t.Errorf("path = %q, want the config value", store.Path())
			}
		})

		t.Run("reuses an injected store", func(t *testing.T) {
			injected := auth.NewStore("token.json", auth.NewOAuthConfig("id", "secret"), shared.NewLogger(io.Discard))
			r, _ := newTestRunner(RunnerOpts{Store: injected})

			store, err := r.tokenStore()
			if err != nil {
				t.Fatalf("tokenStore() error = %v", err)
			}
			if store != injected {
				t.Error("tokenStore() should return the injected store")
			}
		})

		t.Run("caches the built store", func(t *testing.T) {
			r, _ := newTestRunner(RunnerOpts{Config: configWithCredentials(), TokenPath: "/tmp/token.json"})

			first, err := r.tokenStore()
			if err != nil {
				t.Fatalf("tokenStore() error = %v", err)
			}
			second, err := r.tokenStore()
			if err != nil {
				t.Fatalf("tokenStore() error = %v", err)
			}
			if first != second {
				t.Error("tokenStore() should cache the store")
			}
		})
	})

	t.Run("playerService", func(t *testing.T) {
		t.Run("returns the injected service", func(t *testing.T) {
			player := &th.MockPlayerService{}
			r, _ := newTestRunner(RunnerOpts{Player: player})

			svc, err := r.playerService(context.Background())
			if err != nil {
				t.Fatalf("playerService() error = %v", err)
			}
			if svc != player {
				t.Error("playerService() should return the injected mock")
			}
		})

		t.Run("fails without credentials", func(t *testing.T) {
			t.Setenv(shared.EnvClientID, "")
			t.Setenv(shared.EnvClientSecret, "")
			r, _ := newTestRunner(RunnerOpts{})

			if _, err := r.playerService(context.Background()); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("playerService() error = %v, want ErrMissingCredentials", err)
			}
		})
	})

	t.Run("withReauth", func(t *testing.T) {
		t.Run("passes success through", func(t *testing.T) {
			r, _ := newTestRunner(RunnerOpts{})
			flowCalls := 0
			r.authorize = func(ctx context.Context) (*auth.TokenPair, error) {
				flowCalls++
				return &auth.TokenPair{}, nil
			}

			opCalls := 0
			err := r.withReauth(context.Background(), func(ctx context.Context) error {
				opCalls++
				return nil
			})

			if err != nil {
				t.Fatalf("withReauth() error = %v", err)
			}
			if opCalls != 1 || flowCalls != 0 {
				t.Errorf("opCalls = %d, flowCalls = %d, want 1 and 0", opCalls, flowCalls)
			}
		})

		t.Run("passes unrelated errors through", func(t *testing.T) {
			r, _ := newTestRunner(RunnerOpts{})
			flowCalls := 0
			r.authorize = func(ctx context.Context) (*auth.TokenPair, error) {
				flowCalls++
				return &auth.TokenPair{}, nil
			}

			wantErr := fmt.Errorf("%w: no saved token", shared.ErrNotAuthenticated)
			err := r.withReauth(context.Background(), func(ctx context.Context) error {
				return wantErr
			})

			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("withReauth() error = %v, want ErrNotAuthenticated", err)
			}
			if flowCalls != 0 {
				t.Errorf("flowCalls = %d, want 0", flowCalls)
			}
		})

		t.Run("reauthorizes once and retries", func(t *testing.T) {
			r, buf := newTestRunner(RunnerOpts{})
			flowCalls := 0
			r.authorize = func(ctx context.Context) (*auth.TokenPair, error) {
				flowCalls++
				return &auth.TokenPair{}, nil
			}

			opCalls := 0
			err := r.withReauth(context.Background(), func(ctx context.Context) error {
				opCalls++
				if opCalls == 1 {
					return fmt.Errorf("%w: token rejected", shared.ErrReauthorizationRequired)
				}
				return nil
			})

			if err != nil {
				t.Fatalf("withReauth() error = %v", err)
			}
			if opCalls != 2 || flowCalls != 1 {
				t.Errorf("opCalls = %d, flowCalls = %d, want 2 and 1", opCalls, flowCalls)
			}
			if !strings.Contains(buf.String(), "Reauthorized") {
				t.Errorf("output should mention reauthorization: %q", buf.String())
			}
		})

		t.Run("does not loop when the retry fails again", func(t *testing.T) {
			r, _ := newTestRunner(RunnerOpts{})
			flowCalls := 0
			r.authorize = func(ctx context.Context) (*auth.TokenPair, error) {
				flowCalls++
				return &auth.TokenPair{}, nil
			}

			opCalls := 0
			err := r.withReauth(context.Background(), func(ctx context.Context) error {
				opCalls++
				return fmt.Errorf("%w: token rejected", shared.ErrReauthorizationRequired)
			})

			if !errors.Is(err, shared.ErrReauthorizationRequired) {
				t.Fatalf("withReauth() error = %v, want ErrReauthorizationRequired", err)
			}
			if opCalls != 2 || flowCalls != 1 {
				t.Errorf("opCalls = %d, flowCalls = %d, want 2 and 1", opCalls, flowCalls)
			}
		})

		t.Run("surfaces authorization failure", func(t *testing.T) {
			r, _ := newTestRunner(RunnerOpts{})
			r.authorize = func(ctx context.Context) (*auth.TokenPair, error) {
				return nil, errors.New("user denied")
			}

			err := r.withReauth(context.Background(), func(ctx context.Context) error {
				return fmt.Errorf("%w: token rejected", shared.ErrReauthorizationRequired)
			})

			if err == nil || !strings.Contains(err.Error(), "reauthorization failed") {
				t.Errorf("withReauth() error = %v, want a reauthorization failure", err)
			}
		})
	})

	t.Run("configure", func(t *testing.T) {
		newApp := func(r *Runner) *cli.Command {
			return &cli.Command{
				Name:   "spotify-cli",
				Flags:  globalFlags(),
				Before: r.configure,
				Commands: []*cli.Command{
					{
						Name: "noop",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							return nil
						},
					},
				},
			}
		}

		t.Run("loads the config file and applies flags", func(t *testing.T) {
			t.Setenv(shared.EnvClientID, "")
			t.Setenv(shared.EnvClientSecret, "")
			t.Setenv(shared.EnvTokenFile, "")

			path := filepath.Join(t.TempDir(), "config.toml")
			content := "[credentials.spotify]\nclient_id = \"from-file\"\nclient_secret = \"secret\"\n"
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			r, _ := newTestRunner(RunnerOpts{})
			args := []string{"spotify-cli", "--config", path, "--json", "--token-path", "/tmp/flag-token.json", "noop"}
			if err := newApp(r).Run(context.Background(), args); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if r.config.Credentials.Spotify.ClientID != "from-file" {
				t.Errorf("client id = %q, want %q", r.config.Credentials.Spotify.ClientID, "from-file")
			}
			if !r.jsonOut {
				t.Error("jsonOut should be set")
			}
			if r.tokenPath != "/tmp/flag-token.json" {
				t.Errorf("tokenPath = %q, want the flag value", r.tokenPath)
			}
			if r.configPath != path {
				t.Errorf("configPath = %q, want %q", r.configPath, path)
			}
		})

		t.Run("errors when an explicit config file is missing", func(t *testing.T) {
			r, _ := newTestRunner(RunnerOpts{})
			args := []string{"spotify-cli", "--config", filepath.Join(t.TempDir(), "nope.toml"), "noop"}

			err := newApp(r).Run(context.Background(), args)
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("Run() error = %v, want ErrMissingConfig", err)
			}
		})

		t.Run("keeps defaults when the default file is absent", func(t *testing.T) {
			wd := th.MustGetwd(t)
			th.MustChdir(t, t.TempDir())
			defer th.MustChdir(t, wd)

			config := configWithCredentials()
			r, _ := newTestRunner(RunnerOpts{Config: config})

			if err := newApp(r).Run(context.Background(), []string{"spotify-cli", "noop"}); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if r.config != config {
				t.Error("config should be untouched when no file exists")
			}
		})
	})

	t.Run("Close", func(t *testing.T) {
		r, _ := newTestRunner(RunnerOpts{})

		if err := r.Close(); err != nil {
			t.Errorf("Close() without a database error = %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	config := configWithCredentials()
	config.Database.Path = filepath.Join(dir, "spotify-cli.db")

	r, buf := newTestRunner(RunnerOpts{Config: config, ConfigPath: configPath})
	defer r.Close()

	if err := setupCommand(r).Run(context.Background(), []string{"setup"}); err != nil {
		t.Fatalf("setup error = %v", err)
	}

	th.AssertFileExists(t, configPath)
	th.AssertFileExists(t, config.Database.Path)

	out := buf.String()
	if !strings.Contains(out, "Config file created at "+configPath) {
		t.Errorf("output should confirm the config file: %q", out)
	}
	if !strings.Contains(out, "Database ready at "+config.Database.Path) {
		t.Errorf("output should confirm the database: %q", out)
	}

	buf.Reset()
	if err := setupCommand(r).Run(context.Background(), []string{"setup"}); err != nil {
		t.Fatalf("second setup error = %v", err)
	}
	if !strings.Contains(buf.String(), "already exists") {
		t.Errorf("second run should report the existing config: %q", buf.String())
	}
}

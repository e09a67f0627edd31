// Copyright 2026 The Hallway Authors
// SPDX-License-Identifier: Apache-2.0

// Hallway is a command-line Matrix client. It keeps a session file
// under ~/.config/hallway/ so that login happens once and subsequent
// commands reuse the stored access token.
//
// Usage:
//
//	hallway login --user alice [--homeserver URL]
//	hallway whoami
//	hallway rooms
//	hallway send <room ID or alias> <text>
//	hallway sync [--follow]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"golang.org/x/term"

	"github.com/hallway-im/hallway/lib/id"
	"github.com/hallway-im/hallway/lib/secret"
	"github.com/hallway-im/hallway/matrix"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// config is the optional ~/.config/hallway/config.jsonc file. Comments
// and trailing commas are allowed; the file is translated to plain
// JSON before decoding.
type config struct {
	HomeserverURL string `json:"homeserver_url"`
	DefaultRoom   string `json:"default_room"`
}

// sessionFile is the stored login state at ~/.config/hallway/session.json.
type sessionFile struct {
	HomeserverURL string    `json:"homeserver_url"`
	UserID        id.UserID `json:"user_id"`
	DeviceID      string    `json:"device_id,omitempty"`
	AccessToken   string    `json:"access_token"`
}

func run() error {
	flags := pflag.NewFlagSet("hallway", pflag.ContinueOnError)
	homeserverURL := flags.String("homeserver", "", "Matrix homeserver URL (overrides config file)")
	user := flags.String("user", "", "username for login (localpart, no '@' or ':server')")
	passwordFile := flags.String("password-file", "", "path to file containing the password, or - for stdin")
	follow := flags.Bool("follow", false, "sync: keep long-polling and printing new messages")
	verbose := flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: hallway <login|whoami|rooms|send|sync> [flags]\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configDir, err := hallwayConfigDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(filepath.Join(configDir, "config.jsonc"))
	if err != nil {
		return err
	}
	if *homeserverURL == "" {
		*homeserverURL = cfg.HomeserverURL
	}

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		return fmt.Errorf("no command given")
	}

	switch command := args[0]; command {
	case "login":
		return cmdLogin(ctx, configDir, *homeserverURL, *user, *passwordFile, logger)
	case "whoami":
		return withSession(ctx, configDir, logger, cmdWhoAmI)
	case "rooms":
		return withSession(ctx, configDir, logger, cmdRooms)
	case "send":
		room := cfg.DefaultRoom
		text := ""
		switch len(args) {
		case 2:
			text = args[1]
		case 3:
			room, text = args[1], args[2]
		default:
			return fmt.Errorf("usage: hallway send [room] <text>")
		}
		if room == "" {
			return fmt.Errorf("no room given and no default_room in config")
		}
		return withSession(ctx, configDir, logger, func(ctx context.Context, session *matrix.Session) error {
			return cmdSend(ctx, session, room, text)
		})
	case "sync":
		return withSession(ctx, configDir, logger, func(ctx context.Context, session *matrix.Session) error {
			return cmdSync(ctx, session, *follow)
		})
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func hallwayConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(base, "hallway"), nil
}

// loadConfig reads the jsonc config file. A missing file is not an
// error; everything can come from flags.
func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg config
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func cmdLogin(ctx context.Context, configDir, homeserverURL, user, passwordFile string, logger *slog.Logger) error {
	if homeserverURL == "" {
		return fmt.Errorf("--homeserver is required (or set homeserver_url in config)")
	}
	if user == "" {
		return fmt.Errorf("--user is required")
	}

	password, err := readPassword(passwordFile)
	if err != nil {
		return err
	}
	defer password.Close()

	client, err := matrix.NewClient(matrix.ClientConfig{
		HomeserverURL: homeserverURL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	session, err := client.Login(ctx, user, password)
	if err != nil {
		return err
	}
	defer session.Close()

	state := sessionFile{
		HomeserverURL: homeserverURL,
		UserID:        session.UserID(),
		DeviceID:      session.DeviceID(),
		AccessToken:   session.AccessToken(),
	}
	if err := writeSessionFile(configDir, state); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", session.UserID())
	return nil
}

// readPassword reads the password from a file (or stdin with "-"), or
// prompts interactively when no file is given.
func readPassword(passwordFile string) (*secret.Buffer, error) {
	if passwordFile != "" {
		return secret.ReadFromPath(passwordFile)
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("stdin is not a terminal; use --password-file (- for stdin)")
	}
	fmt.Fprint(os.Stderr, "password: ")
	line, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	defer secret.Zero(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("empty password")
	}
	return secret.NewFromBytes(line)
}

func writeSessionFile(configDir string, state sessionFile) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}
	path := filepath.Join(configDir, "session.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// withSession restores the stored session and runs fn with it.
func withSession(ctx context.Context, configDir string, logger *slog.Logger, fn func(context.Context, *matrix.Session) error) error {
	path := filepath.Join(configDir, "session.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("not logged in; run `hallway login` first")
		}
		return fmt.Errorf("reading session file: %w", err)
	}
	var state sessionFile
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	client, err := matrix.NewClient(matrix.ClientConfig{
		HomeserverURL: state.HomeserverURL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	session, err := client.SessionFromToken(state.UserID, state.AccessToken)
	if err != nil {
		return err
	}
	defer session.Close()

	return fn(ctx, session)
}

func cmdWhoAmI(ctx context.Context, session *matrix.Session) error {
	userID, err := session.WhoAmI(ctx)
	if err != nil {
		if matrix.IsMatrixError(err, matrix.ErrCodeUnknownToken) {
			return fmt.Errorf("stored token is no longer valid; run `hallway login` again")
		}
		return err
	}
	fmt.Println(userID)
	return nil
}

func cmdRooms(ctx context.Context, session *matrix.Session) error {
	rooms, err := session.JoinedRooms(ctx)
	if err != nil {
		return err
	}
	for _, roomID := range rooms {
		fmt.Println(roomID)
	}
	return nil
}

func cmdSend(ctx context.Context, session *matrix.Session, room, text string) error {
	roomID, err := resolveRoom(ctx, session, room)
	if err != nil {
		return err
	}
	eventID, err := session.SendMessage(ctx, roomID, matrix.NewTextMessage(text))
	if err != nil {
		return err
	}
	fmt.Println(eventID)
	return nil
}

// resolveRoom accepts a room ID or a room alias and returns the ID.
func resolveRoom(ctx context.Context, session *matrix.Session, room string) (id.RoomID, error) {
	if strings.HasPrefix(room, "#") {
		alias, err := id.ParseRoomAlias(room)
		if err != nil {
			return id.RoomID{}, err
		}
		return session.ResolveAlias(ctx, alias)
	}
	return id.ParseRoomID(room)
}

// cmdSync prints message events as they arrive. Without --follow it
// performs a single initial sync and exits.
func cmdSync(ctx context.Context, session *matrix.Session, follow bool) error {
	options := matrix.SyncOptions{}
	for {
		response, err := session.Sync(ctx, options)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		printMessages(response)
		if !follow {
			return nil
		}
		options.Since = response.NextBatch
		options.Timeout = 30000
		options.SetTimeout = true
	}
}

func printMessages(response *matrix.SyncResponse) {
	for roomID, room := range response.Rooms.Join {
		for _, event := range room.Timeline.Events {
			if event.Type != "m.room.message" {
				continue
			}
			body, _ := event.Content["body"].(string)
			fmt.Printf("%s <%s> %s\n", roomID, event.Sender, body)
		}
	}
}

package main

import (
	"errors"
	"fmt"

	"github.com/plagiaguard/plagctl/internal/api"
	"github.com/plagiaguard/plagctl/internal/config"
	"github.com/plagiaguard/plagctl/internal/notify"
)

// newAPIClient builds a client from config and the saved session token.
// Declared as a variable so tests can swap it for one pointed at a test server.
var newAPIClient = func() (*api.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	token := ""
	creds, err := config.LoadCredentials()
	if err == nil {
		token = creds.Token
	} else if !errors.Is(err, config.ErrNoCredentials) {
		return nil, err
	}

	return api.New(cfg.API.BaseURL, token), nil
}

// newNotesPrinter returns a queue whose notes are rendered to stderr as
// they arrive. Progress notes reuse printStep so repeated updates for the
// same transfer stay readable in a terminal.
func newNotesPrinter() *notify.Queue {
	q := notify.NewQueue(0)
	q.Subscribe(func(n notify.Note) {
		switch n.Level {
		case notify.LevelSuccess:
			printSuccess("%s", n.Message)
		case notify.LevelWarning:
			printWarning("%s", n.Message)
		case notify.LevelError:
			printError("%s", n.Message)
		case notify.LevelProgress:
			printStep("%s", n.Message)
		default:
			printStep("%s", n.Message)
		}
	})
	return q
}

// Package app holds the front-end state for the hidden vault: whether the
// vault view is visible, the last status line, and the commands a UI can
// issue. Long operations run on the task runner so the UI never blocks.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/models"
	"github.com/TheMichaelB/calcvault/internal/vault"
)

// Command is an action requested by the front-end.
type Command interface {
	command()
}

// ShowVault reveals the vault view and reloads the index.
type ShowVault struct{}

// HideVault returns to the cover screen.
type HideVault struct{}

// IngestStaging encrypts everything in the staging directory.
type IngestStaging struct{}

// OpenRecord decrypts a record and launches its viewer.
type OpenRecord struct {
	Index int
}

// DeleteRecord removes a record and its blob.
type DeleteRecord struct {
	Index int
}

// RecoverOrphans adopts decryptable orphaned blobs.
type RecoverOrphans struct{}

func (ShowVault) command()      {}
func (HideVault) command()      {}
func (IngestStaging) command()  {}
func (OpenRecord) command()     {}
func (DeleteRecord) command()   {}
func (RecoverOrphans) command() {}

// State is what a front-end renders.
type State struct {
	VaultVisible bool
	Records      []models.EncryptedRecord
	Status       string
	IndexCorrupt bool
	Busy         bool

	// OpenedName and OpenedPath describe the most recent OpenRecord.
	// OpenedPath is empty when decryption failed and kept when only the
	// viewer failed.
	OpenedName string
	OpenedPath string
}

// Controller serializes front-end commands onto the vault.
type Controller struct {
	vault  *vault.Vault
	runner *vault.Runner
	logger *events.Logger

	mu      sync.Mutex
	visible bool
	status  string
	opened  models.EncryptedRecord
	path    string
}

// NewController creates a controller with the vault hidden.
func NewController(v *vault.Vault, runner *vault.Runner, logger *events.Logger) *Controller {
	return &Controller{
		vault:  v,
		runner: runner,
		logger: logger.WithField("component", "controller"),
	}
}

// Dispatch executes cmd. Commands that touch files run in the background
// and their task is returned; the others complete before Dispatch returns
// and yield nil. Failures surface only through State.Status.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) *vault.Task {
	c.logger.WithField("command", fmt.Sprintf("%T", cmd)).Debug("Dispatching command")

	switch cmd.(type) {
	case ShowVault:
		c.show()
		return nil

	case HideVault:
		c.mu.Lock()
		c.visible = false
		c.status = ""
		c.opened, c.path = models.EncryptedRecord{}, ""
		c.mu.Unlock()
		return nil
	}

	if !c.Visible() {
		c.setStatus(models.ErrVaultHidden.Error())
		return nil
	}

	switch cmd := cmd.(type) {
	case IngestStaging:
		return c.runner.Go(ctx, vault.TaskIngest, c.ingest)

	case OpenRecord:
		return c.runner.Go(ctx, vault.TaskRetrieve, func(context.Context, *vault.Task) (string, error) {
			return c.finish(c.open(cmd.Index))
		})

	case DeleteRecord:
		return c.runner.Go(ctx, vault.TaskDelete, func(context.Context, *vault.Task) (string, error) {
			return c.finish(c.delete(cmd.Index))
		})

	case RecoverOrphans:
		return c.runner.Go(ctx, vault.TaskRecover, func(context.Context, *vault.Task) (string, error) {
			return c.finish(c.recover())
		})

	default:
		c.setStatus(fmt.Sprintf("Unknown command %T", cmd))
		return nil
	}
}

// Snapshot returns the current state. Records are only exposed while the
// vault is visible.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	visible := c.visible
	status := c.status
	opened, path := c.opened, c.path
	c.mu.Unlock()

	state := State{
		VaultVisible: visible,
		Status:       status,
		IndexCorrupt: c.vault.IndexCorrupt(),
		Busy:         c.runner.Running() > 0,
	}
	if visible {
		state.Records = c.vault.Records()
		state.OpenedName = opened.DisplayName
		state.OpenedPath = path
	}
	return state
}

// Visible reports whether the vault view is shown.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *Controller) show() {
	records, err := c.vault.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case err != nil:
		c.visible = false
		c.status = fmt.Sprintf("Cannot open vault: %v", err)
	case c.vault.IndexCorrupt():
		c.visible = true
		c.status = "Vault index was unreadable and has been reset"
	default:
		c.visible = true
		c.status = fmt.Sprintf("%d file(s) in vault", len(records))
	}
}

func (c *Controller) ingest(ctx context.Context, task *vault.Task) (string, error) {
	report, err := c.vault.Ingest(ctx, func(res vault.IngestResult) {
		task.Report(res.Status())
		c.setStatus(res.Status())
	})

	status := report.Summary()
	if err != nil {
		status = fmt.Sprintf("Ingest stopped: %v", err)
	}
	c.setStatus(status)
	return status, err
}

func (c *Controller) open(i int) (string, error) {
	record, path, err := c.vault.Open(i)
	c.mu.Lock()
	c.opened, c.path = record, path
	c.mu.Unlock()

	switch {
	case errors.Is(err, models.ErrInvalidIndex):
		return "No such file", err
	case record.EncryptedPath == "" && err != nil:
		return fmt.Sprintf("Failed to open: %v", err), err
	case path == "":
		return fmt.Sprintf("Failed to decrypt %s", record.DisplayName), err
	case err != nil:
		return fmt.Sprintf("Decrypted %s but could not open a viewer", record.DisplayName), err
	default:
		return fmt.Sprintf("Opened %s", record.DisplayName), nil
	}
}

func (c *Controller) delete(i int) (string, error) {
	record, err := c.vault.Delete(i)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "No such file", err
	case err != nil && record.DisplayName != "":
		return fmt.Sprintf("Deleted %s; its encrypted data could not be removed", record.DisplayName), err
	case err != nil:
		return fmt.Sprintf("Failed to delete: %v", err), err
	default:
		return fmt.Sprintf("Deleted %s", record.DisplayName), nil
	}
}

func (c *Controller) recover() (string, error) {
	adopted, err := c.vault.Recover()
	if err != nil {
		return fmt.Sprintf("Recovered %d file(s) with errors", len(adopted)), err
	}
	return fmt.Sprintf("Recovered %d file(s)", len(adopted)), nil
}

func (c *Controller) finish(status string, err error) (string, error) {
	if err != nil {
		c.logger.WithError(err).Warn(status)
	}
	c.setStatus(status)
	return status, err
}

func (c *Controller) setStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

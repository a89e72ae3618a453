// Package engine drives the order dashboard: it keeps the store in step
// with the backend (mutations, polling refresh) and raises deadline
// alerts. Rendering and alert delivery are injected; the engine never
// touches a concrete output surface.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zafarze/ecoprint/internal/orders"
)

var ErrValidation = errors.New("validation failed")

// Gateway is the slice of the backend contract the engine consumes.
type Gateway interface {
	FetchOrders(ctx context.Context, archived bool) ([]orders.Order, error)
	FetchProducts(ctx context.Context) ([]orders.Product, error)
	FetchUsers(ctx context.Context) ([]orders.User, error)
	CreateOrder(ctx context.Context, payload orders.OrderWrite) (orders.Order, error)
	UpdateOrder(ctx context.Context, id int, payload orders.OrderWrite) (orders.Order, error)
	DeleteOrder(ctx context.Context, id int) error
	ArchiveOrder(ctx context.Context, id int) error
	UnarchiveOrder(ctx context.Context, id int) error
	SyncSheets(ctx context.Context) error
}

// Renderer receives the visible subset whenever it may have changed.
type Renderer interface {
	RenderOrders(list []orders.Order)
}

// AlertSink receives user-facing notifications.
type AlertSink interface {
	Notify(level, title, message string)
}

const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Suspender is the refresh loop's edit-suppression latch.
type Suspender interface {
	Suspend()
	Resume()
}

type CoordinatorOptions struct {
	Renderer Renderer
	Alerts   AlertSink
	Logger   *zap.Logger
	// Refresher, when set, is suspended while the edit form is open.
	Refresher Suspender
}

// Coordinator owns every write path against the backend. All writes are
// pessimistic except the item status toggle, which mutates the store
// first and rolls back if the save fails.
type Coordinator struct {
	store     *orders.Store
	gw        Gateway
	renderer  Renderer
	alerts    AlertSink
	logger    *zap.Logger
	refresher Suspender
	validate  *validator.Validate
}

func NewCoordinator(store *orders.Store, gw Gateway, opts CoordinatorOptions) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:     store,
		gw:        gw,
		renderer:  opts.Renderer,
		alerts:    opts.Alerts,
		logger:    logger,
		refresher: opts.Refresher,
		validate:  validator.New(),
	}
}

// Initialize performs the full startup load: active orders plus both
// catalogs, then a render and notification on failure.
func (c *Coordinator) Initialize(ctx context.Context) error {
	list, err := c.gw.FetchOrders(ctx, false)
	if err != nil {
		c.fail("Failed to load data", err)
		return err
	}
	products, err := c.gw.FetchProducts(ctx)
	if err != nil {
		c.fail("Failed to load data", err)
		return err
	}
	users, err := c.gw.FetchUsers(ctx)
	if err != nil {
		c.fail("Failed to load data", err)
		return err
	}
	c.store.SetOrders(list)
	c.store.SetProductCatalog(products)
	c.store.SetUserCatalog(users)
	c.render()
	return nil
}

// Refresh re-fetches the active order list only. Used by the polling
// loop; failures are returned, not surfaced to the user.
func (c *Coordinator) Refresh(ctx context.Context) error {
	list, err := c.gw.FetchOrders(ctx, false)
	if err != nil {
		return err
	}
	c.store.SetOrders(list)
	c.render()
	return nil
}

// SaveOrder creates or updates, depending on the edit target. The store
// is only touched after the backend confirms; the server representation
// wins (computed status, assigned item ids).
func (c *Coordinator) SaveOrder(ctx context.Context, payload orders.OrderWrite) error {
	if err := c.validate.Struct(payload); err != nil {
		c.notify(LevelError, "Error", "Add an item and fill in all required fields")
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	editingID, editing := c.store.EditingOrder()
	var (
		saved orders.Order
		err   error
	)
	if editing {
		saved, err = c.gw.UpdateOrder(ctx, editingID, payload)
	} else {
		saved, err = c.gw.CreateOrder(ctx, payload)
	}
	if err != nil {
		c.fail("Failed to save order", err)
		return err
	}
	c.store.ReplaceOrder(saved)
	c.EndEdit()
	c.render()
	if editing {
		c.notify(LevelSuccess, "Success", "Order updated")
	} else {
		c.notify(LevelSuccess, "Success", "Order created")
	}
	return nil
}

func (c *Coordinator) DeleteOrder(ctx context.Context, id int) error {
	if err := c.gw.DeleteOrder(ctx, id); err != nil {
		c.fail("Failed to delete order", err)
		return err
	}
	c.store.RemoveOrder(id)
	c.render()
	c.notify(LevelSuccess, "Success", "Order deleted")
	return nil
}

// ArchiveOrder moves the order into the archive scope server-side, then
// reloads everything. The order is never moved between in-memory lists;
// active and archived are separate fetch scopes.
func (c *Coordinator) ArchiveOrder(ctx context.Context, id int) error {
	if err := c.gw.ArchiveOrder(ctx, id); err != nil {
		c.fail("Failed to archive order", err)
		return err
	}
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	c.notify(LevelSuccess, "Success", "Order archived")
	return nil
}

func (c *Coordinator) UnarchiveOrder(ctx context.Context, id int) error {
	if err := c.gw.UnarchiveOrder(ctx, id); err != nil {
		c.fail("Failed to restore order", err)
		return err
	}
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	c.notify(LevelSuccess, "Success", "Order restored from archive")
	return nil
}

// FetchArchived serves the archive view; it does not touch the active
// store snapshot.
func (c *Coordinator) FetchArchived(ctx context.Context) ([]orders.Order, error) {
	list, err := c.gw.FetchOrders(ctx, true)
	if err != nil {
		c.fail("Failed to load archive", err)
		return nil, err
	}
	return list, nil
}

// ToggleItemStatus is the one optimistic path. The item cycles to its
// next status in the store, the view re-renders immediately, and the
// whole parent order is persisted. On failure the previous status is
// restored and re-rendered.
func (c *Coordinator) ToggleItemStatus(ctx context.Context, orderID int, ref orders.ItemRef) error {
	order, ok := c.store.OrderByID(orderID)
	if !ok {
		return orders.ErrNotFound
	}
	idx := order.FindItem(ref)
	if idx < 0 {
		return orders.ErrNotFound
	}
	next := order.Items[idx].Status.Next()

	previous, err := c.store.ApplyItemStatus(orderID, ref, next)
	if err != nil {
		return err
	}
	c.render()

	optimistic, ok := c.store.OrderByID(orderID)
	if !ok {
		// A concurrent replace dropped the order; nothing to persist or
		// roll back.
		return orders.ErrNotFound
	}
	saved, err := c.gw.UpdateOrder(ctx, orderID, optimistic.WritePayload())
	if err != nil {
		if _, rollbackErr := c.store.ApplyItemStatus(orderID, ref, previous); rollbackErr != nil {
			c.logger.Warn("status rollback target vanished", zap.Int("order", orderID), zap.Error(rollbackErr))
		}
		c.render()
		c.fail("Failed to update status", err)
		return err
	}
	c.store.ReplaceOrder(saved)
	c.render()
	return nil
}

// SyncSheets triggers the spreadsheet export and reloads afterwards
// whether or not the export succeeded, to converge on server state.
func (c *Coordinator) SyncSheets(ctx context.Context) error {
	c.notify(LevelInfo, "Synchronization", "Exporting data to the spreadsheet...")
	err := c.gw.SyncSheets(ctx)
	if reloadErr := c.Initialize(ctx); err == nil {
		err = reloadErr
	}
	if err != nil {
		c.fail("Spreadsheet export failed", err)
		return err
	}
	c.notify(LevelSuccess, "Success", "Data exported and refreshed")
	return nil
}

// BeginEdit opens the edit form for an existing order and pauses the
// refresh loop so the form is not clobbered mid-edit.
func (c *Coordinator) BeginEdit(orderID int) {
	c.store.SetEditingOrder(orderID)
	if c.refresher != nil {
		c.refresher.Suspend()
	}
}

// BeginCreate opens the form in create-new mode.
func (c *Coordinator) BeginCreate() {
	c.store.ClearEditingOrder()
	if c.refresher != nil {
		c.refresher.Suspend()
	}
}

// EndEdit closes the form and resumes polling.
func (c *Coordinator) EndEdit() {
	c.store.ClearEditingOrder()
	if c.refresher != nil {
		c.refresher.Resume()
	}
}

func (c *Coordinator) render() {
	if c.renderer == nil {
		return
	}
	visible := orders.Visible(c.store.Orders(), c.store.FilterState(), c.store.SortConfig(), time.Now())
	c.renderer.RenderOrders(visible)
}

func (c *Coordinator) notify(level, title, message string) {
	if c.alerts == nil {
		return
	}
	c.alerts.Notify(level, title, message)
}

func (c *Coordinator) fail(title string, err error) {
	c.logger.Warn(title, zap.Error(err))
	c.notify(LevelError, "Error", fmt.Sprintf("%s: %v", title, err))
}

package cart

import (
	"github.com/shopspring/decimal"
)

// Op names a cart write operation.
type Op string

// Cart write operations.
const (
	OpAdd      Op = "add"
	OpAddGift  Op = "add_gift"
	OpUpdate   Op = "update"
	OpRemove   Op = "remove"
	OpClear    Op = "clear"
	OpSync     Op = "sync"
	OpDiscount Op = "discount"
	OpNotes    Op = "notes"
)

// Refresh says how state is refreshed after a successful write.
type Refresh int

const (
	// ReconcileOrKeep reconciles from the response cart and keeps the current
	// state when the response carries none.
	ReconcileOrKeep Refresh = iota
	// ReconcileOrReload reconciles from the response cart and reloads the
	// cart when the response carries none.
	ReconcileOrReload
	// Reload always fetches the full cart again.
	Reload
)

// Policy is the behavior of one write operation.
type Policy struct {
	Refresh Refresh
	// PersistError records a failure in State.Error in addition to the
	// returned Result.
	PersistError bool
	// SuccessMessage is used when the backend sends no message.
	SuccessMessage string
}

// Variant configures a Manager for one kind of cart.
type Variant struct {
	Name    string
	TaxRate decimal.Decimal
	// Discounts enables the wholesale discount, percentage and notes fields.
	Discounts       bool
	DefaultDiscount decimal.Decimal
	Policies        map[Op]Policy
}

func (v Variant) policy(op Op) Policy {
	if p, ok := v.Policies[op]; ok {
		return p
	}
	return Policy{Refresh: Reload, PersistError: true}
}

var successMessages = map[Op]string{
	OpAdd:      "Product added to cart",
	OpAddGift:  "Gift added to cart",
	OpUpdate:   "Cart updated",
	OpRemove:   "Item removed from cart",
	OpClear:    "Cart cleared",
	OpSync:     "Cart synced",
	OpDiscount: "Discount applied",
	OpNotes:    "Notes saved",
}

// Retail is the storefront cart. Adds reconcile straight from the response;
// updates, removals, clears and syncs reload the whole cart. Add failures are
// only reported in the Result.
func Retail(taxRate decimal.Decimal) Variant {
	return Variant{
		Name:    "retail",
		TaxRate: taxRate,
		Policies: map[Op]Policy{
			OpAdd:     {Refresh: ReconcileOrKeep, SuccessMessage: successMessages[OpAdd]},
			OpAddGift: {Refresh: ReconcileOrReload, SuccessMessage: successMessages[OpAddGift]},
			OpUpdate:  {Refresh: Reload, PersistError: true, SuccessMessage: successMessages[OpUpdate]},
			OpRemove:  {Refresh: Reload, PersistError: true, SuccessMessage: successMessages[OpRemove]},
			OpClear:   {Refresh: Reload, PersistError: true, SuccessMessage: successMessages[OpClear]},
			OpSync:    {Refresh: Reload, PersistError: true, SuccessMessage: successMessages[OpSync]},
		},
	}
}

// Wholesale is the wholesaler cart. Every write falls back to a reload when
// the response carries no cart; discounts and notes always reload.
func Wholesale(taxRate, defaultDiscount decimal.Decimal) Variant {
	return Variant{
		Name:            "wholesale",
		TaxRate:         taxRate,
		Discounts:       true,
		DefaultDiscount: defaultDiscount,
		Policies: map[Op]Policy{
			OpAdd:      {Refresh: ReconcileOrReload, SuccessMessage: successMessages[OpAdd]},
			OpAddGift:  {Refresh: ReconcileOrReload, SuccessMessage: successMessages[OpAddGift]},
			OpUpdate:   {Refresh: ReconcileOrReload, PersistError: true, SuccessMessage: successMessages[OpUpdate]},
			OpRemove:   {Refresh: ReconcileOrReload, PersistError: true, SuccessMessage: successMessages[OpRemove]},
			OpClear:    {Refresh: ReconcileOrReload, PersistError: true, SuccessMessage: successMessages[OpClear]},
			OpSync:     {Refresh: ReconcileOrReload, PersistError: true, SuccessMessage: successMessages[OpSync]},
			OpDiscount: {Refresh: Reload, PersistError: true, SuccessMessage: successMessages[OpDiscount]},
			OpNotes:    {Refresh: Reload, PersistError: true, SuccessMessage: successMessages[OpNotes]},
		},
	}
}

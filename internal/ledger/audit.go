package ledger

import "fmt"

// Action tags recorded in the chain. Query filters and report breakdowns key
// on these values, so they are part of the stored format.
const (
	ActionRefill    = "refill_transaction"
	ActionExpense   = "expense"
	ActionInventory = "inventory_change"
	ActionUser      = "user_action"
	ActionSystem    = "system_event"

	ActionExportTransactions = "export_transactions"
	ActionExportExpenses     = "export_expenses"
	ActionExportProfitLoss   = "export_profit_loss"
	ActionExportInventory    = "export_inventory"
	ActionExportLedger       = "export_ledger"
)

// Convenience constructors for the event shapes the back office records.
// Each returns an AppendInput ready for Ledger.Append or AppendTx.

// UserAction describes an account management event performed by a user.
func UserAction(actorRef *int64, action string, details map[string]any) AppendInput {
	return AppendInput{
		ActorRef:     actorRef,
		ActionTag:    ActionUser,
		Payload:      map[string]any{"action": action, "details": details},
		HumanMessage: fmt.Sprintf("User action: %s", action),
	}
}

// RefillTransaction describes a recorded water refill sale.
func RefillTransaction(actorRef *int64, transactionID int64, gallons int, totalAmount float64, data map[string]any) AppendInput {
	payload := map[string]any{"transaction_id": transactionID}
	for k, v := range data {
		payload[k] = v
	}
	return AppendInput{
		ActorRef:     actorRef,
		ActionTag:    ActionRefill,
		Payload:      payload,
		HumanMessage: fmt.Sprintf("Refill transaction #%d: %d gallons, ₱%.2f", transactionID, gallons, totalAmount),
	}
}

// Expense describes a recorded business expense.
func Expense(actorRef *int64, expenseID int64, category string, amount float64, data map[string]any) AppendInput {
	payload := map[string]any{"expense_id": expenseID}
	for k, v := range data {
		payload[k] = v
	}
	return AppendInput{
		ActorRef:     actorRef,
		ActionTag:    ActionExpense,
		Payload:      payload,
		HumanMessage: fmt.Sprintf("Expense: %s - ₱%.2f", category, amount),
	}
}

// InventoryChange describes a stock adjustment on an inventory item.
func InventoryChange(actorRef *int64, itemID int64, itemName, changeType string, data map[string]any) AppendInput {
	payload := map[string]any{"item_id": itemID}
	for k, v := range data {
		payload[k] = v
	}
	return AppendInput{
		ActorRef:     actorRef,
		ActionTag:    ActionInventory,
		Payload:      payload,
		HumanMessage: fmt.Sprintf("Inventory change: %s - %s", itemName, changeType),
	}
}

// SystemEvent describes an event not attributable to any user. The actor
// reference is always nil.
func SystemEvent(eventType string, data map[string]any) AppendInput {
	payload := map[string]any{"event_type": eventType}
	for k, v := range data {
		payload[k] = v
	}
	return AppendInput{
		ActionTag:    ActionSystem,
		Payload:      payload,
		HumanMessage: fmt.Sprintf("System event: %s", eventType),
	}
}

// Export describes a data export. tag must be one of the ActionExport
// constants; summary describes the exported slice (row count, period).
func Export(actorRef *int64, tag, description string, summary map[string]any) AppendInput {
	return AppendInput{
		ActorRef:     actorRef,
		ActionTag:    tag,
		Payload:      summary,
		HumanMessage: description,
	}
}

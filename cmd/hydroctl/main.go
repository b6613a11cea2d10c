package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hydrohub/hydrohub/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	stationURL string
	cfgFile    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hydroctl",
	Short: "HydroHub water refill station CLI",
	Long: `hydroctl is the command-line interface for a HydroHub station.

It records refill sales and expenses, manages inventory, renders the
business reports, and inspects the append-only audit ledger that backs
every write.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.hydrohub")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if stationURL == "" {
			stationURL = viper.GetString("station_url")
		}
		if stationURL == "" {
			stationURL = "http://localhost:8080"
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.hydrohub/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&stationURL, "station", "", "station base URL (default http://localhost:8080)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(refillCmd)
	rootCmd.AddCommand(expenseCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(versionCmd)
}

// newAuthedClient builds an SDK client using the token saved by
// 'hydroctl login'.
func newAuthedClient() (*client.Client, error) {
	path, err := client.DefaultTokenPath()
	if err != nil {
		return nil, err
	}
	c, err := client.NewFromTokenFile(stationURL, path)
	if err != nil {
		return nil, fmt.Errorf("not logged in, run 'hydroctl login' first: %w", err)
	}
	return c, nil
}

// actorLabel renders a ledger actor reference for table output.
func actorLabel(ref *int64) string {
	if ref == nil {
		return "-"
	}
	return strconv.FormatInt(*ref, 10)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// ── login ────────────────────────────────────────────────────────────────────

var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in to the station and save the session token",
	Long: `Login authenticates against the station and saves the session token
to ~/.hydrohub/token for later commands.

If --password is omitted the password is prompted on stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		password := loginPassword
		if password == "" {
			fmt.Print("Password: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimSpace(line)
		}

		c, err := client.New(stationURL)
		if err != nil {
			return err
		}
		sess, err := c.Login(context.Background(), username, password)
		if err != nil {
			if errors.Is(err, client.ErrInvalidCredentials) {
				return fmt.Errorf("login failed: %w", err)
			}
			return err
		}

		path, err := client.DefaultTokenPath()
		if err != nil {
			return err
		}
		if err := client.SaveToken(path, c.Token()); err != nil {
			return err
		}

		fmt.Printf("✓ Logged in as %s (%s)\n", sess.User.Username, sess.User.Role)
		fmt.Printf("  Token saved to %s\n", path)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted when omitted)")
}

// ── whoami ───────────────────────────────────────────────────────────────────

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the account behind the saved session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		sess, err := c.Me(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Username: %s\n", sess.User.Username)
		fmt.Printf("Role:     %s\n", sess.User.Role)
		fmt.Printf("User ID:  %d\n", sess.User.ID)
		if sess.Permissions.CanManageUsers {
			fmt.Println("Access:   full (admin)")
		} else if sess.Permissions.CanRecordTransactions {
			fmt.Println("Access:   operations (staff)")
		} else {
			fmt.Println("Access:   read-only reports")
		}
		return nil
	},
}

// ── refill ───────────────────────────────────────────────────────────────────

var refillCmd = &cobra.Command{
	Use:   "refill",
	Short: "Record and list water refill sales",
}

var (
	refillGallons  int
	refillPrice    float64
	refillCustomer string
	refillPayment  string
)

var refillAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a refill sale",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		t, err := c.CreateRefill(context.Background(), client.CreateRefillRequest{
			CustomerName:   refillCustomer,
			GallonsCount:   refillGallons,
			PricePerGallon: refillPrice,
			PaymentType:    refillPayment,
		})
		if err != nil {
			return fmt.Errorf("record refill: %w", err)
		}

		customer := t.CustomerName
		if customer == "" {
			customer = "Walk-in"
		}
		fmt.Printf("✓ Refill recorded (#%d)\n\n", t.ID)
		fmt.Printf("  Customer: %s\n", customer)
		fmt.Printf("  Gallons:  %d @ %.2f\n", t.GallonsCount, t.PricePerGallon)
		fmt.Printf("  Total:    %.2f (%s)\n", t.TotalAmount, t.PaymentType)
		return nil
	},
}

var (
	refillListStart string
	refillListEnd   string
	refillListStaff int64
	refillListLimit int
)

var refillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List refill sales, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}

		f := client.RefillFilter{Start: refillListStart, End: refillListEnd, Limit: refillListLimit}
		if refillListStaff > 0 {
			f.StaffID = &refillListStaff
		}
		list, err := c.ListRefills(context.Background(), f)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No refills recorded for this range.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tCUSTOMER\tGALLONS\tPRICE\tTOTAL\tPAYMENT\tSTAFF")
		for _, t := range list {
			customer := t.CustomerName
			if customer == "" {
				customer = "Walk-in"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.2f\t%.2f\t%s\t%d\n",
				t.ID, t.CreatedAt.Format("2006-01-02 15:04"), truncate(customer, 20),
				t.GallonsCount, t.PricePerGallon, t.TotalAmount, t.PaymentType, t.StaffID)
		}
		return w.Flush()
	},
}

var refillTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's running sales totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		stats, err := c.Today(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Today: %d transactions, %d gallons, %.2f revenue\n",
			stats.Transactions, stats.Gallons, stats.Revenue)
		return nil
	},
}

var refillReceiptCmd = &cobra.Command{
	Use:   "receipt <refill-id> <image-file>",
	Short: "Attach a receipt image to a refill sale",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid refill ID %q", args[0])
		}
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("open receipt: %w", err)
		}
		defer f.Close()

		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		res, err := c.AttachRefillReceipt(context.Background(), id, f.Name(), f)
		if err != nil {
			return fmt.Errorf("attach receipt: %w", err)
		}
		fmt.Printf("✓ Receipt stored at %s\n", res.ReceiptPath)
		fmt.Printf("  SHA-256: %s\n", res.ReceiptHash)
		return nil
	},
}

func init() {
	refillAddCmd.Flags().IntVar(&refillGallons, "gallons", 0, "Gallons sold")
	refillAddCmd.Flags().Float64Var(&refillPrice, "price", 0, "Price per gallon")
	refillAddCmd.Flags().StringVar(&refillCustomer, "customer", "", "Customer name (empty for walk-ins)")
	refillAddCmd.Flags().StringVar(&refillPayment, "payment", "Cash", "Payment type (Cash, GCash, PayMaya, Bank Transfer, On Account)")
	_ = refillAddCmd.MarkFlagRequired("gallons")
	_ = refillAddCmd.MarkFlagRequired("price")

	refillListCmd.Flags().StringVar(&refillListStart, "start", "", "Start date (2006-01-02)")
	refillListCmd.Flags().StringVar(&refillListEnd, "end", "", "End date, inclusive (2006-01-02)")
	refillListCmd.Flags().Int64Var(&refillListStaff, "staff", 0, "Only sales recorded by this staff ID")
	refillListCmd.Flags().IntVar(&refillListLimit, "limit", 50, "Maximum rows")

	refillCmd.AddCommand(refillAddCmd)
	refillCmd.AddCommand(refillListCmd)
	refillCmd.AddCommand(refillTodayCmd)
	refillCmd.AddCommand(refillReceiptCmd)
}

// ── expense ──────────────────────────────────────────────────────────────────

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Record and list business expenses",
}

var (
	expenseCategory string
	expenseAmount   float64
	expenseVendor   string
	expenseNote     string
)

var expenseAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an expense",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		e, err := c.CreateExpense(context.Background(), client.CreateExpenseRequest{
			Category: expenseCategory,
			Amount:   expenseAmount,
			Vendor:   expenseVendor,
			Note:     expenseNote,
		})
		if err != nil {
			return fmt.Errorf("record expense: %w", err)
		}
		fmt.Printf("✓ Expense recorded (#%d): %s %.2f\n", e.ID, e.Category, e.Amount)
		return nil
	},
}

var (
	expenseListStart    string
	expenseListEnd      string
	expenseListCategory string
	expenseListLimit    int
)

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		list, err := c.ListExpenses(context.Background(), client.ExpenseFilter{
			Start:    expenseListStart,
			End:      expenseListEnd,
			Category: expenseListCategory,
			Limit:    expenseListLimit,
		})
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No expenses recorded for this range.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tAMOUNT\tVENDOR\tSTAFF")
		for _, e := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%d\n",
				e.ID, e.CreatedAt.Format("2006-01-02"), e.Category, e.Amount,
				truncate(e.Vendor, 24), e.StaffID)
		}
		return w.Flush()
	},
}

var expenseCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the accepted expense categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		cats, err := c.ExpenseCategories(context.Background())
		if err != nil {
			return err
		}
		for _, cat := range cats {
			fmt.Println(cat)
		}
		return nil
	},
}

func init() {
	expenseAddCmd.Flags().StringVar(&expenseCategory, "category", "", "Expense category (see 'expense categories')")
	expenseAddCmd.Flags().Float64Var(&expenseAmount, "amount", 0, "Amount spent")
	expenseAddCmd.Flags().StringVar(&expenseVendor, "vendor", "", "Vendor or payee")
	expenseAddCmd.Flags().StringVar(&expenseNote, "note", "", "Free-form note")
	_ = expenseAddCmd.MarkFlagRequired("category")
	_ = expenseAddCmd.MarkFlagRequired("amount")

	expenseListCmd.Flags().StringVar(&expenseListStart, "start", "", "Start date (2006-01-02)")
	expenseListCmd.Flags().StringVar(&expenseListEnd, "end", "", "End date, inclusive (2006-01-02)")
	expenseListCmd.Flags().StringVar(&expenseListCategory, "category", "", "Only this category")
	expenseListCmd.Flags().IntVar(&expenseListLimit, "limit", 50, "Maximum rows")

	expenseCmd.AddCommand(expenseAddCmd)
	expenseCmd.AddCommand(expenseListCmd)
	expenseCmd.AddCommand(expenseCategoriesCmd)
}

// ── inventory ────────────────────────────────────────────────────────────────

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Manage containers, filters, and supplies",
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all inventory items",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		items, err := c.ListItems(context.Background())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Inventory is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tQTY\tUNIT COST\tVALUE\tLOCATION")
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.2f\t%.2f\t%s\n",
				it.ID, it.Name, it.Category, it.Quantity, it.UnitCost,
				float64(it.Quantity)*it.UnitCost, it.Location)
		}
		return w.Flush()
	},
}

var (
	itemName     string
	itemCategory string
	itemQuantity int
	itemCost     float64
	itemLocation string
)

var inventoryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an inventory item",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		it, err := c.CreateItem(context.Background(), client.CreateItemRequest{
			Name:     itemName,
			Category: itemCategory,
			Quantity: itemQuantity,
			UnitCost: itemCost,
			Location: itemLocation,
		})
		if err != nil {
			return fmt.Errorf("add item: %w", err)
		}
		fmt.Printf("✓ Item added (#%d): %s, %d on hand\n", it.ID, it.Name, it.Quantity)
		return nil
	},
}

var (
	adjustType   string
	adjustAmount int
	adjustReason string
)

var inventoryAdjustCmd = &cobra.Command{
	Use:   "adjust <item-id>",
	Short: "Adjust an item's stock level",
	Long: `Adjust applies a stock change to an item. The change type is one of:

  add_stock      received new stock
  remove_stock   consumed or sold stock
  set_quantity   correct the count to an absolute value
  mark_damaged   write off damaged stock

The reason is recorded verbatim in the audit ledger.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item ID %q", args[0])
		}

		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		it, err := c.AdjustStock(context.Background(), id, adjustType, adjustAmount, adjustReason)
		if err != nil {
			return fmt.Errorf("adjust stock: %w", err)
		}
		fmt.Printf("✓ Stock adjusted: %s now %d on hand\n", it.Name, it.Quantity)
		return nil
	},
}

var inventoryLowStockCmd = &cobra.Command{
	Use:   "low-stock",
	Short: "List items at or below the low-stock threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		items, threshold, err := c.LowStock(context.Background())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Printf("✓ No items at or below the threshold of %d.\n", threshold)
			return nil
		}

		fmt.Printf("%d item(s) at or below %d:\n\n", len(items), threshold)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tQTY\tLOCATION")
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", it.ID, it.Name, it.Quantity, it.Location)
		}
		return w.Flush()
	},
}

func init() {
	inventoryAddCmd.Flags().StringVar(&itemName, "name", "", "Item name")
	inventoryAddCmd.Flags().StringVar(&itemCategory, "category", "", "Item category")
	inventoryAddCmd.Flags().IntVar(&itemQuantity, "quantity", 0, "Starting quantity")
	inventoryAddCmd.Flags().Float64Var(&itemCost, "cost", 0, "Unit cost")
	inventoryAddCmd.Flags().StringVar(&itemLocation, "location", "", "Storage location")
	_ = inventoryAddCmd.MarkFlagRequired("name")

	inventoryAdjustCmd.Flags().StringVar(&adjustType, "type", "", "Change type (add_stock, remove_stock, set_quantity, mark_damaged)")
	inventoryAdjustCmd.Flags().IntVar(&adjustAmount, "amount", 0, "Change amount (absolute value for set_quantity)")
	inventoryAdjustCmd.Flags().StringVar(&adjustReason, "reason", "", "Reason, recorded in the audit ledger")
	_ = inventoryAdjustCmd.MarkFlagRequired("type")
	_ = inventoryAdjustCmd.MarkFlagRequired("amount")

	inventoryCmd.AddCommand(inventoryListCmd)
	inventoryCmd.AddCommand(inventoryAddCmd)
	inventoryCmd.AddCommand(inventoryAdjustCmd)
	inventoryCmd.AddCommand(inventoryLowStockCmd)
}

// ── ledger ───────────────────────────────────────────────────────────────────

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and verify the append-only audit ledger",
}

var (
	ledgerListAction string
	ledgerListActor  int64
	ledgerListStart  string
	ledgerListEnd    string
	ledgerListLimit  int
	ledgerListOffset int
	ledgerListFormat string
)

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit ledger entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}

		f := client.EntryFilter{
			ActionTag: ledgerListAction,
			Start:     ledgerListStart,
			End:       ledgerListEnd,
			Limit:     ledgerListLimit,
			Offset:    ledgerListOffset,
		}
		if ledgerListActor > 0 {
			f.ActorRef = &ledgerListActor
		}
		entries, err := c.ListLedgerEntries(context.Background(), f)
		if err != nil {
			return err
		}

		if ledgerListFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Println("No ledger entries match.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tTIMESTAMP\tACTION\tACTOR\tDIGEST\tMESSAGE")
		for _, e := range entries {
			msg := ""
			if env, err := e.DecodeEnvelope(); err == nil {
				msg = env.HumanMessage
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.12s\t%s\n",
				e.Sequence, e.Timestamp, e.ActionTag, actorLabel(e.ActorRef),
				e.Digest, truncate(msg, 48))
		}
		return w.Flush()
	},
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show <sequence>",
	Short: "Show one ledger entry with its decoded payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid sequence %q", args[0])
		}

		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		e, err := c.GetLedgerEntry(context.Background(), seq)
		if err != nil {
			return err
		}

		fmt.Printf("Sequence:    %d\n", e.Sequence)
		fmt.Printf("Timestamp:   %s\n", e.Timestamp)
		fmt.Printf("Action:      %s\n", e.ActionTag)
		fmt.Printf("Actor:       %s\n", actorLabel(e.ActorRef))
		fmt.Printf("Prev digest: %s\n", e.PrevDigest)
		fmt.Printf("Digest:      %s\n", e.Digest)

		env, err := e.DecodeEnvelope()
		if err != nil {
			return err
		}
		fmt.Printf("Message:     %s\n", env.HumanMessage)
		if len(env.Payload) > 0 {
			var pretty any
			if err := json.Unmarshal(env.Payload, &pretty); err == nil {
				out, _ := json.MarshalIndent(pretty, "  ", "  ")
				fmt.Printf("Payload:\n  %s\n", string(out))
			}
		}
		return nil
	},
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute every digest and report discrepancies",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		res, err := c.VerifyLedger(context.Background())
		if err != nil {
			return err
		}

		if res.Intact {
			fmt.Printf("✓ Audit chain intact (%d entries verified)\n", res.EntriesChecked)
			return nil
		}

		fmt.Printf("✗ Audit chain ALTERED: %d discrepancies in %d entries\n\n",
			len(res.Discrepancies), res.EntriesChecked)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tKIND\tEXPECTED\tACTUAL")
		for _, d := range res.Discrepancies {
			fmt.Fprintf(w, "%d\t%s\t%.16s\t%.16s\n", d.Sequence, d.Kind, d.Expected, d.Actual)
		}
		w.Flush()
		return errors.New("audit chain verification failed")
	},
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger totals and the current head digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		stats, err := c.LedgerStats(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Entries:     %d\n", stats.TotalEntries)
		if stats.FirstEntryTime != "" {
			fmt.Printf("First entry: %s\n", stats.FirstEntryTime)
			fmt.Printf("Last entry:  %s\n", stats.LastEntryTime)
		}
		fmt.Printf("Head digest: %s\n", stats.LastDigest)
		if len(stats.ActionCounts) > 0 {
			fmt.Println("\nBy action:")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for tag, n := range stats.ActionCounts {
				fmt.Fprintf(w, "  %s\t%d\n", tag, n)
			}
			w.Flush()
		}
		return nil
	},
}

var (
	proofStart  string
	proofEnd    string
	proofOutput string
)

var ledgerProofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Export a verifiable proof document of the chain",
	Long: `Proof exports a slice of the audit chain as a self-describing JSON
document. Anyone holding the file can recheck every digest without
access to the station; see scripts/verify-proof.go.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		proof, err := c.ExportProof(context.Background(), proofStart, proofEnd)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(proof, "", "  ")
		if err != nil {
			return err
		}

		if proofOutput == "" {
			fmt.Println(string(out))
			return nil
		}
		if err := os.WriteFile(proofOutput, append(out, '\n'), 0o644); err != nil {
			return fmt.Errorf("write proof: %w", err)
		}
		fmt.Printf("✓ Proof of %d entries written to %s\n", proof.TotalEntries, proofOutput)
		fmt.Printf("  Proof hash: %s\n", proof.ProofHash)
		return nil
	},
}

func init() {
	ledgerListCmd.Flags().StringVar(&ledgerListAction, "action", "", "Only entries with this action tag")
	ledgerListCmd.Flags().Int64Var(&ledgerListActor, "actor", 0, "Only entries recorded by this user ID")
	ledgerListCmd.Flags().StringVar(&ledgerListStart, "start", "", "Earliest timestamp, inclusive")
	ledgerListCmd.Flags().StringVar(&ledgerListEnd, "end", "", "Latest timestamp, inclusive")
	ledgerListCmd.Flags().IntVar(&ledgerListLimit, "limit", 50, "Maximum rows (server caps at 200)")
	ledgerListCmd.Flags().IntVar(&ledgerListOffset, "offset", 0, "Rows to skip")
	ledgerListCmd.Flags().StringVar(&ledgerListFormat, "format", "text", "Output format: text or json")

	ledgerProofCmd.Flags().StringVar(&proofStart, "start", "", "Earliest timestamp, inclusive")
	ledgerProofCmd.Flags().StringVar(&proofEnd, "end", "", "Latest timestamp, inclusive")
	ledgerProofCmd.Flags().StringVarP(&proofOutput, "output", "o", "", "Write the proof to a file instead of stdout")

	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd)
	ledgerCmd.AddCommand(ledgerStatsCmd)
	ledgerCmd.AddCommand(ledgerProofCmd)
}

// ── report ───────────────────────────────────────────────────────────────────

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the business reports",
}

var (
	reportStart string
	reportEnd   string
)

var reportSalesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Sales summary for a period (default last 30 days)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		sum, err := c.SalesReport(context.Background(), reportStart, reportEnd)
		if err != nil {
			return err
		}

		fmt.Printf("Sales %s to %s (%d days)\n\n", sum.Period.StartDate, sum.Period.EndDate, sum.Period.Days)
		fmt.Printf("  Transactions: %d\n", sum.Transactions.TotalCount)
		fmt.Printf("  Gallons:      %d\n", sum.Transactions.TotalGallons)
		fmt.Printf("  Revenue:      %.2f\n", sum.Transactions.TotalRevenue)
		fmt.Printf("  Avg/sale:     %.1f gal, %.2f\n",
			sum.Transactions.AvgGallonsPerTransaction, sum.Transactions.AvgRevenuePerTransaction)

		if len(sum.PaymentBreakdown) > 0 {
			fmt.Println("\nBy payment type:")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for pt, b := range sum.PaymentBreakdown {
				fmt.Fprintf(w, "  %s\t%d\t%.2f\n", pt, b.Count, b.Amount)
			}
			w.Flush()
		}
		return nil
	},
}

var reportExpensesCmd = &cobra.Command{
	Use:   "expenses",
	Short: "Expense summary for a period (default last 30 days)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		sum, err := c.ExpenseReport(context.Background(), reportStart, reportEnd)
		if err != nil {
			return err
		}

		fmt.Printf("Expenses %s to %s (%d days)\n\n", sum.Period.StartDate, sum.Period.EndDate, sum.Period.Days)
		fmt.Printf("  Count: %d\n", sum.Expenses.TotalCount)
		fmt.Printf("  Total: %.2f\n", sum.Expenses.TotalAmount)

		if len(sum.CategoryBreakdown) > 0 {
			fmt.Println("\nBy category:")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for cat, b := range sum.CategoryBreakdown {
				fmt.Fprintf(w, "  %s\t%d\t%.2f\n", cat, b.Count, b.Amount)
			}
			w.Flush()
		}
		return nil
	},
}

var reportProfitCmd = &cobra.Command{
	Use:   "profit",
	Short: "Profit and loss for a period (default last 30 days)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		pl, err := c.ProfitLossReport(context.Background(), reportStart, reportEnd)
		if err != nil {
			return err
		}

		fmt.Printf("Profit and loss %s to %s\n\n", pl.Period.StartDate, pl.Period.EndDate)
		fmt.Printf("  Revenue:      %10.2f\n", pl.Revenue)
		fmt.Printf("  Expenses:     %10.2f\n", pl.Expenses)
		fmt.Printf("  Gross profit: %10.2f  (%.1f%% margin)\n", pl.GrossProfit, pl.GrossMarginPercent)
		return nil
	},
}

var reportInventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Current stock valuation",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		rep, err := c.InventoryReport(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Inventory: %d items, %.2f total value\n", rep.Summary.TotalItems, rep.Summary.TotalValue)
		if rep.Summary.LowStockCount > 0 {
			fmt.Printf("⚠ %d item(s) low on stock\n", rep.Summary.LowStockCount)
		}
		if len(rep.CategoryBreakdown) > 0 {
			fmt.Println("\nBy category:")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  CATEGORY\tITEMS\tQTY\tVALUE")
			for cat, b := range rep.CategoryBreakdown {
				fmt.Fprintf(w, "  %s\t%d\t%d\t%.2f\n", cat, b.Count, b.Quantity, b.Value)
			}
			w.Flush()
		}
		return nil
	},
}

var reportStaffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Per-staff activity for a period (admin only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		rep, err := c.StaffReport(context.Background(), reportStart, reportEnd)
		if err != nil {
			return err
		}

		fmt.Printf("Staff activity %s to %s\n\n", rep.Period.StartDate, rep.Period.EndDate)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USER\tROLE\tSALES\tGALLONS\tREVENUE\tEXPENSES")
		for _, s := range rep.Staff {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t%.2f\n",
				s.Username, s.Role, s.Transactions.Count, s.Transactions.TotalGallons,
				s.Transactions.TotalRevenue, s.Expenses.Amount)
		}
		return w.Flush()
	},
}

var reportDays int

var reportDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Trailing daily revenue and expense series",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		days, err := c.DailySales(context.Background(), reportDays)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tSALES\tGALLONS\tREVENUE\tEXPENSES\tPROFIT")
		for _, d := range days {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%.2f\t%.2f\n",
				d.Date, d.Transactions, d.Gallons, d.Revenue, d.Expenses, d.Profit)
		}
		return w.Flush()
	},
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportStart, "start", "", "Start date (2006-01-02)")
	reportCmd.PersistentFlags().StringVar(&reportEnd, "end", "", "End date, inclusive (2006-01-02)")
	reportDailyCmd.Flags().IntVar(&reportDays, "days", 7, "Days of history")

	reportCmd.AddCommand(reportSalesCmd)
	reportCmd.AddCommand(reportExpensesCmd)
	reportCmd.AddCommand(reportProfitCmd)
	reportCmd.AddCommand(reportInventoryCmd)
	reportCmd.AddCommand(reportStaffCmd)
	reportCmd.AddCommand(reportDailyCmd)
}

// ── export ───────────────────────────────────────────────────────────────────

var (
	exportStart  string
	exportEnd    string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <transactions|expenses|inventory|profit-loss|ledger>",
	Short: "Download a CSV export (admin only)",
	Long: `Export downloads one of the station's CSV exports. Every export is
itself recorded in the audit ledger with the requesting account.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := strings.TrimSuffix(args[0], ".csv")

		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		data, err := c.ExportCSV(context.Background(), kind, exportStart, exportEnd)
		if err != nil {
			return fmt.Errorf("export %s: %w", kind, err)
		}

		out := exportOutput
		if out == "" {
			out = kind + ".csv"
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("✓ Exported %s (%d bytes) to %s\n", kind, len(data), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportStart, "start", "", "Start date (2006-01-02)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "End date, inclusive (2006-01-02)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default <kind>.csv)")
}

// ── user ─────────────────────────────────────────────────────────────────────

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage staff accounts (admin only)",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		list, err := c.ListUsers(context.Background())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tCREATED\tLAST LOGIN")
		for _, u := range list {
			lastLogin := "never"
			if u.LastLogin != nil {
				lastLogin = u.LastLogin.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				u.ID, u.Username, u.Role, u.CreatedAt.Format("2006-01-02"), lastLogin)
		}
		return w.Flush()
	},
}

var (
	newUserRole     string
	newUserPassword string
)

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		password := newUserPassword
		if password == "" {
			fmt.Printf("Password for %s: ", username)
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimSpace(line)
		}

		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		u, err := c.CreateUser(context.Background(), username, password, newUserRole)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Printf("✓ Account created: %s (%s), ID %d\n", u.Username, u.Role, u.ID)
		return nil
	},
}

var deleteUserForce bool

var userDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete an account",
	Long: `Delete removes an account. Accounts that have recorded transactions
or expenses are refused; their rows and ledger history must outlive them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user ID %q", args[0])
		}

		if !deleteUserForce {
			fmt.Printf("Delete account %d? [y/N]: ", id)
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		c, err := newAuthedClient()
		if err != nil {
			return err
		}
		if err := c.DeleteUser(context.Background(), id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		fmt.Printf("✓ Account %d deleted\n", id)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&newUserRole, "role", "staff", "Account role (admin, staff, or public)")
	userAddCmd.Flags().StringVar(&newUserPassword, "password", "", "Password (prompted when omitted)")
	userDeleteCmd.Flags().BoolVar(&deleteUserForce, "force", false, "Skip confirmation prompt")

	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userDeleteCmd)
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hydroctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hydroctl %s (HydroHub)\n", version)
	},
}

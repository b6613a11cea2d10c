// Package client is the HydroHub Go SDK.
//
// It wraps the station's REST API in typed calls: logging in, recording
// refill sales and expenses, managing inventory, reading reports, and
// querying or verifying the append-only audit ledger.
//
// # Connecting
//
// Create a client for the station's base URL, then log in. Login stores
// the returned session token on the client, so every later call is
// authenticated automatically:
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sess, err := c.Login(ctx, "admin", password)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("logged in as", sess.User.Username)
//
// A token saved by a previous login (see SaveToken) can be attached
// without logging in again:
//
//	c, err := client.NewFromTokenFile("http://localhost:8080", tokenPath)
//
// # Recording a sale
//
//	t, err := c.CreateRefill(ctx, client.CreateRefillRequest{
//	    CustomerName:   "Aling Nena",
//	    GallonsCount:   2,
//	    PricePerGallon: 25,
//	    PaymentType:    "Cash",
//	})
//
// Every write goes through the audit ledger on the server: the refill row
// and its chain entry commit in the same transaction.
//
// # Auditing the ledger
//
// The ledger is an append-only hash chain. VerifyLedger recomputes every
// digest server-side; ExportProof returns a self-describing document that
// third parties can recheck with no access to the station at all:
//
//	res, err := c.VerifyLedger(ctx)
//	if err == nil && !res.Intact {
//	    log.Printf("chain altered: %d discrepancies", len(res.Discrepancies))
//	}
//
//	proof, err := c.ExportProof(ctx, "", "")
//
// The methods mirror the HTTP API one to one; errors from non-2xx
// responses carry the server's error message.
package client

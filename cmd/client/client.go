package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gungnir/internal/book"
	"gungnir/internal/common"
	gungnirNet "gungnir/internal/net"
)

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	owner := flag.String("owner", "", "Owner username (compulsory)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'quote', 'log']")

	// Order Parameters
	ticker := flag.String("ticker", "AAPL", "Ticker symbol")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	priceStr := flag.String("price", "100", "Limit price (decimal)")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20.5,50)")

	// Cancel Parameters
	uuid := flag.String("uuid", "", "UUID of the order to cancel")

	flag.Parse()

	// Validation
	if *owner == "" {
		fmt.Println("Error: -owner is compulsory.")
		flag.Usage()
		os.Exit(1)
	}

	// Connect to Server
	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s as '%s'\n", *serverAddr, *owner)

	// Start Listening for Reports (Async)
	go readReports(conn)

	// Prepare Enums
	side := book.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = book.Sell
	}

	orderType := common.LimitOrder
	if strings.ToLower(*typeStr) == "market" {
		orderType = common.MarketOrder
	}

	// Execute Action
	switch strings.ToLower(*action) {
	case "place":
		price, err := decimal.NewFromString(*priceStr)
		if err != nil {
			log.Fatalf("Invalid -price %q: %v", *priceStr, err)
		}
		for _, q := range parseQuantities(*qtyStr) {
			msg := gungnirNet.NewOrderMessage{
				BaseMessage: gungnirNet.BaseMessage{TypeOf: gungnirNet.NewOrder},
				AssetType:   common.Equities,
				OrderType:   orderType,
				Side:        side,
				Ticker:      *ticker,
				LimitPrice:  price,
				Quantity:    q,
				Username:    *owner,
			}
			if _, err := conn.Write(msg.Serialize()); err != nil {
				log.Printf("Failed to place order (Qty: %s): %v", q, err)
			} else {
				fmt.Printf("-> Sent %s Order: %s %s @ %s\n",
					strings.ToUpper(*sideStr), *ticker, q, price)
			}
			// Small optional sleep to ensure server processes sequence distinctly
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *uuid == "" {
			log.Fatal("Error: -uuid is required for cancellation")
		}
		msg := gungnirNet.CancelOrderMessage{
			BaseMessage: gungnirNet.BaseMessage{TypeOf: gungnirNet.CancelOrder},
			AssetType:   common.Equities,
			OrderUUID:   *uuid,
		}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent Cancel Request for UUID: %s\n", *uuid)
		}

	case "quote":
		quantities := parseQuantities(*qtyStr)
		if len(quantities) != 1 {
			log.Fatal("Error: -qty must be a single quantity for quotes")
		}
		msg := gungnirNet.QuoteMarketMessage{
			BaseMessage: gungnirNet.BaseMessage{TypeOf: gungnirNet.QuoteMarket},
			AssetType:   common.Equities,
			Side:        side,
			Quantity:    quantities[0],
		}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Printf("Failed to send quote request: %v", err)
		} else {
			fmt.Printf("-> Sent Quote Request: %s %s\n", strings.ToUpper(*sideStr), quantities[0])
		}

	case "log":
		if _, err := conn.Write(gungnirNet.SerializeLogBook()); err != nil {
			log.Printf("Failed to send log request: %v", err)
		} else {
			fmt.Println("-> Sent Log Request")
		}

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	// Keep the client alive to receive execution reports
	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

// parseQuantities splits a comma-separated string into decimals.
func parseQuantities(input string) []decimal.Decimal {
	parts := strings.Split(input, ",")
	result := make([]decimal.Decimal, 0, len(parts))
	for _, p := range parts {
		q, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			log.Fatalf("Invalid quantity %q: %v", p, err)
		}
		result = append(result, q)
	}
	return result
}

// readReports prints every report frame the exchange sends back.
func readReports(conn net.Conn) {
	buffer := make([]byte, 4096)
	for {
		n, err := conn.Read(buffer)
		if err != nil {
			log.Fatalf("Connection closed: %v", err)
		}

		// One read may carry several frames written back to back.
		data := buffer[:n]
		for len(data) > 0 {
			report, err := gungnirNet.ParseReport(data)
			if err != nil {
				log.Printf("Unable to parse report: %v", err)
				break
			}
			printReport(report)
			data = data[len(report.Serialize()):]
		}
	}
}

func printReport(r gungnirNet.Report) {
	switch r.MessageType {
	case gungnirNet.ExecutionReport:
		fmt.Printf("<- FILL   order=%s qty=%s cost=%s ticker=%s\n",
			r.OrderUUID, r.Quantity, r.Cost, r.Ticker)
	case gungnirNet.QuoteReport:
		fmt.Printf("<- QUOTE  filled=%s cost=%s\n", r.Quantity, r.Cost)
	case gungnirNet.OrderAccepted:
		fmt.Printf("<- ACCEPT order=%s qty=%s ticker=%s\n",
			r.OrderUUID, r.Quantity, r.Ticker)
	case gungnirNet.ErrorReport:
		fmt.Printf("<- ERROR  %s\n", r.Err)
	default:
		fmt.Printf("<- UNKNOWN report type %d\n", r.MessageType)
	}
}

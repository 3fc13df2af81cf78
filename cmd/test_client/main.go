package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080/mcp/stream", "MCP streamable HTTP endpoint")
	limit := flag.Int("limit", 5, "number of candidates to print")
	runFirst := flag.Bool("run", false, "trigger run_discovery before listing candidates")
	flag.Parse()

	ctx := context.Background()

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "job-discovery-test-client",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint: *endpoint,
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = session.Close() }()

	log.Printf("Connected to server (session ID: %s)\n", session.ID())

	testListTools(ctx, session)
	if *runFirst {
		testRunDiscovery(ctx, session)
	}
	testGetCandidates(ctx, session, *limit)
	testListMatches(ctx, session)

	fmt.Println("\nAll tests completed")
}

func testListTools(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("\nTEST: list tools")

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		log.Printf("list tools failed: %v", err)
		return
	}
	for _, tool := range res.Tools {
		fmt.Printf("  %s: %s\n", tool.Name, tool.Description)
	}
}

func testRunDiscovery(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("\nTEST: run_discovery")

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "run_discovery",
		Arguments: map[string]any{},
	})
	if err != nil {
		log.Printf("run_discovery failed: %v", err)
		return
	}

	printResult(result)
}

func testGetCandidates(ctx context.Context, session *mcp.ClientSession, limit int) {
	fmt.Println("\nTEST: get_candidates")

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "get_candidates",
		Arguments: map[string]any{
			"limit": limit,
		},
	})
	if err != nil {
		log.Printf("get_candidates failed: %v", err)
		return
	}

	printResult(result)
}

func testListMatches(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("\nTEST: list_matches (unnotified)")

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "list_matches",
		Arguments: map[string]any{
			"unnotified_only": true,
			"limit":           10,
		},
	})
	if err != nil {
		log.Printf("list_matches failed: %v", err)
		return
	}

	printResult(result)
}

func printResult(res *mcp.CallToolResult) {
	if res.IsError {
		fmt.Print("✗ ")
	}
	for _, c := range res.Content {
		if txt, ok := c.(*mcp.TextContent); ok {
			fmt.Println(txt.Text)
		}
	}
}

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions. Every tool acts as the server's bound principal; there
// is no way for a client to impersonate someone else.

var createToolDef = mcp.NewTool(
	"capsule_create",
	mcp.WithDescription("Create a time-locked capsule addressed to a recipient. Optional value is moved into escrow until the capsule is opened."),
	mcp.WithString("recipient",
		mcp.Required(),
		mcp.Description("Principal who will be able to open the capsule"),
	),
	mcp.WithString("payload",
		mcp.Required(),
		mcp.Description("Message content, released to the recipient on open (max 1000 characters)"),
	),
	mcp.WithNumber("value",
		mcp.Description("Deposit to custody with the capsule (default 0)"),
		mcp.Min(0),
	),
	mcp.WithNumber("delay",
		mcp.Required(),
		mcp.Description("Seconds until the capsule unlocks, must be positive"),
		mcp.Min(1),
	),
	mcp.WithString("kind",
		mcp.Description("Free-form label, lowered and truncated to 20 characters (default \"standard\")"),
	),
	mcp.WithString("metadata",
		mcp.Description("Optional annotation visible before unlock (max 500 characters)"),
	),
	mcp.WithBoolean("public",
		mcp.Description("Register the capsule in the public-viewable set"),
	),
)

var openToolDef = mcp.NewTool(
	"capsule_open",
	mcp.WithDescription("Open an unlocked capsule addressed to you: releases the payload and pays out the deposit. One-shot."),
	mcp.WithNumber("id",
		mcp.Required(),
		mcp.Description("Capsule id"),
		mcp.Min(1),
	),
)

var previewToolDef = mcp.NewTool(
	"capsule_preview",
	mcp.WithDescription("Read an unlocked capsule's payload without consuming it or touching the deposit. Recipient only."),
	mcp.WithNumber("id",
		mcp.Required(),
		mcp.Description("Capsule id"),
		mcp.Min(1),
	),
)

var showToolDef = mcp.NewTool(
	"capsule_show",
	mcp.WithDescription("Fetch a capsule's record fields (parties, value, unlock time, state). The payload is never included."),
	mcp.WithNumber("id",
		mcp.Required(),
		mcp.Description("Capsule id"),
		mcp.Min(1),
	),
)

var listToolDef = mcp.NewTool(
	"capsule_list",
	mcp.WithDescription("List the capsules you are party to, oldest first."),
	mcp.WithNumber("limit",
		mcp.Description("Max results (default 20, max 100)"),
		mcp.Min(1),
		mcp.Max(100),
	),
	mcp.WithNumber("offset",
		mcp.Description("Results to skip (default 0)"),
		mcp.Min(0),
	),
)

var statsToolDef = mcp.NewTool(
	"capsule_stats",
	mcp.WithDescription("Report the ledger aggregates: total capsules, custodied value, opens, pause state."),
)
